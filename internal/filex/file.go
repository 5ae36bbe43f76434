// Package filex holds small filesystem helpers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SQLitePath extracts the filesystem path from a SQLite DSN such as
// "file:/var/lib/app/db.sqlite?_pragma=foreign_keys(1)". It returns "" for
// in-memory databases.
func SQLitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		if strings.Contains(p[i:], "mode=memory") {
			return ""
		}
		p = p[:i]
	}
	if p == "" || p == ":memory:" {
		return ""
	}
	return p
}

// EnsureParentDir creates the directory that will hold path, owner-only.
// Paths without a directory component are left alone.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
