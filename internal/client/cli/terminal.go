package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
)

// terminal shows notices on out and reads confirmations from the REPL's
// reader. Navigation is printed, there is nowhere to go in a terminal.
type terminal struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer
}

func newTerminal(reader *bufio.Reader, out io.Writer) *terminal {
	return &terminal{reader: reader, out: out}
}

func (t *terminal) Navigate(_ context.Context, target string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "-> %s\n", target)
}

func (t *terminal) Notify(_ context.Context, n session.Notice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "[%s] %s\n", n.Title, n.Message)
}

func (t *terminal) Confirm(_ context.Context, n session.Notice) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "[%s] %s [y/N]\n> ", n.Title, n.Message)
	line, err := readLine(t.reader)
	if err != nil {
		return false
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
