// Package flagx lets several config loaders share one os.Args without
// tripping over each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the flags named in allowedFlags together with their
// values. Both "-c conf.json" and "-c=conf.json" forms are recognised; a
// following token that starts with '-' is never consumed as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFileFlag returns the config file path given with -c or -config in
// args (usually os.Args[1:]). The last occurrence wins; "" when absent.
func ConfigFileFlag(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}
