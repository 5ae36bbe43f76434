package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Seams over the terminal; tests replace them.
var (
	readPassword    = term.ReadPassword
	stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

// readLine returns the next line without surrounding whitespace. A final
// line without a newline counts; EOF with nothing read is an error.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetSimpleText prints "prompt: " to w and reads one line from reader.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", prompt); err != nil {
		return "", err
	}
	return readLine(reader)
}

// GetPassword reads a password without echo when stdin is a terminal.
// Piped input (scripts, CI) is read as a plain line from reader.
// The caller wipes the returned slice.
func GetPassword(reader *bufio.Reader, w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return nil, err
	}

	if !stdinIsTerminal() {
		line, err := readLine(reader)
		if err != nil {
			return nil, err
		}
		return []byte(line), nil
	}

	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}
