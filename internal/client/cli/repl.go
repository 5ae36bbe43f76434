package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Get(ctx context.Context, args []string) error
	Ping(ctx context.Context) error
	Health(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the sessionkeeper CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF or when the user
// types "exit" or "quit". Notices raised while a command runs read their
// answer from the same reader, which is why this is not a bufio.Scanner.
//
//	Not logged in:
//	  - help, login, ping, get public <path>, exit | quit
//
//	Logged in:
//	  - help, status, get [public|auth|paid] <path>, ping, health [service],
//	    logout, exit | quit
//
// Errors returned by command handlers are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("sk %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				printlnFn("Available commands: status, get [public|auth|paid] <path>, ping, health [service], logout, exit")
			} else {
				printlnFn("Available commands: login, ping, get public <path>, exit")
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "get":
			cmdErr = a.Get(ctx, args)

		case "ping":
			cmdErr = a.Ping(ctx)

		case "health":
			cmdErr = a.Health(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn(describe(cmdErr))
		}
	}
}
