package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	getErr   error

	calls []string
	args  [][]string
}

func (f *fakeExec) isLoggedIn(context.Context) bool { return f.loggedIn }
func (f *fakeExec) Login(context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Status(context.Context) error { f.calls = append(f.calls, "status"); return nil }
func (f *fakeExec) Get(_ context.Context, args []string) error {
	f.calls = append(f.calls, "get")
	f.args = append(f.args, args)
	return f.getErr
}
func (f *fakeExec) Ping(context.Context) error { f.calls = append(f.calls, "ping"); return nil }
func (f *fakeExec) Health(_ context.Context, args []string) error {
	f.calls = append(f.calls, "health")
	f.args = append(f.args, args)
	return nil
}

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	captureOutput(t)

	input := strings.Join([]string{
		"help",
		"login",
		"",
		"status",
		"get paid /reports",
		"ping",
		"health sessionkeeper.Reports",
		"logout",
		"exit",
		"status",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{"login", "status", "get", "ping", "health", "logout"}, exec.calls)
	assert.Equal(t, [][]string{{"paid", "/reports"}, {"sessionkeeper.Reports"}}, exec.args)
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	captureOutput(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("ping")))

	assert.Equal(t, []string{"ping"}, exec.calls)
}

func TestRunREPL_PrintsErrorsAndContinues(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{getErr: common.ErrSessionTerminated}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("get /me\nfoobar\nping\nquit\n")))

	assert.Equal(t, []string{"get", "ping"}, exec.calls)
	assert.Contains(t, *out, "Session ended, please log in again.")
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Contains(t, *out, "Bye!")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Error: boom", describe(errors.New("boom")))
	assert.Contains(t, describe(common.ErrServerOverloaded), "server overloaded")
}

func TestParseTier(t *testing.T) {
	for _, s := range []string{"public", "auth", "paid", "PERM"} {
		_, ok := parseTier(s)
		assert.True(t, ok, s)
	}
	_, ok := parseTier("admin")
	assert.False(t, ok)
}
