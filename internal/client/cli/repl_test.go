package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	err      error

	calls []string
}

func (f *fakeExec) record(name string, args ...string) error {
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return f.err
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) WhoAmI(ctx context.Context) error { return f.record("whoami") }
func (f *fakeExec) Tenant(ctx context.Context, args []string) error {
	return f.record("tenant", args...)
}
func (f *fakeExec) List(ctx context.Context, args []string) error { return f.record("list", args...) }
func (f *fakeExec) Show(ctx context.Context, args []string) error { return f.record("show", args...) }
func (f *fakeExec) Categories(ctx context.Context) error          { return f.record("categories") }
func (f *fakeExec) Add(ctx context.Context) error                 { return f.record("add") }
func (f *fakeExec) Edit(ctx context.Context, args []string) error { return f.record("edit", args...) }
func (f *fakeExec) Price(ctx context.Context, args []string) error {
	return f.record("price", args...)
}
func (f *fakeExec) Delete(ctx context.Context, args []string) error {
	return f.record("delete", args...)
}
func (f *fakeExec) Stats(ctx context.Context) error { return f.record("stats") }

func capturePrints(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_Dispatch(t *testing.T) {
	printed := capturePrints(t)

	input := strings.Join([]string{
		"help",
		"login",
		"help",
		"l category=tools",
		"list",
		"show 5",
		"categories",
		"add",
		"edit 5",
		"price 5 19.99",
		"delete 5",
		"tenant acme.shop.example.com",
		"whoami",
		"stats",
		"",
		"foobar",
		"logout",
		"exit",
		"list",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, rdr(input))

	assert.Equal(t, []string{
		"login", "list category=tools", "list", "show 5", "categories", "add", "edit 5",
		"price 5 19.99", "delete 5", "tenant acme.shop.example.com", "whoami", "stats", "logout",
	}, exec.calls)

	assert.Contains(t, *printed, helpAnonymous)
	assert.Contains(t, *printed, helpLoggedIn)
	assert.Contains(t, *printed, "Unknown command: foobar")
	assert.Contains(t, *printed, "catalog status> ")
	assert.Equal(t, "Bye!", (*printed)[len(*printed)-1])
}

func TestRunREPL_ErrorsAreReportedAndLoopContinues(t *testing.T) {
	printed := capturePrints(t)

	exec := &fakeExec{err: errors.New("backend down")}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("list\nshow 1\nquit\n"))

	assert.Equal(t, []string{"list", "show 1"}, exec.calls)
	assert.Contains(t, *printed, "Error: backend down")
}

func TestRunREPL_UsageErrors(t *testing.T) {
	printed := capturePrints(t)

	exec := &fakeExec{err: usage("show <id>")}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("show\n"))

	assert.Contains(t, *printed, "Usage: show <id>")
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	capturePrints(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("categories"))

	assert.Equal(t, []string{"categories"}, exec.calls)
}
