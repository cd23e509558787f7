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

// errUsage marks a command invoked with the wrong arguments.
var errUsage = errors.New("usage")

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Tenant(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Categories(ctx context.Context) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	Price(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
}

const (
	helpAnonymous = "Available commands: login, tenant [url], (l)ist [q= category= min= max= status= page= size= sort= | reset], show <id>, categories, stats, exit"
	helpLoggedIn  = "Available commands: (l)ist [q= category= min= max= status= page= size= sort= | reset], show <id>, categories, add, edit <id>, price <id> <value>, delete <id>, tenant [url], whoami, stats, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The prompt shows statusFn(). The loop ends on EOF or "exit"/"quit".
//
// Handler errors are printed and the loop goes on; a failed command leaves
// the REPL state (filter, form draft) as the user left it.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("catalog %s> ", statusFn()))

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
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)
		case "tenant":
			cmdErr = a.Tenant(ctx, args)

		case "l", "list":
			cmdErr = a.List(ctx, args)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "categories":
			cmdErr = a.Categories(ctx)

		case "add":
			cmdErr = a.Add(ctx)
		case "edit":
			cmdErr = a.Edit(ctx, args)
		case "price":
			cmdErr = a.Price(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)

		case "stats":
			cmdErr = a.Stats(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			if errors.Is(cmdErr, errUsage) {
				printlnFn("Usage:", strings.TrimPrefix(cmdErr.Error(), errUsage.Error()+": "))
			} else {
				printlnFn("Error:", cmdErr)
			}
		}

		if err != nil {
			return
		}
	}
}
