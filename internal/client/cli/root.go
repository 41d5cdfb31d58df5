package cli

import (
	"context"
	"fmt"
)

const usage = "Available commands: register, login, ping, help"

// Root dispatches command and reports failures on the output writer.
func (a *App) Root(ctx context.Context, command string) int {

	var err error

	switch command {
	case "register":
		err = a.Register(ctx)
	case "login":
		err = a.Login(ctx)
	case "ping":
		err = a.ping(ctx)
	case "", "help":
		fmt.Fprintln(a.out, usage)
		return 0
	default:
		fmt.Fprintf(a.out, "unknown command %q\n%s\n", command, usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return 1
	}
	return 0
}

func (a *App) ping(ctx context.Context) error {
	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	if err := a.client.Ping(reqCtx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}
