// Package cli implements the authkeeper command-line client.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
)

type App struct {
	config *config.Config
	client client.Client
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {

	apiClient, err := client.NewAuthKeeperClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}

	return &App{config: c, client: apiClient, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

// Run executes a single command and returns the process exit code.
func (a *App) Run(ctx context.Context, command string) int {
	defer a.client.Close()
	return a.Root(ctx, command)
}

// requestContext applies the configured per-call timeout.
func (a *App) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// Command returns the first positional argument of args, skipping flags and
// the values of flags listed in valueFlags.
func Command(args []string, valueFlags []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
		if strings.Contains(arg, "=") {
			continue
		}
		for _, f := range valueFlags {
			if arg == f {
				i++
				break
			}
		}
	}
	return ""
}
