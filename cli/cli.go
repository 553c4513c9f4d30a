// Package cli holds the client-side commands: they talk to a running mock
// server over HTTP or work offline against the built-in route table.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"practicelab/client"
	"practicelab/mockapi"
	"practicelab/state"
)

// CLI colors and styles
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	headerColor  = color.New(color.FgMagenta, color.Bold)
	subtleColor  = color.New(color.FgHiBlack)
)

const requestTimeout = 30 * time.Second

// Options are the connection settings shared by every client command.
type Options struct {
	MockURL    string
	ControlURL string
	BasePath   string
}

// BindFlags registers the connection flags on cmd as persistent flags.
func (o *Options) BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&o.MockURL, "mock-url", "http://localhost:8080", "Mock server URL, including the base path")
	cmd.PersistentFlags().StringVar(&o.ControlURL, "control-url", "http://localhost:8081", "Control API URL")
}

func (o *Options) client() *client.Client {
	return client.New(o.MockURL, o.ControlURL, nil)
}

// CreateCLICommands creates every client command.
func CreateCLICommands(opts *Options) []*cobra.Command {
	return []*cobra.Command{
		booksCommand(opts),
		productsCommand(opts),
		loginCommand(opts),
		orderCommand(opts),
		rulesCommand(opts),
		logsCommand(opts),
		docsCommand(opts),
		scanCommand(opts),
	}
}

// builtinRoutes is the route table the server would mount, for offline commands.
func builtinRoutes() *mockapi.Table {
	return mockapi.NewHandlers(state.NewStore(state.DefaultSeed())).Routes(mockapi.NoLatencies())
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, requestTimeout)
}

func newTable(out io.Writer, header ...any) *tablewriter.Table {
	t := tablewriter.NewWriter(out)
	t.Header(header...)
	return t
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
