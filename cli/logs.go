package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"practicelab/table"
)

func logsCommand(opts *Options) *cobra.Command {
	var q table.Query
	var clearLog bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the requests the mock server has seen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			c := opts.client()
			out := cmd.OutOrStdout()

			if clearLog {
				if err := c.ClearLogs(ctx); err != nil {
					return fmt.Errorf("clear logs: %w", err)
				}
				successColor.Fprintln(out, "✅ Request log cleared")
				return nil
			}

			page, err := c.Logs(ctx, q)
			if err != nil {
				return fmt.Errorf("fetch logs: %w", err)
			}
			if page.Total == 0 {
				infoColor.Fprintln(out, "📝 No requests logged")
				return nil
			}

			t := newTable(out, "Time", "Name", "Method", "URL", "Status", "ms", "Fault")
			for _, e := range page.Rows {
				name := e.Name
				if !e.Intercepted {
					name += " (bypass)"
				}
				t.Append(e.Time.Format("15:04:05"), name, e.Method, truncate(e.URL, 40), strconv.Itoa(e.Status), strconv.FormatInt(e.DurationMs, 10), e.Fault)
			}
			t.Render()
			subtleColor.Fprintf(out, "Page %d of %d (%d requests)\n", page.Page, page.TotalPages, page.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "Only requests where any column contains this text")
	cmd.Flags().StringVar(&q.SortKey, "sort", "", "Column to sort by (default newest first)")
	cmd.Flags().BoolVar(&q.Desc, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&q.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 20, "Rows per page")
	cmd.Flags().BoolVar(&clearLog, "clear", false, "Clear the log instead of showing it")
	return cmd
}
