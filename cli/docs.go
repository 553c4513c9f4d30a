package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"practicelab/codeanalysis"
	"practicelab/openapi"
)

func docsCommand(opts *Options) *cobra.Command {
	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "Export and inspect the API documentation",
	}

	var basePath string
	var fromServer bool
	exportCmd := &cobra.Command{
		Use:   "export [filename]",
		Short: "Write the Swagger document (stdout when no filename is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if fromServer {
				ctx, cancel := requestContext(cmd)
				defer cancel()
				raw, err := opts.client().OpenAPI(ctx)
				if err != nil {
					return fmt.Errorf("fetch docs: %w", err)
				}
				data = raw
			} else {
				doc := openapi.Document(builtinRoutes(), basePath, openapi.DefaultInfo)
				b, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal docs: %w", err)
				}
				data = b
			}

			if len(args) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", args[0], err)
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✅ Exported API docs to '%s'\n", args[0])
			return nil
		},
	}
	exportCmd.Flags().StringVar(&basePath, "base-path", "/", "Base path the endpoints are mounted under")
	exportCmd.Flags().BoolVar(&fromServer, "from-server", false, "Fetch the document from the running control API")

	endpointsCmd := &cobra.Command{
		Use:     "endpoints <spec-file>",
		Short:   "List endpoints from a Swagger document",
		Aliases: []string{"ls"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			discovered, err := openapi.ParseOpenAPISpec(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			successColor.Fprintf(out, "✅ Found %d endpoints in %s\n", len(discovered.Endpoints), filepath.Base(args[0]))
			if discovered.Info.Title != "" {
				infoColor.Fprintf(out, "API: %s (v%s)\n", discovered.Info.Title, discovered.Info.Version)
			}
			t := newTable(out, "#", "Method", "Path", "Full URL", "Summary")
			for i, ep := range discovered.Endpoints {
				summary := ep.Summary
				if summary == "" {
					summary = ep.Description
				}
				t.Append(fmt.Sprintf("%d", i+1), ep.Method, ep.Path, ep.FullURL, truncate(summary, 50))
			}
			t.Render()
			return nil
		},
	}

	docsCmd.AddCommand(exportCmd, endpointsCmd)
	return docsCmd
}

func scanCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <directory>",
		Short: "Find front-end API calls and report which the mock server answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			headerColor.Fprintf(out, "\n🔍 Analyzing source code in: %s\n\n", args[0])

			result, err := codeanalysis.AnalyzeDirectory(args[0])
			if err != nil {
				return err
			}
			for _, f := range result.Skipped {
				warningColor.Fprintf(out, "⚠️  Could not read %s\n", f)
			}
			if len(result.Endpoints) == 0 {
				warningColor.Fprintln(out, "⚠️  No API calls found in source code")
				return nil
			}

			classified := codeanalysis.Classify(result.Endpoints, builtinRoutes(), opts.BasePath)
			intercepted := 0
			t := newTable(out, "Method", "URL", "Location", "Handled by")
			for _, c := range classified {
				handledBy := "bypass"
				if c.Intercepted {
					handledBy = c.Route
					intercepted++
				}
				t.Append(c.Method, truncate(c.URL, 50), fmt.Sprintf("%s:%d", c.File, c.Line), handledBy)
			}
			t.Render()

			fmt.Fprintln(out)
			successColor.Fprintf(out, "✅ %d of %d call(s) would be intercepted\n", intercepted, len(classified))
			if n := len(classified) - intercepted; n > 0 {
				subtleColor.Fprintf(out, "   %d call(s) pass through to the network\n", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.BasePath, "base-path", "/", "Base path the mock server is mounted under")
	return cmd
}
