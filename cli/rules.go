package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"practicelab/client"
	"practicelab/state"
)

func rulesCommand(opts *Options) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage fault injection rules",
		Long: headerColor.Sprint(`
╔══════════════════════════════════════════════════════════════╗
║                  🚨 practicelab Rules Manager                ║
║                                                              ║
║  Inject latency and errors in front of the mock endpoints    ║
║  to practice waits and error handling.                       ║
╚══════════════════════════════════════════════════════════════╝
`),
	}

	var rule state.Rule
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new fault injection rule",
		Long:  "Add a new fault injection rule with interactive prompts or flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rule.Target == "" {
				if err := promptRule(&rule); err != nil {
					return err
				}
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			added, err := opts.client().AddRule(ctx, rule)
			if err != nil {
				return fmt.Errorf("add rule: %w", err)
			}
			printRuleCreated(cmd.OutOrStdout(), added)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&rule.Target, "target", "t", "", "Path prefix relative to the base path, e.g. /books")
	addCmd.Flags().StringVar(&rule.Failure.Type, "type", state.FailureLatency, "latency, error or flaky")
	addCmd.Flags().IntVar(&rule.Failure.LatencyMs, "latency-ms", 0, "Extra delay for latency rules")
	addCmd.Flags().IntVar(&rule.Failure.ErrorCode, "error-code", 0, "HTTP status for error rules")
	addCmd.Flags().Float64Var(&rule.Failure.Probability, "probability", 0, "Failure probability for flaky rules")

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List all fault injection rules",
		Aliases: []string{"ls", "show"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			rules, err := opts.client().Rules(ctx)
			if err != nil {
				return fmt.Errorf("list rules: %w", err)
			}
			listRules(cmd.OutOrStdout(), rules)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:     "delete [rule-number|rule-id]",
		Short:   "Delete a fault injection rule",
		Aliases: []string{"del", "rm", "remove"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			c := opts.client()

			var target state.Rule
			var err error
			if len(args) == 0 {
				target, err = selectRule(ctx, c, "Select rule to delete:", func(state.Rule) bool { return true })
			} else {
				target, err = resolveRule(ctx, c, args[0])
			}
			if err != nil {
				return err
			}
			if err := c.DeleteRule(ctx, target.ID); err != nil {
				return fmt.Errorf("delete rule: %w", err)
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✅ Rule '%s' deleted successfully\n", target.Target)
			return nil
		},
	}

	rulesCmd.AddCommand(addCmd, listCmd, deleteCmd, toggleCommand(opts, true), toggleCommand(opts, false))
	return rulesCmd
}

func toggleCommand(opts *Options, enable bool) *cobra.Command {
	action := "disable"
	if enable {
		action = "enable"
	}
	return &cobra.Command{
		Use:   action + " [rule-number]",
		Short: fmt.Sprintf("%s a fault injection rule by number", capitalize(action)),
		Long:  fmt.Sprintf("%s a fault injection rule using its number from the list (e.g., 'practicelab rules %s 1')", capitalize(action), action),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			c := opts.client()

			var target state.Rule
			var err error
			if len(args) == 0 {
				target, err = selectRule(ctx, c, fmt.Sprintf("Select rule to %s:", action), func(r state.Rule) bool { return r.Enabled != enable })
			} else {
				target, err = resolveRule(ctx, c, args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if target.Enabled == enable {
				warningColor.Fprintf(out, "⚠️  Rule '%s' is already %sd\n", target.Target, action)
				return nil
			}
			updated, err := c.SetRuleEnabled(ctx, target.ID, enable)
			if err != nil {
				return fmt.Errorf("%s rule: %w", action, err)
			}
			emoji := "🔴"
			if updated.Enabled {
				emoji = "🟢"
			}
			successColor.Fprintf(out, "✅ Rule %sd successfully!\n", action)
			infoColor.Fprintf(out, "   %s %s (%s)\n", emoji, updated.Target, updated.Failure.Type)
			return nil
		},
	}
}

// promptRule asks for a rule interactively.
func promptRule(rule *state.Rule) error {
	if err := survey.AskOne(&survey.Input{
		Message: "Target path prefix:",
		Help:    "Matched against the request path after the base path (e.g., /books)",
	}, &rule.Target, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	if err := survey.AskOne(&survey.Select{
		Message: "Choose failure type:",
		Options: []string{state.FailureLatency, state.FailureError, state.FailureFlaky},
		Help:    "latency: add delay, error: return an HTTP error, flaky: fail with 503 some of the time",
	}, &rule.Failure.Type); err != nil {
		return err
	}

	var s string
	switch rule.Failure.Type {
	case state.FailureLatency:
		if err := survey.AskOne(&survey.Input{Message: "Latency in milliseconds:", Default: "2000"}, &s); err != nil {
			return err
		}
		rule.Failure.LatencyMs, _ = strconv.Atoi(s)
	case state.FailureError:
		if err := survey.AskOne(&survey.Input{Message: "HTTP error code:", Default: "500"}, &s); err != nil {
			return err
		}
		rule.Failure.ErrorCode, _ = strconv.Atoi(s)
	case state.FailureFlaky:
		if err := survey.AskOne(&survey.Input{Message: "Failure probability (0-1):", Default: "0.5"}, &s); err != nil {
			return err
		}
		rule.Failure.Probability, _ = strconv.ParseFloat(s, 64)
	}
	return nil
}

// resolveRule accepts a 1-based list number or a rule id.
func resolveRule(ctx context.Context, c *client.Client, arg string) (state.Rule, error) {
	rules, err := c.Rules(ctx)
	if err != nil {
		return state.Rule{}, fmt.Errorf("list rules: %w", err)
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(rules) {
			return state.Rule{}, fmt.Errorf("rule number %d not found, use 'practicelab rules list' to see available rules", n)
		}
		return rules[n-1], nil
	}
	for _, r := range rules {
		if r.ID == arg {
			return r, nil
		}
	}
	return state.Rule{}, fmt.Errorf("rule %q not found", arg)
}

func selectRule(ctx context.Context, c *client.Client, message string, keep func(state.Rule) bool) (state.Rule, error) {
	rules, err := c.Rules(ctx)
	if err != nil {
		return state.Rule{}, fmt.Errorf("list rules: %w", err)
	}
	var options []string
	var candidates []state.Rule
	for i, r := range rules {
		if !keep(r) {
			continue
		}
		options = append(options, fmt.Sprintf("%d - %s (%s)", i+1, r.Target, r.Failure.Type))
		candidates = append(candidates, r)
	}
	if len(options) == 0 {
		return state.Rule{}, fmt.Errorf("no matching rules")
	}
	var idx int
	if err := survey.AskOne(&survey.Select{Message: message, Options: options}, &idx); err != nil {
		return state.Rule{}, err
	}
	return candidates[idx], nil
}

// listRules displays all rules in a table.
func listRules(out io.Writer, rules []state.Rule) {
	if len(rules) == 0 {
		infoColor.Fprintln(out, "📝 No rules configured yet. Use 'practicelab rules add' to create one!")
		return
	}

	headerColor.Fprintf(out, "\n🔍 Found %d rule(s):\n\n", len(rules))
	t := newTable(out, "#", "Target", "Type", "Details", "Status")
	for i, rule := range rules {
		status := "🔴 DISABLED"
		if rule.Enabled {
			status = "🟢 ENABLED"
		}
		t.Append(strconv.Itoa(i+1), truncate(rule.Target, 40), rule.Failure.Type, failureDetails(rule.Failure), status)
	}
	t.Render()

	fmt.Fprintln(out)
	subtleColor.Fprintln(out, "💡 Tip: Use 'practicelab rules enable <number>' or 'practicelab rules disable <number>'")
}

func failureDetails(f state.Failure) string {
	switch f.Type {
	case state.FailureLatency:
		return fmt.Sprintf("%dms delay", f.LatencyMs)
	case state.FailureError:
		return fmt.Sprintf("HTTP %d", f.ErrorCode)
	case state.FailureFlaky:
		return fmt.Sprintf("%.0f%% fail", f.Probability*100)
	}
	return ""
}

func printRuleCreated(out io.Writer, rule state.Rule) {
	successColor.Fprintln(out, "\n✅ Rule created successfully!")
	infoColor.Fprintf(out, "   ID: %s\n", rule.ID)
	infoColor.Fprintf(out, "   Target: %s\n", rule.Target)
	infoColor.Fprintf(out, "   Type: %s\n", rule.Failure.Type)
	if d := failureDetails(rule.Failure); d != "" {
		infoColor.Fprintf(out, "   Details: %s\n", d)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
