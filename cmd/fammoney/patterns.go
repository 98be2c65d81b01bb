package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ggoomipapa/fammoney-core/internal/cli"
	"github.com/ggoomipapa/fammoney-core/internal/model"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "Manage notification matching rules",
		Long: `Manage the bank patterns that turn notification text into transactions.
Built-in patterns can only be enabled or disabled; custom patterns can be
created, edited and deleted freely.`,
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsShowCmd())
	cmd.AddCommand(patternsAddCmd())
	cmd.AddCommand(patternsEditCmd())
	cmd.AddCommand(patternsDeleteCmd())
	cmd.AddCommand(patternsEnableCmd(true))
	cmd.AddCommand(patternsEnableCmd(false))
	cmd.AddCommand(patternsTestCmd())
	cmd.AddCommand(patternsResetCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			patterns, err := newRegistry(store).List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			if len(patterns) == 0 {
				fmt.Println(cli.InfoStyle.Render("No patterns found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			_, _ = fmt.Fprintln(w, "ID\tNAME\tSOURCES\tENABLED\tCUSTOM")
			for _, p := range patterns {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\n",
					p.ID, p.DisplayName, strings.Join(p.SourceApps, ","), p.Enabled, p.Custom)
			}
			return nil
		},
	}
}

func patternsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one pattern in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := newRegistry(store).Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get pattern: %w", err)
			}

			fmt.Println(cli.TitleStyle.Render(p.DisplayName))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			_, _ = fmt.Fprintf(w, "ID\t%s\n", p.ID)
			_, _ = fmt.Fprintf(w, "Source apps\t%s\n", strings.Join(p.SourceApps, ", "))
			_, _ = fmt.Fprintf(w, "Amount pattern\t%s\n", p.AmountPattern)
			_, _ = fmt.Fprintf(w, "Income keywords\t%s\n", strings.Join(p.IncomeKeywords, ", "))
			_, _ = fmt.Fprintf(w, "Expense keywords\t%s\n", strings.Join(p.ExpenseKeywords, ", "))
			_, _ = fmt.Fprintf(w, "Merchant patterns\t%s\n", strings.Join(p.MerchantPatterns, ", "))
			_, _ = fmt.Fprintf(w, "Enabled\t%v\n", p.Enabled)
			_, _ = fmt.Fprintf(w, "Custom\t%v\n", p.Custom)
			return nil
		},
	}
}

func patternsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a custom pattern",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			pattern := patternFromFlags(cmd, &model.BankPattern{Enabled: true})
			if err := newRegistry(store).Save(ctx, pattern); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("created pattern %s", pattern.ID)))
			return nil
		},
	}

	addPatternFlags(cmd)
	return cmd
}

func patternsEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a custom pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			reg := newRegistry(store)
			existing, err := reg.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get pattern: %w", err)
			}

			pattern := patternFromFlags(cmd, existing)
			if err := reg.Save(ctx, pattern); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("updated pattern %s", pattern.ID)))
			return nil
		},
	}

	addPatternFlags(cmd)
	return cmd
}

func patternsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := newRegistry(store).Delete(ctx, args[0]); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("deleted pattern %s", args[0])))
			return nil
		},
	}
}

func patternsEnableCmd(enable bool) *cobra.Command {
	use, short := "enable <id>", "Enable a pattern"
	if !enable {
		use, short = "disable <id>", "Disable a pattern"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := newRegistry(store).SetEnabled(ctx, args[0], enable); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("pattern %s enabled=%v", args[0], enable)))
			return nil
		},
	}
}

func patternsTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <sample-text>",
		Short: "Dry-run a pattern against sample text",
		Long: `Run the classifier against sample text without touching the registry or
creating any transaction. Use --id to test a stored pattern, or the pattern
flags to test an unsaved one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			reg := newRegistry(store)

			var pattern *model.BankPattern
			if id, _ := cmd.Flags().GetString("id"); id != "" {
				pattern, err = reg.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to get pattern: %w", err)
				}
			} else {
				pattern = patternFromFlags(cmd, &model.BankPattern{Enabled: true})
			}

			outcome := reg.Test(pattern, args[0])
			if !outcome.Success {
				fmt.Println(cli.FormatError(fmt.Sprintf("%s: %s", outcome.ErrKind, outcome.ErrMessage)))
				return nil
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("amount=%d type=%s merchant=%q",
				outcome.Amount, outcome.Type, outcome.Merchant)))
			return nil
		},
	}

	cmd.Flags().String("id", "", "test a stored pattern by ID")
	addPatternFlags(cmd)
	return cmd
}

func patternsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete all custom patterns and re-enable every built-in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := newRegistry(store).ResetToDefaults(ctx); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("patterns reset to defaults"))
			return nil
		},
	}
}

func addPatternFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().StringSlice("apps", nil, "source app identifiers")
	cmd.Flags().String("amount-pattern", "", "regex with exactly one capture group for the amount")
	cmd.Flags().StringSlice("income", nil, "income keywords")
	cmd.Flags().StringSlice("expense", nil, "expense keywords")
	cmd.Flags().StringArray("merchant", nil, "merchant patterns, tried in order")
}

// patternFromFlags overlays any set pattern flags onto base.
func patternFromFlags(cmd *cobra.Command, base *model.BankPattern) *model.BankPattern {
	if cmd.Flags().Changed("name") {
		base.DisplayName, _ = cmd.Flags().GetString("name")
	}
	if cmd.Flags().Changed("apps") {
		base.SourceApps, _ = cmd.Flags().GetStringSlice("apps")
	}
	if cmd.Flags().Changed("amount-pattern") {
		base.AmountPattern, _ = cmd.Flags().GetString("amount-pattern")
	}
	if cmd.Flags().Changed("income") {
		base.IncomeKeywords, _ = cmd.Flags().GetStringSlice("income")
	}
	if cmd.Flags().Changed("expense") {
		base.ExpenseKeywords, _ = cmd.Flags().GetStringSlice("expense")
	}
	if cmd.Flags().Changed("merchant") {
		base.MerchantPatterns, _ = cmd.Flags().GetStringArray("merchant")
	}
	return base
}
