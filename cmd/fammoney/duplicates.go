package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ggoomipapa/fammoney-core/internal/cli"
	"github.com/ggoomipapa/fammoney-core/internal/dedup"
	"github.com/ggoomipapa/fammoney-core/internal/model"
)

func duplicatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "duplicates",
		Aliases: []string{"dup", "dupes"},
		Short:   "Review and resolve pending duplicate transactions",
	}

	cmd.AddCommand(duplicatesListCmd())
	cmd.AddCommand(duplicatesResolveCmd())
	cmd.AddCommand(duplicatesRulesCmd())

	return cmd
}

func duplicatesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open pending duplicates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			scope, _ := cmd.Flags().GetString("scope")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			pendings, err := dedup.NewResolver(store).ListPending(ctx, scope)
			if err != nil {
				return fmt.Errorf("failed to list pending duplicates: %w", err)
			}

			if len(pendings) == 0 {
				fmt.Println(cli.InfoStyle.Render("No pending duplicates."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			_, _ = fmt.Fprintln(w, "ID\tSCOPE\tAMOUNT\tFIRST\tSECOND\tSOURCES\tDETECTED")
			for _, p := range pendings {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s/%s\t%s\n",
					p.ID, p.Scope, p.Amount, p.Transaction1ID, p.Transaction2ID,
					p.SourceApp1, p.SourceApp2, p.DetectedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().String("scope", "", "limit to one ledger scope (default: all)")
	return cmd
}

func duplicatesRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List standing resolution rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := dedup.NewResolver(store).ListRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if len(rules) == 0 {
				fmt.Println(cli.InfoStyle.Render("No standing rules."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			_, _ = fmt.Fprintln(w, "SOURCE PAIR\tRESOLUTION\tCREATED")
			for _, r := range rules {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
					r.PairKey, r.Resolution, r.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.AddCommand(duplicatesRulesDeleteCmd())
	return cmd
}

func duplicatesRulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <source-app-1> <source-app-2>",
		Short: "Delete the standing rule for a source app pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := dedup.NewResolver(store).DeleteRule(ctx, args[0], args[1]); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("deleted rule for %s/%s", args[0], args[1])))
			return nil
		},
	}
}

func duplicatesResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve a pending duplicate",
		Long: `Apply a decision to a pending duplicate: keep both transactions, keep only
the first-arriving one, or keep only the second. With --always the decision
becomes a standing rule for this pair of source apps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			keep, _ := cmd.Flags().GetString("keep")
			always, _ := cmd.Flags().GetBool("always")

			var resolution model.DuplicateResolution
			switch keep {
			case "both":
				resolution = model.KeepBoth
			case "first":
				resolution = model.KeepFirst
			case "second":
				resolution = model.KeepSecond
			default:
				return fmt.Errorf("--keep must be one of: both, first, second")
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := dedup.NewResolver(store).Resolve(ctx, args[0], resolution, always); err != nil {
				return err
			}

			msg := fmt.Sprintf("resolved %s with %s", args[0], resolution)
			if always {
				msg += " (standing rule saved)"
			}
			fmt.Println(cli.FormatSuccess(msg))
			return nil
		},
	}

	cmd.Flags().String("keep", "", "both | first | second")
	cmd.Flags().Bool("always", false, "apply this decision to future duplicates from the same source pair")
	_ = cmd.MarkFlagRequired("keep")

	return cmd
}
