package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ggoomipapa/fammoney-core/internal/cli"
	"github.com/ggoomipapa/fammoney-core/internal/dedup"
	"github.com/ggoomipapa/fammoney-core/internal/ingest"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest notification text into transactions",
		Long: `Classify one notification (or a file of them) against the enabled patterns
for its source app and record the resulting transactions, checking each new
transaction against the recent window for duplicates.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			scope, _ := cmd.Flags().GetString("scope")
			source, _ := cmd.Flags().GetString("source")
			text, _ := cmd.Flags().GetString("text")
			timeStr, _ := cmd.Flags().GetString("time")
			file, _ := cmd.Flags().GetString("file")

			observedAt := time.Now()
			if timeStr != "" {
				parsed, err := time.Parse(time.RFC3339, timeStr)
				if err != nil {
					return fmt.Errorf("invalid --time (want RFC3339): %w", err)
				}
				observedAt = parsed
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			pipeline, err := newPipeline(store)
			if err != nil {
				return err
			}

			if file != "" {
				return ingestFile(cmd, pipeline, scope, file)
			}

			if source == "" || text == "" {
				return fmt.Errorf("either --file or both --source and --text are required")
			}

			txn, outcome, err := pipeline.Ingest(ctx, scope, source, text, observedAt)
			if err != nil {
				if txn == nil {
					fmt.Println(cli.FormatError(err.Error()))
					return err
				}
				// Transaction landed, duplicate bookkeeping did not.
				fmt.Println(cli.FormatWarning(fmt.Sprintf("ingested %s but duplicate check failed: %v", txn.ID, err)))
				return nil
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("ingested %s: %s %d (%s)", txn.ID, txn.Type, txn.Amount, txn.BankName)))
			printOutcome(outcome)
			return nil
		},
	}

	cmd.Flags().String("scope", "default", "ledger scope the notification belongs to")
	cmd.Flags().String("source", "", "source app identifier (e.g. com.kbstar.kbbank)")
	cmd.Flags().String("text", "", "raw notification text")
	cmd.Flags().String("time", "", "notification time, RFC3339 (default: now)")
	cmd.Flags().String("file", "", "batch file of tab-separated 'source<TAB>text' lines")

	return cmd
}

// ingestFile processes a tab-separated batch file, one notification per line.
// Failed lines are reported and skipped; the batch keeps going.
func ingestFile(cmd *cobra.Command, pipeline *ingest.Pipeline, scope, path string) error {
	ctx := cmd.Context()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}

	bar := progressbar.NewOptions(len(lines),
		progressbar.OptionSetDescription("Ingesting notifications"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var ingested, failed, pendings, autos int
	for _, line := range lines {
		source, text, ok := strings.Cut(line, "\t")
		if !ok {
			failed++
			_ = bar.Add(1)
			continue
		}

		_, outcome, err := pipeline.Ingest(ctx, scope, source, text, time.Now())
		switch {
		case err != nil:
			failed++
		default:
			ingested++
			switch outcome.Kind {
			case dedup.PendingCreated:
				pendings++
			case dedup.AutoResolved:
				autos++
			}
		}
		_ = bar.Add(1)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"batch done: %d ingested, %d failed, %d pending duplicates, %d auto-resolved",
		ingested, failed, pendings, autos)))
	return nil
}

func printOutcome(outcome dedup.Outcome) {
	switch outcome.Kind {
	case dedup.PendingCreated:
		fmt.Println(cli.FormatWarning(fmt.Sprintf(
			"possible duplicate of %s, review with 'fammoney duplicates list'",
			outcome.Pending.Transaction1ID)))
	case dedup.AutoResolved:
		fmt.Println(cli.InfoStyle.Render(fmt.Sprintf(
			"duplicate auto-resolved by standing rule (%s)", outcome.Resolution)))
	case dedup.NoDuplicate:
		// Nothing to report.
	}
}
