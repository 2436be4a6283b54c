package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/formpilot/internal/inbox"
	"github.com/platinummonkey/formpilot/internal/profile"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Fill every PDF dropped into a directory",
	Long: `Fill the PDFs in an inbox directory from a profile.

Filled copies are written as <name>-filled.pdf. A ledger next to the output
remembers which documents were filled, so unchanged files are skipped and
failing files are retried a limited number of times.

Examples:
  # Fill whatever is in the inbox once and exit
  formpilot watch ~/Forms/inbox --profile family.json --once

  # Keep watching, scan every minute, expose /status on :8089
  formpilot watch ~/Forms/inbox --profile family.json --interval 1m --status-addr :8089`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("profile", "p", "", "profile JSON file (required)")
	watchCmd.Flags().StringP("output", "o", "", "directory for filled copies (default is the inbox)")
	watchCmd.Flags().String("ledger", "", "ledger file (default is <output>/.formpilot-inbox.json)")
	watchCmd.Flags().Duration("interval", 5*time.Minute, "time between scans")
	watchCmd.Flags().Int("max-retries", 3, "attempts on a document that keeps failing")
	watchCmd.Flags().String("status-addr", "", "serve /health, /status and /trigger on this address")
	watchCmd.Flags().Bool("once", false, "scan once and exit")
	_ = watchCmd.MarkFlagRequired("profile")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	profilePath, _ := cmd.Flags().GetString("profile")
	p, err := profile.LoadFile(profilePath)
	if err != nil {
		return err
	}

	comps, err := buildComponents(cmd.Context(), cfg, log, false)
	if err != nil {
		return err
	}
	defer comps.Close()

	output, _ := cmd.Flags().GetString("output")
	ledger, _ := cmd.Flags().GetString("ledger")
	interval, _ := cmd.Flags().GetDuration("interval")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	statusAddr, _ := cmd.Flags().GetString("status-addr")

	watcher, err := inbox.New(&inbox.Config{
		Filler:     comps.service,
		Profile:    p,
		Logger:     log,
		InputDir:   args[0],
		OutputDir:  output,
		LedgerFile: ledger,
		Interval:   interval,
		MaxRetries: maxRetries,
		StatusAddr: statusAddr,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if once, _ := cmd.Flags().GetBool("once"); once {
		result, err := watcher.Scan(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(result.Summary())
		if result.HasFailures() {
			return fmt.Errorf("inbox scan completed with %d failures", result.FailureCount)
		}
		return nil
	}

	return watcher.Run(cmd.Context())
}
