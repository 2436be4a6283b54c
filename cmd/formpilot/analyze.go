package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/formpilot/internal/formfill"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <pdf>",
	Short: "List the fields of a PDF form",
	Long: `Read a PDF form and list its fields with English labels, groups and
detected types.

AcroForm fields are listed when the PDF has them. Otherwise the fields are
detected from the page text.

Examples:
  # Show the fields as a table
  formpilot analyze anmeldung.pdf

  # Emit JSON for another tool
  formpilot analyze anmeldung.pdf --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Bool("json", false, "print the field descriptors as JSON")
	analyzeCmd.Flags().Duration("timeout", 5*time.Minute, "processing timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	pdf, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	comps, err := buildComponents(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer comps.Close()

	analysis, err := comps.service.Analyze(ctx, pdf)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(analysis.Descriptors)
	}

	printDescriptors(analysis.Descriptors)
	fmt.Println()
	fmt.Print(analysis.Report.Summary())
	return nil
}

// printDescriptors writes the descriptors as an aligned table
func printDescriptors(descriptors []formfill.FieldDescriptor) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tLABEL\tTYPE\tGROUP\tVALUE")
	for _, d := range descriptors {
		label := d.Label
		if d.IsRequired {
			label += " *"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", d.Key, label, d.Type, d.Group, d.Value)
	}
	_ = tw.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
