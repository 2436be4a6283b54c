package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/formpilot/internal/profile"
)

// fillCmd represents the fill command
var fillCmd = &cobra.Command{
	Use:   "fill <pdf>",
	Short: "Fill a PDF form from a profile",
	Long: `Fill the AcroForm fields of a PDF from a family profile.

This command:
1. Extracts the page text and detects labeled fields
2. Matches every form field against the profile
3. Applies explicit overrides
4. Writes the matched values into a copy of the PDF

Fields below the confidence threshold are left empty.

Examples:
  # Fill a registration form
  formpilot fill anmeldung.pdf --profile family.json

  # Fix a value the matcher got wrong
  formpilot fill anmeldung.pdf --profile family.json --set Telefon_1="044 123 45 67"

  # Context-aware labels using the configured LLM
  formpilot fill anmeldung.pdf --profile family.json --translate --analyze`,
	Args: cobra.ExactArgs(1),
	RunE: runFill,
}

func init() {
	rootCmd.AddCommand(fillCmd)

	fillCmd.Flags().StringP("profile", "p", "", "profile JSON file (required)")
	fillCmd.Flags().StringP("output", "o", "", "output PDF (default is <input>-filled.pdf)")
	fillCmd.Flags().String("overrides", "", "JSON file mapping field names to values")
	fillCmd.Flags().StringToString("set", nil, "override a field value (name=value)")
	fillCmd.Flags().Bool("analyze", false, "ask the LLM for context-aware labels and types")
	fillCmd.Flags().Bool("json", false, "print the field descriptors as JSON")
	fillCmd.Flags().Duration("timeout", 5*time.Minute, "processing timeout")
	_ = fillCmd.MarkFlagRequired("profile")
}

func runFill(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	input := args[0]
	pdf, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}

	profilePath, _ := cmd.Flags().GetString("profile")
	p, err := profile.LoadFile(profilePath)
	if err != nil {
		return err
	}

	overrides, err := loadOverrides(cmd)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	contextAnalysis, _ := cmd.Flags().GetBool("analyze")
	comps, err := buildComponents(ctx, cfg, log, contextAnalysis)
	if err != nil {
		return err
	}
	defer comps.Close()

	result, err := comps.service.Fill(ctx, pdf, p, overrides)
	if err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = filledName(input)
	}
	if err := os.WriteFile(output, result.PDF, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	log.WithFields("output", output, "written", result.Report.Written).Info("Saved filled form")

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(result.Descriptors)
	}

	printDescriptors(result.Descriptors)
	fmt.Println()
	fmt.Print(result.Report.Summary())
	fmt.Printf("\nOutput: %s\n", output)
	return nil
}

// loadOverrides merges the --overrides file with --set values. --set wins.
func loadOverrides(cmd *cobra.Command) (map[string]string, error) {
	overrides := make(map[string]string)

	if path, _ := cmd.Flags().GetString("overrides"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read overrides: %w", err)
		}
		if err := json.Unmarshal(data, &overrides); err != nil {
			return nil, fmt.Errorf("failed to parse overrides: %w", err)
		}
	}

	set, _ := cmd.Flags().GetStringToString("set")
	for name, value := range set {
		overrides[name] = value
	}
	return overrides, nil
}

func filledName(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "-filled" + ext
}
