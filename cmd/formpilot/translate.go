package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/formpilot/internal/detect"
	"github.com/platinummonkey/formpilot/internal/translate"
)

// translateCmd represents the translate command
var translateCmd = &cobra.Command{
	Use:   "translate <name>...",
	Short: "Translate form field names into English labels",
	Long: `Translate German form field names into English labels.

Names are looked up in the label cache and the built-in dictionary first.
With --translate the remaining names go to the configured LLM provider.

Examples:
  formpilot translate Vorname_1 Geburtsdatum PLZ
  formpilot translate --translate --context Bürgerort`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().Bool("context", false, "show context hints for each name")
	translateCmd.Flags().Bool("analyze", false, "ask the LLM for a label, confidence and type")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	// OCR is not needed here
	cfg.OCR.Engine = "none"
	comps, err := buildComponents(cmd.Context(), cfg, log, false)
	if err != nil {
		return err
	}
	defer comps.Close()

	showHints, _ := cmd.Flags().GetBool("context")
	analyze, _ := cmd.Flags().GetBool("analyze")

	if analyze {
		for _, name := range args {
			hints := translate.ContextHints(name)
			a := comps.translator.Analyze(cmd.Context(), name, detect.TypeText, hints)
			fmt.Printf("%s: %s (%s, %d%%)\n", name, a.Label, a.TypeHint, a.Confidence)
			if showHints && len(hints) > 0 {
				fmt.Printf("  hints: %s\n", strings.Join(hints, ", "))
			}
		}
		return nil
	}

	labels := comps.translator.TranslateBatch(cmd.Context(), args)
	for i, name := range args {
		fmt.Printf("%s: %s\n", name, labels[i])
		if showHints {
			if hints := translate.ContextHints(name); len(hints) > 0 {
				fmt.Printf("  hints: %s\n", strings.Join(hints, ", "))
			}
		}
	}
	return nil
}
