package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/kiroku/internal/exchange"
	syncsvc "github.com/ashita-ai/kiroku/internal/sync"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all decisions as versioned JSON",
	Long:  "Writes the full collection as a versioned export envelope. With no file argument the JSON goes to stdout.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	decisions, err := a.Journal().ListAll(cmd.Context())
	if err != nil {
		return err
	}
	data := exchange.NewExportData(decisions)
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	if len(args) == 0 {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(args[0], out, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("Exported %d decisions to %s\n", len(decisions), args[0])
	return nil
}

var importFlags struct {
	mode string
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import decisions from a JSON export",
	Long: "Reads a versioned export envelope or a legacy bare array. Records that fail " +
		"validation are skipped and reported; the rest are applied in the chosen mode.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFlags.mode, "mode", string(syncsvc.ModeMerge),
		"merge keeps existing decisions, replace discards them")
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	data, err := exchange.ParseImportData(raw)
	if err != nil {
		return err
	}
	result := exchange.ValidateDecisions(data.Decisions)
	for _, diag := range result.Errors {
		fmt.Fprintln(os.Stderr, "skipped:", diag)
	}
	if len(result.Accepted) == 0 {
		return fmt.Errorf("no valid decisions in %s", args[0])
	}

	applied, err := a.Sync().ImportWithMode(cmd.Context(), result.Accepted, syncsvc.ImportMode(importFlags.mode))
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d decisions (%d already present)\n", applied.Imported, applied.Skipped)
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
