// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a batch of raw items from a source feed",
	Long: `Ingest reads a JSON array of raw provider payloads, normalizes each item
with the adapter for --source, and runs the full pipeline: dedup, quality
gate, temporal scoring, enrichment, and the dual-store write.

Rejected items never abort the batch; every outcome is recorded in the batch
report, optionally exported as YAML with --report.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("source", "", "source id selecting the input adapter (newsapi, searchfeed, marketsnap, ...)")
	ingestCmd.Flags().String("input", "", "path to a JSON array of raw items (- for stdin)")
	ingestCmd.Flags().String("report", "", "write the batch report as YAML to this path")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	sourceID, _ := cmd.Flags().GetString("source")
	if sourceID == "" {
		return fmt.Errorf("--source is required")
	}
	inputPath, _ := cmd.Flags().GetString("input")
	if inputPath == "" {
		return fmt.Errorf("--input is required")
	}

	var data []byte
	var err error
	if inputPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(inputPath)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(data, &rawItems); err != nil {
		return fmt.Errorf("parsing input: expected a JSON array of items: %w", err)
	}

	e, err := openEngines(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	report, err := e.pipeline.IngestBatch(context.Background(), sourceID, rawItems, os.Stdout)
	if err != nil {
		return err
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := report.WriteYAML(reportPath); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", reportPath)
	}
	return nil
}
