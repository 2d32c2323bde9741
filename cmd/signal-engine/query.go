// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signal-engine/internal/retrieval"
	"github.com/pdiddy/signal-engine/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Query indexed items with hybrid semantic and graph retrieval",
	Long: `Query runs the semantic and graph branches concurrently and blends
similarity, relationship density, and recency into one ranking. If one branch
fails the answer is served degraded from the other; repeated queries within
the TTL window are answered from the cache.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSlice("tags", nil, "subject tags to filter by (comma separated)")
	queryCmd.Flags().Duration("since", 0, "restrict to items published within this window (e.g. 24h)")
	queryCmd.Flags().String("impact", "", "filter by market impact class: high, medium, low")
	queryCmd.Flags().Float64("min-sentiment", -1, "exclude items below this sentiment (-1 disables)")
	queryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	queryCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	tags, _ := cmd.Flags().GetStringSlice("tags")
	since, _ := cmd.Flags().GetDuration("since")
	impact, _ := cmd.Flags().GetString("impact")
	minSentiment, _ := cmd.Flags().GetFloat64("min-sentiment")
	limit, _ := cmd.Flags().GetInt("limit")

	q := retrieval.Query{
		Text:         strings.Join(args, " "),
		Tags:         tags,
		MarketImpact: impact,
		Limit:        limit,
	}
	if since > 0 {
		q.Since = time.Now().Add(-since)
	}
	if minSentiment > -1 {
		q.MinSentiment = &minSentiment
	}

	e, err := openEngines(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.retrieval.Retrieve(context.Background(), q, os.Stderr)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(out, jsonOutput)
}

func formatQueryOutput(out retrieval.Output, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Results)
	}

	if out.Degraded {
		fmt.Fprintln(os.Stderr, "warning: degraded answer, one retrieval branch failed")
	}
	if len(out.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-7s  %-50s  %-10s  %s\n",
		"Rank", "Score", "Title", "Category", "Published")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, r := range out.Results {
		title := "(missing)"
		category := types.TimeCategory("")
		published := ""
		if r.Item != nil {
			title = r.Item.Title
			published = r.Item.PublishedAt.Format("2006-01-02 15:04")
			if r.Item.Temporal != nil {
				category = r.Item.Temporal.TimeCategory
			}
		}
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-7.3f  %-50s  %-10s  %s\n",
			r.Rank, r.FinalScore, title, category, published)
	}

	suffix := ""
	if out.CacheHit {
		suffix = " (cached)"
	}
	fmt.Fprintf(os.Stdout, "\n%d results%s\n", len(out.Results), suffix)
	return nil
}
