// Package cli provides CLI utilities for fundermatch.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/openfunders/fundermatch/internal/engine"
	"github.com/openfunders/fundermatch/internal/matching"
)

// OutputFormat is the format for match result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact is one result per line.
	OutputCompact OutputFormat = "compact"
)

// WriteMatchResults writes ranked match results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteMatchResults(w io.Writer, response *engine.MatchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		writeMatchResultsCompact(w, response)
		return nil
	default:
		writeMatchResultsText(w, response)
		return nil
	}
}

func writeMatchResultsCompact(w io.Writer, response *engine.MatchResponse) {
	for i, result := range response.Results {
		name := result.FunderName
		if name == "" {
			name = result.FunderNum
		}
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", i+1, result.FinalScore, result.FunderNum, name)
	}
}

func writeMatchResultsText(w io.Writer, response *engine.MatchResponse) {
	fmt.Fprintf(w, "\nScored %d funders in %dms (%d skipped), %d above threshold\n\n",
		response.Scored, response.QueryTime, response.Skipped, response.Total)
	for i, result := range response.Results {
		writeOneResult(w, i+1, result)
	}
}

func writeOneResult(w io.Writer, rank int, result *matching.Result) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Final: %.4f (Base: %.4f)\n", rank, result.FinalScore, result.BaseScore)
	fmt.Fprintf(w, "Funder: %s", result.FunderNum)
	if result.FunderName != "" {
		fmt.Fprintf(w, " (%s)", result.FunderName)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  areas: %.3f  beneficiaries: %.3f  causes: %.3f  keywords: %.3f\n",
		result.Areas.Score, result.Beneficiaries.Score, result.Causes.Score, result.Keywords.Score)
	fmt.Fprintf(w, "  name RP: %.3f  grants RP: %.3f  recipients RP: %.3f\n",
		result.NameRP.Score, result.GrantsRP.Score, result.RecipientsRP.Score)
	if result.Relationship.Exists {
		fmt.Fprintf(w, "  prior grants: %d (last %d, bonus ×%.2f)\n",
			result.Relationship.Count, result.RelationshipBonus.LastGrantYear,
			result.RelationshipBonus.Value)
	}
	for _, line := range reasoningLines(result) {
		fmt.Fprintf(w, "  - %s\n", line)
	}
	fmt.Fprintln(w)
}

// reasoningLines collects the per-category reasoning in presentation order.
func reasoningLines(result *matching.Result) []string {
	var lines []string
	lines = append(lines, result.Areas.Reasoning...)
	lines = append(lines, result.Beneficiaries.Reasoning...)
	lines = append(lines, result.Causes.Reasoning...)
	lines = append(lines, result.Keywords.Reasoning...)
	lines = append(lines, result.KeywordsBonus.Reasoning...)
	lines = append(lines, result.RelationshipBonus.Reasoning...)
	lines = append(lines, result.AreasBonusRP.Reasoning...)
	lines = append(lines, result.KeywordsBonusRP.Reasoning...)
	return lines
}
