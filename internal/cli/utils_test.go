package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/openfunders/fundermatch/internal/engine"
	"github.com/openfunders/fundermatch/internal/matching"
)

func sampleResponse() *engine.MatchResponse {
	return &engine.MatchResponse{
		Results: []*matching.Result{
			{
				FunderNum:  "1122334",
				FunderName: "The Learning Trust",
				Areas:      matching.CategoryResult{Score: 1.0, Reasoning: []string{"Manchester & Manchester: 1.000"}},
				Keywords:   matching.KeywordResult{Score: 0.8},
				Relationship: matching.Relationship{
					Exists: true,
					Count:  2,
				},
				RelationshipBonus: matching.RelationshipBonus{
					Bonus:         matching.Bonus{Value: 1.4, Reasoning: []string{"2 previous grants, last in 2021"}},
					LastGrantYear: 2021,
					TimeLapsed:    3,
				},
				BaseScore:  0.62,
				FinalScore: 0.868,
			},
		},
		Total:     1,
		Scored:    3,
		Skipped:   0,
		QueryTime: 42,
	}
}

func TestWriteMatchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteMatchResults(json): %v", err)
	}
	var decoded engine.MatchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Total != 1 || decoded.QueryTime != 42 {
		t.Errorf("decoded total=%d query_time=%d", decoded.Total, decoded.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].FunderNum != "1122334" {
		t.Errorf("decoded results: %+v", decoded.Results)
	}
}

func TestWriteMatchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteMatchResults(text): %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Scored 3 funders in 42ms",
		"Rank: 1 | Final: 0.8680 (Base: 0.6200)",
		"The Learning Trust",
		"prior grants: 2 (last 2021, bonus ×1.40)",
		"Manchester & Manchester: 1.000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteMatchResults_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatalf("WriteMatchResults(compact): %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "1\t0.8680\t1122334\t") {
		t.Errorf("compact line = %q", lines[0])
	}
}
