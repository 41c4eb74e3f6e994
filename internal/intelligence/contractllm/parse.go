package contractllm

import (
	"encoding/json"
	"strings"

	"github.com/efilo-ai/compliance-engine/pkg/errors"
)

// RawClause is one clause object as emitted by the extraction model, before
// domain validation.
type RawClause struct {
	Kind               string  `json:"kind"`
	Title              string  `json:"title"`
	Content            string  `json:"content"`
	SectionRef         *string `json:"sectionRef"`
	DeadlineDays       *int    `json:"deadlineDays"`
	DeadlineType       *string `json:"deadlineType"`
	NoticeMethod       *string `json:"noticeMethod"`
	Trigger            *string `json:"trigger"`
	CurePeriodDays     *int    `json:"curePeriodDays"`
	CurePeriodType     *string `json:"curePeriodType"`
	FlowDownProvisions *string `json:"flowDownProvisions"`
	ParentClauseRef    *string `json:"parentClauseRef"`
	RequiresReview     bool    `json:"requiresReview"`
	ReviewReason       *string `json:"reviewReason"`
}

// ParseClauses decodes model output into raw clause objects.  The model is
// asked for a bare JSON array but in practice wraps it in markdown fences or
// an envelope object, so parsing is deliberately tolerant:
//
//  1. markdown code fences are stripped,
//  2. a top-level array or a {"clauses": [...]} envelope both work,
//  3. as a last resort the outermost [...] span is decoded.
//
// Output that cannot be coerced into an array yields
// ErrCodeAIResponseUnparseable.
func ParseClauses(content string) ([]RawClause, error) {
	text := stripCodeFences(strings.TrimSpace(content))

	if clauses, ok := decodeClauseJSON(text); ok {
		return clauses, nil
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start != -1 && end > start {
		var clauses []RawClause
		if err := json.Unmarshal([]byte(text[start:end+1]), &clauses); err == nil {
			return clauses, nil
		}
	}

	return nil, errors.New(errors.ErrCodeAIResponseUnparseable,
		"extraction response is not a JSON clause array")
}

func decodeClauseJSON(text string) ([]RawClause, bool) {
	var clauses []RawClause
	if err := json.Unmarshal([]byte(text), &clauses); err == nil {
		return clauses, true
	}

	var envelope struct {
		Clauses []RawClause `json:"clauses"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err == nil && envelope.Clauses != nil {
		return envelope.Clauses, true
	}
	return nil, false
}

func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
