package contractllm

import (
	"fmt"
	"strings"
)

// truncationMarker is appended when document text exceeds the configured cap.
const truncationMarker = "\n\n[... truncated ...]"

// ---------------------------------------------------------------------------
// Contract clause extraction
// ---------------------------------------------------------------------------

const extractionSystemPrompt = `You are an expert construction contract analyst specializing in MEP (Mechanical, Electrical, Plumbing) subcontracts. Your task is to extract compliance-critical clauses from contract documents.

For each clause found, extract:
1. **kind** — One of: PAYMENT_TERMS, CHANGE_ORDER_PROCESS, CLAIMS_PROCEDURE, DISPUTE_RESOLUTION, NOTICE_REQUIREMENTS, RETENTION, WARRANTY, INSURANCE, INDEMNIFICATION, TERMINATION, FORCE_MAJEURE, LIQUIDATED_DAMAGES, SCHEDULE, SAFETY, GENERAL_CONDITIONS, SUPPLEMENTARY_CONDITIONS
2. **title** — A short descriptive title for the clause
3. **content** — The full verbatim text of the clause (preserve exact language)
4. **sectionRef** — The section/article reference (e.g., "Article 14.2", "Section 8.3.1")
5. **deadlineDays** — Number of days/hours for any deadline mentioned (integer or null)
6. **deadlineType** — One of: CALENDAR_DAYS, BUSINESS_DAYS, HOURS (or null if no deadline)
7. **noticeMethod** — One of: WRITTEN_NOTICE, CERTIFIED_MAIL, EMAIL, HAND_DELIVERY, REGISTERED_MAIL (or null)
8. **trigger** — What event triggers this obligation (e.g., "receipt of change directive", "discovery of differing site condition")
9. **curePeriodDays** — Cure/remedy period in days if mentioned (integer or null)
10. **curePeriodType** — One of: CALENDAR_DAYS, BUSINESS_DAYS, HOURS (or null)
11. **flowDownProvisions** — Any flow-down language referencing prime contract obligations
12. **parentClauseRef** — Reference to parent/prime contract clause if mentioned
13. **requiresReview** — Boolean: true if the clause is ambiguous, unusual, or potentially problematic
14. **reviewReason** — Explanation of why review is needed (or null)

Focus especially on:
- Notice deadlines (these protect claims rights — missing them = forfeited claims)
- Change order procedures and timelines
- Claims submission requirements
- Dispute resolution steps and deadlines
- Retention release conditions
- Warranty obligations and timelines
- Liquidated damages provisions
- Termination notice requirements

Return a JSON array of extracted clauses. If a section contains multiple distinct obligations, extract each separately.`

const extractionUserTemplate = `Analyze this contract document and extract all compliance-critical clauses.

Document: %s
Document Type: %s

--- DOCUMENT TEXT ---
%s
--- END DOCUMENT TEXT ---

Return a JSON array of clause objects. Each object must have these fields:
{"kind": "...", "title": "...", "content": "...", "sectionRef": "...", "deadlineDays": ..., "deadlineType": "...", "noticeMethod": "...", "trigger": "...", "curePeriodDays": ..., "curePeriodType": "...", "flowDownProvisions": "...", "parentClauseRef": "...", "requiresReview": ..., "reviewReason": "..."}

Return ONLY the JSON array, no other text.`

// ExtractionSystemPrompt returns the system instructions for clause extraction.
func ExtractionSystemPrompt() string { return extractionSystemPrompt }

// BuildExtractionPrompt assembles the extraction user message, truncating the
// document text at maxChars.
func BuildExtractionPrompt(documentName, documentType, documentText string, maxChars int) string {
	if documentType == "" {
		documentType = "CONTRACT"
	}
	return fmt.Sprintf(extractionUserTemplate, documentName, documentType,
		TruncateDocument(documentText, maxChars))
}

// TruncateDocument caps text at maxChars, appending a visible marker when the
// tail was cut.  maxChars <= 0 disables truncation.
func TruncateDocument(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + truncationMarker
}

// ---------------------------------------------------------------------------
// Notice letter generation
// ---------------------------------------------------------------------------

const noticeSystemPrompt = `You are a construction contract compliance specialist drafting formal contractual notices for MEP subcontractors. Your notices must be:

1. **Legally precise** — Reference exact contract sections, dates, and amounts
2. **Professionally formatted** — Proper business letter format with all required elements
3. **Protective of rights** — Explicitly preserve all rights, remedies, and entitlements
4. **Complete** — Include all elements required by the contract's notice provisions

Notice format must include:
- Date
- Proper addressee (with title and company)
- RE: line with project name and contract reference
- Clear statement of the notice type and triggering event
- Reference to specific contract clause requiring the notice
- Factual description of the circumstance
- Statement of impact (schedule, cost, or both)
- Reservation of rights language
- Request for response/action with timeline
- Signature block

CRITICAL: The notice must reference the specific contract clause that requires it, including section number and deadline requirements.`

// NoticePromptParams carries everything the drafting prompt references.
type NoticePromptParams struct {
	NoticeType         string
	ProjectName        string
	ClauseTitle        string
	ClauseSectionRef   string
	ClauseContent      string
	TriggerDescription string
	TriggerDate        string
	DeadlineDate       string
	NoticeMethod       string
	FromName           string
	FromCompany        string
	ToName             string
	ToCompany          string
	ToEmail            string
	AdditionalContext  string
}

// NoticeSystemPrompt returns the system instructions for notice drafting.
func NoticeSystemPrompt() string { return noticeSystemPrompt }

// BuildNoticePrompt assembles the drafting user message.
func BuildNoticePrompt(p NoticePromptParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a formal %s notice letter.\n\n", orDefault(p.NoticeType, "WRITTEN_NOTICE"))
	fmt.Fprintf(&b, "**Project:** %s\n", p.ProjectName)
	fmt.Fprintf(&b, "**Contract Clause:** %s (%s)\n", p.ClauseTitle, orDefault(p.ClauseSectionRef, "unspecified section"))
	fmt.Fprintf(&b, "**Clause Requirements:**\n%s\n\n", p.ClauseContent)
	fmt.Fprintf(&b, "**Trigger Event:** %s\n", p.TriggerDescription)
	fmt.Fprintf(&b, "**Trigger Date:** %s\n", p.TriggerDate)
	fmt.Fprintf(&b, "**Deadline:** %s\n", p.DeadlineDate)
	fmt.Fprintf(&b, "**Notice Method Required:** %s\n\n", orDefault(p.NoticeMethod, "WRITTEN_NOTICE"))
	fmt.Fprintf(&b, "**From (Subcontractor):**\n%s\n%s\n\n", p.FromName, p.FromCompany)
	fmt.Fprintf(&b, "**To (General Contractor):**\n%s\n%s\n%s\n\n", p.ToName, p.ToCompany, p.ToEmail)
	fmt.Fprintf(&b, "Additional context:\n%s\n\n", orDefault(p.AdditionalContext, "none"))
	fmt.Fprintf(&b, "Draft the complete notice letter. Use proper formatting with line breaks. The letter must:\n")
	fmt.Fprintf(&b, "1. Reference the specific contract clause (%s)\n", orDefault(p.ClauseSectionRef, "unspecified section"))
	b.WriteString("2. Describe the triggering event\n")
	b.WriteString("3. State the required notice deadline\n")
	b.WriteString("4. Preserve all rights and remedies\n")
	b.WriteString("5. Request acknowledgment of receipt")
	return b.String()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
