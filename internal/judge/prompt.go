package judge

import (
	"fmt"
	"strings"
)

// systemPrompt frames the task and pins the output contract
const systemPrompt = `You are an analyst for a government promise tracker. You decide whether a single piece of evidence (a legislative event, regulation, or news release) substantiates a single tracked promise. Substantiation means the evidence documents concrete action toward fulfilling the promise, not merely shared topic area. You always answer with strict JSON and nothing else.`

// BuildPrompt renders the user prompt for one (evidence, promise) pair.
// The instructions bind exactly one verdict to exactly one pair.
func BuildPrompt(req EvaluateRequest) string {
	var b strings.Builder

	b.WriteString("EVIDENCE:\n")
	writeField(&b, "Title", req.Evidence.Title)
	writeField(&b, "Description", req.Evidence.Description)
	writeField(&b, "Source type", string(req.Evidence.SourceType))
	if !req.Evidence.PublishedAt.IsZero() {
		writeField(&b, "Date", req.Evidence.PublishedAt.Format("2006-01-02"))
	}
	writeField(&b, "Source reference", req.Evidence.SourceRef)
	writeField(&b, "Departments", strings.Join(req.Evidence.Departments, "; "))

	b.WriteString("\nPROMISE:\n")
	writeField(&b, "Statement", req.Promise.Text)
	writeField(&b, "Description", req.Promise.Description)
	writeField(&b, "Party", req.Promise.Party)
	writeField(&b, "Lead department", req.Promise.LeadDepartment)
	writeField(&b, "Keywords", strings.Join(req.Promise.Keywords, ", "))

	b.WriteString(`
Does this evidence substantiate this promise?

Respond with ONLY a JSON object in exactly this shape:
{"should_link": true or false, "confidence_score": number between 0.0 and 1.0, "rationale": "one or two sentences explaining the judgement"}

Rules:
- should_link is true only if the evidence documents concrete progress on, delivery of, or direct legislative/regulatory action toward this specific promise.
- confidence_score reflects how certain you are of the should_link decision.
- rationale must always be filled in.
- Output no markdown, no code fences, no text outside the JSON object.`)

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
