package judge

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// verdictWire decodes with pointers so a missing field is distinguishable
// from a legitimate zero value (confidence_score of 0.0 is valid JSON,
// an absent confidence_score is a schema violation).
type verdictWire struct {
	ShouldLink *bool    `json:"should_link"`
	Confidence *float64 `json:"confidence_score"`
	Rationale  string   `json:"rationale"`
}

// ParseVerdict parses and validates raw model output against the strict
// verdict schema. Every deviation returns a malformed *EvalError carrying
// the raw output for the logs.
func ParseVerdict(raw string) (*Verdict, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, malformedErr("empty response", raw, nil)
	}

	var wire verdictWire
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, malformedErr("response is not valid JSON", raw, err)
	}

	if wire.ShouldLink == nil {
		return nil, malformedErr("missing should_link field", raw, nil)
	}
	if wire.Confidence == nil {
		return nil, malformedErr("missing confidence_score field", raw, nil)
	}

	v := &Verdict{
		ShouldLink: *wire.ShouldLink,
		Confidence: *wire.Confidence,
		Rationale:  strings.TrimSpace(wire.Rationale),
	}

	if err := validate.Struct(v); err != nil {
		return nil, malformedErr("confidence_score outside [0,1]", raw, err)
	}
	if v.ShouldLink && v.Rationale == "" {
		return nil, malformedErr("positive verdict without rationale", raw, nil)
	}

	return v, nil
}

// stripFences tolerates models that wrap the JSON in markdown code fences
// despite instructions, and trims any stray prose around the object.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Reduce to the outermost JSON object if prose surrounds it
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
