package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict_Valid(t *testing.T) {
	raw := `{"should_link": true, "confidence_score": 0.82, "rationale": "The order directly funds the promised program."}`

	v, err := ParseVerdict(raw)
	require.NoError(t, err)

	assert.True(t, v.ShouldLink)
	assert.Equal(t, 0.82, v.Confidence)
	assert.NotEmpty(t, v.Rationale)
}

func TestParseVerdict_NegativeWithZeroConfidence(t *testing.T) {
	// confidence_score of 0.0 is a legitimate value, not a missing field
	raw := `{"should_link": false, "confidence_score": 0.0, "rationale": "Unrelated topic."}`

	v, err := ParseVerdict(raw)
	require.NoError(t, err)

	assert.False(t, v.ShouldLink)
	assert.Zero(t, v.Confidence)
}

func TestParseVerdict_CodeFencedJSON(t *testing.T) {
	raw := "```json\n{\"should_link\": true, \"confidence_score\": 0.9, \"rationale\": \"Direct match.\"}\n```"

	v, err := ParseVerdict(raw)
	require.NoError(t, err)
	assert.True(t, v.ShouldLink)
}

func TestParseVerdict_ProseAroundJSON(t *testing.T) {
	raw := `Here is my assessment: {"should_link": false, "confidence_score": 0.3, "rationale": "Tangential."} Hope that helps!`

	v, err := ParseVerdict(raw)
	require.NoError(t, err)
	assert.False(t, v.ShouldLink)
}

func TestParseVerdict_MissingConfidenceIsEvalError(t *testing.T) {
	raw := `{"should_link": true, "rationale": "Looks related."}`

	_, err := ParseVerdict(raw)
	require.Error(t, err)

	ee, ok := AsEvalError(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformed, ee.Kind)
	assert.Equal(t, raw, ee.Raw)
	assert.False(t, ee.Retryable())
}

func TestParseVerdict_MissingShouldLinkIsEvalError(t *testing.T) {
	_, err := ParseVerdict(`{"confidence_score": 0.8, "rationale": "x"}`)

	ee, ok := AsEvalError(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformed, ee.Kind)
}

func TestParseVerdict_NotJSON(t *testing.T) {
	_, err := ParseVerdict("I think these are related.")

	ee, ok := AsEvalError(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformed, ee.Kind)
}

func TestParseVerdict_EmptyResponse(t *testing.T) {
	_, err := ParseVerdict("")
	require.Error(t, err)
}

func TestParseVerdict_ConfidenceOutOfRange(t *testing.T) {
	tests := []string{
		`{"should_link": true, "confidence_score": 1.5, "rationale": "x"}`,
		`{"should_link": true, "confidence_score": -0.2, "rationale": "x"}`,
	}
	for _, raw := range tests {
		_, err := ParseVerdict(raw)
		ee, ok := AsEvalError(err)
		require.True(t, ok, raw)
		assert.Equal(t, KindMalformed, ee.Kind)
	}
}

func TestParseVerdict_PositiveWithoutRationale(t *testing.T) {
	_, err := ParseVerdict(`{"should_link": true, "confidence_score": 0.9, "rationale": ""}`)

	ee, ok := AsEvalError(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformed, ee.Kind)
}
