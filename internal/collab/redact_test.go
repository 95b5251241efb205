package collab

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classified-intel/backend/pkg/types"
)

func TestRegexRedactor_WholeWordCaseInsensitive(t *testing.T) {
	results := []types.SearchResult{{
		Title:   "Eiffel Tower - Iconic Paris Landmark",
		Snippet: "The EIFFEL tower stands in paris. A towering achievement.",
	}}

	out := RegexRedactor{}.Redact(context.Background(), results,
		[]string{"eiffel", "tower", "paris"}, "", "")

	require.Len(t, out, 1)
	assert.Equal(t, "[REDACTED] [REDACTED] - Iconic [REDACTED] Landmark", out[0].Title)
	// "towering" is a different word and must survive.
	assert.Equal(t, "The [REDACTED] [REDACTED] stands in [REDACTED]. A towering achievement.", out[0].Snippet)
}

func TestRegexRedactor_IncludesQueryAndTopicWords(t *testing.T) {
	results := []types.SearchResult{{Snippet: "famous iron structure in France"}}

	out := RegexRedactor{}.Redact(context.Background(), results,
		nil, "famous iron structure", "The Eiffel Tower")

	assert.Equal(t, "[REDACTED] [REDACTED] [REDACTED] in France", out[0].Snippet)
}

func TestRegexRedactor_ShortWordsStayVisible(t *testing.T) {
	results := []types.SearchResult{{Snippet: "it is on a hill"}}

	out := RegexRedactor{}.Redact(context.Background(), results, []string{"it", "on"}, "is a", "")

	assert.Equal(t, "it is on a hill", out[0].Snippet)
}

func TestRegexRedactor_DoesNotMutateInput(t *testing.T) {
	results := []types.SearchResult{{Title: "Pizza history"}}

	_ = RegexRedactor{}.Redact(context.Background(), results, []string{"pizza"}, "", "")

	assert.Equal(t, "Pizza history", results[0].Title)
}

type failingRedactor struct{}

func (failingRedactor) Redact(context.Context, []types.SearchResult, []string, string, string) ([]types.SearchResult, error) {
	return nil, errors.New("backend down")
}

func TestChainRedactor_FallsBackOnPrimaryError(t *testing.T) {
	c := ChainRedactor{Primary: failingRedactor{}}
	results := []types.SearchResult{{Title: "Moon landing"}}

	out := c.Redact(context.Background(), results, []string{"moon"}, "", "")

	require.Len(t, out, 1)
	assert.Equal(t, "[REDACTED] landing", out[0].Title)
}

func TestValidateForbidden(t *testing.T) {
	ok, violations := ValidateForbidden("famous tower in Paris", []string{"tower", "paris"})
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"tower", "paris"}, violations)

	ok, violations = ValidateForbidden("famous towering landmark", []string{"tower"})
	assert.True(t, ok, "substring of a longer word is not a violation")
	assert.Empty(t, violations)

	ok, _ = ValidateForbidden("anything", nil)
	assert.True(t, ok)
}
