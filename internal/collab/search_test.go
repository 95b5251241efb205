package collab

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSearcher_ThemedCorpus(t *testing.T) {
	results, err := MockSearcher{}.Search(context.Background(), "moon landing 1969", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Title, "Apollo")
}

func TestMockSearcher_GenericFiller(t *testing.T) {
	results, err := MockSearcher{}.Search(context.Background(), "obscure query", 4)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestMockSearcher_RespectsLimit(t *testing.T) {
	results, err := MockSearcher{}.Search(context.Background(), "pizza", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = MockSearcher{}.Search(context.Background(), "pizza", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStaticTopics_NoRepeatsWithinDraw(t *testing.T) {
	p := NewStaticTopics(rand.New(rand.NewSource(3)))

	topics := p.Topics(5)
	require.Len(t, topics, 5)

	seen := make(map[string]bool)
	for _, opt := range topics {
		assert.False(t, seen[opt.Topic], "topic %q drawn twice", opt.Topic)
		seen[opt.Topic] = true
		assert.NotEmpty(t, opt.Forbidden)
	}
}

func TestStaticTopics_ClampsToListSize(t *testing.T) {
	p := NewStaticTopics(rand.New(rand.NewSource(3)))
	assert.Len(t, p.Topics(1000), len(topicList))
	assert.Empty(t, p.Topics(0))
}
