package collab

import (
	"math/rand"
	"sync"

	"github.com/classified-intel/backend/pkg/types"
)

// StaticTopics hands out topics from a fixed list in random order without
// repeats within one draw.
type StaticTopics struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewStaticTopics(rnd *rand.Rand) *StaticTopics {
	return &StaticTopics{rnd: rnd}
}

func (s *StaticTopics) Topics(n int) []types.TopicOption {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return nil
	}
	if n > len(topicList) {
		n = len(topicList)
	}
	perm := s.rnd.Perm(len(topicList))
	out := make([]types.TopicOption, 0, n)
	for _, i := range perm[:n] {
		out = append(out, topicList[i])
	}
	return out
}

var topicList = []types.TopicOption{
	{Topic: "Moon Landing", Forbidden: []string{"moon", "apollo", "armstrong", "nasa", "space", "lunar"}},
	{Topic: "Pizza", Forbidden: []string{"pizza", "cheese", "pepperoni", "italian", "dough"}},
	{Topic: "Bitcoin", Forbidden: []string{"bitcoin", "crypto", "blockchain", "satoshi", "mining"}},
	{Topic: "The Eiffel Tower", Forbidden: []string{"eiffel", "tower", "paris", "france", "iron"}},
	{Topic: "Harry Potter", Forbidden: []string{"harry", "potter", "hogwarts", "wizard", "magic", "rowling"}},
	{Topic: "The Titanic", Forbidden: []string{"titanic", "ship", "iceberg", "sink", "atlantic"}},
	{Topic: "Albert Einstein", Forbidden: []string{"einstein", "relativity", "physics", "scientist", "nobel"}},
	{Topic: "The Great Wall of China", Forbidden: []string{"wall", "china", "great", "dynasty", "beijing", "ancient"}},
	{Topic: "The iPhone", Forbidden: []string{"iphone", "apple", "smartphone", "jobs", "ios", "mobile"}},
	{Topic: "The Olympics", Forbidden: []string{"olympics", "games", "medal", "athlete", "sports", "torch"}},
}
