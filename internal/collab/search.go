package collab

import (
	"context"
	"fmt"
	"strings"

	"github.com/classified-intel/backend/pkg/types"
)

// MockSearcher serves canned results so the game is playable without any
// search API configured. A few common game topics get themed corpora; anything
// else gets generic filler.
type MockSearcher struct{}

func (MockSearcher) Search(_ context.Context, query string, limit int) ([]types.SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	q := strings.ToLower(query)
	var results []types.SearchResult

	switch {
	case containsAny(q, "moon", "lunar", "1969"):
		results = []types.SearchResult{
			{
				Title:   "Apollo 11 Mission - NASA History",
				Snippet: "On July 20, 1969, American astronauts Neil Armstrong and Buzz Aldrin became the first humans to land on the Moon. The historic mission marked a major achievement in space exploration.",
				Link:    "https://www.nasa.gov/apollo11",
				Source:  "nasa.gov",
			},
			{
				Title:   "The Moon Landing: A Giant Leap for Mankind",
				Snippet: "The Apollo program successfully landed humans on the lunar surface. Armstrong's famous words \"That's one small step for man\" echoed around the world.",
				Link:    "https://history.com/moon-landing",
				Source:  "history.com",
			},
			{
				Title:   "Moon Landing 1969 - Tranquility Base",
				Snippet: "The lunar module Eagle touched down in the Sea of Tranquility. The mission was broadcast live on television to millions worldwide.",
				Link:    "https://space.com/apollo-11",
				Source:  "space.com",
			},
		}
	case containsAny(q, "pizza", "italian", "cheese"):
		results = []types.SearchResult{
			{
				Title:   "History of Pizza - Origins and Evolution",
				Snippet: "Pizza originated in Naples, Italy in the 18th century. The classic Margherita pizza was created in 1889, featuring tomatoes, mozzarella cheese, and basil.",
				Link:    "https://en.wikipedia.org/wiki/Pizza",
				Source:  "wikipedia.org",
			},
			{
				Title:   "Traditional Italian Pizza Making",
				Snippet: "Authentic Neapolitan pizza uses a thin crust with simple toppings. The dough is made from wheat flour, yeast, water and salt.",
				Link:    "https://italianfood.com/pizza",
				Source:  "italianfood.com",
			},
			{
				Title:   "Popular Pizza Toppings Around the World",
				Snippet: "From pepperoni in America to seafood in Japan, pizza has been adapted globally. The classic Italian varieties remain most popular.",
				Link:    "https://foodnetwork.com/pizza",
				Source:  "foodnetwork.com",
			},
		}
	case containsAny(q, "bitcoin", "crypto", "blockchain"):
		results = []types.SearchResult{
			{
				Title:   "Bitcoin: A Peer-to-Peer Electronic Cash System",
				Snippet: "Bitcoin was created in 2009 by an unknown person using the pseudonym Satoshi Nakamoto. It uses blockchain technology for decentralized transactions.",
				Link:    "https://bitcoin.org/bitcoin.pdf",
				Source:  "bitcoin.org",
			},
			{
				Title:   "Understanding Cryptocurrency and Blockchain",
				Snippet: "Bitcoin mining involves solving complex mathematical problems to verify transactions. The blockchain ledger records all transactions permanently.",
				Link:    "https://coindesk.com/learn/bitcoin",
				Source:  "coindesk.com",
			},
			{
				Title:   "The Rise of Digital Currency",
				Snippet: "Since its creation, Bitcoin has inspired thousands of alternative cryptocurrencies. The technology has revolutionized digital finance.",
				Link:    "https://investopedia.com/bitcoin",
				Source:  "investopedia.com",
			},
		}
	case containsAny(q, "eiffel", "paris", "tower", "france"):
		results = []types.SearchResult{
			{
				Title:   "Eiffel Tower - Iconic Paris Landmark",
				Snippet: "The Eiffel Tower was built in 1889 for the Paris World's Fair. Made of iron, it stands 330 meters tall and was designed by engineer Gustave Eiffel.",
				Link:    "https://toureiffel.paris/en",
				Source:  "toureiffel.paris",
			},
			{
				Title:   "History of the Eiffel Tower in France",
				Snippet: "Originally criticized by Parisians, the tower has become a symbol of France. It was the tallest structure in the world until 1930.",
				Link:    "https://britannica.com/topic/Eiffel-Tower",
				Source:  "britannica.com",
			},
			{
				Title:   "Visiting the Iron Lady of Paris",
				Snippet: "The Eiffel Tower attracts millions of visitors annually. You can climb stairs or take elevators to observation decks with stunning city views.",
				Link:    "https://parisinfo.com/eiffel-tower",
				Source:  "parisinfo.com",
			},
		}
	default:
		for i := 0; i < limit; i++ {
			results = append(results, types.SearchResult{
				Title:   fmt.Sprintf("Search result %d for %q", i+1, query),
				Snippet: fmt.Sprintf("This is a mock search result about %s. In a real scenario, this would contain relevant information from web pages matching your search query.", query),
				Link:    fmt.Sprintf("https://example.com/result-%d", i+1),
				Source:  "example.com",
			})
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
