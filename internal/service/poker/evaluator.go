package poker

import (
	appErr "monopolyx-service/pkg/errors"

	"github.com/chehsunliu/poker"
)

// HandRank is the hand category, ordered weakest to strongest. The scoring
// core classifies a royal flush as a straight flush.
type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (r HandRank) String() string {
	switch r {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	}
	return "Unknown"
}

// HandValue is a scored hand. Score comes from the evaluation core where
// lower is stronger; Best holds the five cards that produced it.
type HandValue struct {
	Rank  HandRank `json:"rank"`
	Score int32    `json:"score"`
	Best  []Card   `json:"best"`
	Desc  string   `json:"desc"`
}

// Evaluate scores the best five-card hand out of 5 to 7 cards.
func Evaluate(cards []Card) (HandValue, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandValue{}, appErr.ErrInvalidTarget
	}

	all := make([]poker.Card, len(cards))
	for i, c := range cards {
		all[i] = poker.NewCard(string(c))
	}
	score := poker.Evaluate(all)

	best := cards
	if len(cards) > 5 {
		best = bestFive(cards, score)
	}

	return HandValue{
		Rank:  rankFromClass(poker.RankClass(score)),
		Score: score,
		Best:  best,
		Desc:  poker.RankString(score),
	}, nil
}

// Compare returns >0 when a beats b, <0 when b beats a, 0 on a tie. The
// core's scores order the other way, lower meaning stronger.
func Compare(a, b HandValue) int {
	switch {
	case a.Score < b.Score:
		return 1
	case a.Score > b.Score:
		return -1
	}
	return 0
}

// bestFive finds the five-card combination whose score matches the overall
// evaluation. At most C(7,5) = 21 combinations.
func bestFive(cards []Card, want int32) []Card {
	n := len(cards)
	combo := make([]poker.Card, 5)
	pick := make([]Card, 5)

	var scan func(start, depth int) []Card
	scan = func(start, depth int) []Card {
		if depth == 5 {
			if poker.Evaluate(combo) == want {
				out := make([]Card, 5)
				copy(out, pick)
				return out
			}
			return nil
		}
		for i := start; i <= n-(5-depth); i++ {
			pick[depth] = cards[i]
			combo[depth] = poker.NewCard(string(cards[i]))
			if out := scan(i+1, depth+1); out != nil {
				return out
			}
		}
		return nil
	}
	if out := scan(0, 0); out != nil {
		return out
	}
	return cards[:5]
}

func rankFromClass(class int32) HandRank {
	switch class {
	case 1:
		return StraightFlush
	case 2:
		return FourOfAKind
	case 3:
		return FullHouse
	case 4:
		return Flush
	case 5:
		return Straight
	case 6:
		return ThreeOfAKind
	case 7:
		return TwoPair
	case 8:
		return Pair
	default:
		return HighCard
	}
}
