package poker

import "math/rand"

// Card is a two-byte rank+suit code ("As", "Td"), the form the scoring
// core accepts directly.
type Card string

const (
	cardRanks = "23456789TJQKA"
	cardSuits = "shdc"
)

func (c Card) Rank() byte { return c[0] }
func (c Card) Suit() byte { return c[1] }

// rankValue orders ranks 2..14 for the bot's preflop heuristics.
func (c Card) rankValue() int {
	for i := 0; i < len(cardRanks); i++ {
		if cardRanks[i] == c.Rank() {
			return i + 2
		}
	}
	return 0
}

// Deck is a shuffled 52-card deck. Not safe for concurrent use; the owning
// table serializes access behind its lock.
type Deck struct {
	cards []Card
}

func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for i := 0; i < len(cardSuits); i++ {
		for j := 0; j < len(cardRanks); j++ {
			d.cards = append(d.cards, Card([]byte{cardRanks[j], cardSuits[i]}))
		}
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// Draw removes and returns the top card. A full hand at nine seats needs 23
// cards at most, so the deck never runs dry within one hand.
func (d *Deck) Draw() Card {
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c
}

func (d *Deck) Remaining() int { return len(d.cards) }
