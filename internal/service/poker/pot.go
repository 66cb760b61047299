package poker

import "sort"

// potLayer is one main or side pot: an amount and the seats that can win it.
type potLayer struct {
	Amount   int64
	Eligible []int
}

// buildPots layers the cumulative hand bets into a main pot and side pots.
// Each distinct wager total caps a layer; a layer is contested by every
// non-folded seat that wagered at least that level. Uncalled bets must be
// returned before this runs.
func buildPots(seats []*Seat) []potLayer {
	levelSet := map[int64]bool{}
	for _, st := range seats {
		if st != nil && st.HandBet > 0 {
			levelSet[st.HandBet] = true
		}
	}
	if len(levelSet) == 0 {
		return nil
	}
	levels := make([]int64, 0, len(levelSet))
	for lvl := range levelSet {
		levels = append(levels, lvl)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]potLayer, 0, len(levels))
	prev := int64(0)
	for _, lvl := range levels {
		layer := potLayer{}
		for _, st := range seats {
			if st == nil {
				continue
			}
			if st.HandBet > prev {
				c := st.HandBet
				if c > lvl {
					c = lvl
				}
				layer.Amount += c - prev
			}
			if !st.Folded && st.HandBet >= lvl {
				layer.Eligible = append(layer.Eligible, st.Index)
			}
		}
		pots = append(pots, layer)
		prev = lvl
	}
	return pots
}
