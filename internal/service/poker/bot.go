package poker

// runBotsLocked lets seated bots act while the action is on one of them.
// Bounded so a table full of bots cannot spin forever inside one call.
func (t *Table) runBotsLocked() {
	for i := 0; i < 64; i++ {
		if !t.bettingLocked() || t.actingSeat < 0 {
			return
		}
		st := t.seats[t.actingSeat]
		if st == nil || !st.IsBot {
			return
		}
		t.botActLocked(st)
	}
}

func (t *Table) botActLocked(st *Seat) {
	owe := t.currentBet - st.StreetBet
	strength := t.botStrengthLocked(st)

	var pot int64
	for _, s := range t.seats {
		if s != nil {
			pot += s.HandBet
		}
	}

	raise := func() bool {
		to := t.currentBet + t.minRaise
		if max := st.StreetBet + st.Chips; to > max {
			to = max
		}
		if to <= t.currentBet {
			return false
		}
		return t.raiseActionLocked(st, to) == nil
	}

	if owe <= 0 {
		// Free to see the next card; strong hands bet, the rest bluff rarely.
		if (strength >= 2 && t.rng.Intn(100) < 50) || t.rng.Intn(100) < 8 {
			if raise() {
				t.afterActionLocked()
				return
			}
		}
		_ = t.checkActionLocked(st)
		t.afterActionLocked()
		return
	}

	cheap := owe <= t.bigBlind*2 || owe*3 <= pot
	switch {
	case strength >= 2:
		if !(t.rng.Intn(100) < 30 && raise()) {
			t.callActionLocked(st)
		}
	case strength == 1 && (cheap || owe*2 <= pot):
		t.callActionLocked(st)
	case cheap && t.rng.Intn(100) < 40:
		t.callActionLocked(st)
	default:
		t.foldActionLocked(st)
	}
	t.afterActionLocked()
}

// botStrengthLocked buckets the bot's holding: 0 weak, 1 playable, 2 strong.
func (t *Table) botStrengthLocked(st *Seat) int {
	if len(st.Hole) != 2 {
		return 0
	}
	if len(t.community) == 0 {
		if st.Hole[0].Rank() == st.Hole[1].Rank() {
			return 2
		}
		if st.Hole[0].rankValue() >= 10 && st.Hole[1].rankValue() >= 10 {
			return 1
		}
		return 0
	}
	cards := append(append([]Card{}, st.Hole...), t.community...)
	hv, err := Evaluate(cards)
	if err != nil {
		return 0
	}
	switch {
	case hv.Rank >= TwoPair:
		return 2
	case hv.Rank >= Pair:
		return 1
	}
	return 0
}
