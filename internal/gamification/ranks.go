package gamification

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/patente-quiz/backend/internal/models"
)

// RankTable is the ordered list of rank thresholds. It is immutable once
// built and needs no locking.
type RankTable struct {
	ranks []models.Rank
	index map[string]int
}

// NewRankTable validates entries and assigns ordinals in threshold order.
// Thresholds must be non-negative and strictly increasing as given; names
// must be unique and non-empty.
func NewRankTable(entries []models.Rank) (*RankTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("rank table is empty")
	}

	t := &RankTable{
		ranks: make([]models.Rank, len(entries)),
		index: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("rank %d has no name", i)
		}
		if e.MinXP < 0 {
			return nil, fmt.Errorf("rank %q has negative threshold %d", name, e.MinXP)
		}
		if i > 0 && e.MinXP <= entries[i-1].MinXP {
			return nil, fmt.Errorf("rank %q threshold %d must exceed %d", name, e.MinXP, entries[i-1].MinXP)
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate rank %q", name)
		}
		t.ranks[i] = models.Rank{Name: name, MinXP: e.MinXP, Ordinal: i}
		t.index[name] = i
	}
	return t, nil
}

// ParseRankTable builds a table from "Name:minXP" pairs separated by commas,
// e.g. "Recruit:0,Sergeant:100,Captain:500".
func ParseRankTable(def string) (*RankTable, error) {
	var entries []models.Rank
	for _, part := range strings.Split(def, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, threshold, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("rank entry %q: want Name:minXP", part)
		}
		minXP, err := strconv.ParseInt(strings.TrimSpace(threshold), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("rank entry %q: %w", part, err)
		}
		entries = append(entries, models.Rank{Name: name, MinXP: minXP})
	}
	return NewRankTable(entries)
}

// RankFor returns the highest rank whose threshold is <= xp, or the lowest
// rank when xp is below every threshold.
func (t *RankTable) RankFor(xp int64) models.Rank {
	// First index whose threshold exceeds xp.
	i := sort.Search(len(t.ranks), func(i int) bool { return t.ranks[i].MinXP > xp })
	if i == 0 {
		return t.ranks[0]
	}
	return t.ranks[i-1]
}

// Lowest returns the entry-level rank.
func (t *RankTable) Lowest() models.Rank {
	return t.ranks[0]
}

// Next returns the rank after r, if any.
func (t *RankTable) Next(r models.Rank) (models.Rank, bool) {
	if r.Ordinal+1 >= len(t.ranks) {
		return models.Rank{}, false
	}
	return t.ranks[r.Ordinal+1], true
}

// Lookup finds a rank by name.
func (t *RankTable) Lookup(name string) (models.Rank, bool) {
	i, ok := t.index[name]
	if !ok {
		return models.Rank{}, false
	}
	return t.ranks[i], true
}

// Ranks returns a copy of the table in ordinal order.
func (t *RankTable) Ranks() []models.Rank {
	out := make([]models.Rank, len(t.ranks))
	copy(out, t.ranks)
	return out
}

// IsPromotion reports whether moving from oldXP to newXP crosses into a
// higher rank.
func (t *RankTable) IsPromotion(oldXP, newXP int64) bool {
	return t.RankFor(newXP).Ordinal > t.RankFor(oldXP).Ordinal
}
