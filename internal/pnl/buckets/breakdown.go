package buckets

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
)

// Untagged is the group key of matches whose exit trade carries no tag.
const Untagged = "—"

// Group is the aggregate of the matches sharing one key.
type Group struct {
	Key     string          `json:"key"`
	PnL     decimal.Decimal `json:"pnl"`
	Matches int             `json:"matches"`
	Wins    int             `json:"wins"`
	Losses  int             `json:"losses"`
	WinRate float64         `json:"win_rate"`
}

// Breakdowns groups realized P&L by symbol and by journal tags.
type Breakdowns struct {
	BySymbol   []Group `json:"by_symbol"`
	ByStrategy []Group `json:"by_strategy"`
	ByEmotion  []Group `json:"by_emotion"`
}

// Breakdown groups matches by symbol, strategy and emotion. Tags are joined
// through the exit trade of each match. Each list keeps the topN groups with
// the largest absolute P&L; topN <= 0 keeps all.
func Breakdown(matches []domain.RealizedMatch, tags map[string]domain.JournalTag, topN int) Breakdowns {
	tagValue := func(get func(domain.JournalTag) string) func(domain.RealizedMatch) string {
		return func(m domain.RealizedMatch) string {
			tag, ok := tags[m.ExitTradeID]
			if !ok {
				return Untagged
			}
			if v := strings.TrimSpace(get(tag)); v != "" {
				return v
			}
			return Untagged
		}
	}
	return Breakdowns{
		BySymbol:   GroupBy(matches, func(m domain.RealizedMatch) string { return m.Symbol }, topN),
		ByStrategy: GroupBy(matches, tagValue(func(t domain.JournalTag) string { return t.Strategy }), topN),
		ByEmotion:  GroupBy(matches, tagValue(func(t domain.JournalTag) string { return t.Emotion }), topN),
	}
}

// GroupBy sums matches by key, sorted by absolute P&L descending with ties
// broken by key.
func GroupBy(matches []domain.RealizedMatch, key func(domain.RealizedMatch) string, topN int) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, m := range matches {
		k := key(m)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		g := &groups[i]
		g.PnL = g.PnL.Add(m.PnL)
		g.Matches++
		if m.IsWin() {
			g.Wins++
		} else if m.IsLoss() {
			g.Losses++
		}
	}
	for i := range groups {
		groups[i].WinRate = float64(groups[i].Wins) / float64(groups[i].Matches)
	}

	sort.Slice(groups, func(i, j int) bool {
		if c := groups[i].PnL.Abs().Cmp(groups[j].PnL.Abs()); c != 0 {
			return c > 0
		}
		return groups[i].Key < groups[j].Key
	})
	if topN > 0 && len(groups) > topN {
		groups = groups[:topN]
	}
	return groups
}
