// Package buckets groups realized P&L by calendar and clock buckets and by
// journal dimensions.
package buckets

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
)

// HeatmapDay is the realized P&L of one calendar day.
type HeatmapDay struct {
	Date  string  `json:"date"`
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Day   int     `json:"day"`
	PnL   float64 `json:"pnl"`
}

// DateRange spans the heatmap. Both ends are nil when there are no matches.
type DateRange struct {
	Min *string `json:"min"`
	Max *string `json:"max"`
}

// TimeBuckets is realized P&L bucketed by the exit time of each match.
type TimeBuckets struct {
	// PnLByHour always holds keys 0 through 23.
	PnLByHour map[int]float64 `json:"pnl_by_hour"`
	// PnLByWeekday always holds keys 0 (Monday) through 6 (Sunday).
	PnLByWeekday map[int]float64 `json:"pnl_by_weekday"`
	Heatmap      []HeatmapDay    `json:"heatmap"`
	DateRange    DateRange       `json:"date_range"`
}

// Weekday returns the Monday-based weekday index of t (Monday=0 .. Sunday=6).
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func localize(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		return t.In(loc)
	}
	return t
}

// Compute buckets matches by exit hour, exit weekday and exit date. With a
// nil location each exit is read in its own zone.
func Compute(matches []domain.RealizedMatch, loc *time.Location) *TimeBuckets {
	var (
		byHour    [24]decimal.Decimal
		byWeekday [7]decimal.Decimal
		byDate    = make(map[string]decimal.Decimal)
		dates     = make(map[string]time.Time)
	)
	for _, m := range matches {
		t := localize(m.ExitTime, loc)
		byHour[t.Hour()] = byHour[t.Hour()].Add(m.PnL)
		byWeekday[Weekday(t)] = byWeekday[Weekday(t)].Add(m.PnL)

		key := t.Format("2006-01-02")
		byDate[key] = byDate[key].Add(m.PnL)
		dates[key] = t
	}

	out := &TimeBuckets{
		PnLByHour:    make(map[int]float64, 24),
		PnLByWeekday: make(map[int]float64, 7),
		Heatmap:      make([]HeatmapDay, 0, len(byDate)),
	}
	for h, v := range byHour {
		out.PnLByHour[h] = v.InexactFloat64()
	}
	for wd, v := range byWeekday {
		out.PnLByWeekday[wd] = v.InexactFloat64()
	}
	for key, pnl := range byDate {
		t := dates[key]
		out.Heatmap = append(out.Heatmap, HeatmapDay{
			Date:  key,
			Year:  t.Year(),
			Month: int(t.Month()),
			Day:   t.Day(),
			PnL:   pnl.InexactFloat64(),
		})
	}
	sort.Slice(out.Heatmap, func(i, j int) bool { return out.Heatmap[i].Date < out.Heatmap[j].Date })

	if n := len(out.Heatmap); n > 0 {
		lo, hi := out.Heatmap[0].Date, out.Heatmap[n-1].Date
		out.DateRange = DateRange{Min: &lo, Max: &hi}
	}
	return out
}

// HourStat summarises the matches that entered or exited within one hour of day.
type HourStat struct {
	Hour     int     `json:"hour"`
	TotalPnL float64 `json:"total_pnl"`
	AvgPnL   float64 `json:"avg_pnl"`
	Count    int     `json:"count"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
}

// TimeOfDay compares P&L by the hour a position was entered and exited.
type TimeOfDay struct {
	ByEntryHour []HourStat `json:"by_entry_hour"`
	ByExitHour  []HourStat `json:"by_exit_hour"`
}

// HourOfDay returns 24 entry-hour and 24 exit-hour statistics.
func HourOfDay(matches []domain.RealizedMatch, loc *time.Location) *TimeOfDay {
	var entry, exit [24]hourAcc
	for _, m := range matches {
		entry[localize(m.EntryTime, loc).Hour()].add(m)
		exit[localize(m.ExitTime, loc).Hour()].add(m)
	}
	out := &TimeOfDay{
		ByEntryHour: make([]HourStat, 24),
		ByExitHour:  make([]HourStat, 24),
	}
	for h := 0; h < 24; h++ {
		out.ByEntryHour[h] = entry[h].stat(h)
		out.ByExitHour[h] = exit[h].stat(h)
	}
	return out
}

type hourAcc struct {
	total        decimal.Decimal
	count        int
	wins, losses int
}

func (a *hourAcc) add(m domain.RealizedMatch) {
	a.total = a.total.Add(m.PnL)
	a.count++
	if m.IsWin() {
		a.wins++
	} else if m.IsLoss() {
		a.losses++
	}
}

func (a hourAcc) stat(hour int) HourStat {
	s := HourStat{
		Hour:     hour,
		TotalPnL: a.total.InexactFloat64(),
		Count:    a.count,
		Wins:     a.wins,
		Losses:   a.losses,
	}
	if a.count > 0 {
		s.AvgPnL = a.total.Div(decimal.NewFromInt(int64(a.count))).InexactFloat64()
	}
	return s
}
