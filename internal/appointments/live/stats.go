package live

import (
	"context"
	"sort"
	"time"

	"autosnap/pkg/dates"
	"autosnap/pkg/model"
)

type DayStats struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Revenue int    `json:"revenue"`
}

type Stats struct {
	Total        int        `json:"total"`
	Today        int        `json:"today"`
	Revenue      int        `json:"revenue"`
	TodayRevenue int        `json:"todayRevenue"`
	PerDay       []DayStats `json:"perDay"`
}

// ComputeStats summarises a private collection. Records with an unreadable
// date count toward the totals only.
func ComputeStats(list []*model.Appointment, today time.Time) *Stats {
	todayFormats := dates.DualFormats(today)
	byDay := make(map[string]*DayStats)
	stats := &Stats{PerDay: []DayStats{}}

	for _, a := range list {
		stats.Total++
		stats.Revenue += a.TotalPrice
		if todayFormats.Matches(a.Date) {
			stats.Today++
			stats.TodayRevenue += a.TotalPrice
		}

		day, err := dates.ParseDay(a.Date)
		if err != nil {
			continue
		}
		key := day.Format(dates.LayoutISO)
		d, ok := byDay[key]
		if !ok {
			d = &DayStats{Date: key}
			byDay[key] = d
		}
		d.Count++
		d.Revenue += a.TotalPrice
	}

	for _, d := range byDay {
		stats.PerDay = append(stats.PerDay, *d)
	}
	sort.Slice(stats.PerDay, func(i, j int) bool {
		return stats.PerDay[i].Date < stats.PerDay[j].Date
	})
	return stats
}

func (v *DateView) Stats(ctx context.Context, owner string, today time.Time) (*Stats, error) {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	list, err := v.reader.Appointments(ctx, model.UserAppointmentsPath(owner))
	if err != nil {
		return nil, v.loadError(ctx, owner, err)
	}
	return ComputeStats(list, today), nil
}
