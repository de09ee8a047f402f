// Package analytics derives per-user statistics from an order snapshot.
// Every bucket keys on the calendar date in a fixed timezone, never the host's local zone.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"canteen-tracker/internal/model"
)

// DefaultWindowDays is the trailing window used when none is given.
const DefaultWindowDays = 7

const (
	monthLayout   = "2006-01"
	peakHoursDays = 7
	bucketHours   = 2
)

// Aggregator computes analytics in one fixed timezone. It holds no state between calls.
type Aggregator struct {
	loc *time.Location
}

// New creates an aggregator bucketing in loc.
func New(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc}
}

// Location returns the fixed timezone.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Compute assembles every local view for orders as of now.
func (a *Aggregator) Compute(orders []model.Order, now time.Time, days int) model.LocalAnalytics {
	return model.LocalAnalytics{
		Timezone:           a.loc.String(),
		GeneratedAt:        now,
		DailyOrders:        a.DailyOrders(orders, now, days),
		RevenueTrend:       a.RevenueTrend(orders, now, days),
		Monthly:            a.MonthlyStats(orders, now),
		CategoryMix:        a.CategoryMix(orders, now),
		PeakHours:          a.PeakHours(orders, now),
		AveragePrepMinutes: a.AveragePrepMinutes(orders),
	}
}

// DailyOrders counts orders per day over the trailing window ending today, oldest first.
func (a *Aggregator) DailyOrders(orders []model.Order, now time.Time, days int) []model.DailyCount {
	keys := a.windowKeys(now, days)

	counts := make(map[string]int, len(keys))
	for _, order := range orders {
		counts[a.dayKey(order.OrderTime)]++
	}

	out := make([]model.DailyCount, len(keys))
	for i, key := range keys {
		out[i] = model.DailyCount{Date: key, Count: counts[key]}
	}
	return out
}

// RevenueTrend sums the amount of completed orders per day over the trailing window, oldest first.
// Orders are dated by completion time when known.
func (a *Aggregator) RevenueTrend(orders []model.Order, now time.Time, days int) []model.DailyAmount {
	keys := a.windowKeys(now, days)

	sums := make(map[string]float64, len(keys))
	for _, order := range orders {
		if order.Status != model.StatusCompleted {
			continue
		}
		at := order.OrderTime
		if order.CompletedTime != nil {
			at = *order.CompletedTime
		}
		sums[a.dayKey(at)] += order.TotalAmount
	}

	out := make([]model.DailyAmount, len(keys))
	for i, key := range keys {
		out[i] = model.DailyAmount{Date: key, Amount: sums[key]}
	}
	return out
}

// MonthlyStats summarises the completed orders placed in the current month.
func (a *Aggregator) MonthlyStats(orders []model.Order, now time.Time) model.MonthlyStats {
	stats := model.MonthlyStats{Month: now.In(a.loc).Format(monthLayout)}

	var names []string
	counts := make(map[string]int)
	for _, order := range a.thisMonth(orders, now) {
		stats.TotalSpent += order.TotalAmount
		stats.OrderCount++
		for _, item := range order.Items {
			if _, seen := counts[item.Name]; !seen {
				names = append(names, item.Name)
			}
			counts[item.Name]++
		}
	}

	// Strict comparison keeps the earliest first occurrence on ties.
	best := 0
	for _, name := range names {
		if counts[name] > best {
			best = counts[name]
			stats.FavoriteItem = name
		}
	}
	return stats
}

// CategoryMix counts item occurrences per category over the monthly set, most frequent first.
func (a *Aggregator) CategoryMix(orders []model.Order, now time.Time) []model.CategoryCount {
	var mix []model.CategoryCount
	position := make(map[string]int)

	for _, order := range a.thisMonth(orders, now) {
		for _, item := range order.Items {
			pos, ok := position[item.Category]
			if !ok {
				pos = len(mix)
				position[item.Category] = pos
				mix = append(mix, model.CategoryCount{Category: item.Category})
			}
			mix[pos].Count++
		}
	}

	sort.SliceStable(mix, func(i, j int) bool {
		return mix[i].Count > mix[j].Count
	})
	return mix
}

// PeakHours counts non-cancelled orders of the last seven days per two-hour slot of the day.
func (a *Aggregator) PeakHours(orders []model.Order, now time.Time) []model.HourBucket {
	buckets := make([]model.HourBucket, 24/bucketHours)
	for i := range buckets {
		start := i * bucketHours
		buckets[i] = model.HourBucket{
			Label: hourLabel(start) + " - " + hourLabel((start+bucketHours)%24),
			Start: start,
		}
	}

	threshold := a.dayStart(now, peakHoursDays-1)
	for _, order := range orders {
		if order.Status == model.StatusCancelled {
			continue
		}
		local := order.OrderTime.In(a.loc)
		if local.Before(threshold) {
			continue
		}
		buckets[local.Hour()/bucketHours].Count++
	}
	return buckets
}

// AveragePrepMinutes is the mean minutes from placement to completion of completed orders.
func (a *Aggregator) AveragePrepMinutes(orders []model.Order) float64 {
	var (
		total float64
		n     int
	)
	for _, order := range orders {
		if order.Status != model.StatusCompleted || order.CompletedTime == nil {
			continue
		}
		elapsed := order.CompletedTime.Sub(order.OrderTime)
		if elapsed < 0 {
			continue
		}
		total += elapsed.Minutes()
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// thisMonth returns the completed orders placed in the fixed-zone month of now.
func (a *Aggregator) thisMonth(orders []model.Order, now time.Time) []model.Order {
	month := now.In(a.loc).Format(monthLayout)

	var out []model.Order
	for _, order := range orders {
		if order.Status != model.StatusCompleted {
			continue
		}
		if order.OrderTime.In(a.loc).Format(monthLayout) != month {
			continue
		}
		out = append(out, order)
	}
	return out
}

// windowKeys returns the date keys of the trailing window ending on now's date, oldest first.
func (a *Aggregator) windowKeys(now time.Time, days int) []string {
	if days <= 0 {
		days = DefaultWindowDays
	}

	local := now.In(a.loc)
	keys := make([]string, days)
	for i := 0; i < days; i++ {
		// Noon avoids DST edges when stepping back whole days.
		day := time.Date(local.Year(), local.Month(), local.Day()-(days-1-i), 12, 0, 0, 0, a.loc)
		keys[i] = day.Format(model.DateLayout)
	}
	return keys
}

func (a *Aggregator) dayKey(t time.Time) string {
	return t.In(a.loc).Format(model.DateLayout)
}

// dayStart returns midnight of the date daysBack days before now's date.
func (a *Aggregator) dayStart(now time.Time, daysBack int) time.Time {
	local := now.In(a.loc)
	return time.Date(local.Year(), local.Month(), local.Day()-daysBack, 0, 0, 0, 0, a.loc)
}

func hourLabel(hour int) string {
	display := hour % 12
	if display == 0 {
		display = 12
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d %s", display, suffix)
}
