package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date key format used by every daily bucket.
const DateLayout = "2006-01-02"

// DailyCount is the number of orders on one calendar date.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyAmount is the summed order amount on one calendar date.
type DailyAmount struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// MonthlyStats summarises the completed orders of the current month.
type MonthlyStats struct {
	Month        string  `json:"month"`
	TotalSpent   float64 `json:"totalSpent"`
	OrderCount   int     `json:"orderCount"`
	FavoriteItem string  `json:"favoriteItem,omitempty"`
}

// CategoryCount is the number of item occurrences in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// HourBucket is the number of orders placed in a two-hour slot.
type HourBucket struct {
	Label string `json:"label"`
	Start int    `json:"start"`
	Count int    `json:"count"`
}

// LocalAnalytics is everything computed client-side from the order snapshot.
type LocalAnalytics struct {
	Timezone           string          `json:"timezone"`
	GeneratedAt        time.Time       `json:"generatedAt"`
	DailyOrders        []DailyCount    `json:"dailyOrders"`
	RevenueTrend       []DailyAmount   `json:"revenueTrend"`
	Monthly            MonthlyStats    `json:"monthly"`
	CategoryMix        []CategoryCount `json:"categoryMix"`
	PeakHours          []HourBucket    `json:"peakHours"`
	AveragePrepMinutes float64         `json:"averagePrepMinutes"`
}

// BackendAnalytics holds the precomputed canteen-wide analytics served by the backend.
type BackendAnalytics struct {
	Bestsellers        []MenuItem         `json:"bestsellers"`
	PeakHours          map[string]int64   `json:"peakHours"`
	DailyOrders        map[string]int64   `json:"dailyOrders"`
	RevenueTrend       map[string]float64 `json:"revenueTrend"`
	AveragePrepMinutes float64            `json:"averagePrepMinutes"`
	FetchedAt          time.Time          `json:"fetchedAt"`
}

// Validate checks the backend payload against its expected shape.
func (a *BackendAnalytics) Validate() error {
	for i, item := range a.Bestsellers {
		if item.ID <= 0 || item.Name == "" {
			return invalidAnalytics("bestsellers[%d]: id and name are required", i)
		}
	}
	for label, count := range a.PeakHours {
		if label == "" || count < 0 {
			return invalidAnalytics("peak hours: invalid bucket %q=%d", label, count)
		}
	}
	for date, count := range a.DailyOrders {
		if _, err := time.Parse(DateLayout, date); err != nil {
			return invalidAnalytics("daily orders: invalid date %q", date)
		}
		if count < 0 {
			return invalidAnalytics("daily orders: negative count on %s", date)
		}
	}
	for date, amount := range a.RevenueTrend {
		if _, err := time.Parse(DateLayout, date); err != nil {
			return invalidAnalytics("revenue trend: invalid date %q", date)
		}
		if amount < 0 {
			return invalidAnalytics("revenue trend: negative amount on %s", date)
		}
	}
	if a.AveragePrepMinutes < 0 {
		return invalidAnalytics("average prep time must not be negative")
	}
	return nil
}

func invalidAnalytics(format string, args ...any) error {
	return NewDomainError(ErrCodeInvalidAnalytics, fmt.Sprintf(format, args...))
}

// AnalyticsReport merges local per-user analytics with the backend's canteen-wide view.
type AnalyticsReport struct {
	UserID  int64             `json:"userId"`
	Local   LocalAnalytics    `json:"local"`
	Backend *BackendAnalytics `json:"backend,omitempty"`
}
