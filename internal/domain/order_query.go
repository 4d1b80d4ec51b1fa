package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DateRange string

const (
	RangeAll     DateRange = ""
	RangeToday   DateRange = "today"
	RangeWeek    DateRange = "week"
	RangeMonth   DateRange = "month"
	RangeQuarter DateRange = "quarter"
)

// Since returns the lower bound of the range relative to now. ok is false for
// RangeAll.
func (r DateRange) Since(now time.Time) (since time.Time, ok bool) {
	y, m, d := now.Date()
	loc := now.Location()
	switch r {
	case RangeToday:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	case RangeWeek:
		return now.Add(-7 * 24 * time.Hour), true
	case RangeMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), true
	case RangeQuarter:
		first := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, first, 1, 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}

func (r DateRange) Valid() bool {
	switch r {
	case RangeAll, RangeToday, RangeWeek, RangeMonth, RangeQuarter:
		return true
	}
	return false
}

// OrderSort is "<field>_<asc|desc>".
type OrderSort string

const DefaultOrderSort OrderSort = "created_at_desc"

var sortColumns = map[string]string{
	"created_at":     "created_at",
	"total":          "total",
	"customer_phone": "customer_phone",
	"quantity":       "quantity",
	"status":         "status",
}

// Clause converts the sort key into an ORDER BY fragment built only from
// whitelisted columns.
func (s OrderSort) Clause() (string, bool) {
	if s == "" {
		s = DefaultOrderSort
	}
	str := string(s)
	idx := strings.LastIndex(str, "_")
	if idx <= 0 {
		return "", false
	}
	field, dir := str[:idx], str[idx+1:]
	col, ok := sortColumns[field]
	if !ok || (dir != "asc" && dir != "desc") {
		return "", false
	}
	return col + " " + strings.ToUpper(dir) + ", id " + strings.ToUpper(dir), true
}

type OrderFilter struct {
	Status OrderStatus
	Search string
	Range  DateRange
	Sort   OrderSort
	Page   int
	Limit  int
}

type OrderStats struct {
	TotalOrders     int64           `json:"totalOrders"`
	PendingOrders   int64           `json:"pendingOrders"`
	ConfirmedOrders int64           `json:"confirmedOrders"`
	CancelledOrders int64           `json:"cancelledOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
}
