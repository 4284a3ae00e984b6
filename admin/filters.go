package admin

import (
	"fmt"
	"time"

	"pollblog-backend/service"
)

// Date filter choices offered for every date column in ListFilter.
const (
	DateAny       = "any"
	DateToday     = "today"
	DatePast7Days = "past_7_days"
	DateThisMonth = "this_month"
	DateThisYear  = "this_year"
)

var DateFilterChoices = []string{DateAny, DateToday, DatePast7Days, DateThisMonth, DateThisYear}

// dateRange returns the half-open interval [from, to) selected by choice.
// ok is false for DateAny.
func dateRange(choice string, now time.Time) (from, to time.Time, ok bool, err error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)

	switch choice {
	case "", DateAny:
		return time.Time{}, time.Time{}, false, nil
	case DateToday:
		return today, tomorrow, true, nil
	case DatePast7Days:
		return today.AddDate(0, 0, -7), tomorrow, true, nil
	case DateThisMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, 0), true, nil
	case DateThisYear:
		first := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(1, 0, 0), true, nil
	default:
		return time.Time{}, time.Time{}, false, fmt.Errorf("%w: unknown date filter %q", service.ErrInvalidInput, choice)
	}
}
