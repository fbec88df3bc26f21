package search

import (
	"fmt"
	"time"
)

// DayLayout is the calendar date format used across the API.
const DayLayout = "2006-01-02"

// MonthLayout is the year-month format of calendar views.
const MonthLayout = "2006-01"

// DayBounds returns [start, end) of a local calendar day in ms.
func DayBounds(day string, loc *time.Location) (int64, int64, error) {
	t, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", day)
	}
	return t.UnixMilli(), t.AddDate(0, 0, 1).UnixMilli(), nil
}

// MonthBounds returns [start, end) of a local calendar month in ms.
func MonthBounds(month string, loc *time.Location) (int64, int64, error) {
	t, err := time.ParseInLocation(MonthLayout, month, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q (want YYYY-MM)", month)
	}
	return t.UnixMilli(), t.AddDate(0, 1, 0).UnixMilli(), nil
}

// LocalDay formats a ms timestamp as its local calendar date.
func LocalDay(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(DayLayout)
}
