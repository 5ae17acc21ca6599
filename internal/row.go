package internal

import (
	"fmt"
	"strconv"
	"time"
)

// column names written by the daily sync
const (
	ColumnDate  = "Date"
	ColumnTotal = "Total"
	ColumnYear  = "Year"
	ColumnMonth = "Month"
	ColumnDay   = "Day"
)

// isoTimestamp matches the millisecond ISO-8601 form spreadsheets parse as a date
const isoTimestamp = "2006-01-02T15:04:05.000Z07:00"

// dailyColumns is the column order used when a store has no header yet
var dailyColumns = []string{ColumnDate, ColumnTotal, ColumnYear, ColumnMonth, ColumnDay}

// Row is one record of the remote store, keyed by column name.
type Row map[string]string

// Page is the result of a single fetch.
type Page []Row

func (r Row) Get(column string) string {
	return r[column]
}

func (r Row) Year() string {
	return r[ColumnYear]
}

func (r Row) Month() string {
	return r[ColumnMonth]
}

func (r Row) Day() string {
	return r[ColumnDay]
}

func (r Row) Date() string {
	return r[ColumnDate]
}

// Total parses the Total column. Missing or malformed values read as 0.
func (r Row) Total() int64 {
	n, err := strconv.ParseInt(r[ColumnTotal], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Matches reports whether the row was recorded for key.
func (r Row) Matches(key DateKey) bool {
	return r.Year() == strconv.Itoa(key.Year) &&
		r.Month() == strconv.Itoa(key.Month) &&
		r.Day() == strconv.Itoa(key.Day)
}

// DateKey is the composite natural key of a daily record.
type DateKey struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (k DateKey) String() string {
	return fmt.Sprintf("%d-%02d-%02d", k.Year, k.Month, k.Day)
}

// SplitDate decomposes the local calendar date of t.
func SplitDate(t time.Time) DateKey {
	year, month, day := t.Date()
	return DateKey{Year: year, Month: int(month), Day: day}
}

// newDailyRow builds the row appended for key. Day is written one less than
// key.Day since the total covers the previous day.
func newDailyRow(now time.Time, total int64, key DateKey) Row {
	return Row{
		ColumnDate:  now.UTC().Format(isoTimestamp),
		ColumnTotal: strconv.FormatInt(total, 10),
		ColumnYear:  strconv.Itoa(key.Year),
		ColumnMonth: strconv.Itoa(key.Month),
		ColumnDay:   strconv.Itoa(key.Day - 1),
	}
}
