package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// AggregateSource produces the total recorded for the previous day.
// A nil total means no data and is recorded as 0.
type AggregateSource interface {
	TotalForLastDay(ctx context.Context) (*int64, error)
}

type Status string

const (
	StatusSkipped  Status = "skipped"
	StatusExists   Status = "exists"
	StatusAppended Status = "appended"
)

// Result describes what a Check did.
type Result struct {
	Status Status  `json:"status"`
	Key    DateKey `json:"key"`
	Total  int64   `json:"total"`
	Row    Row     `json:"row,omitempty"`
}

// DailySync records one aggregate row per day in the remote store.
type DailySync struct {
	pager   *RowPager
	rows    *RowSet
	session *Session
	logger  zerolog.Logger
	// Now returns the current local time
	Now func() time.Time
}

func NewDailySync(pager *RowPager, rows *RowSet, session *Session, logger zerolog.Logger) *DailySync {
	return &DailySync{
		pager:   pager,
		rows:    rows,
		session: session,
		logger:  logger.With().Str("component", "daily_sync").Logger(),
		Now:     time.Now,
	}
}

// Check appends the row for today unless it was done earlier today or the
// store already has it. The sync marker only moves when a row was appended
// or found, so a failed check is retried by the next call.
func (d *DailySync) Check(ctx context.Context, source AggregateSource) (Result, error) {
	now := d.Now()
	today := now.Day()

	if marker, ok := d.session.SyncMarker(); ok && marker == today {
		return Result{Status: StatusSkipped, Key: SplitDate(now)}, nil
	}

	if err := d.pager.Authenticate(ctx); err != nil {
		return Result{}, err
	}

	key := SplitDate(now)

	exists, err := d.rows.ExistsByDate(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("check existing row for %s: %w", key, err)
	}
	if exists {
		d.logger.Info().Str("date", key.String()).Msg("last day total is already in the store")
		d.session.setSyncMarker(today)
		return Result{Status: StatusExists, Key: key}, nil
	}

	total, err := source.TotalForLastDay(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("total for last day: %w", err)
	}
	var value int64
	if total != nil {
		value = *total
	}

	d.logger.Info().Int64("total", value).Msg("registering total in the store")
	row := newDailyRow(now, value, key)
	if err := d.pager.AppendRow(ctx, row); err != nil {
		return Result{}, err
	}
	d.logger.Debug().Interface("row", row).Msg("row sent to the store")

	d.rows.Invalidate()
	d.session.setSyncMarker(today)
	return Result{Status: StatusAppended, Key: key, Total: value, Row: row}, nil
}
