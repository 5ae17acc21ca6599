package internal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xo/dburl"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultAggregateQuery counts the keys recorded during the previous day.
const DefaultAggregateQuery = `SELECT COUNT(*) FROM keys WHERE created_at >= :start AND created_at < :end`

// SQLSource computes the daily total with a named query over a local
// database. The query receives :start and :end, bounding the previous day.
type SQLSource struct {
	DB    *sqlx.DB
	Query string
	// Now returns the current local time
	Now func() time.Time
}

func NewSQLSource(urlStr string, query string) (*SQLSource, error) {
	u, err := dburl.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(u.Driver, u.DSN)
	if err != nil {
		return nil, err
	}

	if query == "" {
		query = DefaultAggregateQuery
	}

	return &SQLSource{DB: db, Query: query, Now: time.Now}, nil
}

func (s *SQLSource) TotalForLastDay(ctx context.Context) (*int64, error) {
	start, end := lastDay(s.Now())

	query, args, err := sqlx.Named(s.Query, map[string]interface{}{
		"start": start,
		"end":   end,
	})
	if err != nil {
		return nil, fmt.Errorf("bind aggregate query: %w", err)
	}

	var total sql.NullInt64
	if err := s.DB.QueryRowxContext(ctx, s.DB.Rebind(query), args...).Scan(&total); err != nil {
		return nil, err
	}
	if !total.Valid {
		return nil, nil
	}
	return &total.Int64, nil
}

func (s *SQLSource) Close() error {
	return s.DB.Close()
}

// lastDay returns the bounds of the calendar day before now, in now's location.
func lastDay(now time.Time) (time.Time, time.Time) {
	year, month, day := now.Date()
	end := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return end.AddDate(0, 0, -1), end
}
