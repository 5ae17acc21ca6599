package internal

import (
	"context"

	"github.com/rs/zerolog"
)

// SentinelFunc reports whether row marks the end of the data, judged by column.
type SentinelFunc func(row Row, column string) bool

// IsSentinel treats a row with an empty value in column as the end of the data.
func IsSentinel(row Row, column string) bool {
	return row[column] == ""
}

// RowSet reads the whole store through a RowPager and remembers the result
// for the lifetime of its Session.
type RowSet struct {
	pager    *RowPager
	session  *Session
	logger   zerolog.Logger
	Sentinel SentinelFunc
}

func NewRowSet(pager *RowPager, session *Session, logger zerolog.Logger) *RowSet {
	return &RowSet{
		pager:    pager,
		session:  session,
		logger:   logger.With().Str("component", "rowset").Logger(),
		Sentinel: IsSentinel,
	}
}

// GetAllRows returns every row up to the first one whose validationColumn is
// empty, or up to the first short page. The first complete read is cached
// and returned as is afterwards, whatever the column.
func (s *RowSet) GetAllRows(ctx context.Context, validationColumn string) ([]Row, error) {
	if rows, ok := s.session.cachedRows(); ok {
		s.logger.Debug().Int("rows", len(rows)).Msg("serving cached rows")
		return rows, nil
	}

	result := []Row{}
	offset := 0

	for {
		page, err := s.pager.FetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}

		for _, row := range page {
			if s.Sentinel(row, validationColumn) {
				return s.store(result), nil
			}
			result = append(result, row)
		}

		offset += len(page)

		if len(page) < PageSize || s.Sentinel(page[len(page)-1], validationColumn) {
			break
		}
	}

	return s.store(result), nil
}

func (s *RowSet) store(rows []Row) []Row {
	s.logger.Debug().Int("rows", len(rows)).Msg("caching rows")
	s.session.cacheRows(rows)
	return rows
}

// GetRowByKey returns the first row whose column equals key.
func (s *RowSet) GetRowByKey(ctx context.Context, key string, column string) (Row, bool, error) {
	rows, err := s.GetAllRows(ctx, column)
	if err != nil {
		return nil, false, err
	}

	for _, row := range rows {
		if row[column] == key {
			return row, true, nil
		}
	}
	return nil, false, nil
}

func (s *RowSet) Exists(ctx context.Context, key string, column string) (bool, error) {
	_, found, err := s.GetRowByKey(ctx, key, column)
	return found, err
}

// ExistsByDate looks for a row recorded for key. It pages the store directly
// and stops at the first match, so the cache is neither used nor filled.
//
// Unlike GetAllRows, paging continues as long as the first row of a page
// has a Year.
func (s *RowSet) ExistsByDate(ctx context.Context, key DateKey) (bool, error) {
	offset := 0

	for {
		page, err := s.pager.FetchPage(ctx, offset)
		if err != nil {
			return false, err
		}

		for _, row := range page {
			if row.Matches(key) {
				s.logger.Debug().
					Int("year", key.Year).
					Int("month", key.Month).
					Int("day", key.Day).
					Int("offset", offset).
					Msg("found row for date")
				return true, nil
			}
		}

		offset += len(page)

		if len(page) < PageSize || s.Sentinel(page[0], ColumnYear) {
			return false, nil
		}
	}
}

// Invalidate drops the cached rows so the next read goes to the store.
func (s *RowSet) Invalidate() {
	s.session.clearRows()
}
