package internal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// PageSize is the number of rows requested per fetch.
const PageSize = 30

// RowPager talks to the remote store one window at a time and
// authenticates lazily on first use.
type RowPager struct {
	store         RowStore
	logger        zerolog.Logger
	authenticated bool
}

func NewRowPager(store RowStore, logger zerolog.Logger) *RowPager {
	return &RowPager{
		store:  store,
		logger: logger.With().Str("component", "pager").Str("store", store.Name()).Logger(),
	}
}

// Authenticate is a no-op once a previous call succeeded.
func (p *RowPager) Authenticate(ctx context.Context) error {
	if p.authenticated {
		return nil
	}

	p.logger.Debug().Msg("authenticating")
	if err := p.store.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate %s: %w", p.store.Name(), err)
	}
	p.authenticated = true
	p.logger.Debug().Msg("authenticated")
	return nil
}

// FetchPage returns up to PageSize rows starting at offset.
func (p *RowPager) FetchPage(ctx context.Context, offset int) (Page, error) {
	if offset < 0 {
		return nil, fmt.Errorf("offset must not be negative: %d", offset)
	}

	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}

	rows, err := p.store.FetchRows(ctx, offset, PageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch rows at offset %d: %w", offset, err)
	}

	p.logger.Debug().Int("offset", offset).Int("rows", len(rows)).Msg("fetched page")
	return Page(rows), nil
}

func (p *RowPager) AppendRow(ctx context.Context, row Row) error {
	if err := p.Authenticate(ctx); err != nil {
		return err
	}

	if err := p.store.AppendRows(ctx, []Row{row}); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}
