package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Runner wires a store to the daily sync and serializes checks.
type Runner struct {
	Store RowStore
	Pager *RowPager
	Rows  *RowSet
	Sync  *DailySync

	logger zerolog.Logger
	group  singleflight.Group
}

func NewRunner(store RowStore, logger zerolog.Logger) *Runner {
	session := NewSession()
	pager := NewRowPager(store, logger)
	rows := NewRowSet(pager, session, logger)

	return &Runner{
		Store:  store,
		Pager:  pager,
		Rows:   rows,
		Sync:   NewDailySync(pager, rows, session, logger),
		logger: logger.With().Str("component", "runner").Logger(),
	}
}

// Trigger runs one daily check. Calls made while a check is running wait
// for it and share its result.
func (r *Runner) Trigger(ctx context.Context, source AggregateSource) (Result, error) {
	v, err, shared := r.group.Do("check", func() (interface{}, error) {
		return r.Sync.Check(ctx, source)
	})
	if shared {
		r.logger.Debug().Msg("joined running check")
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// Watch checks right away, then every interval and on SIGHUP, until ctx is
// done. Failed checks are logged and retried on the next tick.
func (r *Runner) Watch(ctx context.Context, source AggregateSource, every time.Duration, formatter Formatter) error {
	if every <= 0 {
		return fmt.Errorf("interval must be positive: %s", every)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, ctx := errgroup.WithContext(ctx)

	run := func(trigger string) error {
		result, err := r.Trigger(ctx, source)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error().Err(err).Str("trigger", trigger).Msg("daily check failed")
			return nil
		}
		if err := formatter.PrintResult(result); err != nil {
			return err
		}
		return formatter.Flush()
	}

	g.Go(func() error {
		if err := run("start"); err != nil {
			return err
		}

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := run("tick"); err != nil {
					return err
				}
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				if err := run("signal"); err != nil {
					return err
				}
			}
		}
	})

	return g.Wait()
}

// Main runs the daily sync described by cfg once, or repeatedly when
// cfg.Every is set.
func Main(ctx context.Context, cfg Config, formatter Formatter, logger zerolog.Logger) error {
	if cfg.DatabaseURL == "" {
		return errors.New("no database specified")
	}

	store, err := NewStore(cfg.StoreURL, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer store.Close()

	source, err := NewSQLSource(cfg.DatabaseURL, cfg.Query)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer source.Close()

	runner := NewRunner(store, logger)

	if cfg.Every > 0 {
		logger.Info().Dur("every", cfg.Every).Str("store", store.Name()).Msg("watching")
		return runner.Watch(ctx, source, cfg.Every, formatter)
	}

	result, err := runner.Trigger(ctx, source)
	if err != nil {
		return err
	}
	if err := formatter.PrintResult(result); err != nil {
		return err
	}
	return formatter.Flush()
}

// ListRows prints every row of the store up to the first one with an empty
// validationColumn. All columns are shown when columns is empty.
func ListRows(ctx context.Context, cfg Config, validationColumn string, columns []string, formatter Formatter, logger zerolog.Logger) error {
	store, err := NewStore(cfg.StoreURL, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer store.Close()

	runner := NewRunner(store, logger)

	rows, err := runner.Rows.GetAllRows(ctx, validationColumn)
	if err != nil {
		return err
	}

	if len(columns) == 0 {
		columns = rowColumns(rows)
	} else if len(rows) > 0 {
		if err := checkColumns(columns, rowColumns(rows)); err != nil {
			return err
		}
	}

	if err := formatter.PrintRows(rows, columns, "row"); err != nil {
		return err
	}
	return formatter.Flush()
}

// FindRow prints the first row whose column equals key.
func FindRow(ctx context.Context, cfg Config, key string, column string, formatter Formatter, logger zerolog.Logger) (bool, error) {
	store, err := NewStore(cfg.StoreURL, cfg.StoreOptions())
	if err != nil {
		return false, err
	}
	defer store.Close()

	runner := NewRunner(store, logger)

	row, found, err := runner.Rows.GetRowByKey(ctx, key, column)
	if err != nil {
		return false, err
	}

	if err := formatter.PrintMatch(key, column, row, found); err != nil {
		return found, err
	}
	return found, formatter.Flush()
}
