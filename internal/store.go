package internal

import (
	"context"
	"fmt"
	"strings"
)

// RowStore is a remote, spreadsheet-like row store.
type RowStore interface {
	// Name describes the kind of store, for messages
	Name() string
	Init(url string, opts StoreOptions) error
	// Authenticate logs in, loads metadata and selects the configured sheet or table.
	Authenticate(ctx context.Context) error
	// FetchRows returns at most limit rows starting at offset. Fewer rows
	// mean the store has no more.
	FetchRows(ctx context.Context, offset int, limit int) ([]Row, error)
	AppendRows(ctx context.Context, rows []Row) error
	Close() error
}

// StoreOptions carries the settings that are not part of the store URL.
type StoreOptions struct {
	// CredentialsFile is the service account file for Google Sheets
	CredentialsFile string
	// Sheet is the index of the worksheet to use
	Sheet int
	// Table names the table, collection, index or key holding the rows
	Table string
}

// NewStore picks the adapter for the scheme of urlStr and initializes it.
func NewStore(urlStr string, opts StoreOptions) (RowStore, error) {
	var store RowStore

	switch {
	case strings.HasPrefix(urlStr, "sheets://"):
		store = &SheetsStore{}
	case strings.HasPrefix(urlStr, "file://"):
		store = &FileStore{}
	case strings.HasPrefix(urlStr, "s3://"):
		store = &S3Store{}
	case strings.HasPrefix(urlStr, "redis://"), strings.HasPrefix(urlStr, "rediss://"):
		store = &RedisStore{}
	case strings.HasPrefix(urlStr, "mongodb://"), strings.HasPrefix(urlStr, "mongodb+srv://"):
		store = &MongoStore{}
	case strings.HasPrefix(urlStr, "opensearch+"), strings.HasPrefix(urlStr, "elasticsearch+"):
		store = &OpenSearchStore{}
	case strings.Contains(urlStr, ":"):
		store = &SQLStore{}
	default:
		return nil, fmt.Errorf("unknown store scheme: %q", urlStr)
	}

	if err := store.Init(urlStr, opts); err != nil {
		return nil, fmt.Errorf("init %s store: %w", store.Name(), err)
	}
	return store, nil
}
