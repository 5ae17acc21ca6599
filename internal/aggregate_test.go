package internal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLSourceTotalForLastDay(t *testing.T) {
	source := setupSource(t, tempDbPath(t), "")
	now := time.Date(2020, time.March, 5, 10, 0, 0, 0, time.UTC)
	source.Now = func() time.Time { return now }

	insertKeys(t, source,
		time.Date(2020, time.March, 3, 23, 59, 0, 0, time.UTC),
		time.Date(2020, time.March, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2020, time.March, 4, 12, 0, 0, 0, time.UTC),
		time.Date(2020, time.March, 4, 23, 59, 59, 0, time.UTC),
		time.Date(2020, time.March, 5, 0, 0, 0, 0, time.UTC),
	)

	total, err := source.TotalForLastDay(context.Background())
	require.NoError(t, err)
	require.NotNil(t, total)
	assert.Equal(t, int64(3), *total)
}

func TestSQLSourceNullTotal(t *testing.T) {
	source := setupSource(t, tempDbPath(t), "SELECT SUM(1) FROM keys WHERE created_at >= :start AND created_at < :end")

	total, err := source.TotalForLastDay(context.Background())
	require.NoError(t, err)
	assert.Nil(t, total)
}

func TestSQLSourceBadQuery(t *testing.T) {
	source := setupSource(t, tempDbPath(t), "SELECT COUNT(*) FROM missing WHERE created_at >= :start")

	_, err := source.TotalForLastDay(context.Background())
	assert.Error(t, err)
}

func TestLastDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	start, end := lastDay(time.Date(2020, time.March, 1, 1, 0, 0, 0, loc))

	assert.Equal(t, time.Date(2020, time.February, 29, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2020, time.March, 1, 0, 0, 0, 0, loc), end)
}

// helpers

func setupSource(t *testing.T, path string, query string) *SQLSource {
	source, err := NewSQLSource(fmt.Sprintf("sqlite://%s", path), query)
	require.NoError(t, err)
	t.Cleanup(func() { source.Close() })

	source.DB.MustExec("CREATE TABLE keys (id integer PRIMARY KEY, code integer, created_at datetime)")
	return source
}

func insertKeys(t *testing.T, source *SQLSource, times ...time.Time) {
	for i, at := range times {
		_, err := source.DB.Exec("INSERT INTO keys (code, created_at) VALUES (?, ?)", i, at)
		require.NoError(t, err)
	}
}

func tempDbPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "keys.sqlite3")
}
