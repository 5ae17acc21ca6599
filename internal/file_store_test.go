package internal

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystats.csv")
	store := openFileStore(t, path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Total,Year,Month,Day\n", string(contents))

	rows, err := store.FetchRows(context.Background(), 0, PageSize)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFileStoreAppendAndFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystats.csv")
	store := openFileStore(t, path)
	ctx := context.Background()

	for i := 1; i <= 35; i++ {
		err := store.AppendRows(ctx, []Row{{"Year": "2020", "Month": "1", "Day": fmt.Sprint(i % 28), "Total": fmt.Sprint(i)}})
		require.NoError(t, err)
	}

	rows, err := store.FetchRows(ctx, 0, PageSize)
	require.NoError(t, err)
	assert.Len(t, rows, PageSize)
	assert.Equal(t, "1", rows[0]["Total"])
	assert.Equal(t, "", rows[0]["Date"])

	rows, err = store.FetchRows(ctx, 30, PageSize)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.Equal(t, "35", rows[4]["Total"])

	rows, err = store.FetchRows(ctx, 35, PageSize)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFileStoreExistingHeader(t *testing.T) {
	path := writeFile(t, "keys.csv", "Id,Name\n1,one\n,\n3,three\n")
	store := openFileStore(t, path)

	rows, err := store.FetchRows(context.Background(), 0, PageSize)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{"Id": "1", "Name": "one"},
		{"Id": "", "Name": ""},
		{"Id": "3", "Name": "three"},
	}, rows)
}

func TestFileStoreShortRecords(t *testing.T) {
	path := writeFile(t, "keys.csv", "Id,Name\n1\n")
	store := openFileStore(t, path)

	rows, err := store.FetchRows(context.Background(), 0, PageSize)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"Id": "1", "Name": ""}}, rows)
}

func TestFileStoreUnknownColumn(t *testing.T) {
	path := writeFile(t, "keys.csv", "Id,Name\n")
	store := openFileStore(t, path)

	err := store.AppendRows(context.Background(), []Row{{"Id": "1", "Other": "x"}})
	assert.Contains(t, err.Error(), "unknown column: Other")
}

func TestFileStoreDuplicateColumn(t *testing.T) {
	path := writeFile(t, "keys.csv", "Id,Id\n")
	store := &FileStore{}
	require.NoError(t, store.Init("file://"+path, StoreOptions{}))

	err := store.Authenticate(context.Background())
	assert.Contains(t, err.Error(), "duplicate column: Id")
}

func TestFileStoreGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("Id\n1\n2\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	store := openFileStore(t, path)
	ctx := context.Background()

	rows, err := store.FetchRows(ctx, 0, PageSize)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"Id": "1"}, {"Id": "2"}}, rows)

	err = store.AppendRows(ctx, []Row{{"Id": "3"}})
	assert.Contains(t, err.Error(), "compressed")
}

func TestFileStoreThroughRowSet(t *testing.T) {
	var b strings.Builder
	b.WriteString("Id,Value\n")
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&b, "%d,v%d\n", i, i)
	}
	b.WriteString(",\n41,after\n")
	path := writeFile(t, "keys.csv", b.String())

	store := &FileStore{}
	require.NoError(t, store.Init("file://"+path, StoreOptions{}))
	set := NewRowSet(NewRowPager(store, testLogger()), NewSession(), testLogger())
	ctx := context.Background()

	rows, err := set.GetAllRows(ctx, "Id")
	require.NoError(t, err)
	assert.Len(t, rows, 40)

	found, err := set.Exists(ctx, "41", "Id")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStoreAppendWithoutTrailingNewline(t *testing.T) {
	path := writeFile(t, "keystats.csv", "Date,Total,Year,Month,Day\nx,7,2020,3,4")
	store := openFileStore(t, path)
	ctx := context.Background()

	require.NoError(t, store.AppendRows(ctx, []Row{{"Date": "y", "Total": "1", "Year": "2020", "Month": "3", "Day": "5"}}))

	rows, err := openFileStore(t, path).FetchRows(ctx, 0, PageSize)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{"Date": "x", "Total": "7", "Year": "2020", "Month": "3", "Day": "4"},
		{"Date": "y", "Total": "1", "Year": "2020", "Month": "3", "Day": "5"},
	}, rows)
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := writeFile(t, "keystats.csv", "")
	store := openFileStore(t, path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Total,Year,Month,Day\n", string(contents))

	now := time.Date(2020, time.March, 5, 10, 30, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		pager := NewRowPager(openFileStore(t, path), testLogger())
		session := NewSession()
		sync := NewDailySync(pager, NewRowSet(pager, session, testLogger()), session, testLogger())
		sync.Now = func() time.Time { return now }

		_, err := sync.Check(context.Background(), &fakeSource{total: int64Ptr(3)})
		require.NoError(t, err)
		now = now.AddDate(0, 0, 1)
	}

	rows, err := store.FetchRows(context.Background(), 0, PageSize)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "4", rows[0].Day())
	assert.Equal(t, "5", rows[1].Day())
}

func TestFileStoreNoPath(t *testing.T) {
	err := (&FileStore{}).Init("file://", StoreOptions{})
	assert.Contains(t, err.Error(), "no file specified")
}

// helpers

func openFileStore(t *testing.T, path string) *FileStore {
	store := &FileStore{}
	require.NoError(t, store.Init("file://"+path, StoreOptions{}))
	require.NoError(t, store.Authenticate(context.Background()))
	return store
}

func writeFile(t *testing.T, name string, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}
