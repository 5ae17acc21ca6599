package internal

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	total *int64
	err   error
	calls int
}

func (s *fakeSource) TotalForLastDay(ctx context.Context) (*int64, error) {
	s.calls++
	return s.total, s.err
}

func newTestDailySync(store *memoryStore, now time.Time) (*DailySync, *Session) {
	session := NewSession()
	pager := NewRowPager(store, testLogger())
	rows := NewRowSet(pager, session, testLogger())
	sync := NewDailySync(pager, rows, session, testLogger())
	sync.Now = func() time.Time { return now }
	return sync, session
}

func int64Ptr(n int64) *int64 {
	return &n
}

var testNow = time.Date(2020, time.March, 5, 10, 30, 0, 0, time.UTC)

func TestCheckAppendsRow(t *testing.T) {
	store := &memoryStore{}
	sync, session := newTestDailySync(store, testNow)
	source := &fakeSource{total: int64Ptr(1234)}

	result, err := sync.Check(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, StatusAppended, result.Status)
	assert.Equal(t, int64(1234), result.Total)
	require.Len(t, store.appended, 1)

	row := store.appended[0]
	assert.Equal(t, "2020", row.Year())
	assert.Equal(t, "3", row.Month())
	assert.Equal(t, "4", row.Day())
	assert.Equal(t, int64(1234), row.Total())
	assert.Equal(t, "2020-03-05T10:30:00.000Z", row.Date())

	marker, ok := session.SyncMarker()
	assert.True(t, ok)
	assert.Equal(t, 5, marker)
}

func TestCheckAppendedDayIsOneLess(t *testing.T) {
	for _, now := range []time.Time{
		testNow,
		time.Date(2021, time.December, 31, 23, 0, 0, 0, time.Local),
		time.Date(2021, time.January, 2, 0, 0, 0, 0, time.Local),
	} {
		store := &memoryStore{}
		sync, _ := newTestDailySync(store, now)

		_, err := sync.Check(context.Background(), &fakeSource{total: int64Ptr(1)})
		require.NoError(t, err)
		require.Len(t, store.appended, 1)
		assert.Equal(t, strconv.Itoa(SplitDate(now).Day-1), store.appended[0].Day())
	}
}

func TestCheckFirstOfMonthWritesDayZero(t *testing.T) {
	store := &memoryStore{}
	sync, _ := newTestDailySync(store, time.Date(2021, time.March, 1, 9, 0, 0, 0, time.Local))

	result, err := sync.Check(context.Background(), &fakeSource{total: int64Ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, StatusAppended, result.Status)
	require.Len(t, store.appended, 1)
	assert.Equal(t, "2021", store.appended[0].Year())
	assert.Equal(t, "3", store.appended[0].Month())
	assert.Equal(t, "0", store.appended[0].Day())
}

func TestCheckNilTotal(t *testing.T) {
	store := &memoryStore{}
	sync, _ := newTestDailySync(store, testNow)

	result, err := sync.Check(context.Background(), &fakeSource{})
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.Total)
	require.Len(t, store.appended, 1)
	assert.Equal(t, "0", store.appended[0][ColumnTotal])
}

func TestCheckTwiceSameDay(t *testing.T) {
	store := &memoryStore{}
	sync, _ := newTestDailySync(store, testNow)
	source := &fakeSource{total: int64Ptr(10)}
	ctx := context.Background()

	_, err := sync.Check(ctx, source)
	require.NoError(t, err)
	fetches := len(store.fetchOffsets)

	result, err := sync.Check(ctx, source)
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, result.Status)
	assert.Len(t, store.appended, 1)
	assert.Len(t, store.fetchOffsets, fetches)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, store.authCalls)
}

func TestCheckNextDay(t *testing.T) {
	store := &memoryStore{}
	sync, _ := newTestDailySync(store, testNow)
	source := &fakeSource{total: int64Ptr(10)}
	ctx := context.Background()

	_, err := sync.Check(ctx, source)
	require.NoError(t, err)

	sync.Now = func() time.Time { return testNow.AddDate(0, 0, 1) }
	result, err := sync.Check(ctx, source)
	require.NoError(t, err)

	assert.Equal(t, StatusAppended, result.Status)
	require.Len(t, store.appended, 2)
	assert.Equal(t, "5", store.appended[1].Day())
}

func TestCheckExistingRow(t *testing.T) {
	store := &memoryStore{rows: []Row{
		{ColumnYear: "2020", ColumnMonth: "3", ColumnDay: "5", ColumnTotal: "99"},
	}}
	sync, session := newTestDailySync(store, testNow)
	source := &fakeSource{total: int64Ptr(10)}
	ctx := context.Background()

	result, err := sync.Check(ctx, source)
	require.NoError(t, err)

	assert.Equal(t, StatusExists, result.Status)
	assert.Empty(t, store.appended)
	assert.Equal(t, 0, source.calls)

	marker, ok := session.SyncMarker()
	assert.True(t, ok)
	assert.Equal(t, 5, marker)

	// marked, so no more reads today
	fetches := len(store.fetchOffsets)
	result, err = sync.Check(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Status)
	assert.Len(t, store.fetchOffsets, fetches)
}

func TestCheckExistsFailure(t *testing.T) {
	store := &memoryStore{fetchErr: errBoom}
	sync, session := newTestDailySync(store, testNow)
	source := &fakeSource{total: int64Ptr(10)}
	ctx := context.Background()

	_, err := sync.Check(ctx, source)
	assert.True(t, errors.Is(err, errBoom))
	assert.Equal(t, 0, source.calls)

	_, ok := session.SyncMarker()
	assert.False(t, ok)

	// retried on the same day
	store.fetchErr = nil
	result, err := sync.Check(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, StatusAppended, result.Status)
	assert.Len(t, store.appended, 1)
}

func TestCheckAuthenticationFailure(t *testing.T) {
	store := &memoryStore{authErr: errBoom}
	sync, session := newTestDailySync(store, testNow)

	_, err := sync.Check(context.Background(), &fakeSource{})
	assert.True(t, errors.Is(err, errBoom))
	assert.Empty(t, store.fetchOffsets)

	_, ok := session.SyncMarker()
	assert.False(t, ok)
}

func TestCheckSourceFailure(t *testing.T) {
	store := &memoryStore{}
	sync, session := newTestDailySync(store, testNow)

	_, err := sync.Check(context.Background(), &fakeSource{err: errBoom})
	assert.True(t, errors.Is(err, errBoom))
	assert.Empty(t, store.appended)

	_, ok := session.SyncMarker()
	assert.False(t, ok)
}

func TestCheckAppendFailure(t *testing.T) {
	store := &memoryStore{appendErr: errBoom}
	sync, session := newTestDailySync(store, testNow)
	source := &fakeSource{total: int64Ptr(10)}
	ctx := context.Background()

	_, err := sync.Check(ctx, source)
	assert.True(t, errors.Is(err, errBoom))

	_, ok := session.SyncMarker()
	assert.False(t, ok)

	store.appendErr = nil
	result, err := sync.Check(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, StatusAppended, result.Status)
	assert.Equal(t, 2, source.calls)
}

func TestCheckInvalidatesCache(t *testing.T) {
	store := &memoryStore{rows: dataRows(2)}
	sync, _ := newTestDailySync(store, testNow)
	ctx := context.Background()

	rows, err := sync.rows.GetAllRows(ctx, ColumnYear)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = sync.Check(ctx, &fakeSource{total: int64Ptr(1)})
	require.NoError(t, err)

	rows, err = sync.rows.GetAllRows(ctx, ColumnYear)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
