package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitDate(t *testing.T) {
	key := SplitDate(time.Date(2020, time.March, 5, 23, 59, 0, 0, time.Local))
	assert.Equal(t, DateKey{Year: 2020, Month: 3, Day: 5}, key)
	assert.Equal(t, "2020-03-05", key.String())
}

func TestRowMatches(t *testing.T) {
	key := DateKey{Year: 2020, Month: 3, Day: 5}
	assert.True(t, Row{"Year": "2020", "Month": "3", "Day": "5"}.Matches(key))
	assert.False(t, Row{"Year": "2020", "Month": "3", "Day": "6"}.Matches(key))
	assert.False(t, Row{"Year": "2020", "Month": "3"}.Matches(key))
}

func TestRowTotal(t *testing.T) {
	assert.Equal(t, int64(42), Row{"Total": "42"}.Total())
	assert.Equal(t, int64(0), Row{"Total": "n/a"}.Total())
	assert.Equal(t, int64(0), Row{}.Total())
}

func TestNewDailyRow(t *testing.T) {
	now := time.Date(2020, time.March, 5, 10, 30, 0, 123000000, time.UTC)
	row := newDailyRow(now, 7, SplitDate(now))

	assert.Equal(t, Row{
		"Date":  "2020-03-05T10:30:00.123Z",
		"Total": "7",
		"Year":  "2020",
		"Month": "3",
		"Day":   "4",
	}, row)
}
