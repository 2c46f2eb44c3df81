package model

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceTime(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want ServiceTime
	}{
		{"08:05:00", "08:05:00"},
		{"8:05:00", "08:05:00"},
		{"00:00:00", "00:00:00"},
		{"24:00:00", "24:00:00"},
		{"25:14:09", "25:14:09"},
		{"99:59:59", "99:59:59"},
	} {
		got, err := ParseServiceTime(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestParseServiceTimeRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"08:05",
		"08:60:00",
		"08:05:60",
		"-1:00:00",
		"100:00:00",
		"8.05.00",
		"noon",
	} {
		_, err := ParseServiceTime(in)
		assert.Error(t, err, "%q should not parse", in)
	}
}

func TestServiceTimeSeconds(t *testing.T) {
	st, err := ParseServiceTime("25:14:09")
	require.NoError(t, err)

	assert.Equal(t, 25*3600+14*60+9, st.Seconds())
	assert.Equal(t, time.Duration(st.Seconds())*time.Second, st.Duration())
}

func TestServiceTimeOrdering(t *testing.T) {
	// Times past midnight sort after every same-day time. The
	// fixed-width form makes plain string ordering correct.
	times := []ServiceTime{"25:00:00", "08:00:00", "24:10:00", "23:59:59"}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	assert.Equal(t, []ServiceTime{"08:00:00", "23:59:59", "24:10:00", "25:00:00"}, times)
}
