package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStartDate(t *testing.T) {
	now := time.Date(2026, 10, 16, 10, 30, 0, 0, time.UTC) // Friday

	t.Run("Brazilian layout", func(t *testing.T) {
		got, err := parseStartDate("03/11/2026", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("Relative expression", func(t *testing.T) {
		got, err := parseStartDate("tomorrow", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := parseStartDate("qwerty zxcv", now)
		assert.Error(t, err)
	})
}

func TestHolidaysCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	cmd := holidaysCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"2026"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "02/11/2026")
	assert.Contains(t, out.String(), "25/12/2026")
}

func TestQuoteCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	cmd := quoteCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--type", "landing_page", "--complexity", "low", "--start", "16/10/2026"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Total")
	assert.Contains(t, out.String(), "R$ ")
	assert.Contains(t, out.String(), "Start           16/10/2026")

	bad := quoteCmd()
	bad.SetOut(&bytes.Buffer{})
	bad.SetArgs([]string{"--type", "spaceship"})
	assert.Error(t, bad.Execute())
}
