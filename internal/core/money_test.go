package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "", false},
		{"1,234", "", false},
		{"0.01", "0.01", true},
		{"0", "0", true},
		{" 2.50 ", "2.5", true},
		{"900", "900", true},
		{"15.99", "15.99", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"1.5e2", "150", true},
		{"999999999999.99", "999999999999.99", true},
		{"1000000000000", "", false},
		{"1e13", "", false},
		{"1e7000000", "", false},
		{"0.000000001", "", false},
		{"0e9999999", "0", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.out).Equal(got), "got %s", got)
		})
	}
}

func TestParseAmountHugeExponentIsCheap(t *testing.T) {
	start := time.Now()
	_, err := ParseAmount("1e1000000000")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Less(t, time.Since(start), time.Second)

	d, err := ParseAmount("0e1000000000")
	assert.NoError(t, err)
	assert.Equal(t, "0.00", d.StringFixed(2))
}

func TestParseUserAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"12,50", "12.5", true},
		{" 1,23 ", "1.23", true},
		{"12.50", "12.5", true},
		{"1.234,5", "", false},
		{"1,2,3", "", false},
		{"1e7000000", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseUserAmount(tc.in)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.out).Equal(got), "got %s", got)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "915.99", FormatAmount(decimal.RequireFromString("915.99")))
	assert.Equal(t, "433.00", FormatAmount(decimal.NewFromInt(433)))
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
}
