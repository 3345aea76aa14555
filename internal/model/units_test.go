package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKilometers(t *testing.T) {
	tests := []struct {
		in   string
		want Kilometers
	}{
		{"5", 500},
		{"5.0", 500},
		{"8.5", 850},
		{"10.25", 1025},
		{".5", 50},
		{" 42.19 ", 4219},
		{"999.99", 99999},
	}
	for _, tt := range tests {
		got, err := ParseKilometers(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseKilometers_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "5.", "5.123", "1000", "1.2.3"} {
		_, err := ParseKilometers(in)
		require.Error(t, err, "expected %q to be rejected", in)
	}
}

func TestKilometers_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		L Kilometers `json:"l"`
	}{L: 850})
	require.NoError(t, err)
	require.JSONEq(t, `{"l": 8.50}`, string(b))

	var v struct {
		L Kilometers `json:"l"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"l": "10.5"}`), &v))
	require.Equal(t, Kilometers(1050), v.L)
	require.NoError(t, json.Unmarshal([]byte(`{"l": 3}`), &v))
	require.Equal(t, Kilometers(300), v.L)
}

func TestParseDateAndClock(t *testing.T) {
	d, err := ParseDate("2025-12-25")
	require.NoError(t, err)
	require.Equal(t, Date("2025-12-25"), d)

	_, err = ParseDate("25/12/2025")
	require.Error(t, err)

	c, err := ParseClock("10:00:00")
	require.NoError(t, err)
	require.Equal(t, Clock("10:00"), c)

	_, err = ParseClock("25:00")
	require.Error(t, err)
}

func TestRunString(t *testing.T) {
	r := Run{Venue: "Test Venue", Date: "2025-12-25", Time: "10:00", LengthKM: 500}
	require.Equal(t, "Test Venue - 2025-12-25 at 10:00 (5.00km)", r.String())
}
