package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Date is a calendar day in YYYY-MM-DD form. Lexical order is chronological.
type Date string

// ParseDate validates s as a calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("date must be YYYY-MM-DD: %q", s)
	}
	return Date(t.Format(dateLayout)), nil
}

func (d Date) String() string { return string(d) }

// Clock is a wall-clock time in HH:MM form. Lexical order is chronological.
type Clock string

// ParseClock validates s as a time of day. Seconds are accepted and dropped.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
		if err != nil {
			return "", fmt.Errorf("time must be HH:MM: %q", s)
		}
	}
	return Clock(t.Format(clockLayout)), nil
}

func (c Clock) String() string { return string(c) }

// MaxKilometers is the largest length a run may have (five digits, two decimals).
const MaxKilometers Kilometers = 99999

// Kilometers is a distance held in hundredths of a kilometer.
type Kilometers int64

// ParseKilometers parses a decimal distance with at most two fractional digits.
func ParseKilometers(s string) (Kilometers, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("length_km is required")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("length_km allows at most two decimal places: %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseUint(whole, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("length_km is not a decimal number: %q", s)
	}
	var f uint64
	if hasFrac {
		f, err = strconv.ParseUint(frac, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("length_km is not a decimal number: %q", s)
		}
		if len(frac) == 1 {
			f *= 10
		}
	}
	km := Kilometers(w*100 + f)
	if km > MaxKilometers {
		return 0, fmt.Errorf("length_km cannot exceed %s", MaxKilometers)
	}
	return km, nil
}

// String formats the distance with exactly two decimals.
func (k Kilometers) String() string {
	return fmt.Sprintf("%d.%02d", int64(k)/100, int64(k)%100)
}

// MarshalJSON encodes the distance as a JSON number with two decimals.
func (k Kilometers) MarshalJSON() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (k *Kilometers) UnmarshalJSON(b []byte) error {
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	v, err := ParseKilometers(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}
