package core

import (
	"errors"
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.0", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"0.01", 0.01, true},
		{" 2.50 ", 2.5, true},
		{"500", 500, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"NaN", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || math.Abs(got-tc.out) > 1e-9 {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		v        float64
		currency string
		want     string
	}{
		{350, "", "350.00 S/"},
		{12.5, "S/", "12.50 S/"},
		{-99.999, "€", "-100.00 €"},
		{0, "$", "0.00 $"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.v, tc.currency); got != tc.want {
			t.Fatalf("FormatAmount(%v, %q) = %q, want %q", tc.v, tc.currency, got, tc.want)
		}
	}
}
