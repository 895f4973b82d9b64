package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewMonthValidation(t *testing.T) {
	cases := []struct {
		month, year int
		ok          bool
	}{
		{1, 2024, true},
		{12, 2024, true},
		{0, 2024, false},
		{13, 2024, false},
		{5, 0, false},
		{5, 10000, false},
	}
	for _, tc := range cases {
		_, err := NewMonth(tc.month, tc.year)
		if tc.ok && err != nil {
			t.Fatalf("%d/%d expected ok, got %v", tc.month, tc.year, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidMonthOrYear) {
			t.Fatalf("%d/%d expected ErrInvalidMonthOrYear, got %v", tc.month, tc.year, err)
		}
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("3", "2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Month != time.March || m.Year != 2024 {
		t.Fatalf("unexpected month %+v", m)
	}
	for _, in := range [][2]string{{"x", "2024"}, {"3", "y"}, {"", ""}, {"13", "2024"}} {
		if _, err := ParseMonth(in[0], in[1]); !errors.Is(err, ErrInvalidMonthOrYear) {
			t.Fatalf("%v expected ErrInvalidMonthOrYear, got %v", in, err)
		}
	}
}

func TestMonthRangeHalfOpen(t *testing.T) {
	m, _ := NewMonth(2, 2024)
	start, end := m.Range(time.UTC)
	if !start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", start)
	}
	if !end.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", end)
	}
	if !m.Contains(start, time.UTC) {
		t.Fatal("month start must be included")
	}
	if !m.Contains(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), time.UTC) {
		t.Fatal("leap day must be included")
	}
	if m.Contains(end, time.UTC) {
		t.Fatal("next month start must be excluded")
	}
}

func TestMonthRangeDecemberRollsOver(t *testing.T) {
	m, _ := NewMonth(12, 2023)
	_, end := m.Range(nil)
	if !end.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", end)
	}
}

func TestMonthRangeInLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	m, _ := NewMonth(3, 2024)
	start, _ := m.Range(loc)
	if !start.Equal(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", start.UTC())
	}
	if got := MonthOf(time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC), loc); got != m {
		t.Fatalf("MonthOf = %v, want %v", got, m)
	}
}

func TestMonthFormatting(t *testing.T) {
	m, _ := NewMonth(3, 2024)
	if m.String() != "3/2024" {
		t.Fatalf("String() = %q", m.String())
	}
	if m.Key() != "2024-03" {
		t.Fatalf("Key() = %q", m.Key())
	}
}
