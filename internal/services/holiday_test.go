package services

import (
	"testing"
	"time"
)

func TestHolidayService_WeekdaysOnly(t *testing.T) {
	s := NewHolidayService()

	saturday := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	wednesday := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	if s.IsWorkday(saturday, "NONE") {
		t.Error("Saturday should not be a workday under NONE")
	}
	if !s.IsWorkday(wednesday, "NONE") {
		t.Error("Wednesday should be a workday under NONE")
	}
}

func TestHolidayService_UnknownCountryFallsBack(t *testing.T) {
	s := NewHolidayService()

	sunday := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	if s.IsWorkday(sunday, "XX") {
		t.Error("unknown country should fall back to the weekday rule")
	}
}

func TestHolidayService_SupportedCountries(t *testing.T) {
	s := NewHolidayService()

	countries := s.GetSupportedCountries()
	if len(countries) < 20 {
		t.Fatalf("expected at least 20 countries, got %d", len(countries))
	}

	seen := make(map[string]bool)
	for _, c := range countries {
		seen[c.Code] = true
	}
	for _, required := range []string{"CN", "US", "NONE"} {
		if !seen[required] {
			t.Errorf("supported countries should include %s", required)
		}
	}

	for i := 1; i < len(countries); i++ {
		if countries[i-1].Code > countries[i].Code {
			t.Error("countries should be sorted by code")
			break
		}
	}
}

func TestHolidayService_IsHolidayInverse(t *testing.T) {
	s := NewHolidayService()

	day := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	if s.IsWorkday(day, "NONE") == s.IsHoliday(day, "NONE") {
		t.Error("IsHoliday should be the inverse of IsWorkday")
	}
}
