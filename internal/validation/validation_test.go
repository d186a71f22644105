package validation

import (
	"testing"
	"time"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{
			name:  "plain address",
			email: "user@example.com",
			valid: true,
		},
		{
			name:  "subdomain",
			email: "user@mail.example.tw",
			valid: true,
		},
		{
			name:  "missing at",
			email: "user.example.com",
			valid: false,
		},
		{
			name:  "missing domain dot",
			email: "user@localhost",
			valid: false,
		},
		{
			name:  "empty local part",
			email: "@example.com",
			valid: false,
		},
		{
			name:  "trailing dot",
			email: "user@example.",
			valid: false,
		},
		{
			name:  "contains space",
			email: "us er@example.com",
			valid: false,
		},
		{
			name:  "empty string",
			email: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.valid {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestIsValidCouponCode(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{
			name:  "upper case",
			code:  "SUMMER20",
			valid: true,
		},
		{
			name:  "with separators",
			code:  "new-year_2026",
			valid: true,
		},
		{
			name:  "too short",
			code:  "ab",
			valid: false,
		},
		{
			name:  "too long",
			code:  "A12345678901234567890123456789012",
			valid: false,
		},
		{
			name:  "contains space",
			code:  "SUMMER 20",
			valid: false,
		},
		{
			name:  "empty string",
			code:  "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidCouponCode(tt.code); got != tt.valid {
				t.Fatalf("IsValidCouponCode(%q) = %v, want %v", tt.code, got, tt.valid)
			}
		})
	}
}

func TestParseDateRange(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	t.Run("explicit range", func(t *testing.T) {
		start, end, err := ParseDateRange("2026-02-01", "2026-02-28", now)
		if err != nil {
			t.Fatalf("ParseDateRange error: %v", err)
		}
		if start.Format("2006-01-02") != "2026-02-01" {
			t.Fatalf("start = %v", start)
		}
		// Конец окна включает все заказы последних суток.
		if !end.After(time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)) {
			t.Fatalf("end = %v, want end of day", end)
		}
		if !end.Before(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("end = %v, must stay within February", end)
		}
	})

	t.Run("defaults to last 30 days", func(t *testing.T) {
		start, end, err := ParseDateRange("", "", now)
		if err != nil {
			t.Fatalf("ParseDateRange error: %v", err)
		}
		if !end.Equal(now) {
			t.Fatalf("end = %v, want %v", end, now)
		}
		if !start.Equal(now.AddDate(0, 0, -30)) {
			t.Fatalf("start = %v, want 30 days before end", start)
		}
	})

	t.Run("malformed start", func(t *testing.T) {
		if _, _, err := ParseDateRange("02/01/2026", "", now); err == nil {
			t.Fatalf("expected error for malformed start date")
		}
	})

	t.Run("malformed end", func(t *testing.T) {
		if _, _, err := ParseDateRange("", "not-a-date", now); err == nil {
			t.Fatalf("expected error for malformed end date")
		}
	})

	t.Run("start after end", func(t *testing.T) {
		if _, _, err := ParseDateRange("2026-03-01", "2026-02-01", now); err == nil {
			t.Fatalf("expected error for inverted range")
		}
	})
}
