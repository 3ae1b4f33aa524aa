package tender

import (
	"math"
	"testing"
	"time"
)

func TestFormatEstimate(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "₹0.0 L"},
		{150_000, "₹1.5 L"},
		{2_525_000, "₹25.3 L"},
		{9_999_999, "₹100.0 L"},
		{10_000_000, "₹1.0 Cr"},
		{12_345_678, "₹1.2 Cr"},
		{125_000_000, "₹12.5 Cr"},
	}

	for _, tt := range tests {
		if got := FormatEstimate(tt.value); got != tt.want {
			t.Errorf("FormatEstimate(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestFormatRupees(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "₹0"},
		{999, "₹999"},
		{1000, "₹1,000"},
		{100_000, "₹1,00,000"},
		{12_345_678, "₹1,23,45,678"},
		{1_234_567_890, "₹1,23,45,67,890"},
		{999.6, "₹1,000"},
		{-25_000, "-₹25,000"},
		{1e19, "₹92,23,37,20,36,85,47,75,807"},
		{-1e19, "-₹92,23,37,20,36,85,47,75,807"},
		{math.Inf(1), "₹92,23,37,20,36,85,47,75,807"},
		{math.NaN(), "₹0"},
	}

	for _, tt := range tests {
		if got := FormatRupees(tt.value); got != tt.want {
			t.Errorf("FormatRupees(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Time{}); got != "N/A" {
		t.Errorf("FormatDate(zero) = %q, want N/A", got)
	}
	d := time.Date(2025, 1, 5, 18, 30, 0, 0, time.UTC)
	if got := FormatDate(d); got != "05 Jan 2025" {
		t.Errorf("FormatDate = %q, want 05 Jan 2025", got)
	}
}
