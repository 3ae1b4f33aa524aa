package tender

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	lakh  = 100_000
	crore = 10_000_000

	DateLayout = "02 Jan 2006"
)

// FormatEstimate renders value in lakhs below one crore and in crores
// from there on, with one decimal rounded half up.
func FormatEstimate(value float64) string {
	if value < crore {
		return fmt.Sprintf("₹%.1f L", roundTenths(value/lakh))
	}
	return fmt.Sprintf("₹%.1f Cr", roundTenths(value/crore))
}

func roundTenths(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// FormatRupees renders value as whole rupees with Indian digit grouping,
// e.g. ₹1,23,45,678. Amounts beyond int64 are clamped to its range and NaN
// renders as ₹0.
func FormatRupees(value float64) string {
	n := wholeRupees(value)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return sign + "₹" + digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + "₹" + strings.Join(groups, ",") + "," + tail
}

func wholeRupees(value float64) int64 {
	r := math.Floor(value + 0.5)
	switch {
	case math.IsNaN(r):
		return 0
	case r >= 1<<63:
		return math.MaxInt64
	case r <= -(1 << 63):
		return -math.MaxInt64
	default:
		return int64(r)
	}
}

// FormatDate renders t as "02 Jan 2006", or "N/A" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(DateLayout)
}
