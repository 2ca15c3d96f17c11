package enums

import (
	"fmt"
	"strings"
	"time"
)

// BillingIntervalUnit is the unit of a provider billing interval descriptor.
type BillingIntervalUnit string

const (
	BillingIntervalDay   BillingIntervalUnit = "day"
	BillingIntervalWeek  BillingIntervalUnit = "week"
	BillingIntervalMonth BillingIntervalUnit = "month"
	BillingIntervalYear  BillingIntervalUnit = "year"
)

var validBillingIntervalUnits = []BillingIntervalUnit{
	BillingIntervalDay,
	BillingIntervalWeek,
	BillingIntervalMonth,
	BillingIntervalYear,
}

// String implements fmt.Stringer.
func (b BillingIntervalUnit) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingIntervalUnit.
func (b BillingIntervalUnit) IsValid() bool {
	for _, candidate := range validBillingIntervalUnits {
		if candidate == b {
			return true
		}
	}
	return false
}

// Add returns t advanced by count units, using calendar arithmetic for
// months and years so that a month/1 interval lands on the same day next month.
func (b BillingIntervalUnit) Add(t time.Time, count int) time.Time {
	switch b {
	case BillingIntervalDay:
		return t.AddDate(0, 0, count)
	case BillingIntervalWeek:
		return t.AddDate(0, 0, 7*count)
	case BillingIntervalMonth:
		return t.AddDate(0, count, 0)
	case BillingIntervalYear:
		return t.AddDate(count, 0, 0)
	default:
		return t
	}
}

// ParseBillingIntervalUnit converts raw input into a BillingIntervalUnit.
// Provider payloads vary in casing and pluralization ("MONTH", "months").
func ParseBillingIntervalUnit(value string) (BillingIntervalUnit, error) {
	normalized := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value)), "s")
	for _, candidate := range validBillingIntervalUnits {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing interval unit %q", value)
}
