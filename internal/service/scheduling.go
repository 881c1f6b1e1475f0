package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/logger"
)

// deliveryDateSearchLimit caps the business-day search. Hitting it means the
// holiday list is broken (e.g. every day marked), not that no date exists.
const deliveryDateSearchLimit = 30

// DeliveryConfig resolved scheduling settings from the settings store
type DeliveryConfig struct {
	CutoffTime      string   // "HH:MM", may arrive wrapped in JSON quotes
	Holidays        []string // "YYYY-MM-DD" entries
	DefaultTimeSlot string   // "morning" or "afternoon"; empty means cutoff-derived
}

// DeliverySchedule result of the delivery-date assignment
type DeliverySchedule struct {
	Date time.Time // midnight in the confirmation timezone
	Slot string    // default slot for the confirmation time
}

// ParseCutoffTime parses "HH:MM", tolerating surrounding JSON quotes and
// whitespace. Malformed values fall back to the 12:00 default so a bad
// setting can never block a payment confirmation.
func ParseCutoffTime(raw string) (hour, minute int) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, `"`)
	cleaned = strings.TrimSpace(cleaned)

	h, m, err := splitCutoff(cleaned)
	if err != nil {
		if cleaned != "" {
			logger.Warnw("delivery_cutoff_invalid", "value", raw, "fallback", constants.DefaultDeliveryCutoff)
		}
		h, m, _ = splitCutoff(constants.DefaultDeliveryCutoff)
	}
	return h, m
}

func splitCutoff(value string) (int, int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("cutoff must be HH:MM, got %q", value)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("cutoff hour invalid: %q", value)
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("cutoff minute invalid: %q", value)
	}
	return h, m, nil
}

// ComputeDeliverySchedule assigns the delivery date and default slot for a
// payment confirmed at confirmedAt.
//
// Confirmations at or before the cutoff keep the same day and default to the
// afternoon slot; later confirmations start from the next day and default to
// the morning slot. A configured DefaultTimeSlot replaces the cutoff-derived
// slot. The tentative date then advances one day at a time while it lands on
// a weekend or configured holiday.
func ComputeDeliverySchedule(confirmedAt time.Time, cfg DeliveryConfig) (DeliverySchedule, error) {
	cutoffHour, cutoffMinute := ParseCutoffTime(cfg.CutoffTime)
	cutoffMinutes := cutoffHour*60 + cutoffMinute
	confirmedMinutes := confirmedAt.Hour()*60 + confirmedAt.Minute()

	date := time.Date(confirmedAt.Year(), confirmedAt.Month(), confirmedAt.Day(), 0, 0, 0, 0, confirmedAt.Location())
	slot := constants.TimeSlotAfternoon
	if confirmedMinutes > cutoffMinutes {
		date = date.AddDate(0, 0, 1)
		slot = constants.TimeSlotMorning
	}
	switch cfg.DefaultTimeSlot {
	case constants.TimeSlotMorning, constants.TimeSlotAfternoon:
		slot = cfg.DefaultTimeSlot
	}

	holidays := make(map[string]struct{}, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		trimmed := strings.TrimSpace(h)
		if trimmed == "" {
			continue
		}
		holidays[trimmed] = struct{}{}
	}

	for i := 0; ; i++ {
		if i >= deliveryDateSearchLimit {
			return DeliverySchedule{}, ErrNoBusinessDay
		}
		if isBusinessDay(date, holidays) {
			break
		}
		date = date.AddDate(0, 0, 1)
	}

	return DeliverySchedule{Date: date, Slot: slot}, nil
}

func isBusinessDay(date time.Time, holidays map[string]struct{}) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if _, ok := holidays[date.Format("2006-01-02")]; ok {
		return false
	}
	return true
}
