package service

import (
	"errors"
	"testing"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
)

func mustSchedule(t *testing.T, confirmedAt time.Time, cfg DeliveryConfig) DeliverySchedule {
	t.Helper()
	schedule, err := ComputeDeliverySchedule(confirmedAt, cfg)
	if err != nil {
		t.Fatalf("compute schedule failed: %v", err)
	}
	return schedule
}

func TestComputeDeliveryScheduleBeforeCutoffSameDay(t *testing.T) {
	// Wednesday 2026-03-04 10:30
	confirmedAt := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	schedule := mustSchedule(t, confirmedAt, DeliveryConfig{CutoffTime: "12:00"})

	expected := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	if !schedule.Date.Equal(expected) {
		t.Fatalf("expected same-day delivery %v, got %v", expected, schedule.Date)
	}
	if schedule.Slot != constants.TimeSlotAfternoon {
		t.Fatalf("expected afternoon slot, got %s", schedule.Slot)
	}
}

func TestComputeDeliveryScheduleAtCutoffStillSameDay(t *testing.T) {
	confirmedAt := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	schedule := mustSchedule(t, confirmedAt, DeliveryConfig{CutoffTime: "12:00"})

	expected := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	if !schedule.Date.Equal(expected) {
		t.Fatalf("expected same-day delivery at exact cutoff, got %v", schedule.Date)
	}
	if schedule.Slot != constants.TimeSlotAfternoon {
		t.Fatalf("expected afternoon slot at exact cutoff, got %s", schedule.Slot)
	}
}

func TestComputeDeliveryScheduleAfterCutoffNextDay(t *testing.T) {
	confirmedAt := time.Date(2026, 3, 4, 12, 1, 0, 0, time.UTC)
	schedule := mustSchedule(t, confirmedAt, DeliveryConfig{CutoffTime: "12:00"})

	expected := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if !schedule.Date.Equal(expected) {
		t.Fatalf("expected next-day delivery %v, got %v", expected, schedule.Date)
	}
	if schedule.Slot != constants.TimeSlotMorning {
		t.Fatalf("expected morning slot, got %s", schedule.Slot)
	}
}

func TestComputeDeliveryScheduleConfiguredSlotOverridesCutoff(t *testing.T) {
	// before the cutoff the rule alone would pick afternoon
	confirmedAt := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	schedule := mustSchedule(t, confirmedAt, DeliveryConfig{
		CutoffTime:      "12:00",
		DefaultTimeSlot: constants.TimeSlotMorning,
	})
	if !schedule.Date.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("configured slot must not move the date, got %v", schedule.Date)
	}
	if schedule.Slot != constants.TimeSlotMorning {
		t.Fatalf("expected configured morning slot, got %s", schedule.Slot)
	}

	// after the cutoff the rule alone would pick morning
	confirmedAt = time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	schedule = mustSchedule(t, confirmedAt, DeliveryConfig{
		CutoffTime:      "12:00",
		DefaultTimeSlot: constants.TimeSlotAfternoon,
	})
	if !schedule.Date.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected next-day delivery, got %v", schedule.Date)
	}
	if schedule.Slot != constants.TimeSlotAfternoon {
		t.Fatalf("expected configured afternoon slot, got %s", schedule.Slot)
	}
}

func TestComputeDeliveryScheduleIgnoresUnknownConfiguredSlot(t *testing.T) {
	confirmedAt := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	schedule := mustSchedule(t, confirmedAt, DeliveryConfig{
		CutoffTime:      "12:00",
		DefaultTimeSlot: "evening",
	})
	if schedule.Slot != constants.TimeSlotMorning {
		t.Fatalf("unknown slot must fall back to the cutoff rule, got %s", schedule.Slot)
	}
}

func TestComputeDeliveryScheduleFridayAfternoonSkipsToMonday(t *testing.T) {
	// Friday 2026-03-06 13:00 with a 12:00 cutoff
	confirmedAt := time.Date(2026, 3, 6, 13, 0, 0, 0, time.UTC)
	schedule := mustSchedule(t, confirmedAt, DeliveryConfig{CutoffTime: "12:00"})

	expected := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) // Monday
	if !schedule.Date.Equal(expected) {
		t.Fatalf("expected Monday %v, got %v", expected, schedule.Date)
	}
	if schedule.Slot != constants.TimeSlotMorning {
		t.Fatalf("expected morning slot, got %s", schedule.Slot)
	}
}

func TestComputeDeliveryScheduleSkipsHolidayThenWeekend(t *testing.T) {
	// Thursday 2026-03-05 14:00; Friday is a holiday, so the date should
	// walk Friday -> Saturday -> Sunday -> Monday one day at a time.
	confirmedAt := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	cfg := DeliveryConfig{
		CutoffTime: "12:00",
		Holidays:   []string{"2026-03-06"},
	}
	schedule := mustSchedule(t, confirmedAt, cfg)

	expected := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !schedule.Date.Equal(expected) {
		t.Fatalf("expected Monday %v, got %v", expected, schedule.Date)
	}
}

func TestComputeDeliveryScheduleConsecutiveHolidays(t *testing.T) {
	// Monday confirmed before cutoff, Monday through Wednesday are holidays
	confirmedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cfg := DeliveryConfig{
		CutoffTime: "12:00",
		Holidays:   []string{"2026-03-02", "2026-03-03", "2026-03-04"},
	}
	schedule := mustSchedule(t, confirmedAt, cfg)

	expected := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC) // Thursday
	if !schedule.Date.Equal(expected) {
		t.Fatalf("expected Thursday %v, got %v", expected, schedule.Date)
	}
	if schedule.Slot != constants.TimeSlotAfternoon {
		t.Fatalf("slot should follow confirmation time, not the shifted date; got %s", schedule.Slot)
	}
}

func TestComputeDeliveryScheduleQuotedCutoff(t *testing.T) {
	confirmedAt := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	schedule := mustSchedule(t, confirmedAt, DeliveryConfig{CutoffTime: `"14:30"`})

	expected := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if !schedule.Date.Equal(expected) {
		t.Fatalf("quoted cutoff should parse; expected %v, got %v", expected, schedule.Date)
	}
}

func TestComputeDeliveryScheduleMalformedCutoffFallsBack(t *testing.T) {
	for _, raw := range []string{"", "25:00", "12h00", "noon", "12:75"} {
		confirmedAt := time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)
		schedule := mustSchedule(t, confirmedAt, DeliveryConfig{CutoffTime: raw})

		// 11:00 is before the 12:00 fallback, so same day / afternoon
		expected := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
		if !schedule.Date.Equal(expected) {
			t.Fatalf("cutoff %q: expected fallback same-day %v, got %v", raw, expected, schedule.Date)
		}
		if schedule.Slot != constants.TimeSlotAfternoon {
			t.Fatalf("cutoff %q: expected afternoon slot, got %s", raw, schedule.Slot)
		}
	}
}

func TestComputeDeliveryScheduleSearchLimit(t *testing.T) {
	// Every candidate day marked as a holiday: the search must stop
	confirmedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	holidays := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		holidays = append(holidays, confirmedAt.AddDate(0, 0, i).Format("2006-01-02"))
	}

	_, err := ComputeDeliverySchedule(confirmedAt, DeliveryConfig{CutoffTime: "12:00", Holidays: holidays})
	if !errors.Is(err, ErrNoBusinessDay) {
		t.Fatalf("expected ErrNoBusinessDay, got %v", err)
	}
}

func TestParseCutoffTime(t *testing.T) {
	cases := []struct {
		raw    string
		hour   int
		minute int
	}{
		{"12:00", 12, 0},
		{" 08:15 ", 8, 15},
		{`"17:45"`, 17, 45},
		{"", 12, 0},
		{"garbage", 12, 0},
	}
	for _, c := range cases {
		h, m := ParseCutoffTime(c.raw)
		if h != c.hour || m != c.minute {
			t.Fatalf("cutoff %q: expected %02d:%02d, got %02d:%02d", c.raw, c.hour, c.minute, h, m)
		}
	}
}
