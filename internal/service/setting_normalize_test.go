package service

import (
	"testing"

	"github.com/hortafresh/backoffice/internal/constants"
)

func TestNormalizeDeliverySettingValidatesCutoff(t *testing.T) {
	normalized := normalizeDeliverySetting(map[string]interface{}{
		constants.SettingFieldCutoffTime: "14:30",
	})
	if normalized[constants.SettingFieldCutoffTime] != "14:30" {
		t.Fatalf("expected cutoff 14:30, got %v", normalized[constants.SettingFieldCutoffTime])
	}

	normalized = normalizeDeliverySetting(map[string]interface{}{
		constants.SettingFieldCutoffTime: "25:99",
	})
	if normalized[constants.SettingFieldCutoffTime] != constants.DefaultDeliveryCutoff {
		t.Fatalf("expected default cutoff, got %v", normalized[constants.SettingFieldCutoffTime])
	}
}

func TestNormalizeDeliverySettingAcceptsQuotedCutoff(t *testing.T) {
	normalized := normalizeDeliverySetting(map[string]interface{}{
		constants.SettingFieldCutoffTime: `"09:15"`,
	})
	if normalized[constants.SettingFieldCutoffTime] != "09:15" {
		t.Fatalf("expected unquoted 09:15, got %v", normalized[constants.SettingFieldCutoffTime])
	}
}

func TestNormalizeDeliverySettingFiltersHolidays(t *testing.T) {
	normalized := normalizeDeliverySetting(map[string]interface{}{
		constants.SettingFieldHolidays: []interface{}{
			"2026-04-21",
			"2026-04-21", // duplicate
			"21/04/2026", // wrong format
			"",
			"2026-12-25",
		},
	})

	holidays, ok := normalized[constants.SettingFieldHolidays].([]interface{})
	if !ok {
		t.Fatalf("expected holiday slice, got %T", normalized[constants.SettingFieldHolidays])
	}
	if len(holidays) != 2 {
		t.Fatalf("expected 2 valid holidays, got %d: %v", len(holidays), holidays)
	}
	if holidays[0] != "2026-04-21" || holidays[1] != "2026-12-25" {
		t.Fatalf("unexpected holidays: %v", holidays)
	}
}

func TestNormalizeDeliverySettingRejectsUnknownSlot(t *testing.T) {
	normalized := normalizeDeliverySetting(map[string]interface{}{
		constants.SettingFieldDefaultTimeSlot: "evening",
	})
	if normalized[constants.SettingFieldDefaultTimeSlot] != "" {
		t.Fatalf("expected empty slot, got %v", normalized[constants.SettingFieldDefaultTimeSlot])
	}
}

func TestNormalizeOrderSettingClampsExpire(t *testing.T) {
	normalized := normalizeOrderSetting(map[string]interface{}{
		constants.SettingFieldChargeExpireMinutes: 999999,
	})
	if normalized[constants.SettingFieldChargeExpireMinutes] != 10080 {
		t.Fatalf("expected clamp to 10080, got %v", normalized[constants.SettingFieldChargeExpireMinutes])
	}

	normalized = normalizeOrderSetting(map[string]interface{}{
		constants.SettingFieldChargeExpireMinutes: "abc",
	})
	if normalized[constants.SettingFieldChargeExpireMinutes] != 30 {
		t.Fatalf("expected default 30, got %v", normalized[constants.SettingFieldChargeExpireMinutes])
	}
}

func TestNormalizeBankSettingPixKeyType(t *testing.T) {
	normalized := normalizeBankSetting(map[string]interface{}{
		"pix_key":      " chave@horta.com ",
		"pix_key_type": "EMAIL",
	})
	if normalized["pix_key"] != "chave@horta.com" {
		t.Fatalf("expected trimmed pix key, got %v", normalized["pix_key"])
	}
	if normalized["pix_key_type"] != constants.PixKeyTypeEmail {
		t.Fatalf("expected email key type, got %v", normalized["pix_key_type"])
	}

	normalized = normalizeBankSetting(map[string]interface{}{"pix_key_type": "telefone"})
	if normalized["pix_key_type"] != "" {
		t.Fatalf("expected unknown key type dropped, got %v", normalized["pix_key_type"])
	}
}

func TestNormalizeFiscalSettingKeepsDigits(t *testing.T) {
	normalized := normalizeFiscalSetting(map[string]interface{}{
		"cnpj":       "12.345.678/0001-90",
		"production": "true",
	})
	if normalized["cnpj"] != "12345678000190" {
		t.Fatalf("expected digits-only cnpj, got %v", normalized["cnpj"])
	}
	if normalized["production"] != true {
		t.Fatalf("expected production=true, got %v", normalized["production"])
	}
}
