package service

import (
	"strings"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/models"
)

const settingHolidaysMaxCount = 366

// normalizeSettingValueByKey sanitizes values per setting key before storage.
func normalizeSettingValueByKey(key string, value map[string]interface{}) models.JSON {
	switch key {
	case constants.SettingKeyDeliveryConfig:
		return normalizeDeliverySetting(value)
	case constants.SettingKeyOrderConfig:
		return normalizeOrderSetting(value)
	case constants.SettingKeyBankConfig:
		return normalizeBankSetting(value)
	case constants.SettingKeyFiscalConfig:
		return normalizeFiscalSetting(value)
	case constants.SettingKeyPixgateConfig, constants.SettingKeyCardgateConfig:
		return normalizeGatewaySetting(value)
	default:
		return models.JSON(value)
	}
}

// normalizeDeliverySetting validates cutoff, holidays and the default slot.
func normalizeDeliverySetting(value map[string]interface{}) models.JSON {
	normalized := make(models.JSON, len(value)+3)
	for key, raw := range value {
		normalized[key] = raw
	}

	cutoff := constants.DefaultDeliveryCutoff
	if raw, ok := value[constants.SettingFieldCutoffTime]; ok {
		candidate := strings.Trim(settingValueToString(raw), `"`)
		if _, _, err := splitCutoff(strings.TrimSpace(candidate)); err == nil {
			cutoff = strings.TrimSpace(candidate)
		}
	}
	normalized[constants.SettingFieldCutoffTime] = cutoff

	holidays := make([]interface{}, 0)
	seen := make(map[string]struct{})
	for _, raw := range settingValueToStringSlice(value[constants.SettingFieldHolidays]) {
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		holidays = append(holidays, raw)
		if len(holidays) >= settingHolidaysMaxCount {
			break
		}
	}
	normalized[constants.SettingFieldHolidays] = holidays

	slot := settingValueToString(value[constants.SettingFieldDefaultTimeSlot])
	if slot != constants.TimeSlotMorning && slot != constants.TimeSlotAfternoon {
		slot = ""
	}
	normalized[constants.SettingFieldDefaultTimeSlot] = slot

	return normalized
}

// normalizeOrderSetting clamps the charge lifetime.
func normalizeOrderSetting(value map[string]interface{}) models.JSON {
	normalized := make(models.JSON, len(value)+1)
	for key, raw := range value {
		normalized[key] = raw
	}

	expireMinutes := 30
	if raw, ok := value[constants.SettingFieldChargeExpireMinutes]; ok {
		if parsed, err := parseSettingInt(raw); err == nil && parsed > 0 {
			expireMinutes = parsed
		}
	}
	if expireMinutes > 10080 {
		expireMinutes = 10080
	}
	normalized[constants.SettingFieldChargeExpireMinutes] = expireMinutes
	return normalized
}

// normalizeBankSetting trims bank fields and validates the PIX key type.
func normalizeBankSetting(value map[string]interface{}) models.JSON {
	normalized := make(models.JSON, len(value))
	for _, field := range []string{"bank_code", "bank_name", "agency", "account", "account_holder", "pix_key"} {
		normalized[field] = settingValueToString(value[field])
	}

	keyType := strings.ToLower(settingValueToString(value["pix_key_type"]))
	switch keyType {
	case constants.PixKeyTypeCPF, constants.PixKeyTypeCNPJ, constants.PixKeyTypeEmail,
		constants.PixKeyTypePhone, constants.PixKeyTypeRandom:
	default:
		keyType = ""
	}
	normalized["pix_key_type"] = keyType
	return normalized
}

// normalizeFiscalSetting trims fiscal fields, keeping documents digits-only.
func normalizeFiscalSetting(value map[string]interface{}) models.JSON {
	normalized := make(models.JSON, len(value))
	normalized["cnpj"] = keepDigits(settingValueToString(value["cnpj"]))
	normalized["municipal_registration"] = settingValueToString(value["municipal_registration"])
	normalized["service_code"] = settingValueToString(value["service_code"])
	normalized["invoice_series"] = settingValueToString(value["invoice_series"])
	normalized["production"] = parseSettingBool(value["production"])
	return normalized
}

// normalizeGatewaySetting trims string credentials, other values pass through.
func normalizeGatewaySetting(value map[string]interface{}) models.JSON {
	normalized := make(models.JSON, len(value))
	for key, raw := range value {
		if text, ok := raw.(string); ok {
			normalized[key] = strings.TrimSpace(text)
			continue
		}
		normalized[key] = raw
	}
	return normalized
}

func keepDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
