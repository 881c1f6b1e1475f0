package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hortafresh/backoffice/internal/config"
	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/repository"
)

// SettingService settings store business service
type SettingService struct {
	repo repository.SettingRepository
}

// NewSettingService builds a settings service
func NewSettingService(repo repository.SettingRepository) *SettingService {
	return &SettingService{repo: repo}
}

// GetByKey returns the stored value for a key, nil when unset
func (s *SettingService) GetByKey(key string) (models.JSON, error) {
	setting, err := s.repo.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, nil
	}
	return setting.ValueJSON, nil
}

// Update normalizes and stores a setting value
func (s *SettingService) Update(key string, value map[string]interface{}) (models.JSON, error) {
	normalized := normalizeSettingValueByKey(key, value)

	setting, err := s.repo.Upsert(key, normalized)
	if err != nil {
		return nil, err
	}
	return setting.ValueJSON, nil
}

// GetDeliveryConfig resolves the scheduling settings. Missing or broken
// values degrade to the defaults instead of failing.
func (s *SettingService) GetDeliveryConfig() (DeliveryConfig, error) {
	cfg := DeliveryConfig{CutoffTime: constants.DefaultDeliveryCutoff}
	if s == nil {
		return cfg, nil
	}
	value, err := s.GetByKey(constants.SettingKeyDeliveryConfig)
	if err != nil {
		return cfg, err
	}
	if value == nil {
		return cfg, nil
	}
	if raw, ok := value[constants.SettingFieldCutoffTime]; ok {
		if text := settingValueToString(raw); text != "" {
			cfg.CutoffTime = text
		}
	}
	if raw, ok := value[constants.SettingFieldHolidays]; ok {
		cfg.Holidays = settingValueToStringSlice(raw)
	}
	if raw, ok := value[constants.SettingFieldDefaultTimeSlot]; ok {
		cfg.DefaultTimeSlot = settingValueToString(raw)
	}
	return cfg, nil
}

// GetGatewayConfig resolves the stored gateway credentials for a provider
func (s *SettingService) GetGatewayConfig(providerType string) (map[string]interface{}, error) {
	var key string
	switch providerType {
	case constants.PaymentProviderPixgate:
		key = constants.SettingKeyPixgateConfig
	case constants.PaymentProviderCardgate:
		key = constants.SettingKeyCardgateConfig
	default:
		return nil, ErrProviderTypeInvalid
	}
	value, err := s.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, ErrGatewayConfigInvalid
	}
	return map[string]interface{}(value), nil
}

// GetSMTPConfig overlays the stored SMTP settings on top of the file
// defaults. Unset fields keep the default value.
func (s *SettingService) GetSMTPConfig(defaults config.EmailConfig) (config.EmailConfig, error) {
	cfg := defaults
	if s == nil {
		return cfg, nil
	}
	value, err := s.GetByKey(constants.SettingKeySMTPConfig)
	if err != nil {
		return cfg, err
	}
	if value == nil {
		return cfg, nil
	}
	if raw, ok := value["enabled"]; ok {
		cfg.Enabled = parseSettingBool(raw)
	}
	if text := settingValueToString(value["host"]); text != "" {
		cfg.Host = text
	}
	if raw, ok := value["port"]; ok {
		if port, err := parseSettingInt(raw); err == nil && port > 0 {
			cfg.Port = port
		}
	}
	if text := settingValueToString(value["username"]); text != "" {
		cfg.Username = text
	}
	if text := settingValueToString(value["password"]); text != "" {
		cfg.Password = text
	}
	if text := settingValueToString(value["from"]); text != "" {
		cfg.From = text
	}
	if text := settingValueToString(value["from_name"]); text != "" {
		cfg.FromName = text
	}
	if raw, ok := value["use_tls"]; ok {
		cfg.UseTLS = parseSettingBool(raw)
	}
	if raw, ok := value["use_ssl"]; ok {
		cfg.UseSSL = parseSettingBool(raw)
	}
	return cfg, nil
}

// GetChargeExpireMinutes returns the configured charge lifetime
func (s *SettingService) GetChargeExpireMinutes(defaultValue int) (int, error) {
	if s == nil {
		return defaultValue, nil
	}
	value, err := s.GetByKey(constants.SettingKeyOrderConfig)
	if err != nil {
		return defaultValue, err
	}
	if value == nil {
		return defaultValue, nil
	}
	raw, ok := value[constants.SettingFieldChargeExpireMinutes]
	if !ok {
		return defaultValue, nil
	}
	minutes, err := parseSettingInt(raw)
	if err != nil {
		return defaultValue, err
	}
	if minutes <= 0 {
		return defaultValue, nil
	}
	return minutes, nil
}

// adminSettingKeys keys the admin settings API accepts.
var adminSettingKeys = map[string]struct{}{
	constants.SettingKeyDeliveryConfig: {},
	constants.SettingKeyFiscalConfig:   {},
	constants.SettingKeyBankConfig:     {},
	constants.SettingKeyOrderConfig:    {},
	constants.SettingKeySMTPConfig:     {},
	constants.SettingKeyCaptchaConfig:  {},
	constants.SettingKeyPixgateConfig:  {},
	constants.SettingKeyCardgateConfig: {},
}

// settingSecretFields credential fields blanked on admin reads.
var settingSecretFields = map[string][]string{
	constants.SettingKeySMTPConfig:     {"password"},
	constants.SettingKeyPixgateConfig:  {"api_key"},
	constants.SettingKeyCardgateConfig: {"api_key"},
}

// IsAdminSettingKey reports whether the admin API may read or write the key.
func IsAdminSettingKey(key string) bool {
	_, ok := adminSettingKeys[key]
	return ok
}

// MaskSettingForAdmin blanks credentials, keeping a has_<field> flag so the
// UI can tell configured from empty.
func MaskSettingForAdmin(key string, value models.JSON) models.JSON {
	if value == nil {
		return models.JSON{}
	}
	masked := make(models.JSON, len(value)+1)
	for field, raw := range value {
		masked[field] = raw
	}
	for _, field := range settingSecretFields[key] {
		masked["has_"+field] = settingValueToString(value[field]) != ""
		masked[field] = ""
	}
	return masked
}

// UpdateFromAdmin stores a setting submitted through the admin API. Secret
// fields submitted empty keep their stored value, so the UI can save a
// masked form without wiping credentials.
func (s *SettingService) UpdateFromAdmin(key string, value map[string]interface{}) (models.JSON, error) {
	secrets := settingSecretFields[key]
	if len(secrets) > 0 {
		stored, err := s.GetByKey(key)
		if err != nil {
			return nil, err
		}
		for _, field := range secrets {
			if settingValueToString(value[field]) == "" && stored != nil {
				value[field] = stored[field]
			}
			delete(value, "has_"+field)
		}
	}
	return s.Update(key, value)
}

func parseSettingInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
		if f, err := v.Float64(); err == nil {
			return int(f), nil
		}
		return 0, fmt.Errorf("invalid json number")
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("empty string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, err
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported value type")
	}
}

func parseSettingBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

func settingValueToString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func settingValueToStringSlice(value interface{}) []string {
	listRaw, ok := value.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(listRaw))
	for _, item := range listRaw {
		if text := settingValueToString(item); text != "" {
			result = append(result, text)
		}
	}
	return result
}
