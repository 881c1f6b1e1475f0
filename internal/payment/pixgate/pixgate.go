package pixgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("pixgate config invalid")
	ErrRequestFailed   = errors.New("pixgate request failed")
	ErrResponseInvalid = errors.New("pixgate response invalid")
	ErrChargeNotFound  = errors.New("pixgate charge not found")
)

// Gateway charge status values
const (
	StatusActive    = "ACTIVE"    // awaiting payment
	StatusCompleted = "COMPLETED" // paid
	StatusExpired   = "EXPIRED"   // expired without payment
	StatusRemoved   = "REMOVED"   // removed by the PSP
)

// Config PIX gateway settings
type Config struct {
	GatewayURL    string `json:"gateway_url"`    // e.g. https://pix.example.com
	APIKey        string `json:"api_key"`        // bearer token
	PixKey        string `json:"pix_key"`        // receiving PIX key
	MerchantName  string `json:"merchant_name"`  // shown in the BR Code
	MerchantCity  string `json:"merchant_city"`  // shown in the BR Code
	ExpireMinutes int    `json:"expire_minutes"` // default charge lifetime
}

// CreateInput charge creation input
type CreateInput struct {
	Reference        string // merchant order number
	Amount           string // decimal string, 2 places
	CustomerName     string
	CustomerDocument string // CPF/CNPJ digits
	Description      string
	ExpireMinutes    int // overrides cfg.ExpireMinutes when > 0
}

// CreateResult charge creation result
type CreateResult struct {
	TxID       string                 // gateway transaction id (txid)
	PixPayload string                 // BR Code copy-and-paste string
	QRCodeURL  string                 // rendered QR image
	ExpiresAt  time.Time              // charge expiry
	Raw        map[string]interface{} // raw gateway response
}

// StatusResult charge status query result
type StatusResult struct {
	TxID   string
	Status string // gateway status value
	PaidAt *time.Time
	Raw    map[string]interface{}
}

// ParseConfig decodes the channel config map
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.normalize()
	return &cfg, nil
}

// ValidateConfig checks the required fields
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		return fmt.Errorf("%w: gateway_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("%w: api_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.PixKey) == "" {
		return fmt.Errorf("%w: pix_key is required", ErrConfigInvalid)
	}
	return nil
}

func (c *Config) normalize() {
	c.GatewayURL = strings.TrimRight(strings.TrimSpace(c.GatewayURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.PixKey = strings.TrimSpace(c.PixKey)
	c.MerchantName = strings.TrimSpace(c.MerchantName)
	c.MerchantCity = strings.TrimSpace(c.MerchantCity)
	if c.ExpireMinutes <= 0 {
		c.ExpireMinutes = 30
	}
}

// CreateCharge creates a PIX charge at the gateway
func CreateCharge(ctx context.Context, cfg *Config, input CreateInput) (*CreateResult, error) {
	if cfg == nil {
		return nil, ErrConfigInvalid
	}
	if input.Reference == "" || input.Amount == "" {
		return nil, ErrConfigInvalid
	}
	if _, err := strconv.ParseFloat(input.Amount, 64); err != nil {
		return nil, fmt.Errorf("%w: invalid amount", ErrConfigInvalid)
	}

	expireMinutes := input.ExpireMinutes
	if expireMinutes <= 0 {
		expireMinutes = cfg.ExpireMinutes
	}

	params := map[string]interface{}{
		"reference":      input.Reference,
		"amount":         input.Amount,
		"pix_key":        cfg.PixKey,
		"expire_seconds": expireMinutes * 60,
	}
	if input.CustomerName != "" {
		params["payer_name"] = input.CustomerName
	}
	if input.CustomerDocument != "" {
		params["payer_document"] = input.CustomerDocument
	}
	if input.Description != "" {
		params["description"] = input.Description
	}
	if cfg.MerchantName != "" {
		params["merchant_name"] = cfg.MerchantName
	}
	if cfg.MerchantCity != "" {
		params["merchant_city"] = cfg.MerchantCity
	}

	endpoint := cfg.GatewayURL + "/api/v1/charges"
	respBytes, err := doJSON(ctx, http.MethodPost, endpoint, cfg.APIKey, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		TxID       string `json:"txid"`
		PixPayload string `json:"pix_payload"`
		QRCodeURL  string `json:"qr_code_url"`
		ExpiresAt  string `json:"expires_at"` // RFC3339
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if resp.TxID == "" || resp.PixPayload == "" {
		return nil, fmt.Errorf("%w: missing txid or payload", ErrResponseInvalid)
	}

	expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err != nil {
		expiresAt = time.Now().Add(time.Duration(expireMinutes) * time.Minute)
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)

	return &CreateResult{
		TxID:       resp.TxID,
		PixPayload: resp.PixPayload,
		QRCodeURL:  resp.QRCodeURL,
		ExpiresAt:  expiresAt,
		Raw:        raw,
	}, nil
}

// GetCharge queries a charge at the gateway
func GetCharge(ctx context.Context, cfg *Config, txid string) (*StatusResult, error) {
	if cfg == nil {
		return nil, ErrConfigInvalid
	}
	txid = strings.TrimSpace(txid)
	if txid == "" {
		return nil, ErrConfigInvalid
	}

	endpoint := cfg.GatewayURL + "/api/v1/charges/" + txid
	respBytes, err := doJSON(ctx, http.MethodGet, endpoint, cfg.APIKey, nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, ErrChargeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		TxID   string `json:"txid"`
		Status string `json:"status"`
		PaidAt string `json:"paid_at"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if resp.Status == "" {
		return nil, fmt.Errorf("%w: missing status", ErrResponseInvalid)
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)

	result := &StatusResult{
		TxID:   resp.TxID,
		Status: resp.Status,
		Raw:    raw,
	}
	if resp.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, resp.PaidAt); err == nil {
			result.PaidAt = &paidAt
		}
	}
	return result, nil
}

// ToChargeStatus maps the gateway status onto the local charge status
func ToChargeStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusCompleted:
		return "confirmed"
	case StatusExpired, StatusRemoved:
		return "expired"
	default:
		return "pending"
	}
}

var errNotFound = errors.New("not found")

func doJSON(ctx context.Context, method, endpoint, apiKey string, params map[string]interface{}) ([]byte, error) {
	var reader io.Reader
	if params != nil {
		body, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		reader = strings.NewReader(string(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
