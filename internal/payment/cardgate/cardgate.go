package cardgate

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
	ErrConfigInvalid   = errors.New("cardgate config invalid")
	ErrRequestFailed   = errors.New("cardgate request failed")
	ErrResponseInvalid = errors.New("cardgate response invalid")
	ErrIntentNotFound  = errors.New("cardgate intent not found")
)

// Gateway intent status values
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusExpired  = "expired"
	StatusDeclined = "declined"
	StatusCanceled = "canceled"
)

// Config card gateway settings
type Config struct {
	GatewayURL    string `json:"gateway_url"` // e.g. https://card.example.com
	APIKey        string `json:"api_key"`     // secret key
	ReturnURL     string `json:"return_url"`  // default redirect after checkout
	StatementName string `json:"statement_name"`
	ExpireMinutes int    `json:"expire_minutes"` // checkout session lifetime
}

// CreateInput checkout intent creation input
type CreateInput struct {
	Reference     string // merchant order number
	Amount        string // decimal string, 2 places
	CustomerName  string
	CustomerEmail string
	Description   string
	ReturnURL     string // overrides cfg.ReturnURL when set
	ExpireMinutes int
}

// CreateResult checkout intent creation result
type CreateResult struct {
	IntentID    string
	CheckoutURL string
	ExpiresAt   time.Time
	Raw         map[string]interface{}
}

// StatusResult intent status query result
type StatusResult struct {
	IntentID string
	Status   string
	PaidAt   *time.Time
	Raw      map[string]interface{}
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
	return nil
}

func (c *Config) normalize() {
	c.GatewayURL = strings.TrimRight(strings.TrimSpace(c.GatewayURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.ReturnURL = strings.TrimSpace(c.ReturnURL)
	c.StatementName = strings.TrimSpace(c.StatementName)
	if c.ExpireMinutes <= 0 {
		c.ExpireMinutes = 30
	}
}

// CreateCheckout creates a hosted checkout intent at the gateway
func CreateCheckout(ctx context.Context, cfg *Config, input CreateInput) (*CreateResult, error) {
	if cfg == nil {
		return nil, ErrConfigInvalid
	}
	if input.Reference == "" || input.Amount == "" {
		return nil, ErrConfigInvalid
	}
	if _, err := strconv.ParseFloat(input.Amount, 64); err != nil {
		return nil, fmt.Errorf("%w: invalid amount", ErrConfigInvalid)
	}

	returnURL := input.ReturnURL
	if returnURL == "" {
		returnURL = cfg.ReturnURL
	}
	expireMinutes := input.ExpireMinutes
	if expireMinutes <= 0 {
		expireMinutes = cfg.ExpireMinutes
	}

	params := map[string]interface{}{
		"reference":      input.Reference,
		"amount":         input.Amount,
		"currency":       "BRL",
		"expire_seconds": expireMinutes * 60,
	}
	if returnURL != "" {
		params["return_url"] = returnURL
	}
	if input.CustomerName != "" {
		params["customer_name"] = input.CustomerName
	}
	if input.CustomerEmail != "" {
		params["customer_email"] = input.CustomerEmail
	}
	if input.Description != "" {
		params["description"] = input.Description
	}
	if cfg.StatementName != "" {
		params["statement_name"] = cfg.StatementName
	}

	endpoint := cfg.GatewayURL + "/api/v1/checkout-intents"
	respBytes, err := doJSON(ctx, http.MethodPost, endpoint, cfg.APIKey, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		IntentID    string `json:"intent_id"`
		CheckoutURL string `json:"checkout_url"`
		ExpiresAt   string `json:"expires_at"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if resp.IntentID == "" || resp.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: missing intent_id or checkout_url", ErrResponseInvalid)
	}

	expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err != nil {
		expiresAt = time.Now().Add(time.Duration(expireMinutes) * time.Minute)
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)

	return &CreateResult{
		IntentID:    resp.IntentID,
		CheckoutURL: resp.CheckoutURL,
		ExpiresAt:   expiresAt,
		Raw:         raw,
	}, nil
}

// GetCheckout queries a checkout intent at the gateway
func GetCheckout(ctx context.Context, cfg *Config, intentID string) (*StatusResult, error) {
	if cfg == nil {
		return nil, ErrConfigInvalid
	}
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, ErrConfigInvalid
	}

	endpoint := cfg.GatewayURL + "/api/v1/checkout-intents/" + intentID
	respBytes, err := doJSON(ctx, http.MethodGet, endpoint, cfg.APIKey, nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		IntentID string `json:"intent_id"`
		Status   string `json:"status"`
		PaidAt   string `json:"paid_at"`
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
		IntentID: resp.IntentID,
		Status:   resp.Status,
		Raw:      raw,
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
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusPaid:
		return "confirmed"
	case StatusExpired, StatusCanceled:
		return "expired"
	case StatusDeclined:
		return "failed"
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
