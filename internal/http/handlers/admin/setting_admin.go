package admin

import (
	"errors"
	"strings"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/http/response"
	"github.com/hortafresh/backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

// GetSetting returns one configuration block with credentials masked.
func (h *Handler) GetSetting(c *gin.Context) {
	key := c.Param("key")
	if !service.IsAdminSettingKey(key) {
		respondError(c, response.CodeNotFound, "unknown setting key", nil)
		return
	}

	value, err := h.SettingService.GetByKey(key)
	if err != nil {
		respondError(c, response.CodeInternal, "settings fetch failed", err)
		return
	}
	response.Success(c, gin.H{
		"key":   key,
		"value": service.MaskSettingForAdmin(key, value),
	})
}

// UpdateSetting stores a configuration block. Secret fields submitted
// empty keep their stored value.
func (h *Handler) UpdateSetting(c *gin.Context) {
	key := c.Param("key")
	if !service.IsAdminSettingKey(key) {
		respondError(c, response.CodeNotFound, "unknown setting key", nil)
		return
	}

	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	value, err := h.SettingService.UpdateFromAdmin(key, req)
	if err != nil {
		if errors.Is(err, service.ErrSettingInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "settings save failed", err)
		return
	}

	// SMTP changes take effect without a restart.
	if key == constants.SettingKeySMTPConfig && h.EmailService != nil {
		cfg, cfgErr := h.SettingService.GetSMTPConfig(h.Config.Email)
		if cfgErr == nil {
			h.EmailService.SetConfig(&cfg)
		}
	}

	response.Success(c, gin.H{
		"key":   key,
		"value": service.MaskSettingForAdmin(key, value),
	})
}

// SMTPTestSendRequest SMTP test payload.
type SMTPTestSendRequest struct {
	ToEmail string `json:"to_email" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TestSMTPSettings sends a test message through the stored SMTP
// settings. Only the smtp_config key supports a test action.
func (h *Handler) TestSMTPSettings(c *gin.Context) {
	if c.Param("key") != constants.SettingKeySMTPConfig {
		respondError(c, response.CodeNotFound, "setting key does not support test", nil)
		return
	}

	var req SMTPTestSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	toEmail := strings.TrimSpace(req.ToEmail)
	if toEmail == "" {
		respondError(c, response.CodeBadRequest, "invalid email address", nil)
		return
	}

	cfg, err := h.SettingService.GetSMTPConfig(h.Config.Email)
	if err != nil {
		respondError(c, response.CodeInternal, "settings fetch failed", err)
		return
	}
	cfg.Enabled = true
	sender := service.NewEmailService(&cfg)

	if err := sender.SendCustomEmail(toEmail, req.Subject, req.Body); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "invalid email address", nil)
		case errors.Is(err, service.ErrEmailRecipientRejected):
			respondError(c, response.CodeBadRequest, "recipient rejected by the server", nil)
		case errors.Is(err, service.ErrEmailServiceNotConfigured):
			respondError(c, response.CodeBadRequest, "smtp settings incomplete", nil)
		default:
			respondError(c, response.CodeInternal, "test email failed", err)
		}
		return
	}
	response.Success(c, gin.H{"sent": true})
}
