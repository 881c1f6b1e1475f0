package admin

import (
	"github.com/hortafresh/backoffice/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetCaptchaConfig tells the login page whether a captcha is required.
func (h *Handler) GetCaptchaConfig(c *gin.Context) {
	provider := ""
	required := false
	if h.CaptchaService != nil {
		provider = h.CaptchaService.Provider()
		required = h.CaptchaService.Required()
	}
	response.Success(c, gin.H{
		"provider": provider,
		"required": required,
	})
}

// GenerateCaptcha issues an image challenge for the login form.
func (h *Handler) GenerateCaptcha(c *gin.Context) {
	if h.CaptchaService == nil || !h.CaptchaService.Required() {
		respondError(c, response.CodeBadRequest, "captcha disabled", nil)
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		respondError(c, response.CodeInternal, "captcha generation failed", err)
		return
	}
	response.Success(c, challenge)
}
