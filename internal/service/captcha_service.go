package service

import (
	"strings"
	"sync"
	"time"

	"github.com/hortafresh/backoffice/internal/config"
	"github.com/hortafresh/backoffice/internal/constants"

	"github.com/mojocn/base64Captcha"
)

const captchaStoreMaxEntries = 10240

// CaptchaVerifyPayload captcha check request payload
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge image captcha challenge
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaService image captcha for the admin login. The provider can be
// switched off entirely through the captcha setting.
type CaptchaService struct {
	settingService *SettingService
	defaultConfig  config.CaptchaConfig

	mu                  sync.Mutex
	imageStore          base64Captcha.Store
	imageStoreExpireSec int
}

// NewCaptchaService builds a captcha service
func NewCaptchaService(settingService *SettingService, defaultConfig config.CaptchaConfig) *CaptchaService {
	return &CaptchaService{
		settingService: settingService,
		defaultConfig:  defaultConfig,
	}
}

// Provider resolves the active captcha provider
func (s *CaptchaService) Provider() string {
	if s == nil {
		return constants.CaptchaProviderNone
	}
	provider := strings.TrimSpace(s.defaultConfig.Provider)
	if s.settingService != nil {
		if value, err := s.settingService.GetByKey(constants.SettingKeyCaptchaConfig); err == nil && value != nil {
			if stored := settingValueToString(value["provider"]); stored != "" {
				provider = stored
			}
		}
	}
	if provider != constants.CaptchaProviderImage {
		return constants.CaptchaProviderNone
	}
	return provider
}

// Required reports whether the login flow demands a captcha
func (s *CaptchaService) Required() bool {
	return s.Provider() == constants.CaptchaProviderImage
}

// GenerateImageChallenge creates a new image challenge
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if s.Provider() != constants.CaptchaProviderImage {
		return nil, ErrCaptchaConfigInvalid
	}

	image := s.imageConfig()
	driver := base64Captcha.NewDriverString(
		image.Height,
		image.Width,
		image.NoiseCount,
		image.ShowLine,
		image.Length,
		"0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	captcha := base64Captcha.NewCaptcha(driver, s.ensureImageStore(image.ExpireSeconds))
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify checks the login captcha. A disabled provider always passes.
func (s *CaptchaService) Verify(payload CaptchaVerifyPayload) error {
	if s.Provider() != constants.CaptchaProviderImage {
		return nil
	}

	captchaID := strings.TrimSpace(payload.CaptchaID)
	captchaCode := strings.TrimSpace(payload.CaptchaCode)
	if captchaID == "" || captchaCode == "" {
		return ErrCaptchaRequired
	}
	if !s.ensureImageStore(s.imageConfig().ExpireSeconds).Verify(captchaID, captchaCode, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) imageConfig() config.CaptchaImageConfig {
	image := s.defaultConfig.Image
	if image.Length <= 0 {
		image.Length = 5
	}
	if image.Width <= 0 {
		image.Width = 240
	}
	if image.Height <= 0 {
		image.Height = 80
	}
	if image.ExpireSeconds <= 0 {
		image.ExpireSeconds = 300
	}
	return image
}

func (s *CaptchaService) ensureImageStore(expireSeconds int) base64Captcha.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imageStore != nil && s.imageStoreExpireSec == expireSeconds {
		return s.imageStore
	}
	s.imageStore = base64Captcha.NewMemoryStore(captchaStoreMaxEntries, time.Duration(expireSeconds)*time.Second)
	s.imageStoreExpireSec = expireSeconds
	return s.imageStore
}
