package authorization

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mojocn/base64Captcha"
)

// CaptchaChallenge represents an issued captcha image.
type CaptchaChallenge struct {
	ID          string
	ImageBase64 string
	ExpiresAt   time.Time
}

// CaptchaStore manages captcha generation and verification for the register
// and login endpoints.
type CaptchaStore struct {
	captcha *base64Captcha.Captcha
	ttl     time.Duration
}

// NewCaptchaStoreFromEnv reads CAPTCHA_TTL_SECONDS, defaulting to three
// minutes.
func NewCaptchaStoreFromEnv() *CaptchaStore {
	ttl := 3 * time.Minute
	if raw := strings.TrimSpace(os.Getenv("CAPTCHA_TTL_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			ttl = time.Duration(parsed) * time.Second
		}
	}
	return NewCaptchaStore(ttl)
}

// NewCaptchaStore creates an image-based captcha store with the provided ttl
// window.
func NewCaptchaStore(ttl time.Duration) *CaptchaStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	driver := base64Captcha.NewDriverDigit(60, 160, 5, 0.7, 80)
	store := base64Captcha.NewMemoryStore(2048, ttl)
	return &CaptchaStore{
		captcha: base64Captcha.NewCaptcha(driver, store),
		ttl:     ttl,
	}
}

// Issue generates a new captcha challenge.
func (s *CaptchaStore) Issue() CaptchaChallenge {
	if s == nil {
		return CaptchaChallenge{}
	}

	id, image, _, err := s.captcha.Generate()
	if err != nil {
		return CaptchaChallenge{}
	}

	imageData := strings.TrimSpace(image)
	if imageData != "" && !strings.HasPrefix(imageData, "data:") {
		imageData = "data:image/png;base64," + imageData
	}

	return CaptchaChallenge{ID: id, ImageBase64: imageData, ExpiresAt: time.Now().Add(s.ttl)}
}

// Verify checks whether the supplied captcha answer is valid. A nil store
// accepts everything so callers can leave the feature disabled.
func (s *CaptchaStore) Verify(id, answer string) bool {
	if s == nil {
		return true
	}

	trimmedID := strings.TrimSpace(id)
	trimmedAnswer := strings.TrimSpace(answer)
	if trimmedID == "" || trimmedAnswer == "" {
		return false
	}

	return s.captcha.Verify(trimmedID, trimmedAnswer, true)
}
