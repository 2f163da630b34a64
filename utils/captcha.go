package utils

import (
	"github.com/mojocn/base64Captcha"
)

var captchas = NewCaptchaStore(0)

// GenerateCaptcha creates a five digit image captcha and returns its id and data URI.
func GenerateCaptcha() (string, string, error) {
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	c := base64Captcha.NewCaptcha(driver, captchas)
	id, b64, _, err := c.Generate()
	return id, b64, err
}

// VerifyCaptcha checks the answer and consumes the captcha whatever the outcome.
func VerifyCaptcha(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return captchas.Verify(id, answer, true)
}
