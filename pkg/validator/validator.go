package validator

import (
	"net/url"
	"strings"
)

// ValidateURL checks that a destination URL is a well-formed absolute
// http(s) URL. Called at creation time, before any code is generated.
func ValidateURL(urlStr string) error {
	urlStr = strings.TrimSpace(urlStr)

	if urlStr == "" {
		return ErrEmptyURL
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ErrInvalidURL
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidScheme
	}

	if parsed.Host == "" {
		return ErrInvalidHost
	}

	return nil
}

// ValidateCode checks that a short code is 4-20 alphanumeric characters.
func ValidateCode(code string) error {
	if len(code) < 4 || len(code) > 20 {
		return ErrInvalidCodeLength
	}

	for _, char := range code {
		if !isAlphanumeric(char) {
			return ErrInvalidCodeFormat
		}
	}

	return nil
}

func isAlphanumeric(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9')
}
