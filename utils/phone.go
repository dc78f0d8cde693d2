package utils

import (
	"regexp"
	"strings"
)

var nonDigit = regexp.MustCompile(`\D`)

// NormalizePhoneNumber normalizes a guardian phone number for storage:
// digits only, leading zeros trimmed, default country code prefixed.
func NormalizePhoneNumber(phoneNumber string) string {
	digits := nonDigit.ReplaceAllString(phoneNumber, "")
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, "91") || len(digits) <= 10 {
		digits = strings.TrimLeft(digits, "0")
		if len(digits) == 10 {
			digits = "91" + digits
		}
	}
	return digits
}

// ValidatePhoneNumber accepts a 10-digit local number.
func ValidatePhoneNumber(phoneNumber string) bool {
	cleaned := nonDigit.ReplaceAllString(phoneNumber, "")
	cleaned = strings.TrimPrefix(cleaned, "91")
	return len(cleaned) == 10
}
