package models

import (
	"regexp"
	"strings"
)

var (
	phonePattern   = regexp.MustCompile(`^\d{8}$`)
	licensePattern = regexp.MustCompile(`^[A-Za-z]{2}\d{4}$`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	digitPattern   = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidPhoneNumber reports whether s is exactly eight digits.
func ValidPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

// ValidLicenseNumber reports whether s is two letters followed by four digits.
func ValidLicenseNumber(s string) bool {
	return licensePattern.MatchString(s)
}

// PasswordProblems lists the policy rules password fails. Empty means acceptable.
func PasswordProblems(password string) []string {
	var problems []string
	if len(password) < MinPasswordLength {
		problems = append(problems, "at least 8 characters long")
	}
	if !upperPattern.MatchString(password) {
		problems = append(problems, "at least one uppercase letter")
	}
	if !digitPattern.MatchString(password) {
		problems = append(problems, "at least one number")
	}
	if !specialPattern.MatchString(password) {
		problems = append(problems, "at least one special character")
	}
	return problems
}

// ValidPassword reports whether password satisfies the policy.
func ValidPassword(password string) bool {
	return len(PasswordProblems(password)) == 0
}

// NormalizeEmail lowercases and trims an address for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
