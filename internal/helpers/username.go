package helpers

import "strings"

const shortIDLength = 8

// MaskEmail hides most of the local part of an email address
// Example: "john.doe@example.com" -> "jo***@example.com"
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}

	local := email[:at]
	visible := 2
	if len(local) <= visible {
		visible = 1
	}
	return local[:visible] + "***" + email[at:]
}

// ShortID returns the display prefix of a session identifier
func ShortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}
