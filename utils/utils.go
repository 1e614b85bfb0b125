package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

// MaskPhone keeps the last four digits of a phone number visible
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
