package utils

import (
	"math/rand"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var avatars = []string{"🌱", "🌿", "🍃", "🌾", "🎋", "🎍", "🌲", "🌳", "🐼", "🦊", "🐨", "🐸"}

// GetRandomEmoji 返回一个随机 emoji 用于默认头像
func GetRandomEmoji() string {
	return avatars[rand.Intn(len(avatars))]
}

// NormalizeEmail trims and lower-cases an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail checks the address with the validator "email" rule.
func ValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// ValidImageURL accepts an absolute http or https URL.
func ValidImageURL(u string) bool {
	return validate.Var(u, "required,http_url") == nil
}

// SplitTags splits a comma separated tag field, dropping empty entries.
func SplitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
