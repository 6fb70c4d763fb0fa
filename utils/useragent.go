package utils

import (
	"strings"

	"github.com/mssola/user_agent"
)

// IsBotUserAgent reports crawlers, uptime monitors and audit tools.
func IsBotUserAgent(userAgent string) bool {
	if userAgent == "" {
		return false
	}

	lower := strings.ToLower(userAgent)
	if strings.Contains(lower, "pingdom") || strings.Contains(lower, "lighthouse") ||
		strings.Contains(lower, "headlesschrome") {
		return true
	}

	return user_agent.New(userAgent).Bot()
}
