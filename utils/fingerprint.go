package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	"quizfunnel/api/models"
)

// NormalizeIP returns the canonical form of the first address in raw, with any
// port, zone or IPv4-mapped prefix removed. Unparsable input yields "".
func NormalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	if raw == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	raw = strings.Trim(raw, "[]")
	if i := strings.IndexByte(raw, '%'); i >= 0 {
		raw = raw[:i]
	}

	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

// FirstLanguage returns the first Accept-Language tag without its quality value.
func FirstLanguage(acceptLanguage string) string {
	tag := acceptLanguage
	if i := strings.IndexByte(tag, ','); i >= 0 {
		tag = tag[:i]
	}
	if i := strings.IndexByte(tag, ';'); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(strings.TrimSpace(tag))
}

// Fingerprint is the hex SHA-256 of ip|userAgent|language. It is a soft
// pseudonymous key: collisions behind a shared NAT and user agent are expected.
func Fingerprint(ip, userAgent, language string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{ip, userAgent, language}, "|")))
	return hex.EncodeToString(sum[:])
}

func ResolveVisitor(clientIP, userAgent, acceptLanguage string) models.VisitorContext {
	ip := NormalizeIP(clientIP)
	lang := FirstLanguage(acceptLanguage)
	return models.VisitorContext{
		IPAddress:   ip,
		UserAgent:   userAgent,
		Language:    lang,
		Fingerprint: Fingerprint(ip, userAgent, lang),
	}
}
