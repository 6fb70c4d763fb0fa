package utils

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"quizfunnel/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIP(t *testing.T) {
	tests := map[string]string{
		"203.0.113.7":                "203.0.113.7",
		" 203.0.113.7 , 10.0.0.1":    "203.0.113.7",
		"203.0.113.7:51234":          "203.0.113.7",
		"::ffff:203.0.113.7":         "203.0.113.7",
		"[2001:db8::1]:443":          "2001:db8::1",
		"fe80::1%eth0":               "fe80::1",
		"2001:DB8:0:0:0:0:0:1":       "2001:db8::1",
		"not-an-ip":                  "",
		"":                           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeIP(in), "input %q", in)
	}
}

func TestFirstLanguage(t *testing.T) {
	assert.Equal(t, "pt-br", FirstLanguage("pt-BR,pt;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", FirstLanguage("en;q=0.5"))
	assert.Equal(t, "", FirstLanguage(""))
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("203.0.113.7", "Mozilla/5.0", "pt-br")
	b := Fingerprint("203.0.113.7", "Mozilla/5.0", "pt-br")
	c := Fingerprint("203.0.113.8", "Mozilla/5.0", "pt-br")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestFingerprintWithoutIP(t *testing.T) {
	fp := Fingerprint("", "Mozilla/5.0", "en")
	assert.Len(t, fp, 64)
	assert.NotEqual(t, Fingerprint("", "Mozilla/5.0", "pt"), fp)
}

func TestResolveVisitor(t *testing.T) {
	v := ResolveVisitor("::ffff:198.51.100.2", "Mozilla/5.0", "en-US,en;q=0.9")

	assert.Equal(t, "198.51.100.2", v.IPAddress)
	assert.Equal(t, "en-us", v.Language)
	assert.Equal(t, Fingerprint("198.51.100.2", "Mozilla/5.0", "en-us"), v.Fingerprint)
}

func TestAttributionMergeNeverDowngrades(t *testing.T) {
	p := NewAttributionPolicy([]string{"direct", "Unknown"})

	assert.Equal(t, "facebook", p.Merge("", "facebook"))
	assert.Equal(t, "facebook", p.Merge("direct", "facebook"))
	assert.Equal(t, "direct", p.Merge("", "direct"))
	assert.Equal(t, "facebook", p.Merge("facebook", "direct"))
	assert.Equal(t, "facebook", p.Merge("facebook", "unknown"))
	assert.Equal(t, "facebook", p.Merge("facebook", ""))
	assert.Equal(t, "facebook", p.Merge("facebook", "google"))
	assert.Equal(t, "direct", p.Merge("direct", "UNKNOWN"))
}

func TestMergeAttribution(t *testing.T) {
	p := NewAttributionPolicy([]string{"direct", "unknown"})
	current := models.Attribution{TrafficSource: "direct", CampaignID: "cmp-1"}

	merged, changed := p.MergeAttribution(current, models.Attribution{TrafficSource: "instagram", CampaignID: "direct"})
	assert.True(t, changed)
	assert.Equal(t, "instagram", merged.TrafficSource)
	assert.Equal(t, "cmp-1", merged.CampaignID)

	_, changed = p.MergeAttribution(merged, models.Attribution{TrafficSource: "unknown"})
	assert.False(t, changed)
}

func TestIsBotUserAgent(t *testing.T) {
	assert.True(t, IsBotUserAgent("Googlebot/2.1 (+http://www.google.com/bot.html)"))
	assert.True(t, IsBotUserAgent("Mozilla/5.0 (compatible; Pingdom.com_bot_version_1.4)"))
	assert.False(t, IsBotUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"))
	assert.False(t, IsBotUserAgent(""))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+16502530000", NormalizePhone("+1 650-253-0000", "BR"))
	assert.Equal(t, "+16502530000", NormalizePhone("(650) 253-0000", "us"))
	assert.Equal(t, "123", NormalizePhone("abc 123", "BR"))
	assert.Equal(t, "", NormalizePhone("  ", "BR"))
}

func TestSessionTokens(t *testing.T) {
	tok := GenerateSessionToken()
	assert.True(t, IsValidSessionToken(tok))
	assert.NotEqual(t, tok, GenerateSessionToken())

	assert.True(t, IsValidSessionToken("sess_1700000000000_abc123"))
	assert.False(t, IsValidSessionToken("short"))
	assert.False(t, IsValidSessionToken("has spaces in it"))
	assert.False(t, IsValidSessionToken(strings.Repeat("a", 200)))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 100, ClampLimit(0, 100, 1000))
	assert.Equal(t, 1000, ClampLimit(5000, 100, 1000))
	assert.Equal(t, 20, ClampLimit(20, 100, 1000))
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.GenerateJWT(&models.Operator{ID: 7, Email: "ops@example.com"})
	require.NoError(t, err)

	claims, err := issuer.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.OperatorID)
	assert.Equal(t, "ops@example.com", claims.Email)

	_, err = NewTokenIssuer("other-secret", time.Hour).ValidateJWT(token)
	assert.Error(t, err)
}

func TestTokenIssuerRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.GenerateJWT(&models.Operator{ID: 1, Email: "ops@example.com"})
	require.NoError(t, err)

	_, err = issuer.ValidateJWT(token)
	assert.Error(t, err)
}

func TestIsValidInterval(t *testing.T) {
	assert.True(t, IsValidInterval("Hour"))
	assert.False(t, IsValidInterval("hour"))
	assert.False(t, IsValidInterval("Day; DROP TABLE"))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	got := Truncate(strings.Repeat("a", 63)+"ção", 64)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 63), got)

	assert.Equal(t, "aaaç", Truncate("  aaaçã  ", 6))
	assert.Equal(t, "short", Truncate(" short ", 64))
	assert.Equal(t, "", Truncate("ção", 1))
}
