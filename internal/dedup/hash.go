package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentPrefixLength is how many normalized characters feed the content hash.
const ContentPrefixLength = 500

var strictPolicy = newStrictPolicy()

func newStrictPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// HashURL returns the hex SHA-256 of an already normalized URL.
func HashURL(normalized string) string {
	return sha256Hex(normalized)
}

// HashContent hashes the normalized leading text of an article.
func HashContent(text string) string {
	return sha256Hex(NormalizeContent(text))
}

// NormalizeContent strips markup, lowercases, collapses whitespace and truncates the result
// to ContentPrefixLength characters.
func NormalizeContent(text string) string {
	plain := html.UnescapeString(strictPolicy.Sanitize(text))
	collapsed := strings.Join(strings.Fields(strings.ToLower(plain)), " ")

	runes := []rune(collapsed)
	if len(runes) > ContentPrefixLength {
		collapsed = strings.TrimSpace(string(runes[:ContentPrefixLength]))
	}
	return collapsed
}

// StripMarkup removes every tag and collapses whitespace, keeping case.
func StripMarkup(raw string) string {
	plain := html.UnescapeString(strictPolicy.Sanitize(raw))
	return strings.Join(strings.Fields(plain), " ")
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
