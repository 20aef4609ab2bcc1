package ledger

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// IDGenerator derives entry ids. attempt starts at 0 and grows each time the
// previous proposal collided with an existing entry.
type IDGenerator interface {
	NextID(name string, attempt int) string
}

// SlugGenerator derives ids from entry names: lower case, diacritics removed,
// non alphanumerics collapsed to dashes. Collisions get a numeric suffix.
type SlugGenerator struct {
	// Fallback is used when the name has no usable characters.
	Fallback string
}

// NextID returns the slug of name, suffixed with "-2", "-3"... on retries.
func (g SlugGenerator) NextID(name string, attempt int) string {
	base := Slugify(name)
	if base == "" {
		base = g.Fallback
		if base == "" {
			base = "polozka"
		}
	}
	if attempt == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(attempt+1)
}

// Slugify turns "Jídlo a pití" into "jidlo-a-piti".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// UUIDGenerator assigns opaque random ids and ignores the name.
type UUIDGenerator struct{}

// NextID returns a fresh random UUID.
func (UUIDGenerator) NextID(string, int) string {
	return uuid.NewString()
}

// NewIDGenerator returns the generator for scheme ("slug" or "uuid").
func NewIDGenerator(scheme string) IDGenerator {
	if strings.EqualFold(scheme, "uuid") {
		return UUIDGenerator{}
	}
	return SlugGenerator{}
}
