// Package identity maps rider display names ("VAN AERT Wout") to the
// canonical slugs used by the results site ("wout-van-aert").
package identity

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed overrides.yaml
var defaultOverrides []byte

// Letters that carry no combining mark and so survive decomposition.
var foldReplacer = strings.NewReplacer(
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"æ", "ae", "Æ", "AE",
	"ß", "ss",
)

// Slugger resolves names to slugs. Safe for concurrent use; it is not
// modified after construction.
type Slugger struct {
	overrides map[string]string
}

// Option applies a configuration option to the Slugger.
type Option func(*Slugger)

// WithOverrides adds name → slug exceptions on top of the embedded table.
func WithOverrides(m map[string]string) Option {
	return func(s *Slugger) {
		for name, slug := range m {
			s.overrides[strings.TrimSpace(name)] = slug
		}
	}
}

// New returns a Slugger seeded with the embedded override table.
func New(opts ...Option) *Slugger {
	s := &Slugger{overrides: make(map[string]string)}
	if m, err := ParseOverrides(strings.NewReader(string(defaultOverrides))); err == nil {
		WithOverrides(m)(s)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseOverrides reads a YAML mapping of display name to slug.
func ParseOverrides(r io.Reader) (map[string]string, error) {
	m := make(map[string]string)
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse name overrides: %w", err)
	}
	return m, nil
}

// LoadOverrides reads an override table from path.
func LoadOverrides(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open name overrides: %w", err)
	}
	defer f.Close()
	return ParseOverrides(f)
}

// Slug returns the canonical slug for name. All-uppercase tokens are surname
// parts and move after the given names. The mapping is deterministic, and
// applying it to its own output returns that output unchanged.
func (s *Slugger) Slug(name string) string {
	name = strings.TrimSpace(name)
	if slug, ok := s.overrides[name]; ok {
		return slug
	}

	var given, surname []string
	for _, tok := range strings.Fields(name) {
		if isUpperToken(tok) {
			surname = append(surname, tok)
		} else {
			given = append(given, tok)
		}
	}
	return slugify(strings.Join(append(given, surname...), " "))
}

func isUpperToken(tok string) bool {
	hasLetter := false
	for _, r := range tok {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, foldReplacer.Replace(s))
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
