// Package permlink mints collision-resistant, human-traceable content
// identifiers without a ledger round trip.
package permlink

import (
	"crypto/rand"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"
)

const (
	maxSlugLen     = 50
	maxPermlinkLen = 255
	randTokenBytes = 6
)

var (
	nonWord        = regexp.MustCompile(`[^a-z0-9\s-]+`)
	whitespaceRuns = regexp.MustCompile(`[\s-]+`)
	validPermlink  = regexp.MustCompile(`^[a-z0-9-]+$`)
)

var ErrEmptyParent = errors.New("parent permlink is required")

// Slugify lowercases the title, strips non-word characters, collapses
// whitespace runs to single hyphens and caps the result at 50 characters.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonWord.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
		s = strings.Trim(s, "-")
	}
	return s
}

// New mints an identifier for a top-level post. The time and random tokens
// are mandatory: the same actor publishing the same title twice within one
// second must still get distinct identifiers.
func New(title, actor string) (string, error) {
	slug := Slugify(title)
	if slug == "" {
		// Untitled content falls back to an actor-scoped identifier.
		slug = Slugify(actor)
	}
	suffix, err := uniqueSuffix()
	if err != nil {
		return "", err
	}
	if slug == "" {
		return suffix, nil
	}
	link := slug + "-" + suffix
	if len(link) > maxPermlinkLen {
		link = link[:maxPermlinkLen]
	}
	return link, nil
}

// NewReply derives a reply identifier from the parent identifier; replies
// carry no title to slugify.
func NewReply(parentPermlink string) (string, error) {
	parent := strings.TrimSpace(parentPermlink)
	if parent == "" {
		return "", ErrEmptyParent
	}
	suffix, err := uniqueSuffix()
	if err != nil {
		return "", err
	}
	link := "re-" + parent + "-" + suffix
	if len(link) > maxPermlinkLen {
		// Keep the suffix intact; it is what guarantees uniqueness.
		keep := maxPermlinkLen - len(suffix) - 1
		link = link[:keep] + "-" + suffix
	}
	return link, nil
}

// Valid reports whether s is a well-formed ledger permlink.
func Valid(s string) bool {
	return s != "" && len(s) <= maxPermlinkLen && validPermlink.MatchString(s)
}

func uniqueSuffix() (string, error) {
	buf := make([]byte, randTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	t := strconv.FormatInt(time.Now().UTC().UnixMilli(), 36)
	r := strings.ToLower(base58.Encode(buf))
	return t + r, nil
}
