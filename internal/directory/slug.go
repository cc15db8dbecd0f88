package directory

import (
	"fmt"
	"strings"
)

const maxSlugLength = 64

// Slugify derives a URL-safe slug from a human name: lowercase, runs of
// non-alphanumerics collapse to single hyphens, trimmed at both ends.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimSuffix(slug[:maxSlugLength], "-")
	}
	return slug
}

// ValidateSlug rejects anything that is not a normalized slug. Path routing
// depends on slugs never containing separators or dots.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidInput, maxSlugLength)
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") || strings.Contains(slug, "--") {
		return fmt.Errorf("%w: malformed slug", ErrInvalidInput)
	}
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return fmt.Errorf("%w: slug may contain only a-z, 0-9 and hyphen", ErrInvalidInput)
		}
	}
	return nil
}
