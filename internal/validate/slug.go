package validate

import "regexp"

// Length limits for catalog slugs and compound page tokens.
const (
	MaxSlugLength  = 128
	MaxTokenLength = 2*MaxSlugLength + 16
)

// slugPattern matches lowercase alphanumeric words joined by single dashes.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Slug validates a catalog slug such as "hubspot" or "project-management".
func Slug(s string) (string, error) {
	return String(s, StringConstraints{
		MinLength:      1,
		MaxLength:      MaxSlugLength,
		AllowedPattern: slugPattern,
	})
}

// Token validates a page token: a slug, an "a-vs-b" comparison or a
// "{category}-tools-for-{use-case}" best-for key. Only the character set
// and length are checked; splitting is left to the linking package.
func Token(s string) (string, error) {
	return String(s, StringConstraints{
		MinLength:      1,
		MaxLength:      MaxTokenLength,
		AllowedPattern: slugPattern,
	})
}
