package types

import (
	"fmt"
	"regexp"
	"strings"
)

// IDPrefix is the scheme every canonical id starts with.
const IDPrefix = "entity/"

var slugCleanRe = regexp.MustCompile(`[^a-z0-9-]+`)
var dashRunRe = regexp.MustCompile(`-{2,}`)

// MakeID builds a canonical id from a type and slug.
func MakeID(t EntityType, slug string) string {
	return fmt.Sprintf("entity/%s/%s", t, slug)
}

// SplitID splits a canonical id into its type and slug. Returns an error
// for anything that is not entity/<type>/<slug>.
func SplitID(id string) (EntityType, string, error) {
	parts := strings.Split(id, "/")
	if len(parts) != 3 || parts[0] != "entity" || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("%w: invalid canonical id %q", ErrMalformed, id)
	}
	return EntityType(parts[1]), parts[2], nil
}

// IsCanonicalID reports whether ref already has canonical shape.
func IsCanonicalID(ref string) bool {
	_, _, err := SplitID(ref)
	return err == nil
}

// Slugify lowers a human name into slug form: lower-cased, spaces and
// underscores to hyphens, everything outside [a-z0-9-] dropped.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = slugCleanRe.ReplaceAllString(s, "")
	s = dashRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
