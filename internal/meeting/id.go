package meeting

import (
	"regexp"
	"strings"
	"time"
)

// idPlaceholder separates the start time from the slug. It is reserved for a
// future disambiguation token; same-minute meetings with equal titles share an ID.
const idPlaceholder = "x"

const idTimeLayout = "200601021504"

var (
	// Agencies append these to titles when a meeting changes, e.g. "Board Meeting - Canceled".
	statusMarkerPattern = regexp.MustCompile(`(?i)\s*[:-]?\s*(cancel+ed|rescheduled|postponed)\s*[:-]?\s*`)
	nonSlugPattern      = regexp.MustCompile(`[^a-z0-9]+`)
)

// DeriveID builds the stable identifier "{source}/{YYYYMMDDHHmm}/x/{slug}".
// The start time is formatted from its wall clock, with no zone suffix.
func DeriveID(sourceName string, start time.Time, title string) string {
	return strings.Join([]string{
		sourceName,
		start.Format(idTimeLayout),
		idPlaceholder,
		Slug(title),
	}, "/")
}

// Slug normalizes a title to lowercase ASCII words joined by single underscores.
// Status markers are removed first so cancelling a meeting keeps its ID.
func Slug(title string) string {
	cleaned := strings.TrimSpace(statusMarkerPattern.ReplaceAllString(title, " "))
	slug := nonSlugPattern.ReplaceAllString(strings.ToLower(cleaned), "_")
	return strings.Trim(slug, "_")
}
