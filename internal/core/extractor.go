package core

import "strings"

const (
	// UnknownField fills artist, title, and raw metadata when nothing usable
	// can be extracted from the feed.
	UnknownField = "Unknown"
	// rawSeparator is the literal token that joins and splits the
	// "artist - title" form of the raw metadata key.
	rawSeparator = " - "
)

// Extract derives a best-effort artist/title/raw triple from a feed item. It
// is total: any input yields a usable result and Raw is never empty. When the
// feed carries both artist and title they are returned verbatim; otherwise
// the free-text field is split on " - " with the first part as the artist.
func Extract(item FeedItem) ExtractedMetadata {
	if item.Artist != "" && item.Title != "" {
		raw := item.Text
		if raw == "" {
			raw = item.Artist + rawSeparator + item.Title
		}
		return ExtractedMetadata{Artist: item.Artist, Title: item.Title, Raw: raw}
	}

	if parts := strings.Split(item.Text, rawSeparator); len(parts) >= 2 {
		return ExtractedMetadata{
			Artist: strings.TrimSpace(parts[0]),
			Title:  strings.TrimSpace(strings.Join(parts[1:], rawSeparator)),
			Raw:    item.Text,
		}
	}

	ext := ExtractedMetadata{Artist: item.Artist, Title: item.Title, Raw: item.Text}
	if ext.Artist == "" {
		ext.Artist = UnknownField
	}
	if ext.Title == "" {
		ext.Title = UnknownField
	}
	if ext.Raw == "" {
		ext.Raw = UnknownField
	}
	return ext
}
