package core

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// noiseTokens is the closed set of production/edition annotations stripped
// from titles. Longer alternatives come first so the leftmost-first matcher
// prefers "radio edit" over "edit" and "extended mix" over "mix".
const noiseTokens = `radio edit|remaster(?:ed)?(?:\s+\d{4})?|\d{4}\s+remaster(?:ed)?|extended mix|extended|edit|clean|explicit|mono|stereo|mix|version`

var (
	parenFeatRegex  = regexp.MustCompile(`(?i)\s*[(\[]\s*(?:feat\.?|ft\.?)\s+([^)\]]+)[)\]]`)
	inlineFeatRegex = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.?)\s+(.+)$`)
	featTokenRegex  = regexp.MustCompile(`(?i)\b(?:feat|ft)\b\.?`)

	bracketNoiseRegex  = regexp.MustCompile(`(?i)\s*[(\[]\s*(?:` + noiseTokens + `)\s*[)\]]`)
	trailingNoiseRegex = regexp.MustCompile(`(?i)\s*[-–—]\s*(?:` + noiseTokens + `)\s*$`)
	danglingDashRegex  = regexp.MustCompile(`\s*[-–—]\s*$`)
	multiSpaceRegex    = regexp.MustCompile(`\s{2,}`)
)

// Sanitize normalizes an artist/title pair: a featured-artist marker moves
// from the artist into the title, noise tokens are stripped from the title,
// and whitespace collapses. It is total and idempotent; applying it to its
// own output yields the same output.
//
// Only the first featured-artist marker is honored, parenthesized before
// inline; a second marker stays where it is.
func Sanitize(artist, title string) SanitizedMetadata {
	artist = norm.NFC.String(strings.TrimSpace(artist))
	title = norm.NFC.String(strings.TrimSpace(title))

	var featured string
	if loc := parenFeatRegex.FindStringSubmatchIndex(artist); loc != nil {
		featured = strings.TrimSpace(artist[loc[2]:loc[3]])
		artist = artist[:loc[0]] + " " + artist[loc[1]:]
	} else if loc := inlineFeatRegex.FindStringSubmatchIndex(artist); loc != nil {
		featured = strings.TrimSpace(artist[loc[2]:loc[3]])
		artist = artist[:loc[0]]
	}

	if featured != "" && !featTokenRegex.MatchString(title) {
		title += " (feat. " + featured + ")"
	}

	title = bracketNoiseRegex.ReplaceAllString(title, " ")
	title = trailingNoiseRegex.ReplaceAllString(title, "")
	title = multiSpaceRegex.ReplaceAllString(title, " ")
	title = strings.TrimSpace(title)
	title = danglingDashRegex.ReplaceAllString(title, "")
	title = strings.TrimSpace(title)

	artist = multiSpaceRegex.ReplaceAllString(artist, " ")
	artist = strings.TrimSpace(artist)

	return SanitizedMetadata{Artist: artist, Title: title}
}
