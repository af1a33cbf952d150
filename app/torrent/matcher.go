package torrent

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const separator = " - "

// Match checks title against rule and returns the episode number and tags of
// the release. Stages run in order and the first failing one decides the
// rejection, so a title from another fansub never reaches episode parsing.
func Match(title string, rule Rule) (Metadata, error) {
	rest, err := stripFansub(title, rule.Fansub)
	if err != nil {
		return Metadata{}, err
	}

	rest, err = stripShowName(rest, rule.Name)
	if err != nil {
		return Metadata{}, err
	}

	episodeAndMetadata := extractRemainder(rest)

	episode, err := parseEpisode(episodeAndMetadata)
	if err != nil {
		return Metadata{}, err
	}

	tags := extractTags(episodeAndMetadata)
	if err := missingTag(tags, rule.Keywords); err != nil {
		return Metadata{}, err
	}

	return Metadata{Episode: episode, Tags: tags}, nil
}

// stripFansub removes the leading "[fansub]" token.
func stripFansub(title, fansub string) (string, error) {
	token := "[" + fansub + "]"
	if !strings.HasPrefix(title, token) {
		return "", fmt.Errorf("%w: expected %q", ErrFansubNotMatching, token)
	}
	return strings.TrimSpace(title[len(token):]), nil
}

// stripShowName removes the show name, which must be an exact prefix.
func stripShowName(rest, name string) (string, error) {
	if !strings.HasPrefix(rest, name) {
		return "", fmt.Errorf("%w: expected %q", ErrAnimeTitleNotMatching, name)
	}
	return rest[len(name):], nil
}

// extractRemainder drops one " - " between show name and episode.
func extractRemainder(rest string) string {
	return strings.TrimSpace(strings.TrimPrefix(rest, separator))
}

func parseEpisode(episodeAndMetadata string) (float64, error) {
	token := episodeAndMetadata
	if i := strings.IndexAny(token, "(["); i >= 0 {
		token = token[:i]
	}
	token = strings.TrimSpace(token)

	// S01E04 -> 04
	if i := strings.IndexByte(token, 'E'); i >= 0 {
		token = token[i+1:]
	}

	if !isDecimal(token) {
		return 0, fmt.Errorf("%w: %q", ErrParseTorrentTitle, token)
	}

	episode, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrParseTorrentTitle, token)
	}
	if math.IsNaN(episode) || math.IsInf(episode, 0) {
		return 0, fmt.Errorf("%w: %q is not a finite number", ErrParseTorrentTitle, token)
	}

	return episode, nil
}

// isDecimal reports whether token is a plain decimal number: an optional sign,
// digits with at most one '.', and an optional exponent. ParseFloat alone
// would also take hex floats, underscores and "inf".
func isDecimal(token string) bool {
	i := 0
	if i < len(token) && (token[i] == '+' || token[i] == '-') {
		i++
	}

	digits := 0
	dot := false
	for ; i < len(token); i++ {
		c := token[i]
		if c >= '0' && c <= '9' {
			digits++
		} else if c == '.' && !dot {
			dot = true
		} else {
			break
		}
	}
	if digits == 0 {
		return false
	}

	if i < len(token) && (token[i] == 'e' || token[i] == 'E') {
		i++
		if i < len(token) && (token[i] == '+' || token[i] == '-') {
			i++
		}
		expDigits := 0
		for ; i < len(token) && token[i] >= '0' && token[i] <= '9'; i++ {
			expDigits++
		}
		if expDigits == 0 {
			return false
		}
	}

	return i == len(token)
}

// extractTags splits everything from the first bracket on into tags, each
// ending at a closing bracket. Text between two tags is kept as part of the
// following one and an unterminated tail is returned as is.
func extractTags(episodeAndMetadata string) []string {
	start := strings.IndexAny(episodeAndMetadata, "([")
	if start < 0 {
		return []string{}
	}

	// Brackets are ASCII, so slicing by byte keeps every tag verbatim, even
	// around invalid UTF-8.
	tags := []string{}
	tagStart := start
	for i := start; i < len(episodeAndMetadata); i++ {
		if c := episodeAndMetadata[i]; c == ']' || c == ')' {
			tags = append(tags, episodeAndMetadata[tagStart:i+1])
			tagStart = i + 1
		}
	}

	if tagStart < len(episodeAndMetadata) {
		tags = append(tags, episodeAndMetadata[tagStart:])
	}

	return tags
}

func missingTag(tags, keywords []string) error {
	for _, keyword := range keywords {
		if !slices.Contains(tags, keyword) {
			return fmt.Errorf("%w: %s", ErrMissingTag, keyword)
		}
	}
	return nil
}
