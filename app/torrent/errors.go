package torrent

import "errors"

// Rejection reasons. Match wraps exactly one of these when a title does not
// satisfy a rule.
var (
	ErrFansubNotMatching     = errors.New("fansub not matching")
	ErrAnimeTitleNotMatching = errors.New("anime title not matching")
	ErrMissingTag            = errors.New("missing tag")
	ErrParseTorrentTitle     = errors.New("unable to parse episode")
)

var reasons = []struct {
	err  error
	name string
}{
	{ErrFansubNotMatching, "FansubNotMatching"},
	{ErrAnimeTitleNotMatching, "AnimeTitleNotMatching"},
	{ErrMissingTag, "MissingTag"},
	{ErrParseTorrentTitle, "ParseTorrentTitleError"},
}

// Reason returns the rejection name for err, or "" when err is not a rejection.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return ""
}

// IsRejection reports whether err means "this rule does not apply to this title".
func IsRejection(err error) bool {
	return Reason(err) != ""
}
