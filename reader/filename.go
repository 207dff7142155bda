package reader

import (
	"fmt"
	"regexp"
)

// stampPattern matches the _DDMMYYYY_HHMMSS fragment embedded in snapshot
// file names, e.g. "chain_NIFTY_25082026_093000.csv".
var stampPattern = regexp.MustCompile(`_(\d{2})(\d{2})(\d{4})_(\d{2})(\d{2})(\d{2})`)

// TimeFromName extracts the capture timestamp embedded in a source
// identifier. It returns the full stamp formatted "DD-MM-YYYY HH:MM:SS" and
// the short "HHMM" label. ok is false when the name carries no recognizable
// pattern; callers treat such sources as untagged and the merger drops their
// rows. No further validation (date ranges, calendar checks) is performed.
func TimeFromName(name string) (stamp, label string, ok bool) {
	m := stampPattern.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	day, month, year, hh, mi, ss := m[1], m[2], m[3], m[4], m[5], m[6]
	stamp = fmt.Sprintf("%s-%s-%s %s:%s:%s", day, month, year, hh, mi, ss)
	label = hh + mi
	return stamp, label, true
}
