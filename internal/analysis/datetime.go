package analysis

import (
	"strings"
	"time"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"github.com/araddon/dateparse"
)

// DatetimeFormat is one fixed parse pattern from the candidate list, or
// NoFixedFormat when values only parse with the generic parser.
type DatetimeFormat string

// NoFixedFormat means no single candidate parsed the whole sample.
const NoFixedFormat DatetimeFormat = ""

// Candidate formats in priority order. Earlier entries win when several
// formats parse the same sample (01/02/2024 resolves to DD/MM/YYYY).
const (
	FormatYMDDash      DatetimeFormat = "YYYY-MM-DD"
	FormatYMDSlash     DatetimeFormat = "YYYY/MM/DD"
	FormatDMYDash      DatetimeFormat = "DD-MM-YYYY"
	FormatDMYSlash     DatetimeFormat = "DD/MM/YYYY"
	FormatMDYDash      DatetimeFormat = "MM-DD-YYYY"
	FormatMDYSlash     DatetimeFormat = "MM/DD/YYYY"
	FormatYMDDashTime  DatetimeFormat = "YYYY-MM-DD HH:MM:SS"
	FormatYMDSlashTime DatetimeFormat = "YYYY/MM/DD HH:MM:SS"
	FormatDMYDashTime  DatetimeFormat = "DD-MM-YYYY HH:MM:SS"
	FormatDMYSlashTime DatetimeFormat = "DD/MM/YYYY HH:MM:SS"
	FormatMDYDashTime  DatetimeFormat = "MM-DD-YYYY HH:MM:SS"
	FormatMDYSlashTime DatetimeFormat = "MM/DD/YYYY HH:MM:SS"
)

// CandidateFormats lists the fixed formats in the order they are tried.
var CandidateFormats = []DatetimeFormat{
	FormatYMDDash, FormatYMDSlash, FormatDMYDash, FormatDMYSlash, FormatMDYDash, FormatMDYSlash,
	FormatYMDDashTime, FormatYMDSlashTime, FormatDMYDashTime, FormatDMYSlashTime, FormatMDYDashTime, FormatMDYSlashTime,
}

// Day, month and hour accept one or two digits, so 1/2/2024 matches
// DD/MM/YYYY the same way 01/02/2024 does.
var layouts = map[DatetimeFormat]string{
	FormatYMDDash:      "2006-1-2",
	FormatYMDSlash:     "2006/1/2",
	FormatDMYDash:      "2-1-2006",
	FormatDMYSlash:     "2/1/2006",
	FormatMDYDash:      "1-2-2006",
	FormatMDYSlash:     "1/2/2006",
	FormatYMDDashTime:  "2006-1-2 15:04:05",
	FormatYMDSlashTime: "2006/1/2 15:04:05",
	FormatDMYDashTime:  "2-1-2006 15:04:05",
	FormatDMYSlashTime: "2/1/2006 15:04:05",
	FormatMDYDashTime:  "1-2-2006 15:04:05",
	FormatMDYSlashTime: "1/2/2006 15:04:05",
}

// formatSampleSize bounds how many values the detector inspects.
const formatSampleSize = 50

// Layout returns the Go time layout for f, or "" for NoFixedFormat.
func (f DatetimeFormat) Layout() string { return layouts[f] }

func (f DatetimeFormat) String() string {
	if f == NoFixedFormat {
		return "(no fixed format)"
	}
	return string(f)
}

// DetectFormat infers one strict format shared by the first 50 non-missing,
// trimmed values of a text column.
func DetectFormat(col *dataset.Column) DatetimeFormat {
	if col == nil || col.Kind != dataset.KindText {
		return NoFixedFormat
	}
	sample := make([]string, 0, formatSampleSize)
	for i := 0; i < col.Len() && len(sample) < formatSampleSize; i++ {
		s, ok := col.String(i)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			sample = append(sample, s)
		}
	}
	return DetectFormatStrings(sample)
}

// DetectFormatStrings runs the candidate scan over an already prepared sample.
func DetectFormatStrings(sample []string) DatetimeFormat {
	if len(sample) == 0 {
		return NoFixedFormat
	}
	for _, f := range CandidateFormats {
		layout := layouts[f]
		all := true
		for _, s := range sample {
			if _, err := time.Parse(layout, s); err != nil {
				all = false
				break
			}
		}
		if all {
			return f
		}
	}
	return NoFixedFormat
}

// ParseTime is the generic fallback parser, evaluated value by value.
func ParseTime(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// dateparse panics on a few malformed inputs; those count as unparseable.
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	// Year 0 means no year token: bare times, "10/10", "3.5 kg".
	if t.Year() == 0 {
		return time.Time{}, false
	}
	return t, true
}

// ParseWithFormat parses s strictly with f, or generically for NoFixedFormat.
func ParseWithFormat(f DatetimeFormat, s string) (time.Time, bool) {
	if f == NoFixedFormat {
		return ParseTime(s)
	}
	t, err := time.Parse(f.Layout(), strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
