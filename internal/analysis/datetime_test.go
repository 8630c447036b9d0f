package analysis

import (
	"testing"
	"time"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
)

func TestDetectFormatStrings(t *testing.T) {
	cases := []struct {
		name   string
		sample []string
		want   DatetimeFormat
	}{
		{"iso", []string{"2024-01-01", "2024-12-31"}, FormatYMDDash},
		{"ambiguous day first", []string{"01/02/2024"}, FormatDMYSlash},
		{"month first only", []string{"01/02/2024", "12/31/2024"}, FormatMDYSlash},
		{"dashed day first", []string{"31-12-2024"}, FormatDMYDash},
		{"unpadded day first", []string{"1/2/2024", "3/2/2024", "5/2/2024"}, FormatDMYSlash},
		{"unpadded month first only", []string{"1/2/2024", "12/31/2024"}, FormatMDYSlash},
		{"unpadded iso", []string{"2024-1-5", "2024-12-31"}, FormatYMDDash},
		{"unpadded with time", []string{"5-2-2024 9:05:00"}, FormatDMYDashTime},
		{"with time", []string{"2024-01-01 10:30:00", "2024-01-02 23:59:59"}, FormatYMDDashTime},
		{"slash time", []string{"2024/01/01 00:00:01"}, FormatYMDSlashTime},
		{"mixed", []string{"2024-01-01", "01/02/2024"}, NoFixedFormat},
		{"not dates", []string{"North", "South"}, NoFixedFormat},
		{"empty", nil, NoFixedFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectFormatStrings(tc.sample); got != tc.want {
				t.Fatalf("DetectFormatStrings(%v) = %q, want %q", tc.sample, got, tc.want)
			}
		})
	}
}

func TestDetectFormatSamplesTrimmedHead(t *testing.T) {
	vals := make([]string, 0, 60)
	vals = append(vals, "", " 2024-01-01 ")
	for i := 0; i < 49; i++ {
		vals = append(vals, "2024-02-01")
	}
	// Beyond the 50-value sample; does not affect detection.
	vals = append(vals, "not a date")
	col := dataset.TextColumn("d", vals)
	if got := DetectFormat(&col); got != FormatYMDDash {
		t.Fatalf("DetectFormat = %q, want %q", got, FormatYMDDash)
	}
}

func TestDetectFormatNonText(t *testing.T) {
	col := dataset.NumericColumn("n", []float64{20240101})
	if got := DetectFormat(&col); got != NoFixedFormat {
		t.Fatalf("numeric column detected as %q", got)
	}
	if got := DetectFormat(nil); got != NoFixedFormat {
		t.Fatalf("nil column detected as %q", got)
	}
}

func TestParseWithFormat(t *testing.T) {
	got, ok := ParseWithFormat(FormatDMYSlash, "01/02/2024")
	if !ok {
		t.Fatalf("expected parse")
	}
	if want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	got, ok = ParseWithFormat(FormatDMYSlash, "3/2/2024")
	if want := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC); !ok || !got.Equal(want) {
		t.Fatalf("unpadded: got %v (ok=%v), want %v", got, ok, want)
	}
	if _, ok := ParseWithFormat(FormatYMDDash, "01/02/2024"); ok {
		t.Fatalf("strict format should reject other layouts")
	}
	if _, ok := ParseWithFormat(NoFixedFormat, "2024-03-05T10:00:00Z"); !ok {
		t.Fatalf("generic parser should accept RFC3339")
	}
	if _, ok := ParseTime("   "); ok {
		t.Fatalf("blank should not parse")
	}
	if _, ok := ParseTime("Widget"); ok {
		t.Fatalf("plain words should not parse")
	}
	for _, s := range []string{"3.5 kg", "12:30", "10/10", "1.2.3"} {
		if got, ok := ParseTime(s); ok {
			t.Fatalf("ParseTime(%q) = %v, want no parse", s, got)
		}
	}
}
