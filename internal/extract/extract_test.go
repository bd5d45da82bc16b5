package extract_test

import (
	"testing"
	"time"

	"github.com/kluzzebass/logspan/internal/extract"
)

func TestExtractDefaultHeuristic(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{
			name:  "compact date",
			input: "squid.20140101.gz",
			want:  time.Date(2014, 1, 1, 0, 0, 0, 0, time.Local),
			ok:    true,
		},
		{
			name:  "dashed date stays one token",
			input: "access-2014-01-31.log",
			want:  time.Date(2014, 1, 31, 0, 0, 0, 0, time.Local),
			ok:    true,
		},
		{
			name:  "datetime with hour",
			input: "squid.2014013108.log",
			want:  time.Date(2014, 1, 31, 8, 0, 0, 0, time.Local),
			ok:    true,
		},
		{
			name:  "epoch shortcut",
			input: "@1704067200",
			want:  time.Unix(1704067200, 0).In(time.Local),
			ok:    true,
		},
		{
			name:  "no time tokens",
			input: "plain-name.txt",
			ok:    false,
		},
		{
			name:  "host name split on letter-adjacent dash",
			input: "proxy-s1/squid.20140101.gz",
			want:  time.Date(2014, 1, 1, 0, 0, 0, 0, time.Local),
			ok:    true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extract.Extract(tc.input, "")
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && !got.Equal(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExtractEpochFallback(t *testing.T) {
	// Two retained tokens that don't form a valid date parse as
	// "<first>.<second>" epoch seconds.
	got, ok := extract.Extract("clock.1704067200.500000.log", "")
	if !ok {
		t.Fatalf("expected extraction to succeed")
	}
	want := time.Unix(1704067200, 500000000).In(time.Local)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractBluecoat(t *testing.T) {
	got, ok := extract.Extract("bluecoat/2014/01/31/blueone/SG_main__60131080000.log.gz", "bluecoat")
	if !ok {
		t.Fatalf("expected bluecoat extraction to succeed")
	}
	want := time.Date(2014, 1, 31, 8, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDescriptorsIncludesDescriptions(t *testing.T) {
	descs := extract.Descriptors()
	found := false
	for _, d := range descs {
		if d.Name == "bluecoat" {
			found = true
			if d.Description == "" {
				t.Fatalf("expected bluecoat to have a non-empty description")
			}
		}
	}
	if !found {
		t.Fatalf("expected bluecoat in Descriptors(), got %+v", descs)
	}
}

func TestLookupUnknownExtractor(t *testing.T) {
	if err := extract.Lookup("nope"); err == nil {
		t.Fatalf("expected error for unknown extractor")
	}
	if err := extract.Lookup(""); err != nil {
		t.Fatalf("empty extractor name should be valid: %v", err)
	}
	if err := extract.Lookup("bluecoat"); err != nil {
		t.Fatalf("bluecoat should be a known extractor: %v", err)
	}
}
