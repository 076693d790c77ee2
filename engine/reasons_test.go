package engine

import (
	"reflect"
	"testing"
)

func TestClassifyReason(t *testing.T) {
	testCases := []struct {
		name string
		note string
		want []ReasonTag
	}{
		{
			name: "tight keyword",
			note: "way too tight around the waist",
			want: []ReasonTag{TagTooTight},
		},
		{
			name: "small keyword maps to too_tight",
			note: "runs small",
			want: []ReasonTag{TagTooTight},
		},
		{
			name: "substring match inside larger word",
			note: "this is the smallest fit I have ever tried",
			want: []ReasonTag{TagTooTight},
		},
		{
			name: "loose keyword",
			note: "really loose on me",
			want: []ReasonTag{TagTooLoose},
		},
		{
			name: "multiple tags from one note",
			note: "too long and too tight",
			want: []ReasonTag{TagTooTight, TagTooLong},
		},
		{
			name: "case insensitive",
			note: "TOO SHORT",
			want: []ReasonTag{TagTooShort},
		},
		{
			name: "no keyword",
			note: "changed my mind",
			want: nil,
		},
		{
			name: "empty note",
			note: "",
			want: nil,
		},
	}

	for _, tc := range testCases {
		got := ClassifyReason(tc.note)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: ClassifyReason(%q) = %v, want %v", tc.name, tc.note, got, tc.want)
		}
	}
}

func TestTallyReasons(t *testing.T) {
	notes := []string{
		"too tight",
		"way too small",
		"too long and too tight",
		"no reason given",
	}

	tally := TallyReasons(notes)
	if tally[TagTooTight] != 3 {
		t.Errorf("TallyReasons too_tight = %d, want 3", tally[TagTooTight])
	}
	if tally[TagTooLong] != 1 {
		t.Errorf("TallyReasons too_long = %d, want 1", tally[TagTooLong])
	}
	if tally[TagTooLoose] != 0 {
		t.Errorf("TallyReasons too_loose = %d, want 0", tally[TagTooLoose])
	}
}

func TestTopReason(t *testing.T) {
	testCases := []struct {
		name      string
		tally     map[ReasonTag]int
		wantTag   ReasonTag
		wantCount int
		wantOK    bool
	}{
		{
			name:      "clear winner",
			tally:     map[ReasonTag]int{TagTooTight: 2, TagTooLong: 5},
			wantTag:   TagTooLong,
			wantCount: 5,
			wantOK:    true,
		},
		{
			name:      "tie resolves to earliest declared tag",
			tally:     map[ReasonTag]int{TagTooShort: 3, TagTooLoose: 3},
			wantTag:   TagTooLoose,
			wantCount: 3,
			wantOK:    true,
		},
		{
			name:   "empty tally",
			tally:  map[ReasonTag]int{},
			wantOK: false,
		},
	}

	for _, tc := range testCases {
		tag, count, ok := TopReason(tc.tally)
		if ok != tc.wantOK {
			t.Errorf("%s: TopReason() ok = %v, want %v", tc.name, ok, tc.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if tag != tc.wantTag || count != tc.wantCount {
			t.Errorf("%s: TopReason() = (%s, %d), want (%s, %d)", tc.name, tag, count, tc.wantTag, tc.wantCount)
		}
	}
}

func TestIsQualityComplaint(t *testing.T) {
	testCases := []struct {
		note string
		want bool
	}{
		{"fabric stretched out after one wash", true},
		{"Seam came apart", true},
		{"POOR QUALITY", true},
		{"baggy after wearing twice", true},
		{"too tight", false},
		{"", false},
	}

	for _, tc := range testCases {
		if got := IsQualityComplaint(tc.note); got != tc.want {
			t.Errorf("IsQualityComplaint(%q) = %v, want %v", tc.note, got, tc.want)
		}
	}
}

func TestMentionsFabricRecovery(t *testing.T) {
	testCases := []struct {
		note string
		want bool
	}{
		{"stretched out and never recovered", true},
		{"stretches too much", true},
		{"got baggy at the knees", true},
		{"seam ripped", false},
		{"", false},
	}

	for _, tc := range testCases {
		if got := MentionsFabricRecovery(tc.note); got != tc.want {
			t.Errorf("MentionsFabricRecovery(%q) = %v, want %v", tc.note, got, tc.want)
		}
	}
}
