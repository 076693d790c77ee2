package engine

import "strings"

// ReasonTag is a qualitative root-cause classification derived from
// keyword matching on free-text return notes.
type ReasonTag string

const (
	TagTooTight ReasonTag = "too_tight"
	TagTooLoose ReasonTag = "too_loose"
	TagTooLong  ReasonTag = "too_long"
	TagTooShort ReasonTag = "too_short"
)

// tagPrecedence fixes both the evaluation order of the classifier and
// the tie-break order of TopReason: equal tallies resolve to the
// earliest-declared tag.
var tagPrecedence = []ReasonTag{TagTooTight, TagTooLoose, TagTooLong, TagTooShort}

// tagKeywords maps each tag to the substrings that fire it. Matching is
// case-insensitive substring containment, not tokenized: "smallest"
// fires too_tight just like "small" does.
var tagKeywords = map[ReasonTag][]string{
	TagTooTight: {"tight", "small"},
	TagTooLoose: {"loose", "big", "large"},
	TagTooLong:  {"long"},
	TagTooShort: {"short"},
}

// qualityKeywords flags fabric and workmanship complaints. Used only by
// the merchant-wide quality detector, never by per-variant scoring.
var qualityKeywords = []string{
	"stretched", "shrunk", "faded", "pilled", "torn", "ripped",
	"poor quality", "cheap", "loose threads", "seam", "fabric",
	"baggy", "lost shape", "wear",
}

// fabricRecoveryKeywords is the narrower subset identifying elastane
// recovery failure among quality complaints.
var fabricRecoveryKeywords = []string{"stretch", "baggy"}

// ClassifyReason maps a free-text return note to zero or more root-cause
// tags. A single note may fire several tags; "too long and too tight"
// tallies under both.
func ClassifyReason(note string) []ReasonTag {
	lowered := strings.ToLower(note)

	var tags []ReasonTag
	for _, tag := range tagPrecedence {
		for _, kw := range tagKeywords[tag] {
			if strings.Contains(lowered, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}

// TallyReasons accumulates tag counts over a variant's collected notes.
// Counts are per tag, not mutually exclusive.
func TallyReasons(notes []string) map[ReasonTag]int {
	tally := make(map[ReasonTag]int)
	for _, note := range notes {
		for _, tag := range ClassifyReason(note) {
			tally[tag]++
		}
	}
	return tally
}

// TopReason returns the tag with the highest tally. Equal counts resolve
// to the earliest tag in tagPrecedence; ok is false when nothing fired.
func TopReason(tally map[ReasonTag]int) (tag ReasonTag, count int, ok bool) {
	for _, t := range tagPrecedence {
		if c := tally[t]; c > count {
			tag, count, ok = t, c, true
		}
	}
	return tag, count, ok
}

// IsQualityComplaint reports whether a note mentions any fabric or
// workmanship keyword.
func IsQualityComplaint(note string) bool {
	lowered := strings.ToLower(note)
	for _, kw := range qualityKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// MentionsFabricRecovery reports whether a note hits the fabric-recovery
// subset ("stretch" also matches "stretched", "stretches").
func MentionsFabricRecovery(note string) bool {
	lowered := strings.ToLower(note)
	for _, kw := range fabricRecoveryKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
