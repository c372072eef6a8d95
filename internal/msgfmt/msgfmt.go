// Package msgfmt holds the chat panel's pure formatting rules: relative
// timestamps and the minimal inline styling assistant replies support.
package msgfmt

import (
	"regexp"
	"strings"
	"time"
)

// Timestamp renders t relative to now: messages under 24 hours old show the
// time only, older ones show date and time.
func Timestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if now.Sub(t) < 24*time.Hour {
		return t.Format("3:04 PM")
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

// Segment is a run of text that is either plain or bold.
type Segment struct {
	Text string
	Bold bool
}

var paragraphSplit = regexp.MustCompile(`\n[ \t]*\n+`)

// Paragraphs splits an assistant reply into paragraphs on blank lines and
// each paragraph into bold/plain segments on ** markers.
func Paragraphs(s string) [][]Segment {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out [][]Segment
	for _, para := range paragraphSplit.Split(s, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		out = append(out, BoldSegments(para))
	}
	return out
}

// BoldSegments splits on ** pairs. An unpaired trailing marker is kept as
// literal text.
func BoldSegments(s string) []Segment {
	parts := strings.Split(s, "**")
	// With an odd count of markers the last opener has no close; glue it
	// back onto the preceding part as literal text.
	if len(parts)%2 == 0 {
		parts[len(parts)-2] += "**" + parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}
	var segs []Segment
	for i, p := range parts {
		if p == "" {
			continue
		}
		segs = append(segs, Segment{Text: p, Bold: i%2 == 1})
	}
	if segs == nil {
		segs = []Segment{}
	}
	return segs
}
