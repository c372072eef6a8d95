package msgfmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "same day", at: now.Add(-2 * time.Hour), want: "1:00 PM"},
		{name: "just under a day", at: now.Add(-23 * time.Hour), want: "4:00 PM"},
		{name: "older", at: now.Add(-48 * time.Hour), want: "Mar 8, 2026 3:00 PM"},
		{name: "zero time", at: time.Time{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Timestamp(tt.at, now))
		})
	}
}

func plain(texts ...string) [][]Segment {
	out := make([][]Segment, len(texts))
	for i, s := range texts {
		out[i] = []Segment{{Text: s}}
	}
	return out
}

func TestParagraphs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want [][]Segment
	}{
		{name: "single", in: "hello", want: plain("hello")},
		{name: "double newline splits", in: "one\n\ntwo", want: plain("one", "two")},
		{name: "crlf normalized", in: "one\r\n\r\ntwo", want: plain("one", "two")},
		{name: "blank lines with spaces", in: "one\n  \n\ntwo", want: plain("one", "two")},
		{name: "single newline kept inside paragraph", in: "line a\nline b", want: plain("line a\nline b")},
		{name: "surrounding whitespace trimmed", in: "  one  \n\n  two  ", want: plain("one", "two")},
		{name: "empty", in: "   ", want: nil},
		{
			name: "bold inside a paragraph",
			in:   "intro\n\n**Summary**: done",
			want: [][]Segment{
				{{Text: "intro"}},
				{{Text: "Summary", Bold: true}, {Text: ": done"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paragraphs(tt.in))
		})
	}
}

func TestBoldSegments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Segment
	}{
		{
			name: "plain",
			in:   "hello world",
			want: []Segment{{Text: "hello world"}},
		},
		{
			name: "bold run",
			in:   "a **b** c",
			want: []Segment{{Text: "a "}, {Text: "b", Bold: true}, {Text: " c"}},
		},
		{
			name: "leading bold",
			in:   "**Title** rest",
			want: []Segment{{Text: "Title", Bold: true}, {Text: " rest"}},
		},
		{
			name: "unpaired marker stays literal",
			in:   "a **b",
			want: []Segment{{Text: "a **b"}},
		},
		{
			name: "two bold runs",
			in:   "**a** and **b**",
			want: []Segment{{Text: "a", Bold: true}, {Text: " and "}, {Text: "b", Bold: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BoldSegments(tt.in))
		})
	}
}
