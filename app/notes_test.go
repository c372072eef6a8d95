package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lectern/internal/gateway"
)

func TestNoteStale(t *testing.T) {
	opened := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	note := func(id string, mod time.Time) gateway.Note {
		return gateway.Note{ID: id, ModifiedAt: gateway.EpochTime{Time: mod}}
	}

	t.Run("unchanged note stays open", func(t *testing.T) {
		notes := []gateway.Note{note("n1", opened), note("n2", opened.Add(time.Hour))}
		assert.False(t, noteStale(notes, "n1", opened))
	})

	t.Run("deleted note is stale", func(t *testing.T) {
		notes := []gateway.Note{note("n2", opened)}
		assert.True(t, noteStale(notes, "n1", opened))
	})

	t.Run("rewritten note is stale", func(t *testing.T) {
		notes := []gateway.Note{note("n1", opened.Add(time.Second))}
		assert.True(t, noteStale(notes, "n1", opened))
	})

	t.Run("empty list is stale", func(t *testing.T) {
		assert.True(t, noteStale(nil, "n1", opened))
	})
}
