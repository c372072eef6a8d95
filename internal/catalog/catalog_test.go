package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/internal/gateway"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateScansForFreeCounter(t *testing.T) {
	c := New(NewMemStorage())

	p1, err := c.Create("New Project")
	require.NoError(t, err)
	assert.Equal(t, "New_Project_1", p1.ID)
	assert.Equal(t, "New Project 1", p1.Title)

	p2, err := c.Create("New Project")
	require.NoError(t, err)
	assert.Equal(t, "New_Project_2", p2.ID)

	// A hole left by a deleted project is reused before a higher counter.
	require.NoError(t, c.Remove("New_Project_1"))
	p3, err := c.Create("New Project")
	require.NoError(t, err)
	assert.Equal(t, "New_Project_1", p3.ID)

	p4, err := c.Create("New Project")
	require.NoError(t, err)
	assert.Equal(t, "New_Project_3", p4.ID)
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	c := New(NewMemStorage())
	_, err := c.Create("   ")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestUpsertModifiedDateMovesForwardOnly(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(NewMemStorage(), WithClock(fixedClock(base)))

	p, err := c.Create("Thesis")
	require.NoError(t, err)
	require.True(t, p.ModifiedDate.Equal(base))

	// An earlier timestamp never rewinds the stored one.
	p.ModifiedDate = base.Add(-time.Hour)
	require.NoError(t, c.Upsert(p))
	got, ok := c.Get(p.ID)
	require.True(t, ok)
	assert.True(t, got.ModifiedDate.Equal(base))

	// A later one sticks.
	p.ModifiedDate = base.Add(time.Hour)
	require.NoError(t, c.Upsert(p))
	got, _ = c.Get(p.ID)
	assert.True(t, got.ModifiedDate.Equal(base.Add(time.Hour)))
}

func TestUpsertZeroDateGetsNow(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(NewMemStorage(), WithClock(fixedClock(base)))

	require.NoError(t, c.Upsert(Project{ID: "x", Title: "X"}))
	got, ok := c.Get("x")
	require.True(t, ok)
	assert.True(t, got.ModifiedDate.Equal(base))
}

func TestStubTitlesFromID(t *testing.T) {
	c := New(NewMemStorage())
	p := c.Stub("My_Research_2")
	assert.Equal(t, "My Research 2", p.Title)

	// Idempotent: a second call returns the stored entry.
	require.NoError(t, c.Rename("My_Research_2", "Renamed"))
	again := c.Stub("My_Research_2")
	assert.Equal(t, "Renamed", again.Title)
	assert.Len(t, c.List(), 1)
}

func TestRename(t *testing.T) {
	c := New(NewMemStorage())
	p, err := c.Create("Draft")
	require.NoError(t, err)

	require.NoError(t, c.Rename(p.ID, "Final"))
	got, _ := c.Get(p.ID)
	assert.Equal(t, "Final", got.Title)

	assert.ErrorIs(t, c.Rename(p.ID, "  "), ErrEmptyTitle)
	assert.Error(t, c.Rename("missing", "X"))
}

func TestRemoveDropsEmbeddingKeys(t *testing.T) {
	store := NewMemStorage()
	c := New(store)
	p, err := c.Create("Doomed")
	require.NoError(t, err)
	require.NoError(t, c.SetEmbeddingTask(p.ID, "T1"))
	require.NoError(t, c.SetEmbeddingStatus(p.ID, "processing"))
	require.NoError(t, c.SetEmbeddingCompleted(p.ID))

	require.NoError(t, c.Remove(p.ID))

	_, ok := c.Get(p.ID)
	assert.False(t, ok)
	assert.False(t, store.Contains("embeddingTask_"+p.ID))
	assert.False(t, store.Contains("embeddingStatus_"+p.ID))
	assert.False(t, store.Contains("embeddingCompleted_"+p.ID))
}

func TestSortRecent(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	projects := []Project{
		{Title: "old", ModifiedDate: t0},
		{Title: "Newest", ModifiedDate: t0.Add(2 * time.Hour)},
		{Title: "beta", ModifiedDate: t0.Add(time.Hour)},
		{Title: "Alpha", ModifiedDate: t0.Add(time.Hour)},
	}
	Sort(projects, SortRecent)
	titles := make([]string, len(projects))
	for i, p := range projects {
		titles[i] = p.Title
	}
	assert.Equal(t, []string{"Newest", "Alpha", "beta", "old"}, titles)
}

func TestSortAlpha(t *testing.T) {
	projects := []Project{
		{Title: "banana"},
		{Title: "Apple"},
		{Title: "cherry"},
	}
	Sort(projects, SortAlpha)
	assert.Equal(t, "Apple", projects[0].Title)
	assert.Equal(t, "banana", projects[1].Title)
	assert.Equal(t, "cherry", projects[2].Title)
}

func TestViewPreferenceDefaultsAndRoundTrip(t *testing.T) {
	c := New(NewMemStorage())
	assert.Equal(t, ViewGrid, c.ViewType())
	assert.Equal(t, SortRecent, c.SortType())
	assert.Equal(t, "light", c.Theme())

	c.SetViewType(ViewList)
	c.SetSortType(SortAlpha)
	c.SetTheme("dark")
	assert.Equal(t, ViewList, c.ViewType())
	assert.Equal(t, SortAlpha, c.SortType())
	assert.Equal(t, "dark", c.Theme())
}

func TestEmbeddingTaskLifecycle(t *testing.T) {
	store := NewMemStorage()
	c := New(store)
	p, err := c.Create("Papers")
	require.NoError(t, err)

	_, ok := c.EmbeddingTask(p.ID)
	assert.False(t, ok)

	require.NoError(t, c.SetEmbeddingTask(p.ID, "T42"))
	id, ok := c.EmbeddingTask(p.ID)
	require.True(t, ok)
	assert.Equal(t, "T42", id)
	got, _ := c.Get(p.ID)
	assert.Equal(t, "T42", got.EmbeddingTaskID)

	require.NoError(t, c.SetEmbeddingStatus(p.ID, "in_progress"))
	assert.True(t, store.Contains("embeddingStatus_"+p.ID))

	c.ClearEmbeddingTask(p.ID)
	_, ok = c.EmbeddingTask(p.ID)
	assert.False(t, ok)
	assert.False(t, store.Contains("embeddingStatus_"+p.ID))
	got, _ = c.Get(p.ID)
	assert.Empty(t, got.EmbeddingTaskID)
}

func TestSetEmbeddingCompletedClearsTask(t *testing.T) {
	c := New(NewMemStorage())
	p, err := c.Create("Papers")
	require.NoError(t, err)
	require.NoError(t, c.SetEmbeddingTask(p.ID, "T1"))

	assert.False(t, c.EmbeddingCompleted(p.ID))
	require.NoError(t, c.SetEmbeddingCompleted(p.ID))
	assert.True(t, c.EmbeddingCompleted(p.ID))

	_, ok := c.EmbeddingTask(p.ID)
	assert.False(t, ok)
	got, _ := c.Get(p.ID)
	assert.True(t, got.EmbeddingCompleted)
	assert.Empty(t, got.EmbeddingTaskID)
}

func TestSetSourcesStubsMissingProject(t *testing.T) {
	c := New(NewMemStorage())
	files := []gateway.Source{{Filename: "a.pdf", Size: 10, Type: "pdf"}}
	require.NoError(t, c.SetSources("Fresh_1", files))
	got, ok := c.Get("Fresh_1")
	require.True(t, ok)
	assert.Equal(t, files, got.Sources)

	require.NoError(t, c.SetSources("Fresh_1", nil))
	got, _ = c.Get("Fresh_1")
	assert.NotNil(t, got.Sources)
	assert.Empty(t, got.Sources)
}

func TestListNeverNil(t *testing.T) {
	c := New(NewMemStorage())
	assert.NotNil(t, c.List())
}
