// internal/session/session_test.go

package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := OpenAt(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("OpenAt() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLastEmpty(t *testing.T) {
	s := newTestStore(t)

	snap, err := s.Last()
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveAndLast(t *testing.T) {
	s := newTestStore(t)

	want := Snapshot{
		Status:   "playing",
		Position: 90 * time.Second,
		SavedAt:  time.Now().Truncate(time.Second),
	}
	assert.NoError(t, s.Save(want))

	got, err := s.Last()
	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Position, got.Position)
		assert.True(t, got.SavedAt.Equal(want.SavedAt))
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	assert.NoError(t, s.Save(Snapshot{Status: "pause", Position: 10 * time.Second}))
	assert.NoError(t, s.Save(Snapshot{Status: "playing", Position: 20 * time.Second}))

	got, err := s.Last()
	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, "playing", got.Status)
		assert.Equal(t, 20*time.Second, got.Position)
	}
}

func TestCloseFlushesPendingSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := OpenAt(path)
	assert.NoError(t, err)

	s.SaveDebounced(Snapshot{Status: "pause", Position: 42 * time.Second})
	assert.NoError(t, s.Close())

	s, err = OpenAt(path)
	assert.NoError(t, err)
	defer s.Close()

	got, err := s.Last()
	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, 42*time.Second, got.Position)
	}
}
