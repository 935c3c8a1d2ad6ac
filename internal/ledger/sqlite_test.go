package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/aliasdoc/internal/bundle"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(id string, at time.Time) Record {
	return Record{
		ID:          id,
		Title:       "Doc " + id,
		Fingerprint: "fp-" + id,
		Path:        "/out/" + id + ".tgz",
		Images:      2,
		Tags:        []string{"a", "b"},
		CreatedAt:   at,
	}
}

func TestAppendAndGet(t *testing.T) {
	store := newStore(t)
	at := time.Date(2026, 3, 14, 15, 9, 26, 500, time.UTC)

	require.NoError(t, store.Append(t.Context(), record("one", at)))

	got, err := store.Get(t.Context(), "one")
	require.NoError(t, err)
	assert.Equal(t, "Doc one", got.Title)
	assert.Equal(t, "fp-one", got.Fingerprint)
	assert.Equal(t, "/out/one.tgz", got.Path)
	assert.Equal(t, 2, got.Images)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.True(t, at.Equal(got.CreatedAt))
}

func TestGetMissing(t *testing.T) {
	store := newStore(t)

	_, err := store.Get(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestAppendRejectsDuplicateAndEmptyID(t *testing.T) {
	store := newStore(t)
	at := time.Now()

	require.NoError(t, store.Append(t.Context(), record("dup", at)))

	err := store.Append(t.Context(), record("dup", at))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryLedger))

	err = store.Append(t.Context(), Record{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestListNewestFirst(t *testing.T) {
	store := newStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(t.Context(), record(id, base.Add(time.Duration(i)*time.Minute))))
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 10, []string{"c", "b", "a"}},
		{"limited", 2, []string{"c", "b"}},
		{"default", 0, []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(t.Context(), tt.limit)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListEmpty(t *testing.T) {
	store := newStore(t)

	got, err := store.List(t.Context(), 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecordWithoutTags(t *testing.T) {
	store := newStore(t)
	rec := record("bare", time.Now())
	rec.Tags = nil

	require.NoError(t, store.Append(t.Context(), rec))
	got, err := store.Get(t.Context(), "bare")
	require.NoError(t, err)
	assert.Nil(t, got.Tags)
}

func TestPersistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	at := time.Now()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), record("kept", at)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(t.Context(), "kept")
	require.NoError(t, err)
	assert.Equal(t, "Doc kept", got.Title)
}

func TestFromBundle(t *testing.T) {
	at := time.Now()
	res := &bundle.Result{ID: "id", Title: "T", Fingerprint: "fp", OutputPath: "/o.tgz", Images: 3, CreatedAt: at}

	rec := FromBundle(res, []string{"x"})
	assert.Equal(t, Record{ID: "id", Title: "T", Fingerprint: "fp", Path: "/o.tgz", Images: 3, Tags: []string{"x"}, CreatedAt: at}, rec)
}
