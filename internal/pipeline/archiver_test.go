package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trenchwatch/engine/internal/domain"
)

// memAlertLog is an in-memory domain.AlertLogStore.
type memAlertLog struct {
	records []domain.AlertRecord
}

func (s *memAlertLog) Insert(_ context.Context, rec domain.AlertRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *memAlertLog) ListOlder(_ context.Context, cutoff time.Time, limit int) ([]domain.AlertRecord, error) {
	var out []domain.AlertRecord
	for _, r := range s.records {
		if r.CreatedAt.Before(cutoff) {
			out = append(out, r)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memAlertLog) DeleteOlder(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.AlertRecord
	var deleted int64
	for _, r := range s.records {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return deleted, nil
}

// memBlob records uploaded objects.
type memBlob struct {
	objects map[string][]byte
}

func newMemBlob() *memBlob {
	return &memBlob{objects: make(map[string][]byte)}
}

func (b *memBlob) Put(_ context.Context, path string, data []byte, _ string) error {
	b.objects[path] = data
	return nil
}

func archiverLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiverRun(t *testing.T) {
	store := &memAlertLog{}
	old := time.Now().UTC().AddDate(0, 0, -40)
	recent := time.Now().UTC().AddDate(0, 0, -1)

	store.records = []domain.AlertRecord{
		{ID: "a", Symbol: "PEPE", CreatedAt: old},
		{ID: "b", Symbol: "WIF", CreatedAt: old.Add(time.Hour)},
		{ID: "c", Symbol: "BONK", CreatedAt: recent},
	}

	blob := newMemBlob()
	a := NewArchiver(store, blob, 30, archiverLogger())

	require.NoError(t, a.Run(context.Background()))

	// The two old rows are uploaded and deleted; the recent one stays.
	require.Len(t, store.records, 1)
	assert.Equal(t, "c", store.records[0].ID)

	require.Len(t, blob.objects, 1)
	for _, data := range blob.objects {
		var archived []domain.AlertRecord
		require.NoError(t, json.Unmarshal(data, &archived))
		require.Len(t, archived, 2)
		assert.Equal(t, "a", archived[0].ID)
		assert.Equal(t, "b", archived[1].ID)
	}
}

func TestArchiverRunNothingToArchive(t *testing.T) {
	store := &memAlertLog{records: []domain.AlertRecord{
		{ID: "a", CreatedAt: time.Now().UTC()},
	}}
	blob := newMemBlob()

	a := NewArchiver(store, blob, 30, archiverLogger())
	require.NoError(t, a.Run(context.Background()))

	assert.Len(t, store.records, 1)
	assert.Empty(t, blob.objects)
}

func TestParseCron(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := parseCron("0 3 * * *")
		require.NoError(t, err)
		assert.True(t, c.matchesTime(time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC)))
		assert.False(t, c.matchesTime(time.Date(2026, 8, 31, 3, 1, 0, 0, time.UTC)))
		assert.False(t, c.matchesTime(time.Date(2026, 8, 31, 4, 0, 0, 0, time.UTC)))
	})

	t.Run("value list", func(t *testing.T) {
		c, err := parseCron("0 3 1,15 * *")
		require.NoError(t, err)
		assert.True(t, c.matchesTime(time.Date(2026, 8, 15, 3, 0, 0, 0, time.UTC)))
		assert.False(t, c.matchesTime(time.Date(2026, 8, 16, 3, 0, 0, 0, time.UTC)))
	})

	t.Run("wrong field count", func(t *testing.T) {
		_, err := parseCron("0 3 *")
		assert.Error(t, err)
	})

	t.Run("non-numeric field", func(t *testing.T) {
		_, err := parseCron("0 x * * *")
		assert.Error(t, err)
	})
}

func TestNextCronTime(t *testing.T) {
	after := time.Date(2026, 8, 31, 12, 30, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC), next)

	// The next minute boundary is the earliest candidate.
	next, err = nextCronTime("* * * * *", after)
	require.NoError(t, err)
	assert.Equal(t, after.Add(time.Minute), next)
}
