package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "traces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Put(ctx, "systrace", "application/json", []byte(`{"traceEvents":[]}`))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "systrace", rec.Route)
	assert.Equal(t, "application/json", rec.ContentType)
	assert.Equal(t, len(`{"traceEvents":[]}`), rec.Size)
	assert.Equal(t, []byte(`{"traceEvents":[]}`), rec.Data)
	assert.False(t, rec.ReceivedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	s.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	first, err := s.Put(ctx, "a", "application/json", []byte("1"))
	require.NoError(t, err)
	second, err := s.Put(ctx, "b", "application/msgpack", []byte("22"))
	require.NoError(t, err)

	metas, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, second, metas[0].ID)
	assert.Equal(t, first, metas[1].ID)
	assert.Equal(t, 2, metas[0].Size)
	assert.True(t, metas[0].ReceivedAt.Equal(base.Add(2*time.Second)))
}

func TestListEmpty(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	metas, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, metas)
	assert.Empty(t, metas)
}
