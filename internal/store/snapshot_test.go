package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/ir"
)

func TestRecordSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := createTestIR("Extract {{ text }}")

	snap, inserted, err := s.RecordSnapshot(ctx, r, "schemas/resume")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, ir.MustDigest(r), snap.Digest)
	assert.Equal(t, int64(1), snap.Seq)
	assert.Equal(t, "schemas/resume", snap.Source)
	assert.Equal(t, ir.IRVersion, snap.IRVersion)

	id, err := uuid.Parse(snap.BuildID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	canonical, err := ir.MarshalCanonical(r)
	require.NoError(t, err)
	got, err := s.ReadSnapshot(ctx, snap.Digest)
	require.NoError(t, err)
	assert.Equal(t, string(canonical), string(got.IR))
	assert.Equal(t, snap.BuildID, got.BuildID)
}

func TestRecordSnapshot_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, inserted, err := s.RecordSnapshot(ctx, createTestIR("a"), "x")
	require.NoError(t, err)
	require.True(t, inserted)

	again, inserted, err := s.RecordSnapshot(ctx, createTestIR("a"), "y")
	require.NoError(t, err)
	assert.False(t, inserted, "same IR is recorded once")
	assert.Equal(t, first.BuildID, again.BuildID)
	assert.Equal(t, "x", again.Source)

	snaps, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestRecordSnapshot_SeqOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, prompt := range []string{"one", "two", "three"} {
		_, _, err := s.RecordSnapshot(ctx, createTestIR(prompt), prompt)
		require.NoError(t, err)
	}

	snaps, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	for i, snap := range snaps {
		assert.Equal(t, int64(i+1), snap.Seq)
		assert.Nil(t, snap.IR, "listing omits IR bodies")
	}
	assert.Equal(t, []string{"one", "two", "three"}, []string{snaps[0].Source, snaps[1].Source, snaps[2].Source})

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "three", latest.Source)
}

func TestRecordSnapshot_Prompts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := createTestIR("Extract {{ text }}")

	snap, _, err := s.RecordSnapshot(ctx, r, "x")
	require.NoError(t, err)

	fn, ok := r.FindFunction("ExtractResume")
	require.True(t, ok)
	want, err := ir.PromptDigest("ExtractResume", fn.Elem.Configs[0])
	require.NoError(t, err)

	prompts, err := s.ListPrompts(ctx, snap.Digest)
	require.NoError(t, err)
	assert.Equal(t, []Prompt{{Function: "ExtractResume", Config: ir.DefaultConfigName, Digest: want}}, prompts)
}

func TestEmptyStore(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	snaps, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.NotNil(t, snaps)
	assert.Empty(t, snaps)

	prompts, err := s.ListPrompts(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, prompts)

	_, err = s.Latest(ctx)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))

	_, err = s.ReadSnapshot(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
	assert.Contains(t, err.Error(), "missing")
}
