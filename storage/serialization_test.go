package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docquery/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSerialization_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	chunk := &core.Chunk{
		Id:         core.ChunkID(7, 2, "the quick brown fox"),
		DocumentId: 7,
		Ordinal:    2,
		Content:    "the quick brown fox",
		Vector:     []float32{0.1, -0.5, 0.993},
		Tags:       []string{"animals", "speed"},
		InsertedAt: now,
		UpdatedAt:  now,
	}

	data := MarshalChunk(chunk)
	got, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Equal(t, chunk, got)
}

func TestJobSerialization_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &core.Job{
		Id:          11,
		DocumentIds: []core.ID{3, 4, 5},
		Type:        core.JobTypeBatch,
		Status:      core.JobSuccess,
		Progress:    core.JobProgressState{Current: 3, Total: 3, Label: "finalize"},
		Result: core.JobResult{
			ChunkCount:     42,
			EmbeddedCount:  40,
			ProcessedIds:   []core.ID{3, 4},
			FailedIds:      []core.ID{5},
			DurationMicros: 1234567,
		},
		InsertedAt: now,
		UpdatedAt:  now,
	}

	data := MarshalJob(job)
	got, err := UnmarshalJob(data)
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestUnmarshalChunk_Truncated(t *testing.T) {
	chunk := &core.Chunk{
		Id:         1,
		DocumentId: 2,
		Ordinal:    0,
		Content:    "payload",
		InsertedAt: time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	data := MarshalChunk(chunk)

	_, err := UnmarshalChunk(data[:len(data)/2])
	assert.Error(t, err)
}

func TestChunkFilter_Matches(t *testing.T) {
	chunk := &core.Chunk{Id: 1, DocumentId: 10, Content: "x", Tags: []string{"a", "b"}}

	tests := []struct {
		name   string
		filter *ChunkFilter
		want   bool
	}{
		{name: "nil filter matches", filter: nil, want: true},
		{name: "zero filter matches", filter: &ChunkFilter{}, want: true},
		{name: "document include hit", filter: &ChunkFilter{DocumentIds: []core.ID{10}}, want: true},
		{name: "document include miss", filter: &ChunkFilter{DocumentIds: []core.ID{11}}, want: false},
		{name: "document exclude", filter: &ChunkFilter{ExcludeDocumentIds: []core.ID{10}}, want: false},
		{name: "all tags present", filter: &ChunkFilter{Tags: []string{"a", "b"}}, want: true},
		{name: "missing tag", filter: &ChunkFilter{Tags: []string{"a", "c"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(chunk))
		})
	}
}
