package core

import (
	"errors"
	"testing"
)

func TestValidateChunkParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr error
	}{
		{name: "valid params", size: 1000, overlap: 200, wantErr: nil},
		{name: "minimum size", size: MinChunkSize, overlap: 0, wantErr: nil},
		{name: "maximum size", size: MaxChunkSize, overlap: 100, wantErr: nil},
		{name: "size too small", size: 99, overlap: 0, wantErr: ErrConfiguration},
		{name: "size too large", size: 5001, overlap: 0, wantErr: ErrConfiguration},
		{name: "negative overlap", size: 1000, overlap: -1, wantErr: ErrConfiguration},
		{name: "overlap equals size", size: 500, overlap: 500, wantErr: ErrConfiguration},
		{name: "overlap exceeds size", size: 500, overlap: 600, wantErr: ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkParams(tt.size, tt.overlap)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunkParams() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunkParams() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{Locator: "docs/report.txt", Format: FormatPlainText},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrConfiguration,
		},
		{
			name:    "empty locator",
			doc:     &Document{Format: FormatPlainText},
			wantErr: ErrConfiguration,
		},
		{
			name:    "unknown format",
			doc:     &Document{Locator: "docs/report.bin", Format: FormatType(99)},
			wantErr: ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:    "valid chunk",
			chunk:   &Chunk{DocumentId: 1, Ordinal: 0, Content: "chunk text"},
			wantErr: nil,
		},
		{
			name:    "valid chunk with empty vector",
			chunk:   &Chunk{DocumentId: 1, Ordinal: 3, Content: "chunk text", Vector: nil},
			wantErr: nil,
		},
		{
			name:    "empty content",
			chunk:   &Chunk{DocumentId: 1, Ordinal: 0},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "negative ordinal",
			chunk:   &Chunk{DocumentId: 1, Ordinal: -1, Content: "text"},
			wantErr: ErrConfiguration,
		},
		{
			name:    "no parent document",
			chunk:   &Chunk{Ordinal: 0, Content: "text"},
			wantErr: ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    JobStatus
		to      JobStatus
		wantErr error
	}{
		{name: "pending to progress", from: JobPending, to: JobProgress, wantErr: nil},
		{name: "progress to success", from: JobProgress, to: JobSuccess, wantErr: nil},
		{name: "progress to failure", from: JobProgress, to: JobFailure, wantErr: nil},
		{name: "success never regresses", from: JobSuccess, to: JobProgress, wantErr: ErrTerminalJob},
		{name: "failure never regresses", from: JobFailure, to: JobProgress, wantErr: ErrTerminalJob},
		{name: "no backward transition", from: JobProgress, to: JobPending, wantErr: ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTransition() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTransition() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateProgress(t *testing.T) {
	if err := ValidateProgress(JobProgressState{Current: 3, Total: 10}); err != nil {
		t.Errorf("ValidateProgress() unexpected error: %v", err)
	}
	if err := ValidateProgress(JobProgressState{Current: 11, Total: 10}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("ValidateProgress() error = %v, want %v", err, ErrConfiguration)
	}
}

func TestClampScore(t *testing.T) {
	if got := ClampScore(-0.5); got != 0 {
		t.Errorf("ClampScore(-0.5) = %v, want 0", got)
	}
	if got := ClampScore(1.5); got != 1 {
		t.Errorf("ClampScore(1.5) = %v, want 1", got)
	}
	if got := ClampScore(0.42); got != 0.42 {
		t.Errorf("ClampScore(0.42) = %v, want 0.42", got)
	}
}
