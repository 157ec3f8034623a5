package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingJob(t *testing.T) {
	now := time.Now()
	processedAt := now.Add(time.Minute)
	job := NewEmbeddingJob("job1", "doc1", EmbeddingJobStatusCompleted, 1, "", now, &processedAt)

	assert.Equal(t, "job1", job.ID)
	assert.Equal(t, "doc1", job.DocumentID)
	assert.Equal(t, EmbeddingJobStatusCompleted, job.Status)
	assert.Equal(t, int32(1), job.Retries)
	require.NotNil(t, job.ProcessedAt)
	assert.Equal(t, processedAt, *job.ProcessedAt)
}

func TestValidateEmbeddingJob(t *testing.T) {
	valid := func() *EmbeddingJob {
		return &EmbeddingJob{ID: "job1", DocumentID: "doc1", Status: EmbeddingJobStatusPending}
	}

	tests := []struct {
		name   string
		mutate func(j *EmbeddingJob)
		errMsg string
	}{
		{"valid job", func(*EmbeddingJob) {}, ""},
		{"missing ID", func(j *EmbeddingJob) { j.ID = "" }, "ID"},
		{"missing DocumentID", func(j *EmbeddingJob) { j.DocumentID = "" }, "DocumentID"},
		{"invalid Status", func(j *EmbeddingJob) { j.Status = "queued" }, "Status"},
		{"negative Retries", func(j *EmbeddingJob) { j.Retries = -1 }, "Retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := valid()
			tt.mutate(job)
			err := ValidateEmbeddingJob(job)
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.Error(t, ValidateEmbeddingJob(nil))
}
