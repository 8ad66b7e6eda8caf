package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "research.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, DefaultQualityThreshold, cfg.QualityThreshold)
	assert.Equal(t, DefaultSubquestionSearchCount, cfg.SubquestionSearchCount)
	assert.Equal(t, "evidentia-research", cfg.Temporal.TaskQueue)
	assert.Equal(t, 35*time.Second, cfg.Knowledge.Timeout)
}

func TestLoadFromReadsValues(t *testing.T) {
	path := writeConfig(t, `
max_iterations: 5
quality_threshold: 0.85
subquestion_search_count: 4
allowed_domains:
  - nih.gov
generation:
  base_url: http://gen:9000
  timeout: 90s
temporal:
  task_queue: custom-queue
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, 0.85, cfg.QualityThreshold)
	assert.Equal(t, 4, cfg.SubquestionSearchCount)
	assert.Equal(t, []string{"nih.gov"}, cfg.AllowedDomains)
	assert.Equal(t, "http://gen:9000", cfg.Generation.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "custom-queue", cfg.Temporal.TaskQueue)
	// Unspecified fields keep their defaults.
	assert.Equal(t, DefaultMaxSourcesForCitations, cfg.MaxSourcesForCitations)
}

func TestLoadFromMalformedFile(t *testing.T) {
	path := writeConfig(t, "max_iterations: [not an int\n")
	_, err := LoadFrom(path)
	require.Error(t, err)
}

func TestValidateClampsBadValues(t *testing.T) {
	cfg := &Research{
		MaxIterations:    -1,
		QualityThreshold: 4.2,
	}
	cfg.Validate()
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, DefaultQualityThreshold, cfg.QualityThreshold)
	assert.Equal(t, DefaultMaxConcurrentFetches, cfg.MaxConcurrentFetches)
	assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
}

func TestSnapshot(t *testing.T) {
	path := writeConfig(t, "max_iterations: 2\nquality_threshold: 0.6\n")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	snap := cfg.Snapshot()
	assert.Equal(t, 2, snap.MaxIterations)
	assert.Equal(t, 0.6, snap.QualityThreshold)
	assert.Equal(t, DefaultMaxEvidenceSnippets, snap.MaxEvidenceSnippets)

	// The snapshot is a copy: later config changes cannot touch it.
	cfg.MaxIterations = 9
	assert.Equal(t, 2, snap.MaxIterations)
}
