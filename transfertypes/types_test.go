package transfertypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.MaxRequestConcurrency)
	assert.Equal(t, 5, cfg.MaxSubmissionConcurrency)
	assert.Equal(t, 256*KB, cfg.IOChunkSize)
	assert.Equal(t, 5, cfg.DownloadAttempts)
	assert.Equal(t, int64(100*MB), cfg.UploadPartSize)
}

func TestConfigValidateRejectsNonPositive(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"request concurrency", func(c *Config) { c.MaxRequestConcurrency = 0 }, "MaxRequestConcurrency"},
		{"submission concurrency", func(c *Config) { c.MaxSubmissionConcurrency = -1 }, "MaxSubmissionConcurrency"},
		{"request queue", func(c *Config) { c.MaxRequestQueueSize = 0 }, "MaxRequestQueueSize"},
		{"io chunk size", func(c *Config) { c.IOChunkSize = 0 }, "IOChunkSize"},
		{"download attempts", func(c *Config) { c.DownloadAttempts = 0 }, "DownloadAttempts"},
		{"upload part size", func(c *Config) { c.UploadPartSize = 0 }, "UploadPartSize"},
		{"in-memory parts", func(c *Config) { c.MaxInMemoryUploadParts = 0 }, "MaxInMemoryUploadParts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.param, cerr.Param)
			assert.Contains(t, err.Error(), tt.param)
		})
	}
}

func TestMetaProvideSizeFirstWins(t *testing.T) {
	m := &Meta{TransferID: 1}

	_, known := m.Size()
	assert.False(t, known)

	m.ProvideSize(100)
	m.ProvideSize(999)

	size, known := m.Size()
	assert.True(t, known)
	assert.Equal(t, int64(100), size)
}

func TestMetaReadSetID(t *testing.T) {
	m := &Meta{TransferID: 1}
	assert.Empty(t, m.ReadSetID())

	m.SetReadSetID("readset-new")
	assert.Equal(t, "readset-new", m.ReadSetID())
}
