package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "any", cfg.Device)
	assert.Equal(t, "tcp port 443", cfg.Capture.BPF)
	assert.Equal(t, time.Second, cfg.Display.Refresh)
	assert.Equal(t, 10, cfg.Display.StallLimit)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Capture.Backend = "netmap"
	cfg.Display.Refresh = 0
	cfg.Display.StallLimit = 0
	cfg.Output.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, IsInvalid(err))
	assert.Len(t, multierr.Errors(err), 4)
	assert.Contains(t, err.Error(), "netmap")
	assert.Contains(t, err.Error(), "xml")
}

func TestValidateAcceptsUppercaseFormat(t *testing.T) {
	cfg := Default()
	cfg.Output.Format = "CSV"
	cfg.Capture.Backend = "afpacket"
	assert.NoError(t, cfg.Validate())
}
