package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nanoncore/nano-usi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":5000", cfg.GRPCAddr)
	assert.Equal(t, 7*time.Second, cfg.Session.IdleTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Registry.IdleTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
grpc_addr: 127.0.0.1:6000
stream_workers: 8
session:
  command_timeout: 10s
  idle_timeout: 2s
  disable_pager: true
registry:
  idle_ttl: -1s
local:
  link_command: [ifconfig, "{iface}", "{state}"]
patterns:
  CISCO_9300:
    pagination: "<--- More --->"
    login_failures: ["% Access denied"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6000", cfg.GRPCAddr)
	assert.Equal(t, ":9102", cfg.HTTPAddr)
	assert.Equal(t, uint32(8), cfg.StreamWorkers)
	assert.Equal(t, 10*time.Second, cfg.Session.CommandTimeout)
	assert.Equal(t, 2*time.Second, cfg.Session.IdleTimeout)
	assert.Equal(t, 60*time.Second, cfg.Session.LoginTimeout)
	assert.True(t, cfg.Session.DisablePager)
	assert.Equal(t, -time.Second, cfg.Registry.IdleTTL)

	opts := cfg.Options()
	assert.Equal(t, []string{"ifconfig", "{iface}", "{state}"}, opts.LinkCommand)
	assert.Equal(t, 10*time.Second, opts.CommandTimeout)
	assert.Equal(t, "<--- More --->", opts.Patterns[types.ModelCisco9300].Pagination)
	assert.Equal(t, []string{"% Access denied"}, opts.Patterns[types.ModelCisco9300].LoginFailures)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad address", "grpc_addr: 5000\n"},
		{"negative timeout", "session:\n  command_timeout: -5s\n"},
		{"bad duration", "session:\n  command_timeout: soon\n"},
		{"snmp version", "snmp:\n  version: 4\n"},
		{"patterns for model without CLI", "patterns:\n  OVS:\n    pagination: more\n"},
		{"not yaml", "grpc_addr: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
