package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
schema:
  root: ./graph
server:
  addr: ":9000"
  timeout: 5s
  corsOrigins: ["https://example.com"]
log:
  level: debug
`))
	require.NoError(t, err)

	want := Default()
	want.Schema.Root = "./graph"
	want.Server.Addr = ":9000"
	want.Server.Timeout = 5 * time.Second
	want.Server.CORSOrigins = []string{"https://example.com"}
	want.Log.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "server:\n  port: 80\n", "field port not found"},
		{"bad duration", "server:\n  timeout: soon\n", "decode config"},
		{"empty root", "schema:\n  root: \"\"\n", "schema.root must not be empty"},
		{"body limit", "server:\n  maxBodyBytes: 0\n", "server.maxBodyBytes must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.yaml))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldmerge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grpc:\n  addr: \":9090\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.GRPC.Addr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
