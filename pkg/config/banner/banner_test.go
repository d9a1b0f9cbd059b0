package banner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toneai/pkg/config"
)

func TestChecklist(t *testing.T) {
	cfg, err := config.ParseConfig([]byte(`
server:
  address: 127.0.0.1
  port: 9090
  db_path: /var/lib/toneai
security:
  api_keys:
    frontend: [fk1, fk2]
maintenance:
  enabled: true
  cron: "*/30 * * * *"
`))
	require.NoError(t, err)
	cfg.ApplyDefaults()

	var buf bytes.Buffer
	Fprint(&buf, config.EffectiveConfigResult{Config: cfg, Addr: cfg.Addr(), DBPath: cfg.Server.DBPath, Source: "config"}, "v1.2.3")
	out := buf.String()
	assert.Contains(t, out, "127.0.0.1:9090")
	assert.Contains(t, out, "Version:  v1.2.3")
	assert.Contains(t, out, "Frontend API keys: OK (2)")
	assert.Contains(t, out, "Admin API keys: MISSING")
	assert.Contains(t, out, "Identity tokens: disabled")
	assert.Contains(t, out, "Maintenance: enabled (cron=*/30 * * * *)")
	assert.Contains(t, out, "Max body size: 1.0 MiB")
}
