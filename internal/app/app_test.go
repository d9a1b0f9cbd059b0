package app

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"toneai/pkg/config"
)

func testEff(t *testing.T) config.EffectiveConfigResult {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	cfg := &config.Config{}
	cfg.Server.DBPath = t.TempDir()
	cfg.Security.APIKeys.Backend = []string{"bk"}
	cfg.Security.APIKeys.Admin = []string{"ak"}
	cfg.Maintenance.Enabled = true
	cfg.ApplyDefaults()
	return config.EffectiveConfigResult{Config: cfg, Addr: cfg.Addr(), DBPath: cfg.Server.DBPath, Source: "flags"}
}

func serve(t *testing.T, a *App) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: a.handler()}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	return &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
}

func get(t *testing.T, c *fasthttp.Client, uri string, headers ...string) (int, string) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(res)
	req.SetRequestURI("http://toneai" + uri)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	require.NoError(t, c.DoTimeout(req, res, 5*time.Second))
	return res.StatusCode(), string(res.Body())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	eff := testEff(t)
	eff.Config.Tone.Provider = "carrier-pigeon"
	_, err := New(eff, "test", "none", "unknown")
	assert.Error(t, err)
}

func TestHealthAndReadiness(t *testing.T) {
	a, err := New(testEff(t), "v0.0.1", "abc123", "unknown")
	require.NoError(t, err)
	require.NotNil(t, a.maintenance)
	c := serve(t, a)

	status, body := get(t, c, "/healthz")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	status, body = get(t, c, "/readyz")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"status":"ok","version":"v0.0.1"}`, body)

	status, _ = get(t, c, "/nowhere", "X-API-Key", "bk")
	assert.Equal(t, 404, status)

	status, body = get(t, c, "/admin/stats", "X-API-Key", "ak")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"contacts":0,"users":0,"messages":0}`, body)

	require.NoError(t, a.Shutdown(context.Background()))
	assert.Equal(t, "stopped", a.State())

	status, body = get(t, c, "/readyz")
	assert.Equal(t, 503, status)
	assert.Contains(t, body, "not ready")
}

func TestSecConfigSigningKeysDefault(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.APIKeys.Backend = []string{"bk"}
	assert.Nil(t, secConfig(cfg).SigningKeys)

	cfg.Security.SigningKeys = []string{"sk"}
	assert.Contains(t, secConfig(cfg).SigningKeys, "sk")
}
