package auth

import (
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"toneai/pkg/api/utils"
)

func keys(ks ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ks))
	for _, k := range ks {
		out[k] = struct{}{}
	}
	return out
}

func newCtx(method, uri, ip string, headers map[string]string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, &net.TCPAddr{IP: net.ParseIP(ip), Port: 40000}, nil)
	return ctx
}

func TestHMACSignature(t *testing.T) {
	sig := CreateHMACSignature("alice", "k2")
	assert.Len(t, sig, 64)
	assert.True(t, VerifyHMACSignature("alice", sig, keys("k1", "k2")))
	assert.False(t, VerifyHMACSignature("bob", sig, keys("k1", "k2")))
	assert.False(t, VerifyHMACSignature("alice", sig, keys("k1")))
	assert.False(t, VerifyHMACSignature("alice", sig, nil))
}

func TestTokens(t *testing.T) {
	tok, err := IssueToken("alice", "secret", "toneai", time.Hour)
	require.NoError(t, err)

	sub, err := ParseToken(tok, "secret", "toneai")
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	// no issuer configured accepts any issuer
	_, err = ParseToken(tok, "secret", "")
	assert.NoError(t, err)

	_, err = ParseToken(tok, "secret", "someone-else")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken(tok, "other", "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken(tok, "", "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = IssueToken("alice", "", "", time.Hour)
	assert.Error(t, err)
	_, err = IssueToken("bad id!", "secret", "", time.Hour)
	assert.Error(t, err)
}

func TestTokenRejectsExpiredAndForeignAlgorithms(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	raw, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseToken(raw, "secret", "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "alice"})
	raw, err = hs512.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseToken(raw, "secret", "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "x"})
	raw, err = noSub.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseToken(raw, "secret", "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveIdentity(t *testing.T) {
	cfg := SecConfig{SigningKeys: keys("bk"), JWTSecret: "secret"}
	tok, err := IssueToken("alice", "secret", "", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name    string
		role    Role
		headers map[string]string
		want    string
		wantErr bool
	}{
		{"signed frontend", RoleFrontend, map[string]string{
			utils.HeaderUserID: "alice", utils.HeaderUserSignature: CreateHMACSignature("alice", "bk")}, "alice", false},
		{"bad signature", RoleFrontend, map[string]string{
			utils.HeaderUserID: "alice", utils.HeaderUserSignature: "00"}, "", true},
		{"signature without id", RoleFrontend, map[string]string{
			utils.HeaderUserSignature: CreateHMACSignature("alice", "bk")}, "", true},
		{"token", RoleFrontend, map[string]string{utils.HeaderUserToken: tok}, "alice", false},
		{"token with matching id", RoleFrontend, map[string]string{
			utils.HeaderUserToken: tok, utils.HeaderUserID: "alice"}, "alice", false},
		{"token with other id", RoleFrontend, map[string]string{
			utils.HeaderUserToken: tok, utils.HeaderUserID: "mallory"}, "", true},
		{"unsigned frontend id", RoleFrontend, map[string]string{utils.HeaderUserID: "alice"}, "", false},
		{"backend assertion", RoleBackend, map[string]string{utils.HeaderUserID: "alice"}, "alice", false},
		{"backend invalid id", RoleBackend, map[string]string{utils.HeaderUserID: "a b"}, "", true},
		{"nothing", RoleBackend, nil, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := newCtx("GET", "/v1/contacts", "127.0.0.1", tc.headers)
			got, err := resolveIdentity(ctx, tc.role, cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLimiterPool(t *testing.T) {
	p := &limiterPool{cfg: SecConfig{RPS: 0.001, Burst: 2}}
	defer p.Shutdown()

	assert.True(t, p.Allow("a"))
	assert.True(t, p.Allow("a"))
	assert.False(t, p.Allow("a"))
	// keys are limited independently
	assert.True(t, p.Allow("b"))

	open := &limiterPool{}
	defer open.Shutdown()
	for i := 0; i < 100; i++ {
		require.True(t, open.Allow("k"))
	}
}

func TestLimiterShutdownIsIdempotent(t *testing.T) {
	p := &limiterPool{}
	p.Shutdown()
	p.Shutdown()

	started := &limiterPool{}
	started.Allow("k")
	started.Shutdown()
	started.Shutdown()
}

func TestGatewayMiddleware(t *testing.T) {
	gw := NewGateway(SecConfig{
		AllowedOrigins: []string{"https://app.example"},
		FrontendKeys:   keys("fk"),
		BackendKeys:    keys("bk"),
		RPS:            0.001,
		Burst:          1,
		IPWhitelist:    []string{"10.0.0.1"},
	})
	defer gw.Close()

	var reached string
	h := gw.Middleware(func(ctx *fasthttp.RequestCtx) {
		reached = CallerID(ctx)
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	// preflight answers before any key check
	ctx := newCtx("OPTIONS", "/v1/messages", "192.168.1.1", map[string]string{"Origin": "https://app.example"})
	h(ctx)
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.Equal(t, "https://app.example", string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))

	ctx = newCtx("GET", "/healthz", "192.168.1.1", nil)
	h(ctx)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	ctx = newCtx("GET", "/healthz", "10.0.0.1", nil)
	h(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = newCtx("GET", "/v1/contacts", "10.0.0.1", map[string]string{"X-API-Key": "nope"})
	h(ctx)
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())

	// signing keys default to the backend keys
	ctx = newCtx("GET", "/v1/contacts", "10.0.0.1", map[string]string{
		"Authorization":          "Bearer fk",
		utils.HeaderUserID:        "alice",
		utils.HeaderUserSignature: CreateHMACSignature("alice", "bk"),
	})
	h(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "alice", reached)
	assert.Equal(t, "frontend", string(ctx.Response.Header.Peek(utils.HeaderRoleName)))

	// burst of one is spent
	ctx = newCtx("GET", "/v1/contacts", "10.0.0.1", map[string]string{"X-API-Key": "fk"})
	h(ctx)
	assert.Equal(t, fasthttp.StatusTooManyRequests, ctx.Response.StatusCode())
}
