package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"

	"toneai/pkg/api/utils"
	"toneai/pkg/logger"
	"toneai/pkg/store"
)

// caller role
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleFrontend:
		return "frontend"
	case RoleBackend:
		return "backend"
	case RoleAdmin:
		return "admin"
	default:
		return "unauth"
	}
}

const callerKey = "caller"

var (
	ErrInvalidSignature = errors.New("missing or invalid user signature")
	ErrInvalidToken     = errors.New("invalid user token")
)

// security config
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}
	// SigningKeys verify X-User-Signature; backend keys by default
	SigningKeys map[string]struct{}
	JWTSecret   string
	JWTIssuer   string
}

// creates an HMAC signature for a user ID
func CreateHMACSignature(userID, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifies a user ID against its HMAC signature using available signing keys
func VerifyHMACSignature(userID, signature string, keys map[string]struct{}) bool {
	for k := range keys {
		expected := CreateHMACSignature(userID, k)
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return true
		}
	}
	return false
}

// IssueToken signs an HS256 identity token whose subject is the user id.
func IssueToken(userID, secret, issuer string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	if err := store.ValidateID("user id", userID); err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies an identity token and returns its subject.
func ParseToken(raw, secret, issuer string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: tokens not enabled", ErrInvalidToken)
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if err := store.ValidateID("user id", sub); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return sub, nil
}

// resolveIdentity finds the calling user for a request whose API key role is
// already known. A presented but invalid credential is an error; no
// credential at all yields an empty id.
func resolveIdentity(ctx *fasthttp.RequestCtx, role Role, cfg SecConfig) (string, error) {
	userID := utils.GetUserID(ctx)

	if sig := utils.GetUserSignature(ctx); sig != "" {
		if userID == "" || !VerifyHMACSignature(userID, sig, cfg.SigningKeys) {
			return "", ErrInvalidSignature
		}
		if err := store.ValidateID("user id", userID); err != nil {
			return "", err
		}
		return userID, nil
	}

	if tok := utils.GetUserToken(ctx); tok != "" {
		sub, err := ParseToken(tok, cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return "", err
		}
		if userID != "" && userID != sub {
			return "", fmt.Errorf("%w: user id does not match token subject", ErrInvalidToken)
		}
		return sub, nil
	}

	// backends are trusted to assert the acting user
	if role == RoleBackend && userID != "" {
		if err := store.ValidateID("user id", userID); err != nil {
			return "", err
		}
		return userID, nil
	}
	return "", nil
}

// CallerID returns the resolved user id of the request, or "".
func CallerID(ctx *fasthttp.RequestCtx) string {
	if v, ok := ctx.UserValue(callerKey).(string); ok {
		return v
	}
	return ""
}

func setCaller(ctx *fasthttp.RequestCtx, id string) {
	ctx.SetUserValue(callerKey, id)
	ctx.Request.Header.Set(utils.HeaderUserID, id)
	logger.Debug("caller_resolved", "user", id, "path", utils.GetPath(ctx))
}
