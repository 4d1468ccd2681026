package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/bryanwahyu/propvest/internal/domain/identity"
	"github.com/bryanwahyu/propvest/internal/domain/tier"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims carried by tokens from the identity provider. Subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Tier  string `json:"tier"`
	jwt.RegisteredClaims
}

// JWTAuth verifies HS256 bearer tokens and turns them into a Principal.
type JWTAuth struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

func NewJWTAuth(secret, issuer string) *JWTAuth {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTAuth{secret: []byte(secret), issuer: issuer, parser: jwt.NewParser(opts...)}
}

// Verify parses a raw token string.
func (a *JWTAuth) Verify(raw string) (identity.Principal, error) {
	if raw == "" {
		return identity.Principal{}, ErrMissingToken
	}
	claims := &Claims{}
	tok, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !tok.Valid {
		return identity.Principal{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return identity.Principal{}, ErrInvalidToken
	}
	return identity.Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Tier:   tier.Parse(claims.Tier),
	}, nil
}

// Issue signs a token for p. Used by the dev token command and tests.
func (a *JWTAuth) Issue(p identity.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: p.Email,
		Tier:  string(p.Tier),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Middleware rejects requests without a valid bearer token.
func (a *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r.Header.Get("Authorization"))
		p, err := a.Verify(raw)
		if err != nil {
			zap.L().Debug("auth rejected", zap.String("path", r.URL.Path), zap.Error(err))
			WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", err.Error())
			return
		}
		noteUser(r.Context(), p.UserID)
		next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
	})
}

func bearer(h string) string {
	h = strings.TrimSpace(h)
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
