package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/nikolayk812/ordermgr/internal/httpx"
	"github.com/nikolayk812/ordermgr/internal/observability"
	"go.uber.org/zap"
)

var (
	ErrTokenMissing = errors.New("auth: bearer token missing")
	ErrTokenInvalid = errors.New("auth: bearer token invalid")
)

// Claims are the HS256 token claims: the subject is the user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Authenticator)

func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAuthenticator(secret string, ttl time.Duration, opts ...Option) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}

	a := &Authenticator{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// IssueToken signs an HS256 token for identity valid for the configured ttl.
// Operators mint tokens with `orderd token`.
func (a *Authenticator) IssueToken(identity domain.Identity) (string, error) {
	if !identity.IsAuthenticated() {
		return "", fmt.Errorf("identity has no user id")
	}

	now := a.now()
	claims := Claims{
		Role: identity.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("token.SignedString: %w", err)
	}
	return signed, nil
}

// Authenticate resolves the caller from the Authorization header.
func (a *Authenticator) Authenticate(r *http.Request) (domain.Identity, error) {
	tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
	if !ok {
		return domain.Identity{}, ErrTokenMissing
	}

	// time based claims are checked below against the injected clock
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	now := a.now()
	if !claims.VerifyExpiresAt(now, true) {
		return domain.Identity{}, fmt.Errorf("%w: token is expired", ErrTokenInvalid)
	}
	if !claims.VerifyNotBefore(now, false) {
		return domain.Identity{}, fmt.Errorf("%w: token is not valid yet", ErrTokenInvalid)
	}

	role, err := domain.ToRole(claims.Role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	identity := domain.Identity{UserID: strings.TrimSpace(claims.Subject), Role: role}
	if !identity.IsAuthenticated() {
		return domain.Identity{}, fmt.Errorf("%w: subject is empty", ErrTokenInvalid)
	}

	return identity, nil
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// stores the caller identity on the context otherwise.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		identity, err := a.Authenticate(r)
		if err != nil {
			observability.FromContext(ctx).Info("request not authenticated", zap.Error(err))

			message := "authorization header missing or invalid"
			if errors.Is(err, ErrTokenInvalid) {
				message = "bearer token verification failed"
			}
			httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", message, http.StatusUnauthorized))
			return
		}

		observability.AnnotateUser(ctx, identity.UserID)
		logger := observability.FromContext(ctx).With(zap.String("user_id", identity.UserID))
		ctx = observability.WithLogger(WithIdentity(ctx, identity), logger)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
