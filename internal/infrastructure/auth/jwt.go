package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/corates/billing/internal/shared/authorization"
	"github.com/corates/billing/internal/shared/biztime"
)

var (
	ErrSecretMissing = stderrors.New("jwt secret is not configured")
	ErrTokenExpired  = stderrors.New("token expired")
	ErrTokenInvalid  = stderrors.New("token invalid")
)

// Claims identify an operator of the admin surface. Tokens are issued by the
// product's identity service; this service only verifies them.
type Claims struct {
	Role authorization.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserID is the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

type JWTService struct {
	secret []byte
	issuer string
	clock  biztime.Clock
}

func NewJWTService(secret, issuer string, clock biztime.Clock) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		clock:  clock,
	}
}

// Generate signs an HS256 token. Used by tests and the operator tooling.
func (s *JWTService) Generate(userID string, role authorization.UserRole, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSecretMissing
	}
	now := s.clock.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and returns its claims. Expired tokens yield
// ErrTokenExpired; every other failure yields ErrTokenInvalid.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrSecretMissing
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
