// Package identity verifies the signed identity tokens that accompany the
// phone verification step.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trialgate/internal/trial/models"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/requestcontext"
)

const (
	DefaultMaxAge = 5 * time.Minute
	DefaultLeeway = 60 * time.Second
)

// Claims is the identity token payload. Subject carries the decimal user id.
type Claims struct {
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 identity tokens against a shared secret.
type Verifier struct {
	secret []byte
	maxAge time.Duration
	leeway time.Duration
}

func NewVerifier(secret string, maxAge, leeway time.Duration) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if leeway < 0 {
		leeway = DefaultLeeway
	}
	return &Verifier{secret: []byte(secret), maxAge: maxAge, leeway: leeway}
}

// Verify parses the token and enforces freshness: iat must be present, no
// more than maxAge old and no further than leeway in the future.
func (v *Verifier) Verify(ctx context.Context, token string) (*models.IdentityClaims, error) {
	now := requestcontext.Now(ctx)
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, dErrors.New(dErrors.CodeUnauthorized, "identity token has expired")
		case errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
			return nil, dErrors.New(dErrors.CodeUnauthorized, "identity token issued in the future")
		default:
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid identity token")
		}
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid identity token")
	}
	if claims.IssuedAt == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "identity token has no issue time")
	}
	issued := claims.IssuedAt.Time
	if now.Sub(issued) > v.maxAge {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "identity token is too old")
	}
	userID, ok := models.ParseUserID(claims.Subject)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "identity token has no valid subject")
	}
	return &models.IdentityClaims{
		UserID:   userID,
		Phone:    claims.Phone,
		IssuedAt: issued,
	}, nil
}

// Issue signs a token for userID. Used by the identity-provider collaborator
// in development setups and by tests.
func (v *Verifier) Issue(userID models.UserID, phone string, issuedAt time.Time) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID.String(),
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	})
	return tok.SignedString(v.secret)
}
