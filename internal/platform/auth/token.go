package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer signs HS256 access tokens for the built-in login.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

func NewIssuer(key []byte, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{key: key, issuer: issuer, ttl: ttl}
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue returns a signed token for user bound to companyID and sessionID.
func (i *Issuer) Issue(u *User, companyID, sessionID string, now time.Time) (string, time.Time, error) {
	if len(i.key) == 0 {
		return "", time.Time{}, errors.New("token signing key is not configured")
	}
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		CompanyID: companyID,
		SessionID: sessionID,
		Roles:     u.Roles,
		Email:     u.Email,
		Name:      u.FullName(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
