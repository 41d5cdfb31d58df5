package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenCodec creates, signs and parses HS256 session tokens.
type TokenCodec struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

func NewTokenCodec(secretKey []byte, validity time.Duration) *TokenCodec {
	return &TokenCodec{secret: secretKey, validity: validity, now: time.Now}
}

// NewToken returns the standard claims for user: subject, profile fields,
// issue/expiry times and a fresh token id. Identity fields used for access
// control are added separately by ExtendToken.
func (c *TokenCodec) NewToken(user *models.User) Token {
	now := c.now()
	return Token{
		ClaimSubject: user.ID,
		ClaimName:    user.Name,
		ClaimEmail:   user.Email,
		ClaimPicture: user.Image,
		ClaimIssued:  now.Unix(),
		ClaimExpires: now.Add(c.validity).Unix(),
		ClaimTokenID: uuid.NewString(),
	}
}

func (c *TokenCodec) Sign(token Token) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(token)).SignedString(c.secret)
}

// Parse verifies signature and expiry of raw and returns its claims.
// An expired token yields common.ErrTokenExpired; anything else that fails
// verification yields common.ErrInvalidToken.
func (c *TokenCodec) Parse(raw string) (Token, error) {
	claims := jwt.MapClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return Token(claims), nil
}
