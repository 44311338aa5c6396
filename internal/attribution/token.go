package attribution

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid_attribution_token")

// Claims is the payload of the attribution cookie.
type Claims struct {
	AffiliateID string `json:"aff"`
	LinkID      string `json:"lnk"`
	OrgID       string `json:"org"`
	jwt.RegisteredClaims
}

// Token is a verified attribution token.
type Token struct {
	OrgID       snowflake.ID
	AffiliateID snowflake.ID
	LinkID      snowflake.ID
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Signer issues and verifies HS256 attribution tokens.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("attribution secret is required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

func (s *Signer) Issue(t Token) (string, error) {
	claims := Claims{
		AffiliateID: t.AffiliateID.String(),
		LinkID:      t.LinkID.String(),
		OrgID:       t.OrgID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(t.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(t.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies the signature and decodes the claims. Expiry is not checked
// here: the attribution window is evaluated against the current program
// settings at order time.
func (s *Signer) Parse(raw string) (Token, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return Token{}, ErrInvalidToken
	}

	orgID, err1 := snowflake.ParseString(claims.OrgID)
	affiliateID, err2 := snowflake.ParseString(claims.AffiliateID)
	linkID, err3 := snowflake.ParseString(claims.LinkID)
	if err := errors.Join(err1, err2, err3); err != nil || claims.IssuedAt == nil {
		return Token{}, ErrInvalidToken
	}

	t := Token{
		OrgID:       orgID,
		AffiliateID: affiliateID,
		LinkID:      linkID,
		IssuedAt:    claims.IssuedAt.Time.UTC(),
	}
	if claims.ExpiresAt != nil {
		t.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return t, nil
}
