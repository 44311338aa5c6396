package attribution

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	signer, err := NewSigner("secret")
	require.NoError(t, err)

	issued := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	raw, err := signer.Issue(Token{
		OrgID:       snowflake.ID(7),
		AffiliateID: snowflake.ID(11),
		LinkID:      snowflake.ID(13),
		IssuedAt:    issued,
		ExpiresAt:   issued.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	got, err := signer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(7), got.OrgID)
	assert.Equal(t, snowflake.ID(11), got.AffiliateID)
	assert.Equal(t, snowflake.ID(13), got.LinkID)
	assert.True(t, issued.Equal(got.IssuedAt))
}

func TestSignerIgnoresExpiryButChecksSignature(t *testing.T) {
	signer, err := NewSigner("secret")
	require.NoError(t, err)
	other, err := NewSigner("other")
	require.NoError(t, err)

	issued := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	raw, err := signer.Issue(Token{OrgID: 1, AffiliateID: 2, LinkID: 3, IssuedAt: issued, ExpiresAt: issued.Add(time.Hour)})
	require.NoError(t, err)

	_, err = signer.Parse(raw)
	assert.NoError(t, err)

	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignerRejectsOtherAlgorithms(t *testing.T) {
	signer, err := NewSigner("secret")
	require.NoError(t, err)

	claims := Claims{AffiliateID: "2", LinkID: "3", OrgID: "1", RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(time.Now())}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = signer.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}
