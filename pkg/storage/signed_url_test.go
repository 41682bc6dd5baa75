package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerSignAndVerify(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	link, err := signer.Sign("visit-7", "response_letter/response_letter_1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, link.Token)
	require.False(t, link.ExpiresAt.IsZero())

	claims, err := signer.Verify(link.Token)
	require.NoError(t, err)
	require.Equal(t, "visit-7", claims.Resource)
	require.Equal(t, "response_letter/response_letter_1.pdf", claims.Name)
	require.WithinDuration(t, link.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	issued := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }
	link, err := signer.Sign("visit-7", "response_letter/a.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = signer.Verify(link.Token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	link, err := signer.Sign("visit-7", "response_letter/a.pdf")
	require.NoError(t, err)

	tampered := strings.Replace(link.Token, "visit-7", "visit-8", 1)
	_, err = signer.Verify(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Verify(link.Token)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = signer.Verify("garbage")
	require.ErrorIs(t, err, ErrTokenInvalid)
}
