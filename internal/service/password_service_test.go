package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordService_HashAndVerify(t *testing.T) {
	svc := NewPasswordService(2, testLogger())
	ctx := context.Background()

	digest, err := svc.Hash(ctx, "correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", digest)

	ok, err := svc.Verify(ctx, "correct horse battery staple", digest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasswordService_Mismatch(t *testing.T) {
	svc := NewPasswordService(2, testLogger())
	ctx := context.Background()

	digest, err := svc.Hash(ctx, "secret-one")
	require.NoError(t, err)

	ok, err := svc.Verify(ctx, "secret-two", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordService_InvalidDigest(t *testing.T) {
	svc := NewPasswordService(2, testLogger())

	ok, err := svc.Verify(context.Background(), "anything", "not-a-bcrypt-digest")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidDigest)
}

func TestPasswordService_HashesAreSalted(t *testing.T) {
	svc := NewPasswordService(2, testLogger())
	ctx := context.Background()

	first, err := svc.Hash(ctx, "same-password")
	require.NoError(t, err)
	second, err := svc.Hash(ctx, "same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestPasswordService_CancelledContext(t *testing.T) {
	svc := NewPasswordService(1, testLogger())

	// Occupy the only pool slot so acquisition must block.
	svc.sem <- struct{}{}
	defer func() { <-svc.sem }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Hash(ctx, "blocked")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.Verify(ctx, "blocked", "whatever")
	assert.ErrorIs(t, err, context.Canceled)
}
