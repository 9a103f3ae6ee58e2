package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is fixed rather than caller-supplied so a misconfigured or
// malicious caller cannot downgrade hashing strength.
const bcryptCost = 12

// ErrInvalidDigest means the stored hash is not a valid bcrypt digest.
// A plain mismatch is not an error.
var ErrInvalidDigest = errors.New("invalid password digest")

// PasswordService hashes and verifies account secrets. Concurrent bcrypt
// computations are bounded by a worker pool so hashing cost cannot starve
// request handling under load.
type PasswordService struct {
	sem    chan struct{}
	logger *logrus.Logger
}

func NewPasswordService(workers int, logger *logrus.Logger) *PasswordService {
	if workers < 1 {
		workers = 1
	}
	return &PasswordService{
		sem:    make(chan struct{}, workers),
		logger: logger,
	}
}

func (s *PasswordService) Hash(ctx context.Context, password string) (string, error) {
	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(digest), nil
}

// Verify returns (false, nil) on mismatch and an error only when the digest
// itself is malformed or the pool wait is cancelled.
func (s *PasswordService) Verify(ctx context.Context, password, digest string) (bool, error) {
	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	defer s.release()

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
}

func (s *PasswordService) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *PasswordService) release() {
	<-s.sem
}
