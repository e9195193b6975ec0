package services

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/abrezinsky/pbplanner/internal/auth"
	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
	"github.com/abrezinsky/pbplanner/internal/repository"
)

// AccessService manages the shared officer secret. The secret is stored and
// compared in cleartext; it gates officer UI, not data integrity.
type AccessService struct {
	log  logger.Logger
	repo repository.SecretRepository
	mu   sync.Mutex
}

// NewAccessService creates a new AccessService
func NewAccessService(log logger.Logger, repo repository.SecretRepository) *AccessService {
	return &AccessService{log: log, repo: repo}
}

// current returns the stored secret, or nil when none is provisioned
func (s *AccessService) current(ctx context.Context) (*models.AccessSecret, error) {
	secret, err := s.repo.GetSecret(ctx)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return secret, err
}

// Version returns the current secret version, 0 when unprovisioned
func (s *AccessService) Version(ctx context.Context) (int, error) {
	secret, err := s.current(ctx)
	if err != nil || secret == nil {
		return 0, err
	}
	return secret.Version, nil
}

// Check compares candidate with the stored secret byte for byte
func (s *AccessService) Check(ctx context.Context, candidate string) (bool, int, error) {
	secret, err := s.current(ctx)
	if err != nil {
		return false, 0, err
	}
	if secret == nil {
		return false, 0, nil
	}
	return secret.Password == candidate, secret.Version, nil
}

// Rotate replaces the secret when oldPassword matches, returning the new version
func (s *AccessService) Rotate(ctx context.Context, oldPassword, newPassword string) (int, error) {
	if err := required([2]string{"newPassword", newPassword}); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	secret, err := s.current(ctx)
	if err != nil {
		return 0, err
	}
	if secret == nil || secret.Password != oldPassword {
		s.log.Warn("Officer password rotation rejected")
		return 0, ErrForbidden
	}

	next := models.AccessSecret{Password: newPassword, Version: secret.Version + 1}
	if err := s.repo.PutSecret(ctx, next); err != nil {
		return 0, err
	}

	s.log.Info("Officer password rotated", "version", next.Version)
	return next.Version, nil
}

// Bootstrap provisions the secret at version 1 if none exists. A blank
// password is replaced with a generated one. It returns the password in
// effect and whether it was created by this call.
func (s *AccessService) Bootstrap(ctx context.Context, password string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, err := s.current(ctx)
	if err != nil {
		return "", false, err
	}
	if secret != nil {
		return secret.Password, false, nil
	}

	if password == "" {
		password = auth.GeneratePassword()
	}
	if err := s.repo.PutSecret(ctx, models.AccessSecret{Password: password, Version: 1}); err != nil {
		return "", false, err
	}
	return password, true, nil
}
