package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/atviroplatforma/appcore/internal/core/domain"
	"github.com/atviroplatforma/appcore/internal/core/ports"
)

var ErrUnauthorized = errors.New("unauthorized")

// AuthService resolves API tokens into Caller identities. It is the whole
// of the authentication boundary: everything past it works with a verified
// Caller and never sees credentials.
type AuthService struct {
	repo ports.APIKeyRepository
}

func NewAuthService(repo ports.APIKeyRepository) *AuthService {
	return &AuthService{repo: repo}
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Caller, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Caller{}, ErrUnauthorized
	}

	key, err := s.repo.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Caller{}, ErrUnauthorized
		}
		return domain.Caller{}, err
	}
	if !key.Active {
		return domain.Caller{}, ErrUnauthorized
	}

	caller := key.Caller()
	if caller.Type == "" {
		caller.Type = domain.CallerService
	}
	if caller.UserID == "" {
		caller.UserID = key.Name
	}
	return caller, nil
}

func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
