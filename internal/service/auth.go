package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sie-engine/siechat/internal/domain"
)

const apiKeyPrefix = "sie_"

// APIKeyRepository defines the repository interface for API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	List(ctx context.Context) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// AuthService issues and validates API keys.
type AuthService struct {
	keyRepo APIKeyRepository
	uuidGen UUIDGenerator
}

func NewAuthService(keyRepo APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{keyRepo: keyRepo, uuidGen: uuidGen}
}

// CreateAPIKey mints a new key with the given name and role. The plaintext
// token is returned exactly once; only its hash is stored.
func (s *AuthService) CreateAPIKey(ctx context.Context, name string, role domain.Role) (*domain.APIKey, string, error) {
	if name == "" {
		return nil, "", domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if !domain.IsValidRole(role) {
		return nil, "", domain.ErrInvalidRole
	}

	token, err := generateAPIToken()
	if err != nil {
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		Name:      name,
		KeyHash:   hashToken(token),
		Role:      role,
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAPIKey(key); err != nil {
		return nil, "", err
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return nil, "", err
	}

	return key, token, nil
}

// ValidateToken resolves a plaintext bearer token to its API key. Unknown
// and revoked keys are both rejected.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.APIKey, error) {
	if !IsValidAPIToken(token) {
		return nil, domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		return nil, domain.ErrInvalidAPIKey
	}
	if key.IsRevoked() {
		return nil, domain.ErrAPIKeyRevoked
	}

	return key, nil
}

// RevokeAPIKey marks a key as revoked.
func (s *AuthService) RevokeAPIKey(ctx context.Context, id string) error {
	return s.keyRepo.Revoke(ctx, id)
}

// ListAPIKeys returns all keys, newest first.
func (s *AuthService) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	return s.keyRepo.List(ctx)
}

// IsValidAPIToken checks the token format: "sie_" + 64 hex chars.
func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	rest := strings.TrimPrefix(token, apiKeyPrefix)
	if len(rest) != 64 {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}

func generateAPIToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(raw), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
