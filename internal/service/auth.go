package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/cadenlabs/brandgov/internal/domain"
)

const apiKeyPrefix = "bg_"

type PrincipalRepository interface {
	Create(ctx context.Context, p *domain.Principal) error
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	GetByEmail(ctx context.Context, email string) (*domain.Principal, error)
	List(ctx context.Context) ([]*domain.Principal, error)
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	GetByPrincipalID(ctx context.Context, principalID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// AuthService manages principals and their API keys. Keys are stored as
// sha256 hashes only; the plaintext token is shown exactly once at creation.
type AuthService struct {
	principals PrincipalRepository
	keys       APIKeyRepository
	uuidGen    UUIDGenerator
}

func NewAuthService(principals PrincipalRepository, keys APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		principals: principals,
		keys:       keys,
		uuidGen:    uuidGen,
	}
}

func (s *AuthService) CreatePrincipal(ctx context.Context, email string, role domain.Role) (*domain.Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "principal email is required")
	}
	if !domain.IsValidRole(role) {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid role: "+string(role))
	}

	principal := &domain.Principal{
		ID:        s.uuidGen.NewString(),
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	if err := domain.ValidatePrincipal(principal); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid principal", err)
	}

	if _, err := s.principals.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrPrincipalAlreadyExists
	} else if !errors.Is(err, domain.ErrPrincipalNotFound) {
		return nil, err
	}

	if err := s.principals.Create(ctx, principal); err != nil {
		return nil, err
	}

	return principal, nil
}

func (s *AuthService) GetPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	return s.principals.GetByID(ctx, id)
}

func (s *AuthService) ListPrincipals(ctx context.Context) ([]*domain.Principal, error) {
	return s.principals.List(ctx)
}

func (s *AuthService) CreateAPIKey(ctx context.Context, principalID, name string) (string, error) {
	if principalID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "principal ID is required")
	}
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}

	if _, err := s.principals.GetByID(ctx, principalID); err != nil {
		return "", err
	}

	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	if err := s.storeKey(ctx, principalID, name, token); err != nil {
		return "", err
	}

	return token, nil
}

// CreateAPIKeyWithToken registers a caller-supplied token. Used by the
// bootstrap path so a deployment can pin its initial key.
func (s *AuthService) CreateAPIKeyWithToken(ctx context.Context, principalID, name, token string) error {
	if principalID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "principal ID is required")
	}
	if name == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if !IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected bg_<64 hex chars>)")
	}

	if _, err := s.principals.GetByID(ctx, principalID); err != nil {
		return err
	}

	return s.storeKey(ctx, principalID, name, token)
}

func (s *AuthService) storeKey(ctx context.Context, principalID, name, token string) error {
	key := &domain.APIKey{
		ID:          s.uuidGen.NewString(),
		PrincipalID: principalID,
		Name:        name,
		KeyHash:     hashToken(token),
		CreatedAt:   time.Now().UTC(),
		RevokedAt:   nil,
	}

	if err := domain.ValidateAPIKey(key); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid API key", err)
	}

	return s.keys.Create(ctx, key)
}

// Authenticate resolves an API token to its principal. Revoked and unknown
// keys both fail; the distinction is not leaked to the caller beyond the
// error code.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	if !IsValidAPIToken(token) {
		return nil, domain.ErrInvalidAPIKey
	}

	key, err := s.keys.GetByHash(ctx, hashToken(token))
	if err != nil {
		if err == domain.ErrAPIKeyNotFound {
			return nil, domain.ErrInvalidAPIKey
		}
		return nil, err
	}

	if key.IsRevoked() {
		return nil, domain.ErrAPIKeyRevoked
	}

	return s.principals.GetByID(ctx, key.PrincipalID)
}

// GetAPIKeyByHash looks up a key by its plaintext token. Used by the
// bootstrap path to make key creation idempotent.
func (s *AuthService) GetAPIKeyByHash(ctx context.Context, token string) (*domain.APIKey, error) {
	return s.keys.GetByHash(ctx, hashToken(token))
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}

	return s.keys.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, principalID string) ([]*domain.APIKey, error) {
	if principalID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "principal ID is required")
	}

	return s.keys.GetByPrincipalID(ctx, principalID)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
