package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"accountapi/internal/models"
	"accountapi/internal/repositories"

	"github.com/google/uuid"
)

const tokenSecretBytes = 20

// TokenService issues and resolves opaque bearer tokens. The plaintext form
// handed to the client is "<token id>|<secret>"; only the secret's SHA-256
// digest is persisted, so a token can never be retrieved again after issue.
type TokenService struct {
	tokenRepo repositories.TokenRepository
	userRepo  repositories.UserRepository
}

// NewTokenService creates a new TokenService.
func NewTokenService(tokenRepo repositories.TokenRepository, userRepo repositories.UserRepository) *TokenService {
	return &TokenService{
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
	}
}

// IssueToken creates a token for the user tagged with a device label and
// returns the plaintext form. The caller will not see it again.
func (s *TokenService) IssueToken(user *models.User, deviceName string) (string, error) {
	buf := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	secret := hex.EncodeToString(buf)
	digest := sha256.Sum256([]byte(secret))

	token := &models.Token{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Name:      deviceName,
		TokenHash: hex.EncodeToString(digest[:]),
		CreatedAt: time.Now(),
	}
	if err := s.tokenRepo.Create(token); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token.ID + "|" + secret, nil
}

// ResolveUser maps a plaintext bearer token to its owning user. Malformed
// tokens, unknown IDs, digest mismatches, and revoked tokens are all reported
// as ErrUnauthenticated without distinction.
func (s *TokenService) ResolveUser(plainText string) (*models.User, error) {
	id, secret, ok := strings.Cut(plainText, "|")
	if !ok || id == "" || secret == "" {
		return nil, ErrUnauthenticated
	}

	token, err := s.tokenRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	digest := sha256.Sum256([]byte(secret))
	if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(digest[:])), []byte(token.TokenHash)) != 1 {
		return nil, ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(token.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load token owner: %w", err)
	}
	return user, nil
}

// TokensForUser lists the tokens currently owned by a user.
func (s *TokenService) TokensForUser(userID string) ([]models.Token, error) {
	return s.tokenRepo.GetByUserID(userID)
}

// RevokeAll deletes every token owned by a user and reports how many were
// revoked. Revoking when none exist is not an error.
func (s *TokenService) RevokeAll(userID string) (int64, error) {
	return s.tokenRepo.DeleteByUserID(userID)
}
