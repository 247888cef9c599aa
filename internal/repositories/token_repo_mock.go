package repositories

import (
	"fmt"
	"sync"
	"time"

	"accountapi/internal/models"

	"github.com/google/uuid"
)

// MockTokenRepository is an in-memory implementation of TokenRepository.
// Ownership is tracked as an index from user ID to token IDs so revoke-all
// is a bulk delete over that index.
type MockTokenRepository struct {
	tokens map[string]models.Token
	byUser map[string]map[string]struct{} // userID -> set of token IDs
	mu     sync.RWMutex
}

// NewMockTokenRepository creates a new empty MockTokenRepository.
func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{
		tokens: make(map[string]models.Token),
		byUser: make(map[string]map[string]struct{}),
	}
}

// Create adds a token, assigning an ID and creation time if missing.
func (m *MockTokenRepository) Create(token *models.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	m.tokens[token.ID] = *token
	if m.byUser[token.UserID] == nil {
		m.byUser[token.UserID] = make(map[string]struct{})
	}
	m.byUser[token.UserID][token.ID] = struct{}{}
	return nil
}

// GetByID retrieves a token by ID.
func (m *MockTokenRepository) GetByID(id string) (*models.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[id]
	if !ok {
		return nil, fmt.Errorf("token with ID %s: %w", id, ErrNotFound)
	}
	return &token, nil
}

// GetByUserID lists all tokens owned by a user.
func (m *MockTokenRepository) GetByUserID(userID string) ([]models.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tokens []models.Token
	for id := range m.byUser[userID] {
		tokens = append(tokens, m.tokens[id])
	}
	return tokens, nil
}

// DeleteByUserID removes every token owned by a user.
func (m *MockTokenRepository) DeleteByUserID(userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.byUser[userID]
	for id := range ids {
		delete(m.tokens, id)
	}
	delete(m.byUser, userID)
	return int64(len(ids)), nil
}
