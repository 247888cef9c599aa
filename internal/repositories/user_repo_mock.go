package repositories

import (
	"fmt"
	"sync"
	"time"

	"accountapi/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
// Uniqueness of name and email is checked and recorded under a single
// critical section per write, mirroring the database's unique indexes.
type MockUserRepository struct {
	users   map[string]models.User
	byName  map[string]string // name -> id
	byEmail map[string]string // email -> id
	mu      sync.RWMutex
}

// NewMockUserRepository creates a new empty MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:   make(map[string]models.User),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
	}
}

// Create adds a user, assigning an ID and timestamps if missing.
func (m *MockUserRepository) Create(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if _, exists := m.byName[user.Name]; exists {
		return fmt.Errorf("user with name %s already exists: %w", user.Name, ErrDuplicate)
	}
	if _, exists := m.byEmail[user.Email]; exists {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicate)
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	m.users[user.ID] = *user
	m.byName[user.Name] = user.ID
	m.byEmail[user.Email] = user.ID
	return nil
}

// GetByName retrieves a user by name.
func (m *MockUserRepository) GetByName(name string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("user with name %s: %w", name, ErrNotFound)
	}
	user := m.users[id]
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
	}
	user := m.users[id]
	return &user, nil
}

// GetByID retrieves a user by ID.
func (m *MockUserRepository) GetByID(id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
	}
	return &user, nil
}

// Update replaces a stored user, keeping the name/email indexes consistent.
func (m *MockUserRepository) Update(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[user.ID]
	if !ok {
		return fmt.Errorf("user with ID %s: %w", user.ID, ErrNotFound)
	}
	if id, exists := m.byName[user.Name]; exists && id != user.ID {
		return fmt.Errorf("user with name %s already exists: %w", user.Name, ErrDuplicate)
	}
	if id, exists := m.byEmail[user.Email]; exists && id != user.ID {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicate)
	}

	delete(m.byName, stored.Name)
	delete(m.byEmail, stored.Email)
	user.UpdatedAt = time.Now()
	m.users[user.ID] = *user
	m.byName[user.Name] = user.ID
	m.byEmail[user.Email] = user.ID
	return nil
}
