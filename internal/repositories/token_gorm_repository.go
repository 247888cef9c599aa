package repositories

import (
	"errors"
	"fmt"

	"accountapi/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTokenRepository is a GORM implementation of TokenRepository.
type GORMTokenRepository struct {
	db *gorm.DB
}

// NewGORMTokenRepository creates a new instance of GORMTokenRepository.
func NewGORMTokenRepository(db *gorm.DB) *GORMTokenRepository {
	return &GORMTokenRepository{
		db: db,
	}
}

// Create inserts a new access token.
func (r *GORMTokenRepository) Create(token *models.Token) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if err := r.db.Create(token).Error; err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetByID retrieves a token by its ID.
func (r *GORMTokenRepository) GetByID(id string) (*models.Token, error) {
	var token models.Token
	if err := r.db.First(&token, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("token with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get token by ID %s: %w", id, err)
	}
	return &token, nil
}

// GetByUserID lists all tokens owned by a user.
func (r *GORMTokenRepository) GetByUserID(userID string) ([]models.Token, error) {
	var tokens []models.Token
	if err := r.db.Find(&tokens, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to list tokens for user %s: %w", userID, err)
	}
	return tokens, nil
}

// DeleteByUserID removes every token owned by a user and reports how many
// were deleted. Deleting zero tokens is not an error.
func (r *GORMTokenRepository) DeleteByUserID(userID string) (int64, error) {
	result := r.db.Delete(&models.Token{}, "user_id = ?", userID)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete tokens for user %s: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}
