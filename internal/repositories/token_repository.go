package repositories

import "accountapi/internal/models"

// TokenRepository defines the interface for access-token data access.
type TokenRepository interface {
	Create(token *models.Token) error
	GetByID(id string) (*models.Token, error)
	GetByUserID(userID string) ([]models.Token, error)
	DeleteByUserID(userID string) (int64, error)
}
