package services_test

import (
	"log"
	"os"
	"strings"
	"testing"

	"accountapi/internal/models"
	"accountapi/internal/repositories"
	"accountapi/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a testify mock of repositories.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByName(name string) (*models.User, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

// MockTokenRepository is a testify mock of repositories.TokenRepository.
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Create(token *models.Token) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *MockTokenRepository) GetByID(id string) (*models.Token, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Token), args.Error(1)
}

func (m *MockTokenRepository) GetByUserID(userID string) ([]models.Token, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Token), args.Error(1)
}

func (m *MockTokenRepository) DeleteByUserID(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func TestMain(m *testing.M) {
	log.SetOutput(os.Stdout)
	code := m.Run()
	os.Exit(code)
}

func newAccountService(userRepo repositories.UserRepository, tokenRepo repositories.TokenRepository) *services.AccountService {
	tokens := services.NewTokenService(tokenRepo, userRepo)
	return services.NewAccountService(userRepo, tokens, nil, bcrypt.MinCost)
}

func TestAccountService_Register(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockTokens := new(MockTokenRepository)
	svc := newAccountService(mockUsers, mockTokens)

	req := services.RegisterRequest{
		Name:                 "Gabriel Nunes",
		Email:                "g@example.org",
		Password:             "Secret1!",
		PasswordConfirmation: "Secret1!",
	}

	// Successful registration
	mockUsers.On("GetByName", req.Name).Return(nil, repositories.ErrNotFound).Once()
	mockUsers.On("GetByEmail", req.Email).Return(nil, repositories.ErrNotFound).Once()
	mockUsers.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

	user, err := svc.Register(req)
	assert.NoError(t, err)
	assert.Equal(t, req.Name, user.Name)
	assert.Equal(t, req.Email, user.Email)
	// The plaintext password must not be stored
	assert.NotEqual(t, req.Password, user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)))
	mockUsers.AssertExpectations(t)

	// Name already taken
	mockUsers.On("GetByName", req.Name).Return(&models.User{ID: "1"}, nil).Once()
	mockUsers.On("GetByEmail", req.Email).Return(nil, repositories.ErrNotFound).Once()
	_, err = svc.Register(req)
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The name has already been taken."}, verr.Errors()["name"])
	mockUsers.AssertExpectations(t)

	// Email already taken
	mockUsers.On("GetByName", req.Name).Return(nil, repositories.ErrNotFound).Once()
	mockUsers.On("GetByEmail", req.Email).Return(&models.User{ID: "1"}, nil).Once()
	_, err = svc.Register(req)
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The email has already been taken."}, verr.Errors()["email"])
	mockUsers.AssertExpectations(t)
}

func TestAccountService_Register_AggregatesFailures(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockTokens := new(MockTokenRepository)
	svc := newAccountService(mockUsers, mockTokens)

	mockUsers.On("GetByEmail", "not-an-email").Return(nil, repositories.ErrNotFound).Once()

	_, err := svc.Register(services.RegisterRequest{
		Name:                 "",
		Email:                "not-an-email",
		Password:             "short",
		PasswordConfirmation: "short",
	})

	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The name field is required."}, verr.Errors()["name"])
	assert.Equal(t, []string{"The email field must be a valid email address."}, verr.Errors()["email"])
	assert.Equal(t, []string{"The password field must be at least 6 characters."}, verr.Errors()["password"])
	assert.Equal(t, "The name field is required. (and 2 more errors)", verr.Message())
	mockUsers.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAccountService_Register_PasswordConfirmationMismatch(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockTokens := new(MockTokenRepository)
	svc := newAccountService(mockUsers, mockTokens)

	mockUsers.On("GetByName", "Gabriel Nunes").Return(nil, repositories.ErrNotFound).Once()
	mockUsers.On("GetByEmail", "g@example.org").Return(nil, repositories.ErrNotFound).Once()

	_, err := svc.Register(services.RegisterRequest{
		Name:                 "Gabriel Nunes",
		Email:                "g@example.org",
		Password:             "Secret1!",
		PasswordConfirmation: "Different1!",
	})

	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The password field confirmation does not match."}, verr.Errors()["password"])
	mockUsers.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAccountService_Register_LosesUniquenessRace(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockTokens := new(MockTokenRepository)
	svc := newAccountService(mockUsers, mockTokens)

	// Pre-write checks pass but the store's unique index rejects the insert.
	mockUsers.On("GetByName", "Gabriel Nunes").Return(nil, repositories.ErrNotFound).Once()
	mockUsers.On("GetByEmail", "g@example.org").Return(nil, repositories.ErrNotFound).Once()
	mockUsers.On("Create", mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicate).Once()

	_, err := svc.Register(services.RegisterRequest{
		Name:                 "Gabriel Nunes",
		Email:                "g@example.org",
		Password:             "Secret1!",
		PasswordConfirmation: "Secret1!",
	})

	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The email has already been taken."}, verr.Errors()["email"])
}

func TestAccountService_Authenticate(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockTokens := new(MockTokenRepository)
	svc := newAccountService(mockUsers, mockTokens)

	hash, _ := bcrypt.GenerateFromPassword([]byte("Secret1!"), bcrypt.MinCost)
	user := &models.User{
		ID:       "user-123",
		Name:     "Gabriel Nunes",
		Email:    "g@example.org",
		Password: string(hash),
	}

	// Successful authentication issues a token
	mockUsers.On("GetByEmail", user.Email).Return(user, nil).Twice()
	mockTokens.On("Create", mock.AnythingOfType("*models.Token")).Return(nil).Twice()

	token1, err := svc.Authenticate(services.AuthenticateRequest{
		Email:      user.Email,
		Password:   "Secret1!",
		DeviceName: "IOS",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, token1)
	assert.True(t, strings.Contains(token1, "|"))

	// A second authenticate issues a distinct token
	token2, err := svc.Authenticate(services.AuthenticateRequest{
		Email:      user.Email,
		Password:   "Secret1!",
		DeviceName: "IOS",
	})
	assert.NoError(t, err)
	assert.NotEqual(t, token1, token2)
	mockUsers.AssertExpectations(t)
	mockTokens.AssertExpectations(t)
}

func TestAccountService_Authenticate_BadCredentialsAreIndistinguishable(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockTokens := new(MockTokenRepository)
	svc := newAccountService(mockUsers, mockTokens)

	hash, _ := bcrypt.GenerateFromPassword([]byte("Secret1!"), bcrypt.MinCost)
	user := &models.User{ID: "user-123", Email: "g@example.org", Password: string(hash)}

	// Wrong password
	mockUsers.On("GetByEmail", user.Email).Return(user, nil).Once()
	_, wrongPassErr := svc.Authenticate(services.AuthenticateRequest{
		Email:      user.Email,
		Password:   "WrongPass",
		DeviceName: "IOS",
	})

	// Unknown email
	mockUsers.On("GetByEmail", "nobody@example.org").Return(nil, repositories.ErrNotFound).Once()
	_, noUserErr := svc.Authenticate(services.AuthenticateRequest{
		Email:      "nobody@example.org",
		Password:   "Secret1!",
		DeviceName: "IOS",
	})

	var verr1, verr2 *services.ValidationError
	assert.ErrorAs(t, wrongPassErr, &verr1)
	assert.ErrorAs(t, noUserErr, &verr2)
	assert.Equal(t, verr1.Errors(), verr2.Errors())
	assert.Equal(t, []string{"The provided credentials are incorrect."}, verr1.Errors()["email"])
	mockTokens.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAccountService_Authenticate_RequiresAllFields(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockTokens := new(MockTokenRepository)
	svc := newAccountService(mockUsers, mockTokens)

	_, err := svc.Authenticate(services.AuthenticateRequest{})

	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors(), "email")
	assert.Contains(t, verr.Errors(), "password")
	assert.Contains(t, verr.Errors(), "device_name")
	mockUsers.AssertNotCalled(t, "GetByEmail", mock.Anything)
}

func TestAccountService_ChangeEmail(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockTokens := new(MockTokenRepository)
	svc := newAccountService(mockUsers, mockTokens)

	user := &models.User{ID: "user-123", Name: "Gabriel Nunes", Email: "g@example.org"}

	// Valid email is persisted
	mockUsers.On("Update", user).Return(nil).Once()
	updated, err := svc.ChangeEmail(user, services.ChangeEmailRequest{Email: "robert@example.org"})
	assert.NoError(t, err)
	assert.Equal(t, "robert@example.org", updated.Email)
	mockUsers.AssertExpectations(t)

	// Invalid email is rejected before any write
	_, err = svc.ChangeEmail(user, services.ChangeEmailRequest{Email: "not-an-email"})
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The email field must be a valid email address."}, verr.Errors()["email"])

	// An exact collision on the unique index still surfaces as a field error
	mockUsers.On("Update", user).Return(repositories.ErrDuplicate).Once()
	_, err = svc.ChangeEmail(user, services.ChangeEmailRequest{Email: "taken@example.org"})
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The email has already been taken."}, verr.Errors()["email"])
}

func TestAccountService_Logout(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockTokens := new(MockTokenRepository)
	svc := newAccountService(mockUsers, mockTokens)

	user := &models.User{ID: "user-123"}

	mockTokens.On("DeleteByUserID", user.ID).Return(int64(2), nil).Once()
	assert.NoError(t, svc.Logout(user))

	// Idempotent: a second logout with nothing left still succeeds
	mockTokens.On("DeleteByUserID", user.ID).Return(int64(0), nil).Once()
	assert.NoError(t, svc.Logout(user))
	mockTokens.AssertExpectations(t)
}
