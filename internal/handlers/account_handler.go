package handlers

import (
	"errors"
	"log"

	"accountapi/internal/middleware"
	"accountapi/internal/models"
	"accountapi/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AccountHandler handles HTTP requests for accounts and authentication.
type AccountHandler struct {
	accountService *services.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// RegisterRoutes registers the account routes. authRequired guards the
// routes that need a resolved bearer token.
func (h *AccountHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	router.Post("/sanctum/token", h.HandleIssueToken)
	router.Post("/user", h.HandleRegister)

	router.Get("/me", authRequired, h.HandleMe)
	router.Patch("/user/change-email", authRequired, h.HandleChangeEmail)
	router.Delete("/user/logout", authRequired, h.HandleLogout)
}

// HandleIssueToken exchanges email/password for a new bearer token.
func (h *AccountHandler) HandleIssueToken(c *fiber.Ctx) error {
	var req services.AuthenticateRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing token request body: %v", err)
		return badRequestBody(c)
	}

	token, err := h.accountService.Authenticate(req)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"plainTextToken": token,
	})
}

// HandleRegister creates a new user account.
func (h *AccountHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return badRequestBody(c)
	}

	user, err := h.accountService.Register(req)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User created successfully!",
		"user":    user,
	})
}

// HandleMe returns the authenticated user's profile.
func (h *AccountHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// HandleChangeEmail updates the authenticated user's email address.
func (h *AccountHandler) HandleChangeEmail(c *fiber.Ctx) error {
	var req services.ChangeEmailRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing change-email request body: %v", err)
		return badRequestBody(c)
	}

	user, err := h.accountService.ChangeEmail(currentUser(c), req)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User e-mail updated successfully!",
		"user":    user,
	})
}

// HandleLogout revokes every token owned by the authenticated user.
func (h *AccountHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.accountService.Logout(currentUser(c)); err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "All user tokens were revoked !",
	})
}

// currentUser returns the user resolved by the auth middleware.
func currentUser(c *fiber.Ctx) *models.User {
	return c.Locals(middleware.UserKey).(*models.User)
}

// renderError maps service errors to responses: field-keyed 422 bodies for
// validation failures, 500 for anything else.
func renderError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": verr.Message(),
			"errors":  verr.Errors(),
		})
	}
	log.Printf("Internal error handling request: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}

func badRequestBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
	})
}
