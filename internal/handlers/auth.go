package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/avellaud/pictobank/internal/auth"
	"github.com/avellaud/pictobank/internal/services"
	apperrors "github.com/avellaud/pictobank/pkg/errors"
	"github.com/avellaud/pictobank/pkg/response"
	"github.com/avellaud/pictobank/pkg/validator"
)

// AuthHandler registers accounts and issues viewer tokens. Email confirmation
// and password recovery flows live outside the store.
type AuthHandler struct {
	accounts *services.AccountService
	jwt      *iauth.JWTService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(accounts *services.AccountService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{accounts: accounts, jwt: jwt}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid registration payload"))
		return
	}
	if err := validator.ValidateStruct(body); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}

	user, err := h.accounts.Register(requestContext(c), services.RegisterInput{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid login payload"))
		return
	}

	user, err := h.accounts.Authenticate(requestContext(c), body.Username, body.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.Issue(user.ID)
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "issue token"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":    token,
		"user_id":  user.ID,
		"username": user.Username,
	})
}
