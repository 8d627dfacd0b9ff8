package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/skincareplus/internal/actorctx"
	"github.com/geocoder89/skincareplus/internal/auth"
	"github.com/geocoder89/skincareplus/internal/domain/user"
	"github.com/geocoder89/skincareplus/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type AuthService interface {
	Register(ctx context.Context, req user.RegisterRequest) (auth.AuthResult, error)
	Login(ctx context.Context, usernameOrEmail, password string) (auth.AuthResult, error)
	Profile(ctx context.Context, id actorctx.Identity) (user.Profile, error)
	Logout(ctx context.Context, token string) error
	CheckUsernameAvailable(ctx context.Context, username string) (bool, error)
	CheckEmailAvailable(ctx context.Context, email string) (bool, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type availability struct {
	Available bool `json:"available"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// bcrypt dominates; keep the budget a little wider than plain lookups
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	res, err := h.svc.Register(cctx, req)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateUsername):
			RespondError(ctx, http.StatusBadRequest, "duplicate_username", "Username is already taken!", nil)
		case errors.Is(err, user.ErrDuplicateEmail):
			RespondError(ctx, http.StatusBadRequest, "duplicate_email", "Email is already in use!", nil)
		case errors.Is(err, user.ErrPasswordTooLong):
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
				Field:   "password",
				Rule:    "maxbytes",
				Param:   strconv.Itoa(user.MaxPasswordBytes),
				Message: validationMessage("maxbytes", strconv.Itoa(user.MaxPasswordBytes)),
			}}})
		default:
			RespondInternal(ctx, "Could not register user", err)
		}
		return
	}

	RespondOK(ctx, http.StatusCreated, "User registered successfully", res)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	res, err := h.svc.Login(cctx, req.UsernameOrEmail, req.Password)

	if err != nil {
		if errors.Is(err, auth.ErrAuthenticationFailed) {
			RespondUnauthorized(ctx, "invalid_credentials", "Invalid username or password")
			return
		}
		RespondInternal(ctx, "Could not log in", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Login successful", res)
}

// Profile returns the caller's profile. Requires RequireAuth.
func (h *AuthHandler) Profile(ctx *gin.Context) {
	id, ok := actorctx.IdentityFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "User not authenticated")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	profile, err := h.svc.Profile(cctx, id)

	if err != nil {
		// the token is valid but the account is gone: nothing the client can fix
		RespondInternal(ctx, "Could not load profile", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, Envelope{Success: true, Message: "Profile retrieved", Data: profile})
}

// Logout always acknowledges. A valid bearer token is revoked until it expires.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	if token, ok := middlewares.BearerToken(ctx); ok {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.svc.Logout(cctx, token); err != nil {
			RespondInternal(ctx, "Could not log out", err)
			return
		}
	}

	RespondOK(ctx, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) CheckUsername(ctx *gin.Context) {
	// exact match, as stored: no trimming or case folding
	username := ctx.Query("username")
	if username == "" {
		RespondBadRequest(ctx, "username query parameter is required", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	available, err := h.svc.CheckUsernameAvailable(cctx, username)
	if err != nil {
		RespondInternal(ctx, "Could not check username", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Username availability checked", availability{Available: available})
}

func (h *AuthHandler) CheckEmail(ctx *gin.Context) {
	email := ctx.Query("email")
	if email == "" {
		RespondBadRequest(ctx, "email query parameter is required", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	available, err := h.svc.CheckEmailAvailable(cctx, email)
	if err != nil {
		RespondInternal(ctx, "Could not check email", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Email availability checked", availability{Available: available})
}
