package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/skincareplus/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type UserLister interface {
	List(ctx context.Context, f user.ListFilter) ([]user.User, error)
}

type AdminHandler struct {
	users UserLister
}

func NewAdminHandler(users UserLister) *AdminHandler {
	return &AdminHandler{users: users}
}

// GET /api/admin/users?role=ADMIN&skinType=OILY&active=true&limit=50&offset=0
func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	f := user.ListFilter{
		SkinType: optionalString(ctx, "skinType"),
		Active:   optionalBool(ctx, "active"),
		Limit:    parseIntDefault(ctx.Query("limit"), 50),
		Offset:   parseIntDefault(ctx.Query("offset"), 0),
	}

	if f.Limit < 1 || f.Limit > 200 {
		RespondBadRequest(ctx, "limit must be between 1 and 200", nil)
		return
	}
	if f.Offset < 0 {
		RespondBadRequest(ctx, "offset must be zero or positive", nil)
		return
	}

	if r := optionalString(ctx, "role"); r != nil {
		role := user.Role(*r)
		if !role.IsValid() {
			RespondBadRequest(ctx, "role must be USER or ADMIN", nil)
			return
		}
		f.Role = &role
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	users, err := h.users.List(cctx, f)
	if err != nil {
		RespondInternal(ctx, "Could not list users", err)
		return
	}

	// never leak password hashes through the admin surface
	profiles := make([]user.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}

	RespondJSONWithETag(ctx, http.StatusOK, Envelope{
		Success: true,
		Message: "Users retrieved",
		Data: gin.H{
			"items":  profiles,
			"count":  len(profiles),
			"limit":  f.Limit,
			"offset": f.Offset,
		},
	})
}
