package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/skincareplus/internal/actorctx"
	"github.com/gin-gonic/gin"
)

func parseIntDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}

	n, err := strconv.Atoi(s)

	if err != nil {
		return fallback
	}

	return n
}

// idParam reads a positive int64 path parameter and answers 400 otherwise.
func idParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, name+" must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// identity answers 401 when the request carries no verified caller.
func identity(ctx *gin.Context) (actorctx.Identity, bool) {
	id, ok := actorctx.IdentityFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "User not authenticated")
		return actorctx.Identity{}, false
	}
	return id, true
}

func optionalString(ctx *gin.Context, key string) *string {
	if v := strings.TrimSpace(ctx.Query(key)); v != "" {
		return &v
	}
	return nil
}

// optionalBool only accepts "true" and "false"; anything else is unset.
func optionalBool(ctx *gin.Context, key string) *bool {
	switch strings.ToLower(ctx.Query(key)) {
	case "true":
		b := true
		return &b
	case "false":
		b := false
		return &b
	}
	return nil
}

// optionalTime accepts RFC3339 or a bare date.
func optionalTime(ctx *gin.Context, key string) (*time.Time, bool) {
	v := strings.TrimSpace(ctx.Query(key))
	if v == "" {
		return nil, true
	}

	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, true
	}

	RespondBadRequest(ctx, key+" must be RFC3339 or YYYY-MM-DD", nil)
	return nil, false
}
