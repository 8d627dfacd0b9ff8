package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/skincareplus/internal/domain/analysis"
	"github.com/geocoder89/skincareplus/internal/domain/recommendation"
	"github.com/geocoder89/skincareplus/internal/utils"
	"github.com/gin-gonic/gin"
)

type AnalysesRepo interface {
	Create(ctx context.Context, a analysis.SkinAnalysis) (analysis.SkinAnalysis, error)
	GetByID(ctx context.Context, id int64) (analysis.SkinAnalysis, error)
	ListByUser(ctx context.Context, userID int64, f analysis.ListFilter) ([]analysis.SkinAnalysis, error)
	LatestByUser(ctx context.Context, userID int64) (analysis.SkinAnalysis, error)
	Delete(ctx context.Context, id int64) error
	HighConfidence(ctx context.Context, minScore float64, limit int) ([]analysis.SkinAnalysis, error)
	StatsBySkinType(ctx context.Context) ([]analysis.SkinTypeStat, error)
}

type AnalysesHandler struct {
	repo AnalysesRepo
	recs RecommendationsRepo
}

func NewAnalysesHandler(repo AnalysesRepo, recs RecommendationsRepo) *AnalysesHandler {
	return &AnalysesHandler{repo: repo, recs: recs}
}

func (h *AnalysesHandler) Create(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	var req analysis.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	a, err := h.repo.Create(cctx, analysis.NewFromRequest(id.UserID, req))
	if err != nil {
		RespondInternal(ctx, "Could not save skin analysis", err)
		return
	}

	RespondOK(ctx, http.StatusCreated, "Skin analysis saved successfully", a)
}

// GET /api/analyses?limit=20&cursor=...&from=...&to=...&skinType=OILY&acne=true
func (h *AnalysesHandler) List(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	limit := parseIntDefault(ctx.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	f := analysis.ListFilter{
		SkinType:     optionalString(ctx, "skinType"),
		AcneDetected: optionalBool(ctx, "acne"),
		// one extra row tells us whether another page exists
		Limit: limit + 1,
	}

	if f.From, ok = optionalTime(ctx, "from"); !ok {
		return
	}
	if f.To, ok = optionalTime(ctx, "to"); !ok {
		return
	}

	if raw := ctx.Query("cursor"); raw != "" {
		cur, err := utils.DecodeCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "cursor is invalid", nil)
			return
		}
		f.AfterCreatedAt = &cur.CreatedAt
		f.AfterID = cur.ID
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	items, err := h.repo.ListByUser(cctx, id.UserID, f)
	if err != nil {
		RespondInternal(ctx, "Could not list skin analyses", err)
		return
	}

	hasMore := len(items) > limit
	var next *string

	if hasMore {
		items = items[:limit]
		last := items[len(items)-1]

		c, err := utils.EncodeCursor(last.CreatedAt, last.ID)
		if err != nil {
			RespondInternal(ctx, "Could not list skin analyses", err)
			return
		}
		next = &c
	}

	RespondJSONWithETag(ctx, http.StatusOK, Envelope{
		Success: true,
		Message: "Skin analyses retrieved",
		Data: gin.H{
			"items":      items,
			"count":      len(items),
			"limit":      limit,
			"hasMore":    hasMore,
			"nextCursor": next,
		},
	})
}

func (h *AnalysesHandler) Latest(ctx *gin.Context) {
	id, ok := identity(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	a, err := h.repo.LatestByUser(cctx, id.UserID)
	if err != nil {
		if errors.Is(err, analysis.ErrNotFound) {
			RespondNotFound(ctx, "No skin analysis found")
			return
		}
		RespondInternal(ctx, "Could not fetch latest skin analysis", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Latest skin analysis retrieved", a)
}

func (h *AnalysesHandler) load(cctx context.Context, ctx *gin.Context) (analysis.SkinAnalysis, bool) {
	caller, ok := identity(ctx)
	if !ok {
		return analysis.SkinAnalysis{}, false
	}

	analysisID, ok := idParam(ctx, "id")
	if !ok {
		return analysis.SkinAnalysis{}, false
	}

	a, err := h.repo.GetByID(cctx, analysisID)
	if err != nil {
		if errors.Is(err, analysis.ErrNotFound) {
			RespondNotFound(ctx, "Skin analysis not found")
			return analysis.SkinAnalysis{}, false
		}
		RespondInternal(ctx, "Could not fetch skin analysis", err)
		return analysis.SkinAnalysis{}, false
	}

	if !caller.CanAccess(a.UserID) {
		RespondForbidden(ctx, "You do not have access to this skin analysis")
		return analysis.SkinAnalysis{}, false
	}

	return a, true
}

func (h *AnalysesHandler) Get(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	a, ok := h.load(cctx, ctx)
	if !ok {
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, Envelope{Success: true, Message: "Skin analysis retrieved", Data: a})
}

// GET /api/analyses/:id/recommendation
func (h *AnalysesHandler) Recommendation(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	a, ok := h.load(cctx, ctx)
	if !ok {
		return
	}

	rec, err := h.recs.GetByAnalysis(cctx, a.ID)
	if err != nil {
		if errors.Is(err, recommendation.ErrNotFound) {
			RespondNotFound(ctx, "No recommendation for this skin analysis")
			return
		}
		RespondInternal(ctx, "Could not fetch recommendation", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Recommendation retrieved", rec)
}

func (h *AnalysesHandler) Delete(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	a, ok := h.load(cctx, ctx)
	if !ok {
		return
	}

	if err := h.repo.Delete(cctx, a.ID); err != nil {
		if errors.Is(err, analysis.ErrNotFound) {
			RespondNotFound(ctx, "Skin analysis not found")
			return
		}
		RespondInternal(ctx, "Could not delete skin analysis", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Skin analysis deleted successfully", nil)
}

// GET /api/admin/analyses/high-confidence?minConfidence=80&limit=50
func (h *AnalysesHandler) HighConfidence(ctx *gin.Context) {
	minScore := 80.0
	if raw := ctx.Query("minConfidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			RespondBadRequest(ctx, "minConfidence must be between 0 and 100", nil)
			return
		}
		minScore = v
	}

	limit := parseIntDefault(ctx.Query("limit"), 50)
	if limit < 1 || limit > 200 {
		RespondBadRequest(ctx, "limit must be between 1 and 200", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, err := h.repo.HighConfidence(cctx, minScore, limit)
	if err != nil {
		RespondInternal(ctx, "Could not list skin analyses", err)
		return
	}

	RespondOK(ctx, http.StatusOK, "High confidence analyses retrieved", gin.H{
		"items":         items,
		"count":         len(items),
		"minConfidence": minScore,
	})
}

// GET /api/admin/analyses/stats
func (h *AnalysesHandler) Stats(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	stats, err := h.repo.StatsBySkinType(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not compute statistics", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, Envelope{Success: true, Message: "Skin type statistics retrieved", Data: stats})
}
