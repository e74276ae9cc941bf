package profiles

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches credit-profile routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/credit-profiles", h.complete)
	rg.GET("/credit-profiles/:leadId", h.get)
}

type completeRequest struct {
	LeadID          string `json:"leadId"`
	FirstStatement  string `json:"firstStatement"`
	SecondStatement string `json:"secondStatement"`
	ThirdStatement  string `json:"thirdStatement"`
}

func (h *Handler) complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	profile, err := h.Svc.CompleteProfile(c.Request.Context(), CompleteInput{
		LeadCRMID: req.LeadID,
		StatementURLs: []string{
			strings.TrimSpace(req.FirstStatement),
			strings.TrimSpace(req.SecondStatement),
			strings.TrimSpace(req.ThirdStatement),
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "lead not found", nil)
		default:
			respond.Error(c, http.StatusBadGateway, respond.CodeUpstream, err.Error(), nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, profile)
}

func (h *Handler) get(c *gin.Context) {
	lead, err := h.Svc.Repo.GetLeadByCRMID(c.Request.Context(), c.Param("leadId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "lead not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, err.Error(), nil)
		return
	}
	profile, err := h.Svc.Repo.GetProfileByLead(c.Request.Context(), lead.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "credit profile not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, err.Error(), nil)
		return
	}
	respond.OK(c, profile)
}
