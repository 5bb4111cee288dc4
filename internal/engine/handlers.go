package engine

import (
	"errors"
	"time"

	"github.com/bullionx/capital-api/internal/control"
	"github.com/bullionx/capital-api/internal/override"
	"github.com/bullionx/capital-api/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GinHandlers contains HTTP handlers for the capital engine endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GetSnapshotHandler handles GET requests for the current capital snapshot
func (h *GinHandlers) GetSnapshotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := h.service.Snapshot(time.Now())
		response.Handle(c, snapshot, err)
	}
}

// GetDecisionHandler handles GET requests for the effective control decision.
// Evaluation failures surface as 503 so gates treat the state as halted.
func (h *GinHandlers) GetDecisionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		effective, err := h.service.Evaluate(time.Now())
		if err != nil {
			response.Unavailable(c, "decision unavailable, treat as EMERGENCY_HALT")
			return
		}
		response.Success(c, effective)
	}
}

// GetBreachesHandler handles GET requests for breach history
// Query parameter: since (RFC3339, default last 24 hours)
func (h *GinHandlers) GetBreachesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		since := time.Now().Add(-24 * time.Hour)
		if raw := c.Query("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				response.BadRequest(c, "invalid 'since' timestamp, expected RFC3339")
				return
			}
			since = parsed
		}

		events, err := h.service.BreachEvents(since)
		response.Handle(c, events, err)
	}
}

// CreateOverrideHandler handles POST requests to create capital overrides.
// Actor identity comes from the JWT claims, never the body.
func (h *GinHandlers) CreateOverrideHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req override.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		created, err := h.service.CreateOverride(req, actorFromContext(c), time.Now())
		if err != nil {
			if override.IsValidationError(err) {
				response.BadRequest(c, err.Error())
				return
			}
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, created)
	}
}

// RevokeOverrideHandler handles DELETE requests to revoke an override
// URL parameter: override_id
func (h *GinHandlers) RevokeOverrideHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		overrideID := c.Param("override_id")

		revoked, err := h.service.RevokeOverride(overrideID, actorFromContext(c), time.Now())
		if err != nil {
			switch {
			case errors.Is(err, override.ErrNotActive):
				response.Conflict(c, err.Error())
			case errors.Is(err, override.ErrRevokeNotAllowed):
				response.Forbidden(c, err.Error())
			case errors.Is(err, gorm.ErrRecordNotFound):
				response.NotFound(c, "Override not found")
			default:
				response.Handle(c, nil, err)
			}
			return
		}

		response.Success(c, revoked)
	}
}

// ListOverridesHandler handles GET requests for recent overrides
func (h *GinHandlers) ListOverridesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		overrides, err := h.service.ListOverrides(100, time.Now())
		response.Handle(c, overrides, err)
	}
}

// AssessTransactionHandler handles POST requests to score a prospective
// transaction: TRI, blockers and approval tier
func (h *GinHandlers) AssessTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			CounterpartyID string  `json:"counterparty_id" binding:"required"`
			CorridorID     string  `json:"corridor_id" binding:"required"`
			HubID          string  `json:"hub_id" binding:"required"`
			AmountNotional float64 `json:"amount_notional" binding:"required,gt=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		assessment, err := h.service.AssessTransaction(
			req.CounterpartyID, req.CorridorID, req.HubID, req.AmountNotional, time.Now())
		response.Handle(c, assessment, err)
	}
}

// EvaluateHandler handles POST requests from internal callers to run a full
// pipeline sweep
func (h *GinHandlers) EvaluateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		effective, err := h.service.Evaluate(time.Now())
		if err != nil {
			response.Unavailable(c, "decision unavailable, treat as EMERGENCY_HALT")
			return
		}
		response.Success(c, effective)
	}
}

// GateHandler handles GET requests from action-gating collaborators
// URL parameter: action
func (h *GinHandlers) GateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		action := control.ActionKey(c.Param("action"))

		allowed, reason, err := h.service.Authorize(action, time.Now())
		payload := gin.H{
			"action":  action,
			"allowed": allowed,
			"reason":  reason,
		}
		if err != nil {
			c.JSON(503, response.Response{Success: false, Data: payload, Error: &response.Error{
				Code:    response.ErrCodeUnavailable,
				Message: reason,
			}})
			return
		}
		response.Success(c, payload)
	}
}

func actorFromContext(c *gin.Context) override.Actor {
	return override.Actor{
		Role:   c.GetString("role"),
		UserID: c.GetString("clientID"),
		Name:   c.GetString("name"),
	}
}
