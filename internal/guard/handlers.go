package guard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/txguard/txguard/internal/allowlist"
	"github.com/txguard/txguard/internal/audit"
	"github.com/txguard/txguard/internal/integrity"
	"github.com/txguard/txguard/internal/validation"
)

// Handler provides HTTP endpoints for guard operations.
type Handler struct {
	service *Service
	reader  audit.Reader
}

// NewHandler creates a new guard handler. reader may be nil when no audit
// reader is available; the audit endpoint then returns 404.
func NewHandler(service *Service, reader audit.Reader) *Handler {
	return &Handler{service: service, reader: reader}
}

// RegisterRoutes sets up public (read-only) guard routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/status", h.GetStatus)
	r.GET("/allowlist", h.ListAllowlist)
	r.GET("/audit/recent", h.RecentAudit)
}

// RegisterProtectedRoutes sets up routes that mutate wallet state.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/send/request", h.RequestSend)
	r.POST("/send/confirm", h.ConfirmSend)
	r.POST("/freeze", h.Freeze)
	r.POST("/unfreeze", h.Unfreeze)
	r.POST("/allowlist", h.AddAllowlisted)
}

// RequestSend handles POST /v1/send/request
func (h *Handler) RequestSend(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "to, amount and token are required",
		})
		return
	}

	if verrs := validation.Validate(
		validation.ValidAddress("to", req.To),
		validation.ValidAmount("amount", req.Amount),
		validation.ValidToken("token", req.Token),
	); len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": verrs.Error(),
			"details": verrs,
		})
		return
	}

	out, err := h.service.RequestSend(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, out)
}

// ConfirmSend handles POST /v1/send/confirm
func (h *Handler) ConfirmSend(c *gin.Context) {
	var req struct {
		Code      string    `json:"code" binding:"required"`
		Confirmer *Identity `json:"confirmer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "code is required",
		})
		return
	}

	out, err := h.service.ConfirmSend(c.Request.Context(), req.Code, req.Confirmer)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

// GetStatus handles GET /v1/status
func (h *Handler) GetStatus(c *gin.Context) {
	info, err := h.service.Status(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Freeze handles POST /v1/freeze
func (h *Handler) Freeze(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	body.Reason = validation.SanitizeString(body.Reason, validation.MaxLabelLength)

	if err := h.service.Freeze(c.Request.Context(), body.Reason); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frozen": true})
}

// Unfreeze handles POST /v1/unfreeze
func (h *Handler) Unfreeze(c *gin.Context) {
	if err := h.service.Unfreeze(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frozen": false})
}

// ListAllowlist handles GET /v1/allowlist
func (h *Handler) ListAllowlist(c *gin.Context) {
	entries, err := h.service.Allowlist().List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"addresses": entries,
		"count":     len(entries),
	})
}

// AddAllowlisted handles POST /v1/allowlist
func (h *Handler) AddAllowlisted(c *gin.Context) {
	var body struct {
		Address string `json:"address" binding:"required"`
		Label   string `json:"label"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "address is required",
		})
		return
	}

	label := validation.SanitizeString(body.Label, validation.MaxLabelLength)
	entry, err := h.service.Allowlist().Add(c.Request.Context(), body.Address, label)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// RecentAudit handles GET /v1/audit/recent
func (h *Handler) RecentAudit(c *gin.Context) {
	if h.reader == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "audit log not available",
		})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.reader.Recent(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// writeError maps service errors onto HTTP responses. Policy rejections
// keep their stable error codes; tampering is surfaced as a distinct 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, integrity.ErrTampered) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "integrity_failure",
			"message": err.Error(),
		})
		return
	}

	var gerr *Error
	if errors.As(err, &gerr) {
		c.JSON(statusForCode(gerr.Code), gin.H{
			"error":   gerr.Code,
			"message": gerr.Message,
		})
		return
	}

	var verr *allowlist.ValidationError
	if errors.As(err, &verr) {
		status := http.StatusBadRequest
		if verr.Code == "duplicate_address" {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": verr.Code, "message": verr.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": err.Error(),
	})
}

func statusForCode(code string) int {
	switch code {
	case ErrInvalidAmount.Code:
		return http.StatusBadRequest
	case ErrWalletFrozen.Code, ErrUnauthorizedSender.Code, ErrNotAllowlisted.Code, ErrSenderMismatch.Code:
		return http.StatusForbidden
	case ErrNothingPending.Code:
		return http.StatusNotFound
	case ErrConfirmationPending.Code:
		return http.StatusConflict
	case ErrExceedsPerTx.Code, ErrExceedsDaily.Code, CodeWrongCode, ErrCodeExpired.Code, ErrTooManyAttempts.Code:
		return http.StatusUnprocessableEntity
	case CodeCooldownActive, ErrAnomalyFreeze.Code:
		return http.StatusTooManyRequests
	case ErrStateCorrupt.Code:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
