package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlastravel/pricingservice/internal/catalog"
	"github.com/atlastravel/pricingservice/internal/domain"
	"github.com/atlastravel/pricingservice/internal/log"
	"github.com/atlastravel/pricingservice/internal/pricing"
	"github.com/atlastravel/pricingservice/internal/quote/sync"
)

type handlers struct {
	manager *sync.Manager
	calc    *pricing.Calculator
	catalog catalog.Catalog
}

// paramsPayload carries the three booking parameters over the wire.
// Arrival dates are plain calendar days.
type paramsPayload struct {
	People      int    `json:"people" binding:"required,gt=0"`
	Nights      int    `json:"nights" binding:"required,gt=0"`
	ArrivalDate string `json:"arrival_date" binding:"required"`
}

func (p paramsPayload) toParams() (domain.QuoteParams, error) {
	arrival, err := parseDate(p.ArrivalDate)
	if err != nil {
		return domain.QuoteParams{}, err
	}
	return domain.QuoteParams{
		People:      p.People,
		Nights:      p.Nights,
		ArrivalDate: arrival,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

type packageRef struct {
	PackageID      string `json:"package_id" binding:"required"`
	PackageVersion int    `json:"package_version"`
}

type calculateRequest struct {
	packageRef
	paramsPayload
}

// calculatePrice is the stateless calculation endpoint: parameters plus a
// package reference in, a breakdown (possibly on-request) or a reason
// code out.
func (h *handlers) calculatePrice(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid package_id"})
		return
	}
	params, err := req.toParams()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid arrival_date"})
		return
	}

	res, err := h.calc.Quote(c.Request.Context(), packageID, req.PackageVersion, params)
	if err != nil {
		writeDomainError(c, err, res.Warnings)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"breakdown":  res.Breakdown,
		"on_request": res.Breakdown.IsOnRequest(),
		"warnings":   res.Warnings,
	})
}

// validateParams returns the advisory warnings alone.
func (h *handlers) validateParams(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid package_id"})
		return
	}
	params, err := req.toParams()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid arrival_date"})
		return
	}

	pkg, err := h.catalog.Get(c.Request.Context(), packageID, req.PackageVersion)
	if err != nil {
		writeDomainError(c, err, nil)
		return
	}

	warnings := pricing.Validate(pkg, params)
	c.JSON(http.StatusOK, gin.H{"warnings": warnings})
}

func (h *handlers) createSession(c *gin.Context) {
	var req paramsPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params, err := req.toParams()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid arrival_date"})
		return
	}

	ctrl := h.manager.Create(params)
	log.Info(c.Request.Context(), "created quote session",
		zap.String("session_id", ctrl.ID().String()))

	c.JSON(http.StatusCreated, gin.H{
		"session_id": ctrl.ID(),
		"state":      ctrl.Snapshot(),
	})
}

func (h *handlers) getSession(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": ctrl.Snapshot()})
}

func (h *handlers) endSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if !h.manager.End(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) selectPackage(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req packageRef
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid package_id"})
		return
	}

	snap := ctrl.SelectPackage(c.Request.Context(), packageID, req.PackageVersion)
	c.JSON(http.StatusOK, gin.H{"state": snap})
}

func (h *handlers) unlinkPackage(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": ctrl.Unlink()})
}

func (h *handlers) parametersChanged(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req paramsPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params, err := req.toParams()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid arrival_date"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": ctrl.ParametersChanged(params)})
}

func (h *handlers) setManualPrice(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		TotalPriceCents int64 `json:"total_price_cents" binding:"required,gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": ctrl.SetManualPrice(req.TotalPriceCents)})
}

func (h *handlers) resetToCalculated(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	snap, err := ctrl.ResetToCalculated(c.Request.Context())
	if err != nil {
		writeSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": snap})
}

func (h *handlers) retry(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	snap, err := ctrl.Retry(c.Request.Context())
	if err != nil {
		writeSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": snap})
}

func (h *handlers) session(c *gin.Context) (*sync.Controller, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil, false
	}
	ctrl, ok := h.manager.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return ctrl, true
}

func writeSyncError(c *gin.Context, err error) {
	if errors.Is(err, sync.ErrNoLinkedPackage) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// writeDomainError maps reason codes to HTTP statuses. Matrix mismatches
// are client-resolvable (different parameters), lookup trouble is not.
func writeDomainError(c *gin.Context, err error, warnings []domain.ValidationWarning) {
	de, ok := domain.AsError(err)
	if !ok {
		de = domain.NewLookupFailureError(err)
	}

	status := http.StatusUnprocessableEntity
	switch de.Code {
	case domain.ErrCodePackageNotFound:
		status = http.StatusNotFound
	case domain.ErrCodeLookupFailure:
		status = http.StatusServiceUnavailable
	}

	body := gin.H{
		"code":    de.Code,
		"message": de.Message,
		"details": de.Details,
	}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	c.JSON(status, body)
}
