package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodscan/backend/internal/domain"
	"github.com/foodscan/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scanService *usecase.ScanService
}

// NewHandler creates a new HTTP handler
func NewHandler(scanService *usecase.ScanService) *Handler {
	return &Handler{scanService: scanService}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "foodscan-backend",
		"version": "1.0.0",
	})
}

// ValidateProduct runs a raw product record through the validation engine
// and returns either the normalized product or the rejection.
func (h *Handler) ValidateProduct(c *gin.Context) {
	var record domain.RawRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON product record"})
		return
	}

	product, rejection, err := h.scanService.ValidateRecord(record)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if rejection != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"rejection": rejection})
		return
	}

	c.JSON(http.StatusOK, product)
}

// GetProduct fetches a product by barcode from OpenFoodFacts, validates it
// and returns the normalized product with derived CO2 metrics.
func (h *Handler) GetProduct(c *gin.Context) {
	barcode := c.Param("barcode")

	product, rejection, err := h.scanService.LookupProduct(c.Request.Context(), barcode)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "barcode is required"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream request failed"})
		}
		return
	}
	if rejection != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"rejection": rejection})
		return
	}

	c.JSON(http.StatusOK, product)
}

// scanRequest is the body of POST /api/v1/scan.
type scanRequest struct {
	Brand string `json:"brand" binding:"required"`
}

// ScanBrand runs the full discovery -> validation -> load pipeline for one
// brand and returns the scan report.
func (h *Handler) ScanBrand(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brand is required"})
		return
	}

	report, err := h.scanService.ScanBrand(c.Request.Context(), req.Brand)
	if err != nil {
		if errors.Is(err, domain.ErrStorageFailure) && report != nil {
			// Validation finished; only persistence failed.
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store accepted products", "report": report})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "scan failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}
