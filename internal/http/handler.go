package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/envreader/internal/domain"
	"go.ngs.io/envreader/internal/usecase"
)

// Handler handles HTTP requests for environment data.
type Handler struct {
	environmentUC *usecase.EnvironmentUseCase
}

// NewHandler creates a new HTTP handler.
func NewHandler(environmentUC *usecase.EnvironmentUseCase) *Handler {
	return &Handler{
		environmentUC: environmentUC,
	}
}

// GetEnvironment handles GET /v1/environment.
func (h *Handler) GetEnvironment(c *gin.Context) {
	req := usecase.EnvironmentRequest{
		Variables: splitList(c.Query("variables")),
	}

	var err error
	if req.Lon, err = parseFloats(c.Query("lon")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid longitude: %v", err)})
		return
	}
	if req.Lat, err = parseFloats(c.Query("lat")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid latitude: %v", err)})
		return
	}
	if req.Depth, err = parseFloats(c.Query("depth")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid depth: %v", err)})
		return
	}

	// Time is optional; readers fall back to their first time step.
	if timeStr := c.Query("time"); timeStr != "" {
		t, err := time.Parse(time.RFC3339, timeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid time (expected RFC3339): %v", err)})
			return
		}
		req.Time = t.UTC()
	}

	response, err := h.environmentUC.Execute(req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetResolve handles GET /v1/resolve.
func (h *Handler) GetResolve(c *gin.Context) {
	response, err := h.environmentUC.Resolve(splitList(c.Query("variables")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetVariables handles GET /v1/variables.
func (h *Handler) GetVariables(c *gin.Context) {
	variables := h.environmentUC.ListVariables()
	c.JSON(http.StatusOK, gin.H{
		"variables": variables,
		"count":     len(variables),
	})
}

// GetReaders handles GET /v1/readers.
func (h *Handler) GetReaders(c *gin.Context) {
	readers := h.environmentUC.ListReaders()
	c.JSON(http.StatusOK, gin.H{
		"readers": readers,
		"count":   len(readers),
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var missing *domain.MissingVariablesError
	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "missing": missing.Names})
	case errors.Is(err, domain.ErrVariableNotAvailable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTimeOutOfRange), errors.Is(err, domain.ErrSpaceOutOfRange):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseFloats(s string) ([]float64, error) {
	parts := splitList(s)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
