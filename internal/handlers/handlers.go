package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oculens/cataract-api/internal/model"
	"github.com/oculens/cataract-api/internal/preprocess"
)

// PredictionService is the part of the ensemble the handlers depend on.
type PredictionService interface {
	Predict(imageBytes []byte) (*model.Result, error)
}

type Handler struct {
	service PredictionService
	models  []string
}

func NewHandler(service PredictionService, modelsLoaded []string) *Handler {
	return &Handler{
		service: service,
		models:  modelsLoaded,
	}
}

// Routes wires the inference service endpoints onto a gin engine with an
// allow-all CORS policy.
func Routes(h *Handler) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	r.GET("/health", h.Health)
	r.POST("/predict", h.Predict)

	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"modelsLoaded": h.models,
		"ensembleMode": len(h.models) > 1,
	})
}

func (h *Handler) Predict(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No file provided. Use 'file' as the form field name"})
		return
	}

	// A declared content type, when present, must be an image type. Files
	// uploaded without one are still accepted and validated by decoding.
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "File must be an image"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Failed to read uploaded file"})
		return
	}
	if len(imageBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Empty file"})
		return
	}

	result, err := h.service.Predict(imageBytes)
	if err != nil {
		switch {
		case errors.Is(err, preprocess.ErrDecode):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid image format. Supported: JPEG, PNG, BMP"})
		case errors.Is(err, model.ErrNoPredictions):
			log.Printf("Prediction error: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "No models available for inference"})
		default:
			log.Printf("Prediction error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Prediction failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
