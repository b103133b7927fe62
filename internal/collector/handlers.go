package collector

import (
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
}

type Handler struct {
	store     *Store
	maxUpload int64
}

func NewHandler(store *Store, maxUpload int64) *Handler {
	return &Handler{
		store:     store,
		maxUpload: maxUpload,
	}
}

// Routes wires the collector endpoints onto a gin engine with an allow-all
// CORS policy.
func Routes(h *Handler) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	r.POST("/api/training-data", h.Submit)
	r.GET("/api/stats", h.Stats)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "training-data-collector"})
	})

	return r
}

func (h *Handler) Submit(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided. Use 'image' as the form field name"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Unsupported file type",
			"message": "Allowed extensions: png, jpg, jpeg, bmp",
		})
		return
	}

	if fileHeader.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":   "File too large",
			"message": "Image exceeds the upload size limit",
		})
		return
	}

	metadataField := c.PostForm("metadata")
	if metadataField == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing metadata form field"})
		return
	}
	meta, err := ParseMetadata(metadataField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid metadata", "message": err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	if len(imageData) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty file"})
		return
	}

	receipt, err := h.store.Save(imageData, ext, meta)
	if err != nil {
		log.Printf("Failed to persist submission: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist submission"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"submissionId": receipt.SubmissionID,
		"message":      "Training data stored",
	})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		log.Printf("Failed to collect stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to collect stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
