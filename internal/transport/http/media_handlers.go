package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pairchat/pairchat/internal/config"
)

// MediaHandlers stores uploaded attachments and hands back their public URL.
// The messaging core only ever consumes the returned url/type pair.
type MediaHandlers struct {
	uploadDir string
	maxBytes  int64
	baseURL   string
	log       *zerolog.Logger
}

// NewMediaHandlers creates a new media handlers instance.
func NewMediaHandlers(cfg *config.Config, logger *zerolog.Logger) *MediaHandlers {
	return &MediaHandlers{
		uploadDir: cfg.UploadDir,
		maxBytes:  cfg.MaxUploadBytes,
		baseURL:   cfg.PublicBaseURL,
		log:       logger,
	}
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Upload stores a binary attachment (multipart field "media", size-capped)
// and returns its URL and mime type.
// POST /api/media/upload
func (h *MediaHandlers) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	file, err := c.FormFile("media")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no file uploaded"})
		return
	}
	if file.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file exceeds upload size limit"})
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.log.Error().Err(err).Str("dir", h.uploadDir).Msg("failed to create upload dir")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	name := uuid.NewString() + filepath.Ext(file.Filename)
	dst := filepath.Join(h.uploadDir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.log.Error().Err(err).Str("path", dst).Msg("failed to save upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	h.log.Info().Str("file", name).Int64("size", file.Size).Msg("media uploaded")
	c.JSON(http.StatusOK, UploadResponse{
		URL:  fmt.Sprintf("%s/uploads/%s", h.baseURL, name),
		Type: mimeType,
	})
}
