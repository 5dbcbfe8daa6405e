package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/locomproapp/locompro/internal/infra/storage/s3"
)

type UploadHandler struct {
	Images s3.ImageStore
	Logger *slog.Logger
}

func (h UploadHandler) Upload(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads unavailable"})
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	url, err := h.Images.StoreImage(c.Request.Context(), s3.Image{
		OwnerID:     user.ID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	switch {
	case errors.Is(err, s3.ErrNotImage):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only images are accepted"})
	case errors.Is(err, s3.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
	case errors.Is(err, s3.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads unavailable"})
	case err != nil:
		if h.Logger != nil {
			h.Logger.Error("upload failed", "error", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
	default:
		c.JSON(http.StatusCreated, gin.H{"url": url})
	}
}

var _ UploadHTTP = UploadHandler{}
