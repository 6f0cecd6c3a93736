package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"racingplate/internal/middleware"
	"racingplate/internal/models"
	"racingplate/internal/services"
	"racingplate/internal/storage"
)

type MediaHandler struct {
	media services.MediaService
	store storage.Storage
}

func NewMediaHandler(media services.MediaService, store storage.Storage) *MediaHandler {
	return &MediaHandler{media: media, store: store}
}

func uploadIdentity(c *gin.Context) (userID *int, subscription string) {
	subscription = "free"
	if user, ok := middleware.CurrentUser(c); ok {
		id := user.ID
		userID = &id
		subscription = user.Subscription
	}
	return
}

// @Summary      Upload media
// @Description  Single "file" field or multi "files" field, validated against an allow-list
// @Tags         Media
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  false  "File to upload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /api/media/upload [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, subscription := uploadIdentity(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Upload failed", "message": err.Error()})
		return
	}

	var headers []*multipart.FileHeader
	if files := form.File["files"]; len(files) > 0 {
		headers = files
	} else if files := form.File["file"]; len(files) > 0 {
		headers = files[:1]
	}
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "No file uploaded",
			"message": "Please select a file to upload",
		})
		return
	}
	if len(headers) > services.MaxFilesPerUpload {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Too many files",
			"message": "Maximum 10 files allowed per upload",
		})
		return
	}

	uploaded := make([]*models.MediaFile, 0, len(headers))
	for _, fh := range headers {
		file, err := h.media.Upload(c.Request.Context(), userID, subscription, fh)
		if err != nil {
			h.respondUploadError(c, err)
			return
		}
		uploaded = append(uploaded, file)
	}

	if len(uploaded) == 1 {
		c.JSON(http.StatusOK, gin.H{"message": "File uploaded successfully", "file": uploaded[0]})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Files uploaded successfully", "files": uploaded})
}

func (h *MediaHandler) respondUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large", "message": err.Error()})
	case errors.Is(err, services.ErrFileTypeNotAllowed),
		errors.Is(err, services.ErrExtensionMismatch),
		errors.Is(err, services.ErrSuspiciousFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Upload failed", "message": err.Error()})
	case errors.Is(err, services.ErrNoFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded", "message": "Please select a file to upload"})
	default:
		serverError(c, "media.upload", err)
	}
}

// @Summary      List uploaded files
// @Description  The caller's files when authenticated, public uploads otherwise
// @Tags         Media
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/media/list [get]
func (h *MediaHandler) List(c *gin.Context) {
	userID, _ := uploadIdentity(c)

	files, err := h.media.List(c.Request.Context(), userID)
	if err != nil {
		serverError(c, "media.list", err)
		return
	}
	if files == nil {
		files = []*models.MediaFile{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// Serve streams a stored file. Keys are `<prefix>/<filename>`, matching the
// URLs returned by upload/list.
func (h *MediaHandler) Serve(c *gin.Context) {
	prefix := c.Param("prefix")
	filename := path.Base(c.Param("filename"))
	key := path.Join(prefix, filename)

	rc, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	defer rc.Close()

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		// headers already sent, nothing useful left to do
		return
	}
}
