package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/coach-lineup-api/internal/dto"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
	"github.com/noah-isme/coach-lineup-api/pkg/response"
)

type backupService interface {
	Create(ctx context.Context) (*dto.BackupFile, string, error)
	Validate(filename string, r io.Reader) *dto.BackupValidation
	Restore(ctx context.Context, filename string, r io.Reader) (*dto.RestoreResult, error)
	Info(ctx context.Context) (*dto.DatabaseInfo, error)
	Cleanup(ctx context.Context, keepDays int) (*dto.CleanupResult, error)
}

// BackupHandler exposes database backup and restore endpoints.
type BackupHandler struct {
	service   backupService
	validator *validator.Validate
}

// NewBackupHandler builds a backup handler.
func NewBackupHandler(service backupService) *BackupHandler {
	return &BackupHandler{service: service, validator: validator.New()}
}

// Backup godoc
// @Summary Create a database backup and download it
// @Tags Backup
// @Produce application/octet-stream
// @Success 200 {file} binary
// @Router /backup [get]
func (h *BackupHandler) Backup(c *gin.Context) {
	backup, path, err := h.service.Create(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.FileAttachment(path, backup.Name)
}

// Validate godoc
// @Summary Check an uploaded backup without restoring it
// @Tags Backup
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Backup file"
// @Success 200 {object} response.Envelope
// @Router /backup/validate [post]
func (h *BackupHandler) Validate(c *gin.Context) {
	file, filename, valid := uploadedFile(c)
	if !valid {
		return
	}
	defer file.Close()
	ok(c, h.service.Validate(filename, file))
}

// Restore godoc
// @Summary Replace the database with an uploaded backup
// @Description The current database is snapshotted as pre_restore_backup_<timestamp>.db first.
// @Tags Backup
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Backup file"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	file, filename, valid := uploadedFile(c)
	if !valid {
		return
	}
	defer file.Close()

	result, err := h.service.Restore(c.Request.Context(), filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, result)
}

// Info godoc
// @Summary Describe the database file and stored backups
// @Tags Backup
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /backup/info [get]
func (h *BackupHandler) Info(c *gin.Context) {
	info, err := h.service.Info(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, info)
}

// Cleanup godoc
// @Summary Delete backups older than keep_days
// @Tags Backup
// @Produce json
// @Param keep_days query int false "Retention in days (default 30)"
// @Success 200 {object} response.Envelope
// @Router /backup/cleanup [post]
func (h *BackupHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badBody(c, err, "invalid keep_days")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.WithDetails(appErrors.ErrBadRequest, "invalid keep_days",
			appErrors.FieldError{Field: "keep_days", Reason: "must be between 1 and 3650"}))
		return
	}
	result, err := h.service.Cleanup(c.Request.Context(), req.KeepDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, result)
}
