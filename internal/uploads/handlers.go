package uploads

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fraudlens/fraudlens/internal/fraud"
	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/traces"
)

// ProcessedNotifier is told when an uploaded file finishes scoring.
type ProcessedNotifier interface {
	EmitFileProcessed(fileID, batchID string, transactionCount int)
}

// Handler provides HTTP endpoints for transaction file uploads.
type Handler struct {
	store    Store
	scoring  *fraud.Service
	notifier ProcessedNotifier
}

// NewHandler creates a new uploads handler. notifier may be nil.
func NewHandler(store Store, scoring *fraud.Service, notifier ProcessedNotifier) *Handler {
	return &Handler{store: store, scoring: scoring, notifier: notifier}
}

// RegisterRoutes sets up upload routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/uploads", h.Upload)
	r.GET("/files/:id", h.GetFile)
	r.POST("/files/:id/predict", h.PredictFile)
}

// Upload handles POST /uploads
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Multipart form field 'file' is required",
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Could not read uploaded file",
		})
		return
	}
	defer func() { _ = f.Close() }()

	format, txs, err := Parse(fileHeader.Filename, f)
	if err != nil {
		status := http.StatusBadRequest
		kind := "invalid_file"
		if errors.Is(err, ErrUnsupportedFormat) {
			kind = "unsupported_format"
		}
		c.JSON(status, gin.H{
			"error":   kind,
			"message": err.Error(),
		})
		return
	}

	file := NewFile(fileHeader.Filename, format, fileHeader.Size, len(txs))
	if err := h.store.Create(c.Request.Context(), file, txs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "upload_failed",
			"message": err.Error(),
		})
		return
	}

	metrics.UploadsTotal.WithLabelValues(format).Inc()

	c.JSON(http.StatusCreated, gin.H{
		"file_id":           file.FileID,
		"filename":          file.Filename,
		"size":              file.Size,
		"transaction_count": file.TransactionCount,
		"status":            file.Status,
		"message":           "File uploaded successfully",
	})
}

// GetFile handles GET /files/:id
func (h *Handler) GetFile(c *gin.Context) {
	file, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

// PredictFile handles POST /files/:id/predict: scores an uploaded file as
// one batch and links the resulting batch ID back to the file record.
func (h *Handler) PredictFile(c *gin.Context) {
	fileID := c.Param("id")
	ctx, span := traces.StartSpan(c.Request.Context(), "uploads.predict", traces.FileID(fileID))
	defer span.End()

	txs, err := h.store.Transactions(ctx, fileID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	batch, err := h.scoring.RunBatch(ctx, txs, fraud.BatchOptions{})
	if err != nil {
		var aborted *fraud.BatchAbortedError
		if errors.As(err, &aborted) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "batch_aborted",
				"message": aborted.Error(),
				"index":   aborted.Index,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "prediction_failed",
			"message": err.Error(),
		})
		return
	}

	if err := h.store.SetBatchID(ctx, fileID, batch.BatchID); err != nil {
		respondStoreError(c, err)
		return
	}

	if h.notifier != nil {
		h.notifier.EmitFileProcessed(fileID, batch.BatchID, batch.TransactionCount)
	}

	c.JSON(http.StatusOK, batch)
}

func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, ErrFileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "File not found",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": err.Error(),
	})
}
