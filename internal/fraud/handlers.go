package fraud

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fraudlens/fraudlens/internal/pagination"
	"github.com/fraudlens/fraudlens/internal/validation"
)

// Handler provides HTTP endpoints for scoring, batches, and the model.
type Handler struct {
	service *Service
}

// NewHandler creates a new fraud handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up scoring routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/predict", h.PredictSingle)
	r.POST("/predict/batch", h.PredictBatch)
	r.GET("/batches", h.ListBatches)
	r.GET("/batches/:id", h.GetBatch)
	r.GET("/assessments/:id", h.GetAssessment)
	r.GET("/model/metrics", h.GetModelMetrics)
	r.POST("/model/retrain", h.Retrain)
	r.GET("/analytics/summary", h.AnalyticsSummary)
}

// BatchPredictRequest for scoring multiple transactions in one run
type BatchPredictRequest struct {
	Transactions []*Transaction `json:"transactions" binding:"required"`
	Policy       string         `json:"policy,omitempty"`  // "fail_fast" or "continue"
	Workers      int            `json:"workers,omitempty"` // 0 = server default
}

// PredictSingle handles POST /predict
func (h *Handler) PredictSingle(c *gin.Context) {
	var tx Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validateTransactionRequest(&tx); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_transaction",
			"message": errs.Error(),
			"fields":  errs,
		})
		return
	}

	assessment, err := h.service.Predict(c.Request.Context(), &tx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// PredictBatch handles POST /predict/batch
func (h *Handler) PredictBatch(c *gin.Context) {
	var req BatchPredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	opts := BatchOptions{Workers: req.Workers}
	switch req.Policy {
	case "":
	case string(FailFast):
		opts.Policy = FailFast
	case string(ContinueOnError):
		opts.Policy = ContinueOnError
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "policy must be 'fail_fast' or 'continue'",
		})
		return
	}

	batch, err := h.service.RunBatch(c.Request.Context(), req.Transactions, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

// ListBatches handles GET /batches with cursor pagination. Results are
// newest first; next_cursor is opaque and passed back as ?cursor=.
func (h *Handler) ListBatches(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "limit must be an integer between 1 and 100",
			})
			return
		}
		limit = n
	}

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid cursor",
		})
		return
	}

	var (
		before   time.Time
		beforeID string
	)
	if cursor != nil {
		before, beforeID = cursor.CreatedAt, cursor.ID
	}

	// Fetch one extra row to learn whether another page exists.
	batches, err := h.service.ListBatches(c.Request.Context(), before, beforeID, limit+1)
	if err != nil {
		respondError(c, err)
		return
	}

	page, next, more := pagination.ComputePage(batches, limit, func(b *BatchResult) (time.Time, string) {
		return b.CreatedAt, b.BatchID
	})
	if page == nil {
		page = []*BatchResult{}
	}

	c.JSON(http.StatusOK, gin.H{
		"batches":     page,
		"next_cursor": next,
		"has_more":    more,
	})
}

// GetBatch handles GET /batches/:id
func (h *Handler) GetBatch(c *gin.Context) {
	batch, err := h.service.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// GetAssessment handles GET /assessments/:id
func (h *Handler) GetAssessment(c *gin.Context) {
	assessment, err := h.service.GetAssessment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// GetModelMetrics handles GET /model/metrics
func (h *Handler) GetModelMetrics(c *gin.Context) {
	m, err := h.service.Metrics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Retrain handles POST /model/retrain
func (h *Handler) Retrain(c *gin.Context) {
	updated, err := h.service.Retrain(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"message":     "Model retraining completed",
		"new_metrics": updated,
	})
}

// AnalyticsSummary handles GET /analytics/summary
func (h *Handler) AnalyticsSummary(c *gin.Context) {
	summary, err := h.service.Summarize(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// validateTransactionRequest runs the field checks at the transport boundary
// so malformed input reports every bad field, not just the first.
func validateTransactionRequest(tx *Transaction) validation.ValidationErrors {
	return validation.Validate(
		validation.Required("transaction_id", tx.TransactionID),
		validation.Required("user_id", tx.UserID),
		validation.Required("timestamp", tx.Timestamp),
		validation.NonNegative("amount", tx.Amount),
		validation.ValidTimestamp("timestamp", tx.Timestamp),
		validation.ValidIP("ip_address", tx.IPAddress),
		validation.MaxLength("transaction_id", tx.TransactionID, validation.MaxStringLength),
	)
}

// respondError maps engine errors onto the HTTP error envelope.
func respondError(c *gin.Context, err error) {
	var aborted *BatchAbortedError

	switch {
	case errors.Is(err, ErrBatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Batch not found",
		})
	case errors.Is(err, ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Assessment not found",
		})
	case errors.As(err, &aborted):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "batch_aborted",
			"message": aborted.Error(),
			"index":   aborted.Index,
		})
	case errors.Is(err, ErrInvalidTransaction):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_transaction",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "prediction_failed",
			"message": err.Error(),
		})
	}
}
