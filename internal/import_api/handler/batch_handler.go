package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/propcrm-transaction-import/internal/importer/service"
)

// BatchHandler handles HTTP requests for committed import batches
type BatchHandler struct {
	batchService service.BatchService
	logger       *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(logger *slog.Logger, batchService service.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		logger:       logger,
	}
}

// List returns summaries of recently imported batches
func (h *BatchHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			RespondBadRequest(c, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	batches, err := h.batchService.RecentBatches(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list batches", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, BatchListResponse{Batches: batches})
}

// Get returns the live transaction count for one batch
func (h *BatchHandler) Get(c *gin.Context) {
	batchID := c.Param("id")

	count, err := h.batchService.BatchCount(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, service.ErrMissingBatch) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to count batch", "batch_id", batchID, "error", err)
		RespondInternalError(c)
		return
	}
	if count == 0 {
		RespondNotFound(c, "No transactions found for batch "+batchID)
		return
	}

	RespondOK(c, BatchCountResponse{BatchID: batchID, Count: count})
}

// Delete removes every transaction in a batch
func (h *BatchHandler) Delete(c *gin.Context) {
	batchID := c.Param("id")

	deleted, err := h.batchService.DeleteBatch(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, service.ErrMissingBatch) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to delete batch", "batch_id", batchID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, DeleteBatchResponse{BatchID: batchID, DeletedTransactions: deleted})
}
