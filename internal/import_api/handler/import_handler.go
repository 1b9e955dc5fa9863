package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/propcrm-transaction-import/internal/importer/parser"
	"github.com/propcrm-transaction-import/internal/importer/service"
)

// ImportHandler handles HTTP requests for the import pipeline
type ImportHandler struct {
	importService service.ImportService
	logger        *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(logger *slog.Logger, importService service.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		logger:        logger,
	}
}

func (h *ImportHandler) bindSubmission(c *gin.Context) (*service.ImportRequest, bool) {
	var req ImportSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return nil, false
	}

	format, err := parser.ParseFormat(req.Format)
	if err != nil {
		RespondBadRequest(c, "Unknown format: "+req.Format)
		return nil, false
	}

	return &service.ImportRequest{
		Payload:                req.Payload,
		Format:                 format,
		SourceLabel:            req.SourceLabel,
		BatchID:                req.BatchID,
		DefaultPaymentSourceID: req.DefaultPaymentSourceID,
	}, true
}

// Validate runs phase one and returns the full review queue
func (h *ImportHandler) Validate(c *gin.Context) {
	req, ok := h.bindSubmission(c)
	if !ok {
		return
	}

	queue, err := h.importService.ValidateForReview(c.Request.Context(), req)
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	RespondOK(c, queue)
}

// Check is the fast pre-flight pass: parse and coerce only, no directory
// or database round trips, so the answer depends solely on the pasted text
func (h *ImportHandler) Check(c *gin.Context) {
	req, ok := h.bindSubmission(c)
	if !ok {
		return
	}

	result, err := h.importService.ValidateOnly(c.Request.Context(), req)
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	RespondOK(c, result)
}

// Confirm commits an operator-reviewed queue
func (h *ImportHandler) Confirm(c *gin.Context) {
	var req ConfirmImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.importService.ProcessConfirmed(c.Request.Context(), req.toQueue())
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	RespondCreated(c, result)
}

// Direct validates and commits in one call
func (h *ImportHandler) Direct(c *gin.Context) {
	req, ok := h.bindSubmission(c)
	if !ok {
		return
	}

	result, err := h.importService.ImportDirect(c.Request.Context(), req)
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	RespondCreated(c, result)
}

// respondPipelineError maps pipeline errors onto HTTP statuses. Caller
// mistakes come back 400/422; anything else is a 500.
func (h *ImportHandler) respondPipelineError(c *gin.Context, err error) {
	var tooMany *service.TooManyRowsError
	var badStatus *service.InvalidStatusError

	switch {
	case errors.Is(err, parser.ErrEmptyInput),
		errors.Is(err, parser.ErrUnknownFormat),
		errors.Is(err, parser.ErrMissingHeader),
		errors.Is(err, parser.ErrEnvelopeMalformed),
		errors.Is(err, service.ErrEmptyQueue),
		errors.Is(err, service.ErrMissingBatchID):
		RespondBadRequest(c, err.Error())
	case errors.As(err, &tooMany), errors.As(err, &badStatus):
		RespondUnprocessable(c, err.Error())
	default:
		h.logger.Error("Import pipeline failure", "error", err)
		RespondInternalError(c)
	}
}
