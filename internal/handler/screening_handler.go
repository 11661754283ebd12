package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invscreen/internal/domain"
	"invscreen/internal/service"
)

// BatchRequest is the body of a batch screening call.
type BatchRequest struct {
	Invoices []domain.InvoiceRecord `json:"invoices"`
}

// ScreeningHandler handles screening endpoints.
type ScreeningHandler struct {
	screeningService service.ScreeningService
}

// NewScreeningHandler creates a new ScreeningHandler.
func NewScreeningHandler(screeningService service.ScreeningService) *ScreeningHandler {
	return &ScreeningHandler{screeningService: screeningService}
}

func bindInvoice(c *gin.Context) (*domain.InvoiceRecord, bool) {
	var inv domain.InvoiceRecord
	if err := c.ShouldBindJSON(&inv); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INVOICE", err.Error())
		return nil, false
	}
	return &inv, true
}

// Screen handles POST /api/v1/ledgers/:ledger/screenings
func (h *ScreeningHandler) Screen(c *gin.Context) {
	inv, ok := bindInvoice(c)
	if !ok {
		return
	}
	result, err := h.screeningService.Screen(c.Request.Context(), c.Param("ledger"), inv)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// Submit handles POST /api/v1/ledgers/:ledger/invoices. The invoice is added
// to the ledger only when it screens CLEAN.
func (h *ScreeningHandler) Submit(c *gin.Context) {
	inv, ok := bindInvoice(c)
	if !ok {
		return
	}
	result, err := h.screeningService.Submit(c.Request.Context(), c.Param("ledger"), inv)
	if err != nil {
		HandleError(c, err)
		return
	}
	if result.Appended {
		RespondCreated(c, result)
		return
	}
	RespondOK(c, result)
}

// ScreenBatch handles POST /api/v1/ledgers/:ledger/screenings/batch
func (h *ScreeningHandler) ScreenBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INVOICE", err.Error())
		return
	}
	results, err := h.screeningService.ScreenBatch(c.Request.Context(), c.Param("ledger"), req.Invoices)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, results)
}

// GetByID handles GET /api/v1/screenings/:id
func (h *ScreeningHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid screening ID")
		return
	}
	s, err := h.screeningService.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, s)
}

// ListByLedger handles GET /api/v1/ledgers/:ledger/screenings
func (h *ScreeningHandler) ListByLedger(c *gin.Context) {
	offset, limit := parsePagination(c)
	items, total, err := h.screeningService.List(c.Request.Context(), c.Param("ledger"), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, items, PagMeta{Total: total, Offset: offset, Limit: limit})
}
