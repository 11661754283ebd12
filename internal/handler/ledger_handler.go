package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"invscreen/internal/domain"
	"invscreen/internal/export"
	"invscreen/internal/service"
)

// LedgerHandler handles ledger browsing and export.
type LedgerHandler struct {
	ledgerService service.LedgerService
	now           func() time.Time
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService, now: time.Now}
}

// List handles GET /api/v1/ledgers
func (h *LedgerHandler) List(c *gin.Context) {
	names, err := h.ledgerService.List(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, names)
}

// Entries handles GET /api/v1/ledgers/:ledger/invoices. Entries are paginated;
// skipped rows are always returned in full.
func (h *LedgerHandler) Entries(c *gin.Context) {
	offset, limit := parsePagination(c)
	ledger, err := h.ledgerService.Entries(c.Request.Context(), c.Param("ledger"))
	if err != nil {
		HandleError(c, err)
		return
	}

	total := len(ledger.Entries)
	start := min(offset, total)
	end := min(start+limit, total)
	page := &domain.Ledger{
		Name:    ledger.Name,
		Entries: ledger.Entries[start:end],
		Skipped: ledger.Skipped,
	}
	RespondPaginated(c, page, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Export handles GET /api/v1/ledgers/:ledger/export?format=csv|xlsx
func (h *LedgerHandler) Export(c *gin.Context) {
	name := c.Param("ledger")
	format := domain.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(domain.ExportFormatCSV))))

	var buf bytes.Buffer
	if err := h.ledgerService.Export(c.Request.Context(), name, format, &buf); err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename(name, format, h.now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, domain.ContentTypes[format], buf.Bytes())
}
