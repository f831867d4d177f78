package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/application/service"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

const (
	dateLayout = "2006-01-02"
	xlsxMime   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	reconciliation service.ReconciliationService
	mappings       service.MappingService
	reports        port.ReportWriter
	maxUpload      int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	reconciliation service.ReconciliationService,
	mappings service.MappingService,
	reports port.ReportWriter,
	maxUpload int64,
	logger Logger,
) *Handlers {
	return &Handlers{
		reconciliation: reconciliation,
		mappings:       mappings,
		reports:        reports,
		maxUpload:      maxUpload,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SaveMappingsRequest is the body of POST /api/mappings
type SaveMappingsRequest struct {
	Supplier  string                   `json:"supplier" binding:"required"`
	Proposals []entity.MappingProposal `json:"proposals" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateReconciliation handles POST /api/reconciliations.
// The run is returned as soon as its interim result is stored unless
// sync=true asks for classification inline.
func (h *Handlers) CreateReconciliation(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	req, err := h.parseReconcileRequest(c)
	if err != nil {
		h.logger.Error("Invalid reconciliation request", "error", err)
		h.fail(c, statusFor(err), err)
		return
	}

	ctx := c.Request.Context()
	var run *entity.ReconciliationRun
	status := http.StatusAccepted
	if c.Query("sync") == "true" {
		run, err = h.reconciliation.Reconcile(ctx, req)
		status = http.StatusOK
	} else {
		run, err = h.reconciliation.Prepare(ctx, req)
	}
	if err != nil {
		h.logger.Error("Reconciliation failed", "supplier", req.SupplierEntity, "error", err)
		h.fail(c, statusFor(err), err)
		return
	}

	c.JSON(status, Response{Success: true, Data: run})
}

func (h *Handlers) parseReconcileRequest(c *gin.Context) (service.ReconcileRequest, error) {
	var req service.ReconcileRequest

	form, err := c.MultipartForm()
	if err != nil {
		return req, fmt.Errorf("%w: multipart form expected: %w", service.ErrInvalidRequest, err)
	}

	req.SupplierEntity = strings.TrimSpace(c.PostForm("supplier"))
	if req.PeriodStart, err = parseDate(c.PostForm("period_start")); err != nil {
		return req, fmt.Errorf("%w: period_start: %v", service.ErrInvalidRequest, err)
	}
	if req.PeriodEnd, err = parseDate(c.PostForm("period_end")); err != nil {
		return req, fmt.Errorf("%w: period_end: %v", service.ErrInvalidRequest, err)
	}

	var files []*multipart.FileHeader
	files = append(files, form.File["files[]"]...)
	files = append(files, form.File["files"]...)
	for _, fh := range files {
		doc, err := readUpload(fh)
		if err != nil {
			return req, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
		}
		req.Documents = append(req.Documents, doc)
	}

	return req, req.Validate()
}

func readUpload(fh *multipart.FileHeader) (port.UploadedDocument, error) {
	f, err := fh.Open()
	if err != nil {
		return port.UploadedDocument{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return port.UploadedDocument{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return port.UploadedDocument{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("required")
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

// GetReconciliation handles GET /api/reconciliations/:id
func (h *Handlers) GetReconciliation(c *gin.Context) {
	run, err := h.reconciliation.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: run})
}

// DownloadReport handles GET /api/reconciliations/:id/report
func (h *Handlers) DownloadReport(c *gin.Context) {
	run, err := h.reconciliation.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	data, err := h.reports.Write(run)
	if err != nil {
		h.logger.Error("Failed to render report", "run_id", run.ID, "error", err)
		h.fail(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="reconciliation-%s.xlsx"`, run.ID))
	c.Data(http.StatusOK, xlsxMime, data)
}

// DiscoverMappings handles POST /api/reconciliations/:id/mapping-proposals
func (h *Handlers) DiscoverMappings(c *gin.Context) {
	proposals, err := h.mappings.Discover(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: proposals})
}

// ListMappings handles GET /api/mappings?supplier=
func (h *Handlers) ListMappings(c *gin.Context) {
	mappings, err := h.mappings.List(c.Request.Context(), c.Query("supplier"))
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: mappings})
}

// SaveMappings handles POST /api/mappings. A partially failed batch answers
// 207 with the per-proposal report.
func (h *Handlers) SaveMappings(c *gin.Context) {
	var req SaveMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}

	report, err := h.mappings.SaveProposals(c.Request.Context(), req.Supplier, req.Proposals)
	var saveErr *service.MappingSaveError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, Response{Success: true, Data: report})
	case errors.As(err, &saveErr):
		h.logger.Error("Some mappings were not saved", "supplier", req.Supplier, "failed", saveErr.Report.FailedCount())
		c.JSON(http.StatusMultiStatus, Response{Success: false, Data: saveErr.Report, Error: err.Error()})
	default:
		h.fail(c, statusFor(err), err)
	}
}

func (h *Handlers) fail(c *gin.Context, status int, err error) {
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRunNotReady):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoSupplierItems):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrLedgerFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
