package handler

import (
	"context"
	"net/http"
	"time"

	appbilling "github.com/geminiambiental/billing/internal/application/billing"
	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/geminiambiental/billing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceIssuer issues invoices from completed services
type InvoiceIssuer interface {
	IssueInvoice(ctx context.Context, req appbilling.IssueInvoiceRequest) (*appbilling.InvoiceDTO, error)
}

// InvoiceLifecycle drives invoice state transitions
type InvoiceLifecycle interface {
	MarkPaid(ctx context.Context, invoiceID uuid.UUID) (*appbilling.InvoiceDTO, error)
	Void(ctx context.Context, invoiceID uuid.UUID, reason string) (*appbilling.InvoiceDTO, error)
	SweepOverdue(ctx context.Context) (*appbilling.SweepResult, error)
}

// InvoiceReporter serves invoice queries and statistics
type InvoiceReporter interface {
	GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*appbilling.InvoiceDTO, error)
	GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*appbilling.InvoiceDTO, error)
	SearchInvoices(ctx context.Context, filter billing.InvoiceFilter) (*shared.Paginated[appbilling.InvoiceDTO], error)
	Statistics(ctx context.Context) (*appbilling.StatisticsDTO, error)
	ServicesReadyToBill(ctx context.Context) ([]appbilling.ServiceReadyToBillDTO, error)
}

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	issuer    InvoiceIssuer
	lifecycle InvoiceLifecycle
	reporter  InvoiceReporter
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(issuer InvoiceIssuer, lifecycle InvoiceLifecycle, reporter InvoiceReporter) *InvoiceHandler {
	return &InvoiceHandler{
		issuer:    issuer,
		lifecycle: lifecycle,
		reporter:  reporter,
	}
}

// ===================== Request DTOs =====================

// IssueInvoiceRequest is the payload for issuing an invoice
type IssueInvoiceRequest struct {
	ServiceRecordIDs []string `json:"service_record_ids" binding:"required,min=1,dive,uuid"`
	Notes            string   `json:"notes"`
}

// VoidInvoiceRequest is the payload for voiding an invoice
type VoidInvoiceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// InvoiceNumberRequest binds the invoice number path parameter
type InvoiceNumberRequest struct {
	Number string `uri:"number" binding:"required,invoice_number"`
}

// SearchInvoicesRequest captures the invoice search query parameters
type SearchInvoicesRequest struct {
	dto.ListRequest
	Customer   string `form:"customer"`
	Status     string `form:"status" binding:"omitempty,oneof=PENDING PAID VOIDED OVERDUE"`
	IssuedFrom string `form:"issued_from" binding:"omitempty,datetime=2006-01-02"`
	IssuedTo   string `form:"issued_to" binding:"omitempty,datetime=2006-01-02"`
}

// RegisterRoutes registers invoice routes. The statistics and sweep routes
// are static siblings of the :id parameter routes.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.IssueInvoice)
		invoices.GET("", h.SearchInvoices)
		invoices.GET("/statistics", h.GetStatistics)
		invoices.GET("/number/:number", h.GetInvoiceByNumber)
		invoices.POST("/sweep-overdue", h.SweepOverdue)
		invoices.GET("/:id", h.GetInvoice)
		invoices.POST("/:id/pay", h.MarkPaid)
		invoices.POST("/:id/void", h.VoidInvoice)
	}

	services := rg.Group("/services")
	{
		services.GET("/ready-to-bill", h.ListReadyToBill)
	}
}

// IssueInvoice issues a new invoice covering the given completed services
func (h *InvoiceHandler) IssueInvoice(c *gin.Context) {
	var req IssueInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ServiceRecordIDs))
	for _, raw := range req.ServiceRecordIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid service record ID: "+raw)
			return
		}
		ids = append(ids, id)
	}

	invoice, err := h.issuer.IssueInvoice(c.Request.Context(), appbilling.IssueInvoiceRequest{
		ServiceRecordIDs: ids,
		Notes:            req.Notes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, invoice)
}

// GetInvoice returns one invoice with its lines
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.reporter.GetInvoice(c.Request.Context(), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetInvoiceByNumber returns one invoice looked up by invoice number
func (h *InvoiceHandler) GetInvoiceByNumber(c *gin.Context) {
	var req InvoiceNumberRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid invoice number")
		return
	}

	invoice, err := h.reporter.GetInvoiceByNumber(c.Request.Context(), req.Number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoice)
}

// SearchInvoices returns a page of invoices matching the query
func (h *InvoiceHandler) SearchInvoices(c *gin.Context) {
	req := SearchInvoicesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid query parameters: "+err.Error())
		return
	}

	filter := billing.InvoiceFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   req.Search,
		},
		Customer: req.Customer,
	}
	if req.Status != "" {
		status := billing.InvoiceStatus(req.Status)
		filter.Status = &status
	}
	if req.IssuedFrom != "" {
		from, _ := time.Parse("2006-01-02", req.IssuedFrom)
		filter.IssuedFrom = &from
	}
	if req.IssuedTo != "" {
		to, _ := time.Parse("2006-01-02", req.IssuedTo)
		filter.IssuedTo = &to
	}

	page, err := h.reporter.SearchInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetStatistics summarizes the invoice ledger
func (h *InvoiceHandler) GetStatistics(c *gin.Context) {
	stats, err := h.reporter.Statistics(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stats)
}

// MarkPaid records payment of a pending invoice
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.lifecycle.MarkPaid(c.Request.Context(), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoice)
}

// VoidInvoice cancels a pending or overdue invoice
func (h *InvoiceHandler) VoidInvoice(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req VoidInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	invoice, err := h.lifecycle.Void(c.Request.Context(), uuid.MustParse(idReq.ID), req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoice)
}

// SweepOverdue runs the overdue sweep on demand
func (h *InvoiceHandler) SweepOverdue(c *gin.Context) {
	result, err := h.lifecycle.SweepOverdue(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListReadyToBill lists completed services that have not been invoiced yet
func (h *InvoiceHandler) ListReadyToBill(c *gin.Context) {
	services, err := h.reporter.ServicesReadyToBill(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, services)
}
