package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	invoicedomain "github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/domain"
	requestdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/domain"
)

type prepareInvoiceBody struct {
	RequestID string `json:"request_id"`
	PaymentID string `json:"payment_id"`
	AutoSend  bool   `json:"auto_send"`
}

func (s *Server) HandlePrepareInvoice(c *gin.Context) {
	var body prepareInvoiceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(body.RequestID) == "" && strings.TrimSpace(body.PaymentID) == "" {
		AbortWithError(c, newValidationError("request_id", "request_or_payment_required",
			"either request_id or payment_id must be set"))
		return
	}

	req := invoicedomain.PrepareInvoiceRequest{AutoSend: body.AutoSend}
	if raw := strings.TrimSpace(body.RequestID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, requestdomain.ErrNotFound)
			return
		}
		req.RequestID = id
	}
	if raw := strings.TrimSpace(body.PaymentID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, invoicedomain.ErrPaymentNotFound)
			return
		}
		req.PaymentID = &id
	}

	invoice, err := s.invoiceSvc.Prepare(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

func (s *Server) HandleListInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoiceRequest
	if err := c.ShouldBindQuery(&req.Pagination); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if raw := strings.TrimSpace(c.Query("client_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("client_id", "invalid_client_id", "invalid value"))
			return
		}
		req.ClientID = &id
	}
	if raw := strings.TrimSpace(c.Query("request_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("request_id", "invalid_request_id", "invalid value"))
			return
		}
		req.RequestID = &id
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := invoicedomain.Status(raw)
		if !status.Valid() {
			AbortWithError(c, invoicedomain.ErrInvalidStatus)
			return
		}
		req.Status = &status
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) HandleGetInvoice(c *gin.Context) {
	raw := strings.TrimSpace(c.Param("id"))

	if id, err := snowflake.ParseString(raw); err == nil {
		invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
		return
	}

	// Fall back to invoice number lookup, e.g. KMS-2026-0042.
	invoice, err := s.invoiceSvc.GetByNumber(c.Request.Context(), raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) HandleSendInvoice(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, invoicedomain.ErrNotFound)
		return
	}

	invoice, err := s.invoiceSvc.Send(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (s *Server) HandleCancelInvoice(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, invoicedomain.ErrNotFound)
		return
	}

	invoice, err := s.invoiceSvc.Cancel(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (s *Server) HandleRerenderInvoice(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, invoicedomain.ErrNotFound)
		return
	}

	invoice, err := s.invoiceSvc.Rerender(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}
