package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	clientdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/client/domain"
	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	requestdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/domain"
)

type createPaymentBody struct {
	RequestID  string         `json:"request_id" binding:"required"`
	Amount     int64          `json:"amount" binding:"required"`
	Currency   string         `json:"currency"`
	Method     string         `json:"method" binding:"required"`
	Type       string         `json:"type" binding:"required"`
	AdminNotes string         `json:"admin_notes"`
	Metadata   map[string]any `json:"metadata"`
}

func (s *Server) HandleCreatePayment(c *gin.Context) {
	var body createPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	requestID, err := snowflake.ParseString(strings.TrimSpace(body.RequestID))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrRequestNotFound)
		return
	}

	currency := body.Currency
	if currency == "" {
		currency = s.cfg.BaseCurrency
	}

	payment, err := s.ledger.Create(c.Request.Context(), paymentdomain.CreatePaymentRequest{
		RequestID:  requestID,
		Amount:     body.Amount,
		Currency:   currency,
		Method:     paymentdomain.Method(body.Method),
		Type:       paymentdomain.Type(body.Type),
		AdminNotes: body.AdminNotes,
		Metadata:   body.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

func (s *Server) HandleListPayments(c *gin.Context) {
	var req paymentdomain.ListPaymentRequest
	if err := c.ShouldBindQuery(&req.Pagination); err != nil {
		AbortWithError(c, invalidRequestError())
		return
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
		status := paymentdomain.Status(raw)
		if !status.Valid() {
			AbortWithError(c, paymentdomain.ErrInvalidStatus)
			return
		}
		req.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("method")); raw != "" {
		method := paymentdomain.Method(raw)
		if !method.Valid() {
			AbortWithError(c, paymentdomain.ErrInvalidMethod)
			return
		}
		req.Method = &method
	}
	req.IncludeDeleted = c.Query("include_deleted") == "true"

	resp, err := s.ledger.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type paymentDetail struct {
	*paymentdomain.Payment
	Request *requestdomain.ServiceRequest `json:"request,omitempty"`
	Client  *clientdomain.Client          `json:"client,omitempty"`
}

// HandleGetPayment returns the payment with its owning request and client
// joined in. The joins are best effort; the payment itself is the answer.
func (s *Server) HandleGetPayment(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrNotFound)
		return
	}

	ctx := c.Request.Context()
	payment, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	detail := paymentDetail{Payment: payment}
	request, err := s.requestSvc.GetByID(ctx, payment.RequestID)
	if err != nil {
		s.log.Warn("payment detail request lookup failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
		c.JSON(http.StatusOK, detail)
		return
	}
	detail.Request = request

	client, err := s.clientSvc.GetByID(ctx, request.ClientID.String())
	if err != nil {
		s.log.Warn("payment detail client lookup failed",
			zap.String("request_id", request.ID.String()),
			zap.Error(err))
	} else {
		detail.Client = &client
	}

	c.JSON(http.StatusOK, detail)
}

type transitionPaymentBody struct {
	Target       string `json:"target" binding:"required"`
	ProviderRef  string `json:"provider_ref"`
	ErrorMessage string `json:"error_message"`
	Reason       string `json:"reason"`
}

// HandleTransitionPayment is the manual path for crypto and bank transfer
// confirmations and for refunds.
func (s *Server) HandleTransitionPayment(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrNotFound)
		return
	}

	var body transitionPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if paymentdomain.Status(body.Target) == paymentdomain.StatusCancelled && strings.TrimSpace(body.Reason) == "" {
		AbortWithError(c, newValidationError("reason", "reason_required", "cancellations must carry a reason"))
		return
	}

	var opts []paymentdomain.TransitionOption
	if body.ProviderRef != "" {
		opts = append(opts, paymentdomain.WithProviderRef(body.ProviderRef))
	}
	if body.ErrorMessage != "" {
		opts = append(opts, paymentdomain.WithErrorMessage(body.ErrorMessage))
	}
	if body.Reason != "" {
		opts = append(opts, paymentdomain.WithReason(body.Reason))
	}

	payment, err := s.ledger.Transition(c.Request.Context(), id, paymentdomain.Status(body.Target), actorFrom(c), opts...)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if payment.Status == paymentdomain.StatusConfirmed {
		s.prepareInvoiceIfConfirmed(c, payment.ID)
	}

	c.JSON(http.StatusOK, payment)
}

// HandleDeletePayment soft-deletes a payment that never settled. The row
// stays reachable through the include_deleted listing filter.
func (s *Server) HandleDeletePayment(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrNotFound)
		return
	}

	if err := s.ledger.Delete(c.Request.Context(), id, actorFrom(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
