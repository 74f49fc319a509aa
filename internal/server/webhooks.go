package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	invoicedomain "github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/payment/adapters"
	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
)

// HandlePaymentWebhook acknowledges anything the gateway should not retry
// with 200. A 5xx is reserved for conditions a retry can actually fix.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signature := c.GetHeader(signatureHeader(provider))

	result, err := s.reconciler.Ingest(c.Request.Context(), provider, payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrEventIgnored),
			errors.Is(err, paymentdomain.ErrEventAlreadyProcessed),
			errors.Is(err, paymentdomain.ErrPaymentRefMissing):
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		case errors.Is(err, paymentdomain.ErrEventMalformed):
			// Signed but unparseable; a retry would deliver the same bytes.
			c.JSON(http.StatusBadRequest, gin.H{"status": "malformed"})
			return
		case errors.Is(err, paymentdomain.ErrNotFound):
			// The payment row may not be visible yet; ask for a retry.
			c.JSON(http.StatusInternalServerError, gin.H{"status": "retry"})
			return
		default:
			s.log.Warn("webhook ingest failed",
				zap.String("provider", provider),
				zap.Error(err))
			AbortWithError(c, err)
			return
		}
	}

	if result.Applied {
		s.prepareInvoiceIfConfirmed(c, result.PaymentID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "applied": result.Applied})
}

// prepareInvoiceIfConfirmed issues the invoice for a freshly confirmed
// payment. Failures are logged only; the webhook was applied and must
// still be acknowledged.
func (s *Server) prepareInvoiceIfConfirmed(c *gin.Context, paymentID snowflake.ID) {
	ctx := c.Request.Context()
	payment, err := s.ledger.GetByID(ctx, paymentID)
	if err != nil || payment.Status != paymentdomain.StatusConfirmed {
		return
	}

	if _, err := s.invoiceSvc.Prepare(ctx, invoicedomain.PrepareInvoiceRequest{
		PaymentID: &paymentID,
		AutoSend:  true,
	}); err != nil {
		s.log.Error("invoice preparation after confirmation failed",
			zap.String("payment_id", paymentID.String()),
			zap.Error(err))
	}
}

func signatureHeader(provider string) string {
	switch provider {
	case adapters.ProviderPaystack:
		return adapters.PaystackSignatureHeader
	case adapters.ProviderFlutterwave:
		return adapters.FlutterwaveSignatureHeader
	default:
		return "x-webhook-signature"
	}
}
