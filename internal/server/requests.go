package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	requestdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/domain"
)

type createRequestBody struct {
	ClientID      string `json:"client_id" binding:"required"`
	Category      string `json:"category" binding:"required"`
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	EstimatedCost *int64 `json:"estimated_cost"`
	Currency      string `json:"currency"`
}

func (s *Server) HandleCreateRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	clientID, err := snowflake.ParseString(strings.TrimSpace(body.ClientID))
	if err != nil {
		AbortWithError(c, newValidationError("client_id", "invalid_client_id", "invalid value"))
		return
	}

	request, err := s.requestSvc.Create(c.Request.Context(), requestdomain.CreateRequestRequest{
		ClientID:      clientID,
		Category:      requestdomain.Category(body.Category),
		Title:         body.Title,
		Description:   body.Description,
		EstimatedCost: body.EstimatedCost,
		Currency:      body.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

func (s *Server) HandleListRequests(c *gin.Context) {
	var req requestdomain.ListRequestRequest
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
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := requestdomain.Status(raw)
		if !status.Valid() {
			AbortWithError(c, requestdomain.ErrInvalidStatus)
			return
		}
		req.Status = &status
	}

	resp, err := s.requestSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) HandleGetRequest(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, requestdomain.ErrNotFound)
		return
	}

	request, err := s.requestSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

type approveRequestBody struct {
	FinalCost int64 `json:"final_cost" binding:"required"`
}

func (s *Server) HandleApproveRequest(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, requestdomain.ErrNotFound)
		return
	}

	var body approveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	request, err := s.requestSvc.Approve(c.Request.Context(), id, body.FinalCost, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func (s *Server) HandleCompleteRequest(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, requestdomain.ErrNotFound)
		return
	}

	request, err := s.requestSvc.Complete(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func (s *Server) HandleCancelRequest(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, requestdomain.ErrNotFound)
		return
	}

	request, err := s.requestSvc.Cancel(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

type issuePaymentLinkBody struct {
	TTLMinutes int  `json:"ttl_minutes"`
	Notify     bool `json:"notify"`
}

func (s *Server) HandleIssuePaymentLink(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, requestdomain.ErrNotFound)
		return
	}

	var body issuePaymentLinkBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		AbortWithError(c, invalidRequestError())
		return
	}

	ttl := s.cfg.Sweep.LinkTTL
	if body.TTLMinutes > 0 {
		ttl = time.Duration(body.TTLMinutes) * time.Minute
	}

	link, err := s.requestSvc.IssuePaymentLink(c.Request.Context(), id, ttl, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if body.Notify {
		s.emailPaymentLink(c, link)
	}

	c.JSON(http.StatusCreated, link)
}

// emailPaymentLink shares the pay page with the client. Delivery failure
// is logged only; the link is already issued and the response carries it.
func (s *Server) emailPaymentLink(c *gin.Context, link *requestdomain.PaymentLink) {
	ctx := c.Request.Context()
	request, err := s.requestSvc.GetByID(ctx, link.RequestID)
	if err != nil {
		s.log.Warn("payment link email skipped", zap.Error(err))
		return
	}
	client, err := s.clientSvc.GetByID(ctx, request.ClientID.String())
	if err != nil {
		s.log.Warn("payment link email skipped", zap.Error(err))
		return
	}

	payURL := s.cfg.PublicBaseURL + "/pay/" + link.Token
	htmlBody := fmt.Sprintf(
		"<p>Hello %s,</p><p>You can pay for <strong>%s</strong> here: <a href=%q>%s</a></p><p>The link expires %s.</p>",
		client.Name, request.Title, payURL, payURL, link.ExpiresAt.Format(time.RFC1123),
	)
	if err := s.email.Send(ctx, []string{client.Email}, "Payment link for "+request.Title, htmlBody); err != nil {
		s.log.Warn("payment link email failed",
			zap.String("request_id", request.ID.String()),
			zap.Error(err))
	}
}

// HandleResolvePaymentLink is the public endpoint a client opens from the
// shared link.
func (s *Server) HandleResolvePaymentLink(c *gin.Context) {
	request, err := s.requestSvc.ResolvePaymentLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id": request.ID.String(),
		"title":      request.Title,
		"status":     request.Status,
		"final_cost": request.FinalCost,
		"currency":   request.Currency,
		"expires_at": request.PaymentLinkExpiresAt,
	})
}
