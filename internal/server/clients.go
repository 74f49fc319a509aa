package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	clientdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/client/domain"
)

func (s *Server) HandleUpsertClient(c *gin.Context) {
	var req clientdomain.UpsertClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	client, err := s.clientSvc.UpsertByEmail(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, client)
}

func (s *Server) HandleListClients(c *gin.Context) {
	includeArchived := strings.EqualFold(c.Query("include_archived"), "true")

	clients, err := s.clientSvc.List(c.Request.Context(), includeArchived)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

func (s *Server) HandleGetClient(c *gin.Context) {
	client, err := s.clientSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, client)
}

type archiveClientRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) HandleArchiveClient(c *gin.Context) {
	var req archiveClientRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		AbortWithError(c, invalidRequestError())
		return
	}

	client, err := s.clientSvc.Archive(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, client)
}

func (s *Server) HandleUnarchiveClient(c *gin.Context) {
	client, err := s.clientSvc.Unarchive(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, client)
}
