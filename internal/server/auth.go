package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	operatordomain "github.com/D-Honoured1/Kamisoft-sub002/internal/operator/domain"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.operatorSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleRegister creates an operator account. Once any operator exists,
// registration requires an authenticated operator; the very first account
// can be created unauthenticated to bootstrap a fresh deployment.
func (s *Server) HandleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var count int64
	if err := s.db.WithContext(c.Request.Context()).
		Model(&operatordomain.Operator{}).
		Count(&count).Error; err != nil {
		AbortWithError(c, err)
		return
	}
	if count > 0 {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if _, err := s.operatorSvc.VerifyToken(c.Request.Context(), token); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	operator, err := s.operatorSvc.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, operator)
}
