package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	operatordomain "github.com/D-Honoured1/Kamisoft-sub002/internal/operator/domain"
)

const operatorContextKey = "operator"

// requireOperator authenticates the bearer token and stores the operator
// on the request context.
func (s *Server) requireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		operator, err := s.operatorSvc.VerifyToken(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(operatorContextKey, operator)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func currentOperator(c *gin.Context) *operatordomain.Operator {
	value, ok := c.Get(operatorContextKey)
	if !ok {
		return nil
	}
	operator, ok := value.(*operatordomain.Operator)
	if !ok {
		return nil
	}
	return operator
}

func actorFrom(c *gin.Context) string {
	if operator := currentOperator(c); operator != nil {
		return operator.Email
	}
	return "system"
}
