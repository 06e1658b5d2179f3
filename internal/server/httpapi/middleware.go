package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/server/models"
	"github.com/gin-gonic/gin"
)

// Keys under which the auth middleware stores the caller in gin.Context.
const (
	userIDKey        = "userID"
	roleKey          = "role"
	integrationIDKey = "integrationID"
)

func bearerToken(c *gin.Context) (string, bool) {
	token, ok := strings.CutPrefix(c.GetHeader(common.AuthorizationHeaderName), common.BearerPrefix)
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}

// userAuth accepts user access tokens and stores the user id and role.
func (s *Server) userAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c)
			return
		}
		claims, err := s.svc.Users.Authenticate(token)
		if err != nil {
			s.logger.Debug(c.Request.Context(), "access token rejected", "error", err)
			abortUnauthorized(c)
			return
		}
		c.Set(userIDKey, claims.UserID)
		c.Set(roleKey, claims.Role)
		c.Next()
	}
}

// adminOnly must run after userAuth.
func adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(roleKey)
		if !ok {
			abortUnauthorized(c)
			return
		}
		if r, _ := role.(models.Role); r != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
			return
		}
		c.Next()
	}
}

// integrationAuth accepts integration API tokens and stores the integration id.
func (s *Server) integrationAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c)
			return
		}
		id, err := s.svc.Integrations.AuthenticateToken(c.Request.Context(), token)
		if err != nil {
			s.writeError(c, err)
			c.Abort()
			return
		}
		c.Set(integrationIDKey, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		d := time.Since(start)
		status := c.Writer.Status()

		s.metrics.ObserveRequest(c.Request.Method, route, status, d)
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency", d,
		)
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

func integrationID(c *gin.Context) int64 {
	return c.GetInt64(integrationIDKey)
}
