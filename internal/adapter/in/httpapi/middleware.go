package httpapi

import (
	"log/slog"
	"strings"
	"time"

	"bookcomments/internal/service"
	"bookcomments/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"

	identityKey = "identity"
)

// Identity is the caller as asserted by the gateway in front of the service.
type Identity struct {
	UserID   string
	UserName string
	Role     string
}

func (id Identity) Privileged() bool {
	switch strings.ToLower(id.Role) {
	case "admin", "moderator":
		return true
	}
	return false
}

// LoadIdentity reads the identity headers into the gin context.
func LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := Identity{
			UserID:   strings.TrimSpace(c.GetHeader(HeaderUserID)),
			UserName: strings.TrimSpace(c.GetHeader(HeaderUserName)),
			Role:     strings.TrimSpace(c.GetHeader(HeaderUserRole)),
		}
		if id.UserName == "" {
			id.UserName = id.UserID
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// AuthRequired rejects requests without a user id.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identityOf(c).UserID == "" {
			writeError(c, service.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func identityOf(c *gin.Context) Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}
	}
	id, _ := v.(Identity)
	return id
}

// RequestLogger puts a request-scoped logger into the request context and
// logs every finished request.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		log := base.With("method", c.Request.Method, "path", c.Request.URL.Path)
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))

		c.Next()

		status := c.Writer.Status()
		attrs := []any{"status", status, "latency", time.Since(start)}
		switch {
		case status >= 500:
			log.Error("request", attrs...)
		case status >= 400:
			log.Warn("request", attrs...)
		default:
			log.Info("request", attrs...)
		}
	}
}
