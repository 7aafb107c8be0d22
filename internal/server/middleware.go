package server

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	obscontext "github.com/smallbiznis/sitebuilder/internal/observability/context"
	trafficdomain "github.com/smallbiznis/sitebuilder/internal/traffic/domain"
	"github.com/smallbiznis/sitebuilder/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const (
	contextUserIDKey = "user_id"
	contextRoleKey   = "user_role"
	contextEmailKey  = "user_email"
)

// Correlation carries X-Correlation-Id from the caller into gateway calls
// and outgoing emails, minting one when absent.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cid := correlation.FromRequest(c.Request.Context(), c.Request.Header)
		c.Header(correlation.HeaderName, cid)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminRoute flags the request so internal error messages are passed through.
func (s *Server) AdminRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextAdminKey, true)
		c.Next()
	}
}

// AuthRequired validates the bearer token and stores the caller on the context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, claims.UserID)
		c.Set(contextRoleKey, string(claims.Role))
		c.Set(contextEmailKey, claims.Email)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "user", claims.UserID))
		c.Next()
	}
}

// authorize checks the casbin policy for the authenticated caller.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		userID := c.GetString(contextUserIDKey)
		role := c.GetString(contextRoleKey)
		if strings.TrimSpace(userID) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), userID, role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// StorefrontRateLimit throttles a public write endpoint per client address.
func (s *Server) StorefrontRateLimit(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.limiter.Allow(ctx, endpoint, c.ClientIP())
		if err != nil {
			// Redis trouble must not take the storefront down.
			s.log.Warn("rate limit check failed", zap.String("endpoint", endpoint), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			if seconds := int(result.RetryAfter.Seconds()); seconds > 0 {
				c.Header("Retry-After", strconv.Itoa(seconds))
			}
			s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, "bucket_empty")
			AbortWithError(c, ErrRateLimited)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

// TrackTraffic records storefront page hits after the handler ran.
func (s *Server) TrackTraffic() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if s.trafficSvc == nil || c.Request.Method != "GET" || len(c.Errors) > 0 || c.Writer.Status() >= 400 {
			return
		}
		entry := trafficdomain.RecordRequest{
			Path:      c.Request.URL.Path,
			Referrer:  c.Request.Referer(),
			UserAgent: c.Request.UserAgent(),
			IPAddress: c.ClientIP(),
		}
		ctx := context.WithoutCancel(c.Request.Context())
		go s.trafficSvc.Record(ctx, entry)
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func currentRole(c *gin.Context) authdomain.Role {
	return authdomain.Role(c.GetString(contextRoleKey))
}
