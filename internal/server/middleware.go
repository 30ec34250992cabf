package server

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/utils"
	sloggin "github.com/samber/slog-gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Authorizer resolves a bearer token to a user and their reviewer standing.
// The admin claim in the token decides standing, so revoking it is a matter
// of issuing a new token.
type Authorizer interface {
	Authorize(db *gorm.DB, token string) (models.User, bool, error)
}

type jwtAuthorizer struct {
	secret string
}

func NewJWTAuthorizer(secret string) Authorizer {
	return jwtAuthorizer{secret: secret}
}

func (a jwtAuthorizer) Authorize(db *gorm.DB, token string) (models.User, bool, error) {
	userID, admin, err := utils.VerifyJWT(a.secret, token)
	if err != nil {
		return models.User{}, false, err
	}
	user, err := models.FindUserByID(db, userID)
	if err != nil {
		return models.User{}, false, err
	}
	return user, admin, nil
}

func applyMiddleware(r *gin.Engine, config *config.Config, otelComponent string, db *gorm.DB, redis *redis.Client, services *Services) {
	r.Use(gin.Recovery())

	r.TrustedPlatform = "X-Real-IP"

	// CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "authorization")
	corsConfig.AllowCredentials = true
	corsConfig.AllowWildcard = true
	if len(config.HTTP.CORSHosts) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowOrigins = config.HTTP.CORSHosts
	r.Use(cors.New(corsConfig))

	err := r.SetTrustedProxies(config.HTTP.TrustedProxies)
	if err != nil {
		slog.Error("Failed to set trusted proxies", "error", err.Error())
	}

	r.Use(dbMiddleware(db))
	r.Use(redisMiddleware(redis))
	r.Use(configMiddleware(config))
	r.Use(servicesMiddleware(services))

	if config.HTTP.Tracing.Enabled {
		r.Use(otelgin.Middleware(otelComponent))
		r.Use(tracingProvider(config))
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		WithSpanID:        config.HTTP.Tracing.Enabled,
		WithTraceID:       config.HTTP.Tracing.Enabled,
		DefaultLevel:      slog.LevelInfo,
		ClientErrorLevel:  slog.LevelWarn,
		ServerErrorLevel:  slog.LevelError,
		WithRequestHeader: false,
	}))
}

func configMiddleware(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("config", config)
		c.Next()
	}
}

func tracingProvider(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.HTTP.Tracing.OTLPEndpoint != "" {
			ctx := c.Request.Context()
			span := trace.SpanFromContext(ctx)
			if span.IsRecording() {
				span.SetAttributes(
					attribute.String("http.method", c.Request.Method),
					attribute.String("http.path", c.Request.URL.Path),
				)
			}
		}
		c.Next()
	}
}

func dbMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Next()
	}
}

func redisMiddleware(redis *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("redis", redis)
		c.Next()
	}
}

func servicesMiddleware(services *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("trips", services.Trips)
		c.Set("media", services.Media)
		c.Set("guestbook", services.Guestbook)
		c.Set("playlists", services.Playlists)
		c.Set("maps", services.Maps)
		c.Set("synchronizer", services.Synchronizer)
		c.Set("renderer", services.Renderer)
		c.Set("storage", services.Storage)
		c.Set("metrics", services.Metrics)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if c.Query("access_token") != "" {
			authHeader = "JWT " + c.Query("access_token")
		} else {
			return "", false
		}
	}
	if !strings.HasPrefix(authHeader, "JWT ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "JWT "), true
}

func requireAuth(authorizer Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		db, ok := c.MustGet("db").(*gorm.DB)
		if !ok {
			slog.Error("Failed to get db from context")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
			return
		}

		user, admin, err := authorizer.Authorize(db, token)
		if err != nil {
			slog.Warn("Failed to verify JWT", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set("user", &user)
		c.Set("admin", admin)
		c.Next()
	}
}

// requireAdmin assumes requireAuth already ran.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("admin") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// optionalAuth sets the user when a valid token is present but never rejects.
func optionalAuth(authorizer Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		db, ok := c.MustGet("db").(*gorm.DB)
		if !ok {
			c.Next()
			return
		}
		user, admin, err := authorizer.Authorize(db, token)
		if err == nil {
			c.Set("user", &user)
			c.Set("admin", admin)
		}
		c.Next()
	}
}
