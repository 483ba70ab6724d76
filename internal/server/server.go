package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/chamapesa/backend/internal/chain"
	"github.com/chamapesa/backend/internal/contributions"
	"github.com/chamapesa/backend/internal/groups"
	"github.com/chamapesa/backend/internal/identities"
	"github.com/chamapesa/backend/internal/notifications"
	"github.com/chamapesa/backend/internal/tokens"
	"github.com/chamapesa/backend/pkg/metrics"
)

// Server represents the HTTP server
type Server struct {
	logger           *zap.Logger
	identitiesSvc    identities.IdentityService
	groupsSvc        groups.GroupService
	contributionsSvc contributions.ContributionService
	notificationsSvc notifications.NotificationService
	tokensSvc        tokens.TokenService
	chainClient      *chain.Client
}

// NewServer creates a new HTTP server. The chain client may be nil when the
// Avalanche integration is disabled.
func NewServer(
	logger *zap.Logger,
	identitiesSvc identities.IdentityService,
	groupsSvc groups.GroupService,
	contributionsSvc contributions.ContributionService,
	notificationsSvc notifications.NotificationService,
	tokensSvc tokens.TokenService,
	chainClient *chain.Client,
) *Server {
	return &Server{
		logger:           logger,
		identitiesSvc:    identitiesSvc,
		groupsSvc:        groupsSvc,
		contributionsSvc: contributionsSvc,
		notificationsSvc: notificationsSvc,
		tokensSvc:        tokensSvc,
		chainClient:      chainClient,
	}
}

func init() {
	// Let binding tags like gt=0 apply to decimal amounts
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	}
}

// Router creates the HTTP router with all middleware and routes
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(otelgin.Middleware("chamapesa"))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(s.metricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "chamapesa-backend",
			"version": "1.0.0",
		})
	})

	api := router.Group("/api")
	v1 := api.Group("/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", s.handleRegister)
		auth.POST("/login", s.handleLogin)
		auth.POST("/refresh", s.handleRefresh)
		auth.POST("/logout", s.authMiddleware(), s.handleLogout)
		auth.POST("/verify-token", s.handleVerifyToken)
		auth.GET("/me", s.authMiddleware(), s.handleGetMe)
		auth.PUT("/me", s.authMiddleware(), s.handleUpdateMe)
	}

	profiles := v1.Group("/profiles", s.authMiddleware())
	{
		profiles.GET("", s.handleListProfiles)
		profiles.GET("/:user_id", s.handleGetProfile)
		profiles.PUT("/:user_id", s.handleUpdateProfile)
	}

	groupRoutes := v1.Group("/groups", s.authMiddleware())
	{
		groupRoutes.POST("", s.handleCreateGroup)
		groupRoutes.GET("", s.handleListGroups)
		groupRoutes.GET("/user/:user_id", s.handleListUserGroups)
		groupRoutes.GET("/:id", s.handleGetGroup)
		groupRoutes.PUT("/:id", s.groupAdminMiddleware(), s.handleUpdateGroup)
		groupRoutes.DELETE("/:id", s.groupAdminMiddleware(), s.handleDeleteGroup)

		groupRoutes.POST("/:id/members", s.handleAddMember)
		groupRoutes.GET("/:id/members", s.handleListMembers)
		groupRoutes.PUT("/:id/members/:member_id", s.groupAdminMiddleware(), s.handleUpdateMember)
		groupRoutes.DELETE("/:id/members/:member_id", s.groupAdminMiddleware(), s.handleRemoveMember)

		groupRoutes.POST("/:id/admins", s.groupAdminMiddleware(), s.handleAddAdmin)
		groupRoutes.GET("/:id/admins", s.handleListAdmins)
		groupRoutes.DELETE("/:id/admins/:admin_id", s.groupAdminMiddleware(), s.handleRemoveAdmin)

		groupRoutes.POST("/:id/punishments", s.groupAdminMiddleware(), s.handlePunishMember)
		groupRoutes.GET("/:id/punishments", s.handleListPunishments)
		groupRoutes.POST("/:id/punishments/:punishment_id/resolve", s.groupAdminMiddleware(), s.handleResolvePunishment)
	}

	contributionRoutes := v1.Group("/contributions", s.authMiddleware())
	{
		contributionRoutes.POST("", s.handleCreateContribution)
		contributionRoutes.GET("", s.handleListContributions)
		contributionRoutes.GET("/group/:group_id", s.handleGroupContributions)
		contributionRoutes.GET("/group/:group_id/summary", s.handleGroupSummary)
		contributionRoutes.GET("/user/:user_id", s.handleUserContributions)
		contributionRoutes.GET("/user/:user_id/overdue", s.handleUserOverdue)
		contributionRoutes.GET("/:id", s.handleGetContribution)
		contributionRoutes.PUT("/:id", s.handleUpdateContribution)
		contributionRoutes.DELETE("/:id", s.handleDeleteContribution)
		contributionRoutes.POST("/:id/pay", s.handleMarkPaid)
	}

	notificationRoutes := v1.Group("/notifications", s.authMiddleware())
	{
		notificationRoutes.GET("", s.handleListNotifications)
		notificationRoutes.POST("", s.handleCreateNotification)
		notificationRoutes.GET("/unread-count", s.handleUnreadCount)
		notificationRoutes.POST("/read-all", s.handleMarkAllRead)
		notificationRoutes.PUT("/:id/read", s.handleMarkRead)
		notificationRoutes.DELETE("/:id", s.handleDeleteNotification)
	}

	tokenRoutes := v1.Group("/tokens")
	{
		tokenRoutes.GET("", s.handleListTokens)
		tokenRoutes.GET("/:symbol", s.handleGetToken)
		tokenRoutes.POST("", s.authMiddleware(), s.handleCreateToken)
		tokenRoutes.PUT("/:id", s.authMiddleware(), s.handleUpdateToken)
		tokenRoutes.DELETE("/:id", s.authMiddleware(), s.handleDeleteToken)
	}

	web3 := v1.Group("/web3", s.authMiddleware())
	{
		web3.GET("/status", s.handleChainStatus)
		web3.GET("/tx/:hash", s.handleChainTxStatus)
		web3.POST("/sync", s.handleChainSync)
	}

	return router
}

// writeError maps service errors to HTTP statuses
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, identities.ErrInvalidCredentials),
		errors.Is(err, identities.ErrInvalidToken),
		errors.Is(err, identities.ErrTokenRevoked):
		status = http.StatusUnauthorized
	case errors.Is(err, identities.ErrEmailTaken),
		errors.Is(err, groups.ErrAlreadyMember),
		errors.Is(err, groups.ErrAlreadyAdmin),
		errors.Is(err, contributions.ErrAlreadyPaid),
		errors.Is(err, tokens.ErrSymbolTaken):
		status = http.StatusConflict
	case errors.Is(err, identities.ErrUserNotFound),
		errors.Is(err, identities.ErrProfileNotFound),
		errors.Is(err, groups.ErrGroupNotFound),
		errors.Is(err, groups.ErrProfileNotFound),
		errors.Is(err, groups.ErrMemberNotFound),
		errors.Is(err, groups.ErrAdminNotFound),
		errors.Is(err, groups.ErrPunishmentNotFound),
		errors.Is(err, contributions.ErrContributionNotFound),
		errors.Is(err, contributions.ErrGroupNotFound),
		errors.Is(err, contributions.ErrMemberNotFound),
		errors.Is(err, notifications.ErrNotificationNotFound),
		errors.Is(err, tokens.ErrTokenNotFound):
		status = http.StatusNotFound
	case errors.Is(err, groups.ErrGroupFull),
		errors.Is(err, groups.ErrLastAdmin):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// writeBindError reports a malformed payload or query string
func (s *Server) writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
}

// authMiddleware authenticates requests via the Authorization bearer header
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := s.identitiesSvc.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", userID)
		c.Set("userEmail", claims.Email)
		c.Next()
	}
}

// groupAdminMiddleware requires the caller to hold the admin role in the
// group addressed by the :id path parameter
func (s *Server) groupAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
			return
		}
		userID := s.currentUserID(c)

		isAdmin, err := s.groupsSvc.IsGroupAdmin(c.Request.Context(), groupID, userID)
		if err != nil {
			s.writeError(c, err)
			c.Abort()
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "group admin access required"})
			return
		}
		c.Next()
	}
}

// metricsMiddleware records request counts and latency
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPLatency.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// currentUserID returns the authenticated user set by authMiddleware
func (s *Server) currentUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// pathUUID parses a UUID path parameter
func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
