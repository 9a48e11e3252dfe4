package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/config"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/http/handlers"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/http/middleware"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/service"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/sound"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/storage"

	_ "github.com/welcometodan-source/Techsupport-pro-sub000/docs"
)

// Store is the slice of persistence the HTTP layer touches directly.
type Store interface {
	handlers.Pinger
	middleware.ProfileLoader
}

type Deps struct {
	Store       Store
	Service     *service.Service
	Tokens      middleware.TokenValidator
	Hub         *realtime.Hub
	Storage     *storage.Local
	Synth       *sound.Synth
	Permissions handlers.PermissionRequester
}

func Router(cfg config.Config, deps Deps, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Service:     deps.Service,
		Store:       deps.Store,
		Hub:         deps.Hub,
		Storage:     deps.Storage,
		Synth:       deps.Synth,
		Permissions: deps.Permissions,
		Logger:      logger,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.CORSAllowed),
		},
	}

	r.GET("/healthz", h.Healthz)
	if deps.Storage != nil {
		r.Static("/storage", deps.Storage.Dir)
	}

	api := r.Group("/api")
	api.GET("/sounds/:cue", h.Sound)
	api.POST("/vin/validate", h.VINValidate)
	api.GET("/plans", h.PlansList)

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Tokens, deps.Store))
	{
		authed.GET("/me", h.Me)
		authed.GET("/realtime", h.Realtime)

		authed.GET("/tickets", h.TicketsList)
		authed.GET("/tickets/:id", h.TicketDetails)
		authed.GET("/tickets/:id/messages", h.MessagesList)
		authed.POST("/tickets/:id/messages", h.MessageSend)
		authed.POST("/tickets/:id/messages/read", h.MessagesRead)
		authed.POST("/tickets/:id/attachments", h.MessageAttachment)
		authed.POST("/tickets/:id/close", middleware.RequireRole(models.RoleAdmin, models.RoleCustomer), h.TicketClose)

		authed.GET("/subscriptions", h.SubscriptionsList)
		authed.POST("/subscriptions/:id/cancel", middleware.RequireRole(models.RoleAdmin, models.RoleCustomer), h.SubscriptionCancel)

		authed.GET("/notifications", h.NotificationsList)
		authed.POST("/notifications/:id/read", h.NotificationRead)
		authed.POST("/notifications/read-all", h.NotificationsReadAll)
		authed.POST("/notifications/permission", h.NotificationPermission)
	}

	customer := authed.Group("")
	customer.Use(middleware.RequireRole(models.RoleCustomer))
	{
		customer.POST("/tickets", h.TicketCreate)
		customer.POST("/tickets/:id/payments/:stage", h.TicketPay)
		customer.POST("/subscriptions", h.SubscriptionCreate)
		customer.POST("/subscriptions/:id/payment", h.SubscriptionPay)
		customer.GET("/preferences", h.PreferencesGet)
		customer.PUT("/preferences", h.PreferencesUpdate)
		customer.POST("/preferences/background", h.BackgroundUpload)
		customer.GET("/dashboard/customer", h.DashboardCustomer)
	}

	tech := authed.Group("")
	tech.Use(middleware.RequireRole(models.RoleTechnician))
	{
		tech.POST("/tickets/:id/estimate", h.TicketEstimate)
		tech.POST("/tickets/:id/complete", h.TicketComplete)
		tech.GET("/dashboard/technician", h.DashboardTechnician)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/tickets/:id/assign", h.TicketAssign)
		admin.GET("/tickets/:id/suggestions", h.TicketSuggestions)
		admin.POST("/tickets/:id/confirm/:stage", h.TicketConfirmPayment)
		admin.POST("/subscriptions/:id/confirm", h.SubscriptionConfirm)
		admin.GET("/admin/payments/pending", h.PaymentsPending)
		admin.GET("/admin/users", h.UsersList)
		admin.POST("/admin/users/:id/review", h.TechnicianReview)
		admin.POST("/admin/users/:id/block", h.UserBlock)
		admin.PUT("/admin/users/:id/vip", h.UserVIP)
		admin.DELETE("/admin/users/:id", h.UserDelete)
		admin.GET("/dashboard/admin", h.DashboardAdmin)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func originChecker(allowed string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}
