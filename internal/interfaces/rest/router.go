package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/application/services"
	"github.com/devstudio/backoffice/internal/config"
	"github.com/devstudio/backoffice/internal/interfaces/middleware"
	"github.com/devstudio/backoffice/internal/metrics"
)

// NewRouter builds the HTTP API on top of the service manager.
func NewRouter(svcMgr *services.ServiceManager, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.RequestLogger(), middleware.Cors(cfg.Server.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := svcMgr.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Initialize handlers
	var verifier WebhookVerifier
	if svcMgr.Gateway != nil {
		verifier = svcMgr.Gateway
	}
	authHandler := NewAuthHandler(svcMgr.Auth)
	pricingHandler := NewPricingHandler(svcMgr.Budgets)
	budgetHandler := NewBudgetHandler(svcMgr.Budgets)
	paymentHandler := NewPaymentHandler(svcMgr.Payments, verifier)
	projectHandler := NewProjectHandler(svcMgr.Projects)
	clientHandler := NewClientHandler(svcMgr.Clients)
	teamHandler := NewTeamHandler(svcMgr.Team)
	eventHandler := NewEventHandler(svcMgr.Events)
	contractHandler := NewContractHandler(svcMgr.Contracts)
	notificationHandler := NewNotificationHandler(svcMgr.Notification)
	dashboardHandler := NewDashboardHandler(svcMgr.Dashboard, svcMgr.Logs)

	// Initialize middleware
	requireAuth := middleware.RequireAuth(svcMgr.Auth)
	requireAdmin := middleware.RequireAdmin()
	limiter := middleware.NewRateLimiter(cfg.RateLimit.PublicRPS, cfg.RateLimit.Burst).Middleware()

	api := router.Group("/api")
	{
		// Public Auth routes (no authentication required)
		auth := api.Group("/auth")
		{
			auth.POST("/login", limiter, authHandler.Login)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetMe)
			auth.POST("/change-password", requireAuth, authHandler.ChangePassword)
		}

		users := api.Group("/users", requireAuth, requireAdmin)
		{
			users.GET("", authHandler.ListUsers)
			users.POST("", authHandler.CreateUser)
		}

		// Public routes for the landing page and the payment processor
		pricing := api.Group("/pricing")
		{
			pricing.GET("/catalog", pricingHandler.GetCatalog)
			pricing.POST("/estimate", limiter, pricingHandler.Estimate)
		}
		api.GET("/public/budgets/:token", limiter, budgetHandler.GetPublicBudget)
		api.POST("/webhooks/stripe", limiter, paymentHandler.StripeWebhook)

		clients := api.Group("/clients", requireAuth)
		{
			clients.GET("", clientHandler.ListClients)
			clients.POST("", clientHandler.CreateClient)
			clients.GET("/:id", clientHandler.GetClient)
			clients.PUT("/:id", clientHandler.UpdateClient)
			clients.DELETE("/:id", requireAdmin, clientHandler.DeleteClient)
		}

		budgets := api.Group("/budgets", requireAuth)
		{
			budgets.GET("", budgetHandler.ListBudgets)
			budgets.POST("", budgetHandler.CreateBudget)
			budgets.GET("/:id", budgetHandler.GetBudget)
			budgets.POST("/:id/recalculate", budgetHandler.Recalculate)
			budgets.POST("/:id/send", budgetHandler.Send)
			budgets.POST("/:id/accept", budgetHandler.Accept)
			budgets.POST("/:id/reject", budgetHandler.Reject)
			budgets.POST("/:id/cancel", budgetHandler.Cancel)
		}

		payments := api.Group("/payments", requireAuth)
		{
			payments.GET("", paymentHandler.ListPayments)
			payments.GET("/webhooks", requireAdmin, paymentHandler.ListWebhookEvents)
			payments.GET("/:id", paymentHandler.GetPayment)
			payments.POST("/:id/checkout", paymentHandler.CreateCheckout)
			payments.POST("/:id/manual", requireAdmin, paymentHandler.RegisterManual)
		}

		projects := api.Group("/projects", requireAuth)
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", requireAdmin, projectHandler.DeleteProject)
			projects.POST("/:id/progress", projectHandler.UpdateProgress)
			projects.POST("/:id/transition", projectHandler.Transition)
			projects.POST("/:id/deliver", projectHandler.Deliver)

			projects.GET("/:id/tasks", projectHandler.ListTasks)
			projects.POST("/:id/tasks", projectHandler.CreateTask)
			projects.PUT("/:id/tasks/:taskId", projectHandler.UpdateTask)
			projects.DELETE("/:id/tasks/:taskId", projectHandler.DeleteTask)

			projects.GET("/:id/milestones", projectHandler.ListMilestones)
			projects.POST("/:id/milestones", projectHandler.CreateMilestone)
			projects.PUT("/:id/milestones/:milestoneId", projectHandler.UpdateMilestone)
			projects.DELETE("/:id/milestones/:milestoneId", projectHandler.DeleteMilestone)
		}

		contracts := api.Group("/contracts", requireAuth)
		{
			contracts.GET("", contractHandler.ListContracts)
			contracts.POST("", contractHandler.GenerateContract)
			contracts.GET("/:id", contractHandler.GetContract)
			contracts.GET("/:id/pdf", contractHandler.DownloadPDF)
			contracts.POST("/:id/sent", contractHandler.MarkSent)
			contracts.POST("/:id/signed", contractHandler.MarkSigned)
		}

		events := api.Group("/events", requireAuth)
		{
			events.GET("", eventHandler.ListEvents)
			events.POST("", eventHandler.CreateEvent)
			events.GET("/:id", eventHandler.GetEvent)
			events.PUT("/:id", eventHandler.UpdateEvent)
			events.DELETE("/:id", eventHandler.DeleteEvent)
		}

		team := api.Group("/team", requireAuth)
		{
			team.GET("", teamHandler.ListMembers)
			team.GET("/:id", teamHandler.GetMember)
			team.POST("", requireAdmin, teamHandler.CreateMember)
			team.PUT("/:id", requireAdmin, teamHandler.UpdateMember)
			team.DELETE("/:id", requireAdmin, teamHandler.DeleteMember)
		}

		notifications := api.Group("/notifications", requireAuth)
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.GET("/unread-count", notificationHandler.CountUnread)
			notifications.POST("/read-all", notificationHandler.MarkAllAsRead)
			notifications.POST("/:id/read", notificationHandler.MarkAsRead)
		}

		api.GET("/logs", requireAuth, dashboardHandler.ListLogs)
		api.GET("/dashboard/summary", requireAuth, dashboardHandler.GetSummary)
	}
	return router
}
