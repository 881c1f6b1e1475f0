package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hortafresh/backoffice/internal/authz"
	"github.com/hortafresh/backoffice/internal/cache"
	"github.com/hortafresh/backoffice/internal/config"
	adminhandlers "github.com/hortafresh/backoffice/internal/http/handlers/admin"
	"github.com/hortafresh/backoffice/internal/http/response"
	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires the admin API.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "hf"
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		admin := apiV1.Group("/admin")
		{
			// open endpoints, everything a login screen needs
			admin.POST("/login", RateLimitMiddleware(cache.Client(), loginRule, KeyByIPAndJSONField("username")), adminHandler.Login)
			admin.GET("/captcha/config", adminHandler.GetCaptchaConfig)
			admin.GET("/captcha/image", adminHandler.GenerateCaptcha)

			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				// session
				authorized.GET("/me", adminHandler.GetProfile)
				authorized.PUT("/password", adminHandler.UpdatePassword)
				authorized.GET("/login-logs", adminHandler.ListLoginLogs)

				// dashboard
				authorized.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
				authorized.GET("/dashboard/trends", adminHandler.GetDashboardTrends)
				authorized.GET("/dashboard/schedule", adminHandler.GetDashboardSchedule)
				authorized.GET("/dashboard/rankings", adminHandler.GetDashboardRankings)

				// catalog
				authorized.GET("/products", adminHandler.ListProducts)
				authorized.GET("/products/:id", adminHandler.GetProduct)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)
				authorized.DELETE("/products/:id", adminHandler.DeleteProduct)

				// customers and delivery addresses
				authorized.GET("/customers", adminHandler.ListCustomers)
				authorized.GET("/customers/:id", adminHandler.GetCustomer)
				authorized.POST("/customers", adminHandler.CreateCustomer)
				authorized.PUT("/customers/:id", adminHandler.UpdateCustomer)
				authorized.GET("/customers/:id/addresses", adminHandler.ListAddresses)
				authorized.POST("/customers/:id/addresses", adminHandler.CreateAddress)
				authorized.PUT("/customers/:id/addresses/:address_id", adminHandler.UpdateAddress)
				authorized.DELETE("/customers/:id/addresses/:address_id", adminHandler.DeleteAddress)

				// orders
				authorized.GET("/orders", adminHandler.ListOrders)
				authorized.GET("/orders/:id", adminHandler.GetOrder)
				authorized.POST("/orders", adminHandler.CreateOrder)
				authorized.PATCH("/orders/:id/delivery-status", adminHandler.UpdateDeliveryStatus)
				authorized.POST("/orders/:id/cancel", adminHandler.CancelOrder)
				authorized.POST("/orders/:id/confirm-payment", adminHandler.ConfirmOrderPayment)

				// charges
				authorized.GET("/payments", adminHandler.ListPayments)
				authorized.GET("/payments/:id", adminHandler.GetPayment)
				authorized.POST("/payments", adminHandler.CreateCharge)
				authorized.POST("/payments/:id/check", adminHandler.CheckCharge)
				authorized.POST("/payments/:id/reissue", adminHandler.ReissueCharge)
				authorized.POST("/charges/check", adminHandler.CheckChargeByScope)
				authorized.POST("/charges/reissue", adminHandler.ReissueChargeByScope)

				// subscriptions
				authorized.GET("/subscriptions", adminHandler.ListSubscriptions)
				authorized.GET("/subscriptions/:id", adminHandler.GetSubscription)
				authorized.POST("/subscriptions", adminHandler.CreateSubscription)
				authorized.PUT("/subscriptions/:id", adminHandler.UpdateSubscription)
				authorized.POST("/subscriptions/:id/pause", adminHandler.PauseSubscription)
				authorized.POST("/subscriptions/:id/resume", adminHandler.ResumeSubscription)
				authorized.POST("/subscriptions/:id/cancel", adminHandler.CancelSubscription)
				authorized.POST("/subscriptions/:id/generate-order", adminHandler.GenerateSubscriptionOrder)
				authorized.POST("/renewals/run", adminHandler.RunSubscriptionRenewals)

				// settings
				authorized.GET("/settings/:key", adminHandler.GetSetting)
				authorized.PUT("/settings/:key", adminHandler.UpdateSetting)
				authorized.POST("/settings/:key/test", adminHandler.TestSMTPSettings)

				// permissions
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.POST("/authz/reload", adminHandler.ReloadAuthzPolicy)
			}
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog lists every protected route as a grantable
// object/action pair, for the role editor.
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		switch item.Path {
		case "/api/v1/admin/login", "/api/v1/admin/captcha/config", "/api/v1/admin/captcha/image":
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
