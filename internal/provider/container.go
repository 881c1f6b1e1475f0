package provider

import (
	"github.com/hortafresh/backoffice/internal/authz"
	"github.com/hortafresh/backoffice/internal/cache"
	"github.com/hortafresh/backoffice/internal/config"
	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/queue"
	"github.com/hortafresh/backoffice/internal/repository"
	"github.com/hortafresh/backoffice/internal/service"
)

// Container wires repositories and services together.
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	AdminLoginLogRepo repository.AdminLoginLogRepository
	AuthzAuditLogRepo repository.AuthzAuditLogRepository
	CustomerRepo      repository.CustomerRepository
	ProductRepo       repository.ProductRepository
	OrderRepo         repository.OrderRepository
	DeliveryRepo      repository.DeliveryRepository
	PaymentRepo       repository.PaymentRepository
	SubscriptionRepo  repository.SubscriptionRepository
	SettingRepo       repository.SettingRepository
	DashboardRepo     repository.DashboardRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	CaptchaService      *service.CaptchaService
	EmailService        *service.EmailService
	SettingService      *service.SettingService
	CustomerService     *service.CustomerService
	ProductService      *service.ProductService
	OrderService        *service.OrderService
	PaymentService      *service.PaymentService
	SubscriptionService *service.SubscriptionService
	AuthzAuditService   *service.AuthzAuditService
	DashboardService    *service.DashboardService
}

// NewContainer initializes the container.
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.AdminLoginLogRepo = repository.NewAdminLoginLogRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.DeliveryRepo = repository.NewDeliveryRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.SubscriptionRepo = repository.NewSubscriptionRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.SettingService = service.NewSettingService(c.SettingRepo)

	// Stored SMTP settings override the file defaults when present.
	emailCfg, err := c.SettingService.GetSMTPConfig(c.Config.Email)
	if err != nil {
		logger.Warnw("provider_load_smtp_setting_failed", "error", err)
	} else {
		c.Config.Email = emailCfg
	}

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.CaptchaService = service.NewCaptchaService(c.SettingService, c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo, c.AdminLoginLogRepo)
	c.CustomerService = service.NewCustomerService(c.CustomerRepo)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.CustomerRepo, c.ProductRepo, c.DeliveryRepo, c.SettingService, c.QueueClient)
	c.PaymentService = service.NewPaymentService(c.PaymentRepo, c.OrderRepo, c.OrderService, c.SettingService, c.QueueClient)
	c.SubscriptionService = service.NewSubscriptionService(c.SubscriptionRepo, c.CustomerRepo, c.ProductRepo, c.OrderService)
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
