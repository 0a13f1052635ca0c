package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/config"
	"github.com/petshop-system/petshop-management/internal/handler"
	"github.com/petshop-system/petshop-management/internal/middleware"
	"github.com/petshop-system/petshop-management/internal/repository"
	"github.com/petshop-system/petshop-management/internal/service"
	"github.com/petshop-system/petshop-management/internal/service/worker"
	"github.com/petshop-system/petshop-management/internal/tenant"
	"github.com/petshop-system/petshop-management/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "petshop-management")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	sharedDB, err := initDB(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	baseDSN := cfg.Database.BaseDSN()
	opener := tenant.NewPostgresOpener(baseDSN, func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		return nil
	})

	router := tenant.NewRouter(sharedDB, opener, zapLogger)
	locks := tenant.NewKeyedMutex()
	schemaManager := tenant.NewManager(router, locks, zapLogger)
	gateway := tenant.NewGateway(router, zapLogger)

	if err := schemaManager.MigrateShared(); err != nil {
		zapLogger.Fatal("Failed to migrate shared tables", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	tenantCache := repository.NewTenantCache(redisClient, cfg.Redis.CacheTTL, zapLogger)

	tenantRepo := repository.NewTenantRepository(sharedDB)
	configRepo := repository.NewTenantConfigRepository(sharedDB)
	userRepo := repository.NewTenantUserRepository(sharedDB)
	auditRepo := repository.NewAuditRepository(sharedDB)
	clientRepo := repository.NewClientRepository(gateway)
	animalRepo := repository.NewAnimalRepository(gateway)
	appointmentRepo := repository.NewAppointmentRepository(gateway)

	auditService := service.NewAuditService(auditRepo)
	tenantService := service.NewTenantService(tenantRepo, configRepo, tenantCache, auditService, zapLogger)
	provisioningService := service.NewProvisioningService(
		tenantService,
		tenantRepo,
		configRepo,
		userRepo,
		schemaManager,
		router,
		auditService,
		zapLogger,
	)
	backupService := service.NewBackupService(
		router,
		schemaManager,
		configRepo,
		auditService,
		locks,
		cfg.Backup.Dir,
		cfg.Backup.UploadsDir,
		zapLogger,
	)
	authService := service.NewAuthService(userRepo, tenantRepo, cfg.Auth.SecretKey, cfg.Auth.TokenTTL)

	backupScheduler := worker.NewBackupScheduler(tenantRepo, configRepo, backupService, zapLogger)
	zapLogger.Info("Worker configuration", zap.Bool("enabled", cfg.Worker.Enabled))
	if cfg.Worker.Enabled {
		backupScheduler.Start()
		defer backupScheduler.Stop()
	}

	authHandler := handler.NewAuthHandler(authService)
	tenantHandler := handler.NewTenantHandler(tenantService, provisioningService, backupService, schemaManager, userRepo)
	clientHandler := handler.NewClientHandler(clientRepo, animalRepo)
	appointmentHandler := handler.NewAppointmentHandler(appointmentRepo)

	r := setupRoutes(cfg, tenantService, authHandler, tenantHandler, clientHandler, appointmentHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zapLogger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.BaseDSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func setupRoutes(
	cfg *config.Config,
	tenantService *service.TenantService,
	authHandler *handler.AuthHandler,
	tenantHandler *handler.TenantHandler,
	clientHandler *handler.ClientHandler,
	appointmentHandler *handler.AppointmentHandler,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 认证路由 - 登录请求自带子域名, 不经过租户解析
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	// 平台管理面 - 跨租户操作, 不经过租户解析中间件
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.JWTMiddleware(cfg.Auth.SecretKey))
	admin.Use(middleware.RoleMiddleware("admin"))
	{
		tenants := admin.Group("/tenants")
		{
			tenants.POST("", tenantHandler.ProvisionTenant)
			tenants.GET("", tenantHandler.ListTenants)
			tenants.GET(":id", tenantHandler.GetTenant)
			tenants.POST(":id/activate", tenantHandler.ActivateTenant)
			tenants.POST(":id/deactivate", tenantHandler.DeactivateTenant)
			tenants.POST(":id/migrate", tenantHandler.MigrateTenant)
			tenants.PUT(":id/config", tenantHandler.SetTenantConfig)
			tenants.GET(":id/config/:key", tenantHandler.GetTenantConfig)
			tenants.POST(":id/backups", tenantHandler.CreateBackup)
			tenants.GET(":id/backups", tenantHandler.ListBackups)
			tenants.POST(":id/backups/restore", tenantHandler.RestoreBackup)
		}
	}

	// 租户业务面 - 所有路由都运行在解析出的租户作用域内
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTMiddleware(cfg.Auth.SecretKey))
	v1.Use(middleware.TenantMiddleware(tenantService, cfg.Server.BaseDomain))
	{
		clients := v1.Group("/clients")
		{
			clients.POST("", clientHandler.CreateClient)
			clients.GET("", clientHandler.ListClients)
			clients.GET(":id", clientHandler.GetClient)
			clients.PUT(":id", clientHandler.UpdateClient)
			clients.DELETE(":id", clientHandler.DeleteClient)
			clients.GET(":id/animals", clientHandler.ListClientAnimals)
		}

		appointments := v1.Group("/appointments")
		{
			appointments.POST("", appointmentHandler.CreateAppointment)
			appointments.GET("", appointmentHandler.ListAppointments)
			appointments.GET(":id", appointmentHandler.GetAppointment)
			appointments.PUT(":id", appointmentHandler.UpdateAppointment)
			appointments.DELETE(":id", appointmentHandler.DeleteAppointment)
		}
	}

	return r
}
