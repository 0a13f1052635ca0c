package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/config"
	"github.com/petshop-system/petshop-management/internal/constants"
	"github.com/petshop-system/petshop-management/internal/repository"
	"github.com/petshop-system/petshop-management/internal/service"
	"github.com/petshop-system/petshop-management/internal/service/worker"
	"github.com/petshop-system/petshop-management/internal/tenant"
	"github.com/petshop-system/petshop-management/pkg/logger"
)

// app 命令行运行环境 - 每次命令执行时装配一次
type app struct {
	cfg                 *config.Config
	logger              *zap.Logger
	router              *tenant.Router
	schemaManager       *tenant.Manager
	tenantService       *service.TenantService
	provisioningService *service.ProvisioningService
	backupService       *service.BackupService
	scheduler           *worker.BackupScheduler
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenantctl",
		Short: "Tenant administration for petshop-management",
		Long: `tenantctl manages tenant lifecycle out-of-band: provisioning,
schema migration, backup, restore and retention. Commands operate
directly on the registry and tenant schemas without going through
the HTTP surface.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(provisionCmd())
	cmd.AddCommand(listCmd())
	cmd.AddCommand(createSchemaCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(migrateAllCmd())
	cmd.AddCommand(backupCmd())
	cmd.AddCommand(restoreCmd())
	cmd.AddCommand(scheduleBackupsCmd())
	cmd.AddCommand(purgeBackupsCmd())

	return cmd
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// CLI始终使用开发格式输出, 不走服务端的日志配置
	zapLogger, err := logger.NewDevelopmentLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	sharedDB, err := gorm.Open(postgres.Open(cfg.Database.BaseDSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	opener := tenant.NewPostgresOpener(cfg.Database.BaseDSN(), nil)
	router := tenant.NewRouter(sharedDB, opener, zapLogger)
	locks := tenant.NewKeyedMutex()
	schemaManager := tenant.NewManager(router, locks, zapLogger)

	tenantRepo := repository.NewTenantRepository(sharedDB)
	configRepo := repository.NewTenantConfigRepository(sharedDB)
	userRepo := repository.NewTenantUserRepository(sharedDB)
	auditRepo := repository.NewAuditRepository(sharedDB)

	auditService := service.NewAuditService(auditRepo)
	tenantCache := repository.NewTenantCache(nil, 0, zapLogger)
	tenantService := service.NewTenantService(tenantRepo, configRepo, tenantCache, auditService, zapLogger)
	provisioningService := service.NewProvisioningService(
		tenantService, tenantRepo, configRepo, userRepo,
		schemaManager, router, auditService, zapLogger,
	)
	backupService := service.NewBackupService(
		router, schemaManager, configRepo, auditService,
		locks, cfg.Backup.Dir, cfg.Backup.UploadsDir, zapLogger,
	)
	scheduler := worker.NewBackupScheduler(tenantRepo, configRepo, backupService, zapLogger)

	return &app{
		cfg:                 cfg,
		logger:              zapLogger,
		router:              router,
		schemaManager:       schemaManager,
		tenantService:       tenantService,
		provisioningService: provisioningService,
		backupService:       backupService,
		scheduler:           scheduler,
	}, nil
}

func provisionCmd() *cobra.Command {
	var req service.ProvisionRequest

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a new tenant end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			result := a.provisioningService.Provision(context.Background(), req)
			if result.Status != constants.StatusSuccess {
				for _, v := range result.Validation {
					fmt.Fprintf(os.Stderr, "  validation: %s\n", v)
				}
				return fmt.Errorf("provisioning failed at step %s: %s", result.FailedStep, result.Error)
			}

			fmt.Printf("Tenant %s provisioned (id=%s, schema=%s)\n",
				result.Tenant.Subdomain, result.Tenant.ID, result.Tenant.SchemaName)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Tenant display name")
	cmd.Flags().StringVar(&req.Subdomain, "subdomain", "", "Tenant subdomain")
	cmd.Flags().StringVar(&req.PlanType, "plan", "basic", "Plan type (basic, standard, premium)")
	cmd.Flags().StringVar(&req.AdminEmail, "admin-email", "", "Initial admin email")
	cmd.Flags().StringVar(&req.AdminName, "admin-name", "", "Initial admin display name")
	cmd.Flags().StringVar(&req.AdminPassword, "admin-password", "", "Initial admin password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("subdomain")
	_ = cmd.MarkFlagRequired("admin-email")
	_ = cmd.MarkFlagRequired("admin-password")

	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tenants in the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			tenants, err := a.tenantService.ListTenants()
			if err != nil {
				return err
			}

			for _, t := range tenants {
				status := "inactive"
				if t.IsActive {
					status = "active"
				}
				fmt.Printf("%-36s  %-20s  %-25s  %-8s  %s\n",
					t.ID, t.Subdomain, t.SchemaName, status, t.PlanType)
			}
			fmt.Printf("Total: %d\n", len(tenants))
			return nil
		},
	}
}

func createSchemaCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "create-schema <tenant>",
		Short: "Create the schema for an existing registry tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			t, err := a.tenantService.GetBySelector(args[0])
			if err != nil {
				return err
			}

			created, err := a.schemaManager.CreateSchema(t, force)
			if err != nil {
				return err
			}
			if !created {
				fmt.Printf("Schema %s already exists, nothing to do\n", t.SchemaName)
				return nil
			}
			fmt.Printf("Schema %s created\n", t.SchemaName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Recreate schema even if it exists (drops current content)")
	return cmd
}

func migrateCmd() *cobra.Command {
	var fake bool

	cmd := &cobra.Command{
		Use:   "migrate <tenant>",
		Short: "Run pending migrations for one tenant schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			t, err := a.tenantService.GetBySelector(args[0])
			if err != nil {
				return err
			}

			if err := a.schemaManager.Migrate(t, fake); err != nil {
				return err
			}
			fmt.Printf("Tenant %s migrated (fake=%v)\n", t.Subdomain, fake)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fake, "fake", false, "Record migrations as applied without running DDL")
	return cmd
}

func migrateAllCmd() *cobra.Command {
	var fake bool

	cmd := &cobra.Command{
		Use:   "migrate-all",
		Short: "Run pending migrations for every tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			tenants, err := a.tenantService.ListTenants()
			if err != nil {
				return err
			}

			result := a.schemaManager.MigrateAll(tenants, fake)
			for subdomain, migErr := range result.Errors {
				fmt.Fprintf(os.Stderr, "  %s: %v\n", subdomain, migErr)
			}
			fmt.Printf("Migrated %d tenants, %d failed\n", result.SuccessCount, result.ErrorCount)
			if result.ErrorCount > 0 {
				return fmt.Errorf("%d tenant migrations failed", result.ErrorCount)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fake, "fake", false, "Record migrations as applied without running DDL")
	return cmd
}

func backupCmd() *cobra.Command {
	var compress, includeFiles bool
	var outputDir string

	cmd := &cobra.Command{
		Use:   "backup <tenant>",
		Short: "Create a backup artifact for one tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			t, err := a.tenantService.GetBySelector(args[0])
			if err != nil {
				return err
			}

			result, err := a.backupService.Backup(context.Background(), t, service.BackupOptions{
				OutputDir:    outputDir,
				Compress:     compress,
				IncludeFiles: includeFiles,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Backup written: %s (%d tables, %d rows, %d bytes)\n",
				result.FilePath, result.TableCount, result.RowCount, result.SizeBytes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&compress, "compress", false, "Write gzip-compressed artifact")
	cmd.Flags().BoolVar(&includeFiles, "include-files", false, "Include uploaded files in the artifact")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Override configured backup directory")
	return cmd
}

func restoreCmd() *cobra.Command {
	var file string
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <tenant>",
		Short: "Restore a tenant schema from a backup artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			t, err := a.tenantService.GetBySelector(args[0])
			if err != nil {
				return err
			}

			path := file
			if _, statErr := os.Stat(path); statErr != nil {
				path, err = a.backupService.ResolveArtifact(file)
				if err != nil {
					return err
				}
			}

			if err := a.backupService.Restore(context.Background(), t, path, force); err != nil {
				return err
			}
			fmt.Printf("Tenant %s restored from %s\n", t.Subdomain, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Backup artifact path or filename")
	cmd.Flags().BoolVar(&force, "force", false, "Restore even if the artifact belongs to a different tenant")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func scheduleBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule-backups",
		Short: "Run one pass of the backup scheduler over all active tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			summary := a.scheduler.RunOnce(context.Background())
			fmt.Printf("Scheduler pass complete: %d ran, %d skipped, %d errors\n",
				summary.Ran, summary.Skipped, summary.Errors)
			if summary.Errors > 0 {
				return fmt.Errorf("%d tenant backups failed", summary.Errors)
			}
			return nil
		},
	}
}

func purgeBackupsCmd() *cobra.Command {
	var retentionDays int

	cmd := &cobra.Command{
		Use:   "purge-backups <tenant>",
		Short: "Delete backup artifacts older than the retention window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			t, err := a.tenantService.GetBySelector(args[0])
			if err != nil {
				return err
			}

			removed, err := a.backupService.PurgeOldBackups(t, retentionDays)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired backups for %s\n", removed, t.Subdomain)
			return nil
		},
	}

	cmd.Flags().IntVar(&retentionDays, "retention-days", 30, "Retention window in days")
	return cmd
}
