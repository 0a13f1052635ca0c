package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/repository"
	"github.com/petshop-system/petshop-management/internal/service"
	"github.com/petshop-system/petshop-management/internal/tenant"
	"github.com/petshop-system/petshop-management/internal/utils"
)

// BackupScheduler 定时备份驱动
// 周期性遍历激活租户, 跳过未启用计划的租户, 对到期租户执行备份+保留期清理
// 单个租户失败只计入汇总, 绝不阻塞其他租户
type BackupScheduler struct {
	tenantRepo    *repository.TenantRepository
	configRepo    *repository.TenantConfigRepository
	backupService *service.BackupService
	cron          *cron.Cron
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
}

// RunSummary 单轮调度汇总
type RunSummary struct {
	Ran     int
	Skipped int
	Errors  int
}

func NewBackupScheduler(
	tenantRepo *repository.TenantRepository,
	configRepo *repository.TenantConfigRepository,
	backupService *service.BackupService,
	logger *zap.Logger,
) *BackupScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &BackupScheduler{
		tenantRepo:    tenantRepo,
		configRepo:    configRepo,
		backupService: backupService,
		cron:          cron.New(),
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start 启动cron调度, 每15分钟巡检一次到期租户
func (s *BackupScheduler) Start() {
	s.logger.Info("starting backup scheduler")

	if _, err := s.cron.AddFunc("*/15 * * * *", func() {
		summary := s.RunOnce(s.ctx)
		s.logger.Info("backup scheduler pass finished",
			zap.Int("ran", summary.Ran),
			zap.Int("skipped", summary.Skipped),
			zap.Int("errors", summary.Errors))
	}); err != nil {
		s.logger.Error("failed to register scheduler cron entry", zap.Error(err))
		return
	}

	s.cron.Start()
	s.logger.Info("backup scheduler started")
}

func (s *BackupScheduler) Stop() {
	s.logger.Info("stopping backup scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("backup scheduler stopped")
}

// RunOnce 单轮调度 - CLI schedule-backups也走这里
func (s *BackupScheduler) RunOnce(ctx context.Context) *RunSummary {
	// 批处理入口前后都保证干净的上下文, 避免租户间泄漏
	ctx = tenant.NewContext(ctx)
	tenant.Clear(ctx)
	defer tenant.Clear(ctx)

	summary := &RunSummary{}

	tenants, err := s.tenantRepo.ListActive()
	if err != nil {
		s.logger.Error("failed to list active tenants", zap.Error(err))
		summary.Errors++
		return summary
	}

	now := time.Now()
	for _, t := range tenants {
		select {
		case <-ctx.Done():
			return summary
		default:
		}

		due, _, err := s.isDue(t, now)
		if err != nil {
			s.logger.Error("failed to evaluate backup schedule",
				zap.String("tenant", t.Subdomain), zap.Error(err))
			summary.Errors++
			continue
		}
		if !due {
			summary.Skipped++
			continue
		}

		if err := s.runTenant(ctx, t); err != nil {
			s.logger.Error("scheduled backup failed",
				zap.String("tenant", t.Subdomain), zap.Error(err))
			summary.Errors++
			continue
		}
		summary.Ran++
	}

	return summary
}

// isDue 计划启用且距上次备份已跨过下一次执行时刻
func (s *BackupScheduler) isDue(t *model.Tenant, now time.Time) (bool, *service.BackupSchedule, error) {
	raw, err := s.configRepo.GetConfig(t.ID, model.ConfigKeyBackupSchedule, "")
	if err != nil {
		return false, nil, err
	}
	if raw == "" {
		return false, nil, nil
	}

	schedule, err := service.ParseBackupSchedule(raw)
	if err != nil {
		return false, nil, err
	}
	if !schedule.Enabled {
		return false, nil, nil
	}

	lastRaw, err := s.configRepo.GetConfig(t.ID, model.ConfigKeyLastBackupAt, "")
	if err != nil {
		return false, nil, err
	}
	if lastRaw == "" {
		// 从未备份过的租户立即到期
		return true, schedule, nil
	}

	last, err := time.Parse(time.RFC3339, lastRaw)
	if err != nil {
		return true, schedule, nil
	}

	next, err := service.ComputeNextRun(schedule, last)
	if err != nil {
		return false, nil, err
	}
	return !next.After(now), schedule, nil
}

func (s *BackupScheduler) runTenant(ctx context.Context, t *model.Tenant) error {
	if _, err := s.backupService.Backup(ctx, t, service.BackupOptions{Compress: true}); err != nil {
		return err
	}

	retentionRaw, err := s.configRepo.GetConfig(t.ID, model.ConfigKeyBackupRetention, "30")
	if err != nil {
		return err
	}
	retention := utils.ParseInt(retentionRaw, 30)

	removed, err := s.backupService.PurgeOldBackups(t, retention)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("purged expired backups",
			zap.String("tenant", t.Subdomain), zap.Int("removed", removed))
	}
	return nil
}
