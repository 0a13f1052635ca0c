package service

import (
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/constants"
	"github.com/petshop-system/petshop-management/internal/metrics"
	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/repository"
	"github.com/petshop-system/petshop-management/internal/tenant"
)

// BackupMetadata 产物元数据 - restore按此校验归属与兼容性
type BackupMetadata struct {
	TenantID   string    `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	Subdomain  string    `json:"subdomain"`
	SchemaName string    `json:"schema_name"`
	BackupDate time.Time `json:"backup_date"`
	BackupType string    `json:"backup_type"`
	Engine     string    `json:"engine"`
}

// TableDump 单表快照(列名+行)
type TableDump struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// BackupFile 可选打包的租户文件资产
type BackupFile struct {
	Path    string `json:"path"`
	Content string `json:"content"` // base64
}

// BackupArtifact 备份产物 - restore必须能解析的持久契约
type BackupArtifact struct {
	FormatVersion  int                          `json:"format_version"`
	Metadata       BackupMetadata               `json:"metadata"`
	Configurations []*model.TenantConfiguration `json:"configurations"`
	Tables         map[string]*TableDump        `json:"tables"`
	Files          []BackupFile                 `json:"files,omitempty"`
}

// BackupOptions 备份选项
type BackupOptions struct {
	OutputDir    string
	Compress     bool
	IncludeFiles bool
}

// BackupResult 备份结果记录
type BackupResult struct {
	FilePath   string        `json:"file_path"`
	SizeBytes  int64         `json:"size_bytes"`
	TableCount int           `json:"table_count"`
	RowCount   int           `json:"row_count"`
	Duration   time.Duration `json:"duration"`
}

// BackupService 租户备份/恢复服务
// 整个备份过程在目标租户的上下文作用域内执行,
// 同一租户的备份/恢复与迁移通过KeyedMutex串行化
type BackupService struct {
	router        *tenant.Router
	schemaManager *tenant.Manager
	configRepo    *repository.TenantConfigRepository
	auditService  *AuditService
	locks         *tenant.KeyedMutex
	backupDir     string
	uploadsDir    string
	logger        *zap.Logger
}

func NewBackupService(
	router *tenant.Router,
	schemaManager *tenant.Manager,
	configRepo *repository.TenantConfigRepository,
	auditService *AuditService,
	locks *tenant.KeyedMutex,
	backupDir, uploadsDir string,
	logger *zap.Logger,
) *BackupService {
	return &BackupService{
		router:        router,
		schemaManager: schemaManager,
		configRepo:    configRepo,
		auditService:  auditService,
		locks:         locks,
		backupDir:     backupDir,
		uploadsDir:    uploadsDir,
		logger:        logger,
	}
}

// Backup 对单个租户做全量快照
func (s *BackupService) Backup(ctx context.Context, t *model.Tenant, opts BackupOptions) (*BackupResult, error) {
	unlock := s.locks.Lock(t.SchemaName)
	defer unlock()

	start := time.Now()
	var result *BackupResult

	err := tenant.WithScope(ctx, t, func(ctx context.Context) error {
		artifact, err := s.dump(t, opts.IncludeFiles)
		if err != nil {
			return err
		}

		outputDir := opts.OutputDir
		if outputDir == "" {
			outputDir = s.backupDir
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create backup directory: %w", err)
		}

		filename := BackupFilename(t.Subdomain, start, opts.Compress)
		path := filepath.Join(outputDir, filename)

		size, err := writeArtifact(path, artifact, opts.Compress)
		if err != nil {
			return err
		}

		rowCount := 0
		for _, dump := range artifact.Tables {
			rowCount += len(dump.Rows)
		}

		result = &BackupResult{
			FilePath:   path,
			SizeBytes:  size,
			TableCount: len(artifact.Tables),
			RowCount:   rowCount,
			Duration:   time.Since(start),
		}
		return nil
	})

	if err != nil {
		metrics.BackupsTotal.WithLabelValues(constants.StatusFailed).Inc()
		if s.auditService != nil {
			s.auditService.LogFailure(t.ID, "backup", constants.ResourceTypeBackup, "system", err)
		}
		return nil, fmt.Errorf("backup tenant %s: %w", t.Subdomain, err)
	}

	metrics.BackupsTotal.WithLabelValues(constants.StatusSuccess).Inc()
	metrics.BackupDuration.Observe(result.Duration.Seconds())

	if err := s.configRepo.SetConfig(t.ID, model.ConfigKeyLastBackupAt,
		start.Format(time.RFC3339), model.ConfigTypeString); err != nil {
		s.logger.Warn("failed to record last backup timestamp",
			zap.String("tenant", t.Subdomain), zap.Error(err))
	}

	if s.auditService != nil {
		s.auditService.LogBackup(t.ID, result.FilePath, "system", map[string]interface{}{
			"tables": result.TableCount,
			"rows":   result.RowCount,
			"bytes":  result.SizeBytes,
		})
	}

	s.logger.Info("tenant backup completed",
		zap.String("tenant", t.Subdomain),
		zap.String("file", result.FilePath),
		zap.Int("tables", result.TableCount),
		zap.Int("rows", result.RowCount),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// dump 导出元数据+配置+schema内全部表
func (s *BackupService) dump(t *model.Tenant, includeFiles bool) (*BackupArtifact, error) {
	tables, err := s.schemaManager.ListTables(t)
	if err != nil {
		return nil, err
	}

	configs, err := s.configRepo.ListByTenant(t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read configurations: %w", err)
	}

	db, err := s.router.SchemaDB(t.SchemaName)
	if err != nil {
		return nil, err
	}

	artifact := &BackupArtifact{
		FormatVersion: constants.BackupFormatVersion,
		Metadata: BackupMetadata{
			TenantID:   t.ID.String(),
			TenantName: t.Name,
			Subdomain:  t.Subdomain,
			SchemaName: t.SchemaName,
			BackupDate: time.Now(),
			BackupType: constants.BackupTypeFull,
			Engine:     constants.BackupEnginePostgres,
		},
		Configurations: configs,
		Tables:         make(map[string]*TableDump, len(tables)),
	}

	for _, table := range tables {
		if table == "schema_migrations" {
			continue
		}

		dump, err := s.dumpTable(db, t.SchemaName, table)
		if err != nil {
			return nil, fmt.Errorf("failed to dump table %s: %w", table, err)
		}
		artifact.Tables[table] = dump
	}

	if includeFiles {
		files, err := s.collectFiles(t)
		if err != nil {
			return nil, err
		}
		artifact.Files = files
	}

	return artifact, nil
}

func (s *BackupService) dumpTable(db *gorm.DB, schemaName, table string) (*TableDump, error) {
	var columns []string
	err := s.router.SharedDB().Raw(
		"SELECT column_name FROM information_schema.columns WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position",
		schemaName, table,
	).Scan(&columns).Error
	if err != nil {
		return nil, err
	}

	var rows []map[string]interface{}
	if err := db.Table(table).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		for col, v := range row {
			row[col] = normalizeCell(v)
		}
	}

	return &TableDump{Columns: columns, Rows: rows}, nil
}

// normalizeCell jsonb等列在驱动侧以[]byte返回,
// 直接编码会退化为base64字符串, JSON内容按原样内联, 其余转为文本
func normalizeCell(v interface{}) interface{} {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if json.Valid(b) {
		return json.RawMessage(append([]byte(nil), b...))
	}
	return string(b)
}

// restoreCell 反序列化后的JSON对象/数组以文本形式写回, 适配jsonb列
func restoreCell(v interface{}) interface{} {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		return string(b)
	}
	return v
}

// collectFiles 打包租户上传目录下的文件资产
func (s *BackupService) collectFiles(t *model.Tenant) ([]BackupFile, error) {
	root := filepath.Join(s.uploadsDir, t.Subdomain)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	var files []BackupFile
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, BackupFile{
			Path:    rel,
			Content: base64.StdEncoding.EncodeToString(data),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect tenant files: %w", err)
	}
	return files, nil
}

func writeArtifact(path string, artifact *BackupArtifact, compress bool) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(f)
		w = gz
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(artifact); err != nil {
		return 0, fmt.Errorf("failed to encode backup artifact: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return 0, fmt.Errorf("failed to finish compressed backup: %w", err)
		}
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ReadArtifact 读取并解析备份产物(自动识别gzip)
func ReadArtifact(path string) (*BackupArtifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup artifact: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read compressed artifact: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var artifact BackupArtifact
	if err := json.NewDecoder(r).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("malformed backup artifact: %w", err)
	}
	return &artifact, nil
}

// Restore 用备份产物替换租户schema当前内容
// 产物归属租户与目标不一致时拒绝执行, 除非force
func (s *BackupService) Restore(ctx context.Context, t *model.Tenant, artifactPath string, force bool) error {
	unlock := s.locks.Lock(t.SchemaName)
	defer unlock()

	artifact, err := ReadArtifact(artifactPath)
	if err != nil {
		return err
	}

	if artifact.FormatVersion != constants.BackupFormatVersion {
		return fmt.Errorf("artifact %s declares format_version %d: %w",
			artifactPath, artifact.FormatVersion, ErrBackupVersionUnsupported)
	}

	if artifact.Metadata.TenantID != t.ID.String() {
		if !force {
			return fmt.Errorf("artifact belongs to tenant %s (%s), target is %s (%s): %w",
				artifact.Metadata.Subdomain, artifact.Metadata.TenantID,
				t.Subdomain, t.ID, ErrBackupTenantMismatch)
		}
		s.logger.Warn("forcing restore of foreign artifact",
			zap.String("artifact_tenant", artifact.Metadata.Subdomain),
			zap.String("target_tenant", t.Subdomain))
	}

	restoreErr := tenant.WithScope(ctx, t, func(ctx context.Context) error {
		db, err := s.router.SchemaDB(t.SchemaName)
		if err != nil {
			return err
		}

		existing, err := s.schemaManager.ListTables(t)
		if err != nil {
			return err
		}
		existingSet := make(map[string]bool, len(existing))
		for _, name := range existing {
			existingSet[name] = true
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			for table, dump := range artifact.Tables {
				if !existingSet[table] {
					// 旧版产物可能携带已不存在的表, 尽力恢复其余部分
					s.logger.Warn("skipping unknown table from artifact",
						zap.String("tenant", t.Subdomain), zap.String("table", table))
					continue
				}

				if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %q.%q CASCADE", t.SchemaName, table)).Error; err != nil {
					return fmt.Errorf("failed to truncate %s: %w", table, err)
				}
				for _, row := range dump.Rows {
					values := make(map[string]interface{}, len(row))
					for col, v := range row {
						values[col] = restoreCell(v)
					}
					if err := tx.Table(table).Create(values).Error; err != nil {
						return fmt.Errorf("failed to restore row into %s: %w", table, err)
					}
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("restore tenant %s: %w", t.Subdomain, err)
		}

		for _, cfg := range artifact.Configurations {
			if err := s.configRepo.SetConfig(t.ID, cfg.Key, cfg.Value, cfg.ConfigType); err != nil {
				return fmt.Errorf("restore tenant %s: failed to restore config %s: %w", t.Subdomain, cfg.Key, err)
			}
		}

		if s.auditService != nil {
			s.auditService.LogRestore(t.ID, artifactPath, "system", map[string]interface{}{
				"tables": len(artifact.Tables),
				"forced": force,
			})
		}

		s.logger.Info("tenant restore completed",
			zap.String("tenant", t.Subdomain),
			zap.String("artifact", artifactPath))
		return nil
	})
	if restoreErr != nil && s.auditService != nil {
		s.auditService.LogFailure(t.ID, "restore", constants.ResourceTypeRestore, "system", restoreErr)
	}
	return restoreErr
}

// PurgeOldBackups 删除超出保留期的备份产物
// 文件名不符合时间戳约定的跳过, 不视为致命错误; 返回删除数量
func (s *BackupService) PurgeOldBackups(t *model.Tenant, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	prefix := "backup_" + t.Subdomain + "_"
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		ts, err := ParseBackupTimestamp(entry.Name())
		if err != nil {
			s.logger.Warn("skipping backup with malformed filename",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		if ts.Before(cutoff) {
			if err := os.Remove(filepath.Join(s.backupDir, entry.Name())); err != nil {
				s.logger.Error("failed to remove expired backup",
					zap.String("file", entry.Name()), zap.Error(err))
				continue
			}
			removed++
		}
	}

	return removed, nil
}

// ListBackups 列出属于该租户的备份产物完整路径
func (s *BackupService) ListBackups(t *model.Tenant) ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	prefix := "backup_" + t.Subdomain + "_"
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		paths = append(paths, filepath.Join(s.backupDir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ResolveArtifact 把备份文件名解析为备份目录下的完整路径
func (s *BackupService) ResolveArtifact(filename string) (string, error) {
	path := filepath.Join(s.backupDir, filepath.Base(filename))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrBackupNotFound
		}
		return "", err
	}
	return path, nil
}
