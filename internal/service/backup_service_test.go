package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petshop-system/petshop-management/internal/constants"
	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/tenant"
)

func testArtifact(t *model.Tenant) *BackupArtifact {
	return &BackupArtifact{
		FormatVersion: constants.BackupFormatVersion,
		Metadata: BackupMetadata{
			TenantID:   t.ID.String(),
			TenantName: t.Name,
			Subdomain:  t.Subdomain,
			SchemaName: t.SchemaName,
			BackupDate: time.Now().UTC().Truncate(time.Second),
			BackupType: constants.BackupTypeFull,
			Engine:     constants.BackupEnginePostgres,
		},
		Tables: map[string]*TableDump{
			"clients": {
				Columns: []string{"id", "tenant_id", "name", "email"},
				Rows: []map[string]interface{}{
					{"id": uuid.NewString(), "tenant_id": t.ID.String(), "name": "Maria", "email": "maria@example.com"},
				},
			},
		},
	}
}

func testBackupTenant() *model.Tenant {
	return &model.Tenant{
		ID:         uuid.New(),
		Name:       "Clínica A",
		Subdomain:  "clinica-a",
		SchemaName: "tenant_clinica_a",
		IsActive:   true,
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tn := testBackupTenant()
	artifact := testArtifact(tn)

	for _, compress := range []bool{false, true} {
		path := filepath.Join(dir, BackupFilename(tn.Subdomain, time.Now(), compress))

		size, err := writeArtifact(path, artifact, compress)
		require.NoError(t, err)
		assert.Greater(t, size, int64(0))

		got, err := ReadArtifact(path)
		require.NoError(t, err, "compress=%v", compress)

		assert.Equal(t, constants.BackupFormatVersion, got.FormatVersion)
		assert.Equal(t, tn.ID.String(), got.Metadata.TenantID)
		assert.Equal(t, tn.Subdomain, got.Metadata.Subdomain)
		require.Contains(t, got.Tables, "clients")
		assert.Len(t, got.Tables["clients"].Rows, 1)
		assert.Equal(t, "Maria", got.Tables["clients"].Rows[0]["name"])
	}
}

// jsonb列在驱动侧以[]byte返回, 必须内联为JSON而不是base64字符串
func TestNormalizeCellInlinesJSONBytes(t *testing.T) {
	items := []byte(`[{"sku":"RACAO-10KG","qty":2}]`)

	got := normalizeCell(items)
	raw, ok := got.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, string(items), string(raw))

	// 非JSON字节列转为文本
	assert.Equal(t, "plain text", normalizeCell([]byte("plain text")))
	// 非字节值原样透传
	assert.Equal(t, "Maria", normalizeCell("Maria"))
	assert.Equal(t, 42, normalizeCell(42))
}

func TestRestoreCellSerializesJSONValues(t *testing.T) {
	obj := map[string]interface{}{"sku": "RACAO-10KG", "qty": float64(2)}
	got, ok := restoreCell(obj).(string)
	require.True(t, ok)
	assert.JSONEq(t, `{"sku":"RACAO-10KG","qty":2}`, got)

	arr := []interface{}{"a", "b"}
	got, ok = restoreCell(arr).(string)
	require.True(t, ok)
	assert.JSONEq(t, `["a","b"]`, got)

	assert.Equal(t, "Maria", restoreCell("Maria"))
	assert.Equal(t, float64(42), restoreCell(float64(42)))
}

func TestArtifactRoundTripJSONColumn(t *testing.T) {
	dir := t.TempDir()
	tn := testBackupTenant()

	itemsJSON := `[{"sku":"RACAO-10KG","qty":2,"price":180}]`
	artifact := testArtifact(tn)
	artifact.Tables["sales"] = &TableDump{
		Columns: []string{"id", "tenant_id", "items"},
		Rows: []map[string]interface{}{
			{
				"id":        uuid.NewString(),
				"tenant_id": tn.ID.String(),
				"items":     normalizeCell([]byte(itemsJSON)),
			},
		},
	}

	path := filepath.Join(dir, BackupFilename(tn.Subdomain, time.Now(), false))
	_, err := writeArtifact(path, artifact, false)
	require.NoError(t, err)

	// 产物中items必须是JSON数组而不是base64字符串
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sku":"RACAO-10KG"`)

	got, err := ReadArtifact(path)
	require.NoError(t, err)
	row := got.Tables["sales"].Rows[0]

	restored := restoreCell(row["items"])
	text, ok := restored.(string)
	require.True(t, ok)
	assert.JSONEq(t, itemsJSON, text)
}

func TestReadArtifactMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backup_x_20260101-000000.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := ReadArtifact(path)
	assert.Error(t, err)
}

func TestReadArtifactMissingFile(t *testing.T) {
	_, err := ReadArtifact(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func newTestBackupService(t *testing.T) (*BackupService, string) {
	t.Helper()
	dir := t.TempDir()
	return &BackupService{backupDir: dir, locks: tenant.NewKeyedMutex(), logger: zap.NewNop()}, dir
}

func touchBackup(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
}

func TestPurgeOldBackups(t *testing.T) {
	svc, dir := newTestBackupService(t)
	tn := testBackupTenant()

	old := BackupFilename(tn.Subdomain, time.Now().AddDate(0, 0, -45), false)
	recent := BackupFilename(tn.Subdomain, time.Now().AddDate(0, 0, -2), true)
	foreign := BackupFilename("outra-clinica", time.Now().AddDate(0, 0, -45), false)

	touchBackup(t, dir, old)
	touchBackup(t, dir, recent)
	touchBackup(t, dir, foreign)

	removed, err := svc.PurgeOldBackups(tn, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(dir, old))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, recent))
	assert.NoError(t, err)
	// 其他租户的备份不受影响
	_, err = os.Stat(filepath.Join(dir, foreign))
	assert.NoError(t, err)
}

func TestPurgeOldBackupsSkipsMalformedNames(t *testing.T) {
	svc, dir := newTestBackupService(t)
	tn := testBackupTenant()

	malformed := "backup_" + tn.Subdomain + "_not-a-timestamp.json"
	touchBackup(t, dir, malformed)

	removed, err := svc.PurgeOldBackups(tn, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	_, err = os.Stat(filepath.Join(dir, malformed))
	assert.NoError(t, err)
}

func TestPurgeOldBackupsZeroRetentionIsNoop(t *testing.T) {
	svc, dir := newTestBackupService(t)
	tn := testBackupTenant()

	old := BackupFilename(tn.Subdomain, time.Now().AddDate(0, 0, -400), false)
	touchBackup(t, dir, old)

	removed, err := svc.PurgeOldBackups(tn, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestListBackupsFiltersBySubdomain(t *testing.T) {
	svc, dir := newTestBackupService(t)
	tn := testBackupTenant()

	mine := BackupFilename(tn.Subdomain, time.Now(), false)
	other := BackupFilename("outra-clinica", time.Now(), false)
	touchBackup(t, dir, mine)
	touchBackup(t, dir, other)

	paths, err := svc.ListBackups(tn)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, mine), paths[0])
}

func TestRestoreRejectsUnsupportedFormatVersion(t *testing.T) {
	svc, dir := newTestBackupService(t)
	tn := testBackupTenant()

	artifact := testArtifact(tn)
	artifact.FormatVersion = 99
	path := filepath.Join(dir, BackupFilename(tn.Subdomain, time.Now(), false))
	_, err := writeArtifact(path, artifact, false)
	require.NoError(t, err)

	err = svc.Restore(context.Background(), tn, path, false)
	assert.ErrorIs(t, err, ErrBackupVersionUnsupported)
}

func TestRestoreRejectsForeignArtifact(t *testing.T) {
	svc, dir := newTestBackupService(t)
	tn := testBackupTenant()

	other := testBackupTenant()
	other.ID = uuid.New()
	other.Subdomain = "outra-clinica"
	artifact := testArtifact(other)

	path := filepath.Join(dir, BackupFilename(other.Subdomain, time.Now(), false))
	_, err := writeArtifact(path, artifact, false)
	require.NoError(t, err)

	err = svc.Restore(context.Background(), tn, path, false)
	assert.ErrorIs(t, err, ErrBackupTenantMismatch)
}

func TestResolveArtifact(t *testing.T) {
	svc, dir := newTestBackupService(t)
	tn := testBackupTenant()

	name := BackupFilename(tn.Subdomain, time.Now(), false)
	touchBackup(t, dir, name)

	path, err := svc.ResolveArtifact(name)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, name), path)

	_, err = svc.ResolveArtifact("backup_nope_20260101-000000.json")
	assert.ErrorIs(t, err, ErrBackupNotFound)
}
