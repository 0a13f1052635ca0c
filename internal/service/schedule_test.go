package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackupSchedule(t *testing.T) {
	schedule, err := ParseBackupSchedule(`{"enabled":true,"frequency":"weekly","time":"03:00","day_of_week":1}`)
	require.NoError(t, err)

	assert.True(t, schedule.Enabled)
	assert.Equal(t, FrequencyWeekly, schedule.Frequency)
	assert.Equal(t, "03:00", schedule.Time)
	assert.Equal(t, 1, schedule.DayOfWeek)
}

func TestParseBackupScheduleMalformed(t *testing.T) {
	_, err := ParseBackupSchedule("not-json")
	assert.Error(t, err)
}

func TestComputeNextRunDaily(t *testing.T) {
	schedule := &BackupSchedule{Frequency: FrequencyDaily, Time: "03:00"}

	// 当天时刻未到
	now := time.Date(2026, 2, 10, 1, 0, 0, 0, time.UTC)
	next, err := ComputeNextRun(schedule, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 10, 3, 0, 0, 0, time.UTC), next)

	// 当天时刻已过, 顺延到明天
	now = time.Date(2026, 2, 10, 4, 0, 0, 0, time.UTC)
	next, err = ComputeNextRun(schedule, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 11, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunDailyExactMomentMovesForward(t *testing.T) {
	schedule := &BackupSchedule{Frequency: FrequencyDaily, Time: "03:00"}

	// 下一次执行严格晚于now
	now := time.Date(2026, 2, 10, 3, 0, 0, 0, time.UTC)
	next, err := ComputeNextRun(schedule, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 11, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunWeeklyWrapsAround(t *testing.T) {
	// 周一计划, 从周二计算 -> 下周一
	schedule := &BackupSchedule{Frequency: FrequencyWeekly, Time: "03:00", DayOfWeek: 1}

	tuesday := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t, time.Tuesday, tuesday.Weekday())

	next, err := ComputeNextRun(schedule, tuesday)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, time.Date(2026, 2, 16, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunWeeklySameDayBeforeTime(t *testing.T) {
	schedule := &BackupSchedule{Frequency: FrequencyWeekly, Time: "23:30", DayOfWeek: 1}

	monday := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	next, err := ComputeNextRun(schedule, monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 9, 23, 30, 0, 0, time.UTC), next)
}

func TestComputeNextRunMonthlyClampsToMonthEnd(t *testing.T) {
	// 每月31日, 从2月15日计算 -> 2月末(2026年非闰年: 2月28日)
	schedule := &BackupSchedule{Frequency: FrequencyMonthly, Time: "03:00", DayOfMonth: 31}

	now := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	next, err := ComputeNextRun(schedule, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunMonthlyLeapYear(t *testing.T) {
	schedule := &BackupSchedule{Frequency: FrequencyMonthly, Time: "03:00", DayOfMonth: 31}

	now := time.Date(2028, 2, 15, 0, 0, 0, 0, time.UTC)
	next, err := ComputeNextRun(schedule, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2028, 2, 29, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunMonthlyRollsToNextMonth(t *testing.T) {
	schedule := &BackupSchedule{Frequency: FrequencyMonthly, Time: "03:00", DayOfMonth: 10}

	now := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	next, err := ComputeNextRun(schedule, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunMonthlyDecemberRollsToJanuary(t *testing.T) {
	schedule := &BackupSchedule{Frequency: FrequencyMonthly, Time: "03:00", DayOfMonth: 5}

	now := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
	next, err := ComputeNextRun(schedule, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 5, 3, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunUnknownFrequency(t *testing.T) {
	schedule := &BackupSchedule{Frequency: "hourly", Time: "03:00"}
	_, err := ComputeNextRun(schedule, time.Now())
	assert.Error(t, err)
}

func TestComputeNextRunInvalidClock(t *testing.T) {
	for _, bad := range []string{"", "3", "25:00", "12:61", "ab:cd", "03:00 junk", "03:00:00"} {
		schedule := &BackupSchedule{Frequency: FrequencyDaily, Time: bad}
		_, err := ComputeNextRun(schedule, time.Now())
		assert.Error(t, err, "time=%q", bad)
	}
}

func TestBackupFilenameRoundTrip(t *testing.T) {
	at := time.Date(2026, 8, 29, 14, 30, 5, 0, time.Local)

	name := BackupFilename("clinica-a", at, false)
	assert.Equal(t, "backup_clinica-a_20260829-143005.json", name)

	ts, err := ParseBackupTimestamp(name)
	require.NoError(t, err)
	assert.True(t, ts.Equal(at))

	gz := BackupFilename("clinica-a", at, true)
	assert.Equal(t, "backup_clinica-a_20260829-143005.json.gz", gz)

	ts, err = ParseBackupTimestamp(gz)
	require.NoError(t, err)
	assert.True(t, ts.Equal(at))
}

func TestParseBackupTimestampMalformed(t *testing.T) {
	for _, bad := range []string{
		"backup.json",
		"backup_clinica-a_.json",
		"backup_clinica-a_notatimestamp.json",
		"random-file.txt",
	} {
		_, err := ParseBackupTimestamp(bad)
		assert.Error(t, err, "filename=%q", bad)
	}
}
