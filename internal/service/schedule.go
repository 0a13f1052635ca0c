package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// BackupSchedule 租户备份计划, 以json存储在tenant_configurations的backup_schedule键下
type BackupSchedule struct {
	Enabled    bool   `json:"enabled"`
	Frequency  string `json:"frequency"`              // daily / weekly / monthly
	Time       string `json:"time"`                   // "HH:MM"
	DayOfWeek  int    `json:"day_of_week,omitempty"`  // 0=Sunday .. 6=Saturday
	DayOfMonth int    `json:"day_of_month,omitempty"` // 1..31, 超出目标月份时收敛到月末
}

const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// ParseBackupSchedule 解析配置值中的备份计划
func ParseBackupSchedule(value string) (*BackupSchedule, error) {
	var schedule BackupSchedule
	if err := json.Unmarshal([]byte(value), &schedule); err != nil {
		return nil, fmt.Errorf("invalid backup schedule: %w", err)
	}
	return &schedule, nil
}

// ComputeNextRun 计算严格晚于now的下一次执行时间 - 纯函数
// weekly: 本周目标时刻已过则顺延到下周
// monthly: day_of_month超出目标月份时收敛到月末(2月31日->2月末), 当月时刻已过则顺延到下月
func ComputeNextRun(schedule *BackupSchedule, now time.Time) (time.Time, error) {
	hour, minute, err := parseClock(schedule.Time)
	if err != nil {
		return time.Time{}, err
	}

	switch schedule.Frequency {
	case FrequencyDaily:
		candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate, nil

	case FrequencyWeekly:
		daysAhead := (schedule.DayOfWeek - int(now.Weekday()) + 7) % 7
		candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()).
			AddDate(0, 0, daysAhead)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		return candidate, nil

	case FrequencyMonthly:
		candidate := monthlyCandidate(now.Year(), now.Month(), schedule.DayOfMonth, hour, minute, now.Location())
		if !candidate.After(now) {
			year, month := now.Year(), now.Month()
			if month == time.December {
				year, month = year+1, time.January
			} else {
				month++
			}
			candidate = monthlyCandidate(year, month, schedule.DayOfMonth, hour, minute, now.Location())
		}
		return candidate, nil

	default:
		return time.Time{}, fmt.Errorf("unknown schedule frequency: %s", schedule.Frequency)
	}
}

// monthlyCandidate 目标月份内的执行时刻, 日号收敛到该月最后一天
func monthlyCandidate(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	last := lastDayOfMonth(year, month)
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func lastDayOfMonth(year int, month time.Month) int {
	// 下月1号减一天
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid schedule time %q, expected HH:MM: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// backupTimestampLayout 备份文件名中的时间戳约定
const backupTimestampLayout = "20060102-150405"

// ParseBackupTimestamp 从备份文件名解析时间戳
// 约定: backup_<subdomain>_<20060102-150405>.json[.gz]
func ParseBackupTimestamp(filename string) (time.Time, error) {
	name := filename
	name = strings.TrimSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".json")

	idx := strings.LastIndex(name, "_")
	if idx < 0 || idx == len(name)-1 {
		return time.Time{}, fmt.Errorf("filename %q does not match backup naming convention", filename)
	}

	ts, err := time.ParseInLocation(backupTimestampLayout, name[idx+1:], time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("filename %q has malformed timestamp: %w", filename, err)
	}
	return ts, nil
}

// BackupFilename 按约定生成备份文件名
func BackupFilename(subdomain string, at time.Time, compressed bool) string {
	name := fmt.Sprintf("backup_%s_%s.json", subdomain, at.Format(backupTimestampLayout))
	if compressed {
		name += ".gz"
	}
	return name
}
