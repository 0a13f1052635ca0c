package utils

import "strconv"

// ParseInt 解析整数，如果解析失败则返回默认值
func ParseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return result
}

