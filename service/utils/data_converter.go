/**
 * @module data_converter
 * @description 数据转换工具模块，负责单元格类型强转、时间解析、编码转换和连接串脱敏
 * @architecture 工具函数模式，提供无状态转换方法集合
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 无状态转换：输入 -> 转换逻辑 -> 输出
 * @rules
 *   - 转换失败返回错误而不是静默取零值
 *   - 时间转换按常见日期格式逐一尝试
 *   - 连接串日志输出前必须脱敏
 * @dependencies
 *   - github.com/spf13/cast: 基础类型强转
 *   - golang.org/x/text: GBK 编码转换
 * @refs
 *   - service/metrics/*: 指标评估
 *   - service/loader/*: 数据加载
 */

package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// 时间解析尝试的格式，按常见程度排序
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"2006-01-02T15:04:05",
}

// ToString 转换为字符串表示
func ToString(value interface{}) string {
	if value == nil {
		return ""
	}
	if t, ok := value.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return cast.ToString(value)
}

// ToFloat64 转换为浮点数
func ToFloat64(value interface{}) (float64, error) {
	return cast.ToFloat64E(value)
}

// ToBool 转换为布尔值，支持 True/False 等字面量
func ToBool(value interface{}) (bool, error) {
	if s, ok := value.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		}
		return false, fmt.Errorf("无法将 '%s' 转换为布尔值", s)
	}
	return cast.ToBoolE(value)
}

// ToTime 转换为时间值，字符串按预定义格式逐一尝试
func ToTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("无法将 '%s' 解析为时间", s)
	default:
		return cast.ToTimeE(value)
	}
}

// DateOnly 截断到日期，丢弃时分秒
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween 计算 to 相对 from 的天数差（按日期计算，忽略时间部分）
func DaysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}

// IsEmptyValue 判断取值是否等价于空
func IsEmptyValue(value interface{}) bool {
	if value == nil {
		return true
	}
	str := strings.TrimSpace(ToString(value))
	return str == "" || str == "null" || str == "NULL" || str == "nil"
}

// GBKToUTF8 GBK 编码转 UTF-8，用于读取旧系统导出的 CSV 文件
func GBKToUTF8(data []byte) ([]byte, error) {
	result, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("GBK 转 UTF-8 失败: %w", err)
	}
	return result, nil
}

var (
	urlCredentialPattern = regexp.MustCompile(`(://[^:/@]+):[^@]+@`)
	kvPasswordPattern    = regexp.MustCompile(`(?i)(password\s*=\s*)\S+`)
)

// MaskDSN 脱敏连接串中的凭据，支持 URL 形式和 key=value 形式
func MaskDSN(dsn string) string {
	masked := urlCredentialPattern.ReplaceAllString(dsn, "$1:****@")
	masked = kvPasswordPattern.ReplaceAllString(masked, "${1}****")
	return masked
}
