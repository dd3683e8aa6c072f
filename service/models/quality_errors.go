/*
 * @module service/models/quality_errors
 * @description 数据质量核心的错误分类，区分配置错误、前置条件错误和数据源连接错误
 * @architecture 数据模型层 - 错误值对象
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 规则注册/评分前置检查 -> 同步抛出；指标评估失败 -> 就地降级不抛出
 * @rules 配置错误在 add_* 调用时同步返回，绝不推迟到评估阶段
 * @dependencies errors, fmt
 * @refs service/metrics/, service/grader/, service/analyzer/
 */

package models

import (
	"errors"
	"fmt"
)

// Grader/Analyzer 前置条件错误
var (
	ErrNotConnected        = errors.New("未连接数据源，请先调用 Connect")
	ErrNoActiveUnit        = errors.New("未选择活动单元，请先调用 SetActiveUnit")
	ErrNoMetricsConfigured = errors.New("未配置任何指标")
)

// ConfigurationError 规则配置错误：重复规则名、缺少必需参数、非法正则或操作符等
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "配置错误: " + e.Reason
}

// NewConfigurationError 创建配置错误
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError 判断是否为配置错误
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// SourceConnectionError 数据源连接失败，不做重试，直接向调用方传播
type SourceConnectionError struct {
	Source string
	Err    error
}

func (e *SourceConnectionError) Error() string {
	return fmt.Sprintf("连接数据源 '%s' 失败: %v", e.Source, e.Err)
}

func (e *SourceConnectionError) Unwrap() error {
	return e.Err
}
