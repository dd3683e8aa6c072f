/*
 * @module service/grader/grader
 * @description 数据源评分器抽象：连接管理、指标注册与共享的评分执行逻辑
 * @architecture 模板方法模式 - BaseGrader 承载共享状态，具体评分器实现数据源接入
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow disconnected -> connect -> connected -> grade* -> close -> disconnected
 * @rules
 *   - 指标名在同一评分器内唯一，重复注册返回配置错误
 *   - grade 前置条件：已连接、已选活动单元、至少配置一个指标
 *   - 单个指标失败转为降级结果，不中断整体评分
 * @dependencies service/metrics, service/models, github.com/google/uuid
 * @refs excel_grader.go, database_grader.go
 */

package grader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dataquality-service/service/metrics"
	"dataquality-service/service/models"

	"github.com/google/uuid"
)

// Grader 数据源评分器契约
type Grader interface {
	// Connect 连接数据源，先重置全部既有状态，失败时返回 SourceConnectionError
	Connect(ctx context.Context, source string) error
	// GetAvailableUnits 枚举可寻址单元（工作表/数据表）
	GetAvailableUnits() ([]string, error)
	// SetActiveUnit 选择活动单元，单元不存在时返回错误
	SetActiveUnit(name string) error
	// Grade 对活动单元运行指标并附加来源与计时元数据
	Grade(ctx context.Context, metricNames []string) (*models.GradeResult, error)
	// Close 释放数据源连接
	Close() error

	// AddMetric 注册质量指标，名称重复时返回配置错误
	AddMetric(name string, m metrics.Metric) error
	// RemoveMetric 按名称移除已注册指标
	RemoveMetric(name string) error
	// GetAvailableMetrics 按注册顺序返回全部指标名
	GetAvailableMetrics() []string
	// GetSummary 返回评分器的状态摘要
	GetSummary(graderType string) map[string]interface{}
}

// BaseGrader 各评分器共享的指标注册与运行状态
type BaseGrader struct {
	name        string
	metricOrder []string
	metrics     map[string]metrics.Metric
	connected   bool
	lastResults map[string]*models.MetricResult
	lastRunTime time.Time
}

// NewBaseGrader 创建基础评分器，名称为空时生成随机名
func NewBaseGrader(name string) *BaseGrader {
	if name == "" {
		name = "grader_" + uuid.New().String()[:8]
	}
	return &BaseGrader{
		name:    name,
		metrics: make(map[string]metrics.Metric),
	}
}

// Name 评分器名称
func (g *BaseGrader) Name() string {
	return g.name
}

// IsConnected 是否已连接数据源
func (g *BaseGrader) IsConnected() bool {
	return g.connected
}

func (g *BaseGrader) setConnected(connected bool) {
	g.connected = connected
}

// AddMetric 注册指标，重名返回配置错误
func (g *BaseGrader) AddMetric(name string, m metrics.Metric) error {
	if _, exists := g.metrics[name]; exists {
		return models.NewConfigurationError("评分器中已存在名为 '%s' 的指标", name)
	}
	g.metricOrder = append(g.metricOrder, name)
	g.metrics[name] = m
	slog.Debug("评分器添加指标", "grader", g.name, "metric", name)
	return nil
}

// RemoveMetric 移除指标，不存在时返回错误
func (g *BaseGrader) RemoveMetric(name string) error {
	if _, exists := g.metrics[name]; !exists {
		return fmt.Errorf("评分器中不存在名为 '%s' 的指标", name)
	}
	delete(g.metrics, name)
	for i, n := range g.metricOrder {
		if n == name {
			g.metricOrder = append(g.metricOrder[:i], g.metricOrder[i+1:]...)
			break
		}
	}
	return nil
}

// GetAvailableMetrics 按注册顺序返回指标名
func (g *BaseGrader) GetAvailableMetrics() []string {
	names := make([]string, len(g.metricOrder))
	copy(names, g.metricOrder)
	return names
}

// LastRunTime 最近一次评分时间
func (g *BaseGrader) LastRunTime() time.Time {
	return g.lastRunTime
}

// prepareForGrading 校验前置条件并解析要运行的指标
func (g *BaseGrader) prepareForGrading(metricNames []string) ([]string, error) {
	if !g.connected {
		return nil, models.ErrNotConnected
	}
	if len(g.metrics) == 0 {
		return nil, models.ErrNoMetricsConfigured
	}
	if metricNames == nil {
		return g.GetAvailableMetrics(), nil
	}

	resolved := make([]string, 0, len(metricNames))
	for _, name := range metricNames {
		if _, ok := g.metrics[name]; ok {
			resolved = append(resolved, name)
		} else {
			slog.Warn("评分器中不存在请求的指标，已跳过", "grader", g.name, "metric", name)
		}
	}
	if len(resolved) == 0 {
		return nil, models.ErrNoMetricsConfigured
	}
	return resolved, nil
}

// runMetrics 按指定顺序运行指标，单指标 panic 转为降级结果
func (g *BaseGrader) runMetrics(ds *models.Dataset, toRun []string) map[string]*models.MetricResult {
	results := make(map[string]*models.MetricResult, len(toRun))
	for _, name := range toRun {
		results[name] = g.evaluateSafely(name, ds)
	}
	return results
}

func (g *BaseGrader) evaluateSafely(name string, ds *models.Dataset) (result *models.MetricResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("指标评估失败", "grader", g.name, "metric", name, "error", r)
			result = &models.MetricResult{
				Score:  0,
				Status: models.StatusFailed,
				Error:  fmt.Sprintf("%v", r),
			}
		}
	}()
	return g.metrics[name].Evaluate(ds)
}

// storeResults 记录最近一次评分结果和时间
func (g *BaseGrader) storeResults(results map[string]*models.MetricResult) {
	g.lastResults = results
	g.lastRunTime = time.Now()
	slog.Info("评分完成", "grader", g.name, "metrics", len(results))
}

// resetState 清空连接相关状态，供 Connect 在建立新连接前调用
func (g *BaseGrader) resetState() {
	g.connected = false
	g.lastResults = nil
}

// GetSummary 评分器状态与最近结果摘要
func (g *BaseGrader) GetSummary(graderType string) map[string]interface{} {
	summary := map[string]interface{}{
		"name":               g.name,
		"type":               graderType,
		"connected":          g.connected,
		"metrics_configured": len(g.metrics),
		"has_results":        g.lastResults != nil,
	}
	if !g.lastRunTime.IsZero() {
		summary["last_run"] = g.lastRunTime.Format(time.RFC3339)
	}
	if len(g.lastResults) > 0 {
		sum := 0.0
		count := 0
		for _, r := range g.lastResults {
			if r.Error == "" {
				sum += r.Score
				count++
			}
		}
		summary["metrics_run"] = len(g.lastResults)
		if count > 0 {
			summary["avg_score"] = sum / float64(count)
		}
	}
	return summary
}
