/*
 * @module service/analyzer/analyzer
 * @description 质量分析器，编排指标子集的运行、隔离单指标失败并聚合总分
 * @architecture 分层架构 - 业务服务层，编排者模式
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 指标集合构建 -> 子集解析 -> 逐指标评估（失败隔离） -> 总分聚合 -> 建议生成
 * @rules
 *   - 未知指标名记录日志后跳过，解析结果为空时返回前置条件错误
 *   - 单个指标 panic 转为降级结果，绝不中断整体分析
 *   - 总分只取有效指标得分的均值，总体状态用固定阈值 0.95/0.8 分类
 *   - 结果映射按调用方指定顺序构建，保证聚合顺序确定
 * @dependencies service/metrics, service/models, github.com/google/uuid
 * @refs recommendations.go, rule_config.go
 */

package analyzer

import (
	"fmt"
	"log/slog"
	"time"

	"dataquality-service/service/metrics"
	"dataquality-service/service/models"

	"github.com/google/uuid"
)

// 总体状态使用与单指标不同的固定阈值
const (
	overallPassedThreshold  = 0.95
	overallWarningThreshold = 0.8
)

// Analyzer 质量分析器，持有命名的指标集合
type Analyzer struct {
	metricOrder []string
	metrics     map[string]metrics.Metric
	lastResults *models.AnalysisResult
}

// NewAnalyzer 创建带默认四项指标（完整性、准确性、一致性、及时性）的分析器
func NewAnalyzer() *Analyzer {
	a := &Analyzer{metrics: make(map[string]metrics.Metric)}
	a.AddMetric(metrics.NewCompletenessMetric("completeness"))
	a.AddMetric(metrics.NewAccuracyMetric("accuracy"))
	a.AddMetric(metrics.NewConsistencyMetric("consistency"))
	a.AddMetric(metrics.NewTimelinessMetric("timeliness"))
	return a
}

// NewEmptyAnalyzer 创建不带任何指标的分析器
func NewEmptyAnalyzer() *Analyzer {
	return &Analyzer{metrics: make(map[string]metrics.Metric)}
}

// AddMetric 添加指标，同名指标被替换
func (a *Analyzer) AddMetric(m metrics.Metric) {
	name := m.Name()
	if _, exists := a.metrics[name]; !exists {
		a.metricOrder = append(a.metricOrder, name)
	}
	a.metrics[name] = m
	slog.Debug("分析器添加指标", "metric", name)
}

// Metric 按名称获取指标实例，便于调用方配置规则
func (a *Analyzer) Metric(name string) (metrics.Metric, bool) {
	m, ok := a.metrics[name]
	return m, ok
}

// MetricNames 按添加顺序返回所有指标名
func (a *Analyzer) MetricNames() []string {
	names := make([]string, len(a.metricOrder))
	copy(names, a.metricOrder)
	return names
}

// LastResults 返回最近一次分析结果
func (a *Analyzer) LastResults() *models.AnalysisResult {
	return a.lastResults
}

// resolveMetrics 解析要运行的指标子集，未知名称跳过并记录
func (a *Analyzer) resolveMetrics(requested []string) []string {
	if requested == nil {
		return a.metricOrder
	}
	resolved := make([]string, 0, len(requested))
	for _, name := range requested {
		if _, ok := a.metrics[name]; ok {
			resolved = append(resolved, name)
		} else {
			slog.Warn("请求的指标不存在，已跳过", "metric", name)
		}
	}
	return resolved
}

// evaluateSafely 运行单个指标并隔离 panic，失败转为降级结果
func evaluateSafely(m metrics.Metric, ds *models.Dataset) (result *models.MetricResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("指标评估失败", "metric", m.Name(), "error", r)
			result = &models.MetricResult{
				Score:  0,
				Status: models.StatusFailed,
				Error:  fmt.Sprintf("%v", r),
			}
		}
	}()
	return m.Evaluate(ds)
}

// Analyze 对数据集运行指定指标子集并聚合结果
// metricNames 为 nil 时运行全部指标；解析后为空时返回 ErrNoMetricsConfigured
func (a *Analyzer) Analyze(ds *models.Dataset, metricNames []string) (*models.AnalysisResult, error) {
	startTime := time.Now()

	toRun := a.resolveMetrics(metricNames)
	if len(toRun) == 0 {
		return nil, models.ErrNoMetricsConfigured
	}

	slog.Info("开始质量分析", "rows", ds.RowCount(), "columns", ds.ColumnCount(),
		"metrics", len(toRun))

	results := make(map[string]*models.MetricResult, len(toRun))
	for _, name := range toRun {
		metricStart := time.Now()
		results[name] = evaluateSafely(a.metrics[name], ds)
		slog.Info("指标评估完成", "metric", name,
			"score", results[name].Score,
			"duration", time.Since(metricStart).Seconds())
	}

	overallScore, overallStatus := aggregateResults(results)
	duration := time.Since(startTime).Seconds()

	analysis := &models.AnalysisResult{
		AnalysisID:      uuid.New().String(),
		OverallScore:    overallScore,
		OverallStatus:   overallStatus,
		Metrics:         results,
		Recommendations: generateRecommendations(results, ds),
		AnalysisTime:    duration,
		AnalysisDate:    startTime.Format(time.RFC3339),
	}
	a.lastResults = analysis

	slog.Info("质量分析完成", "overall_score", overallScore,
		"overall_status", overallStatus, "duration", duration)

	return analysis, nil
}

// aggregateResults 聚合总分：排除降级结果，均值后按固定阈值分类
func aggregateResults(results map[string]*models.MetricResult) (float64, models.MetricStatus) {
	sum := 0.0
	count := 0
	for _, r := range results {
		if r.Error != "" {
			continue
		}
		if r.Score < 0 || r.Score > 1 {
			continue
		}
		sum += r.Score
		count++
	}

	score := 0.0
	if count > 0 {
		score = sum / float64(count)
	}

	switch {
	case score >= overallPassedThreshold:
		return score, models.StatusPassed
	case score >= overallWarningThreshold:
		return score, models.StatusWarning
	default:
		return score, models.StatusFailed
	}
}
