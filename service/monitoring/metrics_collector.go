/*
 * @module service/monitoring/metrics_collector
 * @description 质量评估的 Prometheus 指标收集器
 * @architecture 监控层 - 收集器模式
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 评估/评分完成 -> 记录计数、得分和耗时 -> /metrics 暴露
 * @rules 指标注册只执行一次，重复记录仅更新时序值
 * @dependencies github.com/prometheus/client_golang
 * @refs quality_monitor.go, api/controllers/quality_controller.go
 */

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 质量评估监控指标收集器
type Collector struct {
	evaluations   *prometheus.CounterVec
	metricScore   *prometheus.GaugeVec
	gradeDuration prometheus.Histogram
}

// NewCollector 创建收集器并向给定注册表注册指标
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dq_metric_evaluations_total",
			Help: "按指标和状态统计的质量评估次数",
		}, []string{"metric", "status"}),
		metricScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dq_metric_score",
			Help: "各质量指标最近一次评估得分",
		}, []string{"metric"}),
		gradeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dq_grade_duration_seconds",
			Help:    "一次完整评分运行的耗时分布",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// NewDefaultCollector 使用全局默认注册表创建收集器
func NewDefaultCollector() *Collector {
	return NewCollector(prometheus.DefaultRegisterer)
}

// RecordEvaluation 记录单个指标的评估结果
func (c *Collector) RecordEvaluation(metric string, score float64, status string) {
	c.evaluations.WithLabelValues(metric, status).Inc()
	c.metricScore.WithLabelValues(metric).Set(score)
}

// RecordGradeDuration 记录一次评分运行的耗时
func (c *Collector) RecordGradeDuration(seconds float64) {
	c.gradeDuration.Observe(seconds)
}
