/*
 * @module service/metrics/metric
 * @description 质量指标接口与阈值状态分类，所有具体指标共享的契约
 * @architecture 策略模式 - 每个指标独立实现评估策略
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 规则配置 -> Evaluate 只读评估 -> 结果构建；Clear 重置规则
 * @rules Evaluate 对合法数据集绝不 panic，空数据集返回降级结果；warning 阈值必须大于 failure 阈值
 * @dependencies service/models
 * @refs completeness.go, accuracy.go, consistency.go, timeliness.go
 */

package metrics

import (
	"dataquality-service/service/models"
)

// Metric 质量指标契约
// Evaluate 对数据集只读，规则配置必须在首次评估前完成，
// 同一实例的配置与评估不允许并发交错
type Metric interface {
	Name() string
	Evaluate(ds *models.Dataset) *models.MetricResult
	Clear()
}

// Thresholds 指标自有的状态分类阈值
type Thresholds struct {
	Warning float64
	Failure float64
}

// NewThresholds 创建阈值配置，warning 必须大于 failure 且均在 [0,1] 内
func NewThresholds(warning, failure float64) (Thresholds, error) {
	if warning < 0 || warning > 1 || failure < 0 || failure > 1 {
		return Thresholds{}, models.NewConfigurationError(
			"阈值必须在 [0,1] 范围内: warning=%v failure=%v", warning, failure)
	}
	if warning <= failure {
		return Thresholds{}, models.NewConfigurationError(
			"warning 阈值 %v 必须大于 failure 阈值 %v", warning, failure)
	}
	return Thresholds{Warning: warning, Failure: failure}, nil
}

// Classify 按阈值将分数归类为 passed/warning/failed
func (t Thresholds) Classify(score float64) models.MetricStatus {
	switch {
	case score >= t.Warning:
		return models.StatusPassed
	case score >= t.Failure:
		return models.StatusWarning
	default:
		return models.StatusFailed
	}
}

// 各指标的默认阈值
var (
	defaultCompletenessThresholds = Thresholds{Warning: 0.8, Failure: 0.6}
	defaultAccuracyThresholds     = Thresholds{Warning: 0.9, Failure: 0.7}
	defaultConsistencyThresholds  = Thresholds{Warning: 0.9, Failure: 0.7}
	defaultTimelinessThresholds   = Thresholds{Warning: 0.9, Failure: 0.7}
)

// emptyDatasetResult 空数据集的统一降级结果
func emptyDatasetResult() *models.MetricResult {
	return &models.MetricResult{
		Score:   0,
		Status:  models.StatusFailed,
		Message: "没有可评估的数据",
	}
}
