/*
 * @module service/metrics/completeness
 * @description 完整性指标，统计整体与单列的非缺失比例
 * @architecture 策略模式 - 无规则配置的纯统计指标
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 数据集读取 -> 缺失统计 -> 整体与单列评分 -> 状态分类
 * @rules 空数据集评分为 0 且状态为 failed（而非 skipped）
 * @dependencies service/models, log/slog
 * @refs metric.go
 */

package metrics

import (
	"fmt"
	"log/slog"

	"dataquality-service/service/models"
)

// CompletenessMetric 完整性指标
type CompletenessMetric struct {
	name       string
	thresholds Thresholds
}

// NewCompletenessMetric 创建完整性指标，默认阈值 0.8/0.6
func NewCompletenessMetric(name string) *CompletenessMetric {
	return &CompletenessMetric{name: name, thresholds: defaultCompletenessThresholds}
}

// NewCompletenessMetricWithThresholds 创建自定义阈值的完整性指标
func NewCompletenessMetricWithThresholds(name string, warning, failure float64) (*CompletenessMetric, error) {
	t, err := NewThresholds(warning, failure)
	if err != nil {
		return nil, err
	}
	return &CompletenessMetric{name: name, thresholds: t}, nil
}

func (m *CompletenessMetric) Name() string {
	return m.name
}

// Evaluate 评估完整性：整体分数 = (总单元格数-缺失数)/总单元格数
func (m *CompletenessMetric) Evaluate(ds *models.Dataset) *models.MetricResult {
	if ds.IsEmpty() {
		result := emptyDatasetResult()
		result.Columns = map[string]*models.ColumnDetail{}
		return result
	}

	totalCells := ds.TotalCells()
	missingCells := ds.MissingCells()
	overall := float64(totalCells-missingCells) / float64(totalCells)

	columns := make(map[string]*models.ColumnDetail, ds.ColumnCount())
	for _, col := range ds.Columns() {
		total := len(col.Values)
		missing := col.MissingCount()
		completeness := float64(total-missing) / float64(total)

		message := "所有值均存在"
		if missing > 0 {
			message = fmt.Sprintf("%d 个值中缺失 %d 个", total, missing)
		}

		columns[col.Name] = &models.ColumnDetail{
			Completeness: completeness,
			Status:       m.thresholds.Classify(completeness),
			Message:      message,
			MissingCount: missing,
			TotalCount:   total,
		}
	}

	message := "所有值均存在"
	if missingCells > 0 {
		message = fmt.Sprintf("%d 个单元格中缺失 %d 个（完整度 %.1f%%）",
			totalCells, missingCells, overall*100)
	}

	slog.Debug("完整性评估完成", "metric", m.name, "score", overall)

	return &models.MetricResult{
		Score:   overall,
		Status:  m.thresholds.Classify(overall),
		Message: message,
		Columns: columns,
	}
}

// Clear 完整性指标没有规则配置，无需清理
func (m *CompletenessMetric) Clear() {}
