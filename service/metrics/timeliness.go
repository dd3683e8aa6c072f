/*
 * @module service/metrics/timeliness
 * @description 及时性指标，基于参考日期检查时间列的数据年龄与新鲜度
 * @architecture 策略模式 - 固定参考日期保证可复现评估
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 检查注册 -> 按列解析时间值 -> 年龄计算 -> 列级评分 -> 均值聚合
 * @rules
 *   - 参考日期在构造时固定，默认为当天，历史数据集测试必须显式传入
 *   - 无法解析为时间的列整列判为不及时（得分 0），不中断指标
 *   - 同一列同时配置 age 和 freshness 时取较严格（得分较低）的结果
 * @dependencies service/models, service/utils, time
 * @refs metric.go
 */

package metrics

import (
	"fmt"
	"log/slog"
	"time"

	"dataquality-service/service/models"
	"dataquality-service/service/utils"
)

const (
	checkTypeAge       = "age"
	checkTypeFreshness = "freshness"
)

type timelinessCheck struct {
	maxAgeDays     int
	warningAgeDays int
}

// TimelinessMetric 及时性指标
type TimelinessMetric struct {
	name          string
	thresholds    Thresholds
	referenceDate time.Time

	ageOrder        []string
	ageChecks       map[string]timelinessCheck
	freshnessOrder  []string
	freshnessChecks map[string]timelinessCheck
}

// NewTimelinessMetric 创建及时性指标，参考日期取当天，默认阈值 0.9/0.7
func NewTimelinessMetric(name string) *TimelinessMetric {
	return newTimelinessMetric(name, defaultTimelinessThresholds, time.Now())
}

// NewTimelinessMetricWithReference 创建固定参考日期的及时性指标
func NewTimelinessMetricWithReference(name string, referenceDate time.Time) *TimelinessMetric {
	return newTimelinessMetric(name, defaultTimelinessThresholds, referenceDate)
}

// NewTimelinessMetricWithThresholds 创建自定义阈值和参考日期的及时性指标
func NewTimelinessMetricWithThresholds(name string, warning, failure float64, referenceDate time.Time) (*TimelinessMetric, error) {
	t, err := NewThresholds(warning, failure)
	if err != nil {
		return nil, err
	}
	return newTimelinessMetric(name, t, referenceDate), nil
}

func newTimelinessMetric(name string, t Thresholds, referenceDate time.Time) *TimelinessMetric {
	m := &TimelinessMetric{
		name:          name,
		thresholds:    t,
		referenceDate: utils.DateOnly(referenceDate),
	}
	m.Clear()
	return m
}

func (m *TimelinessMetric) Name() string {
	return m.name
}

// ReferenceDate 返回该指标使用的参考日期
func (m *TimelinessMetric) ReferenceDate() time.Time {
	return m.referenceDate
}

// AddAgeCheck 注册数据年龄检查，warningAgeDays 不大于 0 时默认为 maxAgeDays 的一半
func (m *TimelinessMetric) AddAgeCheck(column string, maxAgeDays, warningAgeDays int) error {
	return m.addCheck(m.ageChecks, &m.ageOrder, column, maxAgeDays, warningAgeDays)
}

// AddFreshnessCheck 注册数据新鲜度检查，参数语义与年龄检查相同
func (m *TimelinessMetric) AddFreshnessCheck(column string, maxAgeDays, warningAgeDays int) error {
	return m.addCheck(m.freshnessChecks, &m.freshnessOrder, column, maxAgeDays, warningAgeDays)
}

func (m *TimelinessMetric) addCheck(checks map[string]timelinessCheck, order *[]string, column string, maxAgeDays, warningAgeDays int) error {
	if maxAgeDays <= 0 {
		return models.NewConfigurationError("maxAgeDays 必须为正整数，当前为 %d", maxAgeDays)
	}
	if warningAgeDays <= 0 {
		warningAgeDays = maxAgeDays / 2
	}
	if _, exists := checks[column]; !exists {
		*order = append(*order, column)
	}
	checks[column] = timelinessCheck{maxAgeDays: maxAgeDays, warningAgeDays: warningAgeDays}
	slog.Debug("注册及时性检查", "metric", m.name, "column", column, "max_age_days", maxAgeDays)
	return nil
}

func (m *TimelinessMetric) evaluateCheck(ds *models.Dataset, column string, check timelinessCheck, checkType string) *models.TimelinessDetail {
	label := "年龄检查"
	if checkType == checkTypeFreshness {
		label = "新鲜度检查"
	}

	col, ok := ds.Column(column)
	if !ok {
		return &models.TimelinessDetail{
			TimelinessScore: 0,
			Status:          models.StatusFailed,
			Message:         fmt.Sprintf("列 '%s' 不存在", column),
			CheckType:       checkType,
		}
	}

	var nonMissing []interface{}
	for _, v := range col.Values {
		if !models.IsMissing(v) {
			nonMissing = append(nonMissing, v)
		}
	}
	// 整列缺失时该检查视为满足
	if len(nonMissing) == 0 {
		return &models.TimelinessDetail{
			TimelinessScore: 1.0,
			Status:          models.StatusPassed,
			Message:         fmt.Sprintf("列 '%s' 没有非空值", column),
			CheckType:       checkType,
			MaxAgeDays:      check.maxAgeDays,
			WarningAgeDays:  check.warningAgeDays,
		}
	}

	timely := 0
	for _, v := range nonMissing {
		t, err := utils.ToTime(v)
		if err != nil {
			// 解析失败使整列判为不及时，而不是中断指标
			return &models.TimelinessDetail{
				Timely:          0,
				Untimely:        len(nonMissing),
				TimelinessScore: 0,
				Status:          models.StatusFailed,
				Message:         fmt.Sprintf("列 '%s' 无法解析为时间: %v", column, err),
				CheckType:       checkType,
				MaxAgeDays:      check.maxAgeDays,
				WarningAgeDays:  check.warningAgeDays,
			}
		}
		ageDays := utils.DaysBetween(t, m.referenceDate)
		if ageDays <= check.maxAgeDays {
			timely++
		}
	}

	untimely := len(nonMissing) - timely
	score := float64(timely) / float64(len(nonMissing))

	return &models.TimelinessDetail{
		Timely:          timely,
		Untimely:        untimely,
		TimelinessScore: score,
		MaxAgeDays:      check.maxAgeDays,
		WarningAgeDays:  check.warningAgeDays,
		Status:          m.thresholds.Classify(score),
		Message: fmt.Sprintf("%s: %d 个值中 %d 个超过最大年龄 %d 天",
			label, len(nonMissing), untimely, check.maxAgeDays),
		CheckType: checkType,
	}
}

// Evaluate 评估及时性：整体分数为所有列级得分的均值
func (m *TimelinessMetric) Evaluate(ds *models.Dataset) *models.MetricResult {
	if ds.IsEmpty() {
		result := emptyDatasetResult()
		result.Details = map[string]interface{}{}
		return result
	}

	if len(m.ageChecks)+len(m.freshnessChecks) == 0 {
		return &models.MetricResult{
			Score:   1.0,
			Status:  models.StatusPassed,
			Message: "未配置及时性检查",
			Details: map[string]interface{}{},
		}
	}

	details := make(map[string]*models.TimelinessDetail)
	for _, column := range m.ageOrder {
		details[column] = m.evaluateCheck(ds, column, m.ageChecks[column], checkTypeAge)
	}
	for _, column := range m.freshnessOrder {
		fresh := m.evaluateCheck(ds, column, m.freshnessChecks[column], checkTypeFreshness)
		existing, ok := details[column]
		// 同一列同时配置两类检查时取较严格的结果
		if !ok || fresh.TimelinessScore < existing.TimelinessScore {
			details[column] = fresh
		}
	}

	scoreSum := 0.0
	totalUntimely := 0
	totalChecked := 0
	resultDetails := make(map[string]interface{}, len(details))
	for column, detail := range details {
		scoreSum += detail.TimelinessScore
		totalUntimely += detail.Untimely
		totalChecked += detail.Timely + detail.Untimely
		resultDetails[column] = detail
	}
	overall := scoreSum / float64(len(details))

	message := "及时性检查没有适用的数据"
	if totalChecked > 0 {
		message = fmt.Sprintf("%d 项及时性检查中 %d 项未通过（及时率 %.1f%%）",
			totalChecked, totalUntimely, overall*100)
	}

	slog.Debug("及时性评估完成", "metric", m.name, "score", overall,
		"reference_date", m.referenceDate.Format("2006-01-02"))

	return &models.MetricResult{
		Score:   overall,
		Status:  m.thresholds.Classify(overall),
		Message: message,
		Details: resultDetails,
	}
}

// Clear 清空所有已注册的检查
func (m *TimelinessMetric) Clear() {
	m.ageOrder = nil
	m.ageChecks = make(map[string]timelinessCheck)
	m.freshnessOrder = nil
	m.freshnessChecks = make(map[string]timelinessCheck)
}
