/*
 * @module service/metrics/accuracy
 * @description 准确性指标，对列值执行范围、正则模式和枚举值三类检查
 * @architecture 策略模式 - 规则注册后批量评估
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 规则注册（同步校验） -> 按列累计有效/无效计数 -> 整体评分
 * @rules
 *   - 正则模式采用全串匹配语义
 *   - 单项检查出错（列不存在、类型不符）记录在该列消息中，不中断评估
 *   - 配置错误在注册时同步返回
 * @dependencies service/models, service/utils, regexp
 * @refs metric.go
 */

package metrics

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"dataquality-service/service/models"
	"dataquality-service/service/utils"
)

type rangeCheck struct {
	min *float64
	max *float64
}

type patternCheck struct {
	raw     string
	pattern *regexp.Regexp
}

type categoricalCheck struct {
	allowed map[string]struct{}
	preview []interface{}
}

// AccuracyMetric 准确性指标
type AccuracyMetric struct {
	name       string
	thresholds Thresholds

	rangeOrder       []string
	rangeChecks      map[string]rangeCheck
	patternOrder     []string
	patternChecks    map[string]patternCheck
	categoricalOrder []string
	categoricals     map[string]categoricalCheck
}

// NewAccuracyMetric 创建准确性指标，默认阈值 0.9/0.7
func NewAccuracyMetric(name string) *AccuracyMetric {
	m := &AccuracyMetric{name: name, thresholds: defaultAccuracyThresholds}
	m.Clear()
	return m
}

// NewAccuracyMetricWithThresholds 创建自定义阈值的准确性指标
func NewAccuracyMetricWithThresholds(name string, warning, failure float64) (*AccuracyMetric, error) {
	t, err := NewThresholds(warning, failure)
	if err != nil {
		return nil, err
	}
	m := &AccuracyMetric{name: name, thresholds: t}
	m.Clear()
	return m, nil
}

func (m *AccuracyMetric) Name() string {
	return m.name
}

// AddRangeCheck 注册数值范围检查，min/max 至少给定其一
func (m *AccuracyMetric) AddRangeCheck(column string, min, max *float64) error {
	if min == nil && max == nil {
		return models.NewConfigurationError("范围检查必须至少指定 min 或 max 之一")
	}
	if _, exists := m.rangeChecks[column]; !exists {
		m.rangeOrder = append(m.rangeOrder, column)
	}
	m.rangeChecks[column] = rangeCheck{min: min, max: max}
	slog.Debug("注册范围检查", "metric", m.name, "column", column)
	return nil
}

// AddPatternCheck 注册正则模式检查，模式在注册时编译校验
func (m *AccuracyMetric) AddPatternCheck(column, pattern string) error {
	// 全串匹配语义：包裹为 \A(?:p)\z
	compiled, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return models.NewConfigurationError("非法的正则表达式 '%s': %v", pattern, err)
	}
	if _, exists := m.patternChecks[column]; !exists {
		m.patternOrder = append(m.patternOrder, column)
	}
	m.patternChecks[column] = patternCheck{raw: pattern, pattern: compiled}
	slog.Debug("注册模式检查", "metric", m.name, "column", column, "pattern", pattern)
	return nil
}

// AddCategoricalCheck 注册枚举值检查，允许值集合不能为空
func (m *AccuracyMetric) AddCategoricalCheck(column string, allowedValues []interface{}) error {
	if len(allowedValues) == 0 {
		return models.NewConfigurationError("枚举检查的允许值集合不能为空")
	}
	allowed := make(map[string]struct{}, len(allowedValues))
	for _, v := range allowedValues {
		allowed[utils.ToString(v)] = struct{}{}
	}
	preview := allowedValues
	if len(preview) > 5 {
		preview = preview[:5]
	}
	if _, exists := m.categoricals[column]; !exists {
		m.categoricalOrder = append(m.categoricalOrder, column)
	}
	m.categoricals[column] = categoricalCheck{allowed: allowed, preview: preview}
	slog.Debug("注册枚举检查", "metric", m.name, "column", column, "allowed", len(allowedValues))
	return nil
}

type checkOutcome struct {
	valid   int
	invalid int
	message string
}

func (m *AccuracyMetric) evaluateRangeCheck(ds *models.Dataset, column string, check rangeCheck) checkOutcome {
	col, ok := ds.Column(column)
	if !ok {
		return checkOutcome{message: fmt.Sprintf("列 '%s' 不存在", column)}
	}

	nonMissing := 0
	invalid := 0
	typeErrors := 0
	for _, v := range col.Values {
		if models.IsMissing(v) {
			continue
		}
		nonMissing++
		f, err := utils.ToFloat64(v)
		if err != nil {
			typeErrors++
			invalid++
			continue
		}
		if (check.min != nil && f < *check.min) || (check.max != nil && f > *check.max) {
			invalid++
		}
	}

	if nonMissing == 0 {
		return checkOutcome{message: fmt.Sprintf("列 '%s' 没有非空值", column)}
	}
	if typeErrors == nonMissing {
		return checkOutcome{
			invalid: nonMissing,
			message: fmt.Sprintf("列 '%s' 不是数值类型", column),
		}
	}

	var bounds []string
	if check.min != nil {
		bounds = append(bounds, fmt.Sprintf("min: %v", *check.min))
	}
	if check.max != nil {
		bounds = append(bounds, fmt.Sprintf("max: %v", *check.max))
	}
	return checkOutcome{
		valid:   nonMissing - invalid,
		invalid: invalid,
		message: fmt.Sprintf("范围检查 (%s): %d 个值超出范围", strings.Join(bounds, ", "), invalid),
	}
}

func (m *AccuracyMetric) evaluatePatternCheck(ds *models.Dataset, column string, check patternCheck) checkOutcome {
	col, ok := ds.Column(column)
	if !ok {
		return checkOutcome{message: fmt.Sprintf("列 '%s' 不存在", column)}
	}

	nonMissing := 0
	invalid := 0
	for _, v := range col.Values {
		if models.IsMissing(v) {
			continue
		}
		nonMissing++
		if !check.pattern.MatchString(utils.ToString(v)) {
			invalid++
		}
	}

	if nonMissing == 0 {
		return checkOutcome{message: fmt.Sprintf("列 '%s' 没有非空值", column)}
	}
	return checkOutcome{
		valid:   nonMissing - invalid,
		invalid: invalid,
		message: fmt.Sprintf("模式检查 (%s): %d 个值不匹配", check.raw, invalid),
	}
}

func (m *AccuracyMetric) evaluateCategoricalCheck(ds *models.Dataset, column string, check categoricalCheck) checkOutcome {
	col, ok := ds.Column(column)
	if !ok {
		return checkOutcome{message: fmt.Sprintf("列 '%s' 不存在", column)}
	}

	nonMissing := 0
	invalid := 0
	for _, v := range col.Values {
		if models.IsMissing(v) {
			continue
		}
		nonMissing++
		if _, allowed := check.allowed[utils.ToString(v)]; !allowed {
			invalid++
		}
	}

	if nonMissing == 0 {
		return checkOutcome{message: fmt.Sprintf("列 '%s' 没有非空值", column)}
	}
	return checkOutcome{
		valid:   nonMissing - invalid,
		invalid: invalid,
		message: fmt.Sprintf("枚举检查: %d 个值不在允许集合 %v 内", invalid, check.preview),
	}
}

// mergeOutcome 将同一列上多种检查的结果累加，消息以分号拼接
func mergeOutcome(details map[string]*models.AccuracyDetail, column string, out checkOutcome) {
	existing, ok := details[column]
	if !ok {
		details[column] = &models.AccuracyDetail{
			Valid:   out.valid,
			Invalid: out.invalid,
			Message: out.message,
		}
		return
	}
	existing.Valid += out.valid
	existing.Invalid += out.invalid
	if existing.Message != "" && out.message != "" {
		existing.Message = existing.Message + "; " + out.message
	} else if out.message != "" {
		existing.Message = out.message
	}
}

// Evaluate 评估准确性：整体分数 = Σvalid / Σ(valid+invalid)
func (m *AccuracyMetric) Evaluate(ds *models.Dataset) *models.MetricResult {
	if ds.IsEmpty() {
		result := emptyDatasetResult()
		result.Details = map[string]interface{}{}
		return result
	}

	if len(m.rangeChecks)+len(m.patternChecks)+len(m.categoricals) == 0 {
		return &models.MetricResult{
			Score:   1.0,
			Status:  models.StatusPassed,
			Message: "未配置准确性检查",
			Details: map[string]interface{}{},
		}
	}

	details := make(map[string]*models.AccuracyDetail)

	for _, column := range m.rangeOrder {
		mergeOutcome(details, column, m.evaluateRangeCheck(ds, column, m.rangeChecks[column]))
	}
	for _, column := range m.patternOrder {
		mergeOutcome(details, column, m.evaluatePatternCheck(ds, column, m.patternChecks[column]))
	}
	for _, column := range m.categoricalOrder {
		mergeOutcome(details, column, m.evaluateCategoricalCheck(ds, column, m.categoricals[column]))
	}

	totalValid := 0
	totalInvalid := 0
	resultDetails := make(map[string]interface{}, len(details))
	for column, detail := range details {
		totalValid += detail.Valid
		totalInvalid += detail.Invalid
		if detail.Valid+detail.Invalid > 0 {
			detail.Status = m.thresholds.Classify(float64(detail.Valid) / float64(detail.Valid+detail.Invalid))
		} else {
			detail.Status = models.StatusSkipped
		}
		resultDetails[column] = detail
	}

	total := totalValid + totalInvalid
	score := 1.0
	message := "没有可检查的数据"
	if total > 0 {
		score = float64(totalValid) / float64(total)
		message = fmt.Sprintf("%d 项检查中 %d 项未通过（准确率 %.1f%%）",
			total, totalInvalid, score*100)
	}

	slog.Debug("准确性评估完成", "metric", m.name, "score", score,
		"valid", totalValid, "invalid", totalInvalid)

	return &models.MetricResult{
		Score:   score,
		Status:  m.thresholds.Classify(score),
		Message: message,
		Details: resultDetails,
	}
}

// Clear 清空所有已注册的检查
func (m *AccuracyMetric) Clear() {
	m.rangeOrder = nil
	m.rangeChecks = make(map[string]rangeCheck)
	m.patternOrder = nil
	m.patternChecks = make(map[string]patternCheck)
	m.categoricalOrder = nil
	m.categoricals = make(map[string]categoricalCheck)
}
