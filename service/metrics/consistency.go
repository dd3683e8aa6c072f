/*
 * @module service/metrics/consistency
 * @description 一致性指标，检查列间逻辑蕴含关系与行级列值比较
 * @architecture 策略模式 - 规则注册后逐行求值
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 规则注册（解析校验） -> 逐行求值 -> 规则评分 -> 均值聚合
 * @rules
 *   - 规则名在同一指标内唯一，重复注册同步返回配置错误
 *   - 蕴含规则对无适用行的情况按空真处理（得分 1.0）
 *   - 比较规则仅对两列均非缺失的行求值，时间列按时间值比较
 *   - 未配置规则视为"平凡一致"，得分 1.0
 * @dependencies service/models, service/utils
 * @refs expression.go, metric.go
 */

package metrics

import (
	"fmt"
	"log/slog"

	"dataquality-service/service/models"
)

const maxInconsistentExamples = 5

const (
	ruleKindRelationship = "relationship"
	ruleKindComparison   = "comparison"
)

type consistencyRule struct {
	kind string

	// relationship 规则
	conditionRaw string
	impliesRaw   string
	condition    Expression
	implies      Expression

	// comparison 规则
	leftColumn  string
	operator    string
	rightColumn string
}

// ConsistencyMetric 一致性指标
type ConsistencyMetric struct {
	name       string
	thresholds Thresholds
	ruleOrder  []string
	rules      map[string]consistencyRule
}

// NewConsistencyMetric 创建一致性指标，默认阈值 0.9/0.7
func NewConsistencyMetric(name string) *ConsistencyMetric {
	m := &ConsistencyMetric{name: name, thresholds: defaultConsistencyThresholds}
	m.Clear()
	return m
}

// NewConsistencyMetricWithThresholds 创建自定义阈值的一致性指标
func NewConsistencyMetricWithThresholds(name string, warning, failure float64) (*ConsistencyMetric, error) {
	t, err := NewThresholds(warning, failure)
	if err != nil {
		return nil, err
	}
	m := &ConsistencyMetric{name: name, thresholds: t}
	m.Clear()
	return m, nil
}

func (m *ConsistencyMetric) Name() string {
	return m.name
}

// AddRelationshipCheck 注册蕴含规则：condition 为真的行上 implies 必须为真
func (m *ConsistencyMetric) AddRelationshipCheck(name, condition, implies string) error {
	if _, exists := m.rules[name]; exists {
		return models.NewConfigurationError("规则 '%s' 已存在", name)
	}
	conditionExpr, err := ParseExpression(condition)
	if err != nil {
		return models.NewConfigurationError("条件表达式 '%s' 解析失败: %v", condition, err)
	}
	impliesExpr, err := ParseExpression(implies)
	if err != nil {
		return models.NewConfigurationError("蕴含表达式 '%s' 解析失败: %v", implies, err)
	}

	m.ruleOrder = append(m.ruleOrder, name)
	m.rules[name] = consistencyRule{
		kind:         ruleKindRelationship,
		conditionRaw: condition,
		impliesRaw:   implies,
		condition:    conditionExpr,
		implies:      impliesExpr,
	}
	slog.Debug("注册蕴含规则", "metric", m.name, "rule", name,
		"condition", condition, "implies", implies)
	return nil
}

// AddComparisonCheck 注册行级比较规则
func (m *ConsistencyMetric) AddComparisonCheck(name, leftColumn, operator, rightColumn string) error {
	if _, exists := m.rules[name]; exists {
		return models.NewConfigurationError("规则 '%s' 已存在", name)
	}
	if !IsValidOperator(operator) {
		return models.NewConfigurationError("非法的比较操作符 '%s'，可用操作符为 %v", operator, ValidOperators)
	}
	if leftColumn == "" || rightColumn == "" {
		return models.NewConfigurationError("比较规则必须指定左右两列")
	}

	m.ruleOrder = append(m.ruleOrder, name)
	m.rules[name] = consistencyRule{
		kind:        ruleKindComparison,
		leftColumn:  leftColumn,
		operator:    operator,
		rightColumn: rightColumn,
	}
	slog.Debug("注册比较规则", "metric", m.name, "rule", name,
		"left", leftColumn, "operator", operator, "right", rightColumn)
	return nil
}

func (m *ConsistencyMetric) evaluateRelationshipRule(ds *models.Dataset, rule consistencyRule) *models.RuleDetail {
	applicable := 0
	inconsistent := 0
	examples := make([]map[string]interface{}, 0, maxInconsistentExamples)

	for row := 0; row < ds.RowCount(); row++ {
		accessor := DatasetRowAccessor(ds, row)
		condTrue, err := rule.condition.Eval(accessor)
		if err != nil {
			return &models.RuleDetail{
				ConsistencyScore: 0,
				Error:            err.Error(),
				Examples:         []map[string]interface{}{},
			}
		}
		if !condTrue {
			continue
		}
		applicable++
		implied, err := rule.implies.Eval(accessor)
		if err != nil {
			return &models.RuleDetail{
				ConsistencyScore: 0,
				Error:            err.Error(),
				Examples:         []map[string]interface{}{},
			}
		}
		if !implied {
			inconsistent++
			if len(examples) < maxInconsistentExamples {
				examples = append(examples, ds.Row(row))
			}
		}
	}

	// 没有行满足条件时按空真处理
	score := 1.0
	if applicable > 0 {
		score = float64(applicable-inconsistent) / float64(applicable)
	}

	return &models.RuleDetail{
		ConsistentRows:   applicable - inconsistent,
		InconsistentRows: inconsistent,
		ConsistencyScore: score,
		Examples:         examples,
	}
}

func (m *ConsistencyMetric) evaluateComparisonRule(ds *models.Dataset, rule consistencyRule) *models.RuleDetail {
	leftCol, leftOK := ds.Column(rule.leftColumn)
	rightCol, rightOK := ds.Column(rule.rightColumn)
	if !leftOK || !rightOK {
		missing := ""
		if !leftOK {
			missing = rule.leftColumn
		}
		if !rightOK {
			if missing != "" {
				missing += ", "
			}
			missing += rule.rightColumn
		}
		return &models.RuleDetail{
			ConsistencyScore: 0,
			Error:            fmt.Sprintf("列不存在: %s", missing),
			Examples:         []map[string]interface{}{},
		}
	}

	evaluated := 0
	consistent := 0
	examples := make([]map[string]interface{}, 0, maxInconsistentExamples)

	for row := 0; row < ds.RowCount(); row++ {
		lv := leftCol.Values[row]
		rv := rightCol.Values[row]
		if models.IsMissing(lv) || models.IsMissing(rv) {
			continue
		}
		evaluated++
		ok, err := CompareValues(lv, rule.operator, rv)
		if err != nil {
			return &models.RuleDetail{
				ConsistencyScore: 0,
				Error:            err.Error(),
				Examples:         []map[string]interface{}{},
			}
		}
		if ok {
			consistent++
		} else if len(examples) < maxInconsistentExamples {
			examples = append(examples, ds.Row(row))
		}
	}

	// 没有可比较的行时规则视为满足
	score := 1.0
	if evaluated > 0 {
		score = float64(consistent) / float64(evaluated)
	}

	return &models.RuleDetail{
		ConsistentRows:   consistent,
		InconsistentRows: evaluated - consistent,
		ConsistencyScore: score,
		Examples:         examples,
	}
}

// Evaluate 评估一致性：整体分数为各规则得分的无权均值
func (m *ConsistencyMetric) Evaluate(ds *models.Dataset) *models.MetricResult {
	if ds.IsEmpty() {
		result := emptyDatasetResult()
		result.Rules = map[string]*models.RuleDetail{}
		return result
	}

	if len(m.rules) == 0 {
		return &models.MetricResult{
			Score:   1.0,
			Status:  models.StatusPassed,
			Message: "未配置一致性规则",
			Rules:   map[string]*models.RuleDetail{},
		}
	}

	ruleResults := make(map[string]*models.RuleDetail, len(m.rules))
	scoreSum := 0.0
	for _, name := range m.ruleOrder {
		rule := m.rules[name]
		var detail *models.RuleDetail
		switch rule.kind {
		case ruleKindRelationship:
			detail = m.evaluateRelationshipRule(ds, rule)
		case ruleKindComparison:
			detail = m.evaluateComparisonRule(ds, rule)
		}
		ruleResults[name] = detail
		scoreSum += detail.ConsistencyScore
	}

	overall := scoreSum / float64(len(m.ruleOrder))

	totalInconsistent := 0
	totalChecked := 0
	for _, detail := range ruleResults {
		totalInconsistent += detail.InconsistentRows
		totalChecked += detail.ConsistentRows + detail.InconsistentRows
	}
	message := "一致性规则没有适用的数据"
	if totalChecked > 0 {
		rowRatio := float64(totalChecked-totalInconsistent) / float64(totalChecked)
		message = fmt.Sprintf("%d 项一致性检查中 %d 项未通过（一致率 %.1f%%）",
			totalChecked, totalInconsistent, rowRatio*100)
	}

	slog.Debug("一致性评估完成", "metric", m.name, "score", overall, "rules", len(m.rules))

	return &models.MetricResult{
		Score:   overall,
		Status:  m.thresholds.Classify(overall),
		Message: message,
		Rules:   ruleResults,
	}
}

// Clear 清空所有已注册的规则
func (m *ConsistencyMetric) Clear() {
	m.ruleOrder = nil
	m.rules = make(map[string]consistencyRule)
}
