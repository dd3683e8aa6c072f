/*
 * @module service/analyzer/rule_config
 * @description 将声明式规则集应用到分析器持有的指标实例
 * @architecture 分层架构 - 配置应用层
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 规则集解析 -> 指标定位 -> 规则逐条注册（配置错误立即返回）
 * @rules 规则集必须在分析前应用完毕，任何一条规则非法则整体失败
 * @dependencies service/metrics, service/models, service/utils
 * @refs analyzer.go, api/controllers/quality_controller.go
 */

package analyzer

import (
	"dataquality-service/service/metrics"
	"dataquality-service/service/models"
	"dataquality-service/service/utils"
)

// ApplyRuleSet 把规则集注册到分析器的对应指标上
// 需要及时性规则且给定参考日期时，会用固定参考日期的指标实例替换默认实例
func (a *Analyzer) ApplyRuleSet(rs *models.QualityRuleSet) error {
	if rs == nil {
		return nil
	}

	if err := a.applyAccuracyRules(rs); err != nil {
		return err
	}
	if err := a.applyConsistencyRules(rs); err != nil {
		return err
	}
	return a.applyTimelinessRules(rs)
}

func (a *Analyzer) applyAccuracyRules(rs *models.QualityRuleSet) error {
	if len(rs.Range)+len(rs.Pattern)+len(rs.Categorical) == 0 {
		return nil
	}
	m, ok := a.metrics["accuracy"]
	if !ok {
		return models.NewConfigurationError("规则集包含准确性规则，但分析器没有 accuracy 指标")
	}
	accuracy, ok := m.(*metrics.AccuracyMetric)
	if !ok {
		return models.NewConfigurationError("accuracy 指标类型不支持规则配置")
	}

	for _, r := range rs.Range {
		if err := accuracy.AddRangeCheck(r.Column, r.Min, r.Max); err != nil {
			return err
		}
	}
	for _, r := range rs.Pattern {
		if err := accuracy.AddPatternCheck(r.Column, r.Pattern); err != nil {
			return err
		}
	}
	for _, r := range rs.Categorical {
		if err := accuracy.AddCategoricalCheck(r.Column, r.AllowedValues); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) applyConsistencyRules(rs *models.QualityRuleSet) error {
	if len(rs.Consistency) == 0 {
		return nil
	}
	m, ok := a.metrics["consistency"]
	if !ok {
		return models.NewConfigurationError("规则集包含一致性规则，但分析器没有 consistency 指标")
	}
	consistency, ok := m.(*metrics.ConsistencyMetric)
	if !ok {
		return models.NewConfigurationError("consistency 指标类型不支持规则配置")
	}

	for _, r := range rs.Consistency {
		switch r.Type {
		case "relationship":
			if err := consistency.AddRelationshipCheck(r.Name, r.Condition, r.Implies); err != nil {
				return err
			}
		case "comparison":
			if err := consistency.AddComparisonCheck(r.Name, r.LeftColumn, r.Operator, r.RightColumn); err != nil {
				return err
			}
		default:
			return models.NewConfigurationError("未知的一致性规则类型 '%s'", r.Type)
		}
	}
	return nil
}

func (a *Analyzer) applyTimelinessRules(rs *models.QualityRuleSet) error {
	if len(rs.Timeliness) == 0 {
		return nil
	}

	if rs.ReferenceDate != "" {
		ref, err := utils.ToTime(rs.ReferenceDate)
		if err != nil {
			return models.NewConfigurationError("非法的参考日期 '%s': %v", rs.ReferenceDate, err)
		}
		a.AddMetric(metrics.NewTimelinessMetricWithReference("timeliness", ref))
	}

	m, ok := a.metrics["timeliness"]
	if !ok {
		return models.NewConfigurationError("规则集包含及时性规则，但分析器没有 timeliness 指标")
	}
	timeliness, ok := m.(*metrics.TimelinessMetric)
	if !ok {
		return models.NewConfigurationError("timeliness 指标类型不支持规则配置")
	}

	for _, r := range rs.Timeliness {
		var err error
		switch r.Type {
		case "", "age":
			err = timeliness.AddAgeCheck(r.Column, r.MaxAgeDays, r.WarningAgeDays)
		case "freshness":
			err = timeliness.AddFreshnessCheck(r.Column, r.MaxAgeDays, r.WarningAgeDays)
		default:
			err = models.NewConfigurationError("未知的及时性检查类型 '%s'", r.Type)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
