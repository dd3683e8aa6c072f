/*
 * @module service/models/rule_config
 * @description 声明式质量规则集配置，由 API 请求携带并应用到指标实例
 * @architecture 数据模型层 - 配置值对象
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 请求解析 -> 规则集校验 -> 应用到指标 -> 评估
 * @rules 规则集必须在首次评估前应用完毕
 * @refs service/analyzer/rule_config.go, api/controllers/quality_controller.go
 */

package models

// RangeRule 数值范围检查配置，min/max 至少给定其一
type RangeRule struct {
	Column string   `json:"column"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// PatternRule 正则模式检查配置
type PatternRule struct {
	Column  string `json:"column"`
	Pattern string `json:"pattern"`
}

// CategoricalRule 枚举值检查配置
type CategoricalRule struct {
	Column        string        `json:"column"`
	AllowedValues []interface{} `json:"allowed_values"`
}

// ConsistencyRule 一致性规则配置，Type 为 relationship 或 comparison
type ConsistencyRule struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Condition   string `json:"condition,omitempty"`
	Implies     string `json:"implies,omitempty"`
	LeftColumn  string `json:"left_column,omitempty"`
	Operator    string `json:"operator,omitempty"`
	RightColumn string `json:"right_column,omitempty"`
}

// TimelinessRule 及时性检查配置，Type 为 age 或 freshness
type TimelinessRule struct {
	Column         string `json:"column"`
	Type           string `json:"type"`
	MaxAgeDays     int    `json:"max_age_days"`
	WarningAgeDays int    `json:"warning_age_days,omitempty"`
}

// QualityRuleSet 一次分析/评分使用的完整规则集
type QualityRuleSet struct {
	Range         []RangeRule       `json:"range,omitempty"`
	Pattern       []PatternRule     `json:"pattern,omitempty"`
	Categorical   []CategoricalRule `json:"categorical,omitempty"`
	Consistency   []ConsistencyRule `json:"consistency,omitempty"`
	Timeliness    []TimelinessRule  `json:"timeliness,omitempty"`
	ReferenceDate string            `json:"reference_date,omitempty"`
}
