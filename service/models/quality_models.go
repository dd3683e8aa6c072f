/*
 * @module service/models/quality_models
 * @description 数据质量评估模型，包含指标结果、分析结果、评分结果、改进建议等值对象
 * @architecture 数据模型层 - 一次构建的不可变值对象
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 指标评估 -> 结果构建 -> 聚合分析 -> 建议生成
 * @rules 结果对象创建后不再修改；details/columns/rules 的 JSON 键名与下游渲染器保持兼容
 * @dependencies time
 * @refs service/metrics/, service/analyzer/, service/grader/
 */

package models

import "time"

// MetricStatus 指标状态分类
type MetricStatus string

const (
	StatusPassed  MetricStatus = "passed"
	StatusWarning MetricStatus = "warning"
	StatusFailed  MetricStatus = "failed"
	StatusSkipped MetricStatus = "skipped"
)

// 建议优先级
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// MetricResult 单个指标的评估结果
// Columns 为完整性指标专用，Details 为准确性/及时性专用，Rules 为一致性专用，
// 三者的键名被下游渲染器按字面消费，不可更名
type MetricResult struct {
	Score   float64      `json:"score"`
	Status  MetricStatus `json:"status"`
	Message string       `json:"message"`

	Columns map[string]*ColumnDetail `json:"columns,omitempty"`
	Details map[string]interface{}   `json:"details,omitempty"`
	Rules   map[string]*RuleDetail   `json:"rules,omitempty"`

	// Error 非空表示该指标评估过程本身失败（降级结果），其分数不参与总分
	Error string `json:"error,omitempty"`
}

// ColumnDetail 完整性指标的单列结果
type ColumnDetail struct {
	Completeness float64      `json:"completeness"`
	Status       MetricStatus `json:"status"`
	Message      string       `json:"message"`
	MissingCount int          `json:"missing_count"`
	TotalCount   int          `json:"total_count"`
}

// AccuracyDetail 准确性指标的单列结果，同一列上的多种检查累加
type AccuracyDetail struct {
	Valid   int          `json:"valid"`
	Invalid int          `json:"invalid"`
	Status  MetricStatus `json:"status"`
	Message string       `json:"message"`
}

// TimelinessDetail 及时性指标的单列结果
type TimelinessDetail struct {
	Timely          int          `json:"timely"`
	Untimely        int          `json:"untimely"`
	TimelinessScore float64      `json:"timeliness_score"`
	MaxAgeDays      int          `json:"max_age,omitempty"`
	WarningAgeDays  int          `json:"warning_threshold,omitempty"`
	Status          MetricStatus `json:"status,omitempty"`
	Message         string       `json:"message"`
	CheckType       string       `json:"check_type,omitempty"`
}

// RuleDetail 一致性指标的单条规则结果
type RuleDetail struct {
	ConsistentRows   int                      `json:"consistent_rows"`
	InconsistentRows int                      `json:"inconsistent_rows"`
	ConsistencyScore float64                  `json:"consistency_score"`
	Examples         []map[string]interface{} `json:"examples"`
	Error            string                   `json:"error,omitempty"`
}

// Recommendation 基于指标结果派生的改进建议
type Recommendation struct {
	Title           string   `json:"title"`
	Priority        string   `json:"priority"`
	Description     string   `json:"description"`
	AffectedMetrics []string `json:"affected_metrics,omitempty"`
	AffectedColumns []string `json:"affected_columns,omitempty"`
	Steps           []string `json:"steps"`
}

// AnalysisResult 一次完整分析的聚合结果
type AnalysisResult struct {
	AnalysisID      string                   `json:"analysis_id"`
	OverallScore    float64                  `json:"overall_score"`
	OverallStatus   MetricStatus             `json:"overall_status"`
	Metrics         map[string]*MetricResult `json:"metrics"`
	Recommendations []*Recommendation        `json:"recommendations,omitempty"`
	AnalysisTime    float64                  `json:"analysis_time"`
	AnalysisDate    string                   `json:"analysis_date"`
}

// GradeMetadata 评分运行的来源和计时元数据
type GradeMetadata struct {
	SourceType      string                 `json:"source_type"`
	Source          string                 `json:"source"`
	ActiveUnit      string                 `json:"active_unit"`
	RowCount        int                    `json:"row_count"`
	ColumnCount     int                    `json:"column_count"`
	Columns         []string               `json:"columns"`
	StartTime       time.Time              `json:"start_time"`
	EndTime         time.Time              `json:"end_time"`
	DurationSeconds float64                `json:"duration_seconds"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
}

// GradeResult Grader 一次评分的完整输出
type GradeResult struct {
	Metrics  map[string]*MetricResult `json:"metrics"`
	Metadata *GradeMetadata           `json:"metadata"`
}

// ColumnInfo 列级元数据，用于数据源自省
type ColumnInfo struct {
	Kind         ValueKind     `json:"kind"`
	NullCount    int           `json:"null_count"`
	UniqueCount  int           `json:"unique_count"`
	SampleValues []interface{} `json:"sample_values"`
}

// UnitInfo 可寻址单元（工作表/数据表）的元数据
type UnitInfo struct {
	Name        string                 `json:"name"`
	RowCount    int                    `json:"row_count"`
	ColumnCount int                    `json:"column_count"`
	Columns     map[string]*ColumnInfo `json:"columns,omitempty"`
	PrimaryKeys []string               `json:"primary_keys,omitempty"`
}
