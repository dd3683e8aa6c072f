/*
 * @module service/analyzer/recommendations
 * @description 基于指标结果派生排序后的改进建议
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 指标结果扫描 -> 问题定位 -> 建议构建 -> 兜底建议
 * @rules
 *   - 重复行占比 >5% 为高优先级，>1% 为中优先级，其余为低优先级
 *   - 没有具体问题时输出一条通用复查建议，保证建议列表非空有主
 * @dependencies service/models, sort, strings
 * @refs analyzer.go
 */

package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"dataquality-service/service/models"
)

// generateRecommendations 从指标结果和数据集派生建议
func generateRecommendations(results map[string]*models.MetricResult, ds *models.Dataset) []*models.Recommendation {
	var recommendations []*models.Recommendation

	if r := completenessRecommendation(results["completeness"]); r != nil {
		recommendations = append(recommendations, r)
	}
	if r := consistencyRecommendation(results["consistency"]); r != nil {
		recommendations = append(recommendations, r)
	}
	if r := accuracyRecommendation(results["accuracy"]); r != nil {
		recommendations = append(recommendations, r)
	}
	if r := duplicateRecommendation(ds); r != nil {
		recommendations = append(recommendations, r)
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, &models.Recommendation{
			Title:       "复查数据质量详情",
			Priority:    models.PriorityMedium,
			Description: "查看各指标的详细结果，定位需要改进的具体方面。",
			Steps: []string{
				"重点关注得分较低的指标",
				"制定数据质量改进计划",
				"落地自动化校验与监控",
			},
		})
	}

	return recommendations
}

// completenessRecommendation 针对完整性不达标的列给出建议，取最差的最多 3 列
func completenessRecommendation(result *models.MetricResult) *models.Recommendation {
	if result == nil || (result.Status != models.StatusFailed && result.Status != models.StatusWarning) {
		return nil
	}

	type colScore struct {
		name         string
		completeness float64
	}
	var failing []colScore
	for name, detail := range result.Columns {
		if detail.Status == models.StatusFailed {
			failing = append(failing, colScore{name: name, completeness: detail.Completeness})
		}
	}
	if len(failing) == 0 {
		return nil
	}
	sort.Slice(failing, func(i, j int) bool {
		if failing[i].completeness != failing[j].completeness {
			return failing[i].completeness < failing[j].completeness
		}
		return failing[i].name < failing[j].name
	})

	worst := make([]string, 0, 3)
	for _, c := range failing {
		worst = append(worst, c.name)
		if len(worst) == 3 {
			break
		}
	}

	priority := models.PriorityMedium
	if result.Status == models.StatusFailed {
		priority = models.PriorityHigh
	}

	return &models.Recommendation{
		Title:           "提升数据完整性",
		Priority:        priority,
		Description:     fmt.Sprintf("处理以下列的缺失值: %s", strings.Join(worst, ", ")),
		AffectedMetrics: []string{"completeness"},
		AffectedColumns: worst,
		Steps: []string{
			"排查缺失数据的根本原因",
			"在数据录入环节增加必填校验",
			"评估历史缺失数据的回填可行性",
		},
	}
}

// consistencyRecommendation 存在蕴含/比较规则违例时给出建议
func consistencyRecommendation(result *models.MetricResult) *models.Recommendation {
	if result == nil || (result.Status != models.StatusFailed && result.Status != models.StatusWarning) {
		return nil
	}

	hasViolations := false
	for _, detail := range result.Rules {
		if detail.InconsistentRows > 0 || detail.Error != "" {
			hasViolations = true
			break
		}
	}
	if !hasViolations {
		return nil
	}

	return &models.Recommendation{
		Title:           "加强列间关系约束",
		Priority:        models.PriorityMedium,
		Description:     "部分列间关系存在不一致，需要在数据层面落实相应约束。",
		AffectedMetrics: []string{"consistency"},
		Steps: []string{
			"复查各规则的违例样例",
			"添加校验规则防止新的不一致产生",
			"修复存量不一致数据",
		},
	}
}

// accuracyRecommendation 针对准确性检查不通过的列给出建议
func accuracyRecommendation(result *models.MetricResult) *models.Recommendation {
	if result == nil || (result.Status != models.StatusFailed && result.Status != models.StatusWarning) {
		return nil
	}

	var problem []string
	for name, raw := range result.Details {
		detail, ok := raw.(*models.AccuracyDetail)
		if ok && detail.Status == models.StatusFailed {
			problem = append(problem, name)
		}
	}
	if len(problem) == 0 {
		return nil
	}
	sort.Strings(problem)
	if len(problem) > 3 {
		problem = problem[:3]
	}

	priority := models.PriorityMedium
	if result.Status == models.StatusFailed {
		priority = models.PriorityHigh
	}

	return &models.Recommendation{
		Title:           "修复数据准确性问题",
		Priority:        priority,
		Description:     fmt.Sprintf("处理以下列的无效值: %s", strings.Join(problem, ", ")),
		AffectedMetrics: []string{"accuracy"},
		AffectedColumns: problem,
		Steps: []string{
			"复查无效的数据取值",
			"收紧校验规则",
			"统一数据格式标准",
		},
	}
}

// duplicateRecommendation 按重复行占比分级给出去重建议
func duplicateRecommendation(ds *models.Dataset) *models.Recommendation {
	if ds.IsEmpty() {
		return nil
	}
	duplicates := ds.DuplicateRowCount()
	if duplicates == 0 {
		return nil
	}

	ratio := float64(duplicates) / float64(ds.RowCount())
	priority := models.PriorityLow
	if ratio > 0.05 {
		priority = models.PriorityHigh
	} else if ratio > 0.01 {
		priority = models.PriorityMedium
	}

	return &models.Recommendation{
		Title:           "清除重复记录",
		Priority:        priority,
		Description:     fmt.Sprintf("发现 %d 行重复数据（占比 %.1f%%）", duplicates, ratio*100),
		AffectedMetrics: []string{"consistency"},
		Steps: []string{
			"添加唯一性约束",
			"复查并删除重复记录",
			"在写入路径上增加去重校验",
		},
	}
}
