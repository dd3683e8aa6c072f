/*
 * @module api/controllers/quality_controller
 * @description 数据质量控制器，对提交的内联数据集执行多维度质量分析
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 请求接收 -> 构建数据集 -> 应用规则 -> 执行分析 -> 响应返回
 * @rules 配置类错误返回400，分析内部错误返回500，单指标失败不影响整体分析
 * @dependencies github.com/go-chi/render
 * @refs service/analyzer/, service/loader/, service/models/
 */

package controllers

import (
	"errors"
	"net/http"

	"dataquality-service/service/analyzer"
	"dataquality-service/service/loader"
	"dataquality-service/service/models"
	"dataquality-service/service/monitoring"

	"github.com/go-chi/render"
)

// QualityController 数据质量分析控制器
type QualityController struct {
	collector *monitoring.Collector
}

// NewQualityController 创建数据质量控制器实例
func NewQualityController(collector *monitoring.Collector) *QualityController {
	return &QualityController{collector: collector}
}

// AnalyzeRequest 内联数据集质量分析请求
type AnalyzeRequest struct {
	Columns []models.ColumnSpec      `json:"columns"`
	Records []map[string]interface{} `json:"records"`
	Rules   *models.QualityRuleSet   `json:"rules,omitempty"`
	Metrics []string                 `json:"metrics,omitempty"`
}

// Analyze 对请求体中的数据集执行质量分析
func (c *QualityController) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		Fail(w, r, http.StatusBadRequest, "请求体解析失败: "+err.Error())
		return
	}

	if len(req.Columns) == 0 {
		Fail(w, r, http.StatusBadRequest, "缺少列定义")
		return
	}

	ds, err := loader.DatasetFromRecords(req.Columns, req.Records)
	if err != nil {
		Fail(w, r, http.StatusBadRequest, "数据集构建失败: "+err.Error())
		return
	}

	a := analyzer.NewAnalyzer()
	if req.Rules != nil {
		if err := a.ApplyRuleSet(req.Rules); err != nil {
			Fail(w, r, http.StatusBadRequest, "质量规则配置无效: "+err.Error())
			return
		}
	}

	result, err := a.Analyze(ds, req.Metrics)
	if err != nil {
		if errors.Is(err, models.ErrNoMetricsConfigured) || models.IsConfigurationError(err) {
			Fail(w, r, http.StatusBadRequest, err.Error())
			return
		}
		Fail(w, r, http.StatusInternalServerError, "质量分析失败: "+err.Error())
		return
	}

	if c.collector != nil {
		for metricName, mr := range result.Metrics {
			c.collector.RecordEvaluation(metricName, mr.Score, string(mr.Status))
		}
	}

	Success(w, r, "质量分析完成", result)
}
