/*
 * @module api/controllers/grader_controller
 * @description 评分器管理控制器，负责评分器的创建、连接、单元切换、评分和释放
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 创建并连接 -> 查询/切换单元 -> 执行评分 -> 关闭释放
 * @rules 评分器按ID管理，关闭后从注册表移除；同一评分器上的操作串行执行；未连接或无活动单元的评分请求返回400
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render, github.com/google/uuid
 * @refs service/grader/, service/analyzer/
 */

package controllers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"dataquality-service/service/analyzer"
	"dataquality-service/service/grader"
	"dataquality-service/service/models"
	"dataquality-service/service/monitoring"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// 支持的评分器类型
const (
	graderKindExcel    = "excel"
	graderKindDatabase = "database"
)

type managedGrader struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`

	// mu 串行化对同一评分器实例的操作，评分器自身不做并发防护
	mu     sync.Mutex
	grader grader.Grader
}

// GraderController 评分器管理控制器
type GraderController struct {
	collector *monitoring.Collector

	mutex   sync.RWMutex
	graders map[string]*managedGrader
}

// NewGraderController 创建评分器管理控制器实例
func NewGraderController(collector *monitoring.Collector) *GraderController {
	return &GraderController{
		collector: collector,
		graders:   make(map[string]*managedGrader),
	}
}

// CreateGraderRequest 创建评分器请求
type CreateGraderRequest struct {
	Name   string                 `json:"name"`
	Kind   string                 `json:"kind"`
	Source string                 `json:"source"`
	Rules  *models.QualityRuleSet `json:"rules,omitempty"`
}

// CreateGrader 创建评分器并连接数据源
func (c *GraderController) CreateGrader(w http.ResponseWriter, r *http.Request) {
	var req CreateGraderRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		Fail(w, r, http.StatusBadRequest, "请求体解析失败: "+err.Error())
		return
	}
	if req.Source == "" {
		Fail(w, r, http.StatusBadRequest, "缺少数据源")
		return
	}

	var g grader.Grader
	switch req.Kind {
	case graderKindExcel:
		g = grader.NewExcelGrader(req.Name)
	case graderKindDatabase:
		g = grader.NewDatabaseGrader(req.Name)
	default:
		Fail(w, r, http.StatusBadRequest, "不支持的评分器类型: "+req.Kind)
		return
	}

	if err := c.installMetrics(g, req.Rules); err != nil {
		Fail(w, r, http.StatusBadRequest, "质量规则配置无效: "+err.Error())
		return
	}

	if err := g.Connect(r.Context(), req.Source); err != nil {
		Fail(w, r, http.StatusBadGateway, "数据源连接失败: "+err.Error())
		return
	}

	entry := &managedGrader{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Kind:      req.Kind,
		Source:    req.Source,
		CreatedAt: time.Now(),
		grader:    g,
	}

	c.mutex.Lock()
	c.graders[entry.ID] = entry
	c.mutex.Unlock()

	Success(w, r, "评分器创建成功", entry)
}

// installMetrics 为评分器装配默认的四个质量指标，并套用可选规则集
func (c *GraderController) installMetrics(g grader.Grader, rules *models.QualityRuleSet) error {
	a := analyzer.NewAnalyzer()
	if rules != nil {
		if err := a.ApplyRuleSet(rules); err != nil {
			return err
		}
	}
	for _, name := range a.MetricNames() {
		m, ok := a.Metric(name)
		if !ok {
			continue
		}
		if err := g.AddMetric(name, m); err != nil {
			return err
		}
	}
	return nil
}

// ListGraders 获取评分器列表
func (c *GraderController) ListGraders(w http.ResponseWriter, r *http.Request) {
	c.mutex.RLock()
	entries := make([]*managedGrader, 0, len(c.graders))
	for _, entry := range c.graders {
		entries = append(entries, entry)
	}
	c.mutex.RUnlock()

	Success(w, r, "获取评分器列表成功", entries)
}

// GetGrader 获取评分器状态摘要
func (c *GraderController) GetGrader(w http.ResponseWriter, r *http.Request) {
	entry, ok := c.lookup(r)
	if !ok {
		Fail(w, r, http.StatusNotFound, "评分器不存在")
		return
	}

	entry.mu.Lock()
	summary := entry.grader.GetSummary(entry.Kind)
	entry.mu.Unlock()

	Success(w, r, "获取评分器状态成功", summary)
}

// GetUnits 获取评分器可用的数据单元列表
func (c *GraderController) GetUnits(w http.ResponseWriter, r *http.Request) {
	entry, ok := c.lookup(r)
	if !ok {
		Fail(w, r, http.StatusNotFound, "评分器不存在")
		return
	}

	entry.mu.Lock()
	units, err := entry.grader.GetAvailableUnits()
	entry.mu.Unlock()
	if err != nil {
		c.failWith(w, r, err)
		return
	}

	Success(w, r, "获取数据单元列表成功", units)
}

// SetActiveUnitRequest 切换活动数据单元请求
type SetActiveUnitRequest struct {
	Unit string `json:"unit"`
}

// SetActiveUnit 切换评分目标数据单元
func (c *GraderController) SetActiveUnit(w http.ResponseWriter, r *http.Request) {
	entry, ok := c.lookup(r)
	if !ok {
		Fail(w, r, http.StatusNotFound, "评分器不存在")
		return
	}

	var req SetActiveUnitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		Fail(w, r, http.StatusBadRequest, "请求体解析失败: "+err.Error())
		return
	}

	entry.mu.Lock()
	err := entry.grader.SetActiveUnit(req.Unit)
	entry.mu.Unlock()
	if err != nil {
		c.failWith(w, r, err)
		return
	}

	Success(w, r, "活动数据单元切换成功", req.Unit)
}

// GetUnitInfo 获取指定数据单元的列级元数据
func (c *GraderController) GetUnitInfo(w http.ResponseWriter, r *http.Request) {
	entry, ok := c.lookup(r)
	if !ok {
		Fail(w, r, http.StatusNotFound, "评分器不存在")
		return
	}
	unit := chi.URLParam(r, "unit")

	entry.mu.Lock()
	var info *models.UnitInfo
	var err error
	switch g := entry.grader.(type) {
	case *grader.ExcelGrader:
		info, err = g.GetColumnInfo(unit)
	case *grader.DatabaseGrader:
		info, err = g.GetTableInfo(unit)
	default:
		entry.mu.Unlock()
		Fail(w, r, http.StatusBadRequest, "该评分器不支持单元自省")
		return
	}
	entry.mu.Unlock()
	if err != nil {
		c.failWith(w, r, err)
		return
	}

	Success(w, r, "获取数据单元信息成功", info)
}

// GradeRequest 执行评分请求，metrics 为空时运行全部指标
type GradeRequest struct {
	Metrics []string `json:"metrics,omitempty"`
}

// Grade 对活动数据单元执行质量评分
func (c *GraderController) Grade(w http.ResponseWriter, r *http.Request) {
	entry, ok := c.lookup(r)
	if !ok {
		Fail(w, r, http.StatusNotFound, "评分器不存在")
		return
	}

	var req GradeRequest
	if r.ContentLength > 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			Fail(w, r, http.StatusBadRequest, "请求体解析失败: "+err.Error())
			return
		}
	}

	entry.mu.Lock()
	result, err := entry.grader.Grade(r.Context(), req.Metrics)
	entry.mu.Unlock()
	if err != nil {
		c.failWith(w, r, err)
		return
	}

	if c.collector != nil {
		c.collector.RecordGradeDuration(result.Metadata.DurationSeconds)
		for metricName, mr := range result.Metrics {
			c.collector.RecordEvaluation(metricName, mr.Score, string(mr.Status))
		}
	}

	Success(w, r, "质量评分完成", result)
}

// CloseGrader 关闭评分器并从注册表移除
func (c *GraderController) CloseGrader(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c.mutex.Lock()
	entry, ok := c.graders[id]
	if ok {
		delete(c.graders, id)
	}
	c.mutex.Unlock()

	if !ok {
		Fail(w, r, http.StatusNotFound, "评分器不存在")
		return
	}

	entry.mu.Lock()
	err := entry.grader.Close()
	entry.mu.Unlock()
	if err != nil {
		Fail(w, r, http.StatusInternalServerError, "评分器关闭失败: "+err.Error())
		return
	}

	Success(w, r, "评分器已关闭", entry.ID)
}

func (c *GraderController) lookup(r *http.Request) (*managedGrader, bool) {
	id := chi.URLParam(r, "id")

	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, ok := c.graders[id]
	return entry, ok
}

// failWith 按错误类别映射HTTP状态码
func (c *GraderController) failWith(w http.ResponseWriter, r *http.Request, err error) {
	var connErr *models.SourceConnectionError
	switch {
	case errors.As(err, &connErr):
		Fail(w, r, http.StatusBadGateway, err.Error())
	case errors.Is(err, models.ErrNotConnected),
		errors.Is(err, models.ErrNoActiveUnit),
		errors.Is(err, models.ErrNoMetricsConfigured),
		models.IsConfigurationError(err):
		Fail(w, r, http.StatusBadRequest, err.Error())
	default:
		Fail(w, r, http.StatusInternalServerError, err.Error())
	}
}
