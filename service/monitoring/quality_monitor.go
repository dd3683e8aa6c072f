/*
 * @module service/monitoring/quality_monitor
 * @description 数据质量定时监控器，周期性重新评分并上报监控指标
 * @architecture 监控层 - 定时调度
 * @documentReference dev_docs/quality_requirements.md
 * @stateFlow 启动监控 -> cron触发评分 -> 记录指标 -> 得分下降告警
 * @rules 同一监控器只允许启动一次，Stop 后可重新 Start
 * @dependencies github.com/robfig/cron/v3
 * @refs metrics_collector.go, service/grader/grader.go
 */

package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dataquality-service/service/grader"

	"github.com/robfig/cron/v3"
)

// 得分下降超过该幅度时记录告警日志
const scoreDropAlertDelta = 0.05

// QualityMonitor 周期性对已连接的评分器执行评分并记录指标
type QualityMonitor struct {
	name      string
	grader    grader.Grader
	collector *Collector
	schedule  string

	cron    *cron.Cron
	entryID cron.EntryID
	started bool

	mutex     sync.Mutex
	lastScore float64
	hasScore  bool
}

// NewQualityMonitor 创建质量监控器，schedule 为标准 cron 表达式（分钟粒度）
func NewQualityMonitor(name string, g grader.Grader, collector *Collector, schedule string) *QualityMonitor {
	return &QualityMonitor{
		name:      name,
		grader:    g,
		collector: collector,
		schedule:  schedule,
		cron:      cron.New(),
	}
}

// Start 启动定时评分
func (qm *QualityMonitor) Start() error {
	qm.mutex.Lock()
	defer qm.mutex.Unlock()

	if qm.started {
		return fmt.Errorf("质量监控器已经启动: %s", qm.name)
	}

	entryID, err := qm.cron.AddFunc(qm.schedule, qm.runOnce)
	if err != nil {
		return fmt.Errorf("注册质量监控调度失败: %w", err)
	}
	qm.entryID = entryID
	qm.cron.Start()
	qm.started = true

	slog.Info("质量监控器已启动", "name", qm.name, "schedule", qm.schedule)
	return nil
}

// Stop 停止定时评分，等待正在执行的评分完成
func (qm *QualityMonitor) Stop() {
	qm.mutex.Lock()
	defer qm.mutex.Unlock()

	if !qm.started {
		return
	}

	qm.cron.Remove(qm.entryID)
	stopCtx := qm.cron.Stop()
	<-stopCtx.Done()
	qm.started = false

	slog.Info("质量监控器已停止", "name", qm.name)
}

// RunNow 立即执行一次评分，供手动触发使用
func (qm *QualityMonitor) RunNow() {
	qm.runOnce()
}

func (qm *QualityMonitor) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	result, err := qm.grader.Grade(ctx, nil)
	elapsed := time.Since(start).Seconds()

	if qm.collector != nil {
		qm.collector.RecordGradeDuration(elapsed)
	}

	if err != nil {
		slog.Error("定时质量评分失败", "name", qm.name, "error", err)
		return
	}

	var scoreSum float64
	var scoreCount int
	for metricName, mr := range result.Metrics {
		if qm.collector != nil {
			qm.collector.RecordEvaluation(metricName, mr.Score, string(mr.Status))
		}
		if mr.Error == "" {
			scoreSum += mr.Score
			scoreCount++
		}
	}

	overall := 0.0
	if scoreCount > 0 {
		overall = scoreSum / float64(scoreCount)
	}
	qm.checkScoreDrop(overall)

	slog.Info("定时质量评分完成",
		"name", qm.name,
		"overall_score", overall,
		"metric_count", len(result.Metrics),
		"duration_seconds", elapsed)
}

func (qm *QualityMonitor) checkScoreDrop(score float64) {
	qm.mutex.Lock()
	defer qm.mutex.Unlock()

	if qm.hasScore && qm.lastScore-score > scoreDropAlertDelta {
		slog.Warn("数据质量得分明显下降",
			"name", qm.name,
			"previous_score", qm.lastScore,
			"current_score", score)
	}
	qm.lastScore = score
	qm.hasScore = true
}
