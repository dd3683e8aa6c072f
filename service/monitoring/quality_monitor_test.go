/*
 * @module service/monitoring/quality_monitor_test
 * @description 质量监控器单元测试
 * @architecture 单元测试
 */

package monitoring

import (
	"context"
	"errors"
	"testing"

	"dataquality-service/service/metrics"
	"dataquality-service/service/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// stubGrader 返回固定评分结果的评分器桩
type stubGrader struct {
	result     *models.GradeResult
	err        error
	gradeCalls int
}

func (s *stubGrader) Connect(ctx context.Context, source string) error { return nil }
func (s *stubGrader) GetAvailableUnits() ([]string, error)            { return nil, nil }
func (s *stubGrader) SetActiveUnit(name string) error                 { return nil }
func (s *stubGrader) Close() error                                    { return nil }
func (s *stubGrader) AddMetric(name string, m metrics.Metric) error   { return nil }
func (s *stubGrader) RemoveMetric(name string) error                  { return nil }
func (s *stubGrader) GetAvailableMetrics() []string                   { return nil }
func (s *stubGrader) GetSummary(graderType string) map[string]interface{} {
	return map[string]interface{}{}
}

func (s *stubGrader) Grade(ctx context.Context, metricNames []string) (*models.GradeResult, error) {
	s.gradeCalls++
	return s.result, s.err
}

func TestQualityMonitorRunNow(t *testing.T) {
	t.Run("评分结果写入监控指标", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		collector := NewCollector(registry)
		g := &stubGrader{
			result: &models.GradeResult{
				Metrics: map[string]*models.MetricResult{
					"completeness": {Score: 0.9, Status: models.StatusPassed},
					"accuracy":     {Score: 0.5, Status: models.StatusFailed},
				},
			},
		}

		monitor := NewQualityMonitor("用户表监控", g, collector, "@every 1h")
		monitor.RunNow()

		assert.Equal(t, 1, g.gradeCalls)
		assert.Equal(t, 0.9, testutil.ToFloat64(collector.metricScore.WithLabelValues("completeness")))
		assert.Equal(t, 0.5, testutil.ToFloat64(collector.metricScore.WithLabelValues("accuracy")))
		assert.Equal(t, 1, testutil.CollectAndCount(registry, "dq_grade_duration_seconds"))
	})

	t.Run("降级指标不计入总分", func(t *testing.T) {
		g := &stubGrader{
			result: &models.GradeResult{
				Metrics: map[string]*models.MetricResult{
					"completeness": {Score: 0.8, Status: models.StatusWarning},
					"consistency":  {Score: 0, Status: models.StatusFailed, Error: "评估崩溃"},
				},
			},
		}

		monitor := NewQualityMonitor("降级监控", g, NewCollector(prometheus.NewRegistry()), "@every 1h")
		monitor.RunNow()

		monitor.mutex.Lock()
		defer monitor.mutex.Unlock()
		assert.True(t, monitor.hasScore)
		assert.Equal(t, 0.8, monitor.lastScore)
	})

	t.Run("评分失败不记录得分", func(t *testing.T) {
		g := &stubGrader{err: errors.New("数据源不可用")}

		monitor := NewQualityMonitor("故障监控", g, NewCollector(prometheus.NewRegistry()), "@every 1h")
		monitor.RunNow()

		assert.Equal(t, 1, g.gradeCalls)
		monitor.mutex.Lock()
		defer monitor.mutex.Unlock()
		assert.False(t, monitor.hasScore)
	})
}

func TestQualityMonitorStartStop(t *testing.T) {
	g := &stubGrader{result: &models.GradeResult{Metrics: map[string]*models.MetricResult{}}}
	monitor := NewQualityMonitor("调度监控", g, nil, "@every 1h")

	assert.NoError(t, monitor.Start())
	assert.Error(t, monitor.Start(), "重复启动应当报错")

	monitor.Stop()
	// Stop 后允许再次启动
	assert.NoError(t, monitor.Start())
	monitor.Stop()
}

func TestQualityMonitorBadSchedule(t *testing.T) {
	monitor := NewQualityMonitor("坏表达式", &stubGrader{}, nil, "not-a-cron")
	assert.Error(t, monitor.Start())
}
