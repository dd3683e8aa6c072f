/*
 * @module service/metrics/timeliness_test
 * @description 及时性指标单元测试
 * @architecture 单元测试
 */

package metrics

import (
	"testing"
	"time"

	"dataquality-service/service/models"

	"github.com/stretchr/testify/assert"
)

var timelinessReference = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

// agedDataset 构造 updated_at 距参考日期分别为 1/10/30/90/180 天的数据集
func agedDataset(t *testing.T) *models.Dataset {
	t.Helper()
	ages := []int{1, 10, 30, 90, 180}
	values := make([]interface{}, len(ages))
	for i, days := range ages {
		values[i] = timelinessReference.AddDate(0, 0, -days).Format("2006-01-02")
	}
	ds := models.NewDataset()
	assert.NoError(t, ds.AddColumn("updated_at", models.KindTemporal, values))
	return ds
}

func TestTimelinessAgeCheck(t *testing.T) {
	t.Run("超过最大年龄的值计为不及时", func(t *testing.T) {
		m := NewTimelinessMetricWithReference("timeliness", timelinessReference)
		assert.NoError(t, m.AddAgeCheck("updated_at", 60, 0))

		result := m.Evaluate(agedDataset(t))

		// 1/10/30 天及时，90/180 天超龄
		assert.InDelta(t, 0.6, result.Score, 1e-9)
		assert.Equal(t, models.StatusFailed, result.Status)

		detail := result.Details["updated_at"].(*models.TimelinessDetail)
		assert.Equal(t, 3, detail.Timely)
		assert.Equal(t, 2, detail.Untimely)
		assert.Equal(t, 60, detail.MaxAgeDays)
		// warning 默认为最大年龄的一半
		assert.Equal(t, 30, detail.WarningAgeDays)
		assert.Equal(t, "age", detail.CheckType)
	})

	t.Run("无法解析的列整列判为不及时", func(t *testing.T) {
		ds := models.NewDataset()
		assert.NoError(t, ds.AddColumn("updated_at", models.KindText, []interface{}{"2024-06-01", "不是日期"}))

		m := NewTimelinessMetricWithReference("timeliness", timelinessReference)
		assert.NoError(t, m.AddAgeCheck("updated_at", 60, 0))

		result := m.Evaluate(ds)
		detail := result.Details["updated_at"].(*models.TimelinessDetail)
		assert.Equal(t, 0.0, detail.TimelinessScore)
		assert.Equal(t, 2, detail.Untimely)
		assert.Equal(t, models.StatusFailed, detail.Status)
	})

	t.Run("整列缺失视为满足", func(t *testing.T) {
		ds := models.NewDataset()
		assert.NoError(t, ds.AddColumn("updated_at", models.KindTemporal, []interface{}{nil, nil}))

		m := NewTimelinessMetricWithReference("timeliness", timelinessReference)
		assert.NoError(t, m.AddAgeCheck("updated_at", 60, 0))

		result := m.Evaluate(ds)
		detail := result.Details["updated_at"].(*models.TimelinessDetail)
		assert.Equal(t, 1.0, detail.TimelinessScore)
	})

	t.Run("列不存在判为failed", func(t *testing.T) {
		m := NewTimelinessMetricWithReference("timeliness", timelinessReference)
		assert.NoError(t, m.AddAgeCheck("no_such", 60, 0))

		result := m.Evaluate(agedDataset(t))
		detail := result.Details["no_such"].(*models.TimelinessDetail)
		assert.Equal(t, 0.0, detail.TimelinessScore)
		assert.Contains(t, detail.Message, "不存在")
	})

	t.Run("最大年龄必须为正", func(t *testing.T) {
		m := NewTimelinessMetricWithReference("timeliness", timelinessReference)
		err := m.AddAgeCheck("updated_at", 0, 0)
		assert.Error(t, err)
		assert.True(t, models.IsConfigurationError(err))
	})
}

func TestTimelinessFreshnessMerge(t *testing.T) {
	t.Run("同列双检查取较严格结果", func(t *testing.T) {
		m := NewTimelinessMetricWithReference("timeliness", timelinessReference)
		assert.NoError(t, m.AddAgeCheck("updated_at", 200, 0))
		assert.NoError(t, m.AddFreshnessCheck("updated_at", 20, 0))

		result := m.Evaluate(agedDataset(t))

		// age 检查全部及时（1.0），freshness 仅 2 个及时（0.4），取 0.4
		detail := result.Details["updated_at"].(*models.TimelinessDetail)
		assert.InDelta(t, 0.4, detail.TimelinessScore, 1e-9)
		assert.Equal(t, "freshness", detail.CheckType)
		assert.InDelta(t, 0.4, result.Score, 1e-9)
	})

	t.Run("多列取均值", func(t *testing.T) {
		ds := agedDataset(t)
		recent := make([]interface{}, 5)
		for i := range recent {
			recent[i] = timelinessReference.AddDate(0, 0, -1).Format("2006-01-02")
		}
		assert.NoError(t, ds.AddColumn("created_at", models.KindTemporal, recent))

		m := NewTimelinessMetricWithReference("timeliness", timelinessReference)
		assert.NoError(t, m.AddAgeCheck("updated_at", 60, 0))
		assert.NoError(t, m.AddAgeCheck("created_at", 60, 0))

		result := m.Evaluate(ds)
		// updated_at 0.6，created_at 1.0
		assert.InDelta(t, 0.8, result.Score, 1e-9)
	})
}

func TestTimelinessEvaluate(t *testing.T) {
	t.Run("未配置检查得满分", func(t *testing.T) {
		m := NewTimelinessMetricWithReference("timeliness", timelinessReference)
		result := m.Evaluate(agedDataset(t))
		assert.Equal(t, 1.0, result.Score)
		assert.Equal(t, models.StatusPassed, result.Status)
	})

	t.Run("空数据集降级为failed", func(t *testing.T) {
		m := NewTimelinessMetricWithReference("timeliness", timelinessReference)
		assert.NoError(t, m.AddAgeCheck("updated_at", 60, 0))
		result := m.Evaluate(models.NewDataset())
		assert.Equal(t, 0.0, result.Score)
		assert.Equal(t, models.StatusFailed, result.Status)
	})

	t.Run("参考日期截断到日期", func(t *testing.T) {
		m := NewTimelinessMetricWithReference("timeliness", time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC))
		assert.Equal(t, timelinessReference, m.ReferenceDate())
	})
}
