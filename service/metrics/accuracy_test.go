/*
 * @module service/metrics/accuracy_test
 * @description 准确性指标单元测试
 * @architecture 单元测试
 */

package metrics

import (
	"testing"

	"dataquality-service/service/models"

	"github.com/stretchr/testify/assert"
)

func floatPtr(f float64) *float64 { return &f }

func buildAccuracyDataset(t *testing.T) *models.Dataset {
	t.Helper()
	ds := models.NewDataset()
	assert.NoError(t, ds.AddColumn("age", models.KindNumeric, []interface{}{25.0, -5.0, 120.0, 45.0, 30.0}))
	assert.NoError(t, ds.AddColumn("email", models.KindText, []interface{}{
		"a@example.com", "b@example.com", "not-an-email", "d@example.com", nil,
	}))
	assert.NoError(t, ds.AddColumn("status", models.KindText, []interface{}{
		"active", "inactive", "active", "unknown", "active",
	}))
	return ds
}

func TestAccuracyRangeCheck(t *testing.T) {
	t.Run("超出范围的值计为无效", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		assert.NoError(t, m.AddRangeCheck("age", floatPtr(0), floatPtr(100)))

		result := m.Evaluate(buildAccuracyDataset(t))

		// -5 和 120 超出 [0,100]
		assert.InDelta(t, 0.6, result.Score, 1e-9)
		assert.Equal(t, models.StatusFailed, result.Status)

		detail := result.Details["age"].(*models.AccuracyDetail)
		assert.Equal(t, 3, detail.Valid)
		assert.Equal(t, 2, detail.Invalid)
		assert.Equal(t, models.StatusFailed, detail.Status)
	})

	t.Run("只有单边界限", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		assert.NoError(t, m.AddRangeCheck("age", floatPtr(0), nil))

		result := m.Evaluate(buildAccuracyDataset(t))
		detail := result.Details["age"].(*models.AccuracyDetail)
		assert.Equal(t, 4, detail.Valid)
		assert.Equal(t, 1, detail.Invalid)
	})

	t.Run("无界限返回配置错误", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		err := m.AddRangeCheck("age", nil, nil)
		assert.Error(t, err)
		assert.True(t, models.IsConfigurationError(err))
	})

	t.Run("非数值列整列计为无效", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		assert.NoError(t, m.AddRangeCheck("status", floatPtr(0), floatPtr(1)))

		result := m.Evaluate(buildAccuracyDataset(t))
		detail := result.Details["status"].(*models.AccuracyDetail)
		assert.Equal(t, 0, detail.Valid)
		assert.Equal(t, 5, detail.Invalid)
		assert.Contains(t, detail.Message, "不是数值类型")
	})
}

func TestAccuracyPatternCheck(t *testing.T) {
	t.Run("模式检查为全串匹配", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		assert.NoError(t, m.AddPatternCheck("email", `[^@\s]+@[^@\s]+\.[a-zA-Z]{2,}`))

		result := m.Evaluate(buildAccuracyDataset(t))

		// 缺失值不参与检查，4 个非空值中 1 个不匹配
		detail := result.Details["email"].(*models.AccuracyDetail)
		assert.Equal(t, 3, detail.Valid)
		assert.Equal(t, 1, detail.Invalid)
		assert.InDelta(t, 0.75, result.Score, 1e-9)
		assert.Equal(t, models.StatusWarning, result.Status)
	})

	t.Run("部分匹配不算通过", func(t *testing.T) {
		ds := models.NewDataset()
		assert.NoError(t, ds.AddColumn("code", models.KindText, []interface{}{"AB12", "AB123"}))

		m := NewAccuracyMetric("accuracy")
		assert.NoError(t, m.AddPatternCheck("code", `[A-Z]{2}\d{2}`))

		result := m.Evaluate(ds)
		detail := result.Details["code"].(*models.AccuracyDetail)
		assert.Equal(t, 1, detail.Valid)
		assert.Equal(t, 1, detail.Invalid)
	})

	t.Run("非法正则返回配置错误", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		err := m.AddPatternCheck("email", `[unclosed`)
		assert.Error(t, err)
		assert.True(t, models.IsConfigurationError(err))
	})
}

func TestAccuracyCategoricalCheck(t *testing.T) {
	t.Run("不在允许集合的值计为无效", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		assert.NoError(t, m.AddCategoricalCheck("status", []interface{}{"active", "inactive"}))

		result := m.Evaluate(buildAccuracyDataset(t))
		detail := result.Details["status"].(*models.AccuracyDetail)
		assert.Equal(t, 4, detail.Valid)
		assert.Equal(t, 1, detail.Invalid)
	})

	t.Run("空允许集合返回配置错误", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		err := m.AddCategoricalCheck("status", nil)
		assert.Error(t, err)
		assert.True(t, models.IsConfigurationError(err))
	})
}

func TestAccuracyEvaluate(t *testing.T) {
	t.Run("多检查按总有效比例汇总", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		assert.NoError(t, m.AddRangeCheck("age", floatPtr(0), floatPtr(100)))
		assert.NoError(t, m.AddCategoricalCheck("status", []interface{}{"active", "inactive"}))

		result := m.Evaluate(buildAccuracyDataset(t))

		// age: 3/5 有效，status: 4/5 有效，整体 7/10
		assert.InDelta(t, 0.7, result.Score, 1e-9)
	})

	t.Run("未配置检查得满分", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		result := m.Evaluate(buildAccuracyDataset(t))
		assert.Equal(t, 1.0, result.Score)
		assert.Equal(t, models.StatusPassed, result.Status)
	})

	t.Run("列不存在不中断评估", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		assert.NoError(t, m.AddRangeCheck("no_such_column", floatPtr(0), floatPtr(1)))
		assert.NoError(t, m.AddRangeCheck("age", floatPtr(0), floatPtr(100)))

		result := m.Evaluate(buildAccuracyDataset(t))
		assert.InDelta(t, 0.6, result.Score, 1e-9)

		detail := result.Details["no_such_column"].(*models.AccuracyDetail)
		assert.Equal(t, models.StatusSkipped, detail.Status)
		assert.Contains(t, detail.Message, "不存在")
	})

	t.Run("空数据集降级为failed", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		assert.NoError(t, m.AddRangeCheck("age", floatPtr(0), nil))
		result := m.Evaluate(models.NewDataset())
		assert.Equal(t, 0.0, result.Score)
		assert.Equal(t, models.StatusFailed, result.Status)
	})

	t.Run("Clear清空全部检查", func(t *testing.T) {
		m := NewAccuracyMetric("accuracy")
		assert.NoError(t, m.AddRangeCheck("age", floatPtr(0), floatPtr(100)))
		m.Clear()
		result := m.Evaluate(buildAccuracyDataset(t))
		assert.Equal(t, 1.0, result.Score)
	})
}
