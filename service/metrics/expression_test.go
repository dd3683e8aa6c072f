/*
 * @module service/metrics/expression_test
 * @description 布尔表达式解析与求值单元测试
 * @architecture 单元测试
 */

package metrics

import (
	"testing"

	"dataquality-service/service/models"

	"github.com/stretchr/testify/assert"
)

// mapAccessor 以 map 模拟一行数据，nil 值表示缺失
func mapAccessor(row map[string]interface{}) RowAccessor {
	return func(column string) (interface{}, bool, error) {
		v, ok := row[column]
		if !ok {
			return nil, false, assert.AnError
		}
		if models.IsMissing(v) {
			return nil, false, nil
		}
		return v, true, nil
	}
}

func evalExpr(t *testing.T, input string, row map[string]interface{}) bool {
	t.Helper()
	expr, err := ParseExpression(input)
	assert.NoError(t, err)
	result, err := expr.Eval(mapAccessor(row))
	assert.NoError(t, err)
	return result
}

func TestParseExpression(t *testing.T) {
	t.Run("比较与逻辑组合", func(t *testing.T) {
		row := map[string]interface{}{"age": 25.0, "score": 88.0, "active": true}

		assert.True(t, evalExpr(t, "age >= 18", row))
		assert.False(t, evalExpr(t, "age < 18", row))
		assert.True(t, evalExpr(t, "age >= 18 and score > 60", row))
		assert.True(t, evalExpr(t, "age < 18 or score > 60", row))
		assert.True(t, evalExpr(t, "not (age < 18)", row))
		assert.True(t, evalExpr(t, "age >= 18 && active == true", row))
		assert.True(t, evalExpr(t, "age < 18 || active", row))
	})

	t.Run("字符串字面量比较", func(t *testing.T) {
		row := map[string]interface{}{"status": "active"}
		assert.True(t, evalExpr(t, "status == 'active'", row))
		assert.True(t, evalExpr(t, `status != "inactive"`, row))
	})

	t.Run("负数字面量", func(t *testing.T) {
		row := map[string]interface{}{"delta": -3.0}
		assert.True(t, evalExpr(t, "delta >= -5", row))
		assert.False(t, evalExpr(t, "delta >= 0", row))
	})

	t.Run("裸布尔列与布尔字面量", func(t *testing.T) {
		assert.True(t, evalExpr(t, "is_adult", map[string]interface{}{"is_adult": true}))
		assert.False(t, evalExpr(t, "is_adult", map[string]interface{}{"is_adult": false}))
		assert.True(t, evalExpr(t, "is_adult == True", map[string]interface{}{"is_adult": true}))
		assert.False(t, evalExpr(t, "not true", map[string]interface{}{}))
	})

	t.Run("关键字大小写不敏感", func(t *testing.T) {
		row := map[string]interface{}{"age": 25.0}
		assert.True(t, evalExpr(t, "age >= 18 AND age <= 100", row))
		assert.True(t, evalExpr(t, "NOT (age > 100)", row))
	})
}

func TestParseExpressionErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"空表达式", ""},
		{"单等号", "age = 18"},
		{"字符串未闭合", "status == 'active"},
		{"多余内容", "age >= 18 age"},
		{"缺少右括号", "(age >= 18"},
		{"孤立数值字面量", "42"},
		{"无法识别的字符", "age >= 18 # comment"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseExpression(tc.input)
			assert.Error(t, err)
		})
	}
}

func TestExpressionMissingValues(t *testing.T) {
	t.Run("缺失值参与比较结果为false", func(t *testing.T) {
		row := map[string]interface{}{"age": nil}
		assert.False(t, evalExpr(t, "age >= 18", row))
		// not 将缺失比较的 false 取反
		assert.True(t, evalExpr(t, "not (age >= 18)", row))
	})

	t.Run("未知列返回错误", func(t *testing.T) {
		expr, err := ParseExpression("no_such >= 1")
		assert.NoError(t, err)
		_, err = expr.Eval(mapAccessor(map[string]interface{}{}))
		assert.Error(t, err)
	})
}

func TestCompareValues(t *testing.T) {
	t.Run("数值比较", func(t *testing.T) {
		ok, err := CompareValues(3.0, "<", 5.0)
		assert.NoError(t, err)
		assert.True(t, ok)

		// 数值字符串按数值比较
		ok, err = CompareValues("10", ">", "9")
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("字符串字典序比较", func(t *testing.T) {
		ok, err := CompareValues("apple", "<", "banana")
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("时间值按时间比较", func(t *testing.T) {
		ok, err := CompareValues("2024-01-01", "<", "2024-06-01")
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("布尔值仅支持相等比较", func(t *testing.T) {
		ok, err := CompareValues(true, "==", true)
		assert.NoError(t, err)
		assert.True(t, ok)

		_, err = CompareValues(true, "<", false)
		assert.Error(t, err)

		// 单侧布尔值同样走相等性比较，不得按 0/1 参与大小比较
		ok, err = CompareValues(true, "==", 1)
		assert.NoError(t, err)
		assert.True(t, ok)

		_, err = CompareValues(1, ">", false)
		assert.Error(t, err)
	})

	t.Run("非法操作符返回错误", func(t *testing.T) {
		_, err := CompareValues(1.0, "<>", 2.0)
		assert.Error(t, err)
	})
}

func TestDatasetRowAccessor(t *testing.T) {
	ds := models.NewDataset()
	assert.NoError(t, ds.AddColumn("age", models.KindNumeric, []interface{}{25.0, nil}))

	accessor := DatasetRowAccessor(ds, 0)
	v, ok, err := accessor("age")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 25.0, v)

	accessor = DatasetRowAccessor(ds, 1)
	_, ok, err = accessor("age")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = accessor("missing")
	assert.Error(t, err)
}
