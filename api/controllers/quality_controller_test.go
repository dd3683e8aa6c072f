/*
 * @module api/controllers/quality_controller_test
 * @description 质量分析控制器单元测试
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 测试准备 -> 请求构建 -> 响应验证
 * @rules 确保分析API的正确性和错误码映射
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postAnalyze(t *testing.T, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	controller := NewQualityController(nil)
	req := httptest.NewRequest(http.MethodPost, "/quality/analyze", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	controller.Analyze(w, req)
	return w
}

// TestAnalyzeInlineDataset 测试内联数据集质量分析
func TestAnalyzeInlineDataset(t *testing.T) {
	minAge := 0.0
	maxAge := 100.0

	body := map[string]interface{}{
		"columns": []map[string]interface{}{
			{"name": "name", "kind": "text"},
			{"name": "age", "kind": "numeric"},
		},
		"records": []map[string]interface{}{
			{"name": "张三", "age": 25},
			{"name": "李四", "age": 150},
			{"name": "王五", "age": nil},
		},
		"rules": map[string]interface{}{
			"range": []map[string]interface{}{
				{"column": "age", "min": minAge, "max": maxAge},
			},
		},
	}

	w := postAnalyze(t, body)
	assert.Equal(t, http.StatusOK, w.Code)

	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 0, response.Status)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok, "响应数据应该是map类型")
	assert.Contains(t, data, "analysis_id")
	assert.Contains(t, data, "overall_score")

	metrics, ok := data["metrics"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, metrics, 4)
}

// TestAnalyzeValidation 测试请求校验与错误码映射
func TestAnalyzeValidation(t *testing.T) {
	t.Run("缺少列定义返回400", func(t *testing.T) {
		w := postAnalyze(t, map[string]interface{}{
			"records": []map[string]interface{}{{"a": 1}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("非法规则返回400", func(t *testing.T) {
		w := postAnalyze(t, map[string]interface{}{
			"columns": []map[string]interface{}{{"name": "age", "kind": "numeric"}},
			"records": []map[string]interface{}{{"age": 25}},
			"rules": map[string]interface{}{
				"pattern": []map[string]interface{}{
					{"column": "age", "pattern": "[unclosed"},
				},
			},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("非法JSON返回400", func(t *testing.T) {
		controller := NewQualityController(nil)
		req := httptest.NewRequest(http.MethodPost, "/quality/analyze", bytes.NewReader([]byte("{不是json")))
		w := httptest.NewRecorder()
		controller.Analyze(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
