/*
 * @module api/controllers/grader_controller_test
 * @description 评分器管理控制器单元测试
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 创建评分器 -> 并发评分与查询 -> 关闭释放
 * @rules 同一评分器上的并发请求必须全部成功且互不干扰
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGraderRouter() (*chi.Mux, *GraderController) {
	controller := NewGraderController(nil)
	r := chi.NewRouter()
	r.Route("/graders", func(r chi.Router) {
		r.Post("/", controller.CreateGrader)
		r.Get("/", controller.ListGraders)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", controller.GetGrader)
			r.Delete("/", controller.CloseGrader)
			r.Get("/units", controller.GetUnits)
			r.Put("/active-unit", controller.SetActiveUnit)
			r.Post("/grade", controller.Grade)
		})
	})
	return r, controller
}

func writeGraderCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.csv")
	content := "name,age\n张三,25\n李四,\n王五,30\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func doJSON(t *testing.T, router *chi.Mux, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, url, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createCSVGrader(t *testing.T, router *chi.Mux) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/graders", map[string]interface{}{
		"name":   "用户表评分器",
		"kind":   "excel",
		"source": writeGraderCSV(t),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	id, ok := data["id"].(string)
	require.True(t, ok)
	return id
}

// TestGraderLifecycle 测试评分器的创建、评分与关闭
func TestGraderLifecycle(t *testing.T) {
	router, _ := newGraderRouter()
	id := createCSVGrader(t, router)

	t.Run("评分返回完整指标结果", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/graders/"+id+"/grade", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response APIResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response.Data.(map[string]interface{})
		metrics, ok := data["metrics"].(map[string]interface{})
		require.True(t, ok)
		assert.Len(t, metrics, 4)
	})

	t.Run("摘要包含最近一次评分", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/graders/"+id, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response APIResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		summary := response.Data.(map[string]interface{})
		assert.Equal(t, true, summary["has_results"])
	})

	t.Run("关闭后评分器不可见", func(t *testing.T) {
		w := doJSON(t, router, http.MethodDelete, "/graders/"+id, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodPost, "/graders/"+id+"/grade", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// TestGraderConcurrentRequests 测试同一评分器上的并发评分、查询与单元切换
func TestGraderConcurrentRequests(t *testing.T) {
	router, _ := newGraderRouter()
	id := createCSVGrader(t, router)

	var wg sync.WaitGroup
	codes := make(chan int, 30)
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			w := doJSON(t, router, http.MethodPost, "/graders/"+id+"/grade", nil)
			codes <- w.Code
		}()
		go func() {
			defer wg.Done()
			w := doJSON(t, router, http.MethodGet, "/graders/"+id, nil)
			codes <- w.Code
		}()
		go func() {
			defer wg.Done()
			w := doJSON(t, router, http.MethodPut, "/graders/"+id+"/active-unit",
				map[string]interface{}{"unit": "Sheet1"})
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}
