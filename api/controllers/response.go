package controllers

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// Success 写入成功响应
func Success(w http.ResponseWriter, r *http.Request, msg string, data interface{}) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, &APIResponse{Status: 0, Msg: msg, Data: data})
}

// Fail 写入失败响应，statusCode 为HTTP状态码
func Fail(w http.ResponseWriter, r *http.Request, statusCode int, msg string) {
	render.Status(r, statusCode)
	render.JSON(w, r, &APIResponse{Status: statusCode, Msg: msg})
}
