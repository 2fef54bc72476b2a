package controllers

import (
	"errors"
	"io/fs"
	"net/http"

	"datacontract-service/service/ingestion"
	"datacontract-service/service/models"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Limit  int         `json:"limit" example:"100"`
	Offset int         `json:"offset" example:"0"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 0, Msg: msg, Data: data}
}

// ErrorResponse 失败响应，err 不为空时追加错误信息
func ErrorResponse(msg string, err error) *APIResponse {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &APIResponse{Status: 1, Msg: msg}
}

// renderJSON 以指定HTTP状态码输出响应
func renderJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	render.Status(r, code)
	render.JSON(w, r, v)
}

// renderError 按错误类型映射HTTP状态码
func renderError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	renderJSON(w, r, statusFor(err), ErrorResponse(msg, err))
}

func statusFor(err error) int {
	var cfgErr *models.ConfigurationError
	var fmtErr *ingestion.FormatError
	switch {
	case errors.Is(err, models.ErrContractNotFound), errors.Is(err, models.ErrResultNotFound):
		return http.StatusNotFound
	case errors.As(err, &cfgErr), errors.As(err, &fmtErr), errors.Is(err, fs.ErrNotExist):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
