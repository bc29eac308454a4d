package util

import (
	"errors"
	"net/http"
	"newsreel_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Response 统一响应结构
type Response struct {
	Code     int               `json:"code"`
	Message  string            `json:"message"`
	Data     interface{}       `json:"data,omitempty"`
	APIError map[string]string `json:"apiError,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func Page(c *gin.Context, list interface{}, total int64, page, limit int) {
	Success(c, PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

func Error(c *gin.Context, code int, message string) {
	fail(c, code, message, nil)
}

// fail 4xx 响应统一带 apiError 字段
func fail(c *gin.Context, code int, message string, fields map[string]string) {
	resp := Response{Code: code, Message: message}
	if code >= 400 && code < 500 {
		if len(fields) == 0 {
			fields = map[string]string{"detail": message}
		}
		resp.APIError = fields
	}
	c.AbortWithStatusJSON(code, resp)
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, ErrPermissionDenied.Message)
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Not found.")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString("request_id")),
		zap.Error(err))
	InternalServerError(c)
}

// StatusOf 错误种类对应的 HTTP 状态码
func StatusOf(err error) int {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleError 按错误种类输出响应，未知错误记录日志后返回 500
func HandleError(c *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		LogInternalError(c, err)
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c)
		return
	}

	var appErr *AppError
	errors.As(err, &appErr)
	if status == http.StatusBadGateway {
		logger.Log.Warn("external service error", zap.Error(err))
	}
	fail(c, status, appErr.Message, appErr.Fields)
}

// BindError 请求参数绑定失败，转换为字段错误
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
		fail(c, http.StatusBadRequest, "Invalid input.", fields)
		return
	}
	fail(c, http.StatusBadRequest, "Invalid input.", map[string]string{"detail": err.Error()})
}
