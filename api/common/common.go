package common

import (
	"log"
	"net/http"

	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/gin-gonic/gin"
)

type Response struct {
	Status string      `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data,omitempty"`
}

// ErrorBody 重定向和导入接口的错误格式
type ErrorBody struct {
	Error string `json:"error"`
}

func Respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Status: status,
		Msg:    message,
		Data:   data,
	})
}

// RespondSuccess sends a success response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "success", "", data)
}

// RespondSuccessMessage sends a success response with message and data.
func RespondSuccessMessage(c *gin.Context, message string, data interface{}) {
	Respond(c, http.StatusOK, "success", message, data)
}

// RespondError sends an error response with message.
func RespondError(c *gin.Context, httpStatus int, message string) {
	Respond(c, httpStatus, "error", message, nil)
}

// RespondErrorAbort 中间件使用，写入错误后终止后续处理
func RespondErrorAbort(c *gin.Context, httpStatus int, message string) {
	RespondError(c, httpStatus, message)
	c.Abort()
}

// StatusFor apperr 分类到 HTTP 状态码，remote 为远端失败时使用的状态码
func StatusFor(err error, remote int) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRemote:
		return remote
	}
	return http.StatusInternalServerError
}

// RespondAppError 按错误分类返回，服务端错误不暴露细节
func RespondAppError(c *gin.Context, err error) {
	status := StatusFor(err, http.StatusInternalServerError)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		RespondError(c, status, "Internal server error")
		return
	}
	RespondError(c, status, apperr.Message(err))
}

// RespondErrorBody 以 {error} 格式返回
func RespondErrorBody(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorBody{Error: message})
}
