package handler

import (
	"Orion_Tube/internal/apperr"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 定义了标准的API错误响应结构
type ErrorResponse struct {
	Error string `json:"error"`
}

// sendErrorResponse 是一个辅助函数，用于发送标准格式的错误响应
func sendErrorResponse(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Error: message})
}

// sendServiceError 按业务错误类型选状态码；500 不把内部错误透给客户端
func sendServiceError(c *gin.Context, err error, fallback string) {
	code := apperr.HTTPStatus(err)
	if code == http.StatusInternalServerError {
		sendErrorResponse(c, code, fallback)
		return
	}
	sendErrorResponse(c, code, err.Error())
}

// currentUserID 取出认证中间件放进context的userID，中间件已经转成了uint64
func currentUserID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	userID, ok := v.(uint64)
	return userID, ok && userID != 0
}

// requireUserID 未认证时直接返回401
func requireUserID(c *gin.Context) (uint64, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		sendErrorResponse(c, http.StatusUnauthorized, "用户未认证")
	}
	return userID, ok
}

// pathID URL中取回的是str，统一转化为uint64
func pathID(c *gin.Context, name, message string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		sendErrorResponse(c, http.StatusBadRequest, message)
		return 0, false
	}
	return id, true
}
