package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// jsonError 统一的错误响应格式
func jsonError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// serverError 存储层错误原样记日志，对外只报 500，不降级成空结果
func serverError(c *gin.Context, err error) {
	log.Printf("internal error: %v", err)
	jsonError(c, http.StatusInternalServerError, "internal server error")
}
