package controller

import (
	"errors"
	"mime/multipart"
	"net/http"
	"newsreel_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// optionalFile 表单里没有该文件时返回 nil
func optionalFile(ctx *gin.Context, field string) (*multipart.FileHeader, error) {
	file, err := ctx.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	return file, err
}

// pathID 解析路径中的数字 id，失败时直接返回 404
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, ok := util.ParseID(ctx.Param(name))
	if !ok {
		util.NotFound(ctx)
	}
	return id, ok
}
