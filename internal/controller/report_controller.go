package controller

import (
	"newsreel_backend/internal/service"
	"newsreel_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReportController struct {
	ReportService *service.ReportService
}

func NewReportController(reportService *service.ReportService) *ReportController {
	return &ReportController{ReportService: reportService}
}

// CreateReport godoc
// @Summary 举报
// @Description user、post、reply、review 四个字段恰好填一个
// @Tags 举报
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ReportRequest true "举报目标"
// @Success 201 {object} util.Response{data=model.Report} "创建成功"
// @Failure 400 {object} util.Response "目标无效"
// @Router /api/v1/reports [post]
func (c *ReportController) CreateReport(ctx *gin.Context) {
	var req service.ReportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	report, err := c.ReportService.Create(ctx.Request.Context(), util.CurrentUserID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, report)
}
