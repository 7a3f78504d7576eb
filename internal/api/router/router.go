package router

import (
	"context"

	"ats-match-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz,
	applicationHandler *handler.ApplicationHandler,
	listHandler *handler.ApplicationListHandler,
	jobHandler *handler.JobHandler,
) {
	api := h.Group("/api/v1")

	// 投递评分：score 只预览，confirm 落库
	api.POST("/applications", applicationHandler.HandleApply)
	api.PATCH("/applications/:application_id/status", applicationHandler.HandleUpdateStatus)

	// 职位管理
	api.POST("/jobs", jobHandler.HandleCreateJob)
	api.GET("/jobs/:job_id", jobHandler.HandleGetJob)
	api.PUT("/jobs/:job_id/keywords", jobHandler.HandleUpdateKeywords)
	api.GET("/jobs/:job_id/applications", listHandler.HandleListByJob)

	// 添加健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
