package handler

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"

	"ats-match-go/internal/config"
	"ats-match-go/internal/storage"
	"ats-match-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// ApplicationListHandler 处理职位维度的申请分页查询
type ApplicationListHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	logger  *log.Logger
}

// NewApplicationListHandler 创建申请列表处理器
func NewApplicationListHandler(cfg *config.Config, storage *storage.Storage) *ApplicationListHandler {
	return &ApplicationListHandler{
		cfg:     cfg,
		storage: storage,
		logger:  log.New(os.Stdout, "[ApplicationList] ", log.LstdFlags),
	}
}

// applicationItem 列表响应里的单条申请
type applicationItem struct {
	ApplicationID   string   `json:"application_id"`
	JobID           string   `json:"job_id"`
	CandidateName   string   `json:"candidate_name"`
	CandidateEmail  string   `json:"candidate_email"`
	Score           float64  `json:"score"`
	MatchedKeywords []string `json:"matched_keywords"`
	MissingKeywords []string `json:"missing_keywords"`
	Status          string   `json:"status"`
	AppliedAt       string   `json:"applied_at"`
}

// HandleListByJob 处理 GET /api/v1/jobs/:job_id/applications。
// 列表按分数降序排列，cursor 为上一页返回的不透明游标，
// size 限制在 1-100，默认 20；next_cursor 为空表示没有更多数据。
func (h *ApplicationListHandler) HandleListByJob(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "job_id不能为空",
		})
		return
	}

	cursor := c.Query("cursor")
	size := 20
	if sizeStr := c.Query("size"); sizeStr != "" {
		if val, err := strconv.Atoi(sizeStr); err == nil {
			size = val
		}
	}
	if size < 1 {
		size = 1
	}
	if size > 100 {
		size = 100
	}

	apps, nextCursor, err := h.storage.MySQL.ListApplicationsByJob(ctx, jobID, cursor, size)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCursor) {
			c.JSON(consts.StatusBadRequest, map[string]interface{}{
				"error": "cursor参数不合法",
			})
			return
		}
		h.logger.Printf("查询职位 %s 的申请列表失败: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "查询申请列表失败",
		})
		return
	}

	items := make([]applicationItem, 0, len(apps))
	for i := range apps {
		items = append(items, h.toItem(&apps[i]))
	}

	c.JSON(consts.StatusOK, map[string]interface{}{
		"job_id":       jobID,
		"applications": items,
		"next_cursor":  nextCursor,
		"size":         size,
	})
}

// toItem 把数据库行转换为响应条目，JSON列解析失败时退化为空列表
func (h *ApplicationListHandler) toItem(app *models.Application) applicationItem {
	matched, err := models.JSONToStrings(app.MatchedKeywordsJSON)
	if err != nil {
		h.logger.Printf("解析申请 %s 的命中关键词失败: %v", app.ApplicationID, err)
	}
	missing, err := models.JSONToStrings(app.MissingKeywordsJSON)
	if err != nil {
		h.logger.Printf("解析申请 %s 的缺失关键词失败: %v", app.ApplicationID, err)
	}
	if matched == nil {
		matched = []string{}
	}
	if missing == nil {
		missing = []string{}
	}

	return applicationItem{
		ApplicationID:   app.ApplicationID,
		JobID:           app.JobID,
		CandidateName:   app.CandidateName,
		CandidateEmail:  app.CandidateEmail,
		Score:           app.ATSScore,
		MatchedKeywords: matched,
		MissingKeywords: missing,
		Status:          app.Status,
		AppliedAt:       app.AppliedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
