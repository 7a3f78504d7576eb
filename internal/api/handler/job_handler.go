package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"ats-match-go/internal/config"
	"ats-match-go/internal/constants"
	"ats-match-go/internal/storage"
	"ats-match-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"
)

// JobKeywordResolver 职位生效关键词的解析接口，由评分流水线的关键词组件实现
type JobKeywordResolver interface {
	KeywordsForJob(ctx context.Context, jobID string) ([]string, bool, error)
}

// JobHandler 处理职位管理相关的请求
type JobHandler struct {
	cfg      *config.Config
	storage  *storage.Storage
	keywords JobKeywordResolver
	logger   *log.Logger
}

// NewJobHandler 创建职位处理器
func NewJobHandler(cfg *config.Config, storage *storage.Storage, keywords JobKeywordResolver) *JobHandler {
	return &JobHandler{
		cfg:      cfg,
		storage:  storage,
		keywords: keywords,
		logger:   log.New(os.Stdout, "[JobHandler] ", log.LstdFlags),
	}
}

// createJobRequest 创建职位的请求体
type createJobRequest struct {
	Title           string   `json:"title"`
	Department      string   `json:"department"`
	Location        string   `json:"location"`
	DescriptionText string   `json:"description_text"`
	RequiredSkills  []string `json:"required_skills"`
	CreatedBy       string   `json:"created_by"`
}

// HandleCreateJob 处理 POST /api/v1/jobs
func (h *JobHandler) HandleCreateJob(ctx context.Context, c *app.RequestContext) {
	var req createJobRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "请求体格式错误",
		})
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "title不能为空",
		})
		return
	}
	if strings.TrimSpace(req.DescriptionText) == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "description_text不能为空",
		})
		return
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		h.logger.Printf("生成职位UUID失败: %v", err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "创建职位失败",
		})
		return
	}

	skillsJSON, err := models.StringsToJSON(req.RequiredSkills)
	if err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "required_skills格式错误",
		})
		return
	}

	job := &models.Job{
		JobID:              uuidV7.String(),
		Title:              req.Title,
		Department:         req.Department,
		Location:           req.Location,
		DescriptionText:    req.DescriptionText,
		RequiredSkillsJSON: skillsJSON,
		Status:             "ACTIVE",
		CreatedByUserID:    req.CreatedBy,
	}

	if err := h.storage.MySQL.CreateJob(ctx, job); err != nil {
		h.logger.Printf("创建职位失败: %v", err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "创建职位失败",
		})
		return
	}

	h.logger.Printf("职位 %s 创建成功: %s", job.JobID, job.Title)
	c.JSON(consts.StatusCreated, map[string]interface{}{
		"job_id": job.JobID,
		"title":  job.Title,
		"status": job.Status,
	})
}

// HandleGetJob 处理 GET /api/v1/jobs/:job_id。
// 响应里带上评分时实际生效的关键词列表，以及它们是否由描述推导。
func (h *JobHandler) HandleGetJob(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "job_id不能为空",
		})
		return
	}

	job, err := h.storage.MySQL.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]interface{}{
				"error": "职位不存在",
			})
			return
		}
		h.logger.Printf("查询职位 %s 失败: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "查询职位失败",
		})
		return
	}

	configured, err := models.JSONToStrings(job.RequiredSkillsJSON)
	if err != nil {
		h.logger.Printf("解析职位 %s 的关键词列失败: %v", jobID, err)
		configured = nil
	}

	// 生效关键词走与评分一致的解析链路，显式配置缺省时会回落到描述推导
	effective := configured
	derived := false
	if h.keywords != nil {
		if resolved, resolvedDerived, kwErr := h.keywords.KeywordsForJob(ctx, jobID); kwErr == nil {
			effective = resolved
			derived = resolvedDerived
		} else {
			h.logger.Printf("解析职位 %s 的生效关键词失败: %v", jobID, kwErr)
		}
	}

	c.JSON(consts.StatusOK, map[string]interface{}{
		"job_id":             job.JobID,
		"title":              job.Title,
		"department":         job.Department,
		"location":           job.Location,
		"description_text":   job.DescriptionText,
		"required_skills":    configured,
		"effective_keywords": effective,
		"keywords_derived":   derived,
		"status":             job.Status,
		"created_at":         job.CreatedAt,
	})
}

// updateKeywordsRequest 更新职位关键词的请求体
type updateKeywordsRequest struct {
	Keywords  []string `json:"keywords"`
	ChangedBy string   `json:"changed_by"`
}

// HandleUpdateKeywords 处理 PUT /api/v1/jobs/:job_id/keywords。
// 关键词更新与 job.keywords_changed 事件在同一事务提交，
// 事件触发该职位下全部申请的异步重评；本地关键词缓存同步失效。
func (h *JobHandler) HandleUpdateKeywords(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "job_id不能为空",
		})
		return
	}

	var req updateKeywordsRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "请求体格式错误",
		})
		return
	}

	// 清理空白关键词，保持与评分端一致
	keywords := make([]string, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		if trimmed := strings.TrimSpace(kw); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}

	event := storage.JobKeywordsChangedMessage{
		JobID:     jobID,
		Keywords:  keywords,
		ChangedAt: time.Now(),
		ChangedBy: req.ChangedBy,
	}
	outboxMsg, err := models.NewOutboxMessage(jobID, constants.EventJobKeywordsChanged,
		h.cfg.RabbitMQ.EventsExchange, h.cfg.RabbitMQ.KeywordsChangedRouting, event)
	if err != nil {
		h.logger.Printf("构造关键词变更事件失败: %v", err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "更新职位关键词失败",
		})
		return
	}

	if err := h.storage.MySQL.UpdateJobKeywords(ctx, jobID, keywords, outboxMsg); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]interface{}{
				"error": "职位不存在",
			})
			return
		}
		h.logger.Printf("更新职位 %s 关键词失败: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "更新职位关键词失败",
		})
		return
	}

	// 缓存失效失败只降级：TTL到期后自然收敛到新关键词
	if h.storage.Redis != nil {
		if err := h.storage.Redis.InvalidateJobKeywords(ctx, jobID); err != nil {
			h.logger.Printf("失效职位 %s 的关键词缓存失败: %v", jobID, err)
		}
	}

	c.JSON(consts.StatusOK, map[string]interface{}{
		"job_id":   jobID,
		"keywords": keywords,
	})
}
