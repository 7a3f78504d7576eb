package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"ats-match-go/internal/config"
	"ats-match-go/internal/constants"
	"ats-match-go/internal/processor"
	"ats-match-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"
)

// ApplicationHandler 处理投递评分相关的请求
type ApplicationHandler struct {
	cfg       *config.Config
	storage   *storage.Storage
	processor *processor.ApplicationProcessor
	logger    *log.Logger
}

// NewApplicationHandler 创建投递处理器
func NewApplicationHandler(cfg *config.Config, storage *storage.Storage, proc *processor.ApplicationProcessor) *ApplicationHandler {
	return &ApplicationHandler{
		cfg:       cfg,
		storage:   storage,
		processor: proc,
		logger:    log.New(os.Stdout, "[ApplicationHandler] ", log.LstdFlags),
	}
}

// scoreResponse 评分预览的响应体
type scoreResponse struct {
	JobID            string   `json:"job_id"`
	Score            float64  `json:"score"`
	MatchedKeywords  []string `json:"matched_keywords"`
	MissingKeywords  []string `json:"missing_keywords"`
	KeywordsDerived  bool     `json:"keywords_derived"`
	ExtractionFailed string   `json:"extraction_failure,omitempty"`
}

// HandleApply 处理 POST /api/v1/applications (multipart)。
// 表单字段: job_id(必填), action=score|confirm(默认score),
// resume_id 与 file 二选一，candidate_name/candidate_email 可选。
// score 只返回评分不落库，confirm 落库申请记录并归档文件。
func (h *ApplicationHandler) HandleApply(ctx context.Context, c *app.RequestContext) {
	jobID := string(c.FormValue("job_id"))
	if jobID == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "job_id不能为空",
		})
		return
	}

	action := string(c.FormValue("action"))
	if action == "" {
		action = "score"
	}
	if action != "score" && action != "confirm" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "action必须是 score 或 confirm",
		})
		return
	}

	resumeID := string(c.FormValue("resume_id"))
	fileHeader, fileErr := c.FormFile("file")
	hasFile := fileErr == nil && fileHeader != nil

	// 简历来源两个通道二选一
	if resumeID == "" && !hasFile {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "必须提供 resume_id 或上传文件之一",
		})
		return
	}
	if resumeID != "" && hasFile {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "resume_id 和上传文件不能同时提供",
		})
		return
	}

	var upload *processor.UploadSource
	var fileCloser multipart.File
	if hasFile {
		if errMsg := h.validateUpload(fileHeader); errMsg != "" {
			c.JSON(consts.StatusBadRequest, map[string]interface{}{
				"error": errMsg,
			})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			h.logger.Printf("打开上传文件失败: %v", err)
			c.JSON(consts.StatusInternalServerError, map[string]interface{}{
				"error": "读取上传文件失败",
			})
			return
		}
		fileCloser = file
		upload = &processor.UploadSource{
			Filename: fileHeader.Filename,
			Size:     fileHeader.Size,
			Reader:   file,
		}
	}
	if fileCloser != nil {
		defer fileCloser.Close()
	}

	if action == "confirm" {
		h.handleConfirm(ctx, c, jobID, resumeID, upload)
		return
	}
	h.handleScore(ctx, c, jobID, resumeID, upload)
}

// handleScore 评分预览分支：不落库任何数据
func (h *ApplicationHandler) handleScore(ctx context.Context, c *app.RequestContext, jobID, resumeID string, upload *processor.UploadSource) {
	outcome, err := h.processor.ScorePreview(ctx, jobID, processor.ResumeSource{
		ResumeID: resumeID,
		Upload:   upload,
	})
	if err != nil {
		h.respondProcessorError(c, err, jobID)
		return
	}

	c.JSON(consts.StatusOK, scoreResponse{
		JobID:            outcome.JobID,
		Score:            outcome.Result.Score,
		MatchedKeywords:  outcome.Result.Matched,
		MissingKeywords:  outcome.Result.Missing,
		KeywordsDerived:  outcome.DerivedKeywords,
		ExtractionFailed: string(outcome.ExtractionFailure),
	})
}

// handleConfirm 确认投递分支：落库申请记录
func (h *ApplicationHandler) handleConfirm(ctx context.Context, c *app.RequestContext, jobID, resumeID string, upload *processor.UploadSource) {
	req := processor.ConfirmRequest{
		JobID:          jobID,
		CandidateName:  string(c.FormValue("candidate_name")),
		CandidateEmail: string(c.FormValue("candidate_email")),
		ResumeID:       resumeID,
		Upload:         upload,
	}

	outcome, err := h.processor.ConfirmApplication(ctx, req)
	if err != nil {
		h.respondProcessorError(c, err, jobID)
		return
	}

	// 重复文件短路：返回已有申请，HTTP 200 而不是 201
	status := consts.StatusCreated
	if outcome.Status == constants.StatusDuplicateFileSkipped {
		status = consts.StatusOK
	}

	c.JSON(status, map[string]interface{}{
		"application_id":   outcome.ApplicationID,
		"job_id":           outcome.JobID,
		"score":            outcome.Score,
		"matched_keywords": outcome.Matched,
		"missing_keywords": outcome.Missing,
		"status":           outcome.Status,
	})
}

// HandleUpdateStatus 处理 PATCH /api/v1/applications/:application_id/status
func (h *ApplicationHandler) HandleUpdateStatus(ctx context.Context, c *app.RequestContext) {
	applicationID := c.Param("application_id")
	if applicationID == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "application_id不能为空",
		})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "请求体格式错误",
		})
		return
	}

	if _, ok := constants.ValidApplicationStatuses[req.Status]; !ok {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "status必须是 applied/shortlisted/rejected/interview_scheduled 之一",
		})
		return
	}

	if err := h.storage.MySQL.UpdateApplicationStatus(ctx, applicationID, req.Status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]interface{}{
				"error": "申请记录不存在",
			})
			return
		}
		h.logger.Printf("更新申请 %s 状态失败: %v", applicationID, err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "更新申请状态失败",
		})
		return
	}

	c.JSON(consts.StatusOK, map[string]interface{}{
		"application_id": applicationID,
		"status":         req.Status,
	})
}

// validateUpload 校验上传文件的扩展名白名单和大小上限，返回空串表示通过
func (h *ApplicationHandler) validateUpload(fileHeader *multipart.FileHeader) string {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !h.extensionAllowed(ext) {
		return "不支持的文件类型，仅接受: " + strings.Join(h.allowedExtensions(), ", ")
	}

	if maxBytes := h.cfg.Upload.MaxFileSizeBytes(); maxBytes > 0 && fileHeader.Size > maxBytes {
		return "文件大小超出上限"
	}
	return ""
}

func (h *ApplicationHandler) allowedExtensions() []string {
	if len(h.cfg.Upload.AllowedExtensions) > 0 {
		return h.cfg.Upload.AllowedExtensions
	}
	return []string{".pdf", ".docx"}
}

func (h *ApplicationHandler) extensionAllowed(ext string) bool {
	for _, allowed := range h.allowedExtensions() {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// respondProcessorError 把流水线错误映射为HTTP状态码
func (h *ApplicationHandler) respondProcessorError(c *app.RequestContext, err error, jobID string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(consts.StatusNotFound, map[string]interface{}{
			"error": "职位不存在",
		})
	case errors.Is(err, processor.ErrResumeLoadFailed):
		c.JSON(consts.StatusNotFound, map[string]interface{}{
			"error": "简历记录不存在",
		})
	case errors.Is(err, processor.ErrResumeSourceInvalid):
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	default:
		h.logger.Printf("处理职位 %s 的投递请求失败: %v", jobID, err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "处理投递请求失败",
		})
	}
}
