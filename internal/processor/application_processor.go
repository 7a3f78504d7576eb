package processor // 申请评分流水线的编排逻辑

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ats-match-go/internal/ats"
	"ats-match-go/internal/config"
	"ats-match-go/internal/constants"
	"ats-match-go/internal/extractor"
	"ats-match-go/internal/storage"
	"ats-match-go/internal/storage/models"
	"ats-match-go/internal/tracing"
	"ats-match-go/pkg/ratelimit"
	"ats-match-go/pkg/utils"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// 定义tracer
var tracer = otel.Tracer("processor")

// Components 聚合所有功能组件依赖，便于集中管理和测试替换
type Components struct {
	// 核心组件接口
	Extractor ResumeExtractor // 上传简历文本提取接口
	Matcher   KeywordMatcher  // 关键词匹配评分接口
	Keywords  KeywordProvider // 职位关键词解析接口

	// 存储层依赖
	Storage *storage.Storage // 聚合的存储服务
}

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	Debug        bool           // 是否开启调试模式
	Logger       *log.Logger    // 日志记录器
	TimeLocation *time.Location // 时区设置
}

// ApplicationProcessor 申请评分组件聚合类。
// 不持有跨调用状态，一次评分调用内的所有依赖都来自构造时注入的组件。
// 重评流程的消费方窄接口，便于测试替换具体存储
type rescoreStore interface {
	ListApplicationsForRescore(ctx context.Context, jobID string, afterID string, batchSize int) ([]models.Application, error)
	UpdateApplicationScore(ctx context.Context, applicationID string, updates map[string]interface{}, outboxMsg *models.OutboxMessage) error
	GetResumeByID(ctx context.Context, resumeID string) (*models.Resume, error)
}

type parsedTextStore interface {
	GetParsedText(ctx context.Context, objectKey string) (string, error)
}

type rescoreLocker interface {
	AcquireRescoreLock(ctx context.Context, jobID string) (string, error)
	ReleaseRescoreLock(ctx context.Context, jobID string, lockValue string) (bool, error)
}

type ApplicationProcessor struct {
	// 核心组件接口
	Extractor ResumeExtractor // 上传简历文本提取接口
	Matcher   KeywordMatcher  // 关键词匹配评分接口
	Keywords  KeywordProvider // 职位关键词解析接口

	// 存储层依赖
	Storage *storage.Storage // 存储服务

	// 重评流程的窄依赖，缺省从Storage填充
	rescoreDB   rescoreStore
	parsedText  parsedTextStore // 可为nil，此时跳过归档文本
	rescoreLock rescoreLocker   // 可为nil，此时不加分布式锁

	// 配置
	Config Settings // 组件配置
}

// ResumeSource 一次评分的简历来源，两个通道二选一：
// ResumeID 指向简历构建器落库的结构化简历，Upload 携带上传的PDF/DOCX。
type ResumeSource struct {
	ResumeID string        // 结构化简历通道
	Upload   *UploadSource // 上传文件通道
}

// UploadSource 上传文件通道的输入
type UploadSource struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// ScoreOutcome 一次评分预览的完整结果
type ScoreOutcome struct {
	JobID             string
	Keywords          []string                // 本次评分使用的生效关键词
	DerivedKeywords   bool                    // 关键词是否由职位描述推导
	Result            ats.MatchResult         // 得分与命中/缺失划分
	ExtractionFailure extractor.FailureReason // 提取失败原因，成功时为空
	CandidateName     string                  // 结构化通道从简历行带出
	CandidateEmail    string
	Text              string // 提取出的简历全文，确认投递时归档用
}

// ConfirmRequest 确认投递请求
type ConfirmRequest struct {
	JobID          string
	CandidateName  string
	CandidateEmail string
	ResumeID       string        // 结构化简历通道
	Upload         *UploadSource // 上传文件通道
}

// ConfirmOutcome 确认投递的结果
type ConfirmOutcome struct {
	ApplicationID string
	JobID         string
	Score         float64
	Matched       []string
	Missing       []string
	Status        string
}

// NewApplicationProcessor 创建申请评分处理器，使用明确分离的组件和设置
func NewApplicationProcessor(comp *Components, set *Settings, opts ...SettingOpt) *ApplicationProcessor {
	// 应用额外的设置选项
	for _, opt := range opts {
		opt(set)
	}

	// 确保必要的默认值
	if set.Logger == nil {
		set.Logger = log.New(os.Stdout, "[Processor] ", log.LstdFlags)
	}
	if set.TimeLocation == nil {
		set.TimeLocation = time.Local
	}

	processor := &ApplicationProcessor{
		Extractor: comp.Extractor,
		Matcher:   comp.Matcher,
		Keywords:  comp.Keywords,
		Storage:   comp.Storage,
		Config:    *set,
	}

	if comp.Storage != nil {
		if comp.Storage.MySQL != nil {
			processor.rescoreDB = comp.Storage.MySQL
		}
		if comp.Storage.MinIO != nil {
			processor.parsedText = comp.Storage.MinIO
		}
		if comp.Storage.Redis != nil {
			processor.rescoreLock = comp.Storage.Redis
		}
	}

	// 验证关键组件
	if processor.Matcher == nil {
		processor.Config.Logger.Println("警告: ApplicationProcessor 的 Matcher 依赖未初始化，评分调用将失败。")
	}
	if processor.Storage == nil {
		processor.Config.Logger.Println("警告: ApplicationProcessor 的 Storage 依赖未初始化。某些功能可能受限。")
	}

	return processor
}

// CreateProcessor 便捷工厂函数，用于创建组件和设置并构造处理器
func CreateProcessor(ctx context.Context, compOpts []ComponentOpt, setOpts []SettingOpt) (*ApplicationProcessor, error) {
	components := &Components{}

	settings := &Settings{
		Debug:        false,
		Logger:       log.New(os.Stdout, "[Processor] ", log.LstdFlags),
		TimeLocation: time.Local,
	}

	for _, opt := range compOpts {
		opt(components)
	}
	for _, opt := range setOpts {
		opt(settings)
	}

	// 验证必要组件
	if components.Matcher == nil {
		return nil, fmt.Errorf("必须提供关键词匹配组件")
	}

	return NewApplicationProcessor(components, settings), nil
}

// CreateProcessorFromConfig 从配置装配完整的评分流水线：
// PDF策略按 upload.pdf_engine 在 eino/tika 间选择，模糊匹配层按 scoring 配置决定是否启用。
func CreateProcessorFromConfig(ctx context.Context, cfg *config.Config, storageManager *storage.Storage) (*ApplicationProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	components := &Components{
		Storage: storageManager,
	}

	settings := &Settings{
		Debug:        cfg.Logger.Level == "debug",
		Logger:       log.New(os.Stdout, "[Processor] ", log.LstdFlags),
		TimeLocation: time.Local,
	}

	// 1. 上传文本提取器：PDF策略 + DOCX策略 + 超时
	var pdfStrategy extractor.TextExtractor
	if cfg.Upload.PDFEngine == "tika" && cfg.Tika.ServerURL != "" {
		tikaOpts := []extractor.TikaOption{
			extractor.WithTikaLogger(log.New(os.Stderr, "[TikaPDF] ", log.LstdFlags)),
		}
		if cfg.Tika.Timeout > 0 {
			tikaOpts = append(tikaOpts, extractor.WithTikaTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
		}
		pdfStrategy = extractor.NewTikaPDFExtractor(cfg.Tika.ServerURL, tikaOpts...)
		settings.Logger.Println("PDF解析使用Tika策略")
	} else {
		einoExtractor, err := extractor.NewEinoPDFTextExtractor(ctx,
			extractor.WithEinoLogger(log.New(os.Stderr, "[EinoPDF] ", log.LstdFlags)))
		if err != nil {
			return nil, fmt.Errorf("创建Eino PDF提取器失败: %w", err)
		}
		pdfStrategy = einoExtractor
		settings.Logger.Println("PDF解析使用Eino策略")
	}

	components.Extractor = extractor.NewUploadExtractor(
		extractor.WithPDFStrategy(pdfStrategy),
		extractor.WithDOCXStrategy(extractor.NewDocxTextExtractor()),
		extractor.WithExtractTimeout(time.Duration(cfg.Upload.ExtractTimeoutSeconds)*time.Second),
	)

	// 2. 关键词匹配器：模糊层是否启用在装配期一次决定
	matcherOpts := []ats.MatcherOption{
		ats.WithFuzzyThreshold(cfg.Scoring.FuzzyThreshold),
	}
	if cfg.Scoring.FuzzyMatchingEnabled() {
		matcherOpts = append(matcherOpts, ats.WithFuzzyScorer(ats.NewFuzzyWuzzyScorer()))
	} else {
		settings.Logger.Println("模糊匹配层已按配置禁用，只保留精确和子串两级")
	}
	components.Matcher = ats.NewMatcher(matcherOpts...)

	// 3. 职位关键词解析器
	components.Keywords = NewCachedKeywordProvider(storageManager, cfg.Scoring,
		log.New(os.Stdout, "[KeywordProvider] ", log.LstdFlags))

	return NewApplicationProcessor(components, settings), nil
}

// ScorePreview 对一份简历做评分预览，不落库任何数据。
// 提取失败不会让调用失败：空文本参与评分，所有关键词自然落入缺失列表。
// 职位不存在时透传底层错误（gorm.ErrRecordNotFound），由调用方映射状态码。
func (ap *ApplicationProcessor) ScorePreview(ctx context.Context, jobID string, source ResumeSource) (*ScoreOutcome, error) {
	ctx, span := tracer.Start(ctx, "ApplicationProcessor.ScorePreview",
		trace.WithAttributes(attribute.String("job_id", jobID)))
	defer span.End()

	if ap.Matcher == nil {
		return nil, fmt.Errorf("ApplicationProcessor: Matcher未初始化")
	}
	if ap.Keywords == nil {
		return nil, fmt.Errorf("ApplicationProcessor: KeywordProvider未初始化")
	}

	keywords, derived, err := ap.Keywords.KeywordsForJob(ctx, jobID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("keyword_count", len(keywords)),
		attribute.Bool("derived_keywords", derived),
	)

	outcome := &ScoreOutcome{
		JobID:           jobID,
		Keywords:        keywords,
		DerivedKeywords: derived,
	}

	if err := ap.extractSource(ctx, source, outcome); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	if outcome.ExtractionFailure != extractor.FailureNone {
		ap.logWarn("简历提取失败 (职位 %s, 原因 %s)，按空文本评分", jobID, outcome.ExtractionFailure)
		span.AddEvent("extraction degraded to empty text",
			trace.WithAttributes(attribute.String("reason", string(outcome.ExtractionFailure))))
	}

	outcome.Result = ap.safeScore(keywords, outcome.Text)
	span.SetAttributes(attribute.Float64("ats_score", outcome.Result.Score))
	if ap.Config.Debug {
		// 调试模式下附带截断后的文本样本，便于排查提取质量问题
		span.AddEvent("resume text sample",
			trace.WithAttributes(attribute.String("resume.text.sample", tracing.SafeResumeContent(outcome.Text))))
	}
	span.SetStatus(codes.Ok, "")
	return outcome, nil
}

// extractSource 按来源通道提取简历文本并填充 outcome。
// 上传通道的失败降级为空文本；结构化通道的简历行不存在是调用方错误，返回error。
func (ap *ApplicationProcessor) extractSource(ctx context.Context, source ResumeSource, outcome *ScoreOutcome) error {
	switch {
	case source.Upload != nil:
		if ap.Extractor == nil {
			outcome.ExtractionFailure = extractor.FailureParse
			return nil
		}
		result := ap.Extractor.ExtractUpload(ctx, source.Upload.Reader, source.Upload.Filename)
		outcome.Text = result.Text
		outcome.ExtractionFailure = result.Reason
		if !result.OK() && result.Err != nil {
			ap.logDebug("上传简历提取失败 (文件 %s): %v", source.Upload.Filename, result.Err)
		}
		return nil

	case source.ResumeID != "":
		if ap.Storage == nil || ap.Storage.MySQL == nil {
			return NewResumeLoadError(source.ResumeID, "MySQL未初始化")
		}
		resume, err := ap.Storage.MySQL.GetResumeByID(ctx, source.ResumeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewResumeLoadError(source.ResumeID, "简历记录不存在")
			}
			return NewResumeLoadError(source.ResumeID, err.Error())
		}

		result := extractor.FlattenResumeJSON(resume.ContentJSON)
		outcome.Text = result.Text
		outcome.ExtractionFailure = result.Reason
		outcome.CandidateName = resume.CandidateName
		outcome.CandidateEmail = resume.CandidateEmail
		return nil

	default:
		return NewSourceError("", "必须提供 resume_id 或上传文件之一")
	}
}

// safeScore 在评分调用边界兜住一切意外失败：
// 任何panic都退化为 score=0、全部关键词缺失，保证投递流程始终能走完。
func (ap *ApplicationProcessor) safeScore(keywords []string, text string) (result ats.MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			ap.logError(nil, "评分过程出现意外失败: %v，退化为零分", r)
			result = degradedResult(keywords)
		}
	}()
	return ap.Matcher.ScoreKeywords(keywords, text)
}

// degradedResult 评分边界兜底结果：0分，全部非空关键词进缺失列表
func degradedResult(keywords []string) ats.MatchResult {
	missing := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if strings.TrimSpace(kw) != "" {
			missing = append(missing, kw)
		}
	}
	return ats.MatchResult{Score: 0.0, Matched: []string{}, Missing: missing}
}

// ConfirmApplication 确认投递：重新评分后落库申请记录。
// 上传文件先按MD5去重，重复文件直接短路返回已有申请；
// 申请行与 application.scored 的outbox事件在同一事务内提交，
// 原始文件与解析文本的归档在事务外并行上传到MinIO。
func (ap *ApplicationProcessor) ConfirmApplication(ctx context.Context, req ConfirmRequest) (*ConfirmOutcome, error) {
	ctx, span := tracer.Start(ctx, "ApplicationProcessor.ConfirmApplication",
		trace.WithAttributes(attribute.String("job_id", req.JobID)))
	defer span.End()

	if ap.Storage == nil || ap.Storage.MySQL == nil {
		return nil, NewPersistError("", "MySQL未初始化")
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成申请UUID失败: %w", err)
	}
	applicationID := uuidV7.String()
	span.SetAttributes(attribute.String("application_id", applicationID))

	// 上传通道：读出字节做MD5去重，之后的提取和归档都走内存副本
	var fileBytes []byte
	var fileMD5 string
	source := ResumeSource{ResumeID: req.ResumeID}
	if req.Upload != nil {
		fileBytes, err = io.ReadAll(req.Upload.Reader)
		if err != nil {
			return nil, NewSourceError(applicationID, fmt.Sprintf("读取上传文件失败: %v", err))
		}
		fileMD5 = utils.CalculateMD5(fileBytes)

		if ap.Storage.Redis != nil {
			exists, existingAppID, mdErr := ap.Storage.Redis.CheckAndAddFileMD5(ctx, fileMD5, applicationID)
			if mdErr != nil {
				// 去重降级不阻断投递，最坏情况是同一文件生成两条申请
				ap.logWarn("文件MD5去重检查失败 (申请 %s): %v，跳过去重", applicationID, mdErr)
			} else if exists {
				ap.logInfo("检测到重复的简历文件MD5 %s，返回已有申请 %s", fileMD5, existingAppID)
				span.AddEvent("duplicate file skipped")
				return &ConfirmOutcome{
					ApplicationID: existingAppID,
					JobID:         req.JobID,
					Status:        constants.StatusDuplicateFileSkipped,
				}, nil
			}
		}

		source.Upload = &UploadSource{
			Filename: req.Upload.Filename,
			Size:     int64(len(fileBytes)),
			Reader:   bytes.NewReader(fileBytes),
		}
	}

	outcome, err := ap.ScorePreview(ctx, req.JobID, source)
	if err != nil {
		ap.rollbackFileMD5(ctx, fileMD5)
		return nil, err
	}

	// 结构化通道缺省时用简历行上的候选人信息补齐
	candidateName := req.CandidateName
	if candidateName == "" {
		candidateName = outcome.CandidateName
	}
	candidateEmail := req.CandidateEmail
	if candidateEmail == "" {
		candidateEmail = outcome.CandidateEmail
	}
	if candidateEmail == "" {
		ap.rollbackFileMD5(ctx, fileMD5)
		return nil, NewSourceError(applicationID, "候选人邮箱不能为空")
	}
	// 邮箱属于PII，打码后再进span属性
	span.SetAttributes(attribute.String("candidate.email",
		tracing.SafeAttributeValue("candidate_email", candidateEmail, tracing.DefaultMaxLength)))

	// 事务外并行归档：原始文件和解析文本各自上传
	originalPath, parsedPath, archiveErr := ap.archiveArtifacts(ctx, applicationID, req.Upload, fileBytes, outcome.Text)
	if archiveErr != nil {
		ap.rollbackFileMD5(ctx, fileMD5)
		tracing.RecordError(span, archiveErr, tracing.ErrorTypeObjectStorage)
		return nil, NewStoreError(applicationID, archiveErr.Error())
	}

	app, err := ap.buildApplicationRow(applicationID, req, candidateName, candidateEmail,
		originalPath, parsedPath, fileMD5, outcome)
	if err != nil {
		ap.rollbackFileMD5(ctx, fileMD5)
		return nil, err
	}

	outboxMsg, err := ap.buildScoredEvent(applicationID, req.JobID, candidateEmail, outcome, false)
	if err != nil {
		ap.rollbackFileMD5(ctx, fileMD5)
		return nil, err
	}

	if err := ap.Storage.MySQL.SaveApplication(ctx, app, outboxMsg); err != nil {
		ap.rollbackFileMD5(ctx, fileMD5)
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, NewPersistError(applicationID, err.Error())
	}

	// upsert 命中 (job_id, candidate_email) 唯一键时沿用已有行的ID
	finalID := applicationID
	if saved, findErr := ap.Storage.MySQL.GetApplicationByJobAndEmail(ctx, req.JobID, candidateEmail); findErr == nil {
		finalID = saved.ApplicationID
	}

	ap.logInfo("申请 %s 已确认投递 (职位 %s, 得分 %.1f)", finalID, req.JobID, outcome.Result.Score)
	span.SetStatus(codes.Ok, "")
	return &ConfirmOutcome{
		ApplicationID: finalID,
		JobID:         req.JobID,
		Score:         outcome.Result.Score,
		Matched:       outcome.Result.Matched,
		Missing:       outcome.Result.Missing,
		Status:        constants.StatusApplied,
	}, nil
}

// archiveArtifacts 并行上传原始文件与解析文本。
// 原始文件归档失败视为错误（调用方可能还要回看原件），
// 解析文本归档失败只降级：重评时会回落到结构化简历或空文本。
func (ap *ApplicationProcessor) archiveArtifacts(ctx context.Context, applicationID string, upload *UploadSource, fileBytes []byte, text string) (originalPath, parsedPath string, err error) {
	if ap.Storage == nil || ap.Storage.MinIO == nil {
		if upload != nil {
			return "", "", fmt.Errorf("MinIO未初始化，无法归档上传文件")
		}
		return "", "", nil
	}

	var wg sync.WaitGroup
	var originalErr error
	var parsedErr error

	if upload != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ext := filepath.Ext(upload.Filename)
			originalPath, originalErr = ap.Storage.MinIO.UploadOriginalResume(
				ctx, applicationID, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
		}()
	}

	if text != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parsedPath, parsedErr = ap.Storage.MinIO.UploadParsedText(ctx, applicationID, text)
		}()
	}

	wg.Wait()

	if originalErr != nil {
		return "", "", fmt.Errorf("归档原始简历失败: %w", originalErr)
	}
	if parsedErr != nil {
		ap.logWarn("归档解析文本失败 (申请 %s): %v，重评时将回源", applicationID, parsedErr)
		parsedPath = ""
	}
	return originalPath, parsedPath, nil
}

// buildApplicationRow 组装待落库的申请行
func (ap *ApplicationProcessor) buildApplicationRow(applicationID string, req ConfirmRequest, candidateName, candidateEmail, originalPath, parsedPath, fileMD5 string, outcome *ScoreOutcome) (*models.Application, error) {
	matchedJSON, err := models.StringsToJSON(outcome.Result.Matched)
	if err != nil {
		return nil, NewPersistError(applicationID, fmt.Sprintf("序列化命中关键词失败: %v", err))
	}
	missingJSON, err := models.StringsToJSON(outcome.Result.Missing)
	if err != nil {
		return nil, NewPersistError(applicationID, fmt.Sprintf("序列化缺失关键词失败: %v", err))
	}

	app := &models.Application{
		ApplicationID:       applicationID,
		JobID:               req.JobID,
		CandidateName:       candidateName,
		CandidateEmail:      candidateEmail,
		ATSScore:            outcome.Result.Score,
		MatchedKeywordsJSON: matchedJSON,
		MissingKeywordsJSON: missingJSON,
		Status:              constants.StatusApplied,
		AppliedAt:           time.Now().In(ap.Config.TimeLocation),
	}
	if req.ResumeID != "" {
		app.ResumeID = utils.StringPtr(req.ResumeID)
	}
	if req.Upload != nil {
		app.OriginalFilename = req.Upload.Filename
		app.OriginalFilePathOSS = originalPath
		app.ParsedTextPathOSS = parsedPath
		app.RawFileMD5 = fileMD5
	}
	return app, nil
}

// buildScoredEvent 组装 application.scored 的outbox事件
func (ap *ApplicationProcessor) buildScoredEvent(applicationID, jobID, candidateEmail string, outcome *ScoreOutcome, rescored bool) (*models.OutboxMessage, error) {
	event := storage.ApplicationScoredMessage{
		ApplicationID:   applicationID,
		JobID:           jobID,
		CandidateEmail:  candidateEmail,
		Score:           outcome.Result.Score,
		MatchedKeywords: outcome.Result.Matched,
		MissingKeywords: outcome.Result.Missing,
		ScoredAt:        time.Now().In(ap.Config.TimeLocation),
		Rescored:        rescored,
	}

	exchange := "ats.events"
	routingKey := constants.EventApplicationScored
	if ap.Storage != nil && ap.Storage.RabbitMQ != nil {
		if cfg := ap.Storage.RabbitMQ.Config(); cfg != nil {
			if cfg.EventsExchange != "" {
				exchange = cfg.EventsExchange
			}
			if cfg.ScoredRoutingKey != "" {
				routingKey = cfg.ScoredRoutingKey
			}
		}
	}

	msg, err := models.NewOutboxMessage(applicationID, constants.EventApplicationScored, exchange, routingKey, event)
	if err != nil {
		return nil, NewPersistError(applicationID, err.Error())
	}
	return msg, nil
}

// rollbackFileMD5 申请落库失败后回滚去重记录，让同一文件可以重新投递
func (ap *ApplicationProcessor) rollbackFileMD5(ctx context.Context, fileMD5 string) {
	if fileMD5 == "" || ap.Storage == nil || ap.Storage.Redis == nil {
		return
	}
	if err := ap.Storage.Redis.RemoveFileMD5(ctx, fileMD5); err != nil {
		ap.logWarn("回滚文件MD5去重记录失败 (md5 %s): %v", fileMD5, err)
	}
}

// StartRescoreConsumer 启动关键词变更重评消费者。
// 消费 job.keywords_changed 事件，对该职位下的全部申请按新关键词重算得分，
// 更新由令牌桶节流，批量重评不会打满MySQL。
func (ap *ApplicationProcessor) StartRescoreConsumer(ctx context.Context, cfg *config.Config) error {
	if ap.Storage == nil || ap.Storage.RabbitMQ == nil {
		return fmt.Errorf("ApplicationProcessor: RabbitMQ未初始化")
	}
	if ap.Storage.MySQL == nil {
		return fmt.Errorf("ApplicationProcessor: MySQL未初始化")
	}

	limiter := ratelimit.NewTokenBucket(cfg.Rescore.QPM, cfg.Rescore.BucketCapacity)
	if cfg.Rescore.RetryWaitSeconds > 0 {
		limiter.WithRetryPolicy(time.Duration(cfg.Rescore.RetryWaitSeconds)*time.Second, cfg.Rescore.MaxRetries)
	}

	prefetch := cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}

	ap.logInfo("重评消费者就绪 (队列 %s, 节流 %d/分钟)", cfg.RabbitMQ.RescoreQueue, cfg.Rescore.QPM)

	_, err := ap.Storage.RabbitMQ.StartConsumer(cfg.RabbitMQ.RescoreQueue, prefetch, func(data []byte) bool {
		var message storage.JobKeywordsChangedMessage
		if err := json.Unmarshal(data, &message); err != nil {
			ap.logError(err, "解析关键词变更消息失败，丢弃")
			return true // 畸形消息重投无意义
		}

		if err := ap.RescoreJob(ctx, message, limiter); err != nil {
			ap.logError(err, "职位 %s 重评失败，消息将重投", message.JobID)
			return false
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("启动重评消费者失败: %w", err)
	}
	return nil
}

// RescoreJob 对单个职位的全部申请按新关键词重算得分。
// 分布式锁保证同一职位同时只有一个重评在跑；单条申请的失败只记录不中断。
func (ap *ApplicationProcessor) RescoreJob(ctx context.Context, message storage.JobKeywordsChangedMessage, limiter *ratelimit.TokenBucket) error {
	ctx, span := tracer.Start(ctx, "ApplicationProcessor.RescoreJob",
		trace.WithAttributes(attribute.String("job_id", message.JobID)))
	defer span.End()

	if message.JobID == "" {
		return NewRescoreError("", "消息缺少job_id")
	}
	if ap.rescoreDB == nil {
		return NewRescoreError("", "MySQL未初始化")
	}

	// 同一职位的并发重评没有意义，后到者让消息重投
	var lockValue string
	if ap.rescoreLock != nil {
		var err error
		lockValue, err = ap.rescoreLock.AcquireRescoreLock(ctx, message.JobID)
		if err != nil {
			ap.logWarn("获取职位 %s 的重评锁失败: %v，本次不加锁执行", message.JobID, err)
		} else if lockValue == "" {
			return NewRescoreError("", fmt.Sprintf("职位 %s 已有重评任务在执行", message.JobID))
		}
		if lockValue != "" {
			defer func() {
				if _, err := ap.rescoreLock.ReleaseRescoreLock(ctx, message.JobID, lockValue); err != nil {
					ap.logWarn("释放职位 %s 的重评锁失败: %v", message.JobID, err)
				}
			}()
		}
	}

	// 优先用事件携带的关键词列表，缺省时重新解析
	keywords := message.Keywords
	if len(keywords) == 0 && ap.Keywords != nil {
		resolved, _, err := ap.Keywords.KeywordsForJob(ctx, message.JobID)
		if err != nil {
			return NewRescoreError("", fmt.Sprintf("解析职位 %s 的关键词失败: %v", message.JobID, err))
		}
		keywords = resolved
	}

	total := 0
	failed := 0
	afterID := ""
	for {
		apps, err := ap.rescoreDB.ListApplicationsForRescore(ctx, message.JobID, afterID, 100)
		if err != nil {
			return NewRescoreError("", fmt.Sprintf("列出职位 %s 的申请失败: %v", message.JobID, err))
		}
		if len(apps) == 0 {
			break
		}

		for i := range apps {
			app := &apps[i]
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			if err := ap.rescoreOne(ctx, app, keywords); err != nil {
				failed++
				ap.logWarn("重评申请 %s 失败: %v", app.ApplicationID, err)
			}
			total++
		}
		afterID = apps[len(apps)-1].ApplicationID
	}

	ap.logInfo("职位 %s 重评完成: 共 %d 条, 失败 %d 条", message.JobID, total, failed)
	span.SetAttributes(attribute.Int("rescored", total), attribute.Int("failed", failed))
	span.SetStatus(codes.Ok, "")
	return nil
}

// rescoreOne 重评单条申请：取回简历文本，按新关键词重算，落库并发出评分事件
func (ap *ApplicationProcessor) rescoreOne(ctx context.Context, app *models.Application, keywords []string) error {
	text := ap.resumeTextForApplication(ctx, app)

	outcome := &ScoreOutcome{
		JobID:  app.JobID,
		Result: ap.safeScore(keywords, text),
	}

	matchedJSON, err := models.StringsToJSON(outcome.Result.Matched)
	if err != nil {
		return err
	}
	missingJSON, err := models.StringsToJSON(outcome.Result.Missing)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"ats_score":             outcome.Result.Score,
		"matched_keywords_json": matchedJSON,
		"missing_keywords_json": missingJSON,
	}

	outboxMsg, err := ap.buildScoredEvent(app.ApplicationID, app.JobID, app.CandidateEmail, outcome, true)
	if err != nil {
		return err
	}

	return ap.rescoreDB.UpdateApplicationScore(ctx, app.ApplicationID, updates, outboxMsg)
}

// resumeTextForApplication 按申请记录的形态取回简历文本：
// 归档的解析文本优先，其次结构化简历行，都取不到时按空文本重评。
func (ap *ApplicationProcessor) resumeTextForApplication(ctx context.Context, app *models.Application) string {
	if app.ParsedTextPathOSS != "" && ap.parsedText != nil {
		text, err := ap.parsedText.GetParsedText(ctx, app.ParsedTextPathOSS)
		if err == nil {
			return text
		}
		ap.logWarn("取回申请 %s 的归档文本失败: %v，尝试结构化简历", app.ApplicationID, err)
	}

	if app.ResumeID != nil && *app.ResumeID != "" {
		resume, err := ap.rescoreDB.GetResumeByID(ctx, *app.ResumeID)
		if err == nil {
			if result := extractor.FlattenResumeJSON(resume.ContentJSON); result.OK() {
				return result.Text
			}
		} else {
			ap.logWarn("取回申请 %s 的结构化简历失败: %v", app.ApplicationID, err)
		}
	}

	return ""
}
