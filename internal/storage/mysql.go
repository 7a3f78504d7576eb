package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"ats-match-go/internal/config"
	"ats-match-go/internal/storage/models"
	"ats-match-go/internal/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("ats-match-go/storage/mysql")

// ErrStatusConflict 状态流转的目标值不合法或记录不存在
var ErrStatusConflict = errors.New("非法的申请状态流转")

// ErrInvalidCursor 分页游标无法解析
var ErrInvalidCursor = errors.New("非法的分页游标")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	dbSystem       string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	// 为各种操作类型注册回调
	cb := db.Callback()

	// 为所有CRUD操作注册Before和After回调
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		// 如果是错误跳过且DisableErrSkip为true，则跳过追踪
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		// 从DB获取上下文
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		// 获取操作表名，如果为空则使用"unknown"
		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		// 创建一个新的span
		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		// 获取SQL语句（如果有），超长语句截断后再上报
		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", tracing.SafeSQL(sqlStatement)),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		// 从DB上下文中获取span
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		// 添加额外的属性
		if db.Statement.RowsAffected > 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		} else {
			span.SetAttributes(attribute.Int64("db.rows_affected", 0))
		}

		// 记录错误（如果有），但正确处理ErrRecordNotFound
		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				// ErrRecordNotFound 是业务逻辑正常情况的一部分，不应作为错误处理
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				// 真正的错误情况
				tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		dbSystem:       "mysql",
		disableErrSkip: true, // 默认禁用错误跳过，减少误报错误
	}
}

// WithDisableErrSkip 设置是否禁用错误跳过
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// Database 关系数据库接口
type Database interface {
	// DB 返回GORM数据库连接实例
	DB() *gorm.DB

	// Close 关闭数据库连接
	Close() error

	// GetByID 通过ID获取记录
	GetByID(id interface{}, dest interface{}) error

	// Find 通过条件查询记录
	Find(dest interface{}, query interface{}, args ...interface{}) error

	// Save 保存/更新记录
	Save(value interface{}) error

	// Delete 删除记录
	Delete(value interface{}, query interface{}, args ...interface{}) error
}

// 确保MySQL实现了Database接口
var _ Database = (*MySQL)(nil)

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info // 默认Info级别
	}

	// GORM配置增强
	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,                             // 禁用自动外键创建
		Logger:                                   logger.Default.LogMode(logLevel), // 设置日志级别
		PrepareStmt:                              true,                             // 开启预编译语句缓存
		NowFunc: func() time.Time {
			return time.Now().Local() // 使用本地时间作为默认时间
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)                                           // 最大空闲连接数
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)                                           // 最大打开连接数
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute) // 连接最大生命周期
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute) // 空闲连接最大生命周期

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	// 注册OpenTelemetry追踪插件
	tracingPlugin := NewGormTracingPlugin(cfg.Database).WithDisableErrSkip(true)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	// 使用 GORM 的 AutoMigrate 功能自动迁移表结构
	if err := m.autoMigrateSchema(); err != nil {
		sqlDB, _ := db.DB() // 尝试获取底层 *sql.DB 以关闭
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	// 保存当前的日志级别
	currentLogger := m.db.Logger

	// 创建一个静默的logger以关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent, // 设置为Silent级别，关闭所有SQL日志
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// 创建一个使用静默日志记录器的DB会话
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	// 列出所有需要迁移的模型
	err := silentDB.AutoMigrate(
		&models.Job{},
		&models.Resume{},
		&models.Application{},
		&models.OutboxMessage{},
	)

	// 恢复原来的日志记录器
	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	log.Println("GORM数据库结构迁移成功")
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// GetByID 泛型查询方法 - 通过ID获取记录
func (m *MySQL) GetByID(id interface{}, dest interface{}) error {
	return m.db.First(dest, "id = ?", id).Error
}

// Find 泛型查询方法 - 通过条件查询记录
func (m *MySQL) Find(dest interface{}, query interface{}, args ...interface{}) error {
	return m.db.Where(query, args...).Find(dest).Error
}

// Save 泛型创建/更新方法
func (m *MySQL) Save(value interface{}) error {
	return m.db.Save(value).Error
}

// Delete 泛型删除方法
func (m *MySQL) Delete(value interface{}, query interface{}, args ...interface{}) error {
	return m.db.Where(query, args...).Delete(value).Error
}

// CreateJob 创建一个新的Job记录
func (m *MySQL) CreateJob(ctx context.Context, job *models.Job) error {
	return m.db.WithContext(ctx).Create(job).Error
}

// GetJobByID 通过 JobID 获取 Job 记录
func (m *MySQL) GetJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := m.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJobKeywords 更新职位关键词，并在同一事务中落一条outbox事件。
// 事件由消息中继异步发布，保证关键词变更与重评通知不会只成功一半。
func (m *MySQL) UpdateJobKeywords(ctx context.Context, jobID string, requiredSkills []string, outboxMsg *models.OutboxMessage) error {
	skillsJSON, err := models.StringsToJSON(requiredSkills)
	if err != nil {
		return fmt.Errorf("序列化关键词失败: %w", err)
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Job{}).Where("job_id = ?", jobID).Update("required_skills_json", skillsJSON)
		if result.Error != nil {
			return fmt.Errorf("更新职位关键词失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if outboxMsg != nil {
			if err := tx.Create(outboxMsg).Error; err != nil {
				return fmt.Errorf("写入outbox事件失败: %w", err)
			}
		}
		return nil
	})
}

// CreateResume 落库一份结构化简历记录
func (m *MySQL) CreateResume(ctx context.Context, resume *models.Resume) error {
	return m.db.WithContext(ctx).Create(resume).Error
}

// GetResumeByID 通过 ResumeID 获取结构化简历记录
func (m *MySQL) GetResumeByID(ctx context.Context, resumeID string) (*models.Resume, error) {
	var resume models.Resume
	if err := m.db.WithContext(ctx).Where("resume_id = ?", resumeID).First(&resume).Error; err != nil {
		return nil, err
	}
	return &resume, nil
}

// SaveApplication 保存一条申请记录，并在同一事务中落一条outbox事件。
// 同一 (job_id, candidate_email) 重复投递时按最新评分覆盖，实现幂等。
func (m *MySQL) SaveApplication(ctx context.Context, app *models.Application, outboxMsg *models.OutboxMessage) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.SaveApplication",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.operation", "INSERT_ON_DUPLICATE"),
		attribute.String("db.sql.table", "applications"),
		attribute.String("application.job_id", app.JobID),
	)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// MySQL 的 ON DUPLICATE KEY UPDATE 命中 (job_id, candidate_email) 唯一索引
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}, {Name: "candidate_email"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"resume_id", "candidate_name",
				"original_filename", "original_file_path_oss", "parsed_text_path_oss", "raw_file_md5",
				"ats_score", "matched_keywords_json", "missing_keywords_json",
				"applied_at",
			}),
		}).Create(app).Error; err != nil {
			return fmt.Errorf("保存申请记录失败: %w", err)
		}

		if outboxMsg != nil {
			if err := tx.Create(outboxMsg).Error; err != nil {
				return fmt.Errorf("写入outbox事件失败: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeDB,
			attribute.String("application.id", app.ApplicationID))
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetApplicationByID 通过 ApplicationID 获取申请记录
func (m *MySQL) GetApplicationByID(ctx context.Context, applicationID string) (*models.Application, error) {
	var app models.Application
	if err := m.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// GetApplicationByJobAndEmail 按 (job_id, candidate_email) 唯一键查找申请记录。
// 重复投递时调用方沿用已有的 ApplicationID，避免upsert后响应里出现悬空ID。
func (m *MySQL) GetApplicationByJobAndEmail(ctx context.Context, jobID, candidateEmail string) (*models.Application, error) {
	var app models.Application
	if err := m.db.WithContext(ctx).
		Where("job_id = ? AND candidate_email = ?", jobID, candidateEmail).
		First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// UpdateApplicationFields 更新申请记录的多个字段
func (m *MySQL) UpdateApplicationFields(ctx context.Context, applicationID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return m.db.WithContext(ctx).Model(&models.Application{}).
		Where("application_id = ?", applicationID).Updates(updates).Error
}

// UpdateApplicationScore 更新申请的评分字段，并在同一事务中落一条outbox事件。
// 重评消费者逐条调用，保证评分更新与事件通知的原子性。
func (m *MySQL) UpdateApplicationScore(ctx context.Context, applicationID string, updates map[string]interface{}, outboxMsg *models.OutboxMessage) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Application{}).
			Where("application_id = ?", applicationID).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("更新申请评分失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if outboxMsg != nil {
			if err := tx.Create(outboxMsg).Error; err != nil {
				return fmt.Errorf("写入outbox事件失败: %w", err)
			}
		}
		return nil
	})
}

// UpdateApplicationStatus 更新申请状态，记录不存在时返回 ErrRecordNotFound
func (m *MySQL) UpdateApplicationStatus(ctx context.Context, applicationID string, status string) error {
	result := m.db.WithContext(ctx).Model(&models.Application{}).
		Where("application_id = ?", applicationID).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListApplicationsByJob 按职位分页列出申请记录。
// cursor 为上一页最后一条的 (ats_score, application_id) 组合游标，空串表示从头开始；
// 返回的 nextCursor 为空表示没有更多数据。列表按分数降序排列，同分时按
// application_id 升序（UUIDv7按时间有序）保证翻页稳定。
func (m *MySQL) ListApplicationsByJob(ctx context.Context, jobID string, cursor string, size int) ([]models.Application, string, error) {
	if size <= 0 {
		size = 20
	}

	query := m.db.WithContext(ctx).Where("job_id = ?", jobID)
	if cursor != "" {
		score, afterID, ok := parseApplicationCursor(cursor)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrInvalidCursor, cursor)
		}
		query = query.Where("ats_score < ? OR (ats_score = ? AND application_id > ?)", score, score, afterID)
	}

	var apps []models.Application
	// 多取一条探测是否还有下一页
	if err := query.Order("ats_score DESC, application_id ASC").Limit(size + 1).Find(&apps).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(apps) > size {
		apps = apps[:size]
		last := apps[len(apps)-1]
		nextCursor = encodeApplicationCursor(last.ATSScore, last.ApplicationID)
	}
	return apps, nextCursor, nil
}

// encodeApplicationCursor 将翻页位置编码为不透明游标。分数保留一位小数，
// 与评分器的舍入精度一致。
func encodeApplicationCursor(score float64, applicationID string) string {
	return strconv.FormatFloat(score, 'f', 1, 64) + "|" + applicationID
}

func parseApplicationCursor(cursor string) (score float64, applicationID string, ok bool) {
	idx := strings.IndexByte(cursor, '|')
	if idx <= 0 || idx == len(cursor)-1 {
		return 0, "", false
	}
	score, err := strconv.ParseFloat(cursor[:idx], 64)
	if err != nil {
		return 0, "", false
	}
	return score, cursor[idx+1:], true
}

// ListApplicationsForRescore 按职位返回一批待重评的申请，afterID 用于游标翻页。
// 不按投递通道过滤，重评器按记录形态决定从哪里取回简历文本。
func (m *MySQL) ListApplicationsForRescore(ctx context.Context, jobID string, afterID string, batchSize int) ([]models.Application, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	query := m.db.WithContext(ctx).Where("job_id = ?", jobID)
	if afterID != "" {
		query = query.Where("application_id > ?", afterID)
	}

	var apps []models.Application
	if err := query.Order("application_id ASC").Limit(batchSize).Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}
