package constants

import "time"

// 申请状态机的合法取值，与 applications.status 列保持一致
const (
	StatusApplied            = "applied"
	StatusShortlisted        = "shortlisted"
	StatusRejected           = "rejected"
	StatusInterviewScheduled = "interview_scheduled"
)

// ValidApplicationStatuses 状态流转校验用的合法状态集合
var ValidApplicationStatuses = map[string]struct{}{
	StatusApplied:            {},
	StatusShortlisted:        {},
	StatusRejected:           {},
	StatusInterviewScheduled: {},
}

// StatusDuplicateFileSkipped 重复文件投递的处理结果，只出现在响应里，不落库
const StatusDuplicateFileSkipped = "DUPLICATE_FILE_SKIPPED"

// 发件箱事件类型，与RabbitMQ路由键同名
const (
	EventApplicationScored  = "application.scored"
	EventJobKeywordsChanged = "job.keywords_changed"
)

const (
	// KeywordCacheDuration 职位关键词缓存的默认过期时间
	KeywordCacheDuration = 30 * time.Minute

	// MD5RecordDefaultExpiry 简历文件MD5去重记录的默认过期时间
	MD5RecordDefaultExpiry = 365 * 24 * time.Hour

	// RescoreLockDuration 单个职位重评分布式锁的持有时间
	RescoreLockDuration = 10 * time.Minute
)
