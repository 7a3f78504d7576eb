package storage

import "time"

// ApplicationScoredMessage 申请评分完成事件
// 由outbox中继发布到事件交换机，路由键 application.scored
type ApplicationScoredMessage struct {
	ApplicationID   string    `json:"application_id"`             // 申请ID，主键
	JobID           string    `json:"job_id"`                     // 所属职位ID
	CandidateEmail  string    `json:"candidate_email,omitempty"`  // 候选人邮箱
	Score           float64   `json:"score"`                      // 匹配得分(0-100，一位小数)
	MatchedKeywords []string  `json:"matched_keywords,omitempty"` // 命中的关键词
	MissingKeywords []string  `json:"missing_keywords,omitempty"` // 缺失的关键词
	ScoredAt        time.Time `json:"scored_at"`                  // 评分时间
	Rescored        bool      `json:"rescored,omitempty"`         // 是否为关键词变更触发的重评
}

// JobKeywordsChangedMessage 职位关键词变更事件
// 路由键 job.keywords_changed，重评消费者据此批量重算该职位下的所有申请
type JobKeywordsChangedMessage struct {
	JobID     string    `json:"job_id"`               // 变更的职位ID
	Keywords  []string  `json:"keywords"`             // 变更后的完整关键词列表
	ChangedAt time.Time `json:"changed_at"`           // 变更时间
	ChangedBy string    `json:"changed_by,omitempty"` // 操作人(可选)
}
