package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"ats-match-go/internal/ats"
	"ats-match-go/internal/config"
	"ats-match-go/internal/storage"
	"ats-match-go/internal/storage/models"
)

// 关键词推导的兜底参数，与配置默认值保持一致
const (
	defaultDerivedKeywordLimit   = 40
	defaultMinDerivedTokenLength = 2
)

// 消费方窄接口，便于测试替换具体存储
type keywordCache interface {
	GetCachedJobKeywords(ctx context.Context, jobID string) ([]string, error)
	CacheJobKeywords(ctx context.Context, jobID string, keywords []string) error
}

type jobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*models.Job, error)
}

// CachedKeywordProvider 职位关键词的读穿缓存实现。
// 解析顺序: Redis缓存 -> 职位行 required_skills -> 职位描述推导。
// 只有显式配置的关键词会回填缓存，推导结果每次重新计算，
// 这样关键词从"无配置"变为"有配置"时不需要额外的缓存失效。
type CachedKeywordProvider struct {
	cache keywordCache // 可为nil，此时跳过缓存直接读库
	jobs  jobStore

	minTokenLength int
	keywordLimit   int
	logger         *log.Logger
}

var _ KeywordProvider = (*CachedKeywordProvider)(nil)

// NewCachedKeywordProvider 基于聚合存储构造关键词解析器。
// Redis 缺失时降级为直读MySQL，MySQL 缺失时 KeywordsForJob 返回错误。
func NewCachedKeywordProvider(store *storage.Storage, scoring config.ScoringConfig, logger *log.Logger) *CachedKeywordProvider {
	if logger == nil {
		logger = log.New(io.Discard, "[KeywordProvider] ", log.LstdFlags)
	}

	p := &CachedKeywordProvider{
		minTokenLength: scoring.MinDerivedTokenLength,
		keywordLimit:   scoring.DerivedKeywordLimit,
		logger:         logger,
	}
	if p.minTokenLength <= 0 {
		p.minTokenLength = defaultMinDerivedTokenLength
	}
	if p.keywordLimit <= 0 {
		p.keywordLimit = defaultDerivedKeywordLimit
	}

	if store != nil {
		if store.Redis != nil {
			p.cache = store.Redis
		}
		if store.MySQL != nil {
			p.jobs = store.MySQL
		}
	}
	return p
}

// KeywordsForJob 返回职位的生效关键词，derived 表示列表由描述推导而来。
// 职位不存在时透传 gorm.ErrRecordNotFound，由调用方映射为404。
func (p *CachedKeywordProvider) KeywordsForJob(ctx context.Context, jobID string) ([]string, bool, error) {
	if jobID == "" {
		return nil, false, fmt.Errorf("jobID 不能为空")
	}

	// 1. 缓存命中直接返回
	if p.cache != nil {
		keywords, err := p.cache.GetCachedJobKeywords(ctx, jobID)
		if err == nil && len(keywords) > 0 {
			return keywords, false, nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			// 缓存故障不阻断评分，降级读库
			p.logger.Printf("[WARN] 读取职位 %s 的关键词缓存失败: %v", jobID, err)
		}
	}

	if p.jobs == nil {
		return nil, false, fmt.Errorf("CachedKeywordProvider: MySQL 未初始化")
	}

	// 2. 职位行的 required_skills
	job, err := p.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, false, err
	}

	skills, err := models.JSONToStrings(job.RequiredSkillsJSON)
	if err != nil {
		// 列值损坏按未配置处理，走描述推导
		p.logger.Printf("[WARN] 职位 %s 的 required_skills 列解析失败: %v", jobID, err)
		skills = nil
	}

	if len(skills) > 0 {
		if p.cache != nil {
			if err := p.cache.CacheJobKeywords(ctx, jobID, skills); err != nil {
				p.logger.Printf("[WARN] 回填职位 %s 的关键词缓存失败: %v", jobID, err)
			}
		}
		return skills, false, nil
	}

	// 3. 描述推导兜底
	derived := ats.DeriveKeywords(job.DescriptionText, p.minTokenLength, p.keywordLimit)
	return derived, true, nil
}
