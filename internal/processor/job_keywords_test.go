package processor

import (
	"context"
	"errors"
	"testing"

	"ats-match-go/internal/config"
	"ats-match-go/internal/storage"
	"ats-match-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fakeKeywordCache 内存实现的关键词缓存
type fakeKeywordCache struct {
	data    map[string][]string
	getErr  error
	setErr  error
	setKeys []string
}

func (f *fakeKeywordCache) GetCachedJobKeywords(ctx context.Context, jobID string) ([]string, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if keywords, ok := f.data[jobID]; ok {
		return keywords, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeKeywordCache) CacheJobKeywords(ctx context.Context, jobID string, keywords []string) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.data == nil {
		f.data = make(map[string][]string)
	}
	f.data[jobID] = keywords
	f.setKeys = append(f.setKeys, jobID)
	return nil
}

// fakeJobStore 内存实现的职位查询
type fakeJobStore struct {
	jobs map[string]*models.Job
}

func (f *fakeJobStore) GetJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	if job, ok := f.jobs[jobID]; ok {
		return job, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestProvider(cache keywordCache, jobs jobStore) *CachedKeywordProvider {
	p := NewCachedKeywordProvider(nil, config.ScoringConfig{}, nil)
	p.cache = cache
	p.jobs = jobs
	return p
}

func mustSkillsJSON(t *testing.T, skills []string) datatypes.JSON {
	t.Helper()
	data, err := models.StringsToJSON(skills)
	require.NoError(t, err)
	return data
}

func TestKeywordsForJobCacheHit(t *testing.T) {
	cache := &fakeKeywordCache{data: map[string][]string{"job-1": {"golang", "docker"}}}
	p := newTestProvider(cache, &fakeJobStore{})

	keywords, derived, err := p.KeywordsForJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "docker"}, keywords)
	assert.False(t, derived)
}

func TestKeywordsForJobConfiguredSkills(t *testing.T) {
	cache := &fakeKeywordCache{}
	jobs := &fakeJobStore{jobs: map[string]*models.Job{
		"job-1": {JobID: "job-1", RequiredSkillsJSON: mustSkillsJSON(t, []string{"kubernetes", "redis"})},
	}}
	p := newTestProvider(cache, jobs)

	keywords, derived, err := p.KeywordsForJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"kubernetes", "redis"}, keywords)
	assert.False(t, derived)
	assert.Equal(t, []string{"job-1"}, cache.setKeys, "显式配置的关键词应回填缓存")
}

func TestKeywordsForJobDerivedFromDescription(t *testing.T) {
	jobs := &fakeJobStore{jobs: map[string]*models.Job{
		"job-1": {
			JobID:           "job-1",
			DescriptionText: "Looking for golang engineers with docker experience and docker skills",
		},
	}}
	cache := &fakeKeywordCache{}
	p := newTestProvider(cache, jobs)

	keywords, derived, err := p.KeywordsForJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, derived, "无配置关键词时应由描述推导")
	assert.Contains(t, keywords, "golang")
	assert.Contains(t, keywords, "docker")
	assert.Empty(t, cache.setKeys, "推导结果不应回填缓存")
}

func TestKeywordsForJobCacheFailureDegrades(t *testing.T) {
	// 缓存故障不应阻断评分，降级为直读库
	cache := &fakeKeywordCache{getErr: errors.New("redis down")}
	jobs := &fakeJobStore{jobs: map[string]*models.Job{
		"job-1": {JobID: "job-1", RequiredSkillsJSON: mustSkillsJSON(t, []string{"golang"})},
	}}
	p := newTestProvider(cache, jobs)

	keywords, _, err := p.KeywordsForJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, keywords)
}

func TestKeywordsForJobMissingJob(t *testing.T) {
	p := newTestProvider(nil, &fakeJobStore{})

	_, _, err := p.KeywordsForJob(context.Background(), "missing")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "职位不存在应透传记录不存在错误")
}

func TestKeywordsForJobEmptyJobID(t *testing.T) {
	p := newTestProvider(nil, &fakeJobStore{})

	_, _, err := p.KeywordsForJob(context.Background(), "")
	assert.Error(t, err)
}
