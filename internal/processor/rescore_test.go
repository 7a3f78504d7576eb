package processor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"ats-match-go/internal/ats"
	"ats-match-go/internal/storage"
	"ats-match-go/internal/storage/models"
	"ats-match-go/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fakeRescoreStore 内存版的重评存储，记录所有评分更新
type fakeRescoreStore struct {
	apps    []models.Application
	resumes map[string]*models.Resume

	updates map[string]map[string]interface{}
	events  map[string]*models.OutboxMessage
}

func newFakeRescoreStore(apps ...models.Application) *fakeRescoreStore {
	return &fakeRescoreStore{
		apps:    apps,
		resumes: map[string]*models.Resume{},
		updates: map[string]map[string]interface{}{},
		events:  map[string]*models.OutboxMessage{},
	}
}

func (f *fakeRescoreStore) ListApplicationsForRescore(ctx context.Context, jobID string, afterID string, batchSize int) ([]models.Application, error) {
	var out []models.Application
	for _, app := range f.apps {
		if app.JobID != jobID || app.ApplicationID <= afterID {
			continue
		}
		out = append(out, app)
		if len(out) >= batchSize {
			break
		}
	}
	return out, nil
}

func (f *fakeRescoreStore) UpdateApplicationScore(ctx context.Context, applicationID string, updates map[string]interface{}, outboxMsg *models.OutboxMessage) error {
	f.updates[applicationID] = updates
	f.events[applicationID] = outboxMsg
	return nil
}

func (f *fakeRescoreStore) GetResumeByID(ctx context.Context, resumeID string) (*models.Resume, error) {
	if resume, ok := f.resumes[resumeID]; ok {
		return resume, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// fakeParsedTextStore 按对象键返回归档的解析文本
type fakeParsedTextStore struct {
	texts map[string]string
}

func (f *fakeParsedTextStore) GetParsedText(ctx context.Context, objectKey string) (string, error) {
	if text, ok := f.texts[objectKey]; ok {
		return text, nil
	}
	return "", fmt.Errorf("对象 %s 未归档", objectKey)
}

// fakeRescoreLocker 模拟重评锁已被其他实例持有
type fakeRescoreLocker struct {
	held bool
}

func (f *fakeRescoreLocker) AcquireRescoreLock(ctx context.Context, jobID string) (string, error) {
	if f.held {
		return "", nil
	}
	return "lock-value", nil
}

func (f *fakeRescoreLocker) ReleaseRescoreLock(ctx context.Context, jobID string, lockValue string) (bool, error) {
	return true, nil
}

func newRescoreProcessor(t *testing.T, store *fakeRescoreStore, texts *fakeParsedTextStore, provider KeywordProvider) *ApplicationProcessor {
	t.Helper()
	ap := NewApplicationProcessor(&Components{
		Matcher:  ats.NewMatcher(),
		Keywords: provider,
	}, &Settings{})
	ap.rescoreDB = store
	ap.parsedText = texts
	return ap
}

// 关键词变更后的重评必须用事件携带的新关键词重算，而不是沿用旧评分
func TestRescoreJobUsesNewKeywords(t *testing.T) {
	store := newFakeRescoreStore(
		models.Application{
			ApplicationID:     "app-1",
			JobID:             "job-1",
			CandidateEmail:    "a@example.com",
			ParsedTextPathOSS: "parsed/app-1.txt",
			ATSScore:          100, // 旧关键词下的满分
		},
		models.Application{
			ApplicationID:  "app-2",
			JobID:          "job-1",
			CandidateEmail: "b@example.com",
			ATSScore:       50,
		},
		models.Application{
			ApplicationID:  "app-other",
			JobID:          "job-2",
			CandidateEmail: "c@example.com",
		},
	)
	texts := &fakeParsedTextStore{texts: map[string]string{
		"parsed/app-1.txt": "golang docker expert",
	}}
	ap := newRescoreProcessor(t, store, texts, &fakeProvider{})

	message := storage.JobKeywordsChangedMessage{
		JobID:    "job-1",
		Keywords: []string{"golang", "rust"},
	}
	limiter := ratelimit.NewTokenBucket(600, 10)

	require.NoError(t, ap.RescoreJob(context.Background(), message, limiter))

	// app-1 归档文本命中新关键词 golang，缺 rust
	require.Contains(t, store.updates, "app-1")
	assert.InDelta(t, 50.0, store.updates["app-1"]["ats_score"], 0.0001)
	assert.Contains(t, string(store.updates["app-1"]["matched_keywords_json"].(datatypes.JSON)), "golang")
	assert.Contains(t, string(store.updates["app-1"]["missing_keywords_json"].(datatypes.JSON)), "rust")

	// app-2 取不到任何文本，按空文本重评为0分
	require.Contains(t, store.updates, "app-2")
	assert.InDelta(t, 0.0, store.updates["app-2"]["ats_score"], 0.0001)

	// 其他职位的申请不受影响
	assert.NotContains(t, store.updates, "app-other")

	// 评分事件标记为重评
	event := store.events["app-1"]
	require.NotNil(t, event)
	assert.True(t, strings.Contains(event.Payload, `"rescored":true`), "重评事件负载应带rescored标记")
}

// 事件不带关键词时回退到关键词解析器
func TestRescoreJobResolvesKeywordsWhenAbsent(t *testing.T) {
	store := newFakeRescoreStore(models.Application{
		ApplicationID:     "app-1",
		JobID:             "job-1",
		CandidateEmail:    "a@example.com",
		ParsedTextPathOSS: "parsed/app-1.txt",
	})
	texts := &fakeParsedTextStore{texts: map[string]string{
		"parsed/app-1.txt": "kubernetes operator developer",
	}}
	provider := &fakeProvider{keywords: []string{"kubernetes"}}
	ap := newRescoreProcessor(t, store, texts, provider)

	message := storage.JobKeywordsChangedMessage{JobID: "job-1"}
	require.NoError(t, ap.RescoreJob(context.Background(), message, ratelimit.NewTokenBucket(600, 10)))

	require.Contains(t, store.updates, "app-1")
	assert.InDelta(t, 100.0, store.updates["app-1"]["ats_score"], 0.0001)
}

// 重评锁被其他实例持有时返回错误，让消息重投
func TestRescoreJobLockHeld(t *testing.T) {
	store := newFakeRescoreStore(models.Application{
		ApplicationID:  "app-1",
		JobID:          "job-1",
		CandidateEmail: "a@example.com",
	})
	ap := newRescoreProcessor(t, store, &fakeParsedTextStore{}, &fakeProvider{})
	ap.rescoreLock = &fakeRescoreLocker{held: true}

	message := storage.JobKeywordsChangedMessage{JobID: "job-1", Keywords: []string{"golang"}}
	err := ap.RescoreJob(context.Background(), message, ratelimit.NewTokenBucket(600, 10))
	require.Error(t, err)
	assert.Empty(t, store.updates, "拿不到锁时不应有任何评分更新")
}
