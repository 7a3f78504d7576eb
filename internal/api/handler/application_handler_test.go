package handler

import (
	"mime/multipart"
	"testing"

	"ats-match-go/internal/config"
	"ats-match-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUploadTestHandler(maxMB int64, exts []string) *ApplicationHandler {
	cfg := &config.Config{}
	cfg.Upload.MaxFileSizeMB = maxMB
	cfg.Upload.AllowedExtensions = exts
	return NewApplicationHandler(cfg, nil, nil)
}

func TestValidateUploadExtensionWhitelist(t *testing.T) {
	h := newUploadTestHandler(5, []string{".pdf", ".docx"})

	cases := []struct {
		name     string
		filename string
		ok       bool
	}{
		{"pdf通过", "resume.pdf", true},
		{"docx通过", "resume.docx", true},
		{"大写扩展名通过", "RESUME.PDF", true},
		{"doc拒绝", "resume.doc", false},
		{"txt拒绝", "resume.txt", false},
		{"无扩展名拒绝", "resume", false},
		{"伪装扩展名拒绝", "resume.pdf.exe", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fh := &multipart.FileHeader{Filename: tc.filename, Size: 1024}
			errMsg := h.validateUpload(fh)
			if tc.ok {
				assert.Empty(t, errMsg)
			} else {
				assert.NotEmpty(t, errMsg)
			}
		})
	}
}

func TestValidateUploadSizeCap(t *testing.T) {
	h := newUploadTestHandler(5, []string{".pdf"})

	within := &multipart.FileHeader{Filename: "a.pdf", Size: 5 * 1024 * 1024}
	assert.Empty(t, h.validateUpload(within), "恰好5MB应通过")

	over := &multipart.FileHeader{Filename: "a.pdf", Size: 5*1024*1024 + 1}
	assert.NotEmpty(t, h.validateUpload(over), "超出上限应拒绝")
}

func TestValidateUploadDefaultExtensions(t *testing.T) {
	// 配置缺省时回落到 .pdf/.docx 白名单
	h := newUploadTestHandler(5, nil)

	assert.Empty(t, h.validateUpload(&multipart.FileHeader{Filename: "a.pdf", Size: 1}))
	assert.Empty(t, h.validateUpload(&multipart.FileHeader{Filename: "a.docx", Size: 1}))
	assert.NotEmpty(t, h.validateUpload(&multipart.FileHeader{Filename: "a.doc", Size: 1}))
}

func TestApplicationItemConversion(t *testing.T) {
	h := NewApplicationListHandler(&config.Config{}, nil)

	matched, err := models.StringsToJSON([]string{"golang", "docker"})
	require.NoError(t, err)
	missing, err := models.StringsToJSON([]string{"terraform"})
	require.NoError(t, err)

	item := h.toItem(&models.Application{
		ApplicationID:       "app-1",
		JobID:               "job-1",
		CandidateEmail:      "a@b.c",
		ATSScore:            66.7,
		MatchedKeywordsJSON: matched,
		MissingKeywordsJSON: missing,
		Status:              "applied",
	})

	assert.Equal(t, 66.7, item.Score)
	assert.Equal(t, []string{"golang", "docker"}, item.MatchedKeywords)
	assert.Equal(t, []string{"terraform"}, item.MissingKeywords)
}

func TestApplicationItemConversionEmptyColumns(t *testing.T) {
	// JSON列为空时应返回空列表而不是null
	h := NewApplicationListHandler(&config.Config{}, nil)

	item := h.toItem(&models.Application{ApplicationID: "app-2", JobID: "job-1"})
	assert.NotNil(t, item.MatchedKeywords)
	assert.Empty(t, item.MatchedKeywords)
	assert.NotNil(t, item.MissingKeywords)
	assert.Empty(t, item.MissingKeywords)
}
