package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFlattenResumeRecordOrder 验证摊平顺序固定且与字段形状一致
func TestFlattenResumeRecordOrder(t *testing.T) {
	rec := ResumeRecord{
		Personal: ResumePersonal{
			FullName: "Jane Doe",
			Headline: "Backend Engineer",
			Location: "Berlin",
		},
		Summary: "Pythonista with Django experience",
		Education: []EducationEntry{
			{School: "MIT", Degree: "BSc", Details: "Computer Science", Duration: "2014-2018"},
		},
		Experience: []ExperienceEntry{
			{Title: "Engineer", Company: "Acme", Description: "Built REST APIs", Duration: "2018-2022"},
		},
		Projects: []ProjectEntry{
			{Title: "Matcher", Tech: "Go Redis", Description: "Keyword engine", Duration: "2023"},
		},
		Skills:       []string{"python", "sql", "django"},
		Achievements: "Speaker at PyCon",
	}

	want := strings.Join([]string{
		"Jane Doe",
		"Backend Engineer",
		"Berlin",
		"Pythonista with Django experience",
		"MIT BSc Computer Science 2014-2018",
		"Engineer Acme Built REST APIs 2018-2022",
		"Matcher Go Redis Keyword engine 2023",
		"python sql django",
		"Speaker at PyCon",
	}, "\n")

	assert.Equal(t, want, FlattenResumeRecord(rec), "摊平顺序应为 个人信息、概述、教育、经历、项目、技能、成就")
}

// TestFlattenResumeRecordPartialFields 验证缺失字段贡献空串而不是错误
func TestFlattenResumeRecordPartialFields(t *testing.T) {
	// 1. 只有部分字段的记录
	rec := ResumeRecord{
		Personal:  ResumePersonal{FullName: "Li Wei"},
		Education: []EducationEntry{{School: "THU"}},
	}

	// 条目内部按空格拼接，缺失字段留下尾随空格
	assert.Equal(t, "Li Wei\nTHU   ", FlattenResumeRecord(rec))

	// 2. 完全空的记录摊平为空串
	assert.Equal(t, "", FlattenResumeRecord(ResumeRecord{}))

	// 3. 只有技能列表
	rec = ResumeRecord{Skills: []string{"go", "mysql"}}
	assert.Equal(t, "go mysql", FlattenResumeRecord(rec))
}

// TestFlattenResumeJSON 验证 JSON 记录解析与摊平的端到端行为
func TestFlattenResumeJSON(t *testing.T) {
	raw := []byte(`{
		"personal": {"full_name": "Sam Roe", "headline": "Data Engineer", "location": "Remote"},
		"summary": "ETL pipelines",
		"education": [{"school": "UCL", "degree": "MSc", "details": "Data Science", "duration": "2019-2020"}],
		"experience": [{"title": "Analyst", "company": "Initech", "description": "Maintained SQL warehouses", "duration": "2020-2024"}],
		"projects": [{"title": "Pipeline", "tech": "Airflow", "description": "Batch jobs", "duration": "2021"}],
		"skills": ["sql", "python"],
		"achievements": "Top performer 2023",
		"unknown_field": 42
	}`)

	res := FlattenResumeJSON(raw)
	require.True(t, res.OK(), "合法记录应摊平成功")

	want := strings.Join([]string{
		"Sam Roe",
		"Data Engineer",
		"Remote",
		"ETL pipelines",
		"UCL MSc Data Science 2019-2020",
		"Analyst Initech Maintained SQL warehouses 2020-2024",
		"Pipeline Airflow Batch jobs 2021",
		"sql python",
		"Top performer 2023",
	}, "\n")
	assert.Equal(t, want, res.Text)

	// 纯空白字段按原样保留，记录不算空
	res = FlattenResumeJSON([]byte(`{"summary": " "}`))
	require.True(t, res.OK())
	assert.Equal(t, " ", res.Text)
}

// TestFlattenResumeJSONFailures 验证非法与空记录的失败分类
func TestFlattenResumeJSONFailures(t *testing.T) {
	// 1. 空输入
	res := FlattenResumeJSON(nil)
	assert.False(t, res.OK())
	assert.Equal(t, FailureEmptyRecord, res.Reason)
	assert.Empty(t, res.Text)

	// 2. 非法 JSON
	res = FlattenResumeJSON([]byte(`{"personal": `))
	assert.False(t, res.OK())
	assert.Equal(t, FailureParse, res.Reason, "非法 JSON 应标记为 PARSE_ERROR")
	assert.ErrorIs(t, res.Err, ErrParseFailed)
	assert.Empty(t, res.Text)

	// 3. 合法但无内容的记录
	res = FlattenResumeJSON([]byte(`{}`))
	assert.False(t, res.OK())
	assert.Equal(t, FailureEmptyRecord, res.Reason, "空记录应标记为 EMPTY_RECORD")
	assert.ErrorIs(t, res.Err, ErrEmptyRecord)
	assert.Empty(t, res.Text)
}
