package extractor

import (
	"encoding/json"
	"strings"
)

// ResumeRecord 结构化简历记录，字段形状与简历构建器落库的 JSON 一致
type ResumeRecord struct {
	Personal     ResumePersonal    `json:"personal"`
	Summary      string            `json:"summary"`
	Education    []EducationEntry  `json:"education"`
	Experience   []ExperienceEntry `json:"experience"`
	Projects     []ProjectEntry    `json:"projects"`
	Skills       []string          `json:"skills"`
	Achievements string            `json:"achievements"`
}

// ResumePersonal 个人信息段
type ResumePersonal struct {
	FullName string `json:"full_name"`
	Headline string `json:"headline"`
	Location string `json:"location"`
}

// EducationEntry 教育经历条目
type EducationEntry struct {
	School   string `json:"school"`
	Degree   string `json:"degree"`
	Details  string `json:"details"`
	Duration string `json:"duration"`
}

// ExperienceEntry 工作经历条目
type ExperienceEntry struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
}

// ProjectEntry 项目经历条目
type ProjectEntry struct {
	Title       string `json:"title"`
	Tech        string `json:"tech"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
}

// FlattenResumeRecord 把结构化简历按固定顺序摊平成纯文本：
// 姓名、头衔、所在地、概述，每条教育/工作/项目经历按字段空格拼接，
// 技能列表空格拼接，最后是成就文本。非空片段用换行连接；
// 缺失字段贡献空串而不是错误。
func FlattenResumeRecord(rec ResumeRecord) string {
	parts := make([]string, 0, 8+len(rec.Education)+len(rec.Experience)+len(rec.Projects))

	parts = append(parts,
		rec.Personal.FullName,
		rec.Personal.Headline,
		rec.Personal.Location,
		rec.Summary,
	)

	for _, e := range rec.Education {
		parts = append(parts, strings.Join([]string{e.School, e.Degree, e.Details, e.Duration}, " "))
	}
	for _, ex := range rec.Experience {
		parts = append(parts, strings.Join([]string{ex.Title, ex.Company, ex.Description, ex.Duration}, " "))
	}
	for _, p := range rec.Projects {
		parts = append(parts, strings.Join([]string{p.Title, p.Tech, p.Description, p.Duration}, " "))
	}

	parts = append(parts, strings.Join(rec.Skills, " "))
	parts = append(parts, rec.Achievements)

	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// FlattenResumeJSON 解析结构化简历 JSON 并摊平为纯文本。
// JSON 非法时返回 PARSE_ERROR；合法但摊平后没有内容时返回 EMPTY_RECORD，
// 两种情况 Text 都为空串，评分按空文本退化。
func FlattenResumeJSON(raw []byte) Result {
	if len(raw) == 0 {
		return failure(FailureEmptyRecord, ErrEmptyRecord)
	}

	var rec ResumeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return failure(FailureParse, NewExtractError("", "record", ErrParseFailed, err.Error()))
	}

	text := FlattenResumeRecord(rec)
	if text == "" {
		return failure(FailureEmptyRecord, ErrEmptyRecord)
	}
	return success(text)
}
