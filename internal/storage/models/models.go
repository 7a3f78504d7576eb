package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Job 职位信息表
type Job struct {
	JobID              string         `gorm:"type:char(36);primaryKey"`
	Title              string         `gorm:"type:varchar(255);not null"`
	Department         string         `gorm:"type:varchar(255)"`
	Location           string         `gorm:"type:varchar(255)"`
	DescriptionText    string         `gorm:"type:text;not null"`
	RequiredSkillsJSON datatypes.JSON `gorm:"type:json"` // 显式配置的关键词列表，空时从描述推导
	Status             string         `gorm:"type:varchar(50);default:'ACTIVE';index:idx_jobs_status"`
	CreatedByUserID    string         `gorm:"type:char(36)"`
	CreatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}

// Resume 简历构建器落库的结构化简历表
type Resume struct {
	ResumeID       string         `gorm:"type:char(36);primaryKey"`
	CandidateName  string         `gorm:"type:varchar(255)"`
	CandidateEmail string         `gorm:"type:varchar(255);index:idx_resumes_candidate_email"`
	ContentJSON    datatypes.JSON `gorm:"type:json;not null"` // personal/education/experience/projects/skills/achievements
	CreatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Resume) TableName() string {
	return "resumes"
}

// Application 投递申请表，每个职位每个候选人邮箱最多一条
type Application struct {
	ApplicationID string  `gorm:"type:char(36);primaryKey"`
	JobID         string  `gorm:"type:char(36);not null;index:idx_applications_job_id;uniqueIndex:idx_applications_job_email,priority:1"`
	ResumeID      *string `gorm:"type:char(36);index:idx_applications_resume_id"` // 走结构化简历通道时非空

	CandidateName  string `gorm:"type:varchar(255)"`
	CandidateEmail string `gorm:"type:varchar(255);not null;uniqueIndex:idx_applications_job_email,priority:2"`

	// 上传简历通道的文件信息
	OriginalFilename    string `gorm:"type:varchar(255)"`
	OriginalFilePathOSS string `gorm:"type:varchar(1024)"`
	ParsedTextPathOSS   string `gorm:"type:varchar(1024)"`
	RawFileMD5          string `gorm:"type:char(32);index:idx_applications_raw_file_md5"`

	// 评分结果
	ATSScore            float64        `gorm:"type:double;not null;default:0"`
	MatchedKeywordsJSON datatypes.JSON `gorm:"type:json"`
	MissingKeywordsJSON datatypes.JSON `gorm:"type:json"`

	Status    string    `gorm:"type:varchar(50);default:'applied';index:idx_applications_status"`
	AppliedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_applications_applied_at"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Job    *Job    `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Resume *Resume `gorm:"foreignKey:ResumeID;references:ResumeID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (Application) TableName() string {
	return "applications"
}

// StringToJSON Helper function to convert string to datatypes.JSON
func StringToJSON(s string) datatypes.JSON {
	return datatypes.JSON(s)
}

// StringsToJSON 把字符串切片序列化为JSON列值，nil视为空列表
func StringsToJSON(values []string) (datatypes.JSON, error) {
	if values == nil {
		values = []string{}
	}
	bytes, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// JSONToStrings 把JSON列值反序列化为字符串切片，空列值返回nil
func JSONToStrings(data datatypes.JSON) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// MapToJSON Helper function to convert map[string]interface{} to datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
