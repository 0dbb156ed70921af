package models

import (
	"errors"
	"time"
)

type Category string

const (
	CategoryCollege  Category = "college"
	CategoryBusiness Category = "business"
	CategoryNGO      Category = "ngo"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCollege, CategoryBusiness, CategoryNGO:
		return true
	}
	return false
}

type Audience string

const (
	AudienceGeneral       Audience = "general"
	AudienceStudents      Audience = "students"
	AudienceProfessionals Audience = "professionals"
	AudienceDonors        Audience = "donors"
	AudienceCommunity     Audience = "community"
	AudienceAlumni        Audience = "alumni"
)

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusScheduled PostStatus = "scheduled"
	StatusPosting   PostStatus = "posting"
	StatusPosted    PostStatus = "posted"
	StatusFailed    PostStatus = "failed"
)

// RequiresScheduledTime reports whether a post in this status must carry a
// scheduled time.
func (s PostStatus) RequiresScheduledTime() bool {
	switch s {
	case StatusScheduled, StatusPosting, StatusPosted:
		return true
	}
	return false
}

// Deletable reports whether a post in this status may be removed.
func (s PostStatus) Deletable() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusFailed:
		return true
	}
	return false
}

func (s PostStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPosting, StatusPosted, StatusFailed:
		return true
	}
	return false
}

const (
	MaxCaptionLength     = 2200
	MinCaptionLength     = 10
	MaxOccasionLength    = 100
	MaxImagePromptLength = 500
)

var (
	errMissingScheduledTime    = errors.New("scheduled time is required for scheduled, posting and posted posts")
	errPostedTimeWithoutPosted = errors.New("posted time may only be set on posted posts")
)

type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	DefaultCategory   Category  `json:"default_category"`
	DefaultAudience   Audience  `json:"default_audience"`
	AutoGeneratePosts bool      `json:"auto_generate_posts"`
	CollegeName       string    `json:"college_name,omitempty"`
	SchoolName        string    `json:"school_name,omitempty"`
	Industry          string    `json:"industry,omitempty"`
	CompanyName       string    `json:"company_name,omitempty"`
	NGOCause          string    `json:"ngo_cause,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// OrganizationContext collapses the organization details into the single
// sentence appended to generation prompts. College wins over company, company
// over NGO cause.
func (u *User) OrganizationContext() string {
	switch {
	case u.CollegeName != "":
		return "Mention " + u.CollegeName + "."
	case u.CompanyName != "":
		return "Mention " + u.CompanyName + "."
	case u.NGOCause != "":
		return "Focus on the cause of " + u.NGOCause + "."
	}
	return ""
}

func (u *User) Audience() Audience {
	if u.DefaultAudience == "" {
		return AudienceGeneral
	}
	return u.DefaultAudience
}

type PostError struct {
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
}

type Engagement struct {
	Likes       int       `json:"likes"`
	Comments    int       `json:"comments"`
	Shares      int       `json:"shares"`
	Impressions int       `json:"impressions"`
	Reach       int       `json:"reach"`
	LastUpdated time.Time `json:"last_updated"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CandidatesTokens int `json:"candidates_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type GenerationMetadata struct {
	CaptionModel     string     `json:"caption_model"`
	ImageModel       string     `json:"image_model"`
	GenerationTimeMs int64      `json:"generation_time_ms"`
	CaptionUsage     TokenUsage `json:"caption_usage"`
	RevisedPrompt    string     `json:"revised_prompt"`
	GeneratedAt      time.Time  `json:"generated_at"`
	Error            string     `json:"error,omitempty"`
}

type Post struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	Occasion      string             `json:"occasion"`
	Category      Category           `json:"category"`
	Audience      Audience           `json:"audience"`
	Caption       string             `json:"caption"`
	ImageURL      string             `json:"image_url"`
	ImagePrompt   string             `json:"image_prompt"`
	Status        PostStatus         `json:"status"`
	ScheduledTime *time.Time         `json:"scheduled_time,omitempty"`
	PostedTime    *time.Time         `json:"posted_time,omitempty"`
	Errors        []PostError        `json:"errors"`
	Engagement    Engagement         `json:"engagement"`
	Metadata      GenerationMetadata `json:"metadata"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Validate checks the status/timestamp invariants of a post record.
func (p *Post) Validate() error {
	if p.Status.RequiresScheduledTime() && p.ScheduledTime == nil {
		return errMissingScheduledTime
	}
	if p.PostedTime != nil && p.Status != StatusPosted {
		return errPostedTimeWithoutPosted
	}
	return nil
}

// LastRetryCount returns the retry count of the most recent error, or 0.
func (p *Post) LastRetryCount() int {
	if len(p.Errors) == 0 {
		return 0
	}
	return p.Errors[len(p.Errors)-1].RetryCount
}

// GenerationRequest is what the content generator is asked to produce.
type GenerationRequest struct {
	Occasion   string   `json:"occasion" validate:"required,max=100"`
	Category   Category `json:"category" validate:"required,oneof=college business ngo"`
	Audience   Audience `json:"audience" validate:"omitempty,oneof=general students professionals donors community alumni"`
	PromptHint string   `json:"prompt_hint,omitempty"`
}

type GeneratedContent struct {
	Caption     string             `json:"caption" validate:"required,min=10,max=2200"`
	ImageURL    string             `json:"image_url" validate:"required,url"`
	ImagePrompt string             `json:"image_prompt" validate:"max=500"`
	Metadata    GenerationMetadata `json:"metadata"`
}

type SchedulePostRequest struct {
	ScheduledTime time.Time `json:"scheduled_time" validate:"required"`
}

type PostListResponse struct {
	Posts       []*Post `json:"posts"`
	CurrentPage int     `json:"current_page"`
	TotalPages  int     `json:"total_pages"`
	TotalPosts  int     `json:"total_posts"`
}
