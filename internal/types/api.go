package types

import "time"

// APIResponse 后端统一响应包装，code == 0 表示成功
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

// IsSuccess 判断业务是否成功
func (r *APIResponse[T]) IsSuccess() bool {
	return r.Code == 0
}

// EmptyData 无数据响应的占位类型
type EmptyData struct{}

// PaginatedResponse 分页响应
type PaginatedResponse[T any] struct {
	Items    []T  `json:"items"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// MembershipType 会员类型
type MembershipType string

const (
	MembershipNone      MembershipType = "none"
	MembershipWeekly    MembershipType = "weekly"
	MembershipMonthly   MembershipType = "monthly"
	MembershipQuarterly MembershipType = "quarterly"
	MembershipYearly    MembershipType = "yearly"
)

// User 用户模型
type User struct {
	ID                   string         `json:"id"`
	Nickname             string         `json:"nickname"`
	Avatar               string         `json:"avatar"`
	Phone                string         `json:"phone,omitempty"`
	WechatOpenID         string         `json:"wechat_open_id,omitempty"`
	AppleID              string         `json:"apple_id,omitempty"`
	MembershipType       MembershipType `json:"membership_type"`
	MembershipExpireTime *time.Time     `json:"membership_expire_time,omitempty"`
	Points               int            `json:"points"`
	TotalWorks           int            `json:"total_works"`
	TotalLikes           int            `json:"total_likes"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// IsMember 判断会员是否有效
func (u *User) IsMember(now time.Time) bool {
	if u.MembershipType == MembershipNone || u.MembershipType == "" {
		return false
	}
	if u.MembershipExpireTime == nil {
		return false
	}
	return u.MembershipExpireTime.After(now)
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// GenerationStatus 生成任务状态
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
	GenerationCancelled  GenerationStatus = "cancelled"
)

// IsTerminal 判断状态是否为终态
func (s GenerationStatus) IsTerminal() bool {
	switch s {
	case GenerationCompleted, GenerationFailed, GenerationCancelled:
		return true
	}
	return false
}

// GenerationTask 生成任务
type GenerationTask struct {
	ID           string           `json:"id"`
	TemplateID   string           `json:"template_id"`
	ImageRef     string           `json:"image_ref"`
	Status       GenerationStatus `json:"status"`
	Progress     int              `json:"progress"`
	ResultRef    string           `json:"result_ref,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	PointsCost   int              `json:"points_cost"`
	CreatedAt    time.Time        `json:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// GenerationResponse 创建生成任务的响应
type GenerationResponse struct {
	TaskID        string `json:"task_id"`
	EstimatedTime int    `json:"estimated_time"`
	QueuePosition *int   `json:"queue_position,omitempty"`
}

// UploadResponse 图片上传响应
type UploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Membership 会员信息（购买验证后返回）
type Membership struct {
	Type       MembershipType `json:"type"`
	ExpireTime *time.Time     `json:"expire_time,omitempty"`
}

// VerifyPurchaseResponse 购买验证响应
type VerifyPurchaseResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Points     *int        `json:"points,omitempty"`
	Membership *Membership `json:"membership,omitempty"`
}

// Template 模板详情
type Template struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CoverURL      string    `json:"cover_url"`
	PreviewImages []string  `json:"preview_images"`
	Category      string    `json:"category"`
	PointsCost    int       `json:"points_cost"`
	IsFree        bool      `json:"is_free"`
	IsHot         bool      `json:"is_hot"`
	IsNew         bool      `json:"is_new"`
	UsageCount    int       `json:"usage_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// TemplateListItem 模板列表项
type TemplateListItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CoverURL   string `json:"cover_url"`
	Category   string `json:"category"`
	PointsCost int    `json:"points_cost"`
	IsFree     bool   `json:"is_free"`
	IsHot      bool   `json:"is_hot"`
	IsNew      bool   `json:"is_new"`
	UsageCount int    `json:"usage_count"`
}

// WorkListItem 作品列表项
type WorkListItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CoverURL     string    `json:"cover_url"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_avatar"`
	LikeCount    int       `json:"like_count"`
	ViewCount    int       `json:"view_count"`
	IsLiked      bool      `json:"is_liked"`
	CreatedAt    time.Time `json:"created_at"`
}

// WorkDetail 作品详情
type WorkDetail struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	OriginalImageURL string         `json:"original_image_url"`
	ResultImageURL   string         `json:"result_image_url"`
	Prompt           string         `json:"prompt"`
	TemplateID       string         `json:"template_id"`
	TemplateName     string         `json:"template_name"`
	AuthorID         string         `json:"author_id"`
	AuthorName       string         `json:"author_name"`
	LikeCount        int            `json:"like_count"`
	ViewCount        int            `json:"view_count"`
	ShareCount       int            `json:"share_count"`
	IsLiked          bool           `json:"is_liked"`
	IsPublic         bool           `json:"is_public"`
	CreatedAt        time.Time      `json:"created_at"`
	FollowWorks      []WorkListItem `json:"follow_works,omitempty"`
}
