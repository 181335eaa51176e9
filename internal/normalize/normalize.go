// Package normalize converts heterogeneous backend payloads into the
// canonical Diary shape. Every function here is total: a malformed record
// becomes a sentinel-filled Diary instead of an error, so one bad record can
// never abort list rendering.
package normalize

import (
	"encoding/json"
	"time"

	"diary_console/internal/domain/models"
)

const (
	// SentinelID marks a record that arrived without any usable identifier.
	SentinelID = "unknown"

	sentinelTitle   = "数据加载错误"
	sentinelContent = "该游记数据不完整，无法显示。"

	unknownUsername = "未知用户"
)

// RawDiary mirrors the union of record shapes the backend endpoints emit.
// Older endpoints send Mongo-style `_id` and `video`; newer ones send `id`
// and `videoUrl`. Author population is not guaranteed everywhere.
type RawDiary struct {
	ID           string     `json:"id"`
	MongoID      string     `json:"_id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Images       []string   `json:"images"`
	Video        string     `json:"video"`
	VideoURL     string     `json:"videoUrl"`
	Status       string     `json:"status"`
	RejectReason string     `json:"rejectReason"`
	Author       *RawAuthor `json:"author"`
	CreatedAt    string     `json:"createdAt"`
	UpdatedAt    string     `json:"updatedAt"`
}

type RawAuthor struct {
	ID        string `json:"id"`
	MongoID   string `json:"_id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	Avatar    string `json:"avatar"`
	AvatarURL string `json:"avatarUrl"`
}

// RawPage is the paginated envelope shared by all list endpoints.
type RawPage struct {
	Items      []RawDiary `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}

// Diary maps one raw record to the canonical shape. A record without an id
// yields a sentinel diary with status approved so it renders harmlessly in
// whatever list it came back in.
func Diary(raw RawDiary) models.Diary {
	id := raw.ID
	if id == "" {
		id = raw.MongoID
	}
	if id == "" {
		return models.Diary{
			ID:      SentinelID,
			Title:   sentinelTitle,
			Content: sentinelContent,
			Images:  []string{},
			Status:  models.StatusApproved,
			Author:  unknownAuthor(),
		}
	}

	d := models.Diary{
		ID:           id,
		Title:        raw.Title,
		Content:      raw.Content,
		Images:       raw.Images,
		VideoURL:     raw.VideoURL,
		Status:       status(raw.Status),
		RejectReason: raw.RejectReason,
		Author:       author(raw.Author),
		CreatedAt:    timestamp(raw.CreatedAt),
		UpdatedAt:    timestamp(raw.UpdatedAt),
	}
	if d.Images == nil {
		d.Images = []string{}
	}
	if d.VideoURL == "" {
		d.VideoURL = raw.Video
	}
	if d.Status != models.StatusRejected {
		d.RejectReason = ""
	}

	return d
}

// DiaryJSON decodes and normalizes a single raw record. Undecodable input
// degrades to the sentinel diary like any other malformed record.
func DiaryJSON(data []byte) models.Diary {
	var raw RawDiary
	if err := json.Unmarshal(data, &raw); err != nil {
		return Diary(RawDiary{})
	}
	return Diary(raw)
}

// Page maps a raw paginated response; every item passes through Diary.
func Page(raw RawPage) models.DiaryPage {
	items := make([]models.Diary, 0, len(raw.Items))
	for _, it := range raw.Items {
		items = append(items, Diary(it))
	}

	return models.DiaryPage{
		Items:      items,
		Total:      raw.Total,
		Page:       raw.Page,
		Limit:      raw.Limit,
		TotalPages: raw.TotalPages,
	}
}

func status(s string) models.DiaryStatus {
	switch models.DiaryStatus(s) {
	case models.StatusPending, models.StatusApproved, models.StatusRejected:
		return models.DiaryStatus(s)
	default:
		// unknown status is treated as already reviewed and safe to show
		return models.StatusApproved
	}
}

func author(raw *RawAuthor) models.Author {
	if raw == nil {
		return unknownAuthor()
	}

	id := raw.ID
	if id == "" {
		id = raw.MongoID
	}
	if id == "" {
		id = SentinelID
	}

	username := raw.Username
	if username == "" {
		username = unknownUsername
	}

	avatar := raw.AvatarURL
	if avatar == "" {
		avatar = raw.Avatar
	}

	nickname := raw.Nickname
	if nickname == "" {
		nickname = username
	}

	return models.Author{
		ID:        id,
		Username:  username,
		Nickname:  nickname,
		AvatarURL: avatar,
	}
}

func unknownAuthor() models.Author {
	return models.Author{
		ID:       SentinelID,
		Username: unknownUsername,
		Nickname: unknownUsername,
	}
}

func timestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
