package models

import "time"

type DiaryStatus string

const (
	StatusPending  DiaryStatus = "pending"
	StatusApproved DiaryStatus = "approved"
	StatusRejected DiaryStatus = "rejected"
)

// Diary is the canonical client-side shape of a reviewable submission.
// Instances are produced by the normalizer from server payloads and are only
// ever replaced wholesale with a server-returned copy, never patched field
// by field.
type Diary struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	Images       []string    `json:"images"`
	VideoURL     string      `json:"videoUrl,omitempty"`
	Status       DiaryStatus `json:"status"`
	RejectReason string      `json:"rejectReason,omitempty"`
	Author       Author      `json:"author"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Author is a read-only reference; the console never mutates it.
type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl"`
}

// DiaryPage is one server page of diaries. The server is the source of truth
// for Total and TotalPages; pages are 1-indexed.
type DiaryPage struct {
	Items      []Diary `json:"items"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

// AISuggestion is an advisory approve/reject recommendation. It is ephemeral
// and never authoritative.
type AISuggestion struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

type CollectionName string

const (
	CollectionPending    CollectionName = "pending"
	CollectionApproved   CollectionName = "approved"
	CollectionRejected   CollectionName = "rejected"
	CollectionMyReviewed CollectionName = "myReviewed"
)

// Collections lists every collection the store tracks, in display order.
func Collections() []CollectionName {
	return []CollectionName{
		CollectionPending,
		CollectionApproved,
		CollectionRejected,
		CollectionMyReviewed,
	}
}

// CollectionSnapshot is the observable state of one paginated collection.
type CollectionSnapshot struct {
	Items      []Diary
	Total      int
	Page       int
	Limit      int
	TotalPages int
	Loading    bool
	Error      string
}
