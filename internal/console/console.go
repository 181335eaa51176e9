// Package console renders store snapshots for the terminal. It is a plain
// consumer of the store contract: all state lives in the store, all policy
// on the server.
package console

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"diary_console/internal/domain/models"

	"github.com/fatih/color"
)

var (
	pendingColor  = color.New(color.FgYellow)
	approvedColor = color.New(color.FgGreen)
	rejectedColor = color.New(color.FgRed)
	dimColor      = color.New(color.Faint)
)

func statusLabel(status models.DiaryStatus) string {
	switch status {
	case models.StatusPending:
		return pendingColor.Sprint("pending")
	case models.StatusApproved:
		return approvedColor.Sprint("approved")
	case models.StatusRejected:
		return rejectedColor.Sprint("rejected")
	default:
		return string(status)
	}
}

// FilterByKeyword narrows items to those whose title or author matches the
// keyword, case-insensitively. Screens use it for quick narrowing without a
// server round trip.
func FilterByKeyword(items []models.Diary, keyword string) []models.Diary {
	keyword = strings.TrimSpace(strings.ToLower(keyword))
	if keyword == "" {
		return items
	}

	out := make([]models.Diary, 0, len(items))
	for _, d := range items {
		if strings.Contains(strings.ToLower(d.Title), keyword) ||
			strings.Contains(strings.ToLower(d.Author.Username), keyword) ||
			strings.Contains(strings.ToLower(d.Author.Nickname), keyword) {
			out = append(out, d)
		}
	}
	return out
}

// SortByReviewedAt orders a copy of items by updatedAt descending. Only the
// review-history table is sorted client-side; every other collection keeps
// server order.
func SortByReviewedAt(items []models.Diary) []models.Diary {
	out := append([]models.Diary(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// ReviewSummary counts approve/reject outcomes in a reviewed-history window.
type ReviewSummary struct {
	Approved int
	Rejected int
}

func Summarize(items []models.Diary) ReviewSummary {
	var sum ReviewSummary
	for _, d := range items {
		switch d.Status {
		case models.StatusApproved:
			sum.Approved++
		case models.StatusRejected:
			sum.Rejected++
		}
	}
	return sum
}

// RenderCollection writes one collection snapshot as a table.
func RenderCollection(w io.Writer, name models.CollectionName, snap models.CollectionSnapshot, keyword string) {
	if snap.Error != "" {
		rejectedColor.Fprintf(w, "last fetch failed: %s (showing previous data)\n", snap.Error)
	}

	items := FilterByKeyword(snap.Items, keyword)
	if name == models.CollectionMyReviewed {
		items = SortByReviewedAt(items)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tAUTHOR\tUPDATED")
	for _, d := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.ID,
			statusLabel(d.Status),
			truncate(d.Title, 40),
			d.Author.Nickname,
			formatTime(d.UpdatedAt),
		)
	}
	tw.Flush()

	dimColor.Fprintf(w, "page %d/%d, %d total\n", snap.Page, snap.TotalPages, snap.Total)

	if name == models.CollectionMyReviewed {
		sum := Summarize(items)
		fmt.Fprintf(w, "reviewed: %s / %s\n",
			approvedColor.Sprintf("%d approved", sum.Approved),
			rejectedColor.Sprintf("%d rejected", sum.Rejected),
		)
	}
}

// RenderDiary writes a single diary in detail.
func RenderDiary(w io.Writer, d models.Diary) {
	fmt.Fprintf(w, "%s  %s\n", d.Title, statusLabel(d.Status))
	dimColor.Fprintf(w, "id: %s  author: %s (@%s)\n", d.ID, d.Author.Nickname, d.Author.Username)
	if !d.CreatedAt.IsZero() {
		dimColor.Fprintf(w, "created: %s  updated: %s\n", formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	}
	if d.RejectReason != "" {
		rejectedColor.Fprintf(w, "reject reason: %s\n", d.RejectReason)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, truncate(d.Content, 2000))
	if len(d.Images) > 0 {
		fmt.Fprintf(w, "\nimages (%d):\n", len(d.Images))
		for _, img := range d.Images {
			fmt.Fprintf(w, "  %s\n", img)
		}
	}
	if d.VideoURL != "" {
		fmt.Fprintf(w, "video: %s\n", d.VideoURL)
	}
}

// RenderSuggestion writes an advisory AI verdict.
func RenderSuggestion(w io.Writer, s models.AISuggestion) {
	verdict := rejectedColor.Sprint("reject")
	if s.Approved {
		verdict = approvedColor.Sprint("approve")
	}
	fmt.Fprintf(w, "ai suggestion: %s\n", verdict)
	fmt.Fprintf(w, "reason: %s\n", s.Reason)
	dimColor.Fprintln(w, "advisory only; the decision is yours")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
