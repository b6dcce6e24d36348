package board

import (
	"strings"
	"time"

	"campusfix-be/models"
)

// All disables a filter field.
const All = "all"

// Filter narrows the dashboard list. Empty fields behave like All.
type Filter struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Category string `form:"category"`
}

func (f Filter) Apply(issues []models.Issue) []models.Issue {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if search != "" &&
			!strings.Contains(strings.ToLower(issue.Title), search) &&
			!strings.Contains(strings.ToLower(issue.Description), search) {
			continue
		}
		if !matchFold(f.Status, string(issue.Status)) {
			continue
		}
		if !matchFold(f.Priority, string(issue.Priority)) {
			continue
		}
		if f.Category != "" && f.Category != All && string(issue.Category) != f.Category {
			continue
		}
		out = append(out, issue)
	}
	return out
}

func matchFold(want, got string) bool {
	if want == "" || want == All {
		return true
	}
	return strings.EqualFold(want, got)
}

type Stats struct {
	Total       int `json:"total"`
	Resolved    int `json:"resolved"`
	Pending     int `json:"pending"`
	InProgress  int `json:"in_progress"`
	ActiveUsers int `json:"active_users"`
}

// ComputeStats counts issues by status group. ActiveUsers is the number of
// distinct reporters.
func ComputeStats(issues []models.Issue) Stats {
	stats := Stats{Total: len(issues)}
	reporters := map[string]struct{}{}

	for _, issue := range issues {
		switch issue.Status {
		case models.Resolved:
			stats.Resolved++
		case models.Reported:
			stats.Pending++
		case models.InProgress, models.Assigned, models.UnderReview:
			stats.InProgress++
		}
		if issue.UserID != nil {
			reporters[issue.UserID.Hex()] = struct{}{}
		}
	}
	stats.ActiveUsers = len(reporters)
	return stats
}

// Categories lists the distinct categories in first-seen order.
func Categories(issues []models.Issue) []models.IssueCategory {
	seen := map[models.IssueCategory]bool{}
	out := []models.IssueCategory{}
	for _, issue := range issues {
		if !seen[issue.Category] {
			seen[issue.Category] = true
			out = append(out, issue.Category)
		}
	}
	return out
}

// Analytics summarises the list by category and by report day.
type Analytics struct {
	ByCategory []CategoryCount `json:"by_category"`
	LastDays   []DayCount      `json:"last_days"`
}

type CategoryCount struct {
	Name  models.IssueCategory `json:"name"`
	Value int                  `json:"value"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ComputeAnalytics counts issues per category and per day over the last
// days days, ending with the day of now.
func ComputeAnalytics(issues []models.Issue, now time.Time, days int) Analytics {
	perCategory := map[models.IssueCategory]int{}
	for _, issue := range issues {
		perCategory[issue.Category]++
	}
	a := Analytics{ByCategory: []CategoryCount{}, LastDays: []DayCount{}}
	for _, category := range Categories(issues) {
		a.ByCategory = append(a.ByCategory, CategoryCount{Name: category, Value: perCategory[category]})
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := days - 1; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		end := start.AddDate(0, 0, 1)
		count := 0
		for _, issue := range issues {
			reported := issue.ReportedDate.In(now.Location())
			if !reported.Before(start) && reported.Before(end) {
				count++
			}
		}
		a.LastDays = append(a.LastDays, DayCount{Date: start.Format("2006-01-02"), Count: count})
	}
	return a
}
