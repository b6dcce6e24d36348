package board

import (
	"testing"
	"time"

	"campusfix-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func sampleIssues() []models.Issue {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	return []models.Issue{
		{Title: "Broken cooler", Description: "Water cooler on floor 2 leaks", Status: models.Reported, Priority: models.Medium, Category: models.Infrastructure, UserID: &alice},
		{Title: "WiFi drops", Description: "Library wifi disconnects", Status: models.InProgress, Priority: models.High, Category: models.Technology, UserID: &bob},
		{Title: "Dark corridor", Description: "Lights out near hostel", Status: models.Assigned, Priority: models.Critical, Category: models.Safety, UserID: &alice},
		{Title: "Stale sandwiches", Description: "Cafeteria food quality", Status: models.Resolved, Priority: models.Low, Category: models.Cafeteria},
		{Title: "Leaky tap", Description: "Washroom tap drips", Status: models.UnderReview, Priority: models.Low, Category: models.Infrastructure},
	}
}

func titles(issues []models.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Title
	}
	return out
}

func TestFilterApply(t *testing.T) {
	issues := sampleIssues()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"Broken cooler", "WiFi drops", "Dark corridor", "Stale sandwiches", "Leaky tap"}},
		{"all keyword", Filter{Status: All, Priority: All, Category: All}, []string{"Broken cooler", "WiFi drops", "Dark corridor", "Stale sandwiches", "Leaky tap"}},
		{"search title case-insensitive", Filter{Search: "WIFI"}, []string{"WiFi drops"}},
		{"search description", Filter{Search: "hostel"}, []string{"Dark corridor"}},
		{"status case-insensitive", Filter{Status: "in progress"}, []string{"WiFi drops"}},
		{"priority", Filter{Priority: "low"}, []string{"Stale sandwiches", "Leaky tap"}},
		{"category exact", Filter{Category: string(models.Infrastructure)}, []string{"Broken cooler", "Leaky tap"}},
		{"category is case-sensitive", Filter{Category: "infrastructure & maintenance"}, []string{}},
		{"combined", Filter{Search: "tap", Category: string(models.Infrastructure), Priority: "Low"}, []string{"Leaky tap"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titles(tt.filter.Apply(issues))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(sampleIssues())
	want := Stats{Total: 5, Resolved: 1, Pending: 1, InProgress: 3, ActiveUsers: 2}
	if stats != want {
		t.Errorf("got %+v, want %+v", stats, want)
	}

	if empty := ComputeStats(nil); empty != (Stats{}) {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestCategoriesFirstSeenOrder(t *testing.T) {
	got := Categories(sampleIssues())
	want := []models.IssueCategory{models.Infrastructure, models.Technology, models.Safety, models.Cafeteria}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestComputeAnalytics(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	issues := sampleIssues()
	issues[0].ReportedDate = now.Add(-time.Hour)
	issues[1].ReportedDate = now.AddDate(0, 0, -1)
	issues[2].ReportedDate = now.AddDate(0, 0, -1)
	issues[3].ReportedDate = now.AddDate(0, 0, -30)
	issues[4].ReportedDate = now.AddDate(0, 0, -6)

	a := ComputeAnalytics(issues, now, 7)
	if len(a.LastDays) != 7 || a.LastDays[6].Date != "2024-06-10" || a.LastDays[0].Date != "2024-06-04" {
		t.Fatalf("days = %+v", a.LastDays)
	}
	want := []int{1, 0, 0, 0, 0, 2, 1}
	for i, d := range a.LastDays {
		if d.Count != want[i] {
			t.Errorf("%s: %d, want %d", d.Date, d.Count, want[i])
		}
	}
	if a.ByCategory[0].Name != models.Infrastructure || a.ByCategory[0].Value != 2 {
		t.Errorf("by category = %+v", a.ByCategory)
	}
}
