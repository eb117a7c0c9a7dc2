package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"coupang-review-harvester/internal/models"
)

// Generator renders a plain-text summary over persisted reviews for the
// CLI and the report endpoint.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

const topN = 5

// Generate builds the summary report. labels optionally maps review IDs
// to sentiment labels; when empty the sentiment section is omitted.
func (g *Generator) Generate(reviews []models.CanonicalReview, labels map[int64]string) string {
	if len(reviews) == 0 {
		return "No data available for reporting."
	}

	var b strings.Builder
	b.WriteString("--- Review Analysis Report ---\n")

	byProduct := make(map[string][]models.CanonicalReview)
	var ratingSum float64
	var latest *time.Time
	for _, r := range reviews {
		byProduct[r.ProductName] = append(byProduct[r.ProductName], r)
		ratingSum += r.Rating
		if r.WrittenAt != nil && (latest == nil || r.WrittenAt.After(*latest)) {
			latest = r.WrittenAt
		}
	}

	latestText := "unknown"
	if latest != nil {
		latestText = latest.Format("2006.01.02")
	}

	overview := table.NewWriter()
	overview.AppendRows([]table.Row{
		{"Total Reviews", len(reviews)},
		{"Unique Products", len(byProduct)},
		{"Average Rating", fmt.Sprintf("%.2f / 5.0", ratingSum/float64(len(reviews)))},
		{"Latest Review", latestText},
	})
	b.WriteString(overview.Render())
	b.WriteString("\n")

	if len(labels) > 0 {
		b.WriteString("\nSentiment Distribution:\n")
		b.WriteString(renderSentiment(labels))
	}

	b.WriteString("\nTop Products by Review Count:\n")
	b.WriteString(renderTopByCount(byProduct))

	b.WriteString("\nTop Products by Average Rating:\n")
	b.WriteString(renderTopByRating(byProduct))

	return b.String()
}

func renderSentiment(labels map[int64]string) string {
	counts := make(map[string]int)
	for _, label := range labels {
		counts[label]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Sentiment", "Share"})
	total := len(labels)
	for _, name := range names {
		share := float64(counts[name]) / float64(total) * 100
		t.AppendRow(table.Row{name, fmt.Sprintf("%.2f%%", share)})
	}
	return t.Render() + "\n"
}

func renderTopByCount(byProduct map[string][]models.CanonicalReview) string {
	type entry struct {
		name  string
		count int
	}

	entries := make([]entry, 0, len(byProduct))
	for name, rs := range byProduct {
		entries = append(entries, entry{name: name, count: len(rs)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Product", "Reviews"})
	for i, e := range entries {
		if i == topN {
			break
		}
		t.AppendRow(table.Row{e.name, e.count})
	}
	return t.Render() + "\n"
}

func renderTopByRating(byProduct map[string][]models.CanonicalReview) string {
	type entry struct {
		name   string
		rating float64
	}

	entries := make([]entry, 0, len(byProduct))
	for name, rs := range byProduct {
		var sum float64
		for _, r := range rs {
			sum += r.Rating
		}
		entries = append(entries, entry{name: name, rating: sum / float64(len(rs))})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rating != entries[j].rating {
			return entries[i].rating > entries[j].rating
		}
		return entries[i].name < entries[j].name
	})

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Product", "Avg Rating"})
	for i, e := range entries {
		if i == topN {
			break
		}
		t.AppendRow(table.Row{e.name, fmt.Sprintf("%.2f", e.rating)})
	}
	return t.Render() + "\n"
}
