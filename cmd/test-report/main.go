package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pulseboard/sentiment-monitor/internal/config"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/pulseboard/sentiment-monitor/internal/monitoring"
	"github.com/pulseboard/sentiment-monitor/internal/sentiment"
	"github.com/pulseboard/sentiment-monitor/internal/storage"
)

const outputDir = "test_output"

// TerminalNotificationService prints digests and alerts and saves them as JSON
type TerminalNotificationService struct{}

func (t *TerminalNotificationService) SendReport(_ context.Context, report *models.Report) error {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("📊 SENTIMENT DIGEST")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("📅 Period: %s\n", report.Period)
	fmt.Printf("🕒 Generated: %s\n", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("📈 Total Mentions: %d\n", report.TotalMentions)
	fmt.Printf("⭐ Average Score: %.2f\n", report.Summary.AvgScore)

	fmt.Println("\n📍 Sources:")
	for _, source := range report.Summary.TopSources {
		fmt.Printf("   • %s\n", source)
	}

	s := report.Summary.Sentiment
	fmt.Println("\n💭 Sentiment:")
	fmt.Printf("   😊 %-10s %d\n", "positive:", s.Positive)
	fmt.Printf("   😐 %-10s %d\n", "neutral:", s.Neutral)
	fmt.Printf("   😞 %-10s %d\n", "negative:", s.Negative)

	fmt.Println("\n📝 Recent Mentions:")
	for i, c := range report.Comments {
		if i >= 5 {
			fmt.Printf("   ... and %d more mentions\n", len(report.Comments)-5)
			break
		}
		fmt.Printf("\n   %d. [%s] %s\n", i+1, c.Source, c.Text)
		fmt.Printf("      💭 %s %.2f | 📣 Influence: %d\n", c.SentimentLabel, c.SentimentScore, c.Influence)
		if c.CreatedAt != nil {
			fmt.Printf("      🕒 Posted: %s\n", c.CreatedAt.Format("2006-01-02 15:04"))
		}
	}

	if err := save(fmt.Sprintf("digest_%s.json", report.GeneratedAt.Format("2006-01-02_15-04-05")), report); err != nil {
		fmt.Printf("\n⚠️  Warning: Could not save to file: %v\n", err)
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	return nil
}

func (t *TerminalNotificationService) SendAlert(_ context.Context, alert *models.Alert) error {
	fmt.Println("\n🚨 ALERT")
	fmt.Printf("Type: %s\n", alert.Type)
	fmt.Printf("Title: %s\n", alert.Title)
	fmt.Printf("Message: %s\n", alert.Message)
	for _, c := range alert.Comments {
		fmt.Printf("   • [%s] %s\n", c.Source, c.Text)
	}
	return save(fmt.Sprintf("alert_%s.json", alert.CreatedAt.Format("2006-01-02_15-04-05")), alert)
}

func save(name string, v interface{}) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	filename := filepath.Join(outputDir, name)
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}

	fmt.Printf("\n💾 Saved to: %s\n", filename)
	return nil
}

type sample struct {
	after  time.Duration // since the previous sample
	source models.Source
	text   string
}

var samples = []sample{
	{0, models.SourceGoogle, "Amazing brunch, the pancakes were the best in town"},
	{6 * time.Hour, models.SourceFacebook, "Friendly staff but the place was a bit crowded"},
	{8 * time.Hour, models.SourceX, "Love the new seasonal menu, delicious and fresh"},
	{10 * time.Hour, models.SourceBlog, "Decent coffee, nothing special"},
	{9 * time.Hour, models.SourceGoogle, "Terrible wait, service was slow and the waiter was rude"},
	{30 * time.Minute, models.SourceInstagram, "Worst latte I have had, disappointing"},
	{30 * time.Minute, models.SourceGoogle, "Awful experience tonight, food was cold"},
	{30 * time.Minute, models.SourceX, "Great atmosphere, perfect for a date"},
	{30 * time.Minute, models.SourceNews, "Local cafe hosts charity evening this weekend"},
}

func main() {
	fmt.Println("🤖 Sentiment Monitor - Test Digest Generator")
	fmt.Println("============================================")

	ctx := context.Background()
	cfg := &config.Config{
		ReportSchedule:     "daily",
		TimeZone:           "UTC",
		AlertNegativeRatio: 0.3,
		AlertMinMentions:   5,
	}

	// Replay the samples over the last day and a half
	var span time.Duration
	for _, s := range samples {
		span += s.after
	}
	clock := clockwork.NewFakeClockAt(time.Now().Add(-span))

	repo := storage.NewMemoryStore(clock, nil)
	defer repo.Close()

	notifications := &TerminalNotificationService{}
	selector := sentiment.NewSelector(sentiment.SelectorOptions{DemoMode: true}, repo, sentiment.NewHeuristic(sentiment.NewRandomSource()))
	service := monitoring.NewService(cfg, monitoring.Dependencies{
		Repository:    repo,
		Classifiers:   selector,
		Notifications: notifications,
		Clock:         clock,
	})

	fmt.Printf("\n📊 Classifying %d sample comments...\n", len(samples))
	for _, s := range samples {
		clock.Advance(s.after)
		if _, err := service.CreateComment(ctx, "default", models.NewComment{Source: s.source, Text: s.text}); err != nil {
			fmt.Printf("❌ Error creating comment: %v\n", err)
			os.Exit(1)
		}
	}

	if _, err := service.RunDigest(ctx, "default"); err != nil {
		fmt.Printf("❌ Error sending digest: %v\n", err)
		os.Exit(1)
	}

	alert, err := service.RunAlertCheck(ctx, "default")
	if err != nil {
		fmt.Printf("❌ Error running alert check: %v\n", err)
		os.Exit(1)
	}
	if alert == nil {
		fmt.Println("\n✅ No alert raised for the last 4 hours")
	}

	fmt.Println("\n✅ Test digest generation completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Printf("   • Check the '%s' directory for saved JSON output\n", outputDir)
	fmt.Println("   • Run 'go test ./internal/monitoring -v' for more detailed tests")
	fmt.Println("   • Start the API with 'go run ./cmd/dashboard'")
}
