package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pulseboard/sentiment-monitor/internal/config"
	"github.com/pulseboard/sentiment-monitor/internal/sentiment"
	"github.com/pulseboard/sentiment-monitor/internal/sources"
)

var phrases = []string{
	"Amazing service! Loved it!",
	"The food was terrible and the staff was rude",
	"We stopped by for a coffee on Tuesday",
	"Good value but a bad parking situation",
}

func main() {
	fmt.Println("🔍 Sentiment Monitor - API Connectivity Test")
	fmt.Println("============================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("\n📡 Heuristic classifier")
	fmt.Println(strings.Repeat("-", 40))
	testClassifier(ctx, sentiment.NewHeuristic(sentiment.NewRandomSource()))

	fmt.Println("\n📡 Hugging Face classifier")
	fmt.Println(strings.Repeat("-", 40))
	if cfg.HuggingFaceToken == "" {
		fmt.Println("⚠️  DISABLED (HUGGINGFACE_API_TOKEN not set)")
	} else {
		var failures int
		remote := sentiment.NewHuggingFace(cfg.HuggingFaceModelURL, cfg.HuggingFaceToken, cfg.SentimentTimeout)
		remote.OnError(func(err error) {
			failures++
			fmt.Printf("   ❌ ERROR: %v (fell back to keyword rules)\n", err)
		})
		testClassifier(ctx, remote)
		if failures == 0 {
			fmt.Println("✅ SUCCESS (all requests answered by the model)")
		}
	}

	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = []string{"coffee shop"}
	}

	fmt.Printf("\n📡 Mention sources (keywords: %s)\n", strings.Join(keywords, ", "))
	fmt.Println(strings.Repeat("-", 40))
	testSource(ctx, "Hacker News", sources.NewHackerNewsSource(), keywords)
	testSource(ctx, "Reddit", sources.NewRedditSource(cfg.RedditClientID, cfg.RedditSecret), keywords)
	testSource(ctx, "Twitter/X", sources.NewTwitterSource(cfg.TwitterBearerToken), keywords)
	testSource(ctx, "YouTube", sources.NewYouTubeSource(cfg.YouTubeAPIKey), keywords)

	fmt.Println("\n✅ API connectivity test completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Set HUGGINGFACE_API_TOKEN in .env to enable the remote model")
	fmt.Println("   • Set DEMO_MODE=false so the dashboard uses it")
	fmt.Println("   • Set KEYWORDS and source credentials to enable mention collection")
}

func testSource(ctx context.Context, name string, source sources.Source, keywords []string) {
	fmt.Printf("🔸 Testing %s... ", name)

	if !source.IsEnabled() {
		fmt.Printf("⚠️  DISABLED (missing API key)\n")
		return
	}

	mentions, err := source.FetchMentions(ctx, keywords, 24*time.Hour)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	fmt.Printf("✅ SUCCESS (%d mentions found)\n", len(mentions))
	if len(mentions) > 0 {
		fmt.Printf("   📝 Sample: %q\n", truncate(mentions[0].Text, 80))
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func testClassifier(ctx context.Context, classifier sentiment.Classifier) {
	for _, phrase := range phrases {
		result := classifier.Classify(ctx, phrase)
		fmt.Printf("🔸 %-48q → %-8s %.2f\n", phrase, result.Label, result.Score)
	}
}
