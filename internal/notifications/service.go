package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pulseboard/sentiment-monitor/internal/config"
	"github.com/pulseboard/sentiment-monitor/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

const (
	teamsMentionLimit = 5
	emailMentionLimit = 10
	excerptLength     = 200
)

// Service handles sending notifications via various channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendReport sends a digest via configured notification channels
func (s *Service) SendReport(ctx context.Context, report *models.Report) error {
	return s.dispatch("report",
		func() error { return s.sendToTeams(ctx, s.buildTeamsMessage(report)) },
		func() error {
			subject := fmt.Sprintf("Sentiment Digest - %s (%d mentions)", periodTitle(report.Period), report.TotalMentions)
			htmlBody, err := s.buildEmailHTML(report)
			if err != nil {
				return fmt.Errorf("failed to build email HTML: %w", err)
			}
			return s.sendEmail(subject, s.buildEmailText(report), htmlBody)
		},
	)
}

// SendAlert sends an urgent alert notification
func (s *Service) SendAlert(ctx context.Context, alert *models.Alert) error {
	return s.dispatch("alert",
		func() error { return s.sendToTeams(ctx, s.buildTeamsAlert(alert)) },
		func() error {
			return s.sendEmail(alert.Title, s.buildAlertText(alert), "")
		},
	)
}

func (s *Service) dispatch(kind string, teams, email func() error) error {
	var errors []string

	// Send to Teams if configured
	if s.config.TeamsWebhookURL != "" {
		if err := teams(); err != nil {
			logrus.Errorf("Failed to send Teams %s: %v", kind, err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Successfully sent %s to Teams", kind)
		}
	}

	// Send via email if configured
	if s.config.NotificationEmail != "" {
		if err := email(); err != nil {
			logrus.Errorf("Failed to send email %s: %v", kind, err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Successfully sent %s via email", kind)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(ctx context.Context, message *TeamsMessage) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Sentiment Digest - %s", periodTitle(report.Period)),
		Text:    fmt.Sprintf("Found %d mentions in the last %s", report.TotalMentions, periodWindow(report.Period)),
	}

	sentiment := report.Summary.Sentiment
	facts := []TeamsFact{
		{Name: "Total Mentions", Value: fmt.Sprintf("%d", report.TotalMentions)},
		{Name: "Positive Mentions", Value: fmt.Sprintf("%d", sentiment.Positive)},
		{Name: "Neutral Mentions", Value: fmt.Sprintf("%d", sentiment.Neutral)},
		{Name: "Negative Mentions", Value: fmt.Sprintf("%d", sentiment.Negative)},
		{Name: "Average Score", Value: fmt.Sprintf("%.2f", report.Summary.AvgScore)},
		{Name: "Generated", Value: report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
	}
	if len(report.Summary.TopSources) > 0 {
		facts = append(facts, TeamsFact{Name: "Top Sources", Value: strings.Join(report.Summary.TopSources, ", ")})
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(report.Comments) > 0 {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Recent Mentions",
			ActivityText:  strings.Join(commentLines(report.Comments, teamsMentionLimit), "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) buildTeamsAlert(alert *models.Alert) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: alertColor(alert.Type),
		Title:      alert.Title,
		Text:       alert.Message,
	}

	if len(alert.Comments) > 0 {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Negative Mentions",
			ActivityText:  strings.Join(commentLines(alert.Comments, teamsMentionLimit), "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func commentLines(comments []models.Comment, limit int) []string {
	if len(comments) < limit {
		limit = len(comments)
	}

	lines := make([]string, 0, limit)
	for _, c := range comments[:limit] {
		lines = append(lines, fmt.Sprintf("**%s** (%s %.2f) - %s%s",
			c.Source, c.SentimentLabel, c.SentimentScore, truncate(c.Text, excerptLength), formatDate(c.CreatedAt, " (Jan 2)")))
	}
	return lines
}

func (s *Service) sendEmail(subject, textBody, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	if htmlBody != "" {
		m.AddAlternative("text/html", htmlBody)
	}

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"truncate": func(length int, s string) string { return truncate(s, length) },
	"lower":    strings.ToLower,
	"title":    periodTitle,
	"date":     formatDate,
	"percent":  func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Sentiment Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #4f46e5; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .mention { border-left: 4px solid #4f46e5; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .mention-meta { color: #666; font-size: 0.9em; }
        .positive { border-left-color: #107c10; }
        .negative { border-left-color: #d13438; }
        .neutral { border-left-color: #605e5c; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Sentiment Digest</h1>
        <p>{{title .Period}} digest generated on {{.GeneratedAt.UTC.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Total Mentions:</strong> {{.TotalMentions}}</p>
        <p><strong>Positive Mentions:</strong> {{.Summary.Sentiment.Positive}}</p>
        <p><strong>Neutral Mentions:</strong> {{.Summary.Sentiment.Neutral}}</p>
        <p><strong>Negative Mentions:</strong> {{.Summary.Sentiment.Negative}}</p>
        <p><strong>Average Score:</strong> {{percent .Summary.AvgScore}}</p>
        {{if .Summary.TopSources}}
        <p><strong>Top Sources:</strong> {{range $i, $s := .Summary.TopSources}}{{if $i}}, {{end}}{{$s}}{{end}}</p>
        {{end}}
    </div>

    {{if .Comments}}
    <h2>Recent Mentions</h2>
    {{range $index, $comment := .Comments}}
        {{if lt $index 10}}
        <div class="mention {{lower (print $comment.SentimentLabel)}}">
            <div class="mention-meta">
                {{$comment.Source}}{{date $comment.CreatedAt " | Jan 2, 2006"}} | Score: {{printf "%.2f" $comment.SentimentScore}}
            </div>
            <p>{{truncate 200 $comment.Text}}</p>
        </div>
        {{end}}
    {{end}}
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by the sentiment monitor.</small></p>
</body>
</html>
`))

func (s *Service) buildEmailHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) buildEmailText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Sentiment Digest - %s\n", periodTitle(report.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Total Mentions: %d\n", report.TotalMentions))
	text.WriteString(fmt.Sprintf("Positive Mentions: %d\n", report.Summary.Sentiment.Positive))
	text.WriteString(fmt.Sprintf("Neutral Mentions: %d\n", report.Summary.Sentiment.Neutral))
	text.WriteString(fmt.Sprintf("Negative Mentions: %d\n", report.Summary.Sentiment.Negative))
	text.WriteString(fmt.Sprintf("Average Score: %.2f\n", report.Summary.AvgScore))
	if len(report.Summary.TopSources) > 0 {
		text.WriteString(fmt.Sprintf("Top Sources: %s\n", strings.Join(report.Summary.TopSources, ", ")))
	}

	if len(report.Comments) > 0 {
		text.WriteString("\nRECENT MENTIONS\n")
		text.WriteString("===============\n")
		writeCommentList(&text, report.Comments, emailMentionLimit)
	}

	text.WriteString("\n---\nThis digest was generated automatically by the sentiment monitor.\n")

	return text.String()
}

func (s *Service) buildAlertText(alert *models.Alert) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("%s\n", alert.Title))
	text.WriteString(fmt.Sprintf("Raised: %s\n\n", alert.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(alert.Message)
	text.WriteString("\n")

	if len(alert.Comments) > 0 {
		text.WriteString("\nNEGATIVE MENTIONS\n")
		text.WriteString("=================\n")
		writeCommentList(&text, alert.Comments, emailMentionLimit)
	}

	return text.String()
}

func writeCommentList(text *strings.Builder, comments []models.Comment, limit int) {
	if len(comments) < limit {
		limit = len(comments)
	}

	for i, c := range comments[:limit] {
		text.WriteString(fmt.Sprintf("\n%d. [%s %.2f] %s\n", i+1, c.SentimentLabel, c.SentimentScore, truncate(c.Text, excerptLength)))
		text.WriteString(fmt.Sprintf("   Source: %s | Country: %s%s\n", c.Source, c.Country, formatDate(c.CreatedAt, " | Date: Jan 2, 2006")))
	}
}

func periodTitle(period string) string {
	if period == "" {
		return ""
	}
	return strings.ToUpper(period[:1]) + period[1:]
}

func periodWindow(period string) string {
	switch period {
	case "daily":
		return "day"
	case "weekly":
		return "week"
	default:
		return period
	}
}

func alertColor(alertType string) string {
	switch alertType {
	case "critical":
		return "d13438"
	case "warning":
		return "ffaa44"
	default:
		return "4f46e5"
	}
}

func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}

// formatDate renders t with layout, or nothing for a missing timestamp
func formatDate(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}
