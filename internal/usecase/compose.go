package usecase

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/htmltext"
	"NewsDigest/internal/ports"
)

const (
	composeWindow   = 7 * 24 * time.Hour
	composeMaxItems = 3
)

var tipPool = []string{
	"Give your AI assistant an example of the output you want. One good example beats a paragraph of instructions.",
	"Ask the model to list its assumptions before answering. Wrong assumptions are easier to spot than wrong answers.",
	"Break long tasks into steps and check each result before moving on.",
	"When a reply looks confident, ask for sources or a way to verify it.",
	"Keep a file of prompts that worked well and reuse them as templates.",
	"Tell the model who the audience is. The same facts read very differently for an executive and an engineer.",
	"Paste the error message verbatim when asking for debugging help.",
	"Ask for two or three alternatives instead of a single answer when exploring ideas.",
}

// ComposerDeps wires the newsletter composer.
type ComposerDeps struct {
	Articles  ports.ArticleRepository
	Summaries ports.SummaryRepository
	Notifier  ports.BestEffortNotifier
	Logger    *slog.Logger
	Clock     Clock
	SiteName  string
	SiteURL   string
}

// Composer assembles the weekly newsletter issue.
type Composer struct {
	articles  ports.ArticleRepository
	summaries ports.SummaryRepository
	notifier  ports.BestEffortNotifier
	logger    *slog.Logger
	clock     Clock
	siteName  string
	siteURL   string
}

// ComposeRequest is the composer input.
type ComposeRequest struct {
	SummaryID      string `json:"summaryId"`
	TriggerWebhook bool   `json:"triggerZapier"`
	WebhookURL     string `json:"zapierWebhookUrl"`
}

// ComposeResult is the composed issue.
type ComposeResult struct {
	Success bool `json:"success"`
	domain.Newsletter
}

// NewComposer constructs the composer.
func NewComposer(deps ComposerDeps) *Composer {
	name := deps.SiteName
	if name == "" {
		name = "AI Weekly Digest"
	}
	return &Composer{
		articles:  deps.Articles,
		summaries: deps.Summaries,
		notifier:  deps.Notifier,
		logger:    componentLogger(deps.Logger, "compose"),
		clock:     deps.Clock,
		siteName:  name,
		siteURL:   strings.TrimRight(deps.SiteURL, "/"),
	}
}

// Compose builds subject, text and HTML bodies from recent articles and an optional summary,
// then forwards the issue to the webhook when requested.
func (c *Composer) Compose(ctx context.Context, req ComposeRequest) (ComposeResult, error) {
	now := c.clock.now().UTC()

	var summary *domain.Summary
	if id := strings.TrimSpace(req.SummaryID); id != "" {
		loaded, err := c.summaries.SummaryByID(ctx, id)
		if err != nil {
			return ComposeResult{}, fmt.Errorf("compose: load summary: %w", err)
		}
		summary = &loaded
	}

	articles, err := c.articles.PublishedBetween(ctx, now.Add(-composeWindow), now, composeMaxItems)
	if err != nil {
		return ComposeResult{}, fmt.Errorf("compose: load articles: %w", err)
	}

	items := make([]domain.NewsItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, domain.NewsItem{
			Title:       a.Title,
			Summary:     firstNonEmpty(a.Summary, htmltext.Truncate(htmltext.Plain(a.Content), 280)),
			URL:         c.articleURL(a),
			PublishedAt: a.PublishedAt,
		})
	}

	issue := issueView{
		SiteName: c.siteName,
		SiteURL:  c.siteURL,
		Date:     now.Format("January 2, 2006"),
		Items:    items,
		Tip:      tipOfTheWeek(now),
	}
	if summary != nil {
		issue.SummaryTitle = summary.Title
		issue.Digest = digestParagraphs(summary.Content)
		issue.Insights = summary.Insights
		issue.Topics = summary.TrendingTopics
	}

	htmlBody, err := renderIssueHTML(issue)
	if err != nil {
		return ComposeResult{}, fmt.Errorf("compose: render html: %w", err)
	}

	newsletter := domain.Newsletter{
		Subject:     "AI Weekly Digest – " + issue.Date,
		Content:     renderIssueText(issue),
		HTMLContent: htmlBody,
		NewsItems:   items,
		GeneratedAt: now,
	}
	if summary != nil {
		newsletter.SummaryID = summary.ID
	}
	result := ComposeResult{Success: true, Newsletter: newsletter}

	c.logger.Info("newsletter composed", "subject", newsletter.Subject, "items", len(items), "summary", newsletter.SummaryID)
	if req.TriggerWebhook && c.notifier != nil {
		c.notifier.NotifyNewsletter(ctx, req.WebhookURL, newsletter)
	}
	return result, nil
}

func (c *Composer) articleURL(a domain.Article) string {
	if a.ArticleURL != "" {
		return a.ArticleURL
	}
	if c.siteURL == "" {
		return ""
	}
	return c.siteURL + "/news/" + a.Slug
}

// tipOfTheWeek picks a tip deterministically from the ISO year and week.
func tipOfTheWeek(now time.Time) string {
	year, week := now.ISOWeek()
	return tipPool[(year*53+week)%len(tipPool)]
}

type issueView struct {
	SiteName     string
	SiteURL      string
	Date         string
	Items        []domain.NewsItem
	SummaryTitle string
	Digest       []string
	Insights     []string
	Topics       []string
	Tip          string
}

// digestParagraphs shortens the summary narrative to a newsletter-sized excerpt.
func digestParagraphs(content string) []string {
	text := htmltext.Truncate(htmltext.Plain(content), 1200)
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func renderIssueText(v issueView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s – %s\n\n", v.SiteName, v.Date)

	b.WriteString("THIS WEEK'S AI HIGHLIGHTS\n\n")
	if len(v.Items) == 0 {
		b.WriteString("No new stories this week. Check back soon.\n\n")
	}
	for i, item := range v.Items {
		fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, item.Title, item.Summary)
		if item.URL != "" {
			fmt.Fprintf(&b, "Read more: %s\n", item.URL)
		}
		b.WriteString("\n")
	}

	if len(v.Digest) > 0 {
		b.WriteString("THE WEEK IN REVIEW\n\n")
		for _, paragraph := range v.Digest {
			fmt.Fprintf(&b, "%s\n\n", paragraph)
		}
	}

	if len(v.Insights) > 0 {
		b.WriteString("KEY INSIGHTS\n\n")
		if v.SummaryTitle != "" {
			fmt.Fprintf(&b, "%s\n", v.SummaryTitle)
		}
		for _, insight := range v.Insights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
		if len(v.Topics) > 0 {
			fmt.Fprintf(&b, "Trending: %s\n", strings.Join(v.Topics, ", "))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "TIP OF THE WEEK\n\n%s\n\n", v.Tip)

	b.WriteString("LEARN AI WITH US\n\n")
	b.WriteString("Explore our guides and courses to put these tools to work in your own projects.\n")
	if v.SiteURL != "" {
		fmt.Fprintf(&b, "%s\n", v.SiteURL)
	}
	b.WriteString("\nKnow someone who would enjoy this digest? Forward it to a friend.\n")
	return b.String()
}

// The unsubscribe href is static template text so the placeholder survives URL escaping.
var issueTemplate = template.Must(template.New("issue").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f4f5f7;font-family:Helvetica,Arial,sans-serif;color:#1f2933;">
<div style="max-width:600px;margin:0 auto;background:#ffffff;padding:32px;">
<h1 style="font-size:24px;margin:0 0 4px 0;color:#0b3d91;">{{.SiteName}}</h1>
<p style="margin:0 0 24px 0;color:#6b7280;font-size:14px;">{{.Date}}</p>

<h2 style="font-size:18px;border-bottom:2px solid #0b3d91;padding-bottom:6px;">This Week's AI Highlights</h2>
{{- if not .Items}}
<p style="font-size:15px;">No new stories this week. Check back soon.</p>
{{- end}}
{{- range .Items}}
<div class="news-item" style="margin:0 0 20px 0;">
<h3 style="font-size:16px;margin:0 0 6px 0;">{{if .URL}}<a href="{{.URL}}" style="color:#0b3d91;text-decoration:none;">{{.Title}}</a>{{else}}{{.Title}}{{end}}</h3>
<p style="font-size:15px;line-height:1.5;margin:0;">{{.Summary}}</p>
</div>
{{- end}}

{{- if .Digest}}
<h2 style="font-size:18px;border-bottom:2px solid #0b3d91;padding-bottom:6px;">The Week in Review</h2>
<div class="digest">
{{- range .Digest}}
<p style="font-size:15px;line-height:1.5;">{{.}}</p>
{{- end}}
</div>
{{- end}}

{{- if .Insights}}
<h2 style="font-size:18px;border-bottom:2px solid #0b3d91;padding-bottom:6px;">Key Insights</h2>
{{- if .SummaryTitle}}
<p style="font-size:15px;font-weight:bold;">{{.SummaryTitle}}</p>
{{- end}}
<ul class="insights" style="font-size:15px;line-height:1.5;">
{{- range .Insights}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- if .Topics}}
<p style="font-size:13px;color:#6b7280;">Trending: {{range $i, $t := .Topics}}{{if $i}}, {{end}}{{$t}}{{end}}</p>
{{- end}}
{{- end}}

<h2 style="font-size:18px;border-bottom:2px solid #0b3d91;padding-bottom:6px;">Tip of the Week</h2>
<p class="tip" style="font-size:15px;line-height:1.5;background:#eef2ff;padding:12px;border-radius:6px;">{{.Tip}}</p>

<h2 style="font-size:18px;border-bottom:2px solid #0b3d91;padding-bottom:6px;">Learn AI With Us</h2>
<p style="font-size:15px;line-height:1.5;">Explore our guides and courses to put these tools to work in your own projects.{{if .SiteURL}} <a href="{{.SiteURL}}" style="color:#0b3d91;">Visit the site</a>.{{end}}</p>

<p style="font-size:12px;color:#9ca3af;margin-top:32px;">You are receiving this email because you subscribed to {{.SiteName}}.
<a href="{unsubscribe_url}" style="color:#9ca3af;">Unsubscribe</a></p>
</div>
</body>
</html>
`))

func renderIssueHTML(v issueView) (string, error) {
	var buf bytes.Buffer
	if err := issueTemplate.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
