package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/usecase"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var req usecase.IngestRequest
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch this week's AI news through the completion API and store new articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.Application) error {
				result, err := a.Ingestor.Ingest(cmd.Context(), req)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() tableView {
					return articlesView(result.Message, result.Articles)
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.Prompt, "prompt", "", "Custom extraction prompt")
	cmd.Flags().BoolVar(&req.AutoPublish, "auto-publish", false, "Publish inserted articles immediately")
	cmd.Flags().IntVar(&req.MaxArticles, "max", 0, "Maximum number of articles to keep (1-20)")
	return cmd
}

func newLifecycleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lifecycle <articleId> <publish|archive|draft|enhance>",
		Short: "Move an article through its lifecycle or rewrite it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.Application) error {
				result, err := a.Lifecycle.Apply(cmd.Context(), usecase.LifecycleRequest{ArticleID: args[0], Action: args[1]})
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() tableView {
					return articlesView(result.Message, []domain.Article{result.Article})
				})
			})
		},
	}
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var req usecase.SummarizeRequest
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Build and store a digest of recently published articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.Application) error {
				result, err := a.Summarizer.Summarize(cmd.Context(), &operator, req)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() tableView {
					s := result.Summary
					return tableView{
						title:   s.Title,
						headers: []string{"Field", "Value"},
						rows: [][]string{
							{"ID", s.ID},
							{"Period", s.PeriodStart.Format(time.DateOnly) + " – " + s.PeriodEnd.Format(time.DateOnly)},
							{"Stories", strconv.Itoa(result.StoriesAnalyzed)},
							{"Trending", strings.Join(s.TrendingTopics, ", ")},
						},
					}
				})
			})
		},
	}
	cmd.Flags().IntVar(&req.DaysBack, "days", 0, "Days to look back (default from config)")
	return cmd
}

func newComposeCommand(ctx *commandContext) *cobra.Command {
	var req usecase.ComposeRequest
	var htmlOut string
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose the weekly newsletter issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.Application) error {
				result, err := a.Composer.Compose(cmd.Context(), req)
				if err != nil {
					return err
				}
				if htmlOut != "" {
					if err := os.WriteFile(htmlOut, []byte(result.HTMLContent), 0o644); err != nil {
						return fmt.Errorf("write html: %w", err)
					}
				}
				return ctx.emit(cmd, result, func() tableView {
					rows := make([][]string, 0, len(result.NewsItems))
					for i, item := range result.NewsItems {
						rows = append(rows, []string{strconv.Itoa(i + 1), item.Title, item.URL})
					}
					return tableView{
						title:   result.Subject,
						headers: []string{"#", "Title", "URL"},
						rows:    rows,
						aligns:  []columnAlignment{alignRight, alignLeft, alignLeft},
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.SummaryID, "summary", "", "Summary ID whose insights are included")
	cmd.Flags().BoolVar(&req.TriggerWebhook, "webhook", false, "Forward the issue to the webhook")
	cmd.Flags().StringVar(&req.WebhookURL, "webhook-url", "", "Webhook URL (defaults to the configured one)")
	cmd.Flags().StringVar(&htmlOut, "html-out", "", "Write the HTML body to this file")
	return cmd
}

func newSendCommand(ctx *commandContext) *cobra.Command {
	var subject, contentFile, htmlFile string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a newsletter to every confirmed and active subscriber",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readOptionalFile(contentFile)
			if err != nil {
				return err
			}
			htmlContent, err := readOptionalFile(htmlFile)
			if err != nil {
				return err
			}
			req := usecase.SendRequest{Subject: subject, Content: content, HTMLContent: htmlContent}

			return ctx.withApp(cmd, func(a *app.Application) error {
				result, err := a.Distributor.Send(cmd.Context(), &operator, req)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() tableView {
					return sendView(result)
				})
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Email subject")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Plain-text body file")
	cmd.Flags().StringVar(&htmlFile, "html-file", "", "HTML body file")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("content-file")
	return cmd
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(raw), nil
}

func articlesView(title string, articles []domain.Article) tableView {
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		published := ""
		if a.PublishedAt != nil {
			published = a.PublishedAt.Format(time.DateOnly)
		}
		rows = append(rows, []string{a.ID, a.Slug, string(a.Status), published})
	}
	return tableView{title: title, headers: []string{"ID", "Slug", "Status", "Published"}, rows: rows}
}

func sendView(result usecase.SendResult) tableView {
	rows := [][]string{
		{"Sent", strconv.Itoa(result.SentCount)},
		{"Total", strconv.Itoa(result.TotalSubscribers)},
		{"Failed", strconv.Itoa(len(result.Errors))},
	}
	for _, e := range result.Errors {
		rows = append(rows, []string{e.Email, e.Error})
	}
	return tableView{headers: []string{"", "Value"}, rows: rows}
}
