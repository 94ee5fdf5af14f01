package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
	"AutoBlog/internal/retry"
)

const defaultAPIBase = "https://api.telegram.org"

// ErrMisconfigured is returned when the bot token or chat id is missing.
var ErrMisconfigured = errors.New("telegram notifier misconfigured")

// Notifier sends run summaries to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
	policy   *retry.Policy
	logger   *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
		policy:   retry.HTTP().WithLogger(logger),
		logger:   logger.With("component", "telegram"),
	}
}

// Enabled reports whether both credentials are present.
func (n *Notifier) Enabled() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// NotifyRun posts an HTML summary of result to the chat.
func (n *Notifier) NotifyRun(ctx context.Context, result domain.RunResult) error {
	return n.send(ctx, FormatRun(result))
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if !n.Enabled() || n.client == nil {
		return ErrMisconfigured
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.apiBase, "/"), n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")
	body := form.Encode()

	_, err := retry.Do(ctx, n.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := n.client.Do(req)
		if err != nil {
			return retry.NewError(retry.Classify(err), fmt.Errorf("do request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return retry.StatusError(resp, string(payload))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	n.logger.Debug("telegram message sent", "chars", len(text))
	return nil
}

// FormatRun renders the run summary as Telegram HTML.
func FormatRun(result domain.RunResult) string {
	var b strings.Builder
	icon := "✅"
	switch {
	case result.SuccessCount == 0:
		icon = "❌"
	case result.SuccessCount < result.TotalCount:
		icon = "⚠️"
	}

	fmt.Fprintf(&b, "%s <b>AutoBlog run</b> (%s", icon, html.EscapeString(string(result.Mode)))
	if result.DryRun {
		b.WriteString(", dry run")
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "Published: %d/%d (%.0f%%)\n", result.SuccessCount, result.TotalCount, result.SuccessRate())
	if !result.FinishedAt.IsZero() && !result.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Second))
	}

	if posts := result.Succeeded(); len(posts) > 0 {
		b.WriteString("\n<b>Posts</b>\n")
		for _, p := range posts {
			fmt.Fprintf(&b, "• %s\n", html.EscapeString(p.Title))
		}
	}
	if len(result.Errors) > 0 {
		b.WriteString("\n<b>Errors</b>\n")
		for i, e := range result.Errors {
			if i == 5 {
				fmt.Fprintf(&b, "… and %d more\n", len(result.Errors)-5)
				break
			}
			fmt.Fprintf(&b, "• %s\n", html.EscapeString(e))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
