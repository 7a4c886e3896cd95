package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/vitanova-gold/internal/httputil"
	"github.com/kjannette/vitanova-gold/internal/models"
)

const DefaultAppName = "VitaNovaGold"

// Sender posts operational notices to a Slack or Discord webhook. With no
// webhook configured, notices are only printed.
type Sender struct {
	webhookURL string
	appName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewSender(webhookURL, appName string) *Sender {
	if appName == "" {
		appName = DefaultAppName
	}
	return &Sender{
		webhookURL: webhookURL,
		appName:    appName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}

// Send is fire-and-forget; delivery failures are logged, never returned.
func (s *Sender) Send(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.SendContext(ctx, msg)
}

func (s *Sender) SendContext(ctx context.Context, msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.appName, msg)
	fmt.Printf("[NOTIFY] %s %s\n", time.Now().UTC().Format(time.RFC3339), formatted)

	if !s.Enabled() {
		return
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		fmt.Printf("[NOTIFY ERROR] marshal: %v\n", err)
		return
	}

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		fmt.Printf("[NOTIFY ERROR] Failed to deliver notice: %v\n", err)
		return
	}
	resp.Body.Close()
}

// MonthlyLogged announces a new row in the monthly historical log.
func (s *Sender) MonthlyLogged(rec models.MonthlyRecord) {
	s.Send(fmt.Sprintf("Monthly gold price logged for %s: %s AED/g (%s USD/g, %s USD/oz)",
		rec.Month, rec.AEDPerGram.StringFixed(2), rec.USDPerGram.StringFixed(4), rec.USDPerOunce.StringFixed(2)))
}

func (s *Sender) RolloverFailed(month models.MonthKey, err error) {
	s.Send(fmt.Sprintf("Monthly rollover for %s failed: %v", month, err))
}

// FetchFailing reports consecutive poll failures.
func (s *Sender) FetchFailing(consecutive int, err error) {
	s.Send(fmt.Sprintf("Gold price fetch failed %d times in a row: %v", consecutive, err))
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.appName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.appName,
	}
}
