package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raterly/backend/internal/models"
	"github.com/raterly/backend/pkg/logger"
)

// DigestPayload is the JSON body pushed to a business webhook.
type DigestPayload struct {
	Business      string    `json:"business"`
	ReportDate    string    `json:"report_date"`
	TotalReviews  int       `json:"total_reviews"`
	AverageRating float64   `json:"average_rating"`
	PositivePct   int       `json:"positive_pct"`
	NeutralPct    int       `json:"neutral_pct"`
	NegativePct   int       `json:"negative_pct"`
	PendingCount  int       `json:"pending_count"`
	FlaggedCount  int       `json:"flagged_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// NotificationService delivers digest payloads to per-business webhooks.
type NotificationService struct {
	client *http.Client
}

func NewNotificationService() *NotificationService {
	return &NotificationService{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendDigest pushes a digest to the business webhook. A business without a
// webhook URL is skipped silently.
func (s *NotificationService) SendDigest(biz *models.Business, digest *models.DailyDigest) error {
	if biz.WebhookURL == "" {
		return nil
	}

	payload := DigestPayload{
		Business:      biz.Name,
		ReportDate:    digest.ReportDate.Format("2006-01-02"),
		TotalReviews:  digest.TotalReviews,
		AverageRating: digest.AverageRating,
		PositivePct:   digest.PositivePct,
		NeutralPct:    digest.NeutralPct,
		NegativePct:   digest.NegativePct,
		PendingCount:  digest.PendingCount,
		FlaggedCount:  digest.FlaggedCount,
		GeneratedAt:   time.Now(),
	}
	return s.postJSON(biz.WebhookURL, payload)
}

func (s *NotificationService) postJSON(webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	logger.Infof("[Notification] POST %s, payload length: %d", webhookURL, len(body))

	resp, err := s.client.Post(webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
