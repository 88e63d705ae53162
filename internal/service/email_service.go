package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/yourusername/testhub-api/internal/domain/entity"
)

// EmailService sends transactional emails.
type EmailService interface {
	SendResultEmail(ctx context.Context, toEmail string, result *entity.Result) error
}

// NoopEmailService is used when result emails are disabled.
type NoopEmailService struct{}

func (s *NoopEmailService) SendResultEmail(ctx context.Context, toEmail string, result *entity.Result) error {
	log.Printf("[EmailService] noop send result email to=%s attempt=%s", toEmail, result.AttemptID)
	return nil
}

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendResultEmail(ctx context.Context, toEmail string, result *entity.Result) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}

	verdict := "Unfortunately, you did not pass this time."
	if result.Passed {
		verdict = "Congratulations, you passed!"
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Your quiz result",
		Text: fmt.Sprintf("%s\nScore: %.1f of %.1f (%.1f%%), correct answers: %d of %d.",
			verdict, result.Score, result.MaxScore, result.Percentage,
			result.CorrectAnswers, result.TotalQuestions),
		Html: fmt.Sprintf("<p>%s</p><p>Score: <strong>%.1f</strong> of %.1f (%.1f%%), correct answers: %d of %d.</p>",
			verdict, result.Score, result.MaxScore, result.Percentage,
			result.CorrectAnswers, result.TotalQuestions),
	}

	options := &resend.SendEmailOptions{
		IdempotencyKey: "attempt-result-" + result.AttemptID.String(),
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && (netErr.Timeout() || netErr.Temporary()) {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
