package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"CompanionGuard/pkg/crisis"
	"CompanionGuard/pkg/util"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	HeaderSignature = "Signature"
	HeaderTimestamp = "X-Timestamp"
)

type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
	Retries int
}

// Webhook 通过 HTTP 回调投递警报，2xx 视为送达
type Webhook struct {
	cfg    WebhookConfig
	client *resty.Client
	logger *zap.Logger
	now    func() time.Time
}

type webhookReply struct {
	Reference string `json:"reference"`
}

func NewWebhook(cfg WebhookConfig, logger *zap.Logger) *Webhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Webhook{cfg: cfg, client: client, logger: logger, now: time.Now}
}

func (w *Webhook) Deliver(ctx context.Context, alert crisis.CrisisAlert) (crisis.DeliveryReceipt, error) {
	body, err := json.Marshal(NewMessage(alert))
	if err != nil {
		return crisis.DeliveryReceipt{}, err
	}
	req := w.client.R().SetContext(ctx).SetBody(body)
	if w.cfg.Secret != "" {
		ts := strconv.FormatInt(w.now().Unix(), 10)
		req.SetHeader(HeaderTimestamp, ts).
			SetHeader(HeaderSignature, util.Sign("POST", urlPath(w.cfg.URL), body, ts, w.cfg.Secret))
	}

	var reply webhookReply
	resp, err := req.SetResult(&reply).Post(w.cfg.URL)
	if err != nil {
		return crisis.DeliveryReceipt{}, fmt.Errorf("webhook post: %w", err)
	}
	if !resp.IsSuccess() {
		w.logger.Warn("crisis webhook rejected",
			zap.String("alert_id", alert.ID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return crisis.DeliveryReceipt{}, fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return crisis.DeliveryReceipt{DeliveredAt: w.now(), Channel: "webhook", Reference: reply.Reference}, nil
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
