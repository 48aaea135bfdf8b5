package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CompanionGuard/pkg/crisis"

	"github.com/go-resty/resty/v2"
)

type SMSConfig struct {
	Endpoint string
	Phones   []string
}

// SMSClient 便于替换/注入的发送接口（适配短信网关）
type SMSClient interface {
	Send(ctx context.Context, phone, text string) error
}

// httpSMSClient posts {"to","text"} to a generic SMS gateway.
type httpSMSClient struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPSMSClient(endpoint string) SMSClient {
	return &httpSMSClient{
		client:   resty.New().SetTimeout(10 * time.Second).SetRetryCount(1),
		endpoint: endpoint,
	}
}

func (c *httpSMSClient) Send(ctx context.Context, phone, text string) error {
	resp, err := c.client.R().SetContext(ctx).
		SetBody(map[string]string{"to": phone, "text": text}).
		Post(c.endpoint)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode())
	}
	return nil
}

// SMS 短信通知，任一号码发送成功即视为送达
type SMS struct {
	cfg SMSConfig
	cli SMSClient
	now func() time.Time
}

func NewSMS(cfg SMSConfig, cli SMSClient) *SMS {
	return &SMS{cfg: cfg, cli: cli, now: time.Now}
}

func (s *SMS) Deliver(ctx context.Context, alert crisis.CrisisAlert) (crisis.DeliveryReceipt, error) {
	if s.cli == nil {
		return crisis.DeliveryReceipt{}, fmt.Errorf("sms client not configured")
	}
	if len(s.cfg.Phones) == 0 {
		return crisis.DeliveryReceipt{}, fmt.Errorf("sms: no phone configured")
	}
	msg := NewMessage(alert)
	text := msg.Title + ". " + msg.Content

	var sent []string
	var failures []string
	for _, phone := range s.cfg.Phones {
		if err := s.cli.Send(ctx, phone, text); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", phone, err))
			continue
		}
		sent = append(sent, phone)
	}
	if len(sent) == 0 {
		return crisis.DeliveryReceipt{}, fmt.Errorf("sms delivery failed: %s", strings.Join(failures, "; "))
	}
	return crisis.DeliveryReceipt{DeliveredAt: s.now(), Channel: "sms", Reference: strings.Join(sent, ",")}, nil
}
