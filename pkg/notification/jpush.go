package notification

import (
	"context"
	"fmt"
	"time"

	"CompanionGuard/pkg/crisis"

	"github.com/go-resty/resty/v2"
)

const defaultJPushEndpoint = "https://api.jpush.cn/v3/push"

type JPushConfig struct {
	Endpoint     string
	AppKey       string
	MasterSecret string
	// Alias 接收警报的专业人员设备别名
	Alias []string
}

type JPushClient interface {
	Push(ctx context.Context, title, content string, audience map[string]interface{}, extras map[string]interface{}) (msgID string, err error)
}

// restJPushClient 调用 JPush v3 REST 接口
type restJPushClient struct {
	client *resty.Client
	url    string
}

func NewJPushClient(cfg JPushConfig) JPushClient {
	url := cfg.Endpoint
	if url == "" {
		url = defaultJPushEndpoint
	}
	return &restJPushClient{
		client: resty.New().
			SetTimeout(10*time.Second).
			SetBasicAuth(cfg.AppKey, cfg.MasterSecret).
			SetHeader("Content-Type", "application/json"),
		url: url,
	}
}

type jpushReply struct {
	MsgID string `json:"msg_id"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *restJPushClient) Push(ctx context.Context, title, content string, audience, extras map[string]interface{}) (string, error) {
	payload := map[string]interface{}{
		"platform": "all",
		"audience": audience,
		"notification": map[string]interface{}{
			"alert":   content,
			"android": map[string]interface{}{"title": title, "priority": 2, "extras": extras},
			"ios":     map[string]interface{}{"alert": map[string]string{"title": title, "body": content}, "sound": "default", "extras": extras},
		},
		"options": map[string]interface{}{"time_to_live": 86400},
	}
	var reply jpushReply
	resp, err := c.client.R().SetContext(ctx).SetBody(payload).SetResult(&reply).SetError(&reply).Post(c.url)
	if err != nil {
		return "", fmt.Errorf("jpush: %w", err)
	}
	if !resp.IsSuccess() || reply.Error != nil {
		if reply.Error != nil {
			return "", fmt.Errorf("jpush error %d: %s", reply.Error.Code, reply.Error.Message)
		}
		return "", fmt.Errorf("jpush returned status %d", resp.StatusCode())
	}
	return reply.MsgID, nil
}

// JPush 推送警报到专业人员的移动端
type JPush struct {
	cfg JPushConfig
	cli JPushClient
	now func() time.Time
}

func NewJPush(cfg JPushConfig, cli JPushClient) *JPush {
	return &JPush{cfg: cfg, cli: cli, now: time.Now}
}

func (j *JPush) Deliver(ctx context.Context, alert crisis.CrisisAlert) (crisis.DeliveryReceipt, error) {
	if j.cli == nil {
		return crisis.DeliveryReceipt{}, fmt.Errorf("jpush client not configured")
	}
	if len(j.cfg.Alias) == 0 {
		return crisis.DeliveryReceipt{}, fmt.Errorf("jpush: no alias configured")
	}
	msg := NewMessage(alert)
	extras := map[string]interface{}{"alertId": alert.ID, "severity": msg.Severity}
	id, err := j.cli.Push(ctx, msg.Title, msg.Content, map[string]interface{}{"alias": j.cfg.Alias}, extras)
	if err != nil {
		return crisis.DeliveryReceipt{}, err
	}
	return crisis.DeliveryReceipt{DeliveredAt: j.now(), Channel: "jpush", Reference: id}, nil
}
