package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification 封装一次弃光/限电区间告警。
type Notification struct {
	GroupKey     string
	Station      string
	Day          string
	Start        time.Time
	End          time.Time
	EndInclusive bool
	// Ongoing 表示区间延续到已分析数据的末尾。
	Ongoing             bool
	IrradianceThreshold float64
	DiffThreshold       float64
	RunID               string
	Channels            []string
	AdditionalMsg       string
}

// Duration 返回区间实际时长。
func (n Notification) Duration() time.Duration {
	return n.End.Sub(n.Start)
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("group", note.GroupKey).
		Time("start", note.Start).
		Dur("duration", note.Duration()).
		Msg("告警已发送 (Telegram)")
	return nil
}

// LogNotifier 将告警写入结构化日志。
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier 构造日志告警器。
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify 输出一条 warn 级别日志。
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Warn().Str("group", note.GroupKey).
		Str("station", note.Station).
		Str("day", note.Day).
		Time("start", note.Start).
		Time("end", note.End).
		Bool("ongoing", note.Ongoing).
		Dur("duration", note.Duration()).
		Str("run_id", note.RunID).
		Msg("curtailment interval detected")
	return nil
}

// Multi 依次调用多个告警通道，汇总所有错误。
type Multi []Notifier

// Notify 向所有通道发送；单个通道失败不影响其它通道。
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RenderMessage 生成告警正文。
func RenderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Curtailment Alert]\n")
	station := note.Station
	if station == "" {
		station = note.GroupKey
	}
	builder.WriteString(fmt.Sprintf("Station: %s\n", station))
	builder.WriteString(fmt.Sprintf("Day: %s\n", note.Day))
	end := note.End.Format("15:04")
	if note.EndInclusive {
		end += " (incl.)"
	}
	builder.WriteString(fmt.Sprintf("Interval: %s ~ %s\n", note.Start.Format("2006-01-02 15:04"), end))
	builder.WriteString(fmt.Sprintf("Duration: %s\n", note.Duration()))
	if note.Ongoing {
		builder.WriteString("Status: ongoing\n")
	}
	builder.WriteString(fmt.Sprintf("Thresholds: irradiance > %s, |dispatch - power| < %s\n",
		decimal.NewFromFloat(note.IrradianceThreshold).String(),
		decimal.NewFromFloat(note.DiffThreshold).String(),
	))
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.RunID != "" {
		builder.WriteString(fmt.Sprintf("Run: %s\n", note.RunID))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Multi(nil)
)
