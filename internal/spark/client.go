package spark

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxAttempts      = 3
	handshakeTimeout = 30 * time.Second
	responseTimeout  = 45 * time.Second

	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
	defaultTopK        = 3
)

var ErrEmptyAnswer = errors.New("empty answer from AI")

type Config struct {
	AppID     string
	APIKey    string
	APISecret string
	URL       string
	Domain    string

	// SystemPrompt, when set, is prepended to every outgoing message list.
	SystemPrompt string

	// InsecureSkipVerify disables certificate validation on the websocket
	// dial. The deployed upstream presents a certificate the stock roots
	// reject, so operators can opt in, at the cost of MITM exposure.
	InsecureSkipVerify bool
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client performs one request/response cycle per attempt against the signed
// streaming endpoint, retrying on empty answers, timeouts, and transport
// faults. Attempts are fixed-count with no backoff.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	now    func() time.Time
}

func NewClient(cfg Config) *Client {
	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	if cfg.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}

	return &Client{cfg: cfg, dialer: dialer, now: time.Now}
}

type chatRequest struct {
	Header struct {
		AppID string `json:"app_id"`
		UID   string `json:"uid"`
	} `json:"header"`
	Parameter struct {
		Chat struct {
			Domain      string  `json:"domain"`
			Temperature float64 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
			TopK        int     `json:"top_k"`
		} `json:"chat"`
	} `json:"parameter"`
	Payload struct {
		Message struct {
			Text []Message `json:"text"`
		} `json:"message"`
	} `json:"payload"`
}

type chatFrame struct {
	Header struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"header"`
	Payload struct {
		Choices struct {
			Text []struct {
				Content string `json:"content"`
			} `json:"text"`
		} `json:"choices"`
	} `json:"payload"`
}

// Complete sends the message list and returns the accumulated answer. Each
// retry opens a fresh connection with a freshly signed URL and a new
// per-attempt uid.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	return completeWithRetry(ctx, maxAttempts, func(attempt int) (string, error) {
		return c.exchange(ctx, messages, attempt)
	})
}

func completeWithRetry(ctx context.Context, attempts int, do func(attempt int) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		answer, err := do(attempt)
		if err != nil {
			lastErr = err
			slog.Warn("AI exchange failed", "attempt", attempt+1, "max_attempts", attempts, "error", err)
			continue
		}
		if strings.TrimSpace(answer) != "" {
			return answer, nil
		}

		lastErr = ErrEmptyAnswer
		slog.Warn("AI returned empty answer", "attempt", attempt+1, "max_attempts", attempts)
	}
	return "", lastErr
}

func (c *Client) exchange(ctx context.Context, messages []Message, attempt int) (string, error) {
	signedURL, err := SignURL(c.cfg.URL, c.cfg.APIKey, c.cfg.APISecret, c.now())
	if err != nil {
		return "", err
	}

	conn, _, err := c.dialer.DialContext(ctx, signedURL, nil)
	if err != nil {
		return "", fmt.Errorf("could not connect to AI endpoint: %w", err)
	}
	defer conn.Close()

	req := c.buildRequest(messages, attempt)
	if err := conn.WriteJSON(req); err != nil {
		return "", fmt.Errorf("could not send AI request: %w", err)
	}

	// The read deadline caps the whole drain loop: once set, every read
	// past the deadline fails, which the retry loop treats as a fault.
	deadline := c.now().Add(responseTimeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return "", err
	}

	var answer strings.Builder
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return "", fmt.Errorf("error reading AI response: %w", err)
		}
		if len(data) == 0 {
			break
		}

		var frame chatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return "", fmt.Errorf("could not parse AI response frame: %w", err)
		}
		if frame.Header.Code != 0 {
			return "", fmt.Errorf("AI endpoint returned error %d: %s", frame.Header.Code, frame.Header.Message)
		}

		for _, item := range frame.Payload.Choices.Text {
			answer.WriteString(item.Content)
		}

		if frame.Header.Status == 2 {
			break
		}
	}

	return answer.String(), nil
}

func (c *Client) buildRequest(messages []Message, attempt int) chatRequest {
	var req chatRequest
	req.Header.AppID = c.cfg.AppID
	req.Header.UID = fmt.Sprintf("user_%d_%d", c.now().Unix(), attempt)
	req.Parameter.Chat.Domain = c.cfg.Domain
	req.Parameter.Chat.Temperature = defaultTemperature
	req.Parameter.Chat.MaxTokens = defaultMaxTokens
	req.Parameter.Chat.TopK = defaultTopK

	if c.cfg.SystemPrompt != "" {
		req.Payload.Message.Text = append(req.Payload.Message.Text, Message{Role: "system", Content: c.cfg.SystemPrompt})
	}
	req.Payload.Message.Text = append(req.Payload.Message.Text, messages...)
	return req
}
