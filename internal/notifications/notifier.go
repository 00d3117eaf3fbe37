// Package notifications forwards call-state updates to the home-automation
// controller's webhook and pushes failure alerts through Gotify.
package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tgcalld/internal/config"
	"tgcalld/internal/state"
)

// Notifier delivers state snapshots out of process. It implements
// state.Observer; delivery happens on its own worker goroutine so slow
// endpoints never block state dispatch.
type Notifier struct {
	cfg    *config.Config
	client *http.Client
	logger *slog.Logger

	// retryDelay is the base backoff between delivery attempts,
	// shortened in tests
	retryDelay time.Duration

	updates chan state.Snapshot
	done    chan struct{}
	closed  sync.Once
}

// NewNotifier creates a notifier and starts its delivery worker
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:     logger,
		retryDelay: time.Second,
		updates:    make(chan state.Snapshot, 64),
		done:       make(chan struct{}),
	}
	go n.worker()
	return n
}

// StateUpdated implements state.Observer. Queues the snapshot for delivery;
// a full queue drops the update rather than blocking the publisher.
func (n *Notifier) StateUpdated(snap state.Snapshot) {
	select {
	case n.updates <- snap:
	default:
		n.logger.Warn("notification queue full, dropping state update", "status", snap.Status)
	}
}

// Close stops the delivery worker. Queued updates are dropped.
func (n *Notifier) Close() {
	n.closed.Do(func() { close(n.done) })
}

func (n *Notifier) worker() {
	for {
		select {
		case <-n.done:
			return
		case snap := <-n.updates:
			n.deliver(snap)
		}
	}
}

func (n *Notifier) deliver(snap state.Snapshot) {
	if n.cfg.StateWebhookURL != "" {
		if err := n.sendWithRetries(n.cfg.StateWebhookURL, snap); err != nil {
			n.logger.Warn("state webhook delivery failed", "error", err, "status", snap.Status)
		}
	}

	if snap.Status == state.StatusError && n.cfg.GotifyURL != "" {
		if err := n.SendPush("Call failed", snap.LastError); err != nil {
			n.logger.Warn("push notification failed", "error", err)
		}
	}
}

func (n *Notifier) sendWithRetries(url string, payload interface{}) error {
	var lastErr error
	for attempt := 0; attempt < config.WebhookMaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			time.Sleep(n.retryDelay * time.Duration(1<<uint(attempt-1)))
		}
		if err := n.SendWebhook(url, payload); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", config.WebhookMaxRetries, lastErr)
}

// SendWebhook posts a JSON payload to url
func (n *Notifier) SendWebhook(url string, payload interface{}) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// SendPush sends a push notification via Gotify
func (n *Notifier) SendPush(title, message string) error {
	if n.cfg.GotifyURL == "" {
		return fmt.Errorf("Gotify not configured")
	}

	payload := map[string]interface{}{
		"title":    title,
		"message":  message,
		"priority": 5,
	}

	url := fmt.Sprintf("%s/message?token=%s", n.cfg.GotifyURL, n.cfg.GotifyToken)
	return n.sendWithRetries(url, payload)
}
