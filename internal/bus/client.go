// Package bus provides optional live transcript publishing over NATS, with
// an embedded server mode for machines running nothing else.
package bus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/shreyashguptas/raspberry-pi-transcription/internal/config"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/protocol"
)

// Client wraps a NATS connection with transcript publishing helpers.
type Client struct {
	conn *nats.Conn
	log  *slog.Logger
}

func Connect(ctx context.Context, cfg config.BusConfig, log *slog.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name("transcribe"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}

	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))

	return &Client{conn: conn, log: log}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info("closing NATS connection")
	c.conn.Drain()
	c.conn.Close()
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

// PublishSegment broadcasts one accepted transcript segment. Failures are
// logged, never surfaced: a broken bus must not interrupt transcription.
func (c *Client) PublishSegment(seg protocol.Segment) {
	if c == nil {
		return
	}
	c.publish(protocol.SubjectSegment, seg)
}

// PublishStarted broadcasts the session start announcement.
func (c *Client) PublishStarted(started protocol.SessionStarted) {
	if c == nil {
		return
	}
	c.publish(protocol.SubjectSessionStarted, started)
}

// PublishSummary broadcasts the end-of-session statistics.
func (c *Client) PublishSummary(sum protocol.SessionSummary) {
	if c == nil {
		return
	}
	c.publish(protocol.SubjectSessionEnded, sum)
}

func (c *Client) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn("failed to marshal bus message", slog.String("subject", subject), slog.String("error", err.Error()))
		return
	}
	if err := c.conn.Publish(subject, data); err != nil {
		c.log.Warn("failed to publish bus message", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}
