// Package ingest consumes operational events from NATS. Sensors and POS
// integrations publish JSON events to <prefix>.<location_type>; consumers
// in the same queue group share the load.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/flowline-analytics/flowline/internal/config"
	"github.com/flowline-analytics/flowline/internal/logging"
	"github.com/flowline-analytics/flowline/internal/metrics"
	"github.com/flowline-analytics/flowline/internal/models"
	"github.com/flowline-analytics/flowline/internal/service"
)

// Consumer subscribes to the events subject tree and feeds the service.
type Consumer struct {
	conn   *nats.Conn
	cfg    config.NATSConfig
	svc    *service.Service
	logger *logging.Logger
	sub    *nats.Subscription
}

// NewConsumer connects to NATS. Reconnects are unbounded; event flow is
// continuous and the process should outlive broker restarts.
func NewConsumer(cfg config.NATSConfig, svc *service.Service, logger *logging.Logger) (*Consumer, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("flowline-ingest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Consumer{conn: conn, cfg: cfg, svc: svc, logger: logger}, nil
}

// Start subscribes to <prefix>.> in the configured queue group.
func (c *Consumer) Start() error {
	subject := c.cfg.SubjectPrefix + ".>"
	sub, err := c.conn.QueueSubscribe(subject, c.cfg.QueueGroup, c.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	c.sub = sub
	c.logger.Info("ingest consumer started", "subject", subject, "queue_group", c.cfg.QueueGroup)
	return nil
}

func (c *Consumer) handle(msg *nats.Msg) {
	var ev models.OperationalEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		metrics.EventsRejected.WithLabelValues("nats", "malformed_json").Inc()
		c.logger.Warn("dropping malformed event", "subject", msg.Subject, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.svc.IngestEvent(ctx, &ev, "nats"); err != nil {
		c.logger.Warn("event rejected", "subject", msg.Subject, "error", err)
	}
}

// Close drains the subscription so in-flight events finish, then closes
// the connection.
func (c *Consumer) Close() {
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			c.logger.Warn("failed to drain subscription", "error", err)
		}
	}
	c.conn.Close()
}
