package metrics

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/OldStager01/paas-autoscaler/internal/logger"
)

// StatsDConfig configures the UDP push client. STATSD_HOST/STATSD_PORT/
// STATSD_PREFIX mirror the environment variables named in the external
// interfaces the control loop consumes; STATSD_ENABLED gates whether the
// client is constructed at all.
type StatsDConfig struct {
	Host    string
	Port    int
	Prefix  string
	Timeout time.Duration
}

// StatsDClient is a fire-and-forget UDP DogStatsD-style gauge/counter
// client. UDP writes never block on a remote ack, so a dead or
// unreachable collector cannot stall a tick — the worst case is a
// dropped datagram, logged at debug.
type StatsDClient struct {
	conn   net.Conn
	prefix string
}

func NewStatsDClient(cfg StatsDConfig) (*StatsDClient, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8125
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("statsd: dial %s: %w", addr, err)
	}

	return &StatsDClient{conn: conn, prefix: cfg.Prefix}, nil
}

func (c *StatsDClient) name(name string) string {
	if c.prefix == "" {
		return name
	}
	return c.prefix + "." + name
}

func (c *StatsDClient) Gauge(name string, value float64) {
	c.send(fmt.Sprintf("%s:%s|g", c.name(name), strconv.FormatFloat(value, 'f', -1, 64)))
}

func (c *StatsDClient) Incr(name string, value float64) {
	c.send(fmt.Sprintf("%s:%s|c", c.name(name), strconv.FormatFloat(value, 'f', -1, 64)))
}

func (c *StatsDClient) send(payload string) {
	if _, err := c.conn.Write([]byte(payload)); err != nil {
		logger.WithField("payload", payload).Debugf("statsd write failed: %v", err)
	}
}

func (c *StatsDClient) Close() error {
	return c.conn.Close()
}
