package config

import (
	"fmt"

	"github.com/marmos91/dittorpc/internal/logger"
	"github.com/marmos91/dittorpc/pkg/clnt"
	"github.com/marmos91/dittorpc/pkg/metrics"
)

// ConfigureLogging applies the logging section to the global logger.
func ConfigureLogging(cfg *LoggingConfig) error {
	logger.SetLevel(cfg.Level)
	logger.SetFormat(cfg.Format)
	if err := logger.SetOutput(cfg.Output); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// UDPConfig returns the socket settings of the transport section.
func (t *TransportConfig) UDPConfig() clnt.UDPConfig {
	return clnt.UDPConfig{
		Network:        t.Network,
		Address:        t.LocalAddress,
		ReusePort:      t.ReusePort,
		SendBufferSize: t.SendBufferSize,
		RecvBufferSize: t.RecvBufferSize,
	}
}

// Options returns the handle options of the client section. The call
// timeout is not part of them; it is passed to each call.
func (c *ClientConfig) Options(auth clnt.Auth, m metrics.ClientMetrics) clnt.Options {
	return clnt.Options{
		SendSize:      c.SendSize,
		RecvSize:      c.RecvSize,
		RetryTimeout:  c.RetryTimeout,
		Auth:          auth,
		Metrics:       m,
		MaxSendRate:   c.MaxSendRate,
		SendBurst:     c.SendBurst,
		Interruptible: c.Interruptible,
		Connect:       c.Connect,
		WaitChan:      c.WaitChan,
	}
}
