package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// MonitorRedis instruments a client with OpenTelemetry tracing and metrics, and logs its commands at debug level.
func MonitorRedis(r redis.UniversalClient) error {
	if err := redisotel.InstrumentTracing(r); err != nil {
		return fmt.Errorf("instrument tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(r); err != nil {
		return fmt.Errorf("instrument metrics: %w", err)
	}
	r.AddHook(redisLog{})
	return nil
}

type redisLog struct{}

func (redisLog) DialHook(hook redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := hook(ctx, network, addr)
		if err != nil {
			slog.ErrorContext(ctx, "redis: dial failed", "addr", addr, "error", err)
			return nil, err
		}
		slog.InfoContext(ctx, "redis: connected", "network", network, "addr", addr)
		return conn, nil
	}
}

func (redisLog) ProcessHook(hook redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmd)
		logRedis(ctx, cmd.FullName(), 1, time.Since(start), err)
		return err
	}
}

func (redisLog) ProcessPipelineHook(hook redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmds)
		name := "pipeline"
		if len(cmds) > 0 {
			name = "pipeline " + cmds[0].FullName()
		}
		logRedis(ctx, name, len(cmds), time.Since(start), err)
		return err
	}
}

func logRedis(ctx context.Context, name string, n int, d time.Duration, err error) {
	// redis.Nil is a regular miss, not a failure.
	if err != nil && err != redis.Nil && err != redis.TxFailedErr {
		slog.ErrorContext(ctx, "redis: command failed", "cmd", name, "cmds", n, "duration", d, "error", err)
		return
	}
	slog.DebugContext(ctx, "redis: command", "cmd", name, "cmds", n, "duration", d)
}
