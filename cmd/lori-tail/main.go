// Command lori-tail follows the tab events published by lori and logs each
// snapshot, warning when sequence numbers skip or go backwards.
package main

import (
	"context"
	"errors"
	"os"

	"lori/internal/amqp"
	"lori/internal/cli"
	"lori/internal/core"
	"lori/internal/log"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger.Slog())
	if !cfg.HasAMQP() {
		logger.Error("AMQP_URL is required for lori-tail")
		os.Exit(1)
	}

	amqpLogger := logger.WithComponent(log.ComponentAMQP)
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqpLogger.Slog())
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(logger.Slog())
	defer stop()

	t := &tail{logger: amqpLogger}
	logger.Info("Following tab events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := client.ConsumeWithRetry(ctx, t.handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("lori-tail stopped")
}

type tail struct {
	logger  *log.Logger
	lastSeq uint64
}

func (t *tail) handle(ev *amqp.TabEvent) error {
	if t.lastSeq != 0 && ev.Sequence != t.lastSeq+1 {
		// A restarted publisher starts again at 1.
		t.logger.Warn("Tab event out of sequence",
			"expected", t.lastSeq+1,
			"got", ev.Sequence)
	}
	t.lastSeq = ev.Sequence

	t.logger.Info("Tab event",
		"sequence", ev.Sequence,
		log.FieldItems, len(ev.Items),
		"active", ev.Active,
		log.FieldTotal, core.FormatReais(ev.Total),
		"at", ev.Timestamp)
	return nil
}
