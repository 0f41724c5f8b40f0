package config

import (
	"time"

	"github.com/spiralwrks/spiralworks.ai/internal/log"
	"github.com/spiralwrks/spiralworks.ai/pkg/notify"
	"github.com/spiralwrks/spiralworks.ai/pkg/utils"
)

type NotifyConfig struct {
	WebhookURL   string
	KafkaBrokers []string
	KafkaTopic   string
	Timeout      time.Duration
}

func NewNotifyConfig() *NotifyConfig {
	return &NotifyConfig{
		WebhookURL:   utils.GetEnvTrimmed("DISCORD_WEBHOOK_URL"),
		KafkaBrokers: utils.GetEnvList("NOTIFY_KAFKA_BROKERS"),
		KafkaTopic:   utils.GetEnvTrimmedOrDefault("NOTIFY_KAFKA_TOPIC", "waitlist.signups"),
		Timeout:      utils.GetEnvDurationOrDefault("NOTIFY_TIMEOUT", notify.DefaultTimeout),
	}
}

// NewNotifier fans signups out to every configured sink. A sink that cannot
// be built is skipped; notification is never required for signup.
func (nc *NotifyConfig) NewNotifier(logger *log.Logger) (*notify.AsyncNotifier, func()) {
	var sinks notify.MultiSink
	closers := []func(){}

	if nc.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(notify.WebhookConfig{URL: nc.WebhookURL}))
		logger.Info("Signup webhook notifications enabled")
	}

	if len(nc.KafkaBrokers) > 0 {
		kafka, err := notify.NewKafkaSink(nc.KafkaBrokers, nc.KafkaTopic)
		if err != nil {
			logger.Error("Kafka signup notifications disabled", "error", err)
		} else {
			sinks = append(sinks, kafka)
			closers = append(closers, kafka.Close)
			logger.Info("Kafka signup notifications enabled", "topic", nc.KafkaTopic, "brokers", nc.KafkaBrokers)
		}
	}

	var sink notify.Sink = sinks
	if len(sinks) == 0 {
		logger.Info("No signup notification sink configured")
		sink = notify.NopSink{}
	}

	closeSinks := func() {
		for _, c := range closers {
			c()
		}
	}
	return notify.NewAsyncNotifier(sink, nc.Timeout, logger), closeSinks
}
