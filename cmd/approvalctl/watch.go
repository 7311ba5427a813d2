package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bibbank/approval/pkg/approval"
	"github.com/bibbank/approval/pkg/events"
	pkgkafka "github.com/bibbank/approval/pkg/kafka"
	"github.com/bibbank/approval/pkg/profile"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	var (
		brokers string
		topic   string
		cfg     pkgkafka.Config
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print prediction events as the services publish them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Brokers = pkgkafka.ParseBrokers(brokers)
			if topic == "" {
				topic = "approval." + g.serviceShortName() + ".events"
			}

			out := cmd.OutOrStdout()
			consumer, err := pkgkafka.NewConsumer(cfg, topic, func(_ context.Context, msg pkgkafka.Message) error {
				line, err := formatEvent(msg)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, line)
				return err
			}, g.logger(cmd))
			if err != nil {
				return codeError(3, "%s", err)
			}
			defer consumer.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			if err := consumer.Start(ctx); err != nil {
				return codeError(4, "%s", err)
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&brokers, "brokers", "localhost:9092", "Comma separated Kafka brokers")
	fs.StringVar(&topic, "topic", "", "Topic to read (default approval.<service>.events)")
	fs.StringVar(&cfg.ConsumerGroup, "group", "", "Consumer group; empty reads from the newest offset without committing")
	fs.StringVar(&cfg.ClientID, "client-id", "approvalctl", "Kafka client ID")
	fs.BoolVar(&cfg.TLS, "tls", false, "Connect to the brokers over TLS")
	fs.BoolVar(&cfg.SASLEnabled, "sasl", false, "Authenticate with SASL")
	fs.StringVar(&cfg.SASLMechanism, "sasl-mechanism", "PLAIN", "PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512")
	fs.StringVar(&cfg.SASLUsername, "sasl-username", "", "SASL username")
	fs.StringVar(&cfg.SASLPassword, "sasl-password", "", "SASL password")
	return cmd
}

func (g *globalFlags) serviceShortName() string {
	if t, err := lookupTarget(g.service); err == nil {
		return t.short
	}
	return g.service
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// formatEvent renders one prediction event as a single line.
func formatEvent(msg pkgkafka.Message) (string, error) {
	var env events.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType != approval.EventPredictionCompleted {
		return fmt.Sprintf("%s %s %s", env.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), env.EventType, env.AggregateID), nil
	}

	var evt approval.PredictionCompleted
	if err := json.Unmarshal(env.Payload, &evt); err != nil {
		return "", fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return fmt.Sprintf("%s %s %s %-8s p=%s via %s",
		evt.OccurredAt.Format("2006-01-02T15:04:05Z07:00"),
		evt.Service,
		evt.PredictionID,
		evt.Decision,
		profile.Number(evt.Probability),
		evt.Strategy,
	), nil
}
