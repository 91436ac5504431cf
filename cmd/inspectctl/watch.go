package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/railinspect/backend/internal/infrastructure/event"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func watchCmd(g *globals) *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the domain events forwarded over Redis until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync(log) }()

			if channel == "" {
				channel = cfg.Redis.EventChannel
			}
			if channel == "" {
				return errors.New("no event channel: set redis.event_channel or pass --channel")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr(),
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer func() { _ = client.Close() }()

			sub := client.Subscribe(ctx, channel)
			defer func() { _ = sub.Close() }()
			if _, err := sub.Receive(ctx); err != nil {
				return fmt.Errorf("subscribe to %s: %w", channel, err)
			}
			log.Info("Watching domain events", zap.String("channel", channel))

			serializer := event.NewAssetEventSerializer()
			enc := json.NewEncoder(cmd.OutOrStdout())
			messages := sub.Channel()
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-messages:
					if !ok {
						return nil
					}
					evt, err := event.DecodeEnvelope(serializer, []byte(msg.Payload))
					if err != nil {
						log.Warn("Skipping undecodable event", zap.Error(err))
						continue
					}
					if err := enc.Encode(map[string]any{
						"type":  evt.EventType(),
						"event": evt,
					}); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Pub/sub channel (default redis.event_channel)")
	return cmd
}
