package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/mymmrac/telego"

	"github.com/tinyland-inc/relaybot/cmd/relaybot/internal"
	"github.com/tinyland-inc/relaybot/pkg/bus"
	"github.com/tinyland-inc/relaybot/pkg/config"
	"github.com/tinyland-inc/relaybot/pkg/gateway"
	"github.com/tinyland-inc/relaybot/pkg/logger"
	"github.com/tinyland-inc/relaybot/pkg/relay"
)

func serveCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.BotToken == "" {
		return errors.New("bot token not set: configure bot_token or RELAYBOT_BOT_TOKEN")
	}

	bot, err := telego.NewBot(cfg.BotToken, telego.WithDiscardLogger())
	if err != nil {
		return fmt.Errorf("error creating bot client: %w", err)
	}

	store := config.NewStore(internal.GetConfigPath(), cfg)
	postBus := bus.NewPostBus()
	worker := relay.NewWorker(postBus, store, relay.NewTelegram(bot))
	server := gateway.NewServer(store, postBus, bot, cfg.WebhookURL, cfg.WebhookPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.RegisterWebhook(ctx); err != nil {
		return fmt.Errorf("error registering webhook: %w", err)
	}

	if !store.HasAdmins() {
		fmt.Println("No admin users configured. Send /start to the bot to set the first admin.")
	}

	go worker.Run(ctx)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("gateway", "Webhook server error", map[string]any{"error": err.Error()})
		}
	}()

	fmt.Printf("Relay gateway listening on port %d\n", cfg.WebhookPort)
	fmt.Println("Press Ctrl+C to stop")
	logger.InfoCF("serve", "Gateway started", map[string]any{
		"port":        cfg.WebhookPort,
		"webhook_url": cfg.WebhookURL,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.UnregisterWebhook(shutdownCtx); err != nil {
		logger.WarnCF("serve", "Webhook deregistration failed", map[string]any{"error": err.Error()})
	}
	cancel()
	postBus.Close()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.WarnCF("serve", "Server shutdown error", map[string]any{"error": err.Error()})
	}
	if err := store.Save(); err != nil {
		logger.WarnCF("serve", "Final config save failed", map[string]any{"error": err.Error()})
	}

	fmt.Println("Gateway stopped")
	return nil
}
