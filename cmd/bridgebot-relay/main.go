// bridgebot-relay hosts the command relay: a control plane the chat
// front-end drives, plus one dynamically created HTTP listener per service
// that game scripts poll for triggered commands
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"bridgebot/internal/adapters/roblox"
	"bridgebot/internal/platform/config"
	"bridgebot/internal/platform/logger"
	phttp "bridgebot/internal/platform/net/http"
	"bridgebot/internal/services/access"
	controlhttp "bridgebot/internal/services/control/http"
	relayhttp "bridgebot/internal/services/relay/http"
	"bridgebot/internal/services/relay/registry"
	"bridgebot/internal/services/relay/runner"
	"bridgebot/internal/services/verify"
)

func main() {
	logger.Init(logger.FromEnv())
	log := logger.Named("main")

	cfg := config.New()
	relayCfg := cfg.Prefix("RELAY_")
	controlCfg := cfg.Prefix("CONTROL_")
	robloxCfg := cfg.Prefix("ROBLOX_")

	controlCfg.Require("ADMIN_KEY")
	adminKey := controlCfg.MustString("ADMIN_KEY")

	run := runner.New(runner.Options{
		Host:            relayCfg.MayString("HOST", ""),
		CertFile:        relayCfg.MayString("TLS_CERT", ""),
		KeyFile:         relayCfg.MayString("TLS_KEY", ""),
		ShutdownTimeout: relayCfg.MayDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	})

	reg := registry.New(registry.Config{
		BasePort:    relayCfg.MayInt("BASE_PORT", 8080),
		PortSpan:    relayCfg.MayInt("PORT_SPAN", 1000),
		PublicHost:  relayCfg.MayString("PUBLIC_HOST", "http://localhost"),
		QueueTTL:    relayCfg.MayDuration("QUEUE_TTL", 60*time.Second),
		MaxCommands: relayCfg.MayInt("MAX_COMMANDS", 5),
	}, run, relayhttp.NewHandler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := registry.NewSweeper(reg, relayCfg.MayDuration("SWEEP_INTERVAL", 30*time.Second))
	sweeper.Start(ctx)

	gate := access.NewGate()

	profiles := roblox.New(roblox.Options{
		BaseURL:       robloxCfg.MayString("BASE_URL", ""),
		LegacyBaseURL: robloxCfg.MayString("LEGACY_BASE_URL", ""),
		Timeout:       robloxCfg.MayDuration("TIMEOUT", 8*time.Second),
		UserAgent:     robloxCfg.MayString("USER_AGENT", "bridgebot-relay"),
	})
	verifier := verify.New(profiles)

	handler := controlhttp.NewHandler(controlhttp.Deps{
		Registry:  reg,
		Gate:      gate,
		Verify:    verifier,
		AdminKey:  func() (string, bool) { return adminKey, true },
		Swagger:   controlCfg.MayBool("SWAGGER", false),
		StartedAt: time.Now(),
	})

	srv := phttp.NewServer(controlCfg.MayString("ADDR", ":4000"), handler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("control server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("control server shutdown failed")
	}
	sweeper.Stop()
	reg.StopAll(shutdownCtx)
	run.StopAll(shutdownCtx)

	log.Info().Msg("relay stopped")
}
