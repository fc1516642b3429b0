package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Buzzer/internal/adapters/api"
	panel "github.com/dkeye/Buzzer/internal/adapters/http"
	"github.com/dkeye/Buzzer/internal/adapters/platform"
	"github.com/dkeye/Buzzer/internal/adapters/store"
	"github.com/dkeye/Buzzer/internal/adapters/ws"
	"github.com/dkeye/Buzzer/internal/app"
	"github.com/dkeye/Buzzer/internal/auth"
	"github.com/dkeye/Buzzer/internal/config"
	"github.com/dkeye/Buzzer/internal/domain"
)

const shutdownTimeout = 5 * time.Second

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the device agent and the local panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg)
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	claims, err := auth.Check(cfg.Token, time.Now())
	if err != nil {
		return err
	}
	if claims != nil {
		ev := log.Info().Str("subject", claims.Subject)
		if claims.ExpiresAt != nil {
			ev = ev.Time("expires", *claims.ExpiresAt)
		}
		ev.Msg("credential")
	}

	st, err := store.Open(cfg.StateFile)
	if err != nil {
		return err
	}

	dialer, err := ws.NewDialer(ws.Config{
		ServerURL: cfg.ServerURL,
		WriteWait: cfg.Transport.WriteWait,
		ReadLimit: cfg.Transport.ReadLimit,
	})
	if err != nil {
		return err
	}

	board := panel.NewBoard()
	identity := app.Identity{
		DeviceID:   st.DeviceID(),
		DeviceName: cfg.DeviceName,
		Info:       deviceInfo(cfg),
		Token:      cfg.Token,
	}
	agent := app.NewAgent(identity, app.Platform{
		Dialer:     dialer,
		Audio:      platform.NewPlayer(cfg.Alert.PlayerCommand, cfg.Alert.Ringtone),
		WakeLocker: platform.NewInhibitor(cfg.Alert.WakeLockCommand),
		Push: platform.NewWebPush(platform.PushConfig{
			Endpoint:          cfg.Push.Endpoint,
			RequireStandalone: cfg.Push.RequireStandalone,
			Standalone:        cfg.Push.Standalone,
		}, st),
		API:       api.New(api.Config{BaseURL: cfg.ServerURL, Token: cfg.Token}),
		Presenter: board,
		Gestures:  board,
	}, app.TransportConfig{
		MaxReconnectAttempts: cfg.Transport.MaxReconnectAttempts,
		ReconnectDelay:       cfg.Transport.ReconnectDelay,
		HeartbeatPeriod:      cfg.Transport.HeartbeatPeriod,
		DialTimeout:          cfg.Transport.DialTimeout,
	}, app.CoordinatorConfig{
		RingInterval: cfg.Panel.RingRate,
		RingBurst:    cfg.Panel.RingBurst,
	})

	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:              cfg.Panel.Addr,
		Handler:           panel.SetupRouter(cfg.Panel, panel.NewHandlers(agent, board, identity.DeviceID)),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		return agent.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Panel.Addr).Msg("panel started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("panel: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("panel forced to shutdown")
		}
		return nil
	})

	err = g.Wait()
	log.Info().Msg("buzzer exited")
	return err
}

func deviceInfo(cfg *config.Config) domain.DeviceInfo {
	host, _ := os.Hostname()
	return domain.DeviceInfo{
		Platform:   runtime.GOOS,
		Arch:       runtime.GOARCH,
		Hostname:   host,
		UserAgent:  "buzzer/" + version,
		Standalone: cfg.Push.Standalone,
	}
}
