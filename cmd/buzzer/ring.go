package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	panel "github.com/dkeye/Buzzer/internal/adapters/http"
	"github.com/dkeye/Buzzer/internal/adapters/store"
)

func ringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ring <device-id>",
		Short: "Ring another device through the running agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			duration, _ := cmd.Flags().GetInt("duration")
			panelURL, _ := cmd.Flags().GetString("panel")
			if panelURL == "" {
				panelURL = "http://" + cfg.Panel.Addr
			}

			req := panel.RingRequest{TargetDeviceID: args[0]}
			if cmd.Flags().Changed("duration") {
				req.DurationSeconds = &duration
			}
			body, err := json.Marshal(req)
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Post(strings.TrimSuffix(panelURL, "/")+"/api/ring", "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("is the agent running? %w", err)
			}
			defer resp.Body.Close()
			out, _ := io.ReadAll(resp.Body)
			if resp.StatusCode >= 400 {
				return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(out)))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ringing %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntP("duration", "d", 0, "ring duration in seconds (default: until answered)")
	cmd.Flags().String("panel", "", "panel base URL (default http://<panel.addr>)")

	return cmd
}

func deviceIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device-id",
		Short: "Print this device's identity, creating it if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.StateFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.DeviceID())
			return nil
		},
	}
}
