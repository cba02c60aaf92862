// Command skylight runs the conversational assistant: serve exposes the
// streaming chat endpoint, ask runs a single question from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	skylight "github.com/skylightai/skylight"
	"github.com/skylightai/skylight/agent"
	"github.com/skylightai/skylight/config"
	"github.com/skylightai/skylight/core"
	"github.com/skylightai/skylight/logging"
	"github.com/skylightai/skylight/model"
	"github.com/skylightai/skylight/model/anthropic"
	"github.com/skylightai/skylight/model/openai"
	"github.com/skylightai/skylight/server"
	"github.com/skylightai/skylight/stream"
	"github.com/skylightai/skylight/tool"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "skylight",
	Short: "Skylight conversational assistant",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the streaming chat endpoint over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		// Serving movie queries without a credential would fail every
		// request identically; refuse to start instead.
		movieKey := cfg.MovieAPIKey()
		if movieKey == "" {
			return fmt.Errorf("movie credential missing: set %s", cfg.MovieAPIKeyEnv)
		}

		sk, err := buildAssistant(cfg, movieKey, logger)
		if err != nil {
			return err
		}

		srv := server.New(cfg.Listen, sk.Orchestrator(), sk.Store(), func(o *server.Options) {
			o.Logger = logger
		})

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			logger.Info("main.shutdown", "signal", sig.String())
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Error("main.shutdown_failed", "error", err.Error())
			}
		}()

		return srv.ListenAndServe()
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask a single question and stream the answer to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		// A missing movie credential is not fatal here: weather questions
		// still work, and a movie question surfaces the configuration
		// error in-band.
		sk, err := buildAssistant(cfg, cfg.MovieAPIKey(), logger)
		if err != nil {
			return err
		}

		events, errs, err := sk.Chat(cmd.Context(), "cli", args[0])
		if err != nil {
			return err
		}

		jsonOut, _ := cmd.Flags().GetBool("json")
		enc := stream.NewEncoder(cmd.OutOrStdout())

		for ev := range events {
			if jsonOut {
				if err := enc.Encode(ev); err != nil {
					return err
				}
				continue
			}
			switch e := ev.(type) {
			case core.TextDeltaEvent:
				fmt.Fprint(cmd.OutOrStdout(), e.Text)
			case core.ToolCallEvent:
				fmt.Fprintf(cmd.ErrOrStderr(), "[calling %s]\n", e.ToolName)
			case core.ToolErrorEvent:
				fmt.Fprintf(cmd.ErrOrStderr(), "[%s failed: %s]\n", e.ToolCallID, e.Message)
			case core.MessageDoneEvent:
				fmt.Fprintln(cmd.OutOrStdout())
			case core.StreamErrorEvent:
				fmt.Fprintf(cmd.ErrOrStderr(), "[turn failed: %s]\n", e.Message)
			}
		}
		return <-errs
	},
}

// buildAssistant wires the configured model provider and the built-in tools
// into a Skylight façade.
func buildAssistant(cfg config.Config, movieKey string, logger logging.Logger) (*skylight.Skylight, error) {
	var m model.Model
	switch cfg.Provider {
	case "openai":
		m = openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		})
	case "anthropic":
		m = anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	sk := skylight.New(m, func(o *skylight.Options) {
		o.Logger = logger
		o.AgentOptions = []func(o *agent.Options){func(o *agent.Options) {
			o.ToolTimeout = cfg.ToolTimeout
		}}
	})

	if err := sk.RegisterTool(tool.NewWeatherTool(func(o *tool.WeatherToolOptions) {
		o.Logger = logger
	})); err != nil {
		return nil, err
	}
	if err := sk.RegisterTool(tool.NewMovieTool(movieKey, func(o *tool.MovieToolOptions) {
		o.Logger = logger
	})); err != nil {
		return nil, err
	}

	return sk, nil
}

func newLogger(cfg config.Config) logging.Logger {
	return logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, os.Stderr)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	askCmd.Flags().Bool("json", false, "Emit raw event frames instead of pretty output")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
