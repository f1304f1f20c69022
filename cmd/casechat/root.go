package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/SCADASolve/CASE/casellm/config"
	"github.com/SCADASolve/CASE/casellm/db"
	"github.com/SCADASolve/CASE/casellm/generation/harness"
	"github.com/SCADASolve/CASE/casellm/generation/harness/adapters"
	ports "github.com/SCADASolve/CASE/casellm/generation/harness/ports"
	"github.com/SCADASolve/CASE/casellm/generation/models"
	"github.com/SCADASolve/CASE/casellm/logging"
	"github.com/SCADASolve/CASE/casellm/metrics"
)

// flagBindings maps command-line flags onto config keys.
var flagBindings = map[string]string{
	"model":          "model.name",
	"threads":        "model.threads",
	"device":         "model.device",
	"allow-download": "model.allow_download",
	"training-path":  "prompt.training_path",
	"priming-output": "session.priming_output",
	"log-level":      "log.level",
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "casechat",
		Short: "Chat with a local model primed by a seed prompt",
		Long: `casechat loads a GGUF model, submits the seed prompt from the training path,
then reads prompts at "UserPrompt>" until the line "exit" is entered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), v, configFile)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default: ./config.yaml, then the user config dir)")
	flags.StringP("model", "m", "", "model file name, path, or Ollama model name")
	flags.IntP("threads", "t", 0, "inference thread count")
	flags.StringP("device", "d", "", `compute device: "cpu", "gpu", a GPU index or a GPU name`)
	flags.Bool("allow-download", false, "download the model when it is not found locally")
	flags.StringP("training-path", "p", "", "seed prompt file")
	flags.String("priming-output", "", `what to print after priming: "response", "timing" or "none"`)
	flags.String("log-level", "", "log level: debug, info, warn, error")

	for name, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func runChat(ctx context.Context, v *viper.Viper, configFile string) error {
	cfg, err := config.LoadConfigWith(v, configFile)
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logger.Debug().Str("model", cfg.Model.Name).Str("device", cfg.Model.Device).Msg("Configuration loaded")

	if cfg.Metrics.Enabled {
		srv := metrics.Serve(cfg.Metrics.Addr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("Metrics server shutdown failed")
			}
		}()
	}

	resolver := models.NewResolver("", models.NewDownloader(nil, logger), logger)
	engine := models.NewGGUFEngine(resolver, logger)

	reader, err := newLineReader(cfg.Session.HistoryFile, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer reader.Close()

	stdoutIsTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	display := adapters.NewTerminalDisplay(os.Stdout, cfg.Session.ClearDisplay && stdoutIsTerminal, cfg.Session.TypewriterDelay)

	opts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithTracer(adapters.NewZerologTracer(logger)),
	}

	if cfg.Transcript.Enabled {
		store, err := openTranscriptStore(ctx, cfg.Transcript.DatabasePath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, harness.WithTranscriptStore(store))
	}

	h := harness.New(*cfg, engine, reader, display, opts...)
	logger.Info().Str("session_id", h.SessionID()).Msg("Starting session")
	return h.Run(ctx)
}

// newLineReader uses readline on an interactive terminal and plain buffered reads otherwise.
func newLineReader(historyFile string, in *os.File, out io.Writer) (ports.LineReader, error) {
	if term.IsTerminal(int(in.Fd())) {
		return adapters.NewReadlineConsole(historyFile)
	}
	return adapters.NewStdioConsole(in, out), nil
}

func openTranscriptStore(ctx context.Context, path string, logger zerolog.Logger) (ports.TranscriptStore, error) {
	conn, err := db.ConnectToDB(ctx, path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript database: %w", err)
	}
	return adapters.NewLibSQLTranscriptStore(conn), nil
}
