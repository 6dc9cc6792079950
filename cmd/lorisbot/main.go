package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lorisbot/internal/config"
	"lorisbot/internal/extract"
	"lorisbot/internal/ocr"
	"lorisbot/internal/provider"
	"lorisbot/internal/server"
	"lorisbot/internal/service"
	"lorisbot/internal/storage"
	"lorisbot/internal/whatsapp"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	// Credentials usually live in a .env next to the config.
	_ = godotenv.Load()

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "lorisbot",
		Short:   "Loris: AI personal finance assistant over WhatsApp",
		Long:    "Loris receives WhatsApp messages (text, receipt photos, voice notes), extracts structured purchase information, and replies with the result.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.lorisbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(extractCmd())
	root.AddCommand(resultsCmd())
	root.AddCommand(doctorCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.General.LogLevel)}))
	return cfg, nil
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config and create the data directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			dataDir := config.ExpandPath(config.Defaults().Storage.DataDir)
			if _, err := storage.NewStore(dataDir, logger); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "data", dataDir)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the WhatsApp webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := storage.NewStore(cfg.Storage.DataDir, logger)
			if err != nil {
				return err
			}

			ledger, err := storage.NewLedger(cfg.Storage.LedgerPath, logger)
			if err != nil {
				return err
			}
			defer ledger.Close()

			chats, transcribeChain, err := provider.BuildChains(cfg, logger)
			if err != nil {
				return err
			}

			ocrExtractor, err := buildOCR(cfg, store)
			if err != nil {
				return err
			}

			waClient := whatsapp.NewClient(whatsapp.ClientConfig{
				Config: cfg.WhatsApp,
				Client: provider.SharedHTTPClient(0),
				Logger: logger,
			})

			svc := service.New(service.Config{
				Store:       store,
				Ledger:      ledger,
				Fetcher:     waClient,
				Sender:      waClient,
				OCR:         ocrExtractor,
				Transcriber: transcribeChain,
				Extractor:   extract.NewExtractor(extract.ExtractorConfig{Providers: chats, Logger: logger}),
				Logger:      logger,
			})

			srv := server.New(server.Config{
				Config:  cfg.WhatsApp,
				Service: svc,
				Logger:  logger,
			})
			return srv.Run(ctx)
		},
	}
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Run the extraction pipeline over a local image, audio, or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			chats, transcribeChain, err := provider.BuildChains(cfg, logger)
			if err != nil {
				return err
			}
			extractor := extract.NewExtractor(extract.ExtractorConfig{Providers: chats, Logger: logger})

			path := args[0]
			var text string
			switch strings.ToLower(filepath.Ext(path)) {
			case ".jpg", ".jpeg", ".png", ".webp":
				ocrExtractor, err := buildOCR(cfg, nil)
				if err != nil {
					return err
				}
				text, err = ocrExtractor.ExtractText(ctx, path)
				if err != nil {
					return err
				}
			case ".ogg", ".mp3", ".m4a", ".wav", ".aac":
				var terr error
				text, _, terr = transcribeChain.Transcribe(ctx, path)
				if terr != nil {
					return terr
				}
			default:
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				text = string(data)
			}

			result := extractor.FromText(ctx, text)
			var pretty any
			if err := json.Unmarshal([]byte(result.JSON()), &pretty); err != nil {
				return err
			}
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
}

func resultsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List recently processed messages from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ledger, err := storage.NewLedger(cfg.Storage.LedgerPath, logger)
			if err != nil {
				return err
			}
			defer ledger.Close()

			entries, err := ledger.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s  %-7s %-8s %-7s %s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, e.Status, e.Sender, e.Result)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to list")
	return cmd
}

func buildOCR(cfg *config.Config, store *storage.Store) (*ocr.Extractor, error) {
	labels, err := ocr.LoadLabels(cfg.OCR.LabelsFile)
	if err != nil {
		return nil, err
	}
	var sink ocr.TextSink
	if store != nil {
		sink = store
	}
	return ocr.NewExtractor(ocr.ExtractorConfig{
		Recognizer: ocr.NewTesseract(ocr.TesseractConfig{Languages: cfg.OCR.Languages, Logger: logger}),
		Cleaner:    ocr.NewCleaner(labels),
		Sink:       sink,
		Logger:     logger,
	}), nil
}
