package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
	"github.com/xhad/ragchat/pkg/backend"
	"github.com/xhad/ragchat/pkg/chat"
	cfgPkg "github.com/xhad/ragchat/pkg/config"
	"github.com/xhad/ragchat/pkg/logger"
	"github.com/xhad/ragchat/pkg/render"
	"github.com/xhad/ragchat/server"
	"go.uber.org/zap"
)

type Flags struct {
	ConfigPath string
	BackendURL string
	Host       string
	Port       int
	Timeout    time.Duration
	Serve      bool
	Addr       string
	LogFile    string
	NoColor    bool
}

func main() {
	flags := parseFlags()

	config, err := loadConfig(flags)
	if err != nil {
		log.Fatal(err)
	}

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(2)
	}

	if err := run(config, flags.Serve); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.BackendURL, "backend-url", "", "Backend URL (overrides host and port)")
	flag.StringVar(&flags.Host, "host", "", "Backend host")
	flag.IntVar(&flags.Port, "port", cfgPkg.DefaultPort, "Backend port")
	flag.DurationVar(&flags.Timeout, "timeout", cfgPkg.DefaultTimeout, "Request timeout")
	flag.BoolVar(&flags.Serve, "serve", false, "Serve the WebSocket bridge instead of the terminal chat")
	flag.StringVar(&flags.Addr, "addr", "", "WebSocket bridge listen address")
	flag.StringVar(&flags.LogFile, "log-file", "", "Write logs to this file")
	flag.BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
	flag.Parse()

	return flags
}

// loadConfig reads the config file and environment, then applies the flags
// that were set explicitly on the command line.
func loadConfig(flags Flags) (*cfgPkg.Config, error) {
	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend-url":
			config.Backend.URL = flags.BackendURL
		case "host":
			config.Backend.Host = flags.Host
		case "port":
			config.Backend.Port = flags.Port
		case "timeout":
			config.Backend.Timeout = flags.Timeout
		case "addr":
			config.Server.Addr = flags.Addr
		case "log-file":
			config.Log.File = flags.LogFile
		case "no-color":
			config.UI.Color = !flags.NoColor
		}
	})

	return config, nil
}

func newBackend(config *cfgPkg.Config, baseURL string, log *zap.Logger, opts ...backend.Option) *backend.Client {
	opts = append(opts, backend.WithRequestLogging())
	return backend.New(backend.Config{
		BaseURL:      baseURL,
		ChatEndpoint: config.Backend.ChatEndpoint,
		LoadEndpoint: config.Backend.LoadEndpoint,
		Logger:       log,
	}, opts...)
}

func run(config *cfgPkg.Config, serve bool) error {
	log, err := logger.New(config.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if serve {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		color.Cyan("WebSocket bridge listening on %s", config.Server.Addr)
		ws := server.NewWSServer(*config, log, func(baseURL string) types.Backend {
			return newBackend(config, baseURL, log)
		})
		return ws.ListenAndServe(ctx)
	}

	client := newBackend(config, config.Backend.BaseURL(), log,
		backend.WithUploadProgress(uploadProgress(config.UI.Spinner)))

	controller := chat.New(client,
		chat.WithTimeout(config.Backend.Timeout),
		chat.WithLogger(log),
	)

	return chatLoop(config, client.BaseURL(), controller)
}

func chatLoop(config *cfgPkg.Config, baseURL string, controller *chat.Controller) error {
	renderer := render.New(os.Stdout, config.UI.Color)
	tracker := render.NewTracker(renderer)

	color.NoColor = !config.UI.Color
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	renderer.Welcome()
	color.Cyan("Backend: %s (type /help for commands, 'exit' to quit)", baseURL)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		input := scanner.Text()
		trimmed := strings.TrimSpace(input)

		switch {
		case trimmed == "exit" || trimmed == "quit":
			return nil
		case trimmed == "/help":
			printHelp(renderer)
			continue
		case trimmed == "/status":
			printStatus(renderer, baseURL, controller)
			continue
		case trimmed == "/history":
			showHistory(renderer, tracker, controller.Turns())
			continue
		case trimmed == "/file" || strings.HasPrefix(trimmed, "/file "):
			stageFile(config, renderer, controller, strings.TrimSpace(strings.TrimPrefix(trimmed, "/file")))
			continue
		case trimmed == "/upload":
			if _, ok := controller.StagedFile(); !ok {
				renderer.Info("No file staged. Use /file <path> first.")
				continue
			}
			if err := controller.UploadStaged(context.Background()); err != nil {
				color.Red("Error: %v", err)
			}
			tracker.Render(controller.Turns())
			continue
		}

		var err error
		withSpinner(config.UI.Spinner, " Thinking...", func() {
			err = controller.SubmitQuery(context.Background(), input)
		})
		if errors.Is(err, chat.ErrEmptyQuery) {
			continue
		}
		if err != nil {
			color.Red("Error: %v", err)
			continue
		}

		fmt.Println()
		tracker.Render(controller.Turns())
	}

	return scanner.Err()
}

// showHistory prints the whole conversation and marks it as shown so the
// next query only prints its reply.
func showHistory(renderer *render.Renderer, tracker *render.Tracker, turns []models.Turn) {
	renderer.RenderAll(turns)
	tracker.Skip(turns)
}

func stageFile(config *cfgPkg.Config, renderer *render.Renderer, controller *chat.Controller, path string) {
	if path == "" {
		renderer.Info("Usage: /file <path>")
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		color.Red("Failed to read %s: %v", path, err)
		return
	}

	name := filepath.Base(path)
	if ext := config.UI.AcceptExtension; ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
		renderer.Info("Note: the backend expects %s documents; %s will be sent as is.", ext, name)
	}

	controller.SelectFile(name, data)
	renderer.Info("Staged %s (%d bytes). Type /upload to load it.", name, len(data))
}

func printHelp(renderer *render.Renderer) {
	renderer.Info(`Commands:
  <text>         ask a question
  /file <path>   stage a document for upload
  /upload        upload the staged document
  /status        show the staged file and upload state
  /history       print the whole conversation
  exit           quit`)
}

func printStatus(renderer *render.Renderer, baseURL string, controller *chat.Controller) {
	state := controller.State()

	staged := "none"
	if state.StagedFile != "" {
		staged = state.StagedFile
	}
	renderer.Info("Backend: %s\nSession: %s\nTurns: %d\nStaged file: %s\nUpload status: %s",
		baseURL, state.SessionID, len(state.Turns), staged, state.UploadStatus)
}
