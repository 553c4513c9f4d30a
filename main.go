package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"practicelab/api"
	"practicelab/cli"
	"practicelab/config"
	"practicelab/latency"
	"practicelab/logger"
	"practicelab/mockapi"
	"practicelab/openapi"
	"practicelab/proxy"
	"practicelab/reqlog"
	"practicelab/state"
)

func main() {
	opts := &cli.Options{}

	var rootCmd = &cobra.Command{
		Use:   "practicelab",
		Short: "practicelab: a slow, stateful mock API for browser-automation practice",
		Long: `practicelab serves a small shop and book API with artificial latency so
automation scripts have to wait for real. Unmatched requests pass through to
an upstream dev server, and fault rules inject extra latency or errors.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.BindFlags(rootCmd)
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(cli.CreateCLICommands(opts)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprint(os.Stderr, "❌ ")
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	var configFile string
	var port, apiPort int
	var basePath, upstream, seedFile, rulesFile string
	var noLatency bool

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the mock server and the control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("api-port") {
				cfg.Server.APIPort = apiPort
			}
			if flags.Changed("base-path") {
				cfg.Server.BasePath = basePath
			}
			if flags.Changed("upstream") {
				cfg.Server.Upstream = upstream
			}
			if flags.Changed("seed") {
				cfg.SeedFile = seedFile
			}
			if flags.Changed("rules-file") {
				cfg.RulesFile = rulesFile
			}
			if noLatency {
				cfg.Latency.Disabled = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			cli.PrintBanner(cmd.OutOrStdout())
			log := logger.New(logger.Config{
				Writer:      os.Stderr,
				Format:      cfg.Log.Format,
				Environment: cfg.Log.Environment,
				Level:       logger.ParseLevel(cfg.Log.Level),
			})
			return runServers(cmd.Context(), cfg, log)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port for the mock server")
	cmd.Flags().IntVarP(&apiPort, "api-port", "a", 8081, "Port for the control API")
	cmd.Flags().StringVar(&basePath, "base-path", "/", "Path prefix the mock endpoints are mounted under")
	cmd.Flags().StringVar(&upstream, "upstream", "", "Forward unmatched requests to this origin")
	cmd.Flags().StringVar(&seedFile, "seed", "", "YAML file replacing the built-in seed data")
	cmd.Flags().StringVar(&rulesFile, "rules-file", "", "Persist fault rules to this JSON file")
	cmd.Flags().BoolVar(&noLatency, "no-latency", false, "Answer immediately")
	return cmd
}

// servers holds the two handlers a running instance exposes.
type servers struct {
	mock    http.Handler
	control http.Handler
}

// buildServers wires the store, fault rules, request log and routes from cfg.
func buildServers(cfg *config.Config, log *slog.Logger) (*servers, error) {
	seed := state.DefaultSeed()
	if cfg.SeedFile != "" {
		s, err := state.LoadSeed(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("load seed: %w", err)
		}
		seed = s
	}
	store := state.NewStore(seed)

	ruleState, err := state.NewRuleState(cfg.Rules, cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	requests := reqlog.New(cfg.LogCapacity)

	lat := mockapi.NoLatencies()
	if !cfg.Latency.Disabled {
		lo, hi := cfg.Latency.Band()
		lat = mockapi.Latencies{
			Shop:  latency.Uniform{Min: lo, Max: hi},
			Books: latency.Fixed(cfg.Latency.Books()),
		}
	}
	routes := mockapi.NewHandlers(store).Routes(lat)

	var fallback http.Handler
	if cfg.Server.Upstream != "" {
		up, err := proxy.NewUpstream(cfg.Server.Upstream, log.With("component", "upstream"))
		if err != nil {
			return nil, fmt.Errorf("upstream: %w", err)
		}
		fallback = up
	}
	interceptor := mockapi.NewInterceptor(routes, mockapi.Options{
		BasePath: cfg.Server.BasePath,
		Rules:    ruleState,
		Log:      requests,
		Fallback: fallback,
		Logger:   log.With("component", "mock"),
	})

	docs := openapi.Document(routes, interceptor.BasePath(), openapi.DefaultInfo)
	router := mux.NewRouter()
	api.RegisterHandlers(router, api.NewApiHandler(ruleState, requests, store, docs, log.With("component", "control")))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return &servers{mock: c.Handler(interceptor), control: c.Handler(router)}, nil
}

// runServers starts both listeners and shuts them down when ctx is done.
func runServers(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	s, err := buildServers(cfg, log)
	if err != nil {
		return err
	}

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.APIPort),
		Handler:           s.control,
		ReadHeaderTimeout: 10 * time.Second,
	}
	mockServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.mock,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("control API listening", "url", fmt.Sprintf("http://localhost:%d", cfg.Server.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("control API: %w", err)
		}
	}()
	go func() {
		log.Info("mock server listening",
			"url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
			"basePath", cfg.Server.BasePath,
			"upstream", cfg.Server.Upstream,
			"latency", !cfg.Latency.Disabled,
		)
		if err := mockServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("mock server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	log.Info("shutting down servers")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("control API shutdown", "error", err)
	}
	if err := mockServer.Shutdown(shutdownCtx); err != nil {
		log.Error("mock server shutdown", "error", err)
	}
	log.Info("servers stopped")
	return runErr
}
