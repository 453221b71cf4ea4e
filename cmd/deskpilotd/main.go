package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deskpilot-dev/deskpilot/internal/assistant"
	"github.com/deskpilot-dev/deskpilot/internal/audio"
	"github.com/deskpilot-dev/deskpilot/internal/gateway"
	"github.com/deskpilot-dev/deskpilot/internal/llm/keypool"
	"github.com/deskpilot-dev/deskpilot/internal/llm/provider"
	intobs "github.com/deskpilot-dev/deskpilot/internal/observability"
	"github.com/deskpilot-dev/deskpilot/internal/ocr"
	"github.com/deskpilot-dev/deskpilot/internal/orchestrator"
	"github.com/deskpilot-dev/deskpilot/internal/router"
	"github.com/deskpilot-dev/deskpilot/internal/session"
	"github.com/deskpilot-dev/deskpilot/internal/store"
	"github.com/deskpilot-dev/deskpilot/internal/transcribe"
	"github.com/deskpilot-dev/deskpilot/internal/vision"
	"github.com/deskpilot-dev/deskpilot/pkg/config"
	"github.com/deskpilot-dev/deskpilot/pkg/observability"
)

var (
	// Version information (set via ldflags)
	Version = "dev"

	configFile  = flag.String("config", getEnv("CONFIG_FILE", "config/deskpilot.yaml"), "Configuration file")
	gatewayAddr = flag.String("gateway-addr", getEnv("GATEWAY_ADDR", ""), "WebSocket gateway listen address (overrides config)")
	metricsPort = flag.Int("metrics-port", getEnvInt("METRICS_PORT", 0), "Health and metrics port (overrides config)")
)

func main() {
	flag.Parse()

	log.Printf("Starting deskpilot daemon v%s", Version)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	if *gatewayAddr != "" {
		cfg.GatewayAddr = *gatewayAddr
	}
	if *metricsPort != 0 {
		cfg.MetricsPort = *metricsPort
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config: %v", err)
	}
	log.Printf("Config: %s, Gateway: %s, Metrics Port: %d", *configFile, cfg.GatewayAddr, cfg.MetricsPort)

	observability.InitMetrics()
	if err := intobs.InitFromEnv(); err != nil {
		log.Fatalf("Observability: %v", err)
	}

	// Conversation turn store
	st, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Store: %v", err)
	}
	defer st.Close()

	// Generation: key pool, router, provider factory
	pool := keypool.New(cfg.Keys.Simple, cfg.Keys.Complex, cfg.Keys.General)
	route := router.New(cfg.Pipeline.RouterWordLimit, cfg.Models.Simple, cfg.Models.Complex)
	factory := func(apiKey string) provider.Provider {
		return provider.NewGroqProvider(apiKey, nil)
	}

	// Transcription: Groq whisper first, OpenAI fallback when configured.
	// Any Groq key works for transcription regardless of its tier.
	var sttClients []*transcribe.Client
	if key := firstKey(cfg.Keys.General, cfg.Keys.Simple, cfg.Keys.Complex); key != "" {
		sttClients = append(sttClients, transcribe.NewClient(
			"groq-whisper", key, "https://api.groq.com/openai/v1", cfg.Models.Transcription, nil))
	}
	if cfg.OpenAIKey != "" {
		sttClients = append(sttClients, transcribe.NewClient(
			"openai-whisper", cfg.OpenAIKey, "https://api.openai.com/v1", cfg.Models.TranscriptionFallback, nil))
	}
	stt := transcribe.NewService(sttClients, cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Pipeline.TranscribeTimeout.Std(), "")

	gw := gateway.NewServer()
	orch := orchestrator.New(pool, route, st, gw, factory, cfg.Pipeline.GenerationTimeout.Std())
	vis := buildVision(cfg, orch, gw, st)

	svc := assistant.New(assistant.Config{
		AudioParams: audio.Params{
			SampleRate:   cfg.Audio.SampleRate,
			Channels:     cfg.Audio.Channels,
			RMSThreshold: cfg.Audio.RMSThreshold,
			Silence:      cfg.Audio.SilenceThreshold.Std(),
			MinUtterance: cfg.Audio.MinUtterance.Std(),
			MaxBuffer:    cfg.Audio.MaxBuffer.Std(),
		},
		DuplicateWindow:    cfg.Pipeline.DuplicateWindow.Std(),
		ScreenshotCooldown: cfg.Pipeline.ScreenshotCooldown.Std(),
	}, session.NewRegistry(), stt, orch, vis, gw)
	gw.Bind(svc)

	// Health checks
	healthChecker := observability.InitHealthChecker()
	healthChecker.RegisterCheck(observability.PingCheck())
	healthChecker.RegisterCheck(observability.StoreCheck(storePing(st)))
	healthChecker.RegisterCheck(observability.ProviderCheck("provider", orch.Probe))

	obsServer := observability.NewServer(cfg.MetricsPort)
	gwServer := &http.Server{Addr: cfg.GatewayAddr, Handler: gw}

	errChan := make(chan error, 2)
	go func() {
		log.Printf("Starting observability server on :%d", cfg.MetricsPort)
		if err := obsServer.Start(); err != nil {
			errChan <- fmt.Errorf("observability server error: %w", err)
		}
	}()
	go func() {
		log.Printf("Starting gateway on %s", cfg.GatewayAddr)
		if err := gwServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("gateway error: %w", err)
		}
	}()

	// Idle session sweep
	scheduler := cron.New()
	if cfg.SessionTTL > 0 {
		_, err := scheduler.AddFunc("@every 1m", func() {
			if n := svc.SweepIdle(cfg.SessionTTL.Std()); n > 0 {
				log.Printf("Swept %d idle sessions", n)
			}
		})
		if err != nil {
			log.Fatalf("Scheduler: %v", err)
		}
	}
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Printf("Error: %v", err)
	case <-quit:
		log.Println("Shutting down deskpilot...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	<-scheduler.Stop().Done()
	if err := gwServer.Shutdown(ctx); err != nil {
		log.Printf("Gateway shutdown error: %v", err)
	}
	if err := svc.Close(); err != nil {
		log.Printf("Assistant shutdown error: %v", err)
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		log.Printf("Observability server shutdown error: %v", err)
	}
	if err := intobs.Shutdown(ctx); err != nil {
		log.Printf("Tracing shutdown error: %v", err)
	}

	log.Println("Deskpilot stopped")
}

func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		return store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildVision assembles the screenshot path: OCR chain plus any
// vision-capable providers. Returns nil when nothing is configured.
func buildVision(cfg *config.Config, orch *orchestrator.Orchestrator, sink orchestrator.Sink, st store.Store) *vision.Pipeline {
	var engine ocr.Engine
	if cfg.Pipeline.OCREnabled {
		engine = ocr.NewChain(ocr.NewSpaceEngine(cfg.OCRKey, cfg.Pipeline.OCRTimeout.Std(), nil))
	}

	var providers []provider.VisionProvider
	if cfg.OpenAIKey != "" {
		providers = append(providers, provider.NewOpenAIProvider(cfg.OpenAIKey, nil))
	}
	if cfg.GeminiKey != "" {
		gem, err := provider.NewGeminiProvider(context.Background(), cfg.GeminiKey)
		if err != nil {
			log.Printf("Gemini provider unavailable: %v", err)
		} else {
			providers = append(providers, gem)
		}
	}

	if engine == nil && len(providers) == 0 {
		log.Println("Screenshot analysis disabled: no OCR key and no vision providers")
		return nil
	}
	vis := vision.New(engine, cfg.Pipeline.OCREnabled, orch, providers, sink, st)
	vis.SetModel(cfg.Models.Vision)
	return vis
}

// storePing adapts the turn store to a health probe.
func storePing(st store.Store) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := st.History(ctx, "healthcheck")
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}
}

// firstKey returns the first non-empty credential across buckets.
func firstKey(buckets ...[]string) string {
	for _, b := range buckets {
		for _, k := range b {
			if k != "" {
				return k
			}
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
