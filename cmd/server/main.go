package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/vubly/vubly/internal/ai"
	"github.com/vubly/vubly/internal/cleanup"
	"github.com/vubly/vubly/internal/config"
	"github.com/vubly/vubly/internal/handlers"
	"github.com/vubly/vubly/internal/media"
	"github.com/vubly/vubly/internal/pipeline"
	"github.com/vubly/vubly/internal/session"
	"github.com/vubly/vubly/internal/storage"
	"github.com/vubly/vubly/internal/transcript"
	"github.com/vubly/vubly/internal/webhook"
	"github.com/vubly/vubly/internal/youtube"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cleanup.EnsureWorkDirExists(cfg.YtDlp.WorkDir); err != nil {
		log.Fatalf("Failed to create work directory: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Database), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	ctx := context.Background()
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Providers.TimeoutSeconds) * time.Second,
	}

	// Session store
	store, err := session.NewRedisStore(ctx, cfg.Redis.URL,
		time.Duration(cfg.Redis.TTLMinutes)*time.Minute)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Video metadata
	infoClient, err := youtube.NewInfoClient(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		log.Fatalf("Failed to initialize YouTube client: %v", err)
	}

	// Transcript cascade, ordered by reliability/latency
	sources := []transcript.Source{
		transcript.NewPageSource(httpClient),
		transcript.NewYtDlpSource(cfg.YtDlp.Path, cfg.YtDlp.WorkDir),
		transcript.NewInnertubeSource(httpClient),
		transcript.NewTimedTextSource(httpClient,
			time.Duration(cfg.Transcript.RetryDelaySecs)*time.Second),
	}
	if cfg.Transcript.BrowserFetch {
		log.Println("Headless browser caption fetch enabled")
		sources = append(sources, transcript.NewBrowserSource(httpClient))
	}
	transcripts := transcript.NewCascade(cfg.Transcript.MinChars, sources...)

	// Media cascade
	downloaders := []media.Downloader{
		media.NewCobalt(httpClient, cfg.Providers.CobaltURL),
	}
	if cfg.RapidAPIKey != "" {
		downloaders = append(downloaders, media.NewRapidAPI(httpClient,
			cfg.Providers.RapidAPIHost, cfg.RapidAPIKey,
			cfg.Providers.PollMaxAttempts,
			time.Duration(cfg.Providers.PollDelaySeconds)*time.Second))
	} else {
		log.Println("RAPIDAPI_KEY not set - skipping RapidAPI provider")
	}
	downloaders = append(downloaders,
		media.NewY2mate(httpClient, cfg.Providers.Y2mateURL),
		media.NewYtDlp(cfg.YtDlp.Path, cfg.YtDlp.WorkDir),
	)
	downloads := media.NewCascade(downloaders...)

	// Hosted AI + webhook
	speech := ai.NewOpenAIClient(httpClient, cfg.OpenAIAPIKey)
	dispatcher := webhook.NewDispatcher(httpClient, cfg.MakeWebhookURL)

	// Job history (optional - the service runs without it)
	history, err := storage.NewHistory(cfg.Storage.Database)
	if err != nil {
		log.Printf("WARNING: Job history not available: %v", err)
		history = nil
	} else {
		defer history.Close()
	}

	callbackURL := cfg.Server.BaseURL + "/makecom-callback"
	pipe := pipeline.New(store, transcripts, downloads, speech, dispatcher,
		callbackURL, cfg.Pipeline.DefaultLanguage)

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		cfg.YtDlp.WorkDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Range",
	}))

	// Initialize handlers
	processHandler := handlers.NewProcessHandler(store, infoClient, pipe)
	sessionHandler := handlers.NewSessionHandler(store)
	captionsHandler := handlers.NewCaptionsHandler(transcripts)
	callbackHandler := handlers.NewCallbackHandler(store, history)
	retranslateHandler := handlers.NewRetranslateHandler(store, pipe)
	wsHandler := handlers.NewWSHandler(store)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/process", processHandler.Handle)
	app.Post("/process-with-transcript", processHandler.HandleWithTranscript)
	app.Post("/check-captions", captionsHandler.Handle)
	app.Get("/session/:id", sessionHandler.Get)
	app.Delete("/session/:id", sessionHandler.Delete)
	app.Get("/audio/:id/:type", sessionHandler.Audio)
	app.Get("/video/:id", sessionHandler.Video)
	app.Post("/makecom-callback", callbackHandler.Handle)
	app.Post("/retranslate", retranslateHandler.Handle)

	// WebSocket status stream
	app.Get("/ws/session/:id", websocket.New(wsHandler.Handle))

	// Job history
	app.Get("/jobs", func(c *fiber.Ctx) error {
		if history == nil {
			return c.Status(503).JSON(fiber.Map{"error": "Job history not available"})
		}
		limit := 50 // Default limit
		jobs, err := history.List(limit)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(jobs)
	})

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /process                 - Submit a video for translation")
	log.Println("   POST /process-with-transcript - Submit with a client-side transcript")
	log.Println("   POST /check-captions          - Check caption availability")
	log.Println("   GET  /session/:id             - Poll job status")
	log.Println("   GET  /audio/:id/:type         - Stream original/translated audio")
	log.Println("   GET  /video/:id               - Stream video (range requests)")
	log.Println("   POST /makecom-callback        - Translation results callback")
	log.Println("   POST /retranslate             - Retranslate an existing session")
	log.Println("   GET  /ws/session/:id          - WebSocket status stream")
	log.Println("   GET  /jobs                    - Job history")
	log.Println("   GET  /health                  - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
