package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/satyamahesh03/misuseguard/pkg/activity"
	"github.com/satyamahesh03/misuseguard/pkg/config"
	"github.com/satyamahesh03/misuseguard/pkg/detect"
	"github.com/satyamahesh03/misuseguard/pkg/guard"
	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

const Version = "0.1.0"

// Engine bundles the cascade, the mitigation guard and their optional
// collaborators. Every optional component degrades gracefully: a
// missing model, cache or database never prevents startup.
type Engine struct {
	cfg      *config.Config
	cascade  *detect.Cascade
	guard    *guard.Guard
	notifier *guard.ChannelNotifier
	sink     activity.Sink
	hugot    *detect.HugotEngine
	exemplar *detect.ExemplarEngine
}

func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	cfg.MustValidate()

	lists, err := config.LoadLists(cfg.ListsPath)
	if err != nil {
		log.Printf("[WARN] lists file %s unusable, using built-ins: %v", cfg.ListsPath, err)
		lists = patterns.DefaultLists()
	}

	e := &Engine{
		cfg:     cfg,
		cascade: detect.NewCascade(detect.NewSnapshot(cfg, lists)),
	}
	e.cascade.Stats = detect.NewStats()

	// Verdict cache (Redis) - optional
	if cfg.RedisAddr != "" {
		cache, err := detect.NewVerdictCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			log.Printf("○ Verdict cache disabled (redis unreachable: %v)", err)
		} else {
			e.cascade.Cache = cache
			log.Println("✓ Verdict cache enabled (redis)")
		}
	} else {
		log.Println("○ Verdict cache disabled (no redis address)")
	}

	// Scoring engines for the ensemble - all optional
	var engines []detect.Engine

	if cfg.HugotModelPath != "" {
		hugotEngine, err := detect.NewHugotEngine(cfg.HugotModelPath, cfg.OnnxLibraryPath)
		if err != nil {
			log.Printf("○ Local ML engine disabled (init failed: %v)", err)
		} else {
			e.hugot = hugotEngine
			engines = append(engines, hugotEngine)
			log.Println("✓ Local ML engine enabled (hugot/ONNX)")
		}
	} else {
		log.Println("○ Local ML engine disabled (no model path)")
	}

	if cfg.EmbedderURL != "" {
		exemplar, err := detect.NewExemplarEngine(cfg.EmbedderURL, cfg.EmbedderModel)
		if err != nil {
			log.Printf("○ Exemplar engine disabled (init failed: %v)", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			if err := exemplar.Seed(ctx); err != nil {
				log.Printf("○ Exemplar engine disabled (seeding failed: %v)", err)
			} else {
				e.exemplar = exemplar
				engines = append(engines, exemplar)
				log.Println("✓ Exemplar engine enabled (chromem-go + embeddings)")
			}
			cancel()
		}
	} else {
		log.Println("○ Exemplar engine disabled (no embedder URL)")
	}

	apiKey := config.GetEnv("GUARDIAN_ENGINE_API_KEY", "")
	for i, url := range cfg.RemoteEngineURLs {
		name := fmt.Sprintf("remote-%d", i+1)
		engines = append(engines, detect.NewHTTPEngine(name, url, apiKey))
		log.Printf("✓ Remote engine enabled (%s: %s)", name, url)
	}

	if len(engines) > 0 {
		e.cascade.Ensemble = detect.NewEnsemble(engines, cfg.EngineWeights,
			cfg.EngineTimeout, cfg.EnsembleThreshold, cfg.MaxSuggestions)
	}

	// Activity sink: Postgres when configured, JSONL file otherwise,
	// memory as the last resort.
	e.sink = newSink(cfg)
	log.Printf("[STARTUP] activity sink: %s", e.sink.Name())

	e.notifier = guard.NewChannelNotifier()
	e.guard = guard.New(cfg, e.cascade, guard.LogActuator{}, e.notifier, e.sink)
	return e
}

func newSink(cfg *config.Config) activity.Sink {
	if cfg.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sink, err := activity.NewPostgresSink(ctx, cfg.PostgresDSN)
		if err == nil {
			log.Println("✓ Activity sink: postgres")
			return sink
		}
		log.Printf("○ Postgres sink unavailable, falling back to file: %v", err)
	}
	if cfg.ActivityLogPath != "" {
		sink, err := activity.NewFileSink(cfg.ActivityLogPath)
		if err == nil {
			return sink
		}
		log.Printf("○ File sink unavailable, falling back to memory: %v", err)
	}
	return activity.NewMemorySink()
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		port := "3000"
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "scan":
		if len(os.Args) < 3 {
			fmt.Println("Usage: guardian scan <text>")
			os.Exit(1)
		}
		runCLIScan(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("Guardian v%s\n", Version)
		fmt.Println("Real-time misuse detection and mitigation engine")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Guardian v%s - Real-time misuse detection and mitigation\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  guardian serve [port]   Start HTTP server (default: 3000)")
	fmt.Println("  guardian scan <text>    Classify text and print the verdict")
	fmt.Println("  guardian version        Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  guardian serve 8080")
	fmt.Println("  guardian scan \"how to make a bomb\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  GUARDIAN_LISTS_PATH        YAML file extending the curated phrase lists")
	fmt.Println("  GUARDIAN_REDIS_ADDR        Redis address for the verdict cache")
	fmt.Println("  GUARDIAN_POSTGRES_DSN      Postgres DSN for the activity log")
	fmt.Println("  GUARDIAN_HUGOT_MODEL_PATH  ONNX model directory for the local ML engine")
	fmt.Println("  GUARDIAN_EMBEDDER_URL      Embedding endpoint for the exemplar engine")
	fmt.Println("  GUARDIAN_ENGINE_URLS       Comma-separated remote scoring engine URLs")
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runHTTPServer(port string) {
	engine := NewEngine(config.NewDefaultConfig())

	app := fiber.New(fiber.Config{
		AppName: "Guardian",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	// One-shot classification, no state machine involvement.
	app.Post("/v1/analyze", func(c fiber.Ctx) error {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Text == "" {
			return c.Status(400).JSON(fiber.Map{"error": "text field is required"})
		}
		return c.JSON(engine.cascade.ClassifyContext(c.Context(), req.Text))
	})

	// Text-change events from platform adapters. Analysis runs
	// asynchronously; the response reports the surface's phase at
	// intake time.
	app.Post("/v1/events", func(c fiber.Ctx) error {
		var req struct {
			App   string `json:"app"`
			Field string `json:"field"`
			Text  string `json:"text"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		ev := guard.Event{
			Surface:    guard.SurfaceKey{App: req.App, Field: req.Field},
			Text:       req.Text,
			ObservedAt: time.Now().UTC(),
		}
		if err := engine.guard.HandleEvent(ev); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(202).JSON(fiber.Map{
			"phase": engine.guard.Phase(ev.Surface),
		})
	})

	// Open notifications, polled by the notification surface.
	app.Get("/v1/notifications", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"notifications": engine.notifier.Pending()})
	})

	app.Post("/v1/notifications/:id/undo", func(c fiber.Ctx) error {
		if !engine.notifier.Resolve(c.Params("id"), guard.OutcomeUndoRequested) {
			return c.Status(404).JSON(fiber.Map{"error": "no open notification with that id"})
		}
		return c.JSON(fiber.Map{"status": "undo requested"})
	})

	app.Post("/v1/notifications/:id/dismiss", func(c fiber.Ctx) error {
		if !engine.notifier.Resolve(c.Params("id"), guard.OutcomeDismissed) {
			return c.Status(404).JSON(fiber.Map{"error": "no open notification with that id"})
		}
		return c.JSON(fiber.Map{"status": "dismissed"})
	})

	// Feedback learning: installs a new cascade snapshot wholesale.
	app.Post("/v1/feedback", func(c fiber.Ctx) error {
		var req struct {
			Text string `json:"text"`
			Safe bool   `json:"safe"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Text == "" {
			return c.Status(400).JSON(fiber.Map{"error": "text field is required"})
		}
		engine.cascade.ApplyFeedback(req.Text, req.Safe)
		return c.JSON(fiber.Map{
			"status":   "learned",
			"snapshot": engine.cascade.Snapshot().ID,
		})
	})

	// Hot reload of the curated lists file. Builds a fresh snapshot
	// and swaps it in; in-flight classifications finish on the old one.
	app.Post("/v1/lists/reload", func(c fiber.Ctx) error {
		lists, err := config.LoadLists(engine.cfg.ListsPath)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		engine.cascade.Swap(detect.NewSnapshot(engine.cfg, lists))
		return c.JSON(fiber.Map{
			"status":   "reloaded",
			"snapshot": engine.cascade.Snapshot().ID,
		})
	})

	app.Get("/v1/stats", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"classification": engine.cascade.Stats.Snapshot(),
			"analysis":       engine.guard.AnalysisStats(),
		})
	})

	app.Get("/v1/activity", func(c fiber.Ctx) error {
		entries, err := engine.sink.Recent(c.Context(), 50)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"entries": entries})
	})

	log.Printf("Guardian HTTP server starting on :%s", port)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health                        - Health check")
	log.Printf("  POST /v1/analyze                    - One-shot classification")
	log.Printf("  POST /v1/events                     - Surface text-change intake")
	log.Printf("  GET  /v1/notifications              - Open notifications")
	log.Printf("  POST /v1/notifications/:id/undo     - Request undo")
	log.Printf("  POST /v1/notifications/:id/dismiss  - Dismiss notification")
	log.Printf("  POST /v1/feedback                   - Feedback learning")
	log.Printf("  POST /v1/lists/reload               - Reload curated lists file")
	log.Printf("  GET  /v1/stats                      - Classification counters")
	log.Printf("  GET  /v1/activity                   - Recent activity entries")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}

// ============================================================================
// CLI Mode
// ============================================================================

func runCLIScan(text string) {
	engine := NewEngine(config.NewDefaultConfig())

	v := engine.cascade.ClassifyContext(context.Background(), text)

	output, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(output))
}
