package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds global settings for the Guardian engine.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Cascade Thresholds ===
	MinTextLength            int     // Below this the pre-filter commits NONE (default: 5)
	ShortTextBound           int     // Below this a dangling phrase counts as incomplete (default: 20)
	MitigationThreshold      float64 // Misuse confidence required to clear a surface (default: 0.75)
	VectorMaliciousThreshold float64 // Cosine similarity to a malicious exemplar that commits (default: 0.75)
	VectorSafeThreshold      float64 // Cosine similarity to a safe exemplar that commits NONE (default: 0.70)
	SimilarityRatio          float64 // malicious/(safe+eps) ratio that tips the ambiguous case (default: 1.5)
	FuzzyThreshold           float64 // Min token similarity before fuzzy evidence raises confidence (default: 0.75)
	HeuristicConfidenceCap   float64 // Upper bound on heuristic-tier confidence (default: 0.9)

	// === Heuristic Tie-Break ===
	// Bucket preference when intent scores tie, most severe first.
	// The conservative default fails toward caution.
	TieBreakOrder []string // default: malicious, personal_info, educational

	// === Ensemble ===
	EngineTimeout     time.Duration      // Per remote engine (default: 5s)
	EnsembleThreshold float64            // Weighted confidence sum that flags misuse (default: 0.6)
	EngineWeights     map[string]float64 // Per-engine weight; engines not listed get 1.0
	MaxSuggestions    int                // Cap on deduplicated remediation hints (default: 3)
	RemoteEngineURLs  []string           // HTTP scoring engines (env: GUARDIAN_ENGINE_URLS, comma-separated)

	// === Mitigation Timing ===
	NotificationCooldown time.Duration // Min gap between opened notifications (default: 2s)
	AutoDismissAfter     time.Duration // Notification auto-dismiss (default: 10s)

	// === Analysis Scheduling ===
	AnalysisWorkers int // Concurrent in-flight analyses (default: 64)

	// === Curated Lists ===
	ListsPath string // Optional YAML file overriding the built-in phrase lists

	// === Activity Log Sink ===
	ActivityLogPath string // JSONL fallback sink (default: "activity_events.jsonl")
	PostgresDSN     string // When set, activity records go to Postgres (env: GUARDIAN_POSTGRES_DSN)

	// === Verdict Cache ===
	RedisAddr     string        // When set, verdicts are cached in Redis (env: GUARDIAN_REDIS_ADDR)
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration // Verdict cache TTL (default: 10m)

	// === Optional Scoring Engines ===
	HugotModelPath  string // Local ONNX classifier model dir; empty disables the engine
	OnnxLibraryPath string // libonnxruntime.so path for the local classifier
	EmbedderURL     string // Embedding endpoint for the exemplar engine; empty disables it
	EmbedderModel   string // Embedding model name (default: "nomic-embed-text")
}

// NewDefaultConfig creates a Config with the engine's stock tuning.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		MinTextLength:            GetEnvInt("GUARDIAN_MIN_TEXT_LEN", 5),
		ShortTextBound:           GetEnvInt("GUARDIAN_SHORT_TEXT_BOUND", 20),
		MitigationThreshold:      GetEnvFloat("GUARDIAN_MITIGATION_THRESHOLD", 0.75),
		VectorMaliciousThreshold: GetEnvFloat("GUARDIAN_VECTOR_MALICIOUS_THRESHOLD", 0.75),
		VectorSafeThreshold:      GetEnvFloat("GUARDIAN_VECTOR_SAFE_THRESHOLD", 0.70),
		SimilarityRatio:          GetEnvFloat("GUARDIAN_SIMILARITY_RATIO", 1.5),
		FuzzyThreshold:           GetEnvFloat("GUARDIAN_FUZZY_THRESHOLD", 0.75),
		HeuristicConfidenceCap:   GetEnvFloat("GUARDIAN_HEURISTIC_CAP", 0.9),

		TieBreakOrder: GetEnvSlice("GUARDIAN_TIE_BREAK", []string{"malicious", "personal_info", "educational"}),

		EngineTimeout:     time.Duration(GetEnvInt("GUARDIAN_ENGINE_TIMEOUT_MS", 5000)) * time.Millisecond,
		EnsembleThreshold: GetEnvFloat("GUARDIAN_ENSEMBLE_THRESHOLD", 0.6),
		EngineWeights:     map[string]float64{},
		MaxSuggestions:    GetEnvInt("GUARDIAN_MAX_SUGGESTIONS", 3),
		RemoteEngineURLs:  GetEnvSlice("GUARDIAN_ENGINE_URLS", nil),

		NotificationCooldown: time.Duration(GetEnvInt("GUARDIAN_COOLDOWN_MS", 2000)) * time.Millisecond,
		AutoDismissAfter:     time.Duration(GetEnvInt("GUARDIAN_AUTO_DISMISS_MS", 10000)) * time.Millisecond,

		AnalysisWorkers: clampInt(GetEnvInt("GUARDIAN_ANALYSIS_WORKERS", 64), 1, 4096),

		ListsPath: GetEnv("GUARDIAN_LISTS_PATH", ""),

		ActivityLogPath: GetEnv("GUARDIAN_ACTIVITY_LOG", "activity_events.jsonl"),
		PostgresDSN:     GetEnv("GUARDIAN_POSTGRES_DSN", ""),

		RedisAddr:     GetEnv("GUARDIAN_REDIS_ADDR", ""),
		RedisPassword: GetEnv("GUARDIAN_REDIS_PASSWORD", ""),
		RedisDB:       GetEnvInt("GUARDIAN_REDIS_DB", 0),
		CacheTTL:      time.Duration(GetEnvInt("GUARDIAN_CACHE_TTL_SECONDS", 600)) * time.Second,

		HugotModelPath:  GetEnv("GUARDIAN_HUGOT_MODEL_PATH", ""),
		OnnxLibraryPath: GetEnv("GUARDIAN_ONNX_LIB_PATH", defaultOnnxPath()),
		EmbedderURL:     GetEnv("GUARDIAN_EMBEDDER_URL", ""),
		EmbedderModel:   GetEnv("GUARDIAN_EMBEDDER_MODEL", "nomic-embed-text"),
	}
}

// NewHighSecurityConfig creates a Config for maximum caution
// (mitigates at lower confidence, may produce more false positives).
func NewHighSecurityConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.MitigationThreshold = 0.60
	cfg.VectorMaliciousThreshold = 0.65
	cfg.SimilarityRatio = 1.2
	cfg.EnsembleThreshold = 0.5
	return cfg
}

// NewHighUsabilityConfig creates a Config that minimizes false positives.
func NewHighUsabilityConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.MitigationThreshold = 0.85
	cfg.VectorMaliciousThreshold = 0.80
	cfg.SimilarityRatio = 2.0
	cfg.EnsembleThreshold = 0.7
	return cfg
}

func defaultOnnxPath() string {
	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.dylib",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Validate checks that all configured values are internally consistent.
func (c *Config) Validate() error {
	var problems []string

	inUnit := func(name string, v float64) {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s must be in [0,1], got %v", name, v))
		}
	}
	inUnit("MitigationThreshold", c.MitigationThreshold)
	inUnit("VectorMaliciousThreshold", c.VectorMaliciousThreshold)
	inUnit("VectorSafeThreshold", c.VectorSafeThreshold)
	inUnit("FuzzyThreshold", c.FuzzyThreshold)
	inUnit("HeuristicConfidenceCap", c.HeuristicConfidenceCap)
	inUnit("EnsembleThreshold", c.EnsembleThreshold)

	if c.MinTextLength < 1 {
		problems = append(problems, "MinTextLength must be >= 1")
	}
	if c.ShortTextBound < c.MinTextLength {
		problems = append(problems, "ShortTextBound must be >= MinTextLength")
	}
	if c.SimilarityRatio <= 0 {
		problems = append(problems, "SimilarityRatio must be > 0")
	}
	if c.EngineTimeout <= 0 {
		problems = append(problems, "EngineTimeout must be > 0")
	}
	if c.NotificationCooldown < 0 || c.AutoDismissAfter <= 0 {
		problems = append(problems, "notification timings must be positive")
	}
	if c.MaxSuggestions < 0 {
		problems = append(problems, "MaxSuggestions must be >= 0")
	}
	for name, w := range c.EngineWeights {
		if w < 0 {
			problems = append(problems, fmt.Sprintf("EngineWeights[%s] must be >= 0", name))
		}
	}
	if len(c.TieBreakOrder) == 0 {
		problems = append(problems, "TieBreakOrder must not be empty")
	}
	for _, b := range c.TieBreakOrder {
		switch b {
		case "malicious", "personal_info", "educational":
		default:
			problems = append(problems, fmt.Sprintf("unknown tie-break bucket %q", b))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before wiring the engine.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// Helper functions for environment variable parsing
// These are exported for use by other packages (e.g., pkg/detect)

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
