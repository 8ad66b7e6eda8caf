package ratecontrol

import (
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type config struct {
	RateLimits struct {
		DefaultRPM        int `yaml:"default_rpm"`
		ProviderOverrides map[string]struct {
			RPM int `yaml:"rpm"`
		} `yaml:"provider_overrides"`
	} `yaml:"rate_limits"`
	FetchPacing struct {
		MinDelayMs int `yaml:"min_delay_ms"`
		MaxDelayMs int `yaml:"max_delay_ms"`
	} `yaml:"fetch_pacing"`
}

// RateLimit caps generation calls for one provider, requests per minute.
type RateLimit struct {
	RPM int
}

// PacingBand is the bounded range for the randomized pre-fetch delay applied
// before each direct document fetch.
type PacingBand struct {
	Min time.Duration
	Max time.Duration
}

var (
	mu          sync.RWMutex
	loaded      *config
	initialized bool
)

var defaultPaths = []string{
	os.Getenv("RATE_LIMITS_CONFIG_PATH"),
	"/app/config/ratelimits.yaml",
	"./config/ratelimits.yaml",
	"../../config/ratelimits.yaml",
}

func loadLocked() {
	var cfg config
	for _, p := range defaultPaths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var tmp config
		if err := yaml.Unmarshal(data, &tmp); err != nil {
			log.Printf("WARNING: failed to unmarshal rate limit config from %s: %v", p, err)
			continue
		}
		cfg = tmp
		log.Printf("Loaded rate limit configuration from %s", p)
		break
	}
	if cfg.RateLimits.DefaultRPM == 0 && len(cfg.RateLimits.ProviderOverrides) == 0 {
		if path, ok := findUpConfig(); ok {
			if data, err := os.ReadFile(path); err == nil {
				var tmp config
				if err := yaml.Unmarshal(data, &tmp); err == nil {
					cfg = tmp
					log.Printf("Loaded rate limit configuration from %s", path)
				}
			}
		}
	}
	loaded = &cfg
	initialized = true
}

func findUpConfig() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for i := 0; i < 6; i++ {
		cand := filepath.Join(wd, "config", "ratelimits.yaml")
		if _, err := os.Stat(cand); err == nil {
			return cand, true
		}
		wd = filepath.Dir(wd)
	}
	return "", false
}

func get() *config {
	mu.RLock()
	if initialized {
		defer mu.RUnlock()
		return loaded
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		loadLocked()
	}
	return loaded
}

// LimitForProvider returns the configured request rate for a generation
// provider, falling back to built-in defaults for known providers.
func LimitForProvider(provider string) RateLimit {
	cfg := get()
	key := strings.ToLower(strings.TrimSpace(provider))
	if cfg != nil && cfg.RateLimits.ProviderOverrides != nil {
		if override, ok := cfg.RateLimits.ProviderOverrides[key]; ok {
			return RateLimit{RPM: override.RPM}
		}
	}
	if limit, ok := builtInProviderLimits[key]; ok {
		return limit
	}
	if cfg != nil && cfg.RateLimits.DefaultRPM > 0 {
		return RateLimit{RPM: cfg.RateLimits.DefaultRPM}
	}
	return RateLimit{}
}

var builtInProviderLimits = map[string]RateLimit{
	"openai":    {RPM: 30},
	"anthropic": {RPM: 20},
	"google":    {RPM: 40},
	"mistral":   {RPM: 50},
	"unknown":   {RPM: 45},
}

// CombineLimits picks the stricter of two limits, treating zero as unset.
func CombineLimits(a, b RateLimit) RateLimit {
	limit := RateLimit{RPM: minPositive(a.RPM, b.RPM)}
	if limit.RPM == 0 {
		limit.RPM = max(a.RPM, b.RPM)
	}
	return limit
}

// DelayForRequest converts a provider's request rate into the minimum spacing
// between consecutive generation calls. Capped at one minute.
func DelayForRequest(provider string) time.Duration {
	return delayForLimit(LimitForProvider(provider))
}

func delayForLimit(limit RateLimit) time.Duration {
	if limit.RPM <= 0 {
		return 0
	}
	delayMs := 60000.0 / float64(limit.RPM)
	if delayMs > 60000 {
		delayMs = 60000
	}
	return time.Duration(math.Ceil(delayMs)) * time.Millisecond
}

// FetchPacingBand returns the configured random-delay band for direct fetches.
// Defaults keep request patterns against a single origin non-bursty without
// stalling the fan-out.
func FetchPacingBand() PacingBand {
	cfg := get()
	band := PacingBand{Min: 150 * time.Millisecond, Max: 900 * time.Millisecond}
	if cfg == nil {
		return band
	}
	if cfg.FetchPacing.MinDelayMs > 0 {
		band.Min = time.Duration(cfg.FetchPacing.MinDelayMs) * time.Millisecond
	}
	if cfg.FetchPacing.MaxDelayMs > 0 {
		band.Max = time.Duration(cfg.FetchPacing.MaxDelayMs) * time.Millisecond
	}
	if band.Max < band.Min {
		band.Max = band.Min
	}
	return band
}

func minPositive(a, b int) int {
	switch {
	case a <= 0 && b <= 0:
		return 0
	case a <= 0:
		return b
	case b <= 0:
		return a
	default:
		if a < b {
			return a
		}
		return b
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Reload clears the cached configuration so the next lookup re-reads it.
func Reload() {
	mu.Lock()
	defer mu.Unlock()
	initialized = false
	loadLocked()
}
