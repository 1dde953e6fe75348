package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/clock"
	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/internal/traffic"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

type Config struct {
	Port    int
	Pattern string
	// Seed enables noise. Zero serves the noise-free curve.
	Seed  int64
	Clock clock.Clock
}

// Simulator serves synthetic request traffic for the HTTP collector.
type Simulator struct {
	config     Config
	generator  *traffic.Generator
	clock      clock.Clock
	httpServer *http.Server
}

func New(cfg Config) *Simulator {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	return &Simulator{
		config:    cfg,
		generator: traffic.NewGenerator(traffic.ParsePattern(cfg.Pattern), rng),
		clock:     cfg.Clock,
	}
}

func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", cors(s.healthHandler))
	mux.HandleFunc("/traffic/current", cors(s.currentHandler))
	mux.HandleFunc("/traffic/history", cors(s.historyHandler))
	mux.HandleFunc("/pattern", cors(s.patternHandler))
	mux.HandleFunc("/spike", cors(s.spikeHandler))

	return mux
}

func (s *Simulator) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Simulator listening on %s (pattern %s)", addr, s.generator.Pattern().Name())

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()

	return nil
}

func (s *Simulator) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Simulator) Generator() *traffic.Generator {
	return s.generator
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode simulator response: %v", err)
	}
}

// parseTime accepts RFC3339 or the zone-less wire layout.
func parseTime(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(models.TimestampLayout, raw)
}

func (s *Simulator) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "traffic-simulator",
		"pattern": s.generator.Pattern().Name(),
	})
}

type currentResponse struct {
	Timestamp       time.Time `json:"timestamp"`
	CurrentRequests float64   `json:"current_requests"`
	Bytes           float64   `json:"bytes"`
}

func (s *Simulator) currentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	at, err := parseTime(r.URL.Query().Get("at"), s.clock.Now())
	if err != nil {
		http.Error(w, "invalid at parameter", http.StatusBadRequest)
		return
	}

	requests := models.Round(s.generator.Sample(at), 2)
	writeJSON(w, http.StatusOK, currentResponse{
		Timestamp:       at,
		CurrentRequests: requests,
		Bytes:           models.Round(s.generator.Bytes(requests), 2),
	})
}

const maxHistoryPoints = 10_000

func (s *Simulator) historyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	now := s.clock.Now()
	end, err := parseTime(q.Get("end"), now)
	if err != nil {
		http.Error(w, "invalid end parameter", http.StatusBadRequest)
		return
	}
	start, err := parseTime(q.Get("start"), end.Add(-time.Hour))
	if err != nil {
		http.Error(w, "invalid start parameter", http.StatusBadRequest)
		return
	}
	step := time.Minute
	if raw := q.Get("step"); raw != "" {
		if step, err = time.ParseDuration(raw); err != nil || step <= 0 {
			http.Error(w, "invalid step parameter", http.StatusBadRequest)
			return
		}
	}
	if !end.After(start) || int(end.Sub(start)/step) > maxHistoryPoints {
		http.Error(w, "invalid time range", http.StatusBadRequest)
		return
	}

	values := s.generator.Series(start, end, step)
	points := make([]models.TrafficPoint, len(values))
	for i, v := range values {
		requests := models.Round(v, 2)
		points[i] = models.TrafficPoint{
			Timestamp: start.Add(time.Duration(i) * step),
			Requests:  requests,
			Bytes:     models.Round(s.generator.Bytes(requests), 2),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  points,
		"count": len(points),
	})
}

type PatternRequest struct {
	Pattern string `json:"pattern"` // "daily", "weekly", "steady"
}

func (s *Simulator) patternHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"pattern": s.generator.Pattern().Name()})
		return
	case http.MethodPost:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pattern := traffic.ParsePattern(req.Pattern)
	s.generator.SetPattern(pattern)

	logger.Infof("Set traffic pattern %s", pattern.Name())

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "pattern set",
		"pattern": pattern.Name(),
	})
}

type SpikeRequest struct {
	Multiplier float64 `json:"multiplier"`
	Duration   string  `json:"duration"`
}

func (s *Simulator) spikeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SpikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Multiplier <= 0 {
		req.Multiplier = 2
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		duration = 5 * time.Minute
	}

	base := s.generator.Pattern()
	if surge, ok := base.(*traffic.SurgePattern); ok {
		base = surge.Base
	}
	until := s.clock.Now().Add(duration)
	s.generator.SetPattern(&traffic.SurgePattern{Base: base, Multiplier: req.Multiplier, Until: until})

	logger.Infof("Injected traffic spike x%.1f until %s", req.Multiplier, until.Format(time.RFC3339))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "spike injected",
		"multiplier": req.Multiplier,
		"duration":   duration.String(),
		"until":      until,
	})
}
