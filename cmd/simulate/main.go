// Command simulate races concurrent booking attempts against a running
// api-server and checks the at-most-one-winner property from the outside:
// for every contested slot exactly one request may come back 201, the rest
// must come back 409.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic-booking/internal/config"
	"github.com/clinicdesk/clinic-booking/internal/db"
)

type SimConfig struct {
	APIBaseURL  string
	SlotLimit   int
	Contenders  int
	PostgresDSN string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	metrics OperationMetrics

	mu      sync.Mutex
	winners map[uuid.UUID]int // slot id -> number of 201 responses
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: slots=%d contenders_per_slot=%d api=%s",
		cfg.SlotLimit, cfg.Contenders, cfg.APIBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	slots, err := loadOpenSlots(ctx, pgPool, cfg.SlotLimit)
	if err != nil {
		log.Fatalf("load slots: %v", err)
	}
	log.Printf("loaded %d open slots", len(slots))

	gofakeit.Seed(time.Now().UnixNano())

	sim := &Simulator{
		config:  cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		winners: make(map[uuid.UUID]int, len(slots)),
	}

	sim.Run(slots)
	sim.PrintReport(slots)
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		SlotLimit:   getInt("SIM_SLOT_LIMIT", 100),
		Contenders:  getInt("SIM_CONTENDERS", 8),
		PostgresDSN: baseCfg.PostgresDSN,
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.SlotLimit <= 0 {
		return fmt.Errorf("SIM_SLOT_LIMIT must be > 0")
	}
	if cfg.Contenders <= 1 {
		return fmt.Errorf("SIM_CONTENDERS must be > 1 to produce contention")
	}
	return nil
}

func loadOpenSlots(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT s.id
		FROM slots s
		LEFT JOIN appointments a ON a.slot_id = s.id
		WHERE a.id IS NULL
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query open slots: %w", err)
	}
	defer rows.Close()

	var slots []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		slots = append(slots, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(slots) == 0 {
		return nil, fmt.Errorf("no open slots loaded, run seed first")
	}
	return slots, nil
}

// Run fires Contenders simultaneous booking requests at every slot. A
// WaitGroup-per-slot barrier keeps the contention honest.
func (s *Simulator) Run(slots []uuid.UUID) {
	log.Printf("racing %d contenders over %d slots", s.config.Contenders, len(slots))

	var wg sync.WaitGroup
	for _, slotID := range slots {
		start := make(chan struct{})

		for i := 0; i < s.config.Contenders; i++ {
			wg.Add(1)
			go func(slotID uuid.UUID) {
				defer wg.Done()
				<-start
				s.doBooking(slotID)
			}(slotID)
		}

		close(start)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) doBooking(slotID uuid.UUID) {
	body, _ := json.Marshal(map[string]string{
		"slot_id":       slotID.String(),
		"patient_name":  gofakeit.Name(),
		"patient_phone": gofakeit.Phone(),
		"reason":        "checkup",
	})

	start := time.Now()
	resp, err := s.client.Post(
		s.config.APIBaseURL+"/appointments",
		"application/json",
		bytes.NewReader(body),
	)
	latency := time.Since(start)

	if err != nil {
		s.metrics.Record(latency, false, false)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	success := resp.StatusCode == http.StatusCreated
	conflict := resp.StatusCode == http.StatusConflict
	s.metrics.Record(latency, success, conflict)

	if success {
		s.mu.Lock()
		s.winners[slotID]++
		s.mu.Unlock()
	}
}

func (s *Simulator) PrintReport(slots []uuid.UUID) {
	avg, min, max, p50, p95 := s.metrics.Stats()

	fmt.Println()
	fmt.Println("=== booking contention report ===")
	fmt.Printf("requests: total=%d success=%d conflict=%d error=%d\n",
		atomic.LoadInt64(&s.metrics.Total),
		atomic.LoadInt64(&s.metrics.Success),
		atomic.LoadInt64(&s.metrics.Conflict),
		atomic.LoadInt64(&s.metrics.Error),
	)
	fmt.Printf("latency: avg=%s min=%s max=%s p50=%s p95=%s\n", avg, min, max, p50, p95)

	doubleBooked := 0
	unbooked := 0
	s.mu.Lock()
	for _, slotID := range slots {
		switch n := s.winners[slotID]; {
		case n > 1:
			doubleBooked++
			fmt.Printf("DOUBLE BOOKING: slot %s won %d times\n", slotID, n)
		case n == 0:
			unbooked++
		}
	}
	s.mu.Unlock()

	fmt.Printf("slots: contested=%d unbooked=%d double_booked=%d\n",
		len(slots), unbooked, doubleBooked)

	if doubleBooked > 0 {
		fmt.Println("RESULT: FAIL")
		os.Exit(1)
	}
	fmt.Println("RESULT: OK")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
