// Command authcore-loadtest drives the engine's hot paths against Redis
// (or an embedded miniredis) and prints latency percentiles per phase.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/ratelimit"
	"github.com/MrEthical07/authcore/userstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type userState struct {
	email   string
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		users       = flag.Int("users", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		revoke      = flag.Bool("revoke", false, "enable refresh-token denylisting on rotation")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	client, cleanup := openRedis(*redisAddr)
	defer cleanup()

	cfg := authcore.DefaultConfig()
	cfg.JWT.Secret = "loadtest-secret-0123456789abcdef"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.OTP.IssueLimit = 0
	cfg.Security.RevokeRotatedRefresh = *revoke

	sink := &codeSink{codes: make(map[string]string)}
	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(memory.New()).
		WithCodeSender(sink).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := seed(ctx, engine, sink, *users)

	codes := otp.New(client, otp.Config{TTL: 10 * time.Minute, MaxAttempts: 5, KeyPrefix: "lt"})
	otpStats := runPhase(*ops, *concurrency, func(_ *rand.Rand, i int) error {
		email := fmt.Sprintf("otp%d@loadtest.local", i)
		code, err := codes.Issue(ctx, otp.PurposeReset, email)
		if err != nil {
			return err
		}
		return codes.Verify(ctx, otp.PurposeReset, email, code)
	})

	validateStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		token := state.access
		state.mu.Unlock()
		_, err := engine.ValidateAccess(ctx, token)
		return err
	})

	refreshStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()
		pair, err := engine.Refresh(ctx, state.refresh)
		if err != nil {
			return err
		}
		state.access, state.refresh = pair.AccessToken, pair.RefreshToken
		return nil
	})

	limiter, err := ratelimit.New(cfg.RateLimit.Limiter())
	if err != nil {
		fmt.Fprintf(os.Stderr, "limiter init failed: %v\n", err)
		os.Exit(1)
	}
	var denied int64
	limitStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		if !limiter.Allow(fmt.Sprintf("ip:10.0.%d.%d", r.Intn(256), r.Intn(256))) {
			atomic.AddInt64(&denied, 1)
		}
		return nil
	})

	fmt.Println("---- results ----")
	printStats("otp issue+verify", otpStats)
	printStats("validate access", validateStats)
	printStats("refresh rotate", refreshStats)
	printStats("rate limit", limitStats)
	fmt.Printf("rate limit denied=%d buckets=%d\n", denied, limiter.Len())
}

func openRedis(addr string) (redis.UniversalClient, func()) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }
	}

	mr, err := miniredis.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
		os.Exit(1)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}
}

// seed registers, verifies and logs in n accounts through the engine.
func seed(ctx context.Context, engine *authcore.Engine, sink *codeSink, n int) []userState {
	states := make([]userState, n)
	fmt.Printf("seeding %d accounts...\n", n)
	start := time.Now()
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user%d@loadtest.local", i)
		if _, err := engine.Register(ctx, authcore.RegisterRequest{
			Email:       email,
			Password:    "loadtest-password",
			DisplayName: fmt.Sprintf("user %d", i),
		}); err != nil {
			fail("register", err)
		}
		code, ok := sink.take(email)
		if !ok {
			fail("register", fmt.Errorf("no code captured for %s", email))
		}
		if _, err := engine.VerifyRegistration(ctx, email, code); err != nil {
			fail("verify", err)
		}
		res, err := engine.Login(ctx, email, "loadtest-password")
		if err != nil {
			fail("login", err)
		}
		states[i] = userState{email: email, access: res.AccessToken, refresh: res.RefreshToken}
	}
	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return states
}

// codeSink keeps the last registration code per email so seeding can verify
// accounts without a mailbox.
type codeSink struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *codeSink) SendOTP(_ context.Context, msg authcore.OTPMessage) error {
	s.mu.Lock()
	s.codes[msg.Email] = msg.Code
	s.mu.Unlock()
	return nil
}

func (s *codeSink) take(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[email]
	delete(s.codes, email)
	return code, ok
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", step, err)
	os.Exit(1)
}

// runPhase executes ops calls of fn spread over concurrency workers.
func runPhase(ops, concurrency int, fn func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				t0 := time.Now()
				if err := fn(r, i); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-18s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
