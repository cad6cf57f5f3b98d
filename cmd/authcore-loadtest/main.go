// Command authcore-loadtest measures login, lockout and token verification
// throughput against a Redis-backed engine.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/docstore/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

const loadPassword = "L0ad!Test"

type options struct {
	users       int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

func main() {
	var opt options
	pflag.IntVar(&opt.users, "users", 200, "number of accounts to seed")
	pflag.IntVar(&opt.concurrency, "concurrency", 64, "number of concurrent workers")
	pflag.IntVar(&opt.ops, "ops", 5000, "operations per phase")
	pflag.StringVar(&opt.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	pflag.StringVar(&opt.prefix, "prefix", "loadtest", "document key prefix")
	pflag.Parse()

	if opt.users <= 0 || opt.concurrency <= 0 || opt.ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}
	if err := run(context.Background(), opt); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opt options) error {
	client, cleanup, err := connect(opt.redisAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(strings.Repeat("l", 32))
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Lockout.MaxAttempts = 1 << 20

	engine, err := authcore.New().
		WithConfig(cfg).
		WithStore(redisstore.New(client, opt.prefix)).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	emails := make([]string, opt.users)
	tokens := make([]string, opt.users)
	fmt.Printf("seeding %d accounts...\n", opt.users)
	startSeed := time.Now()
	for i := range emails {
		emails[i] = fmt.Sprintf("load-%d@example.com", i)
		res := engine.Register(ctx, authcore.RegisterRequest{Email: emails[i], Password: loadPassword})
		if !res.Success {
			return fmt.Errorf("seed %s: %s", emails[i], res.Message)
		}
		tokens[i] = res.Token
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(opt.ops, opt.concurrency, 7919, func(r *rand.Rand) bool {
		_, err := engine.Authenticate(ctx, tokens[r.Intn(len(tokens))])
		return err == nil
	})
	loginStats := runPhase(opt.ops, opt.concurrency, 6151, func(r *rand.Rand) bool {
		email := emails[r.Intn(len(emails))]
		res := engine.Login(originContext(ctx, r), authcore.LoginRequest{Email: email, Password: loadPassword})
		return res.Success
	})
	failStats := runPhase(opt.ops, opt.concurrency, 4099, func(r *rand.Rand) bool {
		email := emails[r.Intn(len(emails))]
		res := engine.Login(originContext(ctx, r), authcore.LoginRequest{Email: email, Password: "Wr0ng!Pass"})
		return res.Status == 401
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("login", loginStats)
	printStats("login-failure", failStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("lockout fail-open=%d audit dropped=%d\n",
		snap.Counters[authcore.MetricLockoutFailOpen], engine.AuditDropped())
	return nil
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// originContext spreads load over 16 origins so attempt records contend
// realistically.
func originContext(ctx context.Context, r *rand.Rand) context.Context {
	return authcore.WithClientIP(ctx, fmt.Sprintf("10.0.0.%d", r.Intn(16)))
}

// runPhase runs op ops times across concurrency workers. op reports success.
func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) bool) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				ok := op(r)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
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
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
