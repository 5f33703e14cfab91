package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	agentauth "github.com/MrEthical07/agentauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const magicCode = "654321"

func main() {
	var (
		users       = flag.Int("users", 50000, "number of distinct users to drive")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (begin + continue)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "aaf", "flow record key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := agentauth.DefaultConfig()
	cfg.Flow.TTL = 5 * time.Minute
	cfg.Storage.RedisPrefix = *prefix

	auth, err := agentauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithTokenClient(&loadTokenClient{}).
		WithHandlers(agentauth.AuthHandler{
			Name:           "load",
			ConnectionName: "load-connection",
		}).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer auth.Close()

	beginStats := runPhase(ctx, "begin", *users, *ops, *concurrency, func(ctx context.Context, user int) error {
		_, err := auth.BeginOrContinueFlow(ctx, turnFor(user, "sign me in"), "load")
		return err
	})
	continueStats := runPhase(ctx, "continue", *users, *ops, *concurrency, func(ctx context.Context, user int) error {
		_, err := auth.BeginOrContinueFlow(ctx, turnFor(user, magicCode), "load")
		return err
	})

	fmt.Println("---- results ----")
	printStats("begin", beginStats)
	printStats("continue", continueStats)

	snap := auth.MetricsSnapshot()
	fmt.Println("---- metrics ----")
	fmt.Printf("flow_begin=%d cached_hits=%d completions=%d failures=%d\n",
		snap.Counters[agentauth.MetricFlowBegin],
		snap.Counters[agentauth.MetricCachedTokenHit],
		snap.Counters[agentauth.MetricFlowComplete],
		snap.Counters[agentauth.MetricFlowFailure],
	)
	if buckets := snap.Histograms[agentauth.MetricContinueLatency]; len(buckets) > 0 {
		fmt.Printf("continue_latency_buckets=%v\n", buckets)
	}
}

func runPhase(ctx context.Context, name string, users, ops, concurrency int, op func(ctx context.Context, user int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	fmt.Printf("running %s phase (%d ops)...\n", name, ops)
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(ctx, i%users)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func turnFor(user int, text string) *agentauth.TurnContext {
	return &agentauth.TurnContext{
		Activity: &agentauth.Activity{
			Type:         agentauth.ActivityTypeMessage,
			ID:           fmt.Sprintf("act-%d", user),
			ChannelID:    "loadtest",
			Text:         text,
			From:         &agentauth.ChannelAccount{ID: fmt.Sprintf("user-%d", user)},
			Conversation: &agentauth.ConversationAccount{ID: fmt.Sprintf("conv-%d", user)},
			ServiceURL:   "https://loadtest.local",
		},
		Identity: &agentauth.ClaimsIdentity{AppID: "loadtest-app"},
	}
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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

// loadTokenClient is an in-process provider stub: no cached tokens, every
// well-formed magic code equal to the fixed one succeeds.
type loadTokenClient struct{}

func (c *loadTokenClient) GetToken(_ context.Context, userID, connectionName, _ string, code string) (*agentauth.TokenResponse, error) {
	if code == "" {
		return nil, nil
	}
	if code != magicCode {
		return nil, nil
	}
	return &agentauth.TokenResponse{
		ConnectionName: connectionName,
		Token:          "token-" + userID,
	}, nil
}

func (c *loadTokenClient) ExchangeToken(_ context.Context, userID, connectionName, _ string, _ agentauth.TokenExchangeRequest) (*agentauth.TokenResponse, error) {
	return &agentauth.TokenResponse{ConnectionName: connectionName, Token: "sso-" + userID}, nil
}

func (c *loadTokenClient) SignOut(context.Context, string, string, string) error {
	return nil
}

func (c *loadTokenClient) GetSignInResource(_ context.Context, state string) (*agentauth.SignInResource, error) {
	return &agentauth.SignInResource{
		SignInLink: "https://signin.loadtest.local/start?state=" + state,
	}, nil
}
