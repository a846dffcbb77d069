// Package main implements a load generator for exercising a governed access
// context with configurable acquisition rates and read/write mixes.
package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dbgovernor/db-access-governor-go/governance"
	"github.com/dbgovernor/db-access-governor-go/governance/sqlengine"
)

const (
	acquireTimeout = 500 * time.Millisecond
	simulatedWork  = 2 * time.Millisecond
)

// LoadGenerator drives a configurable stream of read and write acquisitions
// against one access context and reports admission statistics.
type LoadGenerator struct {
	accessContext *sqlengine.AccessContext
	config        Config

	ticker   *time.Ticker
	stopChan chan struct{}
	wg       sync.WaitGroup

	requestCount atomic.Int64
	timeoutCount atomic.Int64
	errorCount   atomic.Int64
	startTime    time.Time
}

// NewLoadGenerator creates a load generator over the given access context.
func NewLoadGenerator(accessContext *sqlengine.AccessContext, config Config) *LoadGenerator {
	return &LoadGenerator{
		accessContext: accessContext,
		config:        config,
		stopChan:      make(chan struct{}),
	}
}

// Start begins issuing acquisitions at the configured rate until Stop is
// called or the context is canceled.
func (g *LoadGenerator) Start(ctx context.Context) {
	g.startTime = time.Now()
	g.ticker = time.NewTicker(time.Second / time.Duration(g.config.Rate))

	g.wg.Add(1)

	go func() {
		defer g.wg.Done()

		for {
			select {
			case <-g.stopChan:
				return
			case <-ctx.Done():
				return
			case <-g.ticker.C:
				g.wg.Add(1)

				go func() {
					defer g.wg.Done()
					g.issueOne(ctx)
				}()
			}
		}
	}()

	g.wg.Add(1)

	go func() {
		defer g.wg.Done()
		g.reportLoop(ctx)
	}()
}

// Stop halts the generator and waits for in-flight acquisitions to finish.
func (g *LoadGenerator) Stop() {
	if g.ticker != nil {
		g.ticker.Stop()
	}

	close(g.stopChan)
	g.wg.Wait()
}

func (g *LoadGenerator) issueOne(ctx context.Context) {
	g.requestCount.Add(1)

	write := rand.Intn(100) < g.config.WriteShare //nolint:gosec // statistical mix, not security

	var permit governance.Permit
	var err error

	if write {
		permit, err = g.accessContext.AcquireWrite(ctx, acquireTimeout)
	} else {
		permit, err = g.accessContext.AcquireRead(ctx, acquireTimeout)
	}

	if err != nil {
		if errors.Is(err, governance.ErrPoolSaturated) || errors.Is(err, governance.ErrLockContention) {
			g.timeoutCount.Add(1)
		} else if !errors.Is(err, context.Canceled) {
			g.errorCount.Add(1)
		}

		return
	}

	defer permit.Release()

	// Hold the permit for a moment so concurrent load actually contends.
	time.Sleep(simulatedWork)

	g.accessContext.Metrics().RecordCommandDuration(simulatedWork)

	if write {
		g.accessContext.Metrics().RecordRowsAffected(1)
	} else {
		g.accessContext.Metrics().RecordRowsRead(int64(rand.Intn(10) + 1)) //nolint:gosec // simulated row count
	}
}

func (g *LoadGenerator) reportLoop(ctx context.Context) {
	interval := time.Duration(g.config.ReportIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.printSnapshots()
		}
	}
}

func (g *LoadGenerator) printSnapshots() {
	reader := g.accessContext.PoolSnapshot(governance.ReaderPool)
	writer := g.accessContext.PoolSnapshot(governance.WriterPool)
	contention := g.accessContext.ContentionSnapshot()

	readerJSON, _ := reader.JSON()
	writerJSON, _ := writer.JSON()
	contentionJSON, _ := contention.JSON()

	log.Printf("reader pool: %s", readerJSON)
	log.Printf("writer pool: %s", writerJSON)
	log.Printf("contention lock: %s", contentionJSON)
}

// PrintReport prints the final statistics after the generator stopped.
func (g *LoadGenerator) PrintReport() {
	elapsed := time.Since(g.startTime)
	requests := g.requestCount.Load()

	metrics := g.accessContext.MetricsSnapshot()

	log.Printf("=== Load Generator Report ===")
	log.Printf("Duration:        %s", elapsed.Round(time.Second))
	log.Printf("Requests:        %d (%.1f/s)", requests, float64(requests)/elapsed.Seconds())
	log.Printf("Timeouts:        %d", g.timeoutCount.Load())
	log.Printf("Errors:          %d", g.errorCount.Load())
	log.Printf("Commands:        %d (p95 %s)", metrics.CommandsExecuted, metrics.CommandDurationP95)
	log.Printf("Acquire waits:   %d (total %s)", metrics.AcquireWaitCount, metrics.AcquireWaitTotal.Round(time.Millisecond))
}
