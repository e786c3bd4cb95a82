package payments

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Gateway decides the outcome of a charge
type Gateway interface {
	Charge(ctx context.Context, paymentID, userID string, amount int64) (bool, error)
}

// RandomGateway approves a charge with probability successRate
type RandomGateway struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
}

func NewRandomGateway(successRate float64) *RandomGateway {
	return &RandomGateway{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		successRate: successRate,
	}
}

func (g *RandomGateway) Charge(_ context.Context, _, _ string, _ int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < g.successRate, nil
}

// FixedGateway returns the configured outcome for every charge
type FixedGateway struct {
	approve atomic.Bool
}

func NewFixedGateway(approve bool) *FixedGateway {
	g := &FixedGateway{}
	g.approve.Store(approve)
	return g
}

// Set changes the outcome of subsequent charges
func (g *FixedGateway) Set(approve bool) {
	g.approve.Store(approve)
}

func (g *FixedGateway) Charge(_ context.Context, _, _ string, _ int64) (bool, error) {
	return g.approve.Load(), nil
}
