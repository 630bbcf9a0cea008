package etherman

import (
	"context"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

// ChainClock reports the timestamp of the latest block. It never goes
// backwards: a failed read or a reorg to an older block returns the highest
// timestamp seen so far.
type ChainClock struct {
	etherman *Etherman
	timeout  time.Duration

	mu   sync.Mutex
	last uint64
}

func NewChainClock(etherman *Etherman) *ChainClock {
	return &ChainClock{etherman: etherman, timeout: 10 * time.Second}
}

func (c *ChainClock) Now() uint64 {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	now, err := c.etherman.LatestBlockTime(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		logger.Warnf("failed to read latest block time, using last seen: err=%v", err)
		return c.last
	}
	if now > c.last {
		c.last = now
	}
	return c.last
}
