package ledger

import (
	"context"
	"time"
)

// WallClock derives a monotonic height from wall-clock seconds so dev
// runtimes work without a settlement chain behind them. One height unit is
// one second.
type WallClock struct {
	epoch time.Time
}

func NewWallClock(epoch time.Time) *WallClock {
	if epoch.IsZero() {
		epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &WallClock{epoch: epoch}
}

func (c *WallClock) CurrentHeight(_ context.Context) (int64, error) {
	return int64(time.Since(c.epoch) / time.Second), nil
}
