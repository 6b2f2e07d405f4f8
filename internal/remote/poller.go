package remote

import (
	"context"
	"time"

	"github.com/nocdn/volumes/internal/bookmark"
)

const (
	defaultPollInterval = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// ListFunc fetches the current snapshot.
type ListFunc func(ctx context.Context) ([]bookmark.Item, error)

// Poll launches a goroutine that calls list at a fixed cadence and delivers
// each result on the returned channel. Consecutive failures stretch the
// delay exponentially up to maxBackoff. A receive on nudge cuts the current
// wait short. The channel is closed once ctx is done.
func Poll(ctx context.Context, list ListFunc, interval time.Duration, nudge <-chan struct{}) <-chan Update {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	out := make(chan Update)
	go func() {
		defer close(out)

		failures := 0
		for {
			items, err := list(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				failures++
				items = nil
			} else {
				failures = 0
			}

			select {
			case out <- Update{Items: items, Err: err}:
			case <-ctx.Done():
				return
			}

			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			case <-nudge:
				timer.Stop()
			}
		}
	}()
	return out
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	delay := base
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}
