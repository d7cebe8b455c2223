// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package orientation

import (
	"context"
	"math"
	"time"
)

type mockSource struct {
	start    time.Time
	interval time.Duration
	now      func() time.Time
}

// NewMockSource creates a mock orientation source that sweeps the heading
// slowly around the dial with a little wobble, one sample per interval.
func NewMockSource(interval time.Duration) Source {
	return &mockSource{start: time.Now(), interval: interval, now: time.Now}
}

func (m *mockSource) Next(ctx context.Context) (Sample, error) {
	if m.interval > 0 {
		select {
		case <-ctx.Done():
			return Sample{}, ctx.Err()
		case <-time.After(m.interval):
		}
	}

	t := m.now()
	elapsed := t.Sub(m.start).Seconds()

	return Sample{
		HeadingDegrees: math.Mod(elapsed*30+5*math.Sin(elapsed*3), 360),
		TimestampMs:    t.UnixMilli(),
	}, nil
}
