package mock

import (
	"context"
	"fmt"
	"time"
)

// Provider is an offline stand-in for the FrameX API: a fixed frame
// count and synthetic frame URLs, so the whole service can be exercised
// without the network. Selected by the -mock flag.
type Provider struct {
	Frames int
	// Latency simulates the provider round trip on FrameCount. Zero
	// means instant.
	Latency time.Duration
}

func NewProvider(frames int) *Provider {
	return &Provider{Frames: frames}
}

func (p *Provider) FrameCount(ctx context.Context, video string) (int, error) {
	if p.Latency > 0 {
		select {
		case <-time.After(p.Latency):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if p.Frames < 1 {
		return 0, fmt.Errorf("mock: video %q has no frames", video)
	}
	return p.Frames, nil
}

func (p *Provider) FrameURL(video string, frame int) string {
	return fmt.Sprintf("https://placehold.co/480x270?text=%s+frame+%d", video, frame)
}
