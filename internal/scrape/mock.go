package scrape

import (
	"context"
	"fmt"
	"sync/atomic"
)

const MockScraperName = "mock"

// MockScraper is a Scraper for testing.
type MockScraper struct {
	// Configurable behavior
	Videos    []RawVideo
	Err       error
	FailAfter int // with Err set, succeed for the first N calls (0 = fail immediately)

	// State
	accountCalls atomic.Int64
	videoCalls   atomic.Int64
}

// NewMockScraper creates a mock with no videos configured.
func NewMockScraper() *MockScraper {
	return &MockScraper{}
}

func (m *MockScraper) Name() string {
	return MockScraperName
}

// AccountCalls returns how many times FetchAccount was invoked.
func (m *MockScraper) AccountCalls() int64 {
	return m.accountCalls.Load()
}

// VideoCalls returns how many times FetchVideo was invoked.
func (m *MockScraper) VideoCalls() int64 {
	return m.videoCalls.Load()
}

func (m *MockScraper) FetchAccount(ctx context.Context, req AccountRequest) ([]RawVideo, error) {
	calls := m.accountCalls.Add(1)
	if err := m.maybeFail(calls); err != nil {
		return nil, err
	}

	out := make([]RawVideo, 0, len(m.Videos))
	for _, v := range m.Videos {
		if req.Strategy == StrategyDiscoveryOnly && v.MetricsOnly {
			continue
		}
		if req.Strategy == StrategyRefreshOnly {
			v.MetricsOnly = true
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *MockScraper) FetchVideo(ctx context.Context, videoURL string) (*RawVideo, error) {
	calls := m.videoCalls.Add(1)
	if err := m.maybeFail(calls); err != nil {
		return nil, err
	}

	for _, v := range m.Videos {
		if v.URL == videoURL {
			out := v
			return &out, nil
		}
	}
	return nil, &ProviderError{Provider: MockScraperName, Err: fmt.Errorf("video not found: %s", videoURL)}
}

func (m *MockScraper) maybeFail(calls int64) error {
	if m.Err != nil && (m.FailAfter == 0 || calls > int64(m.FailAfter)) {
		return &ProviderError{Provider: MockScraperName, Err: m.Err}
	}
	return nil
}
