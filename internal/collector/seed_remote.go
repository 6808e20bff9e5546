package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// IsRemoteSeed reports whether location is an http(s) URL.
func IsRemoteSeed(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// SeedFetcher downloads seed documents published over HTTP.
type SeedFetcher struct {
	client *resty.Client
}

func NewSeedFetcher(timeout time.Duration) *SeedFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/yaml, text/yaml, */*")
	return &SeedFetcher{client: client}
}

// Fetch downloads and validates the seed at url.
func (f *SeedFetcher) Fetch(ctx context.Context, url string) ([]DeviceSnapshot, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch seed %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch seed %s: status %d", url, resp.StatusCode())
	}
	return ParseSeed(resp.Body())
}

// LoadSeed reads a seed from a local path or an http(s) URL.
func LoadSeed(ctx context.Context, location string) ([]DeviceSnapshot, error) {
	if IsRemoteSeed(location) {
		return NewSeedFetcher(10*time.Second).Fetch(ctx, location)
	}
	return LoadSeedFile(location)
}
