package geo

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	log "github.com/sirupsen/logrus"
)

const DefaultFallback = "Tarlac City, Tarlac, Philippines"

var ErrNoAddress = errors.New("no address for coordinates")

// Geocoder resolves coordinates to a human readable address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// Chain tries each geocoder in order and returns Fallback when all of them
// fail. Resolve never fails.
type Chain struct {
	Geocoders []Geocoder
	Fallback  string
}

func NewChain(fallback string, geocoders ...Geocoder) *Chain {
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Chain{Geocoders: geocoders, Fallback: fallback}
}

func (c *Chain) Resolve(ctx context.Context, lat, lng float64) string {
	for _, g := range c.Geocoders {
		addr, err := g.Reverse(ctx, lat, lng)
		if err == nil && strings.TrimSpace(addr) != "" {
			return strings.TrimSpace(addr)
		}
		log.WithError(err).Warnf("geocoder %T gave no address for %f,%f", g, lat, lng)
		if ctx.Err() != nil {
			break
		}
	}
	return c.Fallback
}

// Retry repeats a geocoder with a fixed delay between attempts.
type Retry struct {
	Geocoder Geocoder
	Attempts int
	Delay    time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetry(g Geocoder, attempts int, delay time.Duration) *Retry {
	return &Retry{Geocoder: g, Attempts: attempts, Delay: delay, sleep: sleepContext}
}

func (r *Retry) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for i := 1; i <= attempts; i++ {
		var addr string
		addr, err = r.Geocoder.Reverse(ctx, lat, lng)
		if err == nil {
			return addr, nil
		}
		if i < attempts {
			if serr := sleep(ctx, r.Delay); serr != nil {
				return "", serr
			}
		}
	}
	return "", err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func newClient(timeout time.Duration) *rest.Client {
	return &rest.Client{HTTPClient: &http.Client{Timeout: timeout}}
}
