package gateway

import (
	"context"
	"fmt"
	"time"
)

// DeviceFetcher reads the current device list. *Gateway implements it.
type DeviceFetcher interface {
	FetchDevices(ctx context.Context) ([]Device, error)
}

// VerificationOptions configures how position verification polls the gateway
type VerificationOptions struct {
	// MaxRetries is the maximum number of additional polls after the first
	// Default: 5
	MaxRetries int

	// InitialDelay is the delay before the first poll, giving the motor time to start
	// Default: 2s
	InitialDelay time.Duration

	// RetryDelay is the delay between polls
	// Default: 2s
	RetryDelay time.Duration

	// UseExponentialBackoff doubles RetryDelay after every poll, up to MaxRetryDelay
	// Default: true
	UseExponentialBackoff bool

	// MaxRetryDelay caps the backoff
	// Default: 10s
	MaxRetryDelay time.Duration
}

// DefaultVerificationOptions returns defaults sized for a blind travelling end to end
func DefaultVerificationOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:            5,
		InitialDelay:          2 * time.Second,
		RetryDelay:            2 * time.Second,
		UseExponentialBackoff: true,
		MaxRetryDelay:         10 * time.Second,
	}
}

// VerificationResult contains the outcome of a position verification
type VerificationResult struct {
	// Success is true once the device reported the expected position
	Success bool

	// Attempts is the number of polls made
	Attempts int

	// ActualClosedPercent is the last position the device reported, if any
	ActualClosedPercent *int

	// Error is the last error or mismatch seen
	Error error
}

// VerifyDevicePosition polls until the device reports expectedClosed or the
// attempts run out. It only reads state; the command is never re-sent.
func VerifyDevicePosition(ctx context.Context, f DeviceFetcher, id ID, expectedClosed int, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}

	result := &VerificationResult{}

	if err := sleepCtx(ctx, opts.InitialDelay); err != nil {
		result.Error = err
		return result
	}

	currentDelay := opts.RetryDelay

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, currentDelay); err != nil {
				result.Error = err
				return result
			}
			if opts.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > opts.MaxRetryDelay {
					currentDelay = opts.MaxRetryDelay
				}
			}
		}
		result.Attempts++

		devices, err := f.FetchDevices(ctx)
		if err != nil {
			result.Error = fmt.Errorf("attempt %d: failed to read devices: %w", attempt+1, err)
			if IsAuthError(err) {
				return result
			}
			continue
		}

		device, found := findDevice(devices, id)
		if !found {
			result.Error = NewValidationError(fmt.Sprintf("device %s is no longer reported by the gateway", id))
			return result
		}

		result.ActualClosedPercent = device.RawClosedPercent
		if device.RawClosedPercent != nil && *device.RawClosedPercent == expectedClosed {
			result.Success = true
			result.Error = nil
			return result
		}

		result.Error = fmt.Errorf("attempt %d: device %s at %s, expected closed %d%%",
			attempt+1, id, describeClosed(device.RawClosedPercent), expectedClosed)
	}

	return result
}

func findDevice(devices []Device, id ID) (Device, bool) {
	for _, d := range devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

func describeClosed(p *int) string {
	if p == nil {
		return "unknown position"
	}
	return fmt.Sprintf("closed %d%%", *p)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
