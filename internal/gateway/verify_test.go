package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedFetcher struct {
	responses [][]Device
	errs      []error
	calls     int
}

func (f *scriptedFetcher) FetchDevices(context.Context) ([]Device, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func deviceAt(id ID, closed int) Device {
	return Device{ID: id, RawClosedPercent: &closed}
}

func fastOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 2 * time.Millisecond,
	}
}

func TestVerifyDevicePosition_ReachesTarget(t *testing.T) {
	f := &scriptedFetcher{responses: [][]Device{
		{deviceAt("1", 100)},
		{deviceAt("1", 81)},
		{deviceAt("1", 65)},
	}}

	result := VerifyDevicePosition(context.Background(), f, "1", 65, fastOptions())
	if !result.Success {
		t.Fatalf("Success = false, error = %v", result.Error)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if result.ActualClosedPercent == nil || *result.ActualClosedPercent != 65 {
		t.Errorf("ActualClosedPercent = %v, want 65", result.ActualClosedPercent)
	}
}

func TestVerifyDevicePosition_GivesUp(t *testing.T) {
	f := &scriptedFetcher{responses: [][]Device{{deviceAt("1", 100)}}}

	result := VerifyDevicePosition(context.Background(), f, "1", 0, fastOptions())
	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if result.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", result.Attempts)
	}
	if result.Error == nil {
		t.Error("Error should describe the mismatch")
	}
}

func TestVerifyDevicePosition_RetriesTransientErrors(t *testing.T) {
	f := &scriptedFetcher{
		errs:      []error{NewNetworkError("flaky", errors.New("reset"))},
		responses: [][]Device{nil, {deviceAt("1", 50)}},
	}

	result := VerifyDevicePosition(context.Background(), f, "1", 50, fastOptions())
	if !result.Success {
		t.Fatalf("Success = false, error = %v", result.Error)
	}
}

func TestVerifyDevicePosition_StopsOnAuthError(t *testing.T) {
	f := &scriptedFetcher{
		errs:      []error{NewAuthError("nope")},
		responses: [][]Device{{deviceAt("1", 50)}},
	}

	result := VerifyDevicePosition(context.Background(), f, "1", 50, fastOptions())
	if result.Success || result.Attempts != 1 || !IsAuthError(result.Error) {
		t.Errorf("result = %+v, want a single failed attempt with auth error", result)
	}
}

func TestVerifyDevicePosition_DeviceGone(t *testing.T) {
	f := &scriptedFetcher{responses: [][]Device{{deviceAt("2", 50)}}}

	result := VerifyDevicePosition(context.Background(), f, "1", 50, fastOptions())
	if result.Success || !IsValidationError(result.Error) {
		t.Errorf("result = %+v, want validation error", result)
	}
}

func TestVerifyDevicePosition_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &scriptedFetcher{responses: [][]Device{{deviceAt("1", 50)}}}
	opts := fastOptions()
	opts.InitialDelay = time.Second

	result := VerifyDevicePosition(ctx, f, "1", 50, opts)
	if result.Success || !errors.Is(result.Error, context.Canceled) {
		t.Errorf("result = %+v, want canceled", result)
	}
	if f.calls != 0 {
		t.Errorf("fetch calls = %d, want 0", f.calls)
	}
}
