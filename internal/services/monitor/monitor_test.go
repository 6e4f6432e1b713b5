package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type fakeChecker struct {
	err   error
	calls atomic.Int32
}

func (f *fakeChecker) Health(ctx context.Context) error {
	f.calls.Add(1)
	return f.err
}

func TestNewRejectsBadSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		ok       bool
	}{
		{"*/5 * * * *", true},
		{"@every 30s", true},
		{"not a schedule", false},
		{"* * *", false},
	}
	for _, tt := range tests {
		_, err := New(&fakeChecker{}, tt.schedule, nil)
		if (err == nil) != tt.ok {
			t.Errorf("New(%q) error = %v, want ok=%v", tt.schedule, err, tt.ok)
		}
	}
}

func TestCheckRecordsStatus(t *testing.T) {
	checker := &fakeChecker{}
	m, err := New(checker, "*/5 * * * *", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := m.Check(ctx); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if st := m.Status(); !st.Up || st.LastCheck.IsZero() || st.Error != "" {
		t.Errorf("Status = %+v, want up", st)
	}

	checker.err = errors.New("connection refused")
	if err := m.Check(ctx); err == nil {
		t.Fatal("Check should return the probe error")
	}
	if st := m.Status(); st.Up || st.Error != "connection refused" {
		t.Errorf("Status = %+v, want down", st)
	}
}

func TestStartProbesImmediately(t *testing.T) {
	checker := &fakeChecker{}
	m, err := New(checker, "0 0 1 1 *", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	if n := checker.calls.Load(); n != 1 {
		t.Errorf("probes after Start = %d, want 1", n)
	}
	if !m.Status().Up {
		t.Error("Status should be up after first probe")
	}
}
