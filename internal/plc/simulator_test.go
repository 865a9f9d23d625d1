package plc

import (
	"context"
	"errors"
	"testing"
	"time"
)

func connectedSimulator(t *testing.T) *Simulator {
	t.Helper()
	sim := NewSimulator()
	if err := sim.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return sim
}

func TestSimulator_ReadBatch(t *testing.T) {
	sim := connectedSimulator(t)
	sim.Set("A", true)
	sim.Set("C", int16(7))

	got, err := sim.ReadBatch(context.Background(), []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("ReadBatch() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0] != true || got[1] != false || got[2] != int16(7) {
		t.Errorf("ReadBatch() = %v", got)
	}
}

func TestSimulator_ReadBatchErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("disconnected", func(t *testing.T) {
		sim := NewSimulator()
		if _, err := sim.ReadBatch(ctx, []string{"A"}); !errors.Is(err, ErrNotConnected) {
			t.Errorf("error = %v, want ErrNotConnected", err)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		sim := connectedSimulator(t)
		if _, err := sim.ReadBatch(ctx, nil); !errors.Is(err, ErrEmptyBatch) {
			t.Errorf("error = %v, want ErrEmptyBatch", err)
		}
	})

	t.Run("injected failure", func(t *testing.T) {
		sim := connectedSimulator(t)
		sim.FailReads(errors.New("timeout"))
		if _, err := sim.ReadBatch(ctx, []string{"A"}); !errors.Is(err, ErrReadFailed) {
			t.Errorf("error = %v, want ErrReadFailed", err)
		}
		sim.FailReads(nil)
		if _, err := sim.ReadBatch(ctx, []string{"A"}); err != nil {
			t.Errorf("error after clearing = %v", err)
		}
		if st := sim.Stats(); st.Reads != 2 || st.ReadErrors != 1 {
			t.Errorf("Stats() = %+v, want 2 reads 1 error", st)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		sim := connectedSimulator(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := sim.ReadBatch(cctx, []string{"A"}); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestSimulator_WriteReflectsInRead(t *testing.T) {
	sim := connectedSimulator(t)
	ctx := context.Background()

	if err := sim.Write(ctx, "Start", true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := sim.ReadBatch(ctx, []string{"Start"})
	if err != nil {
		t.Fatalf("ReadBatch() error = %v", err)
	}
	if got[0] != true {
		t.Errorf("read after write = %v, want true", got[0])
	}

	sim.FailWrites(errors.New("denied"))
	if err := sim.Write(ctx, "Start", false); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("Write() error = %v, want ErrWriteFailed", err)
	}
	if st := sim.Stats(); st.Writes != 2 || st.WriteErrors != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestSimulator_Animate(t *testing.T) {
	sim := connectedSimulator(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sim.Animate(ctx, time.Millisecond, "SystemAlarm", []string{"A"})
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if v, ok := sim.Get("SystemAlarm"); ok {
			if n, _ := ToInt(v); n > 0 {
				break
			}
		}
		select {
		case <-deadline:
			t.Fatal("Animate never bumped the counter")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	if _, ok := sim.Get("A"); !ok {
		t.Error("Animate never touched the alarm address")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{"opcua", false},
		{"simulated", false},
		{"s7", true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			conn, err := New(configFor(tt.driver))
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedDriver) {
					t.Errorf("New() error = %v, want ErrUnsupportedDriver", err)
				}
				return
			}
			if err != nil || conn == nil {
				t.Fatalf("New() = %v, %v", conn, err)
			}
			if conn.IsConnected() {
				t.Error("new link should not be connected")
			}
		})
	}
}
