package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBroadcastSendRecv(t *testing.T) {
	b := NewBroadcastBus(4)
	r := b.Subscribe()

	b.Send(CmdRun)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cmd, err := r.Recv(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != CmdRun {
		t.Fatalf("expected CmdRun, got %v", cmd)
	}
}

func TestBroadcastMultipleReceivers(t *testing.T) {
	b := NewBroadcastBus(4)
	r1 := b.Subscribe()
	r2 := b.Subscribe()

	b.Send(CmdShutdown)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, r := range []*Receiver{r1, r2} {
		cmd, err := r.Recv(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cmd != CmdShutdown {
			t.Fatalf("expected CmdShutdown, got %v", cmd)
		}
	}
}

func TestBroadcastLateSubscriberMissesPriorSends(t *testing.T) {
	b := NewBroadcastBus(4)
	b.Send(CmdRun)

	r := b.Subscribe()
	b.Send(CmdShutdown)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cmd, err := r.Recv(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != CmdShutdown {
		t.Fatalf("expected only CmdShutdown visible to late subscriber, got %v", cmd)
	}
}

func TestBroadcastLagged(t *testing.T) {
	b := NewBroadcastBus(1)
	r := b.Subscribe()

	b.Send(CmdRun)
	b.Send(CmdShutdown)
	b.Send(CmdRun)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := r.Recv(ctx)

	var lagged *LaggedError
	if !errors.As(err, &lagged) {
		t.Fatalf("expected LaggedError, got %v", err)
	}
	if lagged.Skipped != 2 {
		t.Fatalf("expected 2 skipped messages, got %d", lagged.Skipped)
	}

	cmd, err := r.Recv(ctx)
	if err != nil {
		t.Fatalf("unexpected error after lag recovery: %v", err)
	}
	if cmd != CmdRun {
		t.Fatalf("expected to resume at the oldest retained command, got %v", cmd)
	}
}

func TestBroadcastCloseDrainsThenErrClosed(t *testing.T) {
	b := NewBroadcastBus(4)
	r := b.Subscribe()

	b.Send(CmdRun)
	b.Close()
	b.Send(CmdShutdown) // no-op after close

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cmd, err := r.Recv(ctx)
	if err != nil {
		t.Fatalf("expected buffered command before ErrClosed, got err %v", err)
	}
	if cmd != CmdRun {
		t.Fatalf("expected CmdRun, got %v", cmd)
	}

	_, err = r.Recv(ctx)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestBroadcastRecvRespectsContextCancellation(t *testing.T) {
	b := NewBroadcastBus(4)
	r := b.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Recv(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}
