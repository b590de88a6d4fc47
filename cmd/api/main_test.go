package main

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestJanitorInterval(t *testing.T) {
	if got := janitorInterval(30 * time.Minute); got != 450*time.Second {
		t.Fatalf("unexpected interval %v", got)
	}
	if got := janitorInterval(time.Millisecond); got != time.Second {
		t.Fatalf("expected floor of 1s, got %v", got)
	}
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServer err: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after cancel")
	}
}
