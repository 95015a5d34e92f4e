package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func startHealthServer(t *testing.T, status grpc_health_v1.HealthCheckResponse_ServingStatus) (*HealthServer, *health.Server) {
	t.Helper()

	hs := health.NewServer()
	hs.SetServingStatus("", status)
	server, err := ListenHealth("127.0.0.1:0", hs)
	if err != nil {
		t.Fatalf("ListenHealth() error = %v", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve()
	}()
	t.Cleanup(func() {
		server.Stop()
		select {
		case err := <-serveErr:
			if err != nil {
				t.Errorf("Serve() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Serve() did not return after Stop")
		}
	})
	return server, hs
}

func TestCheckHealthServing(t *testing.T) {
	server, _ := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := CheckHealth(ctx, server.Addr(), "", nil); err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}
}

func TestCheckHealthTransitionsToServing(t *testing.T) {
	server, hs := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus("module-one", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	go func() {
		time.Sleep(200 * time.Millisecond)
		hs.SetServingStatus("module-one", grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var lines []string
	logf := func(format string, args ...any) { lines = append(lines, format) }
	if err := CheckHealth(ctx, server.Addr(), "module-one", logf); err != nil {
		t.Fatalf("CheckHealth() after transition error = %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("expected waiting and serving log lines, got %v", lines)
	}
}

func TestCheckHealthRespectsContext(t *testing.T) {
	server, _ := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := CheckHealth(ctx, server.Addr(), "", nil); err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestListenHealthValidatesInput(t *testing.T) {
	if _, err := ListenHealth("", health.NewServer()); err == nil {
		t.Fatal("expected error for empty address")
	}
	if _, err := ListenHealth("127.0.0.1:0", nil); err == nil {
		t.Fatal("expected error for nil health server")
	}
}

func TestWaitForHealthRequiresConnection(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected error for nil connection")
	}
}
