package grpcserver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type switchPinger struct{ down atomic.Bool }

func (p *switchPinger) Ping(context.Context) error {
	if p.down.Load() {
		return errors.New("db down")
	}
	return nil
}

func startServer(t *testing.T, store *switchPinger) (*Server, healthpb.HealthClient) {
	t.Helper()

	s := New(store, zaptest.NewLogger(t), Options{})
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(func() { s.Shutdown(time.Second) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return s, healthpb.NewHealthClient(conn)
}

func TestHealth_MirrorsStorePing(t *testing.T) {
	store := &switchPinger{}
	s, client := startServer(t, store)
	ctx := context.Background()

	if st := s.Check(ctx); st != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("want SERVING, got %v", st)
	}
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("want SERVING, got %v", resp.GetStatus())
	}

	store.down.Store(true)
	s.Check(ctx)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("want NOT_SERVING, got %v", resp.GetStatus())
	}
}

func TestWatch_StopsOnShutdown(t *testing.T) {
	store := &switchPinger{}
	s := New(store, zaptest.NewLogger(t), Options{Interval: 10 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		s.Watch(context.Background())
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	s.Shutdown(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
