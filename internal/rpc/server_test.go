package rpc

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/bayleafwalker/bindery-usecheck/internal/analysis"
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
	"github.com/bayleafwalker/bindery-usecheck/internal/registry"
)

func startServer(t *testing.T) *grpc.ClientConn {
	t.Helper()
	f, err := os.Open("../registry/testdata/snapshot.yaml")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()
	src, err := registry.LoadSnapshot(f)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	gs, _ := NewGRPCServer(&Server{Source: src}, logr.Discard())
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestAnalyzerService_ModuleQueries(t *testing.T) {
	ctx := testContext(t)
	c := NewClient(startServer(t))

	conflicts, err := c.FindUseConflicts(ctx, "app")
	if err != nil {
		t.Fatalf("FindUseConflicts: %v", err)
	}
	if conflicts.Module != "org.app/1.0.0" || len(conflicts.UseConflicts) != 2 {
		t.Fatalf("unexpected conflicts: %+v", conflicts)
	}
	if len(conflicts.MissingOptionalImports) != 0 {
		t.Fatalf("expected conflict query to omit missing imports")
	}

	missing, err := c.FindMissingOptionalImports(ctx, "org.app/1.0.0")
	if err != nil {
		t.Fatalf("FindMissingOptionalImports: %v", err)
	}
	if len(missing.MissingOptionalImports) != 2 {
		t.Fatalf("unexpected missing imports: %+v", missing)
	}
	reasons := map[string]string{}
	for _, m := range missing.MissingOptionalImports {
		reasons[m.Package] = m.Reason
	}
	if reasons["org.metrics"] != "RefreshRequired" || reasons["org.tracing"] != "Unavailable" {
		t.Fatalf("unexpected reasons: %v", reasons)
	}
}

func TestAnalyzerService_BatchQueries(t *testing.T) {
	ctx := testContext(t)
	c := NewClient(startServer(t))

	withConflicts, err := c.FindBundlesWithUseConflicts(ctx)
	if err != nil {
		t.Fatalf("FindBundlesWithUseConflicts: %v", err)
	}
	if len(withConflicts) != 1 || withConflicts[0] != "org.app/1.0.0" {
		t.Fatalf("expected [org.app/1.0.0], got %v", withConflicts)
	}

	withMissing, err := c.FindBundlesWithMissingOptionalImports(ctx)
	if err != nil {
		t.Fatalf("FindBundlesWithMissingOptionalImports: %v", err)
	}
	if len(withMissing) != 1 || withMissing[0] != "org.app/1.0.0" {
		t.Fatalf("expected [org.app/1.0.0], got %v", withMissing)
	}
}

func TestAnalyzerService_UnknownModule(t *testing.T) {
	ctx := testContext(t)
	c := NewClient(startServer(t))

	_, err := c.FindUseConflicts(ctx, "ghost")
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAnalyzerService_Health(t *testing.T) {
	ctx := testContext(t)
	resp, err := healthpb.NewHealthClient(startServer(t)).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", resp.GetStatus())
	}
}

func TestBatchStruct_KeepsModuleFailures(t *testing.T) {
	ok := metadata.ModuleRef{SymbolicName: "ok", Version: "1.0.0"}
	bad := metadata.ModuleRef{SymbolicName: "bad", Version: "1.0.0"}
	out, err := batchStruct([]metadata.ModuleRef{ok}, errors.Join(&analysis.ModuleError{Module: bad, Err: errors.New("boom")}))
	if err != nil {
		t.Fatalf("batchStruct: %v", err)
	}
	if n := len(out.GetFields()["modules"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("expected 1 module, got %d", n)
	}
	if n := len(out.GetFields()["errors"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("expected 1 error, got %d", n)
	}

	if _, err := batchStruct(nil, errors.New("list failed")); status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal for a registry failure, got %v", err)
	}
}
