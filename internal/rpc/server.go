package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bayleafwalker/bindery-usecheck/internal/analysis"
	"github.com/bayleafwalker/bindery-usecheck/internal/metadata"
	"github.com/bayleafwalker/bindery-usecheck/internal/registry"
	"github.com/bayleafwalker/bindery-usecheck/internal/report"
	"github.com/bayleafwalker/bindery-usecheck/internal/resolver"
)

// Server answers every call from a fresh snapshot of Source.
type Server struct {
	Source registry.Source
	// Resolver simulates resolution for modules without a recorded phase. Nil selects the default.
	Resolver resolver.Resolver
}

var _ AnalyzerServer = (*Server)(nil)

func (s *Server) analyzer() (*analysis.Analyzer, *registry.Store) {
	store := registry.NewStore(s.Source, s.Resolver)
	return analysis.New(store, store), store
}

func (s *Server) FindUseConflicts(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	a, store := s.analyzer()
	ref, err := store.Lookup(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	rows, err := report.Conflicts(ctx, a, ref)
	if err != nil {
		return nil, toStatus(err)
	}
	return moduleStruct(report.Module{Module: ref.String(), UseConflicts: rows})
}

func (s *Server) FindMissingOptionalImports(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	a, store := s.analyzer()
	ref, err := store.Lookup(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	rows, err := report.MissingImports(ctx, a, ref)
	if err != nil {
		return nil, toStatus(err)
	}
	return moduleStruct(report.Module{Module: ref.String(), MissingOptionalImports: rows})
}

func (s *Server) FindBundlesWithUseConflicts(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	a, _ := s.analyzer()
	refs, err := a.FindBundlesWithUseConflicts(ctx)
	return batchStruct(refs, err)
}

func (s *Server) FindBundlesWithMissingOptionalImports(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	a, _ := s.analyzer()
	refs, err := a.FindBundlesWithMissingOptionalImports(ctx)
	return batchStruct(refs, err)
}

// NewGRPCServer returns a gRPC server hosting srv and the standard health service.
func NewGRPCServer(srv *Server, logger logr.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(UnaryLogging(logger))}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterAnalyzerServer(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs, hs
}

// UnaryLogging puts logger into the request context and logs every call.
func UnaryLogging(logger logr.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		l := logger.WithValues("method", info.FullMethod)
		resp, err := handler(logr.NewContext(ctx, l), req)
		code := status.Code(err)
		if code == codes.Internal || code == codes.Unknown {
			l.Error(err, "call failed", "duration", time.Since(start).String())
		} else {
			l.V(1).Info("call complete", "code", code.String(), "duration", time.Since(start).String())
		}
		return resp, err
	}
}

func moduleStruct(m report.Module) (*structpb.Struct, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// batchStruct keeps the modules found next to the per-module failures. Errors that do not belong
// to a single module fail the call.
func batchStruct(refs []metadata.ModuleRef, err error) (*structpb.Struct, error) {
	var failures []any
	if err != nil {
		var me *analysis.ModuleError
		if !errors.As(err, &me) {
			return nil, toStatus(err)
		}
		for _, e := range splitJoined(err) {
			failures = append(failures, e.Error())
		}
	}
	modules := make([]any, 0, len(refs))
	for _, ref := range refs {
		modules = append(modules, ref.String())
	}
	out, serr := structpb.NewStruct(map[string]any{
		"modules": modules,
		"errors":  append([]any{}, failures...),
	})
	if serr != nil {
		return nil, status.Error(codes.Internal, serr.Error())
	}
	return out, nil
}

func splitJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, registry.ErrUnknownModule), errors.Is(err, analysis.ErrInvalidModuleReference):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, metadata.ErrManifestParse), errors.Is(err, registry.ErrDuplicateModule):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
