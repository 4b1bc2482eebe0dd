// Package rpc exposes the analyzer queries as the gRPC service bindery.usecheck.v1.Analyzer.
//
// Messages are protobuf well-known types so that no generated code is needed: modules are
// addressed with a StringValue (ModuleManifest name or "symbolicName/version"), per-module
// reports travel as a Struct in the report.Module JSON shape, and batch queries answer with a
// Struct holding "modules" and "errors" lists.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "bindery.usecheck.v1.Analyzer"

const (
	methodFindUseConflicts                      = "/" + ServiceName + "/FindUseConflicts"
	methodFindMissingOptionalImports            = "/" + ServiceName + "/FindMissingOptionalImports"
	methodFindBundlesWithUseConflicts           = "/" + ServiceName + "/FindBundlesWithUseConflicts"
	methodFindBundlesWithMissingOptionalImports = "/" + ServiceName + "/FindBundlesWithMissingOptionalImports"
)

// AnalyzerServer is the server API of bindery.usecheck.v1.Analyzer.
type AnalyzerServer interface {
	FindUseConflicts(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	FindMissingOptionalImports(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	FindBundlesWithUseConflicts(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	FindBundlesWithMissingOptionalImports(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterAnalyzerServer(s grpc.ServiceRegistrar, srv AnalyzerServer) {
	s.RegisterService(&analyzerServiceDesc, srv)
}

var analyzerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyzerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "FindUseConflicts", Handler: moduleHandler(methodFindUseConflicts, AnalyzerServer.FindUseConflicts)},
		{MethodName: "FindMissingOptionalImports", Handler: moduleHandler(methodFindMissingOptionalImports, AnalyzerServer.FindMissingOptionalImports)},
		{MethodName: "FindBundlesWithUseConflicts", Handler: batchHandler(methodFindBundlesWithUseConflicts, AnalyzerServer.FindBundlesWithUseConflicts)},
		{MethodName: "FindBundlesWithMissingOptionalImports", Handler: batchHandler(methodFindBundlesWithMissingOptionalImports, AnalyzerServer.FindBundlesWithMissingOptionalImports)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bindery/usecheck/v1/analyzer.proto",
}

type grpcHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func moduleHandler(fullMethod string, call func(AnalyzerServer, context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)) grpcHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(wrapperspb.StringValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalyzerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalyzerServer), ctx, req.(*wrapperspb.StringValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func batchHandler(fullMethod string, call func(AnalyzerServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpcHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalyzerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalyzerServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}
