package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bayleafwalker/bindery-usecheck/internal/report"
)

// Client calls bindery.usecheck.v1.Analyzer.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// FindUseConflicts reports the use conflicts of module, a ModuleManifest name or
// "symbolicName/version".
func (c *Client) FindUseConflicts(ctx context.Context, module string, opts ...grpc.CallOption) (report.Module, error) {
	return c.module(ctx, methodFindUseConflicts, module, opts...)
}

func (c *Client) FindMissingOptionalImports(ctx context.Context, module string, opts ...grpc.CallOption) (report.Module, error) {
	return c.module(ctx, methodFindMissingOptionalImports, module, opts...)
}

// FindBundlesWithUseConflicts returns the modules found. Per-module failures are returned as a
// joined error next to the modules.
func (c *Client) FindBundlesWithUseConflicts(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	return c.batch(ctx, methodFindBundlesWithUseConflicts, opts...)
}

func (c *Client) FindBundlesWithMissingOptionalImports(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	return c.batch(ctx, methodFindBundlesWithMissingOptionalImports, opts...)
}

func (c *Client) module(ctx context.Context, method, module string, opts ...grpc.CallOption) (report.Module, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, wrapperspb.String(module), out, opts...); err != nil {
		return report.Module{}, err
	}
	raw, err := protojson.Marshal(out)
	if err != nil {
		return report.Module{}, fmt.Errorf("encode response: %w", err)
	}
	var m report.Module
	if err := json.Unmarshal(raw, &m); err != nil {
		return report.Module{}, fmt.Errorf("decode response: %w", err)
	}
	return m, nil
}

func (c *Client) batch(ctx context.Context, method string, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	var modules []string
	for _, v := range out.GetFields()["modules"].GetListValue().GetValues() {
		modules = append(modules, v.GetStringValue())
	}
	var errs []error
	for _, v := range out.GetFields()["errors"].GetListValue().GetValues() {
		errs = append(errs, errors.New(v.GetStringValue()))
	}
	return modules, errors.Join(errs...)
}
