package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "finextract.v1.ExtractionService"

const (
	MethodExtract     = "/" + ServiceName + "/Extract"
	MethodIngest      = "/" + ServiceName + "/Ingest"
	MethodGetDocument = "/" + ServiceName + "/GetDocument"
	MethodExport      = "/" + ServiceName + "/Export"
)

// ExtractionServer is the server API. Requests and responses are
// structpb.Struct so no generated code is needed on either side.
type ExtractionServer interface {
	Extract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ingest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Export(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterExtractionServer registers srv with s.
func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

func unaryHandler(method string, call func(ExtractionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExtractionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExtractionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ExtractionServiceDesc is the grpc.ServiceDesc for ExtractionServer.
var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: unaryHandler(MethodExtract, ExtractionServer.Extract)},
		{MethodName: "Ingest", Handler: unaryHandler(MethodIngest, ExtractionServer.Ingest)},
		{MethodName: "GetDocument", Handler: unaryHandler(MethodGetDocument, ExtractionServer.GetDocument)},
		{MethodName: "Export", Handler: unaryHandler(MethodExport, ExtractionServer.Export)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "finextract/v1/extraction.proto",
}

// Client calls ExtractionService over conn.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Extract(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodExtract, in, opts...)
}

func (c *Client) Ingest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodIngest, in, opts...)
}

func (c *Client) GetDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodGetDocument, in, opts...)
}

func (c *Client) Export(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodExport, in, opts...)
}
