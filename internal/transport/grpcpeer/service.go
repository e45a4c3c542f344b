package grpcpeer

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName            = "filerelay.transfer.v1.Transfer"
	uploadAttachmentMethod = "/" + serviceName + "/UploadAttachment"
	submitTransferMethod   = "/" + serviceName + "/SubmitTransfer"
)

// TransferServer is the server API for the Transfer service.
type TransferServer interface {
	UploadAttachment(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	SubmitTransfer(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
}

// UnimplementedTransferServer can be embedded to have forward compatible implementations.
type UnimplementedTransferServer struct{}

func (UnimplementedTransferServer) UploadAttachment(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method UploadAttachment not implemented")
}

func (UnimplementedTransferServer) SubmitTransfer(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method SubmitTransfer not implemented")
}

// RegisterTransferServer registers the Transfer service on a gRPC server.
func RegisterTransferServer(s grpc.ServiceRegistrar, srv TransferServer) {
	s.RegisterService(&Transfer_ServiceDesc, srv)
}

// TransferClient is the client API for the Transfer service.
type TransferClient interface {
	UploadAttachment(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	SubmitTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type transferClient struct{ cc grpc.ClientConnInterface }

// NewTransferClient wraps a connection in the Transfer client API.
func NewTransferClient(cc grpc.ClientConnInterface) TransferClient { return &transferClient{cc: cc} }

func (c *transferClient) UploadAttachment(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, uploadAttachmentMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transferClient) SubmitTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, submitTransferMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Transfer_UploadAttachment_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransferServer).UploadAttachment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: uploadAttachmentMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransferServer).UploadAttachment(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Transfer_SubmitTransfer_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransferServer).SubmitTransfer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitTransferMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransferServer).SubmitTransfer(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Transfer_ServiceDesc is the grpc.ServiceDesc for the Transfer service.
var Transfer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TransferServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "UploadAttachment", Handler: _Transfer_UploadAttachment_Handler},
		{MethodName: "SubmitTransfer", Handler: _Transfer_SubmitTransfer_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transfer.proto",
}
