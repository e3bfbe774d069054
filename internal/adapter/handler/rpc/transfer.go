package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

const serviceName = "slottransfer.v1.TransferService"

const (
	TransferService_Plan_FullMethodName     = "/" + serviceName + "/Plan"
	TransferService_Transfer_FullMethodName = "/" + serviceName + "/Transfer"
)

type PlanRequest struct {
	Request domain.TransferRequest `json:"request"`
}

type TransferRequest struct {
	RequestId string `json:"request_id"`
	Action    string `json:"action,omitempty"`
	PlayerId  string `json:"player_id,omitempty"`
	ChestId   string `json:"chest_id,omitempty"`
	SourceId  string `json:"source_id,omitempty"`
	TargetId  string `json:"target_id,omitempty"`
	ItemType  string `json:"item_type"`
	Quantity  int32  `json:"quantity"`
}

type TransferResponse struct {
	Success  bool                  `json:"success"`
	Code     string                `json:"code"`
	Message  string                `json:"message"`
	Plan     *domain.TransferPlan  `json:"plan,omitempty"`
	Transfer *domain.TransferEvent `json:"transfer,omitempty"`
}

func (x *TransferRequest) GetRequestId() string {
	if x != nil {
		return x.RequestId
	}
	return ""
}

func (x *TransferRequest) GetQuantity() int32 {
	if x != nil {
		return x.Quantity
	}
	return 0
}

type TransferServiceServer interface {
	Plan(context.Context, *PlanRequest) (*TransferResponse, error)
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
}

// UnimplementedTransferServiceServer can be embedded for forward compatibility.
type UnimplementedTransferServiceServer struct{}

func (UnimplementedTransferServiceServer) Plan(context.Context, *PlanRequest) (*TransferResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Plan not implemented")
}

func (UnimplementedTransferServiceServer) Transfer(context.Context, *TransferRequest) (*TransferResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Transfer not implemented")
}

func RegisterTransferServiceServer(s grpc.ServiceRegistrar, srv TransferServiceServer) {
	s.RegisterService(&TransferService_ServiceDesc, srv)
}

func _TransferService_Plan_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PlanRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransferServiceServer).Plan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TransferService_Plan_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransferServiceServer).Plan(ctx, req.(*PlanRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransferService_Transfer_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TransferRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransferServiceServer).Transfer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TransferService_Transfer_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransferServiceServer).Transfer(ctx, req.(*TransferRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var TransferService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TransferServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Plan", Handler: _TransferService_Plan_Handler},
		{MethodName: "Transfer", Handler: _TransferService_Transfer_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "slottransfer/v1/transfer.json",
}

type TransferServiceClient interface {
	Plan(ctx context.Context, in *PlanRequest, opts ...grpc.CallOption) (*TransferResponse, error)
	Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error)
}

type transferServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTransferServiceClient(cc grpc.ClientConnInterface) TransferServiceClient {
	return &transferServiceClient{cc}
}

func (c *transferServiceClient) Plan(ctx context.Context, in *PlanRequest, opts ...grpc.CallOption) (*TransferResponse, error) {
	out := new(TransferResponse)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, TransferService_Plan_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transferServiceClient) Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error) {
	out := new(TransferResponse)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, TransferService_Transfer_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
