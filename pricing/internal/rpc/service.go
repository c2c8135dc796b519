package rpc

import (
	"context"

	"storefront/pricing/internal/service"

	"google.golang.org/grpc"
)

const serviceName = "storefront.pricing.PricingService"

// PricingServiceServer is implemented by PricingServer.
type PricingServiceServer interface {
	Quote(ctx context.Context, req *service.QuoteRequest) (*service.Quote, error)
	CalculateBill(ctx context.Context, req *service.BillRequest) (*service.Bill, error)
}

// RegisterPricingServiceServer attaches srv to a grpc.Server.
func RegisterPricingServiceServer(s grpc.ServiceRegistrar, srv PricingServiceServer) {
	s.RegisterService(&pricingServiceDesc, srv)
}

var pricingServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PricingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Quote", Handler: quoteHandler},
		{MethodName: "CalculateBill", Handler: calculateBillHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pricing",
}

func quoteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(service.QuoteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PricingServiceServer).Quote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Quote"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PricingServiceServer).Quote(ctx, req.(*service.QuoteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func calculateBillHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(service.BillRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PricingServiceServer).CalculateBill(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/CalculateBill"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PricingServiceServer).CalculateBill(ctx, req.(*service.BillRequest))
	}
	return interceptor(ctx, in, info, handler)
}
