package rpc

import (
	"context"

	"storefront/pricing/internal/service"

	"google.golang.org/grpc"
)

// Client calls the pricing service from other storefront services.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Quote(ctx context.Context, req *service.QuoteRequest, opts ...grpc.CallOption) (*service.Quote, error) {
	out := new(service.Quote)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Quote", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CalculateBill(ctx context.Context, req *service.BillRequest, opts ...grpc.CallOption) (*service.Bill, error) {
	out := new(service.Bill)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/CalculateBill", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
