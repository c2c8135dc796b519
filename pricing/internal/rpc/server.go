package rpc

import (
	"context"
	"errors"

	"storefront/pricing/internal/logic"
	"storefront/pricing/internal/service"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Quoter is the part of service.Quoter exposed over gRPC.
type Quoter interface {
	Quote(ctx context.Context, req service.QuoteRequest) (*service.Quote, error)
	Bill(ctx context.Context, req service.BillRequest) (*service.Bill, error)
}

type PricingServer struct {
	quoter Quoter
	logger zerolog.Logger
}

// NewPricingServer constructs a pricing gRPC handler.
func NewPricingServer(q Quoter, logger zerolog.Logger) *PricingServer {
	return &PricingServer{quoter: q, logger: logger}
}

// Quote prices skus for a customer.
func (s *PricingServer) Quote(ctx context.Context, req *service.QuoteRequest) (*service.Quote, error) {
	s.logger.Debug().Int("client_id", req.ClientID).Int("skus", len(req.Skus)).Msg("[pricing] Quote called")
	if len(req.Skus) == 0 {
		return nil, status.Error(codes.InvalidArgument, "skus must not be empty")
	}

	quote, err := s.quoter.Quote(ctx, *req)
	if err != nil {
		return nil, s.toStatus("Quote", err)
	}
	return quote, nil
}

// CalculateBill computes line totals and aggregate amount for a cart payload.
func (s *PricingServer) CalculateBill(ctx context.Context, req *service.BillRequest) (*service.Bill, error) {
	s.logger.Debug().Int("client_id", req.ClientID).Int("items", len(req.Items)).Msg("[pricing] CalculateBill called")
	if len(req.Items) == 0 {
		return nil, status.Error(codes.InvalidArgument, "items must not be empty")
	}

	bill, err := s.quoter.Bill(ctx, *req)
	if err != nil {
		return nil, s.toStatus("CalculateBill", err)
	}
	s.logger.Info().Str("quote_id", bill.QuoteID).Str("grand_total", bill.GrandTotal.StringFixed(2)).
		Msg("[pricing] CalculateBill complete")
	return bill, nil
}

func (s *PricingServer) toStatus(op string, err error) error {
	s.logger.Warn().Err(err).Str("op", op).Msg("[pricing] rpc failed")
	switch {
	case errors.Is(err, logic.ErrInvalidArgument), errors.Is(err, service.ErrInvalidQuantity):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrUnknownSku):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Errorf(codes.Internal, "failed to price request: %v", err)
	}
}
