package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"storefront/pricing/internal/logic"
	"storefront/pricing/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeQuoter struct {
	err error
}

func (f *fakeQuoter) Quote(ctx context.Context, req service.QuoteRequest) (*service.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	q := &service.Quote{QuoteID: "q-1", ClientID: req.ClientID}
	for _, sku := range req.Skus {
		q.Lines = append(q.Lines, service.QuoteLine{
			Sku:            sku,
			PriceBreakdown: logic.PriceBreakdown{BasePrice: 100, MCDPrice: 115, RCDPrice: 111.55, Discount: 3},
		})
	}
	return q, nil
}

func (f *fakeQuoter) Bill(ctx context.Context, req service.BillRequest) (*service.Bill, error) {
	if f.err != nil {
		return nil, f.err
	}
	total := decimal.RequireFromString("111.55").Mul(decimal.NewFromInt32(req.Items[0].Quantity))
	return &service.Bill{
		QuoteID:    "q-2",
		Items:      []service.BillLine{{Sku: req.Items[0].Sku, Quantity: req.Items[0].Quantity, TotalPrice: total}},
		GrandTotal: total,
	}, nil
}

func startServer(t *testing.T, q Quoter) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterPricingServiceServer(srv, NewPricingServer(q, zerolog.Nop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func TestQuoteOverGRPC(t *testing.T) {
	client := startServer(t, &fakeQuoter{})

	quote, err := client.Quote(context.Background(), &service.QuoteRequest{ClientID: 7, Skus: []string{"MILK-1L", "BREAD"}})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.QuoteID != "q-1" || quote.ClientID != 7 || len(quote.Lines) != 2 {
		t.Fatalf("unexpected quote %+v", quote)
	}
	if quote.Lines[1].Sku != "BREAD" || quote.Lines[1].RCDPrice != 111.55 {
		t.Errorf("unexpected line %+v", quote.Lines[1])
	}
}

func TestCalculateBillOverGRPC(t *testing.T) {
	client := startServer(t, &fakeQuoter{})

	bill, err := client.CalculateBill(context.Background(), &service.BillRequest{
		Items: []service.BillItem{{Sku: "MILK-1L", Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("CalculateBill: %v", err)
	}
	if got := bill.GrandTotal.StringFixed(2); got != "334.65" {
		t.Errorf("grand total = %s, want 334.65", got)
	}
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		req  *service.QuoteRequest
		want codes.Code
	}{
		{name: "empty skus", req: &service.QuoteRequest{}, want: codes.InvalidArgument},
		{name: "invalid argument", err: fmt.Errorf("sku A: %w", logic.ErrInvalidArgument), req: &service.QuoteRequest{Skus: []string{"A"}}, want: codes.InvalidArgument},
		{name: "unknown sku", err: fmt.Errorf("%w: A", service.ErrUnknownSku), req: &service.QuoteRequest{Skus: []string{"A"}}, want: codes.NotFound},
		{name: "internal", err: errors.New("db down"), req: &service.QuoteRequest{Skus: []string{"A"}}, want: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := startServer(t, &fakeQuoter{err: tt.err})
			_, err := client.Quote(context.Background(), tt.req)
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}
