package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// The inventory service is registered by hand and carries JSON messages.
// Clients select the codec with grpc.CallContentSubtype(CodecName).

const (
	CodecName   = "json"
	ServiceName = "inventory.v1.InventoryService"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type ApplyStockMovementRequest struct {
	ProductID string `json:"product_id"`
	Direction string `json:"direction"`
	Quantity  string `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ProductMessage struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CurrentStock  string `json:"current_stock"`
	Unit          string `json:"unit"`
	MinStockLevel string `json:"min_stock_level"`
	CategoryName  string `json:"category_name,omitempty"`
	LowStock      bool   `json:"low_stock"`
}

type ListLowStockRequest struct{}

type ListLowStockResponse struct {
	Critical []*ProductMessage `json:"critical"`
	Warning  []*ProductMessage `json:"warning"`
}

type DailyMovementTotalsRequest struct {
	Date string `json:"date,omitempty"` // YYYY-MM-DD, empty for today
}

type DailyMovementTotalsResponse struct {
	Date     string `json:"date"`
	StockIn  string `json:"stock_in"`
	StockOut string `json:"stock_out"`
}

type RecentActivityRequest struct {
	Limit int32 `json:"limit,omitempty"`
}

type TransactionMessage struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Direction   string `json:"direction"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type RecentActivityResponse struct {
	Transactions []*TransactionMessage `json:"transactions"`
}

type InventoryServer interface {
	ApplyStockMovement(context.Context, *ApplyStockMovementRequest) (*ProductMessage, error)
	ListLowStock(context.Context, *ListLowStockRequest) (*ListLowStockResponse, error)
	DailyMovementTotals(context.Context, *DailyMovementTotalsRequest) (*DailyMovementTotalsResponse, error)
	RecentActivity(context.Context, *RecentActivityRequest) (*RecentActivityResponse, error)
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&inventoryServiceDesc, srv)
}

var inventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ApplyStockMovement",
			Handler:    unaryHandler("ApplyStockMovement", InventoryServer.ApplyStockMovement),
		},
		{
			MethodName: "ListLowStock",
			Handler:    unaryHandler("ListLowStock", InventoryServer.ListLowStock),
		},
		{
			MethodName: "DailyMovementTotals",
			Handler:    unaryHandler("DailyMovementTotals", InventoryServer.DailyMovementTotals),
		},
		{
			MethodName: "RecentActivity",
			Handler:    unaryHandler("RecentActivity", InventoryServer.RecentActivity),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1",
}

func unaryHandler[Req, Resp any](method string, call func(InventoryServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InventoryServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// InventoryClient calls InventoryService with the JSON codec.
type InventoryClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryClient(cc grpc.ClientConnInterface) *InventoryClient {
	return &InventoryClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryClient) ApplyStockMovement(ctx context.Context, in *ApplyStockMovementRequest, opts ...grpc.CallOption) (*ProductMessage, error) {
	return invoke[ProductMessage](ctx, c.cc, "ApplyStockMovement", in, opts)
}

func (c *InventoryClient) ListLowStock(ctx context.Context, in *ListLowStockRequest, opts ...grpc.CallOption) (*ListLowStockResponse, error) {
	return invoke[ListLowStockResponse](ctx, c.cc, "ListLowStock", in, opts)
}

func (c *InventoryClient) DailyMovementTotals(ctx context.Context, in *DailyMovementTotalsRequest, opts ...grpc.CallOption) (*DailyMovementTotalsResponse, error) {
	return invoke[DailyMovementTotalsResponse](ctx, c.cc, "DailyMovementTotals", in, opts)
}

func (c *InventoryClient) RecentActivity(ctx context.Context, in *RecentActivityRequest, opts ...grpc.CallOption) (*RecentActivityResponse, error) {
	return invoke[RecentActivityResponse](ctx, c.cc, "RecentActivity", in, opts)
}
