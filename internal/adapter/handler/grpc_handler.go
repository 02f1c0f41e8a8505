package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/shop-inventory/internal/adapter/auth"
	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/core/service"
)

type userIDKey struct{}

type GRPCHandler struct {
	services Services
	verifier *auth.Verifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewGRPCHandler(services Services, verifier *auth.Verifier, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{
		services: services,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

// AuthInterceptor resolves the user from the "authorization" metadata.
func (h *GRPCHandler) AuthInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	var header string
	if values := md.Get("authorization"); len(values) > 0 {
		header = values[0]
	}

	userID, err := h.verifier.CurrentUser(header)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return handler(context.WithValue(ctx, userIDKey{}, userID), req)
}

func userFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

func (h *GRPCHandler) ApplyStockMovement(ctx context.Context, req *ApplyStockMovementRequest) (*ProductMessage, error) {
	product, err := h.services.Stock.ApplyStockMovement(ctx, service.MovementRequest{
		OwnerID:   userFromContext(ctx),
		ProductID: req.ProductID,
		Direction: domain.Direction(req.Direction),
		Quantity:  req.Quantity,
		Notes:     req.Notes,
		RequestID: req.RequestID,
	})
	if err != nil {
		return nil, h.toStatus(err)
	}
	return newProductMessage(*product), nil
}

func (h *GRPCHandler) ListLowStock(ctx context.Context, _ *ListLowStockRequest) (*ListLowStockResponse, error) {
	report, err := h.services.Query.ListLowStock(ctx, userFromContext(ctx))
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &ListLowStockResponse{
		Critical: newProductMessages(report.Critical),
		Warning:  newProductMessages(report.Warning),
	}, nil
}

func (h *GRPCHandler) DailyMovementTotals(ctx context.Context, req *DailyMovementTotalsRequest) (*DailyMovementTotalsResponse, error) {
	day := h.now()
	if req.Date != "" {
		parsed, err := time.ParseInLocation(dateLayout, req.Date, time.Local)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "date must be formatted as YYYY-MM-DD")
		}
		day = parsed
	}

	totals, err := h.services.Query.DailyMovementTotals(ctx, userFromContext(ctx), day)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &DailyMovementTotalsResponse{
		Date:     day.Format(dateLayout),
		StockIn:  totals.StockIn.String(),
		StockOut: totals.StockOut.String(),
	}, nil
}

func (h *GRPCHandler) RecentActivity(ctx context.Context, req *RecentActivityRequest) (*RecentActivityResponse, error) {
	txs, err := h.services.Query.RecentActivity(ctx, userFromContext(ctx), int(req.Limit))
	if err != nil {
		return nil, h.toStatus(err)
	}

	out := make([]*TransactionMessage, 0, len(txs))
	for _, tx := range txs {
		out = append(out, &TransactionMessage{
			ID:          tx.ID,
			ProductID:   tx.ProductID,
			ProductName: tx.ProductName,
			Direction:   string(tx.Direction),
			Quantity:    tx.Quantity.String(),
			Unit:        string(tx.ProductUnit),
			Notes:       tx.Notes,
			CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
		})
	}
	return &RecentActivityResponse{Transactions: out}, nil
}

func (h *GRPCHandler) toStatus(err error) error {
	code := grpcCode(err)
	if code == codes.Unavailable || code == codes.DataLoss {
		h.logger.Error("grpc request failed", zap.Error(err))
	}

	return status.Error(code, newErrorResponse(err).Message)
}

func newProductMessage(p domain.Product) *ProductMessage {
	return &ProductMessage{
		ID:            p.ID,
		Name:          p.Name,
		CurrentStock:  p.CurrentStock.String(),
		Unit:          string(p.Unit),
		MinStockLevel: p.MinStockLevel.String(),
		CategoryName:  p.CategoryName,
		LowStock:      p.IsLowStock(),
	}
}

func newProductMessages(ps []domain.Product) []*ProductMessage {
	out := make([]*ProductMessage, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProductMessage(p))
	}
	return out
}

var _ InventoryServer = (*GRPCHandler)(nil)
