package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rl1809/shop-inventory/internal/adapter/auth"
	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/core/service"
)

const ctxUserIDKey = "user_id"

const dateLayout = "2006-01-02"

type Services struct {
	Stock      *service.StockService
	Query      *service.QueryService
	Catalog    *service.CatalogService
	Reconciler *service.Reconciler
}

type HTTPHandler struct {
	services Services
	verifier *auth.Verifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewHTTPHandler(services Services, verifier *auth.Verifier, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		services: services,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

// NewApp returns a fiber app with all routes registered.
func (h *HTTPHandler) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          h.handleError,
		DisableStartupMessage: true,
	})
	h.Register(app)
	return app
}

func (h *HTTPHandler) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	api := app.Group("/api", h.RequireUser)
	api.Get("/me", h.Me)
	api.Get("/categories", h.ListCategories)
	api.Get("/products", h.ListProducts)
	api.Post("/products", h.CreateProduct)
	api.Get("/products/:id", h.GetProduct)
	api.Get("/products/:id/transactions", h.ProductHistory)
	api.Post("/products/:id/reconcile", h.Reconcile)
	api.Post("/stock-movements", h.ApplyStockMovement)
	api.Get("/low-stock", h.ListLowStock)
	api.Get("/movements/daily", h.DailyMovementTotals)
	api.Get("/activity", h.RecentActivity)
	api.Get("/overview", h.Overview)
}

// RequireUser resolves the current user from the bearer token.
func (h *HTTPHandler) RequireUser(c *fiber.Ctx) error {
	userID, err := h.verifier.CurrentUser(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}
	c.Locals(ctxUserIDKey, userID)
	return c.Next()
}

func currentUser(c *fiber.Ctx) string {
	userID, _ := c.Locals(ctxUserIDKey).(string)
	return userID
}

func (h *HTTPHandler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *HTTPHandler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"user_id": currentUser(c)})
}

func (h *HTTPHandler) ApplyStockMovement(c *fiber.Ctx) error {
	var req stockMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	product, err := h.services.Stock.ApplyStockMovement(c.UserContext(), service.MovementRequest{
		OwnerID:   currentUser(c),
		ProductID: req.ProductID,
		Direction: domain.Direction(req.Direction),
		Quantity:  rawNumber(req.Quantity),
		Notes:     req.Notes,
		RequestID: req.RequestID,
	})
	if err != nil {
		return err
	}

	return c.JSON(newProductResponse(*product))
}

func (h *HTTPHandler) CreateProduct(c *fiber.Ctx) error {
	var req createProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	product, err := h.services.Catalog.CreateProduct(c.UserContext(), service.NewProduct{
		OwnerID:       currentUser(c),
		Name:          req.Name,
		OpeningStock:  rawNumber(req.CurrentStock),
		Unit:          req.Unit,
		MinStockLevel: rawNumber(req.MinStockLevel),
		CategoryID:    req.CategoryID,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(newProductResponse(*product))
}

func (h *HTTPHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.services.Catalog.GetProduct(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(newProductResponse(*product))
}

func (h *HTTPHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.services.Catalog.ListProducts(c.UserContext(), currentUser(c), c.Query("search"))
	if err != nil {
		return err
	}
	return c.JSON(newProductResponses(products))
}

func (h *HTTPHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.services.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}

	resp := make([]fiber.Map, 0, len(categories))
	for _, cat := range categories {
		resp = append(resp, fiber.Map{"id": cat.ID, "name": cat.Name})
	}
	return c.JSON(resp)
}

func (h *HTTPHandler) ProductHistory(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	txs, err := h.services.Catalog.ProductHistory(c.UserContext(), currentUser(c), c.Params("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(newTransactionResponses(txs))
}

func (h *HTTPHandler) Reconcile(c *fiber.Ctx) error {
	result, err := h.services.Reconciler.Reconcile(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"product_id": result.ProductID,
		"previous":   result.Previous,
		"recomputed": result.Recomputed,
		"corrected":  result.Corrected,
	})
}

func (h *HTTPHandler) ListLowStock(c *fiber.Ctx) error {
	report, err := h.services.Query.ListLowStock(c.UserContext(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(lowStockResponse{
		Critical: newProductResponses(report.Critical),
		Warning:  newProductResponses(report.Warning),
	})
}

func (h *HTTPHandler) DailyMovementTotals(c *fiber.Ctx) error {
	day := h.now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
		}
		day = parsed
	}

	totals, err := h.services.Query.DailyMovementTotals(c.UserContext(), currentUser(c), day)
	if err != nil {
		return err
	}
	return c.JSON(totalsResponse{
		Date:     day.Format(dateLayout),
		StockIn:  totals.StockIn,
		StockOut: totals.StockOut,
	})
}

func (h *HTTPHandler) RecentActivity(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	txs, err := h.services.Query.RecentActivity(c.UserContext(), currentUser(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(newTransactionResponses(txs))
}

func (h *HTTPHandler) Overview(c *fiber.Ctx) error {
	now := h.now()
	overview, err := h.services.Query.Overview(c.UserContext(), currentUser(c), now)
	if err != nil {
		return err
	}
	return c.JSON(overviewResponse{
		TotalProducts: overview.TotalProducts,
		LowStockCount: overview.LowStockCount,
		Today: totalsResponse{
			Date:     now.Format(dateLayout),
			StockIn:  overview.Today.StockIn,
			StockOut: overview.Today.StockOut,
		},
		Recent: newTransactionResponses(overview.Recent),
	})
}

func queryLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "limit must be a non-negative integer")
	}
	return limit, nil
}

func (h *HTTPHandler) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := "bad_request"
		switch fe.Code {
		case fiber.StatusUnauthorized:
			kind = "unauthenticated"
		case fiber.StatusNotFound:
			kind = "not_found"
		case fiber.StatusMethodNotAllowed:
			kind = "method_not_allowed"
		}
		return c.Status(fe.Code).JSON(errorResponse{Error: kind, Message: fe.Message})
	}

	status := httpStatus(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.Status(status).JSON(newErrorResponse(err))
}
