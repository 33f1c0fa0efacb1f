package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rl1809/taphouse/internal/core/domain"
	"github.com/rl1809/taphouse/internal/core/service"
	"github.com/rl1809/taphouse/internal/port"
)

type HTTPHandler struct {
	orders    *service.OrderService
	inventory *service.InventoryService
}

func NewHTTPHandler(orders *service.OrderService, inventory *service.InventoryService) *HTTPHandler {
	return &HTTPHandler{orders: orders, inventory: inventory}
}

func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.POST("/customers/:customerID/orders", h.PlaceOrder)
	v1.GET("/customers/:customerID/orders", h.ListOrders)
	v1.GET("/customers/:customerID/orders/:orderID", h.GetOrder)
	v1.PUT("/customers/:customerID/orders/:orderID/pickup", h.PickupOrder)
	v1.GET("/products", h.ListProducts)
	v1.POST("/products/:productID/lots", h.AddLot)
}

type orderLineRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

type placeOrderRequest struct {
	CustomerRef string             `json:"customerRef"`
	CallbackURL string             `json:"callbackUrl"`
	Lines       []orderLineRequest `json:"lines" binding:"required"`
}

type orderLineResponse struct {
	ID                uuid.UUID `json:"id"`
	ProductID         uuid.UUID `json:"productId"`
	OrderQuantity     int       `json:"orderQuantity"`
	QuantityAllocated int       `json:"quantityAllocated"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	Version     int                 `json:"version"`
	CustomerID  uuid.UUID           `json:"customerId"`
	CustomerRef string              `json:"customerRef"`
	Status      domain.OrderStatus  `json:"status"`
	CallbackURL string              `json:"callbackUrl,omitempty"`
	Lines       []orderLineResponse `json:"lines"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type pagedOrdersResponse struct {
	Orders []orderResponse `json:"orders"`
	Page   int             `json:"page"`
	Size   int             `json:"size"`
	Total  int             `json:"total"`
}

func toOrderResponse(order *domain.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineResponse{
			ID:                line.ID,
			ProductID:         line.ProductID,
			OrderQuantity:     line.OrderQuantity,
			QuantityAllocated: line.QuantityAllocated,
		})
	}
	return orderResponse{
		ID:          order.ID,
		Version:     order.Version,
		CustomerID:  order.CustomerID,
		CustomerRef: order.CustomerRef,
		Status:      order.Status,
		CallbackURL: order.CallbackURL,
		Lines:       lines,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

func (h *HTTPHandler) PlaceOrder(c *gin.Context) {
	customerID, ok := pathUUID(c, "customerID")
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	lines := make([]service.NewLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, service.NewLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), customerID, req.CustomerRef, req.CallbackURL, lines)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *HTTPHandler) ListOrders(c *gin.Context) {
	customerID, ok := pathUUID(c, "customerID")
	if !ok {
		return
	}

	page := intQuery(c, "page", 0)
	size := intQuery(c, "size", 25)

	paged, err := h.orders.ListOrders(c.Request.Context(), customerID, page, size)
	if err != nil {
		h.writeError(c, err)
		return
	}

	orders := make([]orderResponse, 0, len(paged.Orders))
	for _, order := range paged.Orders {
		orders = append(orders, toOrderResponse(order))
	}

	c.JSON(http.StatusOK, pagedOrdersResponse{
		Orders: orders,
		Page:   paged.Page,
		Size:   paged.Size,
		Total:  paged.Total,
	})
}

func (h *HTTPHandler) GetOrder(c *gin.Context) {
	customerID, ok := pathUUID(c, "customerID")
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "orderID")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), customerID, orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) PickupOrder(c *gin.Context) {
	customerID, ok := pathUUID(c, "customerID")
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "orderID")
	if !ok {
		return
	}

	if err := h.orders.PickupOrder(c.Request.Context(), customerID, orderID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type productResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Style     string    `json:"style"`
	UPC       int64     `json:"upc"`
	MinOnHand int       `json:"minOnHand"`
	BatchSize int       `json:"batchSize"`
}

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	products, err := h.inventory.ListProducts(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse{
			ID:        p.ID,
			Name:      p.Name,
			Style:     p.Style,
			UPC:       p.UPC,
			MinOnHand: p.MinOnHand,
			BatchSize: p.BatchSize,
		})
	}

	c.JSON(http.StatusOK, out)
}

type addLotRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *HTTPHandler) AddLot(c *gin.Context) {
	productID, ok := pathUUID(c, "productID")
	if !ok {
		return
	}

	var req addLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	lot, err := h.inventory.AddLot(c.Request.Context(), productID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":             lot.ID,
		"productId":      lot.ProductID,
		"quantityOnHand": lot.QuantityOnHand,
		"createdAt":      lot.CreatedAt,
	})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, port.ErrOptimisticLock):
		// lost a race with the allocation pass; the client can retry
		c.JSON(http.StatusConflict, gin.H{"error": "order was modified concurrently"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	value := c.Query(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
