package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kjannette/vitanova-gold/internal/models"
)

const maxOrderBody = 64 << 10

type orderItemRequest struct {
	Weight     float64 `json:"weight"`
	Quantity   *int    `json:"quantity"`
	Commission float64 `json:"commission"`
}

type orderRequest struct {
	CustomerID     string             `json:"customer_id"`
	Items          []orderItemRequest `json:"items"`
	GoldPriceGram  float64            `json:"gold_price_gram"`
	PaymentType    string             `json:"payment_type"`
	CommissionType string             `json:"commission_type"`
	WhatsAppNumber string             `json:"whatsapp_number"`
	Emirate        string             `json:"emirate"`
	City           string             `json:"city"`
	Address        string             `json:"address"`
}

type createOrderResponse struct {
	Success    bool   `json:"success"`
	OrderID    string `json:"order_id"`
	ItemsCount int    `json:"items_count"`
	Message    string `json:"message"`
}

type customerOrdersResponse struct {
	CustomerID  string         `json:"customer_id"`
	OrdersCount int            `json:"orders_count"`
	Orders      []models.Order `json:"orders"`
}

// toOrder validates the request and applies defaults.
func (req *orderRequest) toOrder() (*models.Order, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return nil, fmt.Errorf("missing customer_id")
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("no items in order")
	}
	if req.GoldPriceGram <= 0 {
		return nil, fmt.Errorf("invalid gold price")
	}

	o := &models.Order{
		CustomerID:     customerID,
		GoldPriceGram:  req.GoldPriceGram,
		PaymentType:    req.PaymentType,
		CommissionType: req.CommissionType,
		WhatsAppNumber: req.WhatsAppNumber,
		Emirate:        req.Emirate,
		City:           req.City,
		Address:        req.Address,
	}
	if o.PaymentType == "" {
		o.PaymentType = "Cash on Delivery"
	}
	if o.CommissionType == "" {
		o.CommissionType = "fixed"
	}

	for i, it := range req.Items {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		if it.Weight <= 0 {
			return nil, fmt.Errorf("item %d: weight must be positive", i)
		}
		if qty < 1 {
			return nil, fmt.Errorf("item %d: quantity must be at least 1", i)
		}
		if it.Commission < 0 {
			return nil, fmt.Errorf("item %d: commission cannot be negative", i)
		}
		o.Items = append(o.Items, models.OrderItem{
			WeightGrams: it.Weight,
			Quantity:    qty,
			Commission:  it.Commission,
		})
	}
	return o, nil
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orders == nil {
		writeError(w, http.StatusServiceUnavailable, "orders are not enabled")
		return
	}

	var req orderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := req.toOrder()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.deps.Orders.Record(r.Context(), order)
	if err != nil {
		fmt.Printf("[API] Error recording order for %s: %v\n", order.CustomerID, err)
		writeError(w, http.StatusInternalServerError, "failed to record order")
		return
	}

	fmt.Printf("[API] Order %s saved: %d items for customer %s\n", saved.ID, len(saved.Items), saved.CustomerID)
	writeJSON(w, http.StatusCreated, createOrderResponse{
		Success:    true,
		OrderID:    saved.ID,
		ItemsCount: len(saved.Items),
		Message:    "Order created successfully",
	})
}

func (s *Server) handleCustomerOrders(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orders == nil {
		writeError(w, http.StatusServiceUnavailable, "orders are not enabled")
		return
	}

	customerID := r.PathValue("id")
	orders, err := s.deps.Orders.GetByCustomer(r.Context(), customerID)
	if err != nil {
		fmt.Printf("[API] Error fetching orders for %s: %v\n", customerID, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}

	if limit := parseLimit(r, maxQueryLimit); len(orders) > limit {
		orders = orders[:limit]
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, customerOrdersResponse{
		CustomerID:  customerID,
		OrdersCount: len(orders),
		Orders:      orders,
	})
}
