package models

import "time"

type OrderItem struct {
	WeightGrams float64 `json:"weight"`
	Quantity    int     `json:"quantity"`
	Commission  float64 `json:"commission"`
}

type Order struct {
	ID             string      `json:"order_id"`
	CustomerID     string      `json:"customer_id"`
	Items          []OrderItem `json:"items"`
	GoldPriceGram  float64     `json:"gold_price_gram"`
	PaymentType    string      `json:"payment_type"`
	CommissionType string      `json:"commission_type"`
	WhatsAppNumber string      `json:"whatsapp_number"`
	Emirate        string      `json:"emirate"`
	City           string      `json:"city"`
	Address        string      `json:"address"`
	PurchasedAt    time.Time   `json:"purchase_date"`
}
