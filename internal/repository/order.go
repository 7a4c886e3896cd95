package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/vitanova-gold/internal/models"
)

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Record stores an order as one row per item sharing a generated order id.
// All rows are written in a single transaction.
func (r *OrderRepo) Record(ctx context.Context, o *models.Order) (*models.Order, error) {
	out := *o
	out.ID = uuid.NewString()
	if out.PurchasedAt.IsZero() {
		out.PurchasedAt = time.Now()
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i, item := range out.Items {
			_, err := tx.Exec(ctx,
				`INSERT INTO orders
				 (order_id, line_no, customer_id, weight_grams, quantity, commission,
				  gold_price_gram, purchase_date, payment_type, commission_type,
				  whatsapp_number, emirate, city, address)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
				out.ID, i, out.CustomerID, item.WeightGrams, item.Quantity, item.Commission,
				out.GoldPriceGram, out.PurchasedAt, out.PaymentType, out.CommissionType,
				out.WhatsAppNumber, out.Emirate, out.City, out.Address,
			)
			if err != nil {
				return fmt.Errorf("insert item %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByCustomer returns a customer's orders, newest first.
func (r *OrderRepo) GetByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, customer_id, weight_grams, quantity, commission,
		        gold_price_gram, purchase_date, payment_type, commission_type,
		        whatsapp_number, emirate, city, address
		 FROM orders WHERE customer_id = $1
		 ORDER BY purchase_date DESC, order_id, line_no ASC`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// --- scan helpers ---

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// collectOrders folds item rows into orders, preserving first-seen order.
func collectOrders(rows rowsIter) ([]models.Order, error) {
	var out []models.Order
	index := map[string]int{}
	for rows.Next() {
		var o models.Order
		var item models.OrderItem
		if err := rows.Scan(
			&o.ID, &o.CustomerID, &item.WeightGrams, &item.Quantity, &item.Commission,
			&o.GoldPriceGram, &o.PurchasedAt, &o.PaymentType, &o.CommissionType,
			&o.WhatsAppNumber, &o.Emirate, &o.City, &o.Address,
		); err != nil {
			return nil, err
		}

		i, ok := index[o.ID]
		if !ok {
			index[o.ID] = len(out)
			o.Items = []models.OrderItem{item}
			out = append(out, o)
			continue
		}
		out[i].Items = append(out[i].Items, item)
	}
	return out, rows.Err()
}
