package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quizfunnel/api/models"
)

type SaleStore struct {
	db *sql.DB
}

func NewSaleStore(db *sql.DB) *SaleStore {
	return &SaleStore{db: db}
}

const saleColumns = `id, order_id, status, product, amount, currency, customer_name, customer_email,
	customer_phone, traffic_source, traffic_id, utm_source, utm_medium, utm_campaign, created_at, updated_at`

func scanSale(row rowScanner) (*models.Sale, error) {
	s := &models.Sale{}
	err := row.Scan(&s.ID, &s.OrderID, &s.Status, &s.Product, &s.Amount, &s.Currency, &s.CustomerName,
		&s.CustomerEmail, &s.CustomerPhone, &s.TrafficSource, &s.TrafficID, &s.UTMSource, &s.UTMMedium,
		&s.UTMCampaign, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SaleStore) GetSaleByOrder(ctx context.Context, orderID string) (*models.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE order_id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

func (s *SaleStore) UpsertSale(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sales (
			order_id, status, product, amount, currency, customer_name, customer_email,
			customer_phone, traffic_source, traffic_id, utm_source, utm_medium, utm_campaign, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			product = EXCLUDED.product,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			customer_name = EXCLUDED.customer_name,
			customer_email = EXCLUDED.customer_email,
			customer_phone = EXCLUDED.customer_phone,
			traffic_source = EXCLUDED.traffic_source,
			traffic_id = EXCLUDED.traffic_id,
			utm_source = EXCLUDED.utm_source,
			utm_medium = EXCLUDED.utm_medium,
			utm_campaign = EXCLUDED.utm_campaign,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		sale.OrderID, sale.Status, sale.Product, sale.Amount, sale.Currency, sale.CustomerName, sale.CustomerEmail,
		sale.CustomerPhone, sale.TrafficSource, sale.TrafficID, sale.UTMSource, sale.UTMMedium, sale.UTMCampaign,
		sale.CreatedAt, sale.UpdatedAt,
	).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sale: %w", err)
	}
	return nil
}

func (s *SaleStore) UpdateSaleStatus(ctx context.Context, orderID, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sales SET status = $2, updated_at = now() WHERE order_id = $1`, orderID, status)
	if err != nil {
		return fmt.Errorf("failed to update sale status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *SaleStore) ListSales(ctx context.Context, f models.Filter) ([]models.Sale, error) {
	w := filterWhere(f, "created_at", "product", "traffic_source")
	query := `SELECT ` + saleColumns + ` FROM sales` + w.String() +
		` ORDER BY created_at DESC` + page(w, f, defaultListLimit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []models.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}
	return sales, nil
}
