// Package dbtest opens throwaway in-memory SQLite databases carrying the
// storefront schema for repository and service tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	"github.com/baanfurniture/storefront-backend/pkg/types"
)

var schema = []string{
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		image_url TEXT,
		cash_price NUMERIC NOT NULL,
		cash_promo_price NUMERIC,
		installment_price NUMERIC,
		installment_promo_price NUMERIC,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE customers (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE cart_items (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		product_id TEXT NOT NULL REFERENCES products(id),
		pricing_variant TEXT NOT NULL,
		pricing_label TEXT NOT NULL DEFAULT '',
		installment_periods INTEGER NOT NULL DEFAULT 0,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (customer_id, product_id, pricing_variant)
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'THB',
		total_amount NUMERIC NOT NULL,
		vat_amount NUMERIC NOT NULL DEFAULT 0,
		payment_method TEXT NOT NULL,
		installment_periods INTEGER NOT NULL DEFAULT 1,
		monthly_payment NUMERIC NOT NULL DEFAULT 0,
		shipping_address TEXT NOT NULL,
		order_status TEXT NOT NULL DEFAULT 'pending',
		cancel_reason TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_details (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		pricing_variant TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price NUMERIC NOT NULL,
		line_total NUMERIC NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE installment_schedules (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		installment_number INTEGER NOT NULL,
		installment_amount NUMERIC NOT NULL,
		payment_due_date DATE NOT NULL,
		payment_date DATETIME,
		payment_status TEXT NOT NULL DEFAULT 'unpaid',
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (order_id, installment_number)
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a fresh database private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return openDSN(t, fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=1", name, uuid.NewString()[:8]))
}

// OpenFile returns a file-backed database in a temp dir. Tests that write
// from several goroutines use it so SQLite can serialise them with its
// busy timeout.
func OpenFile(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront.db")
	return openDSN(t, fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000", path))
}

func openDSN(t testing.TB, dsn string) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// SeedProduct inserts a product with the given cash price. Products are
// active unless an option says otherwise.
func SeedProduct(t testing.TB, conn *gorm.DB, name string, cash string, opts ...func(*models.Product)) models.Product {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		Name:      name,
		CashPrice: decimal.RequireFromString(cash),
		IsActive:  true,
	}
	for _, opt := range opts {
		opt(&product)
	}
	// Select("*") writes is_active=false instead of letting the column default win.
	require.NoError(t, conn.Select("*").Create(&product).Error)
	return product
}

// SeedCustomer inserts a customer row.
func SeedCustomer(t testing.TB, conn *gorm.DB, email string) models.Customer {
	t.Helper()
	customer := models.Customer{
		ID:        uuid.New(),
		Email:     email,
		FirstName: "Test",
		LastName:  "Customer",
	}
	require.NoError(t, conn.Create(&customer).Error)
	return customer
}

// SeedInstallmentOrder inserts an installment order in status with one
// unpaid entry of amount per due date.
func SeedInstallmentOrder(t testing.TB, conn *gorm.DB, customerID uuid.UUID, status enums.OrderStatus, amount string, dueDates ...time.Time) models.Order {
	t.Helper()
	monthly := decimal.RequireFromString(amount)
	order := models.Order{
		ID:                 uuid.New(),
		CustomerID:         customerID,
		Currency:           enums.CurrencyTHB,
		TotalAmount:        monthly.Mul(decimal.NewFromInt(int64(len(dueDates)))),
		PaymentMethod:      enums.PaymentMethodInstallment,
		InstallmentPeriods: len(dueDates),
		MonthlyPayment:     monthly,
		ShippingAddress:    types.ShippingAddress{RecipientName: "Test", Phone: "0800000000", Address: "1 Test Road"},
		Status:             status,
	}
	for i, due := range dueDates {
		order.Schedule = append(order.Schedule, models.InstallmentEntry{
			ID:                uuid.New(),
			InstallmentNumber: i + 1,
			Amount:            monthly,
			DueDate:           due,
			Status:            enums.InstallmentStatusUnpaid,
		})
	}
	require.NoError(t, conn.Create(&order).Error)
	return order
}

// Price returns a pointer to a decimal parsed from s, for optional price fields.
func Price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
