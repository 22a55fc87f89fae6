package main

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/baanfurniture/storefront-backend/pkg/config"
	"github.com/baanfurniture/storefront-backend/pkg/db"
	"github.com/baanfurniture/storefront-backend/pkg/db/dbtest"
	"github.com/baanfurniture/storefront-backend/pkg/logger"
)

func TestBuildServicesWiresCatalogIntoPricing(t *testing.T) {
	conn := dbtest.Open(t)
	p := dbtest.SeedProduct(t, conn, "Teak bed frame", "12000")

	cfg := &config.Config{}
	cfg.Pricing.VATRate = decimal.RequireFromString("0.07")
	cfg.Pricing.PriceTolerance = decimal.NewFromInt(1)

	svcs, err := buildServices(cfg, logger.Nop(), db.Wrap(conn), prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, svcs.cart)
	require.NotNil(t, svcs.orders)
	require.NotNil(t, svcs.notifier)

	quote, err := svcs.pricing.Quote(context.Background(), p.ID, 6)
	require.NoError(t, err)
	require.Equal(t, p.ID, quote.ProductID)
	require.NotNil(t, quote.Cash)
}
