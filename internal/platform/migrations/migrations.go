package migrations

import (
	"gorm.io/gorm"

	cartpostgres "github.com/Apurer/order-engine/internal/domains/carts/adapters/persistence/postgres"
	inventorypostgres "github.com/Apurer/order-engine/internal/domains/inventory/adapters/persistence/postgres"
	orderpostgres "github.com/Apurer/order-engine/internal/domains/orders/adapters/persistence/postgres"
	paymentpostgres "github.com/Apurer/order-engine/internal/domains/payments/adapters/persistence/postgres"
)

// Models lists the schema of every bounded context's Postgres adapter.
func Models() []any {
	var models []any
	models = append(models, inventorypostgres.Models()...)
	models = append(models, orderpostgres.Models()...)
	models = append(models, cartpostgres.Models()...)
	models = append(models, paymentpostgres.Models()...)
	return models
}

// Run applies the schema for the bounded contexts.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(Models()...)
}
