// test/mocks/mocks.go

// Package mocks contains generated mocks for the application's interfaces.
// To regenerate mocks, run `go generate ./test/mocks` from the root directory.
package mocks

//go:generate mockgen -source=../../internal/core/ports/inventory.go -destination=inventory_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/customers.go -destination=customers_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/sales.go -destination=sales_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/reports.go -destination=reports_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/services.go -destination=services_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/jobs.go -destination=jobs_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/cache.go -destination=cache_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/database.go -destination=database_mock.go -package=mocks
