package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ammerola/pharmacy-pos/internal/pkg/config"
	"github.com/ammerola/pharmacy-pos/internal/pkg/logger"
)

// SeederState records what earlier runs already inserted
type SeederState struct {
	SeededItems     []string  `json:"seeded_items"`
	SeededCustomers []string  `json:"seeded_customers"`
	LastUpdate      time.Time `json:"last_update"`
}

func loadState(path string) SeederState {
	var state SeederState
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &state)
	}
	return state
}

func saveState(path string, state SeederState) error {
	state.LastUpdate = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Seeder inserts catalogue rows. Items are keyed by case-insensitive name
// and customers by phone, so reruns do not duplicate rows.
type Seeder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func (s *Seeder) SaveItems(ctx context.Context, items []CatalogItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO items (name, description, unit_price, quantity_on_hand, manufacturer, expiry_date)
			SELECT $1, $2, $3, $4, $5, $6
			WHERE NOT EXISTS (SELECT 1 FROM items WHERE lower(name) = lower($1))`,
			item.Name, item.Description, item.UnitPrice, item.Quantity, item.Manufacturer, item.ExpiryDate)
	}
	return s.sendBatch(ctx, batch, "item")
}

func (s *Seeder) SaveCustomers(ctx context.Context, customers []CatalogCustomer) (int, error) {
	if len(customers) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, c := range customers {
		batch.Queue(`
			INSERT INTO customers (name, phone, email, address)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (phone) DO NOTHING`,
			c.Name, c.Phone, c.Email, c.Address)
	}
	return s.sendBatch(ctx, batch, "customer")
}

func (s *Seeder) sendBatch(ctx context.Context, batch *pgx.Batch, kind string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	br := tx.SendBatch(ctx, batch)
	for range batch.Len() {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("failed to insert %s: %w", kind, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("saved catalogue rows", slog.String("kind", kind), slog.Int("inserted", inserted))
	return inserted, nil
}

func main() {
	var (
		catalogFile = flag.String("catalog", "", "Excel workbook with Items and Customers sheets (built-in demo data when empty)")
		stateFile   = flag.String("state", "./.seed_state.json", "State file for tracking seeded rows")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun      = flag.Bool("dry-run", false, "Preview changes without modifying database")
		force       = flag.Bool("force", false, "Ignore the state file and offer every row again")
	)
	flag.Parse()

	log := logger.SetupLogger(*logLevel, "json").Logger
	slog.SetDefault(log)

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("failed to load configuration", logger.Err(err))
		os.Exit(1)
	}

	var catalog *Catalog
	if *catalogFile == "" {
		catalog = DemoCatalog(time.Now().UTC())
		fmt.Println("PROGRESS: Using built-in demo catalogue")
	} else {
		catalog, err = LoadCatalog(*catalogFile)
		if err != nil {
			log.Error("failed to load catalogue", slog.String("file", *catalogFile), logger.Err(err))
			os.Exit(1)
		}
		fmt.Printf("PROGRESS: Loaded %s\n", *catalogFile)
	}
	for _, p := range catalog.Problems {
		fmt.Printf("WARNING: %s\n", p)
	}

	var state SeederState
	if !*force {
		state = loadState(*stateFile)
	}

	items := slices.DeleteFunc(slices.Clone(catalog.Items), func(it CatalogItem) bool {
		return slices.Contains(state.SeededItems, strings.ToLower(it.Name))
	})
	customers := slices.DeleteFunc(slices.Clone(catalog.Customers), func(c CatalogCustomer) bool {
		return slices.Contains(state.SeededCustomers, c.Phone)
	})
	fmt.Printf("PROGRESS: %d items and %d customers to seed (%d and %d skipped from earlier runs)\n",
		len(items), len(customers), len(catalog.Items)-len(items), len(catalog.Customers)-len(customers))

	insertedItems, insertedCustomers := 0, 0
	if !*dryRun {
		ctx := context.Background()
		pool, err := pgxpool.New(ctx, cfg.GetDatabaseURL())
		if err != nil {
			log.Error("failed to connect to database", logger.Err(err))
			os.Exit(1)
		}
		defer pool.Close()

		seeder := &Seeder{pool: pool, logger: log}

		insertedItems, err = seeder.SaveItems(ctx, items)
		if err != nil {
			fmt.Printf("ERROR: Failed to seed items - %v\n", err)
			log.Error("failed to seed items", logger.Err(err))
			os.Exit(1)
		}
		fmt.Printf("SUCCESS: Seeded items - %d inserted\n", insertedItems)
		for _, it := range items {
			state.SeededItems = append(state.SeededItems, strings.ToLower(it.Name))
		}

		insertedCustomers, err = seeder.SaveCustomers(ctx, customers)
		if err != nil {
			fmt.Printf("ERROR: Failed to seed customers - %v\n", err)
			log.Error("failed to seed customers", logger.Err(err))
		} else {
			fmt.Printf("SUCCESS: Seeded customers - %d inserted\n", insertedCustomers)
			for _, c := range customers {
				state.SeededCustomers = append(state.SeededCustomers, c.Phone)
			}
		}

		if err := saveState(*stateFile, state); err != nil {
			log.Warn("failed to write state file", slog.String("file", *stateFile), logger.Err(err))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SEEDING SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Items offered:      %d\n", len(items))
	fmt.Printf("Items inserted:     %d\n", insertedItems)
	fmt.Printf("Customers offered:  %d\n", len(customers))
	fmt.Printf("Customers inserted: %d\n", insertedCustomers)
	if len(catalog.Problems) > 0 {
		fmt.Printf("\nRejected rows (%d):\n", len(catalog.Problems))
		for _, p := range catalog.Problems {
			fmt.Printf("  - %s\n", p)
		}
	}

	log.Info("seed operation completed",
		slog.Int("items_inserted", insertedItems),
		slog.Int("customers_inserted", insertedCustomers),
		slog.Int("rejected_rows", len(catalog.Problems)))

	if *dryRun {
		fmt.Println("\n[DRY RUN] No changes were made to the database")
	}
}
