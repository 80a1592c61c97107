package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"
)

// CatalogItem is one product row of a seed catalogue
type CatalogItem struct {
	Name         string
	Description  string
	Manufacturer string
	UnitPrice    decimal.Decimal
	Quantity     int
	ExpiryDate   *time.Time
}

// CatalogCustomer is one customer row of a seed catalogue
type CatalogCustomer struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// Catalog holds everything the seeder inserts
type Catalog struct {
	Items     []CatalogItem
	Customers []CatalogCustomer
	Problems  []string
}

const (
	itemsSheet     = "Items"
	customersSheet = "Customers"
)

// LoadCatalog reads the Items and Customers sheets of a workbook. Item
// columns are name, description, manufacturer, unit price, quantity and
// expiry date (YYYY-MM-DD); customer columns are name, phone, email and
// address. The first row of each sheet is a header.
func LoadCatalog(path string) (*Catalog, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalogue: %w", err)
	}

	catalog := &Catalog{}
	if sheet, ok := file.Sheet[itemsSheet]; ok {
		err := forEachDataRow(sheet, func(rowNum int, get func(int) string) {
			item, perr := parseItemRow(get)
			if perr != nil {
				catalog.Problems = append(catalog.Problems, fmt.Sprintf("%s row %d: %v", itemsSheet, rowNum, perr))
				return
			}
			catalog.Items = append(catalog.Items, item)
		})
		if err != nil {
			return nil, err
		}
	}

	if sheet, ok := file.Sheet[customersSheet]; ok {
		err := forEachDataRow(sheet, func(rowNum int, get func(int) string) {
			customer := CatalogCustomer{Name: get(0), Phone: get(1), Email: get(2), Address: get(3)}
			if customer.Name == "" || customer.Phone == "" {
				catalog.Problems = append(catalog.Problems, fmt.Sprintf("%s row %d: name and phone are required", customersSheet, rowNum))
				return
			}
			catalog.Customers = append(catalog.Customers, customer)
		})
		if err != nil {
			return nil, err
		}
	}

	if len(catalog.Items) == 0 && len(catalog.Customers) == 0 && len(catalog.Problems) == 0 {
		return nil, fmt.Errorf("catalogue has no %q or %q sheet", itemsSheet, customersSheet)
	}
	return catalog, nil
}

func forEachDataRow(sheet *xlsx.Sheet, fn func(rowNum int, get func(int) string)) error {
	rowNum := 0
	err := sheet.ForEachRow(func(r *xlsx.Row) error {
		rowNum++
		if rowNum == 1 {
			return nil
		}

		get := func(i int) string {
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			if s, err := c.FormattedValue(); err == nil {
				return strings.TrimSpace(s)
			}
			return strings.TrimSpace(c.String())
		}

		blank := true
		for i := range 4 {
			if get(i) != "" {
				blank = false
				break
			}
		}
		if !blank {
			fn(rowNum, get)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read %s rows: %w", sheet.Name, err)
	}
	return nil
}

func parseItemRow(get func(int) string) (CatalogItem, error) {
	item := CatalogItem{Name: get(0), Description: get(1), Manufacturer: get(2)}
	if item.Name == "" {
		return item, fmt.Errorf("name is required")
	}

	price, err := decimal.NewFromString(strings.TrimPrefix(get(3), "$"))
	if err != nil || price.IsNegative() {
		return item, fmt.Errorf("invalid unit price %q", get(3))
	}
	item.UnitPrice = price.Round(2)

	if qty := get(4); qty != "" {
		n, err := strconv.Atoi(strings.ReplaceAll(qty, ",", ""))
		if err != nil || n < 0 {
			return item, fmt.Errorf("invalid quantity %q", qty)
		}
		item.Quantity = n
	}

	if expiry := get(5); expiry != "" {
		t, err := time.Parse(time.DateOnly, expiry)
		if err != nil {
			return item, fmt.Errorf("invalid expiry date %q", expiry)
		}
		item.ExpiryDate = &t
	}
	return item, nil
}

// DemoCatalog is used when no catalogue file is given
func DemoCatalog(now time.Time) *Catalog {
	expiry := func(months int) *time.Time {
		t := time.Date(now.Year(), now.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
		return &t
	}
	price := decimal.RequireFromString

	return &Catalog{
		Items: []CatalogItem{
			{Name: "Paracetamol 500mg", Description: "Box of 20 tablets", Manufacturer: "Medipharm", UnitPrice: price("3.49"), Quantity: 240, ExpiryDate: expiry(18)},
			{Name: "Ibuprofen 400mg", Description: "Box of 24 tablets", Manufacturer: "Medipharm", UnitPrice: price("4.99"), Quantity: 180, ExpiryDate: expiry(24)},
			{Name: "Amoxicillin 250mg", Description: "21 capsules", Manufacturer: "Healix", UnitPrice: price("8.75"), Quantity: 60, ExpiryDate: expiry(12)},
			{Name: "Cetirizine 10mg", Description: "30 tablets", Manufacturer: "Allerfree", UnitPrice: price("5.20"), Quantity: 95, ExpiryDate: expiry(20)},
			{Name: "Oral Rehydration Salts", Description: "10 sachets", Manufacturer: "Hydralyte", UnitPrice: price("6.10"), Quantity: 40, ExpiryDate: expiry(30)},
			{Name: "Vitamin D3 1000IU", Description: "90 softgels", Manufacturer: "Sunvita", UnitPrice: price("9.95"), Quantity: 8, ExpiryDate: expiry(14)},
			{Name: "Saline Nasal Spray", Description: "30ml", Manufacturer: "Breathe", UnitPrice: price("4.25"), Quantity: 5, ExpiryDate: expiry(9)},
			{Name: "Cough Syrup", Description: "Expired stock kept for returns", Manufacturer: "Healix", UnitPrice: price("7.40"), Quantity: 12, ExpiryDate: expiry(-2)},
			{Name: "Digital Thermometer", Manufacturer: "Thermo", UnitPrice: price("12.00"), Quantity: 15},
			{Name: "Adhesive Bandages", Description: "Pack of 40", Manufacturer: "Woundcare", UnitPrice: price("2.99"), Quantity: 0},
		},
		Customers: []CatalogCustomer{
			{Name: "Ana Lopez", Phone: "5550100", Email: "ana@example.com", Address: "12 Elm Street"},
			{Name: "Ben Okafor", Phone: "5550101", Email: "ben@example.com"},
			{Name: "Chen Wei", Phone: "5550102", Address: "4 Harbour Road"},
			{Name: "Walk-in", Phone: "0000000"},
		},
	}
}
