package catalog

import (
	"github.com/nikolayk812/repairshop-cart/internal/domain"
	"github.com/shopspring/decimal"
)

// SampleParts is shown when the shop API cannot be reached.
func SampleParts() []domain.CatalogItem {
	part := func(id, name, category string, price int64, stock int, desc string) domain.CatalogItem {
		return domain.CatalogItem{
			ID:          domain.ItemID(id),
			Name:        name,
			Category:    category,
			Price:       decimal.NewFromInt(price),
			Stock:       stock,
			Description: desc,
		}
	}

	return []domain.CatalogItem{
		part("1", "Intel Core i7-12700K", "Processors", 25000, 15, "High-performance 12th gen desktop processor"),
		part("2", "AMD Ryzen 7 5800X", "Processors", 22000, 12, "8-core high-performance processor"),
		part("4", "NVIDIA RTX 4070", "Graphics Cards", 45000, 8, "High-end gaming graphics card"),
		part("7", "Corsair 16GB DDR4 3200MHz", "Memory", 6500, 25, "High-speed gaming memory kit"),
		part("10", "Samsung 1TB NVMe SSD", "Storage", 8000, 20, "Fast NVMe SSD storage drive"),
		part("11", "WD Blue 2TB HDD", "Storage", 4500, 25, "High-capacity traditional storage"),
		part("14", "MSI B450 Pro Max", "Motherboards", 8500, 15, "Budget-friendly AMD motherboard"),
		part("16", "Corsair 750W Gold", "Power Supply", 8500, 12, "Fully modular 80+ Gold PSU"),
	}
}
