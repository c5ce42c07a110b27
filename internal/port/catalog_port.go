package port

import (
	"context"

	"github.com/nikolayk812/repairshop-cart/internal/domain"
)

type Catalog interface {
	ListParts(ctx context.Context) ([]domain.CatalogItem, error)
	ListServices(ctx context.Context) ([]domain.CatalogItem, error)
}
