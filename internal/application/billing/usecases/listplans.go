package usecases

import (
	"github.com/corates/billing/internal/application/billing/dto"
	"github.com/corates/billing/internal/domain/billing"
)

type ListPlansUseCase struct {
	catalog *billing.Catalog
}

func NewListPlansUseCase(catalog *billing.Catalog) *ListPlansUseCase {
	return &ListPlansUseCase{catalog: catalog}
}

func (uc *ListPlansUseCase) Execute() *dto.CatalogDTO {
	return dto.ToCatalogDTO(uc.catalog)
}
