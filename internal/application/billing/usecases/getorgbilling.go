package usecases

import (
	"context"

	"github.com/corates/billing/internal/application/billing/dto"
)

// GetOrgBillingUseCase renders the admin billing view of one org.
type GetOrgBillingUseCase struct {
	resolve *ResolveAccessUseCase
}

func NewGetOrgBillingUseCase(resolve *ResolveAccessUseCase) *GetOrgBillingUseCase {
	return &GetOrgBillingUseCase{resolve: resolve}
}

func (uc *GetOrgBillingUseCase) Execute(ctx context.Context, orgID string) (*dto.OrgBillingDTO, error) {
	now := uc.resolve.clock.Now()
	res, subs, grants, err := uc.resolve.resolveWithHistory(ctx, orgID, now)
	if err != nil {
		return nil, err
	}
	return &dto.OrgBillingDTO{
		Billing:       dto.ToResolvedBillingDTO(orgID, res, uc.resolve.Catalog(), now),
		Subscriptions: dto.ToSubscriptionDTOList(subs),
		Grants:        dto.ToGrantDTOList(grants),
	}, nil
}
