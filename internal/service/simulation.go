package service

import "github.com/boddenberg/solar-leads-bfa/internal/domain"

// Simulate is the public economy teaser shown before the lead form.
func Simulate(req *domain.SimulationRequest) (*domain.SimulationResponse, error) {
	bill, err := domain.ParseBillValue(req.BillValue)
	if err != nil {
		return nil, err
	}
	e := domain.Simulate(bill)
	return &domain.SimulationResponse{
		BillValue:        bill,
		MonthlyEconomy:   e.Monthly,
		YearlyEconomy:    e.Yearly,
		FunEquivalent:    domain.FunEquivalent(e.Yearly),
		TeaserEquivalent: domain.TeaserEquivalent(e.Yearly),
	}, nil
}
