package dashboard

import (
	"context"
	"strings"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/errors"
)

// Counter is any collection that can count its documents.
type Counter interface {
	Count(ctx context.Context, q repository.Query) (int64, error)
}

type PaymentTotals struct {
	AmountDue  float64          `json:"amountDue"`
	AmountPaid float64          `json:"amountPaid"`
	Commission float64          `json:"commission"`
	Balance    float64          `json:"balance"`
	ByStatus   map[string]int64 `json:"byStatus"`
}

type ExpenseTotals struct {
	Total      float64            `json:"total"`
	ByCategory map[string]float64 `json:"byCategory"`
}

type Summary struct {
	Counts   map[string]int64 `json:"counts"`
	Payments PaymentTotals    `json:"payments"`
	Expenses ExpenseTotals    `json:"expenses"`
	// Net is money received less money spent.
	Net     float64          `json:"net"`
	Fitness map[string]int64 `json:"fitness"`
}

type Service struct {
	counters map[string]Counter
	payments repository.Collection[model.Payment]
	expenses repository.Collection[model.Expense]
	labs     repository.Collection[model.LabReport]
}

func NewService(
	counters map[string]Counter,
	payments repository.Collection[model.Payment],
	expenses repository.Collection[model.Expense],
	labs repository.Collection[model.LabReport],
) *Service {
	return &Service{
		counters: counters,
		payments: payments,
		expenses: expenses,
		labs:     labs,
	}
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	out := &Summary{
		Counts:   make(map[string]int64, len(s.counters)),
		Payments: PaymentTotals{ByStatus: map[string]int64{}},
		Expenses: ExpenseTotals{ByCategory: map[string]float64{}},
		Fitness:  map[string]int64{},
	}

	for name, c := range s.counters {
		n, err := c.Count(ctx, repository.Query{})
		if err != nil {
			return nil, errors.Internal(err)
		}
		out.Counts[name] = n
	}

	payments, err := s.payments.List(ctx, repository.Query{})
	if err != nil {
		return nil, errors.Internal(err)
	}
	for _, p := range payments {
		out.Payments.AmountDue += p.Due()
		out.Payments.AmountPaid += p.AmountPaid
		out.Payments.Commission += p.Commission
		out.Payments.Balance += p.Balance
		status := string(p.PaymentStatus)
		if status == "" {
			status = string(model.PaymentUnpaid)
		}
		out.Payments.ByStatus[status]++
	}

	expenses, err := s.expenses.List(ctx, repository.Query{})
	if err != nil {
		return nil, errors.Internal(err)
	}
	for _, e := range expenses {
		out.Expenses.Total += e.Amount
		cat := strings.TrimSpace(e.Category)
		if cat == "" {
			cat = "uncategorized"
		}
		out.Expenses.ByCategory[cat] += e.Amount
	}
	out.Net = out.Payments.AmountPaid - out.Expenses.Total

	labs, err := s.labs.List(ctx, repository.Query{})
	if err != nil {
		return nil, errors.Internal(err)
	}
	for _, r := range labs {
		outcome := r.FitnessOutcome()
		if outcome == "" {
			outcome = "unspecified"
		}
		out.Fitness[outcome]++
	}
	return out, nil
}
