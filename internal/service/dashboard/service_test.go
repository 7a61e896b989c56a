package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository/memory"
)

func TestSummary(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	payments := memory.NewCollection[model.Payment](store, model.CollectionPayments)
	expenses := memory.NewCollection[model.Expense](store, model.CollectionExpenses)
	labs := memory.NewCollection[model.LabReport](store, model.CollectionLabReports)
	patients := memory.NewCollection[model.Patient](store, model.CollectionPatients)

	for _, p := range []struct{ due, paid, commission float64 }{
		{1000, 1000, 100},
		{800, 300, 50},
		{500, 0, 0},
	} {
		due := p.due
		pay := &model.Payment{PatientName: "x", AmountDue: &due, AmountPaid: p.paid, Commission: p.commission}
		pay.Derive()
		require.NoError(t, payments.Insert(ctx, pay))
	}
	require.NoError(t, expenses.Insert(ctx, &model.Expense{Description: "gloves", Amount: 200, Category: "lab"}))
	require.NoError(t, expenses.Insert(ctx, &model.Expense{Description: "fuel", Amount: 50}))

	fit := &model.LabReport{PatientRef: model.PatientRef{PatientName: "a", LabNumber: "L-1"}}
	fit.LabRemarks.FitnessEvaluation.OverallStatus = "FIT"
	require.NoError(t, labs.Insert(ctx, fit))
	require.NoError(t, labs.Insert(ctx, &model.LabReport{PatientRef: model.PatientRef{PatientName: "b", LabNumber: "L-2"}}))
	require.NoError(t, patients.Insert(ctx, &model.Patient{PatientName: "a", Gender: "F", MedicalType: "visa"}))

	svc := NewService(map[string]Counter{
		model.CollectionPatients:   patients,
		model.CollectionLabReports: labs,
	}, payments, expenses, labs)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), sum.Counts[model.CollectionPatients])
	assert.Equal(t, int64(2), sum.Counts[model.CollectionLabReports])

	assert.Equal(t, 2300.0, sum.Payments.AmountDue)
	assert.Equal(t, 1300.0, sum.Payments.AmountPaid)
	assert.Equal(t, 150.0, sum.Payments.Commission)
	assert.Equal(t, 1000.0, sum.Payments.Balance)
	assert.Equal(t, map[string]int64{"Paid": 1, "Partial": 1, "Unpaid": 1}, sum.Payments.ByStatus)

	assert.Equal(t, 250.0, sum.Expenses.Total)
	assert.Equal(t, map[string]float64{"lab": 200, "uncategorized": 50}, sum.Expenses.ByCategory)
	assert.Equal(t, 1050.0, sum.Net)

	assert.Equal(t, map[string]int64{"FIT": 1, "unspecified": 1}, sum.Fitness)
}
