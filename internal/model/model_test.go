package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/RyneJoanams/gulf-main-sub001/pkg/labnumber"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		value string
		rng   string
		want  string
	}{
		{"4.2", "3.5-5.0", ResultNormal},
		{"3.1", "3.5 - 5.0", ResultLow},
		{"5.5", "3.5-5.0", ResultHigh},
		{"-2", "-1-1", ResultLow},
		{"pos", "3.5-5.0", ""},
		{"4", "", ""},
		{"4", "5-3", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveStatus(TextReading(tt.value), tt.rng), "%s in %s", tt.value, tt.rng)
	}
}

func TestLabReportDeriveStatusesKeepsExplicit(t *testing.T) {
	r := &LabReport{
		RenalFunction: Panel{
			"urea":       {Value: NumberReading("9"), Range: "2.5-7.8"},
			"creatinine": {Value: NumberReading("60"), Range: "45-90", Status: "Borderline"},
		},
	}
	r.DeriveStatuses()
	assert.Equal(t, ResultHigh, r.RenalFunction["urea"].Status)
	assert.Equal(t, "Borderline", r.RenalFunction["creatinine"].Status)
}

func TestReadingAcceptsNumberOrString(t *testing.T) {
	var res struct {
		A TestResult `json:"a"`
		B TestResult `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":{"value":12.5},"b":{"value":"Negative"}}`), &res))
	assert.Equal(t, NumberReading("12.5"), res.A.Value)
	assert.Equal(t, TextReading("Negative"), res.B.Value)

	var bad TestResult
	assert.Error(t, json.Unmarshal([]byte(`{"value":{"x":1}}`), &bad))
}

func TestReadingKeepsJSONForm(t *testing.T) {
	in := `{"a":{"value":10.50},"b":{"value":"10.5"},"c":{"value":"Negative"},"d":{"value":null}}`
	var panel Panel
	require.NoError(t, json.Unmarshal([]byte(in), &panel))

	out, err := json.Marshal(panel)
	require.NoError(t, err)
	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, 10.5, got["a"]["value"])
	assert.Equal(t, "10.5", got["b"]["value"])
	assert.Equal(t, "Negative", got["c"]["value"])
	assert.Equal(t, "", got["d"]["value"])
	assert.Contains(t, string(out), `"value":10.50`)
}

func TestReadingBSONRoundTrip(t *testing.T) {
	in := TestResult{Value: NumberReading("10.5"), Range: "12-16"}
	raw, err := bson.Marshal(in)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, 10.5, doc["value"])

	var out TestResult
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, NumberReading("10.5"), out.Value)

	raw, err = bson.Marshal(TestResult{Value: TextReading("Negative")})
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, TextReading("Negative"), out.Value)
}

func TestPaymentDerive(t *testing.T) {
	due := 100.0
	p := &Payment{AmountDue: &due}
	p.Derive()
	assert.Equal(t, PaymentUnpaid, p.PaymentStatus)
	assert.Equal(t, 100.0, p.Balance)

	p.AmountPaid = 40
	p.Derive()
	assert.Equal(t, PaymentPartial, p.PaymentStatus)
	assert.Equal(t, 60.0, p.Balance)

	p.AmountPaid = 120
	p.Derive()
	assert.Equal(t, PaymentPaid, p.PaymentStatus)
	assert.Equal(t, -20.0, p.Balance)
}

func TestBaseTouch(t *testing.T) {
	var b Base
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.Touch(first)
	b.Touch(first.Add(time.Hour))
	assert.Equal(t, first, b.CreatedAt)
	assert.Equal(t, first.Add(time.Hour), b.UpdatedAt)
}

func TestUserPublicHidesCredentials(t *testing.T) {
	u := &User{Name: "A", Password: "secret123", PasswordHash: "$2a$..."}
	pub := u.Public()
	assert.Empty(t, pub.Password)
	assert.Empty(t, pub.PasswordHash)
	assert.Equal(t, "$2a$...", u.PasswordHash)

	data, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
}

func TestBaseSerializesUnderscoreID(t *testing.T) {
	e := Expense{Base: Base{ID: "abc"}, Description: "fuel", Amount: 10}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"_id":"abc"`)
	assert.Contains(t, string(data), `"description":"fuel"`)
}

func TestLabNumbersNormalisedConsistently(t *testing.T) {
	raw := "  gm/2024/0153-f "
	want := labnumber.Normalize(raw)

	p := &Patient{LabNumber: raw}
	p.Normalize()
	assert.Equal(t, want, p.LabNumber)

	pay := &Payment{LabNumber: raw}
	pay.Derive()
	assert.Equal(t, want, pay.LabNumber)
	assert.Equal(t, "GM/2024/0153-F", pay.LabNumber)
}
