package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Result statuses derived from a reading and its reference range.
const (
	ResultLow    = "Low"
	ResultNormal = "Normal"
	ResultHigh   = "High"
)

// Reading is a test value. Clients send it either as a JSON number or a
// string, and it is written back in the same form.
type Reading struct {
	Text    string
	Numeric bool
}

// NumberReading returns a reading holding the number literal s.
func NumberReading(s string) Reading { return Reading{Text: s, Numeric: true} }

// TextReading returns a free-text reading such as "Negative".
func TextReading(s string) Reading { return Reading{Text: s} }

func (r Reading) String() string { return r.Text }

func (r Reading) MarshalJSON() ([]byte, error) {
	if r.Numeric && isNumberLiteral(r.Text) {
		return []byte(r.Text), nil
	}
	return json.Marshal(r.Text)
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Reading{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = TextReading(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = NumberReading(n.String())
	return nil
}

// MarshalBSONValue stores numeric readings as doubles and the rest as strings.
func (r Reading) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if r.Numeric {
		if f, ok := r.Float(); ok {
			return bson.MarshalValue(f)
		}
	}
	return bson.MarshalValue(r.Text)
}

func (r *Reading) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeDouble:
		*r = NumberReading(strconv.FormatFloat(rv.Double(), 'f', -1, 64))
	case bson.TypeInt32:
		*r = NumberReading(strconv.FormatInt(int64(rv.Int32()), 10))
	case bson.TypeInt64:
		*r = NumberReading(strconv.FormatInt(rv.Int64(), 10))
	case bson.TypeString:
		*r = TextReading(rv.StringValue())
	case bson.TypeNull, bson.TypeUndefined:
		*r = Reading{}
	default:
		return fmt.Errorf("cannot decode %s into a reading", t)
	}
	return nil
}

// Float parses the reading as a number.
func (r Reading) Float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(r.Text), 64)
	return f, err == nil
}

func isNumberLiteral(s string) bool {
	if s == "" || !(s[0] == '-' || (s[0] >= '0' && s[0] <= '9')) {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(s), &n) == nil
}

// TestResult is one measured analyte.
type TestResult struct {
	Value  Reading `json:"value" bson:"value"`
	Status string  `json:"status,omitempty" bson:"status,omitempty"`
	Range  string  `json:"range,omitempty" bson:"range,omitempty"`
	Units  string  `json:"units,omitempty" bson:"units,omitempty"`
}

// Panel maps a test name to its result.
type Panel map[string]TestResult

type FitnessEvaluation struct {
	OverallStatus   string `json:"overallStatus,omitempty" bson:"overallStatus,omitempty"`
	OtherAspectsFit string `json:"otherAspectsFit,omitempty" bson:"otherAspectsFit,omitempty"`
}

type Superintendent struct {
	Name string `json:"name,omitempty" bson:"name,omitempty"`
}

type LabRemarks struct {
	FitnessEvaluation FitnessEvaluation `json:"fitnessEvaluation" bson:"fitnessEvaluation"`
	LabSuperintendent Superintendent    `json:"labSuperintendent" bson:"labSuperintendent"`
}

// LabReport holds laboratory results for a lab number.
type LabReport struct {
	Base           `bson:",inline"`
	PatientRef     `bson:",inline"`
	SelectedReport string     `json:"selectedReport,omitempty" bson:"selectedReport,omitempty"`
	TimeStamp      string     `json:"timeStamp,omitempty" bson:"timeStamp,omitempty"`
	PatientImage   string     `json:"patientImage,omitempty" bson:"patientImage,omitempty"`
	UrineTest      Panel      `json:"urineTest,omitempty" bson:"urineTest,omitempty"`
	BloodTest      Panel      `json:"bloodTest,omitempty" bson:"bloodTest,omitempty"`
	RenalFunction  Panel      `json:"renalFunction,omitempty" bson:"renalFunction,omitempty"`
	LiverFunction  Panel      `json:"liverFunction,omitempty" bson:"liverFunction,omitempty"`
	FullHaemogram  Panel      `json:"fullHaemogram,omitempty" bson:"fullHaemogram,omitempty"`
	Serology       Panel      `json:"serology,omitempty" bson:"serology,omitempty"`
	AreaOne        Panel      `json:"areaOne,omitempty" bson:"areaOne,omitempty"`
	LabRemarks     LabRemarks `json:"labRemarks" bson:"labRemarks"`
}

// Panels returns every panel of the report.
func (r *LabReport) Panels() []Panel {
	return []Panel{r.UrineTest, r.BloodTest, r.RenalFunction, r.LiverFunction, r.FullHaemogram, r.Serology, r.AreaOne}
}

// DeriveStatuses fills in a missing result status from the reading and a
// "lo-hi" range.
func (r *LabReport) DeriveStatuses() {
	for _, p := range r.Panels() {
		for name, res := range p {
			if res.Status != "" {
				continue
			}
			res.Status = DeriveStatus(res.Value, res.Range)
			p[name] = res
		}
	}
}

// FitnessOutcome returns the overall fitness recorded by the lab, or "" when
// none is set.
func (r *LabReport) FitnessOutcome() string {
	return strings.TrimSpace(r.LabRemarks.FitnessEvaluation.OverallStatus)
}

// DeriveStatus compares value against a "lo-hi" range. It returns "" when
// either side cannot be parsed.
func DeriveStatus(value Reading, rng string) string {
	v, ok := value.Float()
	if !ok {
		return ""
	}
	lo, hi, ok := parseRange(rng)
	if !ok {
		return ""
	}
	switch {
	case v < lo:
		return ResultLow
	case v > hi:
		return ResultHigh
	default:
		return ResultNormal
	}
}

func parseRange(rng string) (float64, float64, bool) {
	rng = strings.TrimSpace(rng)
	// Skip a leading sign so "-1-1" splits on the separator.
	idx := strings.Index(strings.TrimPrefix(rng, "-"), "-")
	if idx < 0 {
		return 0, 0, false
	}
	if strings.HasPrefix(rng, "-") {
		idx++
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(rng[:idx]), 64)
	if err != nil {
		return 0, 0, false
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(rng[idx+1:]), 64)
	if err != nil || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}
