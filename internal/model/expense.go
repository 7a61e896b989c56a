package model

// Expense is money paid out by the clinic.
type Expense struct {
	Base        `bson:",inline"`
	Description string  `json:"description" bson:"description" binding:"required"`
	Amount      float64 `json:"amount" bson:"amount" binding:"required,gt=0"`
	Category    string  `json:"category,omitempty" bson:"category,omitempty"`
	Date        string  `json:"date,omitempty" bson:"date,omitempty"`
	PaidTo      string  `json:"paidTo,omitempty" bson:"paidTo,omitempty"`
	RecordedBy  string  `json:"recordedBy,omitempty" bson:"recordedBy,omitempty"`
}
