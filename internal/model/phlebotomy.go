package model

// Sample is one specimen drawn from a patient.
type Sample struct {
	Type      string `json:"type" bson:"type"`
	Container string `json:"container,omitempty" bson:"container,omitempty"`
	Volume    string `json:"volume,omitempty" bson:"volume,omitempty"`
	Status    string `json:"status,omitempty" bson:"status,omitempty"`
}

// Phlebotomy records sample collection for a lab number.
type Phlebotomy struct {
	Base           `bson:",inline"`
	PatientRef     `bson:",inline"`
	Samples        []Sample `json:"samples,omitempty" bson:"samples,omitempty"`
	CollectedBy    string   `json:"collectedBy,omitempty" bson:"collectedBy,omitempty"`
	CollectionDate string   `json:"collectionDate,omitempty" bson:"collectionDate,omitempty"`
	BloodGroup     string   `json:"bloodGroup,omitempty" bson:"bloodGroup,omitempty"`
	Notes          string   `json:"notes,omitempty" bson:"notes,omitempty"`
}
