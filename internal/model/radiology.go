package model

// RadiologyReport holds imaging findings for a lab number.
type RadiologyReport struct {
	Base            `bson:",inline"`
	PatientRef      `bson:",inline"`
	SelectedTests   []string `json:"selectedTests,omitempty" bson:"selectedTests,omitempty"`
	ChestXRay       JSONMap  `json:"chestXRay,omitempty" bson:"chestXRay,omitempty"`
	HeafMantouxTest JSONMap  `json:"heafMantouxTest,omitempty" bson:"heafMantouxTest,omitempty"`
	Ultrasound      JSONMap  `json:"ultrasound,omitempty" bson:"ultrasound,omitempty"`
	Radiologist     string   `json:"radiologist,omitempty" bson:"radiologist,omitempty"`
	Remarks         string   `json:"remarks,omitempty" bson:"remarks,omitempty"`
}
