package model

// Patient is the identity record for a person visiting the clinic. Patients
// are created once per distinct phone number and never deleted; demographic
// fields may be corrected later.
type Patient struct {
	Base
	Name    string `db:"name" json:"name"`
	Phone   string `db:"phone" json:"phone"`
	Age     *int   `db:"age" json:"age,omitempty"`
	Gender  string `db:"gender" json:"gender,omitempty"`
	Address string `db:"address" json:"address,omitempty"`
}

type UpdatePatientRequest struct {
	Name    *string `json:"name"`
	Age     *int    `json:"age" binding:"omitempty,gte=0,lte=150"`
	Gender  *string `json:"gender" binding:"omitempty,oneof=Male Female Other"`
	Address *string `json:"address"`
}
