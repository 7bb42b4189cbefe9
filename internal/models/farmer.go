package models

import (
	"time"

	"github.com/google/uuid"
)

// Farmer represents a registered farmer's identity and demographic record.
// All nullable columns use pointers to distinguish between zero values and NULL.
// A farmer always owns exactly one affiliation and one or more farms once
// creation succeeds; both are cascade-deleted with the farmer.
type Farmer struct {
	ID                   uuid.UUID  `json:"id"`
	FirstName            string     `json:"first_name"`
	MiddleName           *string    `json:"middle_name,omitempty"`
	LastName             string     `json:"last_name"`
	Gender               string     `json:"gender"`
	DateOfBirth          string     `json:"date_of_birth"`
	PhoneNumber          string     `json:"phone_number"`
	AlternatePhoneNumber *string    `json:"alternate_phone_number,omitempty"`
	StreetAddress        string     `json:"street_address"`
	State                *string    `json:"state,omitempty"`
	Community            *string    `json:"community,omitempty"`
	LGA                  *string    `json:"lga,omitempty"`
	City                 *string    `json:"city,omitempty"`
	FarmerPicture        string     `json:"farmer_picture"`
	IDType               string     `json:"id_type"`
	IDNumber             string     `json:"id_number"`
	IDDocumentPicture    string     `json:"id_document_picture"`
	UserLatitude         float64    `json:"user_latitude"`
	UserLongitude        float64    `json:"user_longitude"`
	Remarks              *string    `json:"remarks,omitempty"`
	CreatedBy            *uuid.UUID `json:"created_by,omitempty"`
	UpdatedBy            *uuid.UUID `json:"updated_by,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Farm represents one physical plot belonging to a farmer.
// Lease duration fields are present only when the plot is leased.
type Farm struct {
	ID              uuid.UUID    `json:"id"`
	FarmerID        uuid.UUID    `json:"farmer_id"`
	FarmType        string       `json:"farm_type"`
	OwnershipStatus string       `json:"ownership_status"`
	LeaseYears      *int         `json:"lease_years,omitempty"`
	LeaseMonths     *int         `json:"lease_months,omitempty"`
	Area            float64      `json:"area"`
	CropType        *string      `json:"crop_type,omitempty"`
	CropArea        *float64     `json:"crop_area,omitempty"`
	LivestockType   *string      `json:"livestock_type,omitempty"`
	NumberOfAnimals *int         `json:"number_of_animals,omitempty"`
	FarmLatitude    float64      `json:"farm_latitude"`
	FarmLongitude   float64      `json:"farm_longitude"`
	Geometry        MultiPolygon `json:"farm_geometry"`
	CreatedBy       *uuid.UUID   `json:"created_by,omitempty"`
	UpdatedBy       *uuid.UUID   `json:"updated_by,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Affiliation represents a farmer's cooperative membership.
// One-to-one with Farmer, cascade-deleted with it. MemberOfCooperative is
// mandatory; false is a valid explicit value, not "missing".
type Affiliation struct {
	ID                  uuid.UUID  `json:"id"`
	FarmerID            uuid.UUID  `json:"farmer_id"`
	MemberOfCooperative bool       `json:"member_of_cooperative"`
	Name                *string    `json:"name,omitempty"`
	Activities          *string    `json:"activities,omitempty"`
	CreatedBy           *uuid.UUID `json:"created_by,omitempty"`
	UpdatedBy           *uuid.UUID `json:"updated_by,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// FarmerAggregate is the full joined projection of a farmer with its owned
// farm collection, affiliation, and creator/updater identities.
type FarmerAggregate struct {
	Farmer            Farmer       `json:"farmer"`
	Farms             []Farm       `json:"farms"`
	Affiliation       *Affiliation `json:"affiliation"`
	CreatedByUsername *string      `json:"created_by_username,omitempty"`
	UpdatedByUsername *string      `json:"updated_by_username,omitempty"`
}

// FarmGeometry is a flattened farm boundary row for bulk map rendering.
type FarmGeometry struct {
	ID       uuid.UUID    `json:"id"`
	Geometry MultiPolygon `json:"geometry"`
	FarmType string       `json:"farm_type"`
	Area     float64      `json:"area"`
}
