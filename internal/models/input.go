package models

// FarmerInput is a normalized, fully-typed farmer payload produced by the
// aggregate validator. Attachment paths are resolved by the upload store
// before the write path runs; on update, empty paths mean "keep the stored
// value".
type FarmerInput struct {
	FirstName            string
	MiddleName           *string
	LastName             string
	Gender               string
	DateOfBirth          string
	PhoneNumber          string
	AlternatePhoneNumber *string
	StreetAddress        string
	State                *string
	Community            *string
	LGA                  *string
	City                 *string
	FarmerPicture        string
	IDType               string
	IDNumber             string
	IDDocumentPicture    string
	UserLatitude         float64
	UserLongitude        float64
	Remarks              *string
}

// FarmInput is a normalized farm-plot payload. GeometryWKT holds the boundary
// in MULTIPOLYGON well-known text; conversion to a geometry value happens in
// the database via ST_GeomFromText.
type FarmInput struct {
	FarmType        string
	OwnershipStatus string
	LeaseYears      *int
	LeaseMonths     *int
	Area            float64
	CropType        *string
	CropArea        *float64
	LivestockType   *string
	NumberOfAnimals *int
	FarmLatitude    float64
	FarmLongitude   float64
	GeometryWKT     string
}

// AffiliationInput is a normalized cooperative-affiliation payload.
type AffiliationInput struct {
	MemberOfCooperative bool
	Name                *string
	Activities          *string
}

// AggregateInput bundles the three normalized payloads of one farmer
// aggregate for the transactional write path.
type AggregateInput struct {
	Farmer      FarmerInput
	Farms       []FarmInput
	Affiliation AffiliationInput
}
