package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kitovu/farmreg/api/internal/models"
)

// Attachment slot names expected in the multipart form.
const (
	FileFarmerPicture     = "farmer_picture"
	FileIDDocumentPicture = "id_document_picture"
)

// RawAggregate holds the three JSON parts of the multipart form before
// parsing. Each part is a JSON string supplied by the client.
type RawAggregate struct {
	Farmer      []byte
	Farms       []byte
	Affiliation []byte
}

// Files records which attachment slots were present in the request.
type Files struct {
	FarmerPicture     bool
	IDDocumentPicture bool
}

// Result collects every violation found in one validation pass, grouped by
// entity and 1-based plot index. Malformed marks payloads that failed to
// parse at all; no field-level checks are meaningful in that case.
type Result struct {
	Malformed bool
	Message   string

	Farmer      []string
	Farms       map[int][]string
	Affiliation []string
	Files       []string
}

// OK reports whether the payload passed every check.
func (r *Result) OK() bool {
	return !r.Malformed &&
		len(r.Farmer) == 0 &&
		len(r.Farms) == 0 &&
		len(r.Affiliation) == 0 &&
		len(r.Files) == 0
}

// Details flattens the result into the error-response details map.
func (r *Result) Details() map[string]interface{} {
	details := make(map[string]interface{})
	if r.Malformed {
		details["payload"] = r.Message
		return details
	}
	if len(r.Farmer) > 0 {
		details["farmer"] = r.Farmer
	}
	if len(r.Farms) > 0 {
		farms := make(map[string]interface{}, len(r.Farms))
		for idx, errs := range r.Farms {
			farms[fmt.Sprintf("plot_%d", idx)] = errs
		}
		details["farms"] = farms
	}
	if len(r.Affiliation) > 0 {
		details["affiliation"] = r.Affiliation
	}
	if len(r.Files) > 0 {
		details["files"] = r.Files
	}
	return details
}

// rawFarmer mirrors the farmer JSON part. String fields checked with
// validator tags; coordinates handled separately to distinguish absent from
// non-numeric.
type rawFarmer struct {
	FirstName            string  `json:"first_name" validate:"required"`
	MiddleName           *string `json:"middle_name"`
	LastName             string  `json:"last_name" validate:"required"`
	Gender               string  `json:"gender" validate:"required"`
	DateOfBirth          string  `json:"date_of_birth" validate:"required"`
	PhoneNumber          string  `json:"phone_number" validate:"required"`
	AlternatePhoneNumber *string `json:"alternate_phone_number"`
	StreetAddress        string  `json:"street_address" validate:"required"`
	State                *string `json:"state"`
	Community            *string `json:"community"`
	LGA                  *string `json:"lga"`
	City                 *string `json:"city"`
	IDType               string  `json:"id_type" validate:"required"`
	IDNumber             string  `json:"id_number" validate:"required"`
	UserLatitude         Number  `json:"user_latitude"`
	UserLongitude        Number  `json:"user_longitude"`
	Remarks              *string `json:"remarks"`
}

// rawFarm mirrors one element of the farms JSON array.
type rawFarm struct {
	FarmType        string  `json:"farm_type" validate:"required"`
	OwnershipStatus string  `json:"ownership_status" validate:"required"`
	LeaseYears      Number  `json:"lease_years"`
	LeaseMonths     Number  `json:"lease_months"`
	Area            Number  `json:"area"`
	CropType        *string `json:"crop_type"`
	CropArea        Number  `json:"crop_area"`
	LivestockType   *string `json:"livestock_type"`
	NumberOfAnimals Number  `json:"number_of_animals"`
	FarmLatitude    Number  `json:"farm_latitude"`
	FarmLongitude   Number  `json:"farm_longitude"`
	FarmGeometry    string  `json:"farm_geometry" validate:"required"`
}

// rawAffiliation mirrors the affiliation JSON part. The membership flag uses
// a pointer so an explicit false is distinguishable from an absent field.
type rawAffiliation struct {
	MemberOfCooperative *bool   `json:"member_of_cooperative" validate:"required"`
	Name                *string `json:"name"`
	Activities          *string `json:"activities"`
}

// Validator parses and validates raw farmer-aggregate payloads, producing
// either a normalized AggregateInput or a Result enumerating every violation.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator. Field names in violations use json tag names.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateCreate checks a farmer-creation payload. Both attachment slots are
// mandatory.
func (v *Validator) ValidateCreate(raw RawAggregate, files Files) (*models.AggregateInput, *Result) {
	return v.run(raw, files, true)
}

// ValidateUpdate checks a farmer-update payload. Attachments are optional;
// absent slots keep the stored paths unchanged.
func (v *Validator) ValidateUpdate(raw RawAggregate, files Files) (*models.AggregateInput, *Result) {
	return v.run(raw, files, false)
}

func (v *Validator) run(raw RawAggregate, files Files, requireFiles bool) (*models.AggregateInput, *Result) {
	result := &Result{Farms: make(map[int][]string)}

	// Parse all three parts first; a parse failure anywhere means no
	// field-level check is meaningful.
	var farmer rawFarmer
	if len(raw.Farmer) == 0 {
		return nil, malformed("farmer payload is missing")
	}
	if err := json.Unmarshal(raw.Farmer, &farmer); err != nil {
		return nil, malformed("farmer payload is not valid JSON")
	}

	var farms []rawFarm
	if len(raw.Farms) == 0 {
		return nil, malformed("farms payload is missing")
	}
	if err := json.Unmarshal(raw.Farms, &farms); err != nil {
		// Accept a single farm object for callers that never upgraded to
		// the array shape.
		var single rawFarm
		if err2 := json.Unmarshal(raw.Farms, &single); err2 != nil {
			return nil, malformed("farms payload is not valid JSON")
		}
		farms = []rawFarm{single}
	}

	var affiliation rawAffiliation
	if len(raw.Affiliation) == 0 {
		return nil, malformed("affiliation payload is missing")
	}
	if err := json.Unmarshal(raw.Affiliation, &affiliation); err != nil {
		return nil, malformed("affiliation payload is not valid JSON")
	}

	// Farmer checks
	result.Farmer = append(result.Farmer, v.structViolations(farmer)...)
	result.Farmer = append(result.Farmer, numberViolations("user_latitude", farmer.UserLatitude, true)...)
	result.Farmer = append(result.Farmer, numberViolations("user_longitude", farmer.UserLongitude, true)...)

	// Farm checks, per plot, reported by 1-based index
	if len(farms) == 0 {
		result.Farms[1] = []string{"at least one farm plot is required"}
	}
	for i, farm := range farms {
		idx := i + 1
		var errs []string
		errs = append(errs, v.structViolations(farm)...)
		errs = append(errs, numberViolations("farm_latitude", farm.FarmLatitude, true)...)
		errs = append(errs, numberViolations("farm_longitude", farm.FarmLongitude, true)...)
		errs = append(errs, numberViolations("lease_years", farm.LeaseYears, false)...)
		errs = append(errs, numberViolations("lease_months", farm.LeaseMonths, false)...)
		errs = append(errs, numberViolations("crop_area", farm.CropArea, false)...)
		errs = append(errs, numberViolations("number_of_animals", farm.NumberOfAnimals, false)...)

		switch {
		case !farm.Area.Set:
			errs = append(errs, "area is required")
		case !farm.Area.Valid:
			errs = append(errs, "area must be a valid number")
		case farm.Area.Value <= 0:
			errs = append(errs, "area must be greater than zero")
		}

		// Syntactic gate only; full WKT parsing happens in the database.
		if farm.FarmGeometry != "" && !isMultiPolygonWKT(farm.FarmGeometry) {
			errs = append(errs, "farm_geometry must be MULTIPOLYGON well-known text")
		}

		if len(errs) > 0 {
			result.Farms[idx] = errs
		}
	}

	// Affiliation checks
	result.Affiliation = append(result.Affiliation, v.structViolations(affiliation)...)

	// Attachment checks
	if requireFiles {
		if !files.FarmerPicture {
			result.Files = append(result.Files, FileFarmerPicture)
		}
		if !files.IDDocumentPicture {
			result.Files = append(result.Files, FileIDDocumentPicture)
		}
	}

	if !result.OK() {
		return nil, result
	}

	return normalize(farmer, farms, affiliation), nil
}

// structViolations runs validator tag checks and formats each failure.
func (v *Validator) structViolations(s interface{}) []string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	violations := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		switch fe.Tag() {
		case "required":
			violations = append(violations, fe.Field()+" is required")
		default:
			violations = append(violations, fe.Field()+" failed validation: "+fe.Tag())
		}
	}
	return violations
}

// numberViolations reports an absent or non-numeric Number field. Optional
// fields only fail when present but unparseable.
func numberViolations(field string, n Number, required bool) []string {
	if !n.Set {
		if required {
			return []string{field + " is required"}
		}
		return nil
	}
	if !n.Valid {
		return []string{field + " must be a valid number"}
	}
	return nil
}

// isMultiPolygonWKT checks that boundary text begins with the multipolygon
// notation keyword.
func isMultiPolygonWKT(wkt string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(wkt)), "MULTIPOLYGON")
}

func malformed(message string) *Result {
	return &Result{Malformed: true, Message: message}
}

// normalize converts the validated raw payloads into fully-typed inputs.
// Attachment paths are filled in later by the upload store.
func normalize(farmer rawFarmer, farms []rawFarm, affiliation rawAffiliation) *models.AggregateInput {
	agg := &models.AggregateInput{
		Farmer: models.FarmerInput{
			FirstName:            farmer.FirstName,
			MiddleName:           emptyToNil(farmer.MiddleName),
			LastName:             farmer.LastName,
			Gender:               farmer.Gender,
			DateOfBirth:          farmer.DateOfBirth,
			PhoneNumber:          farmer.PhoneNumber,
			AlternatePhoneNumber: emptyToNil(farmer.AlternatePhoneNumber),
			StreetAddress:        farmer.StreetAddress,
			State:                emptyToNil(farmer.State),
			Community:            emptyToNil(farmer.Community),
			LGA:                  emptyToNil(farmer.LGA),
			City:                 emptyToNil(farmer.City),
			IDType:               farmer.IDType,
			IDNumber:             farmer.IDNumber,
			UserLatitude:         farmer.UserLatitude.Value,
			UserLongitude:        farmer.UserLongitude.Value,
			Remarks:              emptyToNil(farmer.Remarks),
		},
		Affiliation: models.AffiliationInput{
			MemberOfCooperative: *affiliation.MemberOfCooperative,
			Name:                emptyToNil(affiliation.Name),
			Activities:          emptyToNil(affiliation.Activities),
		},
	}

	agg.Farms = make([]models.FarmInput, 0, len(farms))
	for _, farm := range farms {
		agg.Farms = append(agg.Farms, models.FarmInput{
			FarmType:        farm.FarmType,
			OwnershipStatus: farm.OwnershipStatus,
			LeaseYears:      optionalInt(farm.LeaseYears),
			LeaseMonths:     optionalInt(farm.LeaseMonths),
			Area:            farm.Area.Value,
			CropType:        emptyToNil(farm.CropType),
			CropArea:        optionalFloat(farm.CropArea),
			LivestockType:   emptyToNil(farm.LivestockType),
			NumberOfAnimals: optionalInt(farm.NumberOfAnimals),
			FarmLatitude:    farm.FarmLatitude.Value,
			FarmLongitude:   farm.FarmLongitude.Value,
			GeometryWKT:     strings.TrimSpace(farm.FarmGeometry),
		})
	}

	return agg
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func optionalInt(n Number) *int {
	if !n.Set || !n.Valid {
		return nil
	}
	v := n.IntValue()
	return &v
}

func optionalFloat(n Number) *float64 {
	if !n.Set || !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}
