package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kitovu/farmreg/api/internal/database"
	"github.com/kitovu/farmreg/api/internal/models"
)

// Repository-level sentinel errors.
var (
	// ErrNotFound is returned by write operations addressing a farmer id
	// that does not exist.
	ErrNotFound = errors.New("farmer not found")
	// ErrDuplicate is returned when an insert or update violates a
	// uniqueness constraint. Callers surface it as a conflict, distinct
	// from unexpected engine errors.
	ErrDuplicate = errors.New("duplicate value violates a unique constraint")
)

// FarmerRepository defines the data access operations for the farmer
// aggregate: the farmer row, its one-to-many farm rows, and its one-to-one
// affiliation row, written as a single atomic unit.
type FarmerRepository interface {
	// Create inserts the full aggregate in one transaction and returns the
	// new farmer id. Any failure rolls back every write.
	Create(ctx context.Context, agg *models.AggregateInput, actorID uuid.UUID) (uuid.UUID, error)

	// Update rewrites the aggregate addressed by farmerID in one
	// transaction: farmer mutable fields, full replacement of the farm set,
	// and the affiliation row. Returns ErrNotFound if the farmer does not
	// exist; no partial effects in that case.
	Update(ctx context.Context, farmerID uuid.UUID, agg *models.AggregateInput, actorID uuid.UUID) error

	// GetByID returns the farmer joined with its affiliation, farms, and
	// creator/updater identities.
	// Returns nil, nil if no farmer has that id (not an error).
	GetByID(ctx context.Context, farmerID uuid.UUID) (*models.FarmerAggregate, error)

	// ListGeometries returns every farm's boundary as GeoJSON together with
	// its id, farm type, and area, for bulk map rendering.
	ListGeometries(ctx context.Context) ([]models.FarmGeometry, error)
}

// farmerRepository is the concrete implementation of FarmerRepository.
type farmerRepository struct {
	db *database.Database
}

// NewFarmerRepository creates a new instance of FarmerRepository.
func NewFarmerRepository(db *database.Database) FarmerRepository {
	return &farmerRepository{
		db: db,
	}
}

const insertFarmerQuery = `
	INSERT INTO farmer (
		first_name, middle_name, last_name, gender, date_of_birth, phone_number,
		alternate_phone_number, street_address, state, community, lga, city,
		farmer_picture, id_type, id_number, id_document_picture,
		user_latitude, user_longitude, remarks, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $20)
	RETURNING id
`

// Geometry text is converted in the database; coordinates inside the WKT are
// (longitude latitude) ordered per the PostGIS convention.
const insertFarmQuery = `
	INSERT INTO farm (
		farmer_id, farm_type, ownership_status, lease_years, lease_months,
		area, crop_type, crop_area, livestock_type, number_of_animals,
		farm_latitude, farm_longitude, farm_geometry, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, ST_GeomFromText($13, 4326), $14, $14)
`

const insertAffiliationQuery = `
	INSERT INTO farmer_affiliation (
		farmer_id, member_of_cooperative, name, activities, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $5)
`

// Create inserts the farmer row, one farm row per supplied plot, and exactly
// one affiliation row inside a single transaction. The deferred rollback is a
// no-op once the transaction commits.
func (r *farmerRepository) Create(ctx context.Context, agg *models.AggregateInput, actorID uuid.UUID) (uuid.UUID, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	farmer := agg.Farmer
	var farmerID uuid.UUID
	err = tx.QueryRow(ctx, insertFarmerQuery,
		farmer.FirstName,
		farmer.MiddleName,
		farmer.LastName,
		farmer.Gender,
		farmer.DateOfBirth,
		farmer.PhoneNumber,
		farmer.AlternatePhoneNumber,
		farmer.StreetAddress,
		farmer.State,
		farmer.Community,
		farmer.LGA,
		farmer.City,
		farmer.FarmerPicture,
		farmer.IDType,
		farmer.IDNumber,
		farmer.IDDocumentPicture,
		farmer.UserLatitude,
		farmer.UserLongitude,
		farmer.Remarks,
		actorID,
	).Scan(&farmerID)
	if err != nil {
		return uuid.Nil, classifyWriteError("farmer", err)
	}

	for i, farm := range agg.Farms {
		if err := insertFarm(ctx, tx, farmerID, farm, actorID); err != nil {
			return uuid.Nil, fmt.Errorf("plot %d: %w", i+1, err)
		}
	}

	affiliation := agg.Affiliation
	_, err = tx.Exec(ctx, insertAffiliationQuery,
		farmerID,
		affiliation.MemberOfCooperative,
		affiliation.Name,
		affiliation.Activities,
		actorID,
	)
	if err != nil {
		return uuid.Nil, classifyWriteError("affiliation", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit farmer aggregate: %w", err)
	}

	return farmerID, nil
}

// Update rewrites the aggregate in one transaction. The farm set is fully
// replaced: existing plots are deleted and the supplied plots inserted with
// the same shape as the create path.
func (r *farmerRepository) Update(ctx context.Context, farmerID uuid.UUID, agg *models.AggregateInput, actorID uuid.UUID) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Attachment columns keep their stored value when no replacement was
	// uploaded; empty paths mean "do not change".
	updateFarmerQuery := `
		UPDATE farmer SET
			first_name = $2,
			middle_name = $3,
			last_name = $4,
			gender = $5,
			date_of_birth = $6,
			phone_number = $7,
			alternate_phone_number = $8,
			street_address = $9,
			state = $10,
			community = $11,
			lga = $12,
			city = $13,
			farmer_picture = COALESCE(NULLIF($14, ''), farmer_picture),
			id_type = $15,
			id_number = $16,
			id_document_picture = COALESCE(NULLIF($17, ''), id_document_picture),
			user_latitude = $18,
			user_longitude = $19,
			remarks = $20,
			updated_by = $21,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING id
	`

	farmer := agg.Farmer
	var updatedID uuid.UUID
	err = tx.QueryRow(ctx, updateFarmerQuery,
		farmerID,
		farmer.FirstName,
		farmer.MiddleName,
		farmer.LastName,
		farmer.Gender,
		farmer.DateOfBirth,
		farmer.PhoneNumber,
		farmer.AlternatePhoneNumber,
		farmer.StreetAddress,
		farmer.State,
		farmer.Community,
		farmer.LGA,
		farmer.City,
		farmer.FarmerPicture,
		farmer.IDType,
		farmer.IDNumber,
		farmer.IDDocumentPicture,
		farmer.UserLatitude,
		farmer.UserLongitude,
		farmer.Remarks,
		actorID,
	).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return classifyWriteError("farmer", err)
	}

	// Full-replace policy for the plot collection.
	if _, err := tx.Exec(ctx, `DELETE FROM farm WHERE farmer_id = $1`, farmerID); err != nil {
		return fmt.Errorf("failed to clear farm plots for farmer %s: %w", farmerID, err)
	}
	for i, farm := range agg.Farms {
		if err := insertFarm(ctx, tx, farmerID, farm, actorID); err != nil {
			return fmt.Errorf("plot %d: %w", i+1, err)
		}
	}

	// Affiliation is one-to-one; update in place, insert if the row is
	// somehow missing.
	affiliation := agg.Affiliation
	tag, err := tx.Exec(ctx, `
		UPDATE farmer_affiliation SET
			member_of_cooperative = $2,
			name = $3,
			activities = $4,
			updated_by = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE farmer_id = $1
	`, farmerID, affiliation.MemberOfCooperative, affiliation.Name, affiliation.Activities, actorID)
	if err != nil {
		return classifyWriteError("affiliation", err)
	}
	if tag.RowsAffected() == 0 {
		_, err = tx.Exec(ctx, insertAffiliationQuery,
			farmerID,
			affiliation.MemberOfCooperative,
			affiliation.Name,
			affiliation.Activities,
			actorID,
		)
		if err != nil {
			return classifyWriteError("affiliation", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit farmer aggregate update: %w", err)
	}

	return nil
}

// insertFarm inserts one farm row referencing the given farmer inside the
// caller's transaction.
func insertFarm(ctx context.Context, tx pgx.Tx, farmerID uuid.UUID, farm models.FarmInput, actorID uuid.UUID) error {
	_, err := tx.Exec(ctx, insertFarmQuery,
		farmerID,
		farm.FarmType,
		farm.OwnershipStatus,
		farm.LeaseYears,
		farm.LeaseMonths,
		farm.Area,
		farm.CropType,
		farm.CropArea,
		farm.LivestockType,
		farm.NumberOfAnimals,
		farm.FarmLatitude,
		farm.FarmLongitude,
		farm.GeometryWKT,
		actorID,
	)
	if err != nil {
		return classifyWriteError("farm", err)
	}
	return nil
}

// GetByID reconstructs the full aggregate: the farmer row joined with its
// affiliation and creator/updater usernames, plus its farm rows with
// boundaries converted to GeoJSON.
func (r *farmerRepository) GetByID(ctx context.Context, farmerID uuid.UUID) (*models.FarmerAggregate, error) {
	farmerQuery := `
		SELECT
			f.id, f.first_name, f.middle_name, f.last_name, f.gender,
			to_char(f.date_of_birth, 'YYYY-MM-DD'),
			f.phone_number, f.alternate_phone_number, f.street_address,
			f.state, f.community, f.lga, f.city,
			f.farmer_picture, f.id_type, f.id_number, f.id_document_picture,
			f.user_latitude, f.user_longitude, f.remarks,
			f.created_by, f.updated_by, f.created_at, f.updated_at,
			fa.id, fa.member_of_cooperative, fa.name, fa.activities,
			creator.username, updater.username
		FROM farmer f
		LEFT JOIN farmer_affiliation fa ON f.id = fa.farmer_id
		LEFT JOIN users creator ON f.created_by = creator.id
		LEFT JOIN users updater ON f.updated_by = updater.id
		WHERE f.id = $1
	`

	var agg models.FarmerAggregate
	var affiliationID *uuid.UUID
	var memberOfCooperative *bool
	var affiliationName, affiliationActivities *string

	err := r.db.Pool.QueryRow(ctx, farmerQuery, farmerID).Scan(
		&agg.Farmer.ID,
		&agg.Farmer.FirstName,
		&agg.Farmer.MiddleName,
		&agg.Farmer.LastName,
		&agg.Farmer.Gender,
		&agg.Farmer.DateOfBirth,
		&agg.Farmer.PhoneNumber,
		&agg.Farmer.AlternatePhoneNumber,
		&agg.Farmer.StreetAddress,
		&agg.Farmer.State,
		&agg.Farmer.Community,
		&agg.Farmer.LGA,
		&agg.Farmer.City,
		&agg.Farmer.FarmerPicture,
		&agg.Farmer.IDType,
		&agg.Farmer.IDNumber,
		&agg.Farmer.IDDocumentPicture,
		&agg.Farmer.UserLatitude,
		&agg.Farmer.UserLongitude,
		&agg.Farmer.Remarks,
		&agg.Farmer.CreatedBy,
		&agg.Farmer.UpdatedBy,
		&agg.Farmer.CreatedAt,
		&agg.Farmer.UpdatedAt,
		&affiliationID,
		&memberOfCooperative,
		&affiliationName,
		&affiliationActivities,
		&agg.CreatedByUsername,
		&agg.UpdatedByUsername,
	)

	// No rows found is not an error at the repository level
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query farmer %s: %w", farmerID, err)
	}

	if affiliationID != nil {
		agg.Affiliation = &models.Affiliation{
			ID:                  *affiliationID,
			FarmerID:            agg.Farmer.ID,
			MemberOfCooperative: *memberOfCooperative,
			Name:                affiliationName,
			Activities:          affiliationActivities,
		}
	}

	farmsQuery := `
		SELECT
			fm.id, fm.farmer_id, fm.farm_type, fm.ownership_status,
			fm.lease_years, fm.lease_months, fm.area,
			fm.crop_type, fm.crop_area, fm.livestock_type, fm.number_of_animals,
			fm.farm_latitude, fm.farm_longitude,
			ST_AsGeoJSON(fm.farm_geometry),
			fm.created_by, fm.updated_by, fm.created_at, fm.updated_at
		FROM farm fm
		WHERE fm.farmer_id = $1
		ORDER BY fm.created_at, fm.id
	`

	rows, err := r.db.Pool.Query(ctx, farmsQuery, farmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query farms for farmer %s: %w", farmerID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var farm models.Farm
		var geomJSON []byte

		err := rows.Scan(
			&farm.ID,
			&farm.FarmerID,
			&farm.FarmType,
			&farm.OwnershipStatus,
			&farm.LeaseYears,
			&farm.LeaseMonths,
			&farm.Area,
			&farm.CropType,
			&farm.CropArea,
			&farm.LivestockType,
			&farm.NumberOfAnimals,
			&farm.FarmLatitude,
			&farm.FarmLongitude,
			&geomJSON,
			&farm.CreatedBy,
			&farm.UpdatedBy,
			&farm.CreatedAt,
			&farm.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan farm row: %w", err)
		}

		if geomJSON != nil {
			if err := farm.Geometry.Scan(geomJSON); err != nil {
				return nil, fmt.Errorf("failed to parse geometry for farm %s: %w", farm.ID, err)
			}
		}

		agg.Farms = append(agg.Farms, farm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating farm rows: %w", err)
	}

	if agg.Farms == nil {
		agg.Farms = []models.Farm{}
	}

	return &agg, nil
}

// ListGeometries returns every farm boundary in the system as GeoJSON.
func (r *farmerRepository) ListGeometries(ctx context.Context) ([]models.FarmGeometry, error) {
	query := `
		SELECT
			fm.id,
			ST_AsGeoJSON(fm.farm_geometry),
			fm.farm_type,
			fm.area
		FROM farm fm
		ORDER BY fm.created_at, fm.id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query farm geometries: %w", err)
	}
	defer rows.Close()

	var results []models.FarmGeometry

	for rows.Next() {
		var geom models.FarmGeometry
		var geomJSON []byte

		if err := rows.Scan(&geom.ID, &geomJSON, &geom.FarmType, &geom.Area); err != nil {
			return nil, fmt.Errorf("failed to scan farm geometry row: %w", err)
		}

		if geomJSON != nil {
			if err := geom.Geometry.Scan(geomJSON); err != nil {
				return nil, fmt.Errorf("failed to parse geometry for farm %s: %w", geom.ID, err)
			}
		}

		results = append(results, geom)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating farm geometry rows: %w", err)
	}

	// Return empty slice if no farms exist (not an error)
	if results == nil {
		results = []models.FarmGeometry{}
	}

	return results, nil
}

// classifyWriteError maps uniqueness violations to ErrDuplicate so callers
// can surface them distinctly from unexpected engine errors.
func classifyWriteError(entity string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", entity, ErrDuplicate)
	}
	return fmt.Errorf("failed to write %s row: %w", entity, err)
}
