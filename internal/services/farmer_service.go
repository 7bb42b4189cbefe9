package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/kitovu/farmreg/api/internal/logger"
	"github.com/kitovu/farmreg/api/internal/models"
	"github.com/kitovu/farmreg/api/internal/repository"
	"github.com/kitovu/farmreg/api/internal/validation"
)

// Service-level errors
var (
	ErrFarmerNotFound = errors.New("farmer not found")
	ErrDuplicateValue = errors.New("a unique field value already exists")
)

// ValidationFailure is returned when the aggregate payload fails validation.
// It carries the full set of violations for the error response.
type ValidationFailure struct {
	Result *validation.Result
}

func (e *ValidationFailure) Error() string {
	if e.Result != nil && e.Result.Malformed {
		return "malformed payload: " + e.Result.Message
	}
	return "validation failed for one or more fields"
}

// Attachments holds the uploaded photo slots of a farmer request. Nil slots
// are absent; on update an absent slot leaves the stored path unchanged.
type Attachments struct {
	FarmerPicture     *multipart.FileHeader
	IDDocumentPicture *multipart.FileHeader
}

// AttachmentStore persists uploaded attachments and returns stored paths.
type AttachmentStore interface {
	Save(fh *multipart.FileHeader) (string, error)
}

// FarmerService defines the business logic for the farmer aggregate:
// validation, attachment resolution, and the transactional write path.
type FarmerService interface {
	// CreateFarmer validates and stores a new farmer aggregate, returning
	// the generated farmer id. Returns *ValidationFailure for payload
	// violations, ErrDuplicateValue for uniqueness conflicts.
	CreateFarmer(ctx context.Context, raw validation.RawAggregate, attachments Attachments, actorID uuid.UUID) (uuid.UUID, error)

	// UpdateFarmer validates and rewrites an existing farmer aggregate.
	// Returns ErrFarmerNotFound if no farmer has that id.
	UpdateFarmer(ctx context.Context, farmerID uuid.UUID, raw validation.RawAggregate, attachments Attachments, actorID uuid.UUID) error

	// GetFarmer returns the full joined projection of a farmer.
	// Returns ErrFarmerNotFound if no farmer has that id.
	GetFarmer(ctx context.Context, farmerID uuid.UUID) (*models.FarmerAggregate, error)

	// ListGeometries returns every farm boundary for map rendering.
	ListGeometries(ctx context.Context) ([]models.FarmGeometry, error)
}

// farmerService is the concrete implementation of FarmerService.
type farmerService struct {
	repo      repository.FarmerRepository
	store     AttachmentStore
	validator *validation.Validator
	log       *logger.Logger
}

// NewFarmerService creates a new instance of FarmerService.
func NewFarmerService(repo repository.FarmerRepository, store AttachmentStore, log *logger.Logger) FarmerService {
	return &farmerService{
		repo:      repo,
		store:     store,
		validator: validation.New(),
		log:       log,
	}
}

// CreateFarmer runs the full creation workflow: persist attachments, validate
// the payload, then write the aggregate in one transaction. Attachment
// persistence happens before validation; a later failure leaves orphaned
// files, which is accepted.
func (s *farmerService) CreateFarmer(ctx context.Context, raw validation.RawAggregate, attachments Attachments, actorID uuid.UUID) (uuid.UUID, error) {
	paths, err := s.resolveAttachments(attachments)
	if err != nil {
		return uuid.Nil, err
	}

	agg, result := s.validator.ValidateCreate(raw, validation.Files{
		FarmerPicture:     attachments.FarmerPicture != nil,
		IDDocumentPicture: attachments.IDDocumentPicture != nil,
	})
	if result != nil {
		s.log.Warn("Farmer creation rejected by validation", map[string]interface{}{
			"violations": result.Details(),
		})
		return uuid.Nil, &ValidationFailure{Result: result}
	}

	agg.Farmer.FarmerPicture = paths.farmerPicture
	agg.Farmer.IDDocumentPicture = paths.idDocumentPicture

	farmerID, err := s.repo.Create(ctx, agg, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.log.Warn("Farmer creation hit a uniqueness conflict", map[string]interface{}{
				"actor_id": actorID,
			})
			return uuid.Nil, fmt.Errorf("%w: %v", ErrDuplicateValue, err)
		}
		s.log.Error("Failed to create farmer aggregate", err, map[string]interface{}{
			"actor_id": actorID,
		})
		return uuid.Nil, fmt.Errorf("failed to create farmer: %w", err)
	}

	s.log.Info("Farmer aggregate created", map[string]interface{}{
		"farmer_id": farmerID,
		"plots":     len(agg.Farms),
		"actor_id":  actorID,
	})

	return farmerID, nil
}

// UpdateFarmer runs the update workflow. Attachments are optional; absent
// slots keep the stored paths.
func (s *farmerService) UpdateFarmer(ctx context.Context, farmerID uuid.UUID, raw validation.RawAggregate, attachments Attachments, actorID uuid.UUID) error {
	paths, err := s.resolveAttachments(attachments)
	if err != nil {
		return err
	}

	agg, result := s.validator.ValidateUpdate(raw, validation.Files{
		FarmerPicture:     attachments.FarmerPicture != nil,
		IDDocumentPicture: attachments.IDDocumentPicture != nil,
	})
	if result != nil {
		s.log.Warn("Farmer update rejected by validation", map[string]interface{}{
			"farmer_id":  farmerID,
			"violations": result.Details(),
		})
		return &ValidationFailure{Result: result}
	}

	agg.Farmer.FarmerPicture = paths.farmerPicture
	agg.Farmer.IDDocumentPicture = paths.idDocumentPicture

	err = s.repo.Update(ctx, farmerID, agg, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFarmerNotFound
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("%w: %v", ErrDuplicateValue, err)
		}
		s.log.Error("Failed to update farmer aggregate", err, map[string]interface{}{
			"farmer_id": farmerID,
			"actor_id":  actorID,
		})
		return fmt.Errorf("failed to update farmer: %w", err)
	}

	s.log.Info("Farmer aggregate updated", map[string]interface{}{
		"farmer_id": farmerID,
		"plots":     len(agg.Farms),
		"actor_id":  actorID,
	})

	return nil
}

// GetFarmer retrieves the full aggregate projection for one farmer.
func (s *farmerService) GetFarmer(ctx context.Context, farmerID uuid.UUID) (*models.FarmerAggregate, error) {
	agg, err := s.repo.GetByID(ctx, farmerID)
	if err != nil {
		s.log.Error("Failed to query farmer aggregate", err, map[string]interface{}{
			"farmer_id": farmerID,
		})
		return nil, fmt.Errorf("failed to query farmer: %w", err)
	}

	// Repository returns nil, nil when no farmer found - transform to domain error
	if agg == nil {
		return nil, ErrFarmerNotFound
	}

	return agg, nil
}

// ListGeometries retrieves every farm boundary in the system.
func (s *farmerService) ListGeometries(ctx context.Context) ([]models.FarmGeometry, error) {
	geometries, err := s.repo.ListGeometries(ctx)
	if err != nil {
		s.log.Error("Failed to query farm geometries", err, nil)
		return nil, fmt.Errorf("failed to query farm geometries: %w", err)
	}

	s.log.Debug("Farm geometries listed", map[string]interface{}{
		"count": len(geometries),
	})

	return geometries, nil
}

// resolvedPaths holds the stored paths of the two photo slots. Empty strings
// mean no upload was supplied for that slot.
type resolvedPaths struct {
	farmerPicture     string
	idDocumentPicture string
}

// resolveAttachments persists whichever attachment slots are present.
func (s *farmerService) resolveAttachments(attachments Attachments) (resolvedPaths, error) {
	var paths resolvedPaths

	if attachments.FarmerPicture != nil {
		path, err := s.store.Save(attachments.FarmerPicture)
		if err != nil {
			return paths, fmt.Errorf("failed to store farmer picture: %w", err)
		}
		paths.farmerPicture = path
	}

	if attachments.IDDocumentPicture != nil {
		path, err := s.store.Save(attachments.IDDocumentPicture)
		if err != nil {
			return paths, fmt.Errorf("failed to store id document picture: %w", err)
		}
		paths.idDocumentPicture = path
	}

	return paths, nil
}
