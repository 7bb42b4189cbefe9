package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/kitovu/farmreg/api/internal/errors"
	"github.com/kitovu/farmreg/api/internal/middleware"
	"github.com/kitovu/farmreg/api/internal/models"
	"github.com/kitovu/farmreg/api/internal/services"
	"github.com/kitovu/farmreg/api/internal/validation"
)

// FarmerHandler handles farmer-aggregate HTTP requests.
type FarmerHandler struct {
	service services.FarmerService
}

// NewFarmerHandler creates a new FarmerHandler instance.
func NewFarmerHandler(service services.FarmerService) *FarmerHandler {
	return &FarmerHandler{
		service: service,
	}
}

// CreateResponse is the success response of the create endpoint.
type CreateResponse struct {
	Message  string    `json:"message"`
	FarmerID uuid.UUID `json:"farmer_id"`
}

// UpdateResponse is the success response of the update endpoint.
type UpdateResponse struct {
	Message  string    `json:"message"`
	FarmerID uuid.UUID `json:"farmer_id"`
}

// GeometriesResponse is the response of the geometry listing endpoint.
type GeometriesResponse struct {
	Geometries []models.FarmGeometry `json:"geometries"`
	Count      int                   `json:"count"`
}

// Create handles POST /api/v1/farmers.
// The request is multipart/form-data: JSON parts `farmer`, `farms`,
// `affiliation` plus file parts `farmer_picture` and `id_document_picture`.
func (h *FarmerHandler) Create(c *gin.Context) {
	actor := middleware.GetActor(c)
	if actor == nil {
		apierrors.Unauthorized(c, "No token provided")
		return
	}

	raw, attachments, ok := bindAggregateForm(c)
	if !ok {
		return
	}

	farmerID, err := h.service.CreateFarmer(c.Request.Context(), raw, attachments, actor.UserID)
	if err != nil {
		h.writeAggregateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateResponse{
		Message:  "Farmer, farms, and affiliation created successfully",
		FarmerID: farmerID,
	})
}

// Update handles PUT /api/v1/farmers/:id.
// Same shape as Create; attachments are optional and absent slots keep the
// stored paths. The farm plot collection is fully replaced.
func (h *FarmerHandler) Update(c *gin.Context) {
	actor := middleware.GetActor(c)
	if actor == nil {
		apierrors.Unauthorized(c, "No token provided")
		return
	}

	farmerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid farmer id", nil)
		return
	}

	raw, attachments, ok := bindAggregateForm(c)
	if !ok {
		return
	}

	if err := h.service.UpdateFarmer(c.Request.Context(), farmerID, raw, attachments, actor.UserID); err != nil {
		if errors.Is(err, services.ErrFarmerNotFound) {
			apierrors.NotFound(c, "No farmer found with this id")
			return
		}
		h.writeAggregateError(c, err)
		return
	}

	c.JSON(http.StatusOK, UpdateResponse{
		Message:  "Farmer, farms, and affiliation updated successfully",
		FarmerID: farmerID,
	})
}

// Get handles GET /api/v1/farmers/:id.
// Returns the full joined projection: farmer, farms, affiliation, and
// creator/updater identities.
func (h *FarmerHandler) Get(c *gin.Context) {
	farmerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid farmer id", nil)
		return
	}

	agg, err := h.service.GetFarmer(c.Request.Context(), farmerID)
	if err != nil {
		if errors.Is(err, services.ErrFarmerNotFound) {
			apierrors.NotFound(c, "No farmer found with this id")
			return
		}
		apierrors.InternalServerError(c, "Failed to query farmer data", err)
		return
	}

	c.JSON(http.StatusOK, agg)
}

// Geometries handles GET /api/v1/farms/geometries.
// Returns every farm boundary as GeoJSON for bulk map rendering.
func (h *FarmerHandler) Geometries(c *gin.Context) {
	geometries, err := h.service.ListGeometries(c.Request.Context())
	if err != nil {
		apierrors.InternalServerError(c, "Failed to query farm geometries", err)
		return
	}

	c.JSON(http.StatusOK, GeometriesResponse{
		Geometries: geometries,
		Count:      len(geometries),
	})
}

// bindAggregateForm extracts the three JSON parts and the two optional file
// parts from the multipart form. Writes an error response and returns
// ok=false when the form itself cannot be read.
func bindAggregateForm(c *gin.Context) (validation.RawAggregate, services.Attachments, bool) {
	var raw validation.RawAggregate
	var attachments services.Attachments

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		apierrors.BadRequest(c, "Request must be multipart/form-data", nil)
		return raw, attachments, false
	}

	raw.Farmer = []byte(c.PostForm("farmer"))
	raw.Affiliation = []byte(c.PostForm("affiliation"))

	// Older clients submit the plot under `farm`; the canonical field is
	// the `farms` array.
	farms := c.PostForm("farms")
	if farms == "" {
		farms = c.PostForm("farm")
	}
	raw.Farms = []byte(farms)

	attachments.FarmerPicture = formFile(c, validation.FileFarmerPicture)
	attachments.IDDocumentPicture = formFile(c, validation.FileIDDocumentPicture)

	return raw, attachments, true
}

// formFile returns the named file part, or nil when absent.
func formFile(c *gin.Context, name string) *multipart.FileHeader {
	fh, err := c.FormFile(name)
	if err != nil {
		return nil
	}
	return fh
}

// writeAggregateError dispatches service errors from the write path to the
// matching error response.
func (h *FarmerHandler) writeAggregateError(c *gin.Context, err error) {
	var vf *services.ValidationFailure
	if errors.As(err, &vf) {
		if vf.Result.Malformed {
			apierrors.BadRequest(c, "Invalid JSON data", vf.Result.Details())
			return
		}
		apierrors.ValidationFailed(c, vf.Result.Details())
		return
	}

	if errors.Is(err, services.ErrDuplicateValue) {
		apierrors.Conflict(c, "A unique field value already exists")
		return
	}

	apierrors.InternalServerError(c, "Failed to store farmer data", err)
}
