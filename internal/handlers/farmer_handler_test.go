package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kitovu/farmreg/api/internal/auth"
	"github.com/kitovu/farmreg/api/internal/middleware"
	"github.com/kitovu/farmreg/api/internal/models"
	"github.com/kitovu/farmreg/api/internal/services"
	"github.com/kitovu/farmreg/api/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFarmerService is a mock implementation of services.FarmerService
type MockFarmerService struct {
	mock.Mock
}

func (m *MockFarmerService) CreateFarmer(ctx context.Context, raw validation.RawAggregate, attachments services.Attachments, actorID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, raw, attachments, actorID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockFarmerService) UpdateFarmer(ctx context.Context, farmerID uuid.UUID, raw validation.RawAggregate, attachments services.Attachments, actorID uuid.UUID) error {
	args := m.Called(ctx, farmerID, raw, attachments, actorID)
	return args.Error(0)
}

func (m *MockFarmerService) GetFarmer(ctx context.Context, farmerID uuid.UUID) (*models.FarmerAggregate, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FarmerAggregate), args.Error(1)
}

func (m *MockFarmerService) ListGeometries(ctx context.Context) ([]models.FarmGeometry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FarmGeometry), args.Error(1)
}

// setupFarmerRouter wires the handler behind a stub that injects the actor
// claims RequireAuth would normally store.
func setupFarmerRouter(service services.FarmerService, actor *auth.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if actor != nil {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.ActorKey, actor)
			c.Next()
		})
	}

	handler := NewFarmerHandler(service)
	router.POST("/api/v1/farmers", handler.Create)
	router.PUT("/api/v1/farmers/:id", handler.Update)
	router.GET("/api/v1/farmers/:id", handler.Get)
	router.GET("/api/v1/farms/geometries", handler.Geometries)
	return router
}

func enumeratorClaims() *auth.Claims {
	return &auth.Claims{
		UserID: uuid.New(),
		Email:  "enumerator@example.com",
		Role:   models.RoleEnumerator,
	}
}

// aggregateForm builds a multipart body with the given JSON parts and
// optional file slots.
func aggregateForm(t *testing.T, fields map[string]string, files []string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for _, name := range files {
		part, err := writer.CreateFormFile(name, name+".jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func defaultFormFields() map[string]string {
	return map[string]string{
		"farmer":      `{"first_name":"Amina","last_name":"Bello"}`,
		"farms":       `[{"farm_type":"crop","area":2.5}]`,
		"affiliation": `{"member_of_cooperative":true}`,
	}
}

func TestFarmerHandler_Create(t *testing.T) {
	actor := enumeratorClaims()
	farmerID := uuid.New()

	t.Run("created", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, actor)

		mockService.On("CreateFarmer", mock.Anything, mock.MatchedBy(func(raw validation.RawAggregate) bool {
			return strings.Contains(string(raw.Farmer), "Amina") &&
				strings.Contains(string(raw.Farms), "crop") &&
				strings.Contains(string(raw.Affiliation), "member_of_cooperative")
		}), mock.MatchedBy(func(a services.Attachments) bool {
			return a.FarmerPicture != nil && a.IDDocumentPicture != nil
		}), actor.UserID).Return(farmerID, nil)

		body, contentType := aggregateForm(t, defaultFormFields(),
			[]string{validation.FileFarmerPicture, validation.FileIDDocumentPicture})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/farmers", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response CreateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, farmerID, response.FarmerID)
		mockService.AssertExpectations(t)
	})

	t.Run("no actor", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, nil)

		body, contentType := aggregateForm(t, defaultFormFields(), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/farmers", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockService.AssertNotCalled(t, "CreateFarmer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not multipart", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, actor)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/farmers", strings.NewReader(`{"farmer":{}}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "multipart/form-data")
	})

	t.Run("validation failure", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, actor)

		result := &validation.Result{
			Farmer: []string{"first_name is required"},
			Farms:  map[int][]string{2: {"area is required"}},
		}
		mockService.On("CreateFarmer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(uuid.Nil, &services.ValidationFailure{Result: result})

		body, contentType := aggregateForm(t, defaultFormFields(), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/farmers", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
		assert.Contains(t, w.Body.String(), "plot_2")
		assert.Contains(t, w.Body.String(), "first_name is required")
	})

	t.Run("malformed payload", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, actor)

		result := &validation.Result{Malformed: true, Message: "farmer payload is not valid JSON"}
		mockService.On("CreateFarmer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(uuid.Nil, &services.ValidationFailure{Result: result})

		body, contentType := aggregateForm(t, defaultFormFields(), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/farmers", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "BAD_REQUEST")
		assert.Contains(t, w.Body.String(), "Invalid JSON data")
	})

	t.Run("duplicate value", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, actor)

		mockService.On("CreateFarmer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(uuid.Nil, services.ErrDuplicateValue)

		body, contentType := aggregateForm(t, defaultFormFields(), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/farmers", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "CONFLICT")
	})

	t.Run("legacy farm field accepted", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, actor)

		fields := defaultFormFields()
		delete(fields, "farms")
		fields["farm"] = `{"farm_type":"crop","area":2.5}`

		mockService.On("CreateFarmer", mock.Anything, mock.MatchedBy(func(raw validation.RawAggregate) bool {
			return strings.Contains(string(raw.Farms), "crop")
		}), mock.Anything, actor.UserID).Return(farmerID, nil)

		body, contentType := aggregateForm(t, fields, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/farmers", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestFarmerHandler_Update(t *testing.T) {
	actor := enumeratorClaims()
	farmerID := uuid.New()

	t.Run("updated", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, actor)

		mockService.On("UpdateFarmer", mock.Anything, farmerID, mock.Anything, mock.Anything, actor.UserID).
			Return(nil)

		body, contentType := aggregateForm(t, defaultFormFields(), nil)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/farmers/"+farmerID.String(), body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response UpdateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, farmerID, response.FarmerID)
	})

	t.Run("invalid id", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, actor)

		body, contentType := aggregateForm(t, defaultFormFields(), nil)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/farmers/not-a-uuid", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "UpdateFarmer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, actor)

		mockService.On("UpdateFarmer", mock.Anything, farmerID, mock.Anything, mock.Anything, actor.UserID).
			Return(services.ErrFarmerNotFound)

		body, contentType := aggregateForm(t, defaultFormFields(), nil)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/farmers/"+farmerID.String(), body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_FOUND")
	})
}

func TestFarmerHandler_Get(t *testing.T) {
	farmerID := uuid.New()

	t.Run("found", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, enumeratorClaims())

		createdBy := "enumerator1"
		agg := &models.FarmerAggregate{
			Farmer: models.Farmer{ID: farmerID, FirstName: "Amina", LastName: "Bello"},
			Farms: []models.Farm{
				{ID: uuid.New(), FarmType: "crop", Area: 2.5},
			},
			Affiliation:       &models.Affiliation{MemberOfCooperative: true},
			CreatedByUsername: &createdBy,
		}
		mockService.On("GetFarmer", mock.Anything, farmerID).Return(agg, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/farmers/"+farmerID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Amina")
		assert.Contains(t, w.Body.String(), "enumerator1")
	})

	t.Run("not found", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, enumeratorClaims())

		mockService.On("GetFarmer", mock.Anything, farmerID).Return(nil, services.ErrFarmerNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/farmers/"+farmerID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, enumeratorClaims())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/farmers/42", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFarmerHandler_Geometries(t *testing.T) {
	t.Run("listed", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, enumeratorClaims())

		geometries := []models.FarmGeometry{
			{ID: uuid.New(), FarmType: "crop", Area: 2.5},
			{ID: uuid.New(), FarmType: "livestock", Area: 1.1},
		}
		mockService.On("ListGeometries", mock.Anything).Return(geometries, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/farms/geometries", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response GeometriesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 2, response.Count)
		assert.Len(t, response.Geometries, 2)
	})

	t.Run("service error", func(t *testing.T) {
		mockService := new(MockFarmerService)
		router := setupFarmerRouter(mockService, enumeratorClaims())

		mockService.On("ListGeometries", mock.Anything).Return(nil, errors.New("connection lost"))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/farms/geometries", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
