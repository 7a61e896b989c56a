package resource

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository/memory"
	"github.com/RyneJoanams/gulf-main-sub001/internal/service/record"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/security"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Errors  []struct {
		Field string `json:"field"`
		Rule  string `json:"rule"`
	} `json:"errors"`
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New(nil)

	patients := record.NewService(
		memory.NewCollection[model.Patient](store, model.CollectionPatients),
		nil, zerolog.Nop(),
		record.Options[model.Patient]{Resource: record.ResourcePatient, Prepare: record.PreparePatient},
	)
	users := record.NewService(
		memory.NewCollection[model.User](store, model.CollectionUsers),
		nil, zerolog.Nop(),
		record.Options[model.User]{
			Resource:  record.ResourceUser,
			Prepare:   record.PrepareUser(security.NewBcryptHasher(bcrypt.MinCost)),
			Protected: record.UserProtected,
		},
	)

	r := gin.New()
	api := r.Group("/api")
	NewHandler(patients, Config[model.Patient]{
		Path:    "/patients",
		Filters: []string{"labNumber", "patientName", "agent"},
	}).RegisterRoutes(api)
	NewHandler(users, Config[model.User]{
		Path:    "/users",
		Filters: []string{"department"},
		View:    func(u *model.User) any { return u.Public() },
		Inbound: StripKeys(record.UserProtected...),
	}).RegisterRoutes(api)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func createPatient(t *testing.T, r http.Handler, body map[string]any) model.Patient {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/api/patients", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

func TestCreateReturnsPersistedID(t *testing.T) {
	r := newRouter(t)

	p := createPatient(t, r, map[string]any{
		"patientName": " Jane Doe ",
		"gender":      "F",
		"medicalType": "visa",
		"labNumber":   "lab-001",
		"_id":         "client-chosen",
	})
	require.NotEmpty(t, p.ID)
	assert.NotEqual(t, "client-chosen", p.ID)
	assert.Equal(t, "Jane Doe", p.PatientName)
	assert.Equal(t, "LAB-001", p.LabNumber)
	assert.Equal(t, model.PatientStatusRegistered, p.Status)
	assert.False(t, p.CreatedAt.IsZero())

	w, env := do(t, r, http.MethodGet, "/api/patients/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)
	var got model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, p.ID, got.ID)
}

func TestCreateMissingRequiredField(t *testing.T) {
	r := newRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/patients", map[string]any{
		"patientName": "Jane Doe",
		"medicalType": "visa",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", env.Status)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "gender", env.Errors[0].Field)
	assert.Equal(t, "required", env.Errors[0].Rule)
}

func TestCreateRejectsBadBodies(t *testing.T) {
	r := newRouter(t)

	for name, body := range map[string]any{
		"malformed": `{"patientName":`,
		"array":     `[1,2]`,
		"null":      `null`,
		"type":      map[string]any{"patientName": "A", "gender": "M", "medicalType": "visa", "age": "forty"},
	} {
		w, env := do(t, r, http.MethodPost, "/api/patients", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.Equal(t, "error", env.Status, name)
	}
}

func TestGetUnknownIDIsNotFound(t *testing.T) {
	r := newRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/patients/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "patient not found", env.Message)
}

func TestUpdateChangesOnlySubmittedFields(t *testing.T) {
	r := newRouter(t)
	p := createPatient(t, r, map[string]any{
		"patientName": "Jane Doe",
		"gender":      "F",
		"medicalType": "visa",
		"agent":       "Acme",
	})

	w, env := do(t, r, http.MethodPut, "/api/patients/"+p.ID, map[string]any{
		"phone": "0700000000",
		"_id":   "other",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, p.ID, updated.ID)
	assert.Equal(t, "0700000000", updated.Phone)
	assert.Equal(t, "Jane Doe", updated.PatientName)
	assert.Equal(t, "Acme", updated.Agent)
	assert.True(t, updated.CreatedAt.Equal(p.CreatedAt))

	_, env = do(t, r, http.MethodGet, "/api/patients/"+p.ID, nil)
	var stored model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.Equal(t, "0700000000", stored.Phone)

	w, _ = do(t, r, http.MethodPut, "/api/patients/"+p.ID, map[string]any{"gender": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPut, "/api/patients/missing", map[string]any{"phone": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	r := newRouter(t)
	p := createPatient(t, r, map[string]any{"patientName": "A", "gender": "M", "medicalType": "visa"})

	w, env := do(t, r, http.MethodDelete, "/api/patients/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deleted successfully", env.Message)

	w, _ = do(t, r, http.MethodGet, "/api/patients/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/api/patients/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListFiltersAndPages(t *testing.T) {
	r := newRouter(t)
	createPatient(t, r, map[string]any{"patientName": "A", "gender": "M", "medicalType": "visa", "agent": "Acme"})
	createPatient(t, r, map[string]any{"patientName": "B", "gender": "F", "medicalType": "visa", "agent": "Acme"})
	createPatient(t, r, map[string]any{"patientName": "C", "gender": "F", "medicalType": "work", "agent": "Other", "labNumber": "L-9"})

	w, env := do(t, r, http.MethodGet, "/api/patients", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 3)

	_, env = do(t, r, http.MethodGet, "/api/patients?agent=Acme&sortBy=patientName&order=asc", nil)
	var acme []model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &acme))
	require.Len(t, acme, 2)
	assert.Equal(t, "A", acme[0].PatientName)
	assert.Equal(t, "B", acme[1].PatientName)

	_, env = do(t, r, http.MethodGet, "/api/patients?labNumber=l-9", nil)
	var byLab []model.Patient
	require.NoError(t, json.Unmarshal(env.Data, &byLab))
	require.Len(t, byLab, 1)
	assert.Equal(t, "C", byLab[0].PatientName)

	// Unknown query keys are not filters.
	_, env = do(t, r, http.MethodGet, "/api/patients?gender=F", nil)
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 3)

	w, env = do(t, r, http.MethodGet, "/api/patients?page=2&pageSize=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items      []model.Patient `json:"items"`
		Pagination struct {
			Page       int   `json:"page"`
			PageSize   int   `json:"pageSize"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"totalPages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 2, page.Pagination.PageSize)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, int64(2), page.Pagination.TotalPages)

	for _, q := range []string{"page=0", "page=x", "pageSize=-1", "sortBy=a-b", "page=461168601842738793&pageSize=20", "page=99999999999999999999"} {
		w, _ = do(t, r, http.MethodGet, "/api/patients?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestUserCredentialsNeverLeak(t *testing.T) {
	r := newRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/users", map[string]any{
		"name":       "Admin",
		"email":      "Admin@Clinic.test",
		"department": "admin",
		"password":   "long-enough-secret",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, string(env.Data), "password")
	var u model.User
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, "admin@clinic.test", u.Email)

	_, env = do(t, r, http.MethodGet, "/api/users", nil)
	assert.NotContains(t, string(env.Data), "passwordHash")

	w, _ = do(t, r, http.MethodPost, "/api/users", map[string]any{
		"name":         "Sneaky",
		"email":        "sneaky@clinic.test",
		"department":   "laboratory",
		"passwordHash": "$2a$04$forged",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/users", map[string]any{
		"name":       "Short",
		"email":      "short@clinic.test",
		"department": "laboratory",
		"password":   "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
