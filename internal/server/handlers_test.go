package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pulse/dispatch/internal/config"
	"pulse/dispatch/internal/dispatch"
	"pulse/dispatch/internal/geo"
	"pulse/dispatch/internal/mailer"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAmbulanceStore struct {
	byID    map[uuid.UUID]dispatch.Ambulance
	created []dispatch.CreateAmbulanceParams
}

func newFakeAmbulanceStore() *fakeAmbulanceStore {
	return &fakeAmbulanceStore{byID: make(map[uuid.UUID]dispatch.Ambulance)}
}

func (f *fakeAmbulanceStore) Create(ctx context.Context, params dispatch.CreateAmbulanceParams) (dispatch.Ambulance, error) {
	f.created = append(f.created, params)
	amb := dispatch.Ambulance{
		ID:         uuid.New(),
		HospitalID: params.HospitalID,
		CallSign:   params.CallSign,
		Type:       params.Type,
		Status:     dispatch.StatusAvailable,
	}
	if params.Latitude != nil && params.Longitude != nil {
		amb.Location = &dispatch.Location{Latitude: *params.Latitude, Longitude: *params.Longitude}
	}
	f.byID[amb.ID] = amb
	return amb, nil
}

func (f *fakeAmbulanceStore) List(ctx context.Context, limit, offset int32) ([]dispatch.Ambulance, error) {
	out := make([]dispatch.Ambulance, 0, len(f.byID))
	for _, amb := range f.byID {
		out = append(out, amb)
	}
	return out, nil
}

func (f *fakeAmbulanceStore) Get(ctx context.Context, id uuid.UUID) (dispatch.Ambulance, error) {
	amb, ok := f.byID[id]
	if !ok {
		return dispatch.Ambulance{}, pgx.ErrNoRows
	}
	return amb, nil
}

func (f *fakeAmbulanceStore) SetStatus(ctx context.Context, id uuid.UUID, status dispatch.Status) (dispatch.Ambulance, error) {
	if status == dispatch.StatusBusy {
		return dispatch.Ambulance{}, dispatch.ErrInvalidStatus
	}
	amb, ok := f.byID[id]
	if !ok {
		return dispatch.Ambulance{}, pgx.ErrNoRows
	}
	amb.Status = status
	amb.BusyUntil = nil
	f.byID[id] = amb
	return amb, nil
}

func (f *fakeAmbulanceStore) SetLocation(ctx context.Context, id uuid.UUID, latitude, longitude string) (dispatch.Ambulance, error) {
	amb, ok := f.byID[id]
	if !ok {
		return dispatch.Ambulance{}, pgx.ErrNoRows
	}
	amb.Location = &dispatch.Location{Latitude: latitude, Longitude: longitude}
	f.byID[id] = amb
	return amb, nil
}

func (f *fakeAmbulanceStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

type fakeHospitalStore struct {
	byID map[uuid.UUID]dispatch.Hospital
}

func newFakeHospitalStore() *fakeHospitalStore {
	return &fakeHospitalStore{byID: make(map[uuid.UUID]dispatch.Hospital)}
}

func (f *fakeHospitalStore) Create(ctx context.Context, params dispatch.CreateHospitalParams) (dispatch.Hospital, error) {
	h := dispatch.Hospital{
		ID:            uuid.New(),
		Name:          params.Name,
		ContactNumber: params.ContactNumber,
		Address:       params.Address,
		Location:      dispatch.Location{Latitude: params.Latitude, Longitude: params.Longitude},
	}
	f.byID[h.ID] = h
	return h, nil
}

func (f *fakeHospitalStore) List(ctx context.Context, limit, offset int32) ([]dispatch.Hospital, error) {
	out := make([]dispatch.Hospital, 0, len(f.byID))
	for _, h := range f.byID {
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeHospitalStore) Get(ctx context.Context, id uuid.UUID) (dispatch.Hospital, error) {
	h, ok := f.byID[id]
	if !ok {
		return dispatch.Hospital{}, pgx.ErrNoRows
	}
	return h, nil
}

func (f *fakeHospitalStore) Update(ctx context.Context, id uuid.UUID, params dispatch.CreateHospitalParams) (dispatch.Hospital, error) {
	h, ok := f.byID[id]
	if !ok {
		return dispatch.Hospital{}, pgx.ErrNoRows
	}
	h.Name = params.Name
	h.ContactNumber = params.ContactNumber
	h.Address = params.Address
	h.Location = dispatch.Location{Latitude: params.Latitude, Longitude: params.Longitude}
	f.byID[id] = h
	return h, nil
}

func (f *fakeHospitalStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

type fakeEmergencyStore struct {
	byID map[uuid.UUID]dispatch.EmergencyRequest
}

func newFakeEmergencyStore() *fakeEmergencyStore {
	return &fakeEmergencyStore{byID: make(map[uuid.UUID]dispatch.EmergencyRequest)}
}

func (f *fakeEmergencyStore) Get(ctx context.Context, id uuid.UUID) (dispatch.EmergencyRequest, error) {
	req, ok := f.byID[id]
	if !ok {
		return dispatch.EmergencyRequest{}, pgx.ErrNoRows
	}
	return req, nil
}

func (f *fakeEmergencyStore) List(ctx context.Context, limit, offset int32) ([]dispatch.EmergencyRequest, error) {
	out := make([]dispatch.EmergencyRequest, 0, len(f.byID))
	for _, req := range f.byID {
		out = append(out, req)
	}
	return out, nil
}

func (f *fakeEmergencyStore) SetResolved(ctx context.Context, id uuid.UUID, resolved bool) (dispatch.EmergencyRequest, error) {
	req, ok := f.byID[id]
	if !ok {
		return dispatch.EmergencyRequest{}, pgx.ErrNoRows
	}
	req.IsResolved = resolved
	f.byID[id] = req
	return req, nil
}

// fakeSubmitter scripts the outcome of an allocation attempt.
type fakeSubmitter struct {
	result dispatch.EmergencyRequest
	err    error
	params dispatch.SubmitParams
}

func (f *fakeSubmitter) Submit(ctx context.Context, params dispatch.SubmitParams) (dispatch.EmergencyRequest, error) {
	f.params = params
	return f.result, f.err
}

type testEnv struct {
	srv         *Server
	router      chi.Router
	ambulances  *fakeAmbulanceStore
	hospitals   *fakeHospitalStore
	emergencies *fakeEmergencyStore
	submitter   *fakeSubmitter
}

// newTestEnv wires a Server around in-memory fakes and mounts the handlers on
// the production route shapes, minus authentication.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mail, err := mailer.New(config.SMTPConfig{}, zerolog.Nop())
	require.NoError(t, err)

	env := &testEnv{
		ambulances:  newFakeAmbulanceStore(),
		hospitals:   newFakeHospitalStore(),
		emergencies: newFakeEmergencyStore(),
		submitter:   &fakeSubmitter{},
	}
	env.srv = &Server{
		cfg:         config.Config{Env: "test"},
		log:         zerolog.Nop(),
		validate:    newValidator(),
		startedAt:   time.Now(),
		ambulances:  env.ambulances,
		hospitals:   env.hospitals,
		emergencies: env.emergencies,
		lifecycle:   env.submitter,
		mail:        mail,
	}

	r := chi.NewRouter()
	r.Get("/healthz", env.srv.handleHealth)
	r.Post("/v1/emergencies", env.srv.handleCreateEmergency)
	r.Get("/v1/emergencies", env.srv.handleListEmergencies)
	r.Get("/v1/emergencies/{emergencyID}", env.srv.handleGetEmergency)
	r.Patch("/v1/emergencies/{emergencyID}/resolve", env.srv.handleResolveEmergency)
	r.Get("/v1/ambulances", env.srv.handleListAmbulances)
	r.Post("/v1/ambulances", env.srv.handleCreateAmbulance)
	r.Get("/v1/ambulances/{ambulanceID}", env.srv.handleGetAmbulance)
	r.Patch("/v1/ambulances/{ambulanceID}/status", env.srv.handleUpdateAmbulanceStatus)
	r.Patch("/v1/ambulances/{ambulanceID}/location", env.srv.handleUpdateAmbulanceLocation)
	r.Delete("/v1/ambulances/{ambulanceID}", env.srv.handleDeleteAmbulance)
	r.Get("/v1/hospitals", env.srv.handleListHospitals)
	r.Post("/v1/hospitals", env.srv.handleCreateHospital)
	r.Get("/v1/hospitals/{hospitalID}", env.srv.handleGetHospital)
	r.Put("/v1/hospitals/{hospitalID}", env.srv.handleUpdateHospital)
	r.Delete("/v1/hospitals/{hospitalID}", env.srv.handleDeleteHospital)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, claims *UserClaims) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if claims != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserContextKey, claims))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Env)
}

func TestHandleCreateEmergency_Assigned(t *testing.T) {
	env := newTestEnv(t)

	ambID := uuid.New()
	rt := int32(0)
	env.submitter.result = dispatch.EmergencyRequest{
		ID:                  uuid.New(),
		Requester:           "jamie",
		Severity:            dispatch.SeverityHigh,
		Location:            dispatch.Location{Latitude: "6.5", Longitude: "3.3"},
		AmbulanceID:         &ambID,
		ResponseTimeSeconds: &rt,
	}

	rec := env.do(t, http.MethodPost, "/v1/emergencies", map[string]interface{}{
		"severity": "high",
		"location": map[string]string{"latitude": "6.5", "longitude": "3.3"},
	}, &UserClaims{PreferredUsername: "jamie"})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[EmergencyResponse](t, rec)
	require.NotNil(t, resp.AmbulanceID)
	assert.Equal(t, ambID.String(), *resp.AmbulanceID)
	assert.Equal(t, "jamie", env.submitter.params.Requester)
	assert.Equal(t, dispatch.SeverityHigh, env.submitter.params.Severity)
	assert.Equal(t, "6.5", env.submitter.params.Latitude)
}

func TestHandleCreateEmergency_RequesterFallsBackToEmail(t *testing.T) {
	env := newTestEnv(t)
	env.submitter.result = dispatch.EmergencyRequest{ID: uuid.New()}

	rec := env.do(t, http.MethodPost, "/v1/emergencies", map[string]interface{}{
		"location": map[string]string{"latitude": "1", "longitude": "1"},
	}, &UserClaims{Email: "jamie@example.com"})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "jamie@example.com", env.submitter.params.Requester)
}

func TestHandleCreateEmergency_NoAmbulance(t *testing.T) {
	env := newTestEnv(t)

	persisted := dispatch.EmergencyRequest{ID: uuid.New()}
	env.submitter.result = persisted
	env.submitter.err = dispatch.ErrNoAvailableAmbulance

	rec := env.do(t, http.MethodPost, "/v1/emergencies", map[string]interface{}{
		"location": map[string]string{"latitude": "6.5", "longitude": "3.3"},
	}, &UserClaims{PreferredUsername: "jamie"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[APIError](t, rec)
	assert.Equal(t, "no available ambulance", resp.Error)
	details, ok := resp.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, persisted.ID.String(), details["request_id"])
}

func TestHandleCreateEmergency_InvalidCoordinates(t *testing.T) {
	env := newTestEnv(t)
	env.submitter.err = geo.ErrInvalidCoordinate

	rec := env.do(t, http.MethodPost, "/v1/emergencies", map[string]interface{}{
		"location": map[string]string{"latitude": "95.0", "longitude": "3.3"},
	}, &UserClaims{PreferredUsername: "jamie"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[APIError](t, rec)
	assert.Equal(t, "invalid coordinates", resp.Error)
}

func TestHandleCreateEmergency_RejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/emergencies", map[string]interface{}{
		"location":  map[string]string{"latitude": "1", "longitude": "1"},
		"surprise":  true,
		"severity2": "high",
	}, &UserClaims{PreferredUsername: "jamie"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateEmergency_RejectsBadSeverity(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/emergencies", map[string]interface{}{
		"severity": "catastrophic",
		"location": map[string]string{"latitude": "1", "longitude": "1"},
	}, &UserClaims{PreferredUsername: "jamie"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetEmergency_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/emergencies/"+uuid.NewString(), nil, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetEmergency_BadID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/emergencies/not-a-uuid", nil, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleResolveEmergency(t *testing.T) {
	env := newTestEnv(t)

	req := dispatch.EmergencyRequest{ID: uuid.New()}
	env.emergencies.byID[req.ID] = req

	rec := env.do(t, http.MethodPatch, "/v1/emergencies/"+req.ID.String()+"/resolve",
		map[string]interface{}{"is_resolved": true}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[EmergencyResponse](t, rec)
	assert.True(t, resp.IsResolved)
	assert.True(t, env.emergencies.byID[req.ID].IsResolved)
}

func TestHandleCreateAmbulance(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/ambulances", map[string]interface{}{
		"hospital_id":    uuid.NewString(),
		"call_sign":      "LAG-14",
		"ambulance_type": "als",
		"location":       map[string]string{"latitude": "6.45", "longitude": "3.39"},
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[AmbulanceResponse](t, rec)
	assert.Equal(t, "LAG-14", resp.CallSign)
	assert.Equal(t, "als", resp.Type)
	assert.Equal(t, "available", resp.Status)
	require.NotNil(t, resp.Location)
	assert.Equal(t, "6.45", resp.Location.Latitude)
}

func TestHandleCreateAmbulance_WithoutLocation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/ambulances", map[string]interface{}{
		"hospital_id":    uuid.NewString(),
		"call_sign":      "LAG-15",
		"ambulance_type": "bls",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[AmbulanceResponse](t, rec)
	assert.Nil(t, resp.Location)
}

func TestHandleCreateAmbulance_InvalidLocation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/ambulances", map[string]interface{}{
		"hospital_id":    uuid.NewString(),
		"call_sign":      "LAG-16",
		"ambulance_type": "bls",
		"location":       map[string]string{"latitude": "95.0", "longitude": "3.39"},
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.ambulances.created)
}

func TestHandleCreateAmbulance_UnknownType(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/ambulances", map[string]interface{}{
		"hospital_id":    uuid.NewString(),
		"call_sign":      "LAG-17",
		"ambulance_type": "submarine",
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdateAmbulanceStatus(t *testing.T) {
	env := newTestEnv(t)

	amb, err := env.ambulances.Create(context.Background(), dispatch.CreateAmbulanceParams{
		HospitalID: uuid.New(), CallSign: "LAG-01", Type: dispatch.TypeBasicLifeSupport,
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPatch, "/v1/ambulances/"+amb.ID.String()+"/status",
		map[string]string{"status": "offline"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[AmbulanceResponse](t, rec)
	assert.Equal(t, "offline", resp.Status)
}

func TestHandleUpdateAmbulanceStatus_BusyRejected(t *testing.T) {
	env := newTestEnv(t)

	amb, err := env.ambulances.Create(context.Background(), dispatch.CreateAmbulanceParams{
		HospitalID: uuid.New(), CallSign: "LAG-02", Type: dispatch.TypeBasicLifeSupport,
	})
	require.NoError(t, err)

	// Busy is owned by the allocation path; the admin API must refuse it.
	rec := env.do(t, http.MethodPatch, "/v1/ambulances/"+amb.ID.String()+"/status",
		map[string]string{"status": "busy"}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dispatch.StatusAvailable, env.ambulances.byID[amb.ID].Status)
}

func TestHandleUpdateAmbulanceLocation(t *testing.T) {
	env := newTestEnv(t)

	amb, err := env.ambulances.Create(context.Background(), dispatch.CreateAmbulanceParams{
		HospitalID: uuid.New(), CallSign: "LAG-03", Type: dispatch.TypeIntensiveCareUnit,
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPatch, "/v1/ambulances/"+amb.ID.String()+"/location",
		map[string]string{"latitude": "6.6018", "longitude": "3.3515"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[AmbulanceResponse](t, rec)
	require.NotNil(t, resp.Location)
	assert.Equal(t, "6.6018", resp.Location.Latitude)
}

func TestHandleUpdateAmbulanceLocation_OutOfRange(t *testing.T) {
	env := newTestEnv(t)

	amb, err := env.ambulances.Create(context.Background(), dispatch.CreateAmbulanceParams{
		HospitalID: uuid.New(), CallSign: "LAG-04", Type: dispatch.TypeIntensiveCareUnit,
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPatch, "/v1/ambulances/"+amb.ID.String()+"/location",
		map[string]string{"latitude": "6.6018", "longitude": "185.0"}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDeleteAmbulance(t *testing.T) {
	env := newTestEnv(t)

	amb, err := env.ambulances.Create(context.Background(), dispatch.CreateAmbulanceParams{
		HospitalID: uuid.New(), CallSign: "LAG-05", Type: dispatch.TypeBasicLifeSupport,
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodDelete, "/v1/ambulances/"+amb.ID.String(), nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/ambulances/"+amb.ID.String(), nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHospitalCRUD(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{
		"name":           "General Hospital Lagos",
		"contact_number": "+2341234567",
		"address":        "1 Broad Street",
		"latitude":       "6.4550",
		"longitude":      "3.3841",
	}

	rec := env.do(t, http.MethodPost, "/v1/hospitals", payload, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[HospitalResponse](t, rec)
	assert.Equal(t, "General Hospital Lagos", created.Name)

	rec = env.do(t, http.MethodGet, "/v1/hospitals/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload["name"] = "Island General"
	rec = env.do(t, http.MethodPut, "/v1/hospitals/"+created.ID, payload, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[HospitalResponse](t, rec)
	assert.Equal(t, "Island General", updated.Name)

	rec = env.do(t, http.MethodDelete, "/v1/hospitals/"+created.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/hospitals/"+created.ID, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCreateHospital_MissingCoordinates(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/hospitals", map[string]string{
		"name": "No Fixed Abode Clinic",
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
