package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"factory_portal_backend/internal/events"
	"factory_portal_backend/internal/tasks/repository"
	"factory_portal_backend/internal/tasks/service"
	"factory_portal_backend/internal/tasks/transport"
	"factory_portal_backend/internal/tracking"
	"factory_portal_backend/platform/httpkit"
	"factory_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// stubRecordStore serves fixed records for the read-only endpoints.
type stubRecordStore struct {
	records []repository.Record
	byID    map[uuid.UUID]repository.Record
}

func (s *stubRecordStore) Create(ctx context.Context, stage, identifier, color, ral string, checks map[string]bool, createdBy uuid.UUID) (repository.Record, error) {
	return repository.Record{}, nil
}

func (s *stubRecordStore) GetByID(ctx context.Context, id uuid.UUID) (repository.Record, error) {
	record, ok := s.byID[id]
	if !ok {
		return repository.Record{}, repository.ErrNotFound
	}
	return record, nil
}

func (s *stubRecordStore) Update(ctx context.Context, id uuid.UUID, identifier, color, ral string, checks map[string]bool) error {
	return nil
}

func (s *stubRecordStore) Finalize(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *stubRecordStore) FindByStageIdentifier(ctx context.Context, stage, identifier string) ([]repository.Record, error) {
	var out []repository.Record
	for _, record := range s.records {
		if record.Stage == stage && record.Identifier == identifier {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *stubRecordStore) HasFinalized(ctx context.Context, stage, identifier string) (bool, error) {
	return false, nil
}

func (s *stubRecordStore) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]repository.Record, error) {
	return nil, nil
}

func (s *stubRecordStore) List(ctx context.Context, filter repository.ListFilter) ([]repository.Record, int, error) {
	return nil, 0, nil
}

var _ repository.RecordRepository = (*stubRecordStore)(nil)

type stubCatalogs struct{}

func (stubCatalogs) CatalogForStage(ctx context.Context, stage tracking.Stage) ([]tracking.CatalogItem, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, store repository.RecordRepository, userID uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("development")
	svc := service.New(store, stubCatalogs{}, events.NewInMemoryBus(log), nil, log)
	h := New(svc)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, userID)
		c.Set(httpkit.ContextEmailKey, "operario@planta.example")
		c.Set(httpkit.ContextRolesKey, []string{"operator"})
	})
	engine.GET("/tasks/status", h.Status)
	engine.GET("/tasks/:id/snapshot", h.Snapshot)
	return engine
}

const testVIN = "VF1RFB00X68123456"

func TestStatusEndpointReportsDuplicate(t *testing.T) {
	me := uuid.New()
	theirs := repository.Record{
		ID:         uuid.New(),
		Stage:      string(tracking.StagePreAssembly),
		Identifier: testVIN,
		Status:     repository.StatusPending,
		CreatedBy:  uuid.New(),
	}
	router := newTestRouter(t, &stubRecordStore{records: []repository.Record{theirs}}, me)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks/status?stage=premontaje&identifier="+testVIN, nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp transport.IdentifierStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != string(tracking.StatusDuplicate) {
		t.Errorf("status = %q, want duplicate", resp.Status)
	}
	if resp.RecordID != theirs.ID.String() {
		t.Errorf("record id = %q, want %s", resp.RecordID, theirs.ID)
	}
}

func TestStatusEndpointRejectsBadInput(t *testing.T) {
	router := newTestRouter(t, &stubRecordStore{}, uuid.New())

	for name, target := range map[string]string{
		"unknown stage":      "/tasks/status?stage=embalaje&identifier=" + testVIN,
		"missing identifier": "/tasks/status?stage=premontaje",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status code = %d, want 400", name, rec.Code)
		}
	}
}

func TestSnapshotEndpointScopesToStage(t *testing.T) {
	recordID := uuid.New()
	pending := repository.Record{
		ID:         recordID,
		Stage:      string(tracking.StagePreAssembly),
		Identifier: testVIN,
		Status:     repository.StatusPending,
		Checks:     map[string]bool{"ajustar_faro": true},
	}
	store := &stubRecordStore{byID: map[uuid.UUID]repository.Record{recordID: pending}}
	router := newTestRouter(t, store, uuid.New())

	fetch := func(stage string) transport.SnapshotResponse {
		t.Helper()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tasks/"+recordID.String()+"/snapshot?stage="+stage, nil)
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status code = %d, body %s", rec.Code, rec.Body.String())
		}
		var resp transport.SnapshotResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		return resp
	}

	own := fetch("premontaje")
	if !own.Exists || !own.Checks["ajustar_faro"] || own.RecordID != recordID.String() {
		t.Errorf("snapshot in its stage must resolve, got %+v", own)
	}

	if other := fetch("montaje"); other.Exists {
		t.Errorf("snapshot outside its stage must report exists=false, got %+v", other)
	}
}
