package service

import (
	"context"
	"testing"

	"factory_portal_backend/internal/events"
	"factory_portal_backend/internal/tasks/repository"
	"factory_portal_backend/internal/tracking"
	"factory_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRecordStore is a controllable in-memory RecordRepository.
type fakeRecordStore struct {
	records           []repository.Record // returned by FindByStageIdentifier as-is
	byID              map[uuid.UUID]repository.Record
	upstreamFinalized map[string]bool // stage -> HasFinalized answer
	upstreamQueried   bool
}

func (f *fakeRecordStore) Create(ctx context.Context, stage, identifier, color, ral string, checks map[string]bool, createdBy uuid.UUID) (repository.Record, error) {
	return repository.Record{ID: uuid.New(), Stage: stage, Identifier: identifier}, nil
}

func (f *fakeRecordStore) GetByID(ctx context.Context, id uuid.UUID) (repository.Record, error) {
	record, ok := f.byID[id]
	if !ok {
		return repository.Record{}, repository.ErrNotFound
	}
	return record, nil
}

func (f *fakeRecordStore) Update(ctx context.Context, id uuid.UUID, identifier, color, ral string, checks map[string]bool) error {
	return nil
}

func (f *fakeRecordStore) Finalize(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (f *fakeRecordStore) FindByStageIdentifier(ctx context.Context, stage, identifier string) ([]repository.Record, error) {
	var out []repository.Record
	for _, record := range f.records {
		if record.Stage == stage && record.Identifier == identifier {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) HasFinalized(ctx context.Context, stage, identifier string) (bool, error) {
	f.upstreamQueried = true
	return f.upstreamFinalized[stage], nil
}

func (f *fakeRecordStore) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]repository.Record, error) {
	return nil, nil
}

func (f *fakeRecordStore) List(ctx context.Context, filter repository.ListFilter) ([]repository.Record, int, error) {
	return nil, 0, nil
}

var _ repository.RecordRepository = (*fakeRecordStore)(nil)

type fakeCatalogs struct{}

func (fakeCatalogs) CatalogForStage(ctx context.Context, stage tracking.Stage) ([]tracking.CatalogItem, error) {
	return []tracking.CatalogItem{
		{Label: "Montar estribera", Section: "Fase 1", Active: true},
		{Label: "Ajustar faro", Section: "Fase 1", Active: true},
	}, nil
}

func newTestService(store *fakeRecordStore) *Service {
	log := logger.New("development")
	return New(store, fakeCatalogs{}, events.NewInMemoryBus(log), nil, log)
}

const testVIN = "VF1RFB00X68123456"

func TestFetchIdentifierStatusPrecedence(t *testing.T) {
	me := uuid.New()
	other := uuid.New()

	pendingOf := func(owner uuid.UUID) repository.Record {
		return repository.Record{
			ID:         uuid.New(),
			Stage:      string(tracking.StagePreAssembly),
			Identifier: testVIN,
			Status:     repository.StatusPending,
			CreatedBy:  owner,
			Checks:     map[string]bool{"montar_estribera": true},
			Color:      "Rojo Vivo",
			RAL:        "3002",
		}
	}
	finalized := repository.Record{
		ID:         uuid.New(),
		Stage:      string(tracking.StagePreAssembly),
		Identifier: testVIN,
		Status:     repository.StatusFinalized,
		CreatedBy:  other,
	}
	ownPending := pendingOf(me)
	otherPending := pendingOf(other)

	cases := []struct {
		name       string
		records    []repository.Record
		upstream   bool
		wantStatus tracking.RecordStatus
		wantID     uuid.UUID
	}{
		{
			name:       "finalized wins over every pending",
			records:    []repository.Record{ownPending, finalized, otherPending},
			wantStatus: tracking.StatusFinalized,
			wantID:     finalized.ID,
		},
		{
			name:       "own pending resumes as snapshot",
			records:    []repository.Record{ownPending},
			wantStatus: tracking.StatusPending,
			wantID:     ownPending.ID,
		},
		{
			name:       "own pending wins over another operator's",
			records:    []repository.Record{otherPending, ownPending},
			wantStatus: tracking.StatusPending,
			wantID:     ownPending.ID,
		},
		{
			name:       "another operator's pending blocks as duplicate",
			records:    []repository.Record{otherPending},
			wantStatus: tracking.StatusDuplicate,
			wantID:     otherPending.ID,
		},
		{
			name:       "no record and upstream missing",
			records:    nil,
			upstream:   false,
			wantStatus: tracking.StatusNotFound,
		},
		{
			name:       "no record and upstream finalized",
			records:    nil,
			upstream:   true,
			wantStatus: tracking.StatusFree,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeRecordStore{
				records: tc.records,
				upstreamFinalized: map[string]bool{
					string(tracking.StageFrame): tc.upstream,
				},
			}
			svc := newTestService(store)

			status, err := svc.FetchIdentifierStatus(context.Background(), tracking.StagePreAssembly, testVIN, me)
			if err != nil {
				t.Fatalf("FetchIdentifierStatus: %v", err)
			}
			if status.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", status.Status, tc.wantStatus)
			}
			if status.RecordID != tc.wantID {
				t.Errorf("record id = %s, want %s", status.RecordID, tc.wantID)
			}
			if tc.wantStatus == tracking.StatusPending {
				if !status.Checks["montar_estribera"] || status.Color != "Rojo Vivo" || status.RAL != "3002" {
					t.Errorf("own pending must carry its snapshot fields, got %+v", status)
				}
			}
		})
	}
}

func TestFetchIdentifierStatusSkipsUpstreamWithoutOne(t *testing.T) {
	store := &fakeRecordStore{}
	svc := newTestService(store)

	status, err := svc.FetchIdentifierStatus(context.Background(), tracking.StageFrame, testVIN, uuid.New())
	if err != nil {
		t.Fatalf("FetchIdentifierStatus: %v", err)
	}
	if status.Status != tracking.StatusFree {
		t.Fatalf("status = %s, want free", status.Status)
	}
	if store.upstreamQueried {
		t.Error("a stage without an upstream must not run the upstream check")
	}
}

func TestFetchSnapshotScoping(t *testing.T) {
	recordID := uuid.New()
	pending := repository.Record{
		ID:         recordID,
		Stage:      string(tracking.StagePreAssembly),
		Identifier: testVIN,
		Status:     repository.StatusPending,
		Checks:     map[string]bool{"ajustar_faro": true},
	}

	cases := []struct {
		name       string
		record     repository.Record
		stage      tracking.Stage
		wantExists bool
	}{
		{"pending record in its stage", pending, tracking.StagePreAssembly, true},
		{"wrong stage", pending, tracking.StageAssembly, false},
		{
			"finalized record",
			repository.Record{ID: recordID, Stage: pending.Stage, Status: repository.StatusFinalized},
			tracking.StagePreAssembly,
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeRecordStore{byID: map[uuid.UUID]repository.Record{recordID: tc.record}}
			svc := newTestService(store)

			result, err := svc.FetchSnapshot(context.Background(), tc.stage, recordID)
			if err != nil {
				t.Fatalf("FetchSnapshot: %v", err)
			}
			if result.Exists != tc.wantExists {
				t.Fatalf("exists = %v, want %v", result.Exists, tc.wantExists)
			}
			if tc.wantExists && !result.Snapshot.Checks["ajustar_faro"] {
				t.Error("snapshot must carry the record's checks")
			}
		})
	}
}

func TestFetchSnapshotMissingRecord(t *testing.T) {
	svc := newTestService(&fakeRecordStore{})

	result, err := svc.FetchSnapshot(context.Background(), tracking.StagePreAssembly, uuid.New())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if result.Exists {
		t.Fatal("a missing record must report exists=false, not an error")
	}
}
