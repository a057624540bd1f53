package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"factory_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeGateway is a controllable in-memory Gateway for engine tests.
type fakeGateway struct {
	mu sync.Mutex

	catalog        []CatalogItem
	catalogErr     error
	catalogGate    chan struct{} // when set, FetchCatalog blocks until closed
	status         map[string]IdentifierStatus
	statusErr      error
	statusGates    map[string]chan struct{} // per-identifier blocking
	statusInFlight map[string]chan struct{} // closed when the identifier's query starts
	pending        []PendingTask
	pendingErr     error
	snapshots      map[uuid.UUID]SnapshotResult
	startID        uuid.UUID
	startErr       error
	updateErr      error
	finalizeErr    error
	startCalls     int
	updateCalls    int
	finalizeID     uuid.UUID
	finalizeHits   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		status:         make(map[string]IdentifierStatus),
		statusGates:    make(map[string]chan struct{}),
		statusInFlight: make(map[string]chan struct{}),
		snapshots:      make(map[uuid.UUID]SnapshotResult),
	}
}

func (f *fakeGateway) FetchCatalog(ctx context.Context, stage Stage) ([]CatalogItem, error) {
	f.mu.Lock()
	gate := f.catalogGate
	items, err := f.catalog, f.catalogErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return items, err
}

func (f *fakeGateway) FetchIdentifierStatus(ctx context.Context, stage Stage, identifier string, userID uuid.UUID) (IdentifierStatus, error) {
	f.mu.Lock()
	gate := f.statusGates[identifier]
	status, ok := f.status[identifier]
	err := f.statusErr
	if inFlight, has := f.statusInFlight[identifier]; has {
		close(inFlight)
		delete(f.statusInFlight, identifier)
	}
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return IdentifierStatus{}, err
	}
	if !ok {
		return IdentifierStatus{Status: StatusFree}, nil
	}
	return status, nil
}

func (f *fakeGateway) FetchUserPending(ctx context.Context, userID uuid.UUID) ([]PendingTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, f.pendingErr
}

func (f *fakeGateway) FetchSnapshot(ctx context.Context, stage Stage, recordID uuid.UUID) (SnapshotResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshots[recordID], nil
}

func (f *fakeGateway) StartRecord(ctx context.Context, stage Stage, draft RecordDraft, userID uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.startID, f.startErr
}

func (f *fakeGateway) UpdateRecord(ctx context.Context, stage Stage, recordID uuid.UUID, draft RecordDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	return f.updateErr
}

func (f *fakeGateway) FinalizeRecord(ctx context.Context, stage Stage, recordID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	f.finalizeHits++
	f.finalizeID = recordID
	return nil
}

var _ Gateway = (*fakeGateway)(nil)

func testSession() Session {
	return Session{UserID: uuid.New(), Email: "operario@planta.example", Role: "operator"}
}

func newTestEngine(t *testing.T, stage Stage, gw Gateway) *Engine {
	t.Helper()
	profile, err := ProfileFor(stage)
	if err != nil {
		t.Fatalf("ProfileFor: %v", err)
	}
	return New(profile, gw, testSession(), logger.New("development"))
}

func preassemblyCatalog() []CatalogItem {
	return []CatalogItem{
		{Label: "Montar estribera", Section: "Fase 1", Active: true},
		{Label: "Ajustar faro", Section: "Fase 1", Active: true},
	}
}

const testVIN = "VF1RFB00X68123456"

func TestOpenMergesSnapshotRegardlessOfArrivalOrder(t *testing.T) {
	recordID := uuid.New()

	// Run the open twice: once with the catalog delayed behind the snapshot,
	// once with the snapshot path delayed behind the catalog.
	for name, delayCatalog := range map[string]bool{"snapshot_first": true, "catalog_first": false} {
		t.Run(name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.catalog = preassemblyCatalog()
			gw.pending = []PendingTask{{Stage: StagePreAssembly, RecordID: recordID, Identifier: testVIN}}
			gw.snapshots[recordID] = SnapshotResult{
				Exists: true,
				Snapshot: Snapshot{
					RecordID:   recordID,
					Identifier: testVIN,
					Checks:     map[string]bool{"montar_estribera": true, "ajustar_faro": false},
				},
			}

			var gate chan struct{}
			if delayCatalog {
				gate = make(chan struct{})
				gw.catalogGate = gate
				go func() { close(gate) }()
			}

			engine := newTestEngine(t, StagePreAssembly, gw)
			if err := engine.Open(context.Background()); err != nil {
				t.Fatalf("Open: %v", err)
			}

			view := engine.View()
			if view.State != StateOK {
				t.Fatalf("state = %s, want ok", view.State)
			}
			if view.ActiveRecord == nil || *view.ActiveRecord != recordID {
				t.Fatalf("active record = %v, want %s", view.ActiveRecord, recordID)
			}
			items := view.Sections[0].Items
			if !items[0].Done || items[1].Done {
				t.Fatalf("expected [checked, unchecked], got %+v", items)
			}
		})
	}
}

func TestOpenSurvivesPendingLookupFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.pendingErr = errors.New("backend down")

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open must tolerate a pending lookup failure: %v", err)
	}
	if view := engine.View(); view.State != StateIdle {
		t.Fatalf("state = %s, want idle", view.State)
	}
}

func TestOpenFailsWithoutCatalog(t *testing.T) {
	gw := newFakeGateway()
	gw.catalogErr = errors.New("catalog service unreachable")

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err == nil {
		t.Fatal("expected Open to fail when the catalog cannot load")
	}
}

func TestSetIdentifierStateMapping(t *testing.T) {
	cases := map[RecordStatus]IdentifierState{
		StatusFree:      StateOK,
		StatusFinalized: StateFinalized,
		StatusDuplicate: StateDuplicate,
		StatusNotFound:  StateNotFound,
	}

	for status, want := range cases {
		gw := newFakeGateway()
		gw.catalog = preassemblyCatalog()
		gw.status[testVIN] = IdentifierStatus{Status: status}

		engine := newTestEngine(t, StagePreAssembly, gw)
		if err := engine.Open(context.Background()); err != nil {
			t.Fatalf("Open: %v", err)
		}

		state, err := engine.SetIdentifier(context.Background(), testVIN)
		if err != nil {
			t.Fatalf("SetIdentifier(%s): %v", status, err)
		}
		if state != want {
			t.Errorf("status %s: state = %s, want %s", status, state, want)
		}
	}
}

func TestSetIdentifierRejectsBadSyntaxLocally(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.statusErr = errors.New("must not be called")

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	state, err := engine.SetIdentifier(context.Background(), "too short")
	if err != nil {
		t.Fatalf("SetIdentifier: %v", err)
	}
	if state != StateInvalid {
		t.Fatalf("state = %s, want invalid", state)
	}
}

func TestSetIdentifierFailsClosedOnTransportError(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.statusErr = errors.New("network down")

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	state, err := engine.SetIdentifier(context.Background(), testVIN)
	if err != nil {
		t.Fatalf("SetIdentifier: %v", err)
	}
	if state != StateInvalid {
		t.Fatalf("state = %s, want invalid (fail closed)", state)
	}
}

func TestStaleStatusResponseIsDiscarded(t *testing.T) {
	const staleVIN = "VF1RFB00X68000001"
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.status[staleVIN] = IdentifierStatus{Status: StatusFinalized}
	gw.status[testVIN] = IdentifierStatus{Status: StatusFree}

	gate := make(chan struct{})
	inFlight := make(chan struct{})
	gw.statusGates[staleVIN] = gate
	gw.statusInFlight[staleVIN] = inFlight

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = engine.SetIdentifier(context.Background(), staleVIN)
	}()
	<-inFlight

	// The newer input completes while the first query is still in flight.
	if state, _ := engine.SetIdentifier(context.Background(), testVIN); state != StateOK {
		t.Fatalf("newer identifier state = %s, want ok", state)
	}

	close(gate)
	<-done

	if view := engine.View(); view.State != StateOK || view.Identifier != testVIN {
		t.Fatalf("stale response clobbered newer input: state=%s identifier=%s", view.State, view.Identifier)
	}
}

func TestFinalizedIdentifierBlocksEditsAndFinish(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.status[testVIN] = IdentifierStatus{Status: StatusFinalized}

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if state, _ := engine.SetIdentifier(context.Background(), testVIN); state != StateFinalized {
		t.Fatalf("state = %s, want finalized", state)
	}
	if err := engine.Toggle(0, 0); err == nil {
		t.Fatal("toggle must be blocked while finalized")
	}
	if engine.CanFinish() {
		t.Fatal("canFinish must stay false in finalized state")
	}
}

func TestSetIdentifierAppliesPendingSnapshot(t *testing.T) {
	recordID := uuid.New()
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.status[testVIN] = IdentifierStatus{
		Status:   StatusPending,
		RecordID: recordID,
		Checks:   map[string]bool{"montar_estribera": true},
	}

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	state, err := engine.SetIdentifier(context.Background(), testVIN)
	if err != nil {
		t.Fatalf("SetIdentifier: %v", err)
	}
	if state != StateOK {
		t.Fatalf("state = %s, want ok", state)
	}

	view := engine.View()
	if view.ActiveRecord == nil || *view.ActiveRecord != recordID {
		t.Fatalf("active record = %v, want %s", view.ActiveRecord, recordID)
	}
	items := view.Sections[0].Items
	if !items[0].Done || items[1].Done {
		t.Fatalf("expected snapshot checks applied, got %+v", items)
	}
}

func TestFinalizeWithoutActiveRecordStartsThenFinalizes(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.startID = uuid.New()

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if state, _ := engine.SetIdentifier(context.Background(), testVIN); state != StateOK {
		t.Fatalf("unexpected state %s", state)
	}
	_ = engine.Toggle(0, 0)
	_ = engine.Toggle(0, 1)

	result, err := engine.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.RecordID != gw.startID {
		t.Errorf("finalized id = %s, want the id returned by start %s", result.RecordID, gw.startID)
	}
	if gw.startCalls != 1 || gw.finalizeHits != 1 || gw.finalizeID != gw.startID {
		t.Errorf("expected start then finalize on same id, got start=%d finalize=%d id=%s",
			gw.startCalls, gw.finalizeHits, gw.finalizeID)
	}

	if view := engine.View(); view.State != StateIdle || view.Identifier != "" {
		t.Errorf("state must reset after finalize, got %+v", view)
	}
}

func TestFinalizeAbortsWhenStartReturnsNoID(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.startID = uuid.Nil

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, _ = engine.SetIdentifier(context.Background(), testVIN)
	_ = engine.Toggle(0, 0)
	_ = engine.Toggle(0, 1)

	if _, err := engine.Finalize(context.Background()); err == nil {
		t.Fatal("expected error when start returns no id")
	}
	if gw.finalizeHits != 0 {
		t.Fatal("finalize must not be called without a record id")
	}
	if view := engine.View(); view.State != StateOK {
		t.Fatalf("state must be preserved on failure, got %s", view.State)
	}
}

func TestFinalizeWithActiveRecordUpdatesThenFinalizes(t *testing.T) {
	recordID := uuid.New()
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.status[testVIN] = IdentifierStatus{
		Status:   StatusPending,
		RecordID: recordID,
		Checks:   map[string]bool{"montar_estribera": true},
	}

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, _ = engine.SetIdentifier(context.Background(), testVIN)
	_ = engine.Toggle(0, 1)

	result, err := engine.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.RecordID != recordID {
		t.Errorf("finalized id = %s, want resumed record %s", result.RecordID, recordID)
	}
	if gw.updateCalls != 1 || gw.startCalls != 0 {
		t.Errorf("expected update(1)/start(0), got update=%d start=%d", gw.updateCalls, gw.startCalls)
	}
}

func TestFinalizeFailurePreservesState(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.startID = uuid.New()
	gw.finalizeErr = errors.New("backend rejected finalize")

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, _ = engine.SetIdentifier(context.Background(), testVIN)
	_ = engine.Toggle(0, 0)
	_ = engine.Toggle(0, 1)

	if _, err := engine.Finalize(context.Background()); err == nil {
		t.Fatal("expected finalize error to surface")
	}

	view := engine.View()
	if view.Identifier != testVIN || !view.Complete {
		t.Fatalf("screen state must survive a failed finalize, got %+v", view)
	}
}

func TestAutoFinalizeOnResumedCompleteRecord(t *testing.T) {
	recordID := uuid.New()
	gw := newFakeGateway()
	gw.catalog = []CatalogItem{
		{Label: "Montar rueda", Section: "Fase 1", Active: true},
	}
	gw.pending = []PendingTask{{Stage: StageAssembly, RecordID: recordID, Identifier: testVIN}}
	gw.snapshots[recordID] = SnapshotResult{
		Exists: true,
		Snapshot: Snapshot{
			RecordID:   recordID,
			Identifier: testVIN,
			Checks:     map[string]bool{"montar_rueda": true},
			Color:      "Rojo Vivo",
		},
	}

	engine := newTestEngine(t, StageAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if gw.finalizeHits != 1 || gw.finalizeID != recordID {
		t.Fatalf("expected auto-finalize of the resumed record, finalize=%d id=%s", gw.finalizeHits, gw.finalizeID)
	}
	view := engine.View()
	if view.State != StateIdle {
		t.Errorf("state after auto-finalize = %s, want idle", view.State)
	}
	if view.LastFinalize == nil || !view.LastFinalize.Auto {
		t.Errorf("expected auto finalize recorded, got %+v", view.LastFinalize)
	}
}

func TestNoAutoFinalizeWhenIncomplete(t *testing.T) {
	recordID := uuid.New()
	gw := newFakeGateway()
	gw.catalog = []CatalogItem{
		{Label: "Montar rueda", Section: "Fase 1", Active: true},
		{Label: "Apretar tuercas", Section: "Fase 1", Active: true},
	}
	gw.pending = []PendingTask{{Stage: StageAssembly, RecordID: recordID, Identifier: testVIN}}
	gw.snapshots[recordID] = SnapshotResult{
		Exists: true,
		Snapshot: Snapshot{
			RecordID:   recordID,
			Identifier: testVIN,
			Checks:     map[string]bool{"montar_rueda": true},
			Color:      "Rojo Vivo",
		},
	}

	engine := newTestEngine(t, StageAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if gw.finalizeHits != 0 {
		t.Fatal("incomplete resumed record must not auto-finalize")
	}
	if view := engine.View(); view.State != StateOK {
		t.Fatalf("state = %s, want ok", view.State)
	}
}

func TestLeaveAndSaveFailureDoesNotBlock(t *testing.T) {
	recordID := uuid.New()
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.status[testVIN] = IdentifierStatus{
		Status:   StatusPending,
		RecordID: recordID,
		Checks:   map[string]bool{"montar_estribera": true},
	}
	gw.updateErr = errors.New("save failed")

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, _ = engine.SetIdentifier(context.Background(), testVIN)

	// Best-effort: the failure is reported but never returned as an error.
	if saved := engine.LeaveAndSave(context.Background()); saved {
		t.Fatal("expected save to report failure")
	}
}

func TestLeaveAndSaveCreatesRecordForNewProgress(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.startID = uuid.New()

	engine := newTestEngine(t, StagePreAssembly, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, _ = engine.SetIdentifier(context.Background(), testVIN)
	_ = engine.Toggle(0, 0)

	if saved := engine.LeaveAndSave(context.Background()); !saved {
		t.Fatal("expected progress to be saved")
	}
	if gw.startCalls != 1 {
		t.Fatalf("expected one start call, got %d", gw.startCalls)
	}
	if view := engine.View(); view.ActiveRecord == nil || *view.ActiveRecord != gw.startID {
		t.Fatal("active record id must be adopted from the save")
	}
}

func TestFinalizeHookFiresOnce(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()
	gw.startID = uuid.New()

	engine := newTestEngine(t, StagePreAssembly, gw)
	var hookCalls int
	var hookResult FinalizeResult
	engine.SetFinalizeHook(func(ctx context.Context, stage Stage, session Session, result FinalizeResult) {
		hookCalls++
		hookResult = result
	})

	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, _ = engine.SetIdentifier(context.Background(), testVIN)
	_ = engine.Toggle(0, 0)
	_ = engine.Toggle(0, 1)

	if _, err := engine.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if hookCalls != 1 {
		t.Fatalf("hook calls = %d, want 1", hookCalls)
	}
	if hookResult.Identifier != testVIN {
		t.Errorf("hook identifier = %q, want %q", hookResult.Identifier, testVIN)
	}
}

func TestSetIdentifierClearsAuxFromPreviousIdentifier(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog = preassemblyCatalog()

	engine := newTestEngine(t, StageFrame, gw)
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if state, _ := engine.SetIdentifier(context.Background(), testVIN); state != StateOK {
		t.Fatalf("unexpected state %s", state)
	}
	engine.SetAux("Rojo Vivo", "3002")
	if view := engine.View(); view.Color == "" || view.RAL == "" {
		t.Fatalf("aux fields must be set before switching, got %+v", view)
	}

	const otherVIN = "VF1RFB00X68654321"
	if state, _ := engine.SetIdentifier(context.Background(), otherVIN); state != StateOK {
		t.Fatalf("unexpected state %s", state)
	}
	view := engine.View()
	if view.Color != "" || view.RAL != "" {
		t.Errorf("aux fields must reset with a new identifier, got color %q ral %q", view.Color, view.RAL)
	}
	if view.CanFinish {
		t.Error("a fresh identifier must not inherit readiness from stale aux fields")
	}
}
