package tracking

import (
	"context"
	"sync"

	"factory_portal_backend/platform/apperr"
	"factory_portal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// IdentifierState is the engine's state for the current work identifier.
type IdentifierState string

const (
	// StateIdle means no identifier has been entered.
	StateIdle IdentifierState = "idle"
	// StateTyping means raw input changed and has not been validated yet.
	StateTyping IdentifierState = "typing"
	// StateChecking means a remote status query is in flight.
	StateChecking IdentifierState = "checking"
	// StateOK means the identifier is valid and available or resumed.
	StateOK IdentifierState = "ok"
	// StateFinalized means the stage is already complete for the identifier.
	// Terminal; edits are blocked until the identifier changes.
	StateFinalized IdentifierState = "finalized"
	// StateNotFound means the identifier is absent upstream.
	StateNotFound IdentifierState = "not_found"
	// StateDuplicate means the identifier is in use by another unit of work.
	StateDuplicate IdentifierState = "duplicate"
	// StateInvalid means the input failed validation or the status query
	// failed; the engine never assumes ok on a transport failure.
	StateInvalid IdentifierState = "invalid"
)

// Session is the authenticated context the engine operates under. It is
// passed in explicitly at construction; the engine never reads ambient
// session state.
type Session struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// FinalizeResult describes a completed finalize operation.
type FinalizeResult struct {
	RecordID   uuid.UUID `json:"recordId"`
	Identifier string    `json:"identifier"`
	Auto       bool      `json:"auto"`
}

// FinalizeHook is invoked once after every successful finalize, manual or
// automatic.
type FinalizeHook func(ctx context.Context, stage Stage, session Session, result FinalizeResult)

// View is the derived, read-only station state handed to the HTTP layer.
type View struct {
	Stage        Stage           `json:"stage"`
	Identifier   string          `json:"identifier"`
	State        IdentifierState `json:"state"`
	Sections     []Section       `json:"sections"`
	Percents     []int           `json:"percents"`
	Complete     bool            `json:"complete"`
	CanFinish    bool            `json:"canFinish"`
	Color        string          `json:"color,omitempty"`
	RAL          string          `json:"ral,omitempty"`
	ColorOptions []string        `json:"colorOptions,omitempty"`
	ActiveRecord *uuid.UUID      `json:"activeRecordId,omitempty"`
	LastFinalize *FinalizeResult `json:"lastFinalize,omitempty"`
}

// Engine reconciles the checklist catalog, the pending snapshot and the
// identifier status into a single finalize-readiness state machine. One
// engine serves one (user, stage) screen instance.
type Engine struct {
	mu      sync.Mutex
	profile Profile
	gw      Gateway
	session Session
	log     *logger.Logger

	catalog Catalog
	buffer  SnapshotBuffer
	opened  *Join

	identifier   string
	state        IdentifierState
	activeID     uuid.UUID
	color        string
	ral          string
	colorOptions []string

	// checkSeq guards against a stale status response being applied after
	// the operator has already typed a newer identifier.
	checkSeq uint64

	wantAuto     bool
	lastFinalize *FinalizeResult
	onFinalize   FinalizeHook
}

// New creates an engine for one stage screen instance.
func New(profile Profile, gw Gateway, session Session, log *logger.Logger) *Engine {
	e := &Engine{
		profile: profile,
		gw:      gw,
		session: session,
		log:     log,
		state:   StateIdle,
	}
	// Auto-finalize may only be considered once both the catalog and the
	// resume lookup have completed, in whatever order they arrive.
	e.opened = NewJoin(e.queueAutoFinalizeLocked, "catalog", "resume")
	return e
}

// SetFinalizeHook installs the post-finalize callback.
func (e *Engine) SetFinalizeHook(hook FinalizeHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFinalize = hook
}

// Open loads the checklist catalog and the user's resumable pending record
// concurrently. The two fetches complete in arbitrary order; each completion
// path drains the snapshot buffer, so the merge happens exactly once with
// both sides present. A catalog failure aborts the open; a pending-lookup
// failure degrades to a fresh screen.
func (e *Engine) Open(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := e.gw.FetchCatalog(gctx, e.profile.Stage)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "checklist catalog unavailable", err)
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if err := e.catalog.Load(items, e.profile.DefaultSection); err != nil {
			return err
		}
		e.drainLocked()
		e.opened.Supply("catalog")
		return nil
	})

	g.Go(func() error {
		e.resumeOwnPending(gctx)
		e.mu.Lock()
		e.opened.Supply("resume")
		e.mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	e.runQueuedAutoFinalize(ctx)
	return nil
}

// resumeOwnPending looks up the user's pending record for this stage and
// buffers its snapshot. Failures are logged and swallowed; auto-resume is
// best-effort.
func (e *Engine) resumeOwnPending(ctx context.Context) {
	pending, err := e.gw.FetchUserPending(ctx, e.session.UserID)
	if err != nil {
		e.log.Warn("pending lookup failed", "stage", string(e.profile.Stage), "error", err.Error())
		return
	}

	for _, task := range pending {
		if task.Stage != e.profile.Stage {
			continue
		}
		result, err := e.gw.FetchSnapshot(ctx, e.profile.Stage, task.RecordID)
		if err != nil {
			e.log.Warn("snapshot fetch failed", "stage", string(e.profile.Stage), "error", err.Error())
			return
		}
		if !result.Exists {
			return
		}

		e.mu.Lock()
		identifier := Normalize(result.Snapshot.Identifier, e.profile.IdentifierKind)
		e.identifier = identifier
		e.state = StateOK
		e.buffer.Offer(result.Snapshot)
		e.drainLocked()
		e.mu.Unlock()
		e.log.StationEvent(string(e.profile.Stage), identifier, "resumed")
		return
	}
}

// Resume loads a specific pending record into the screen, used when the
// operator picks one from the pending list instead of typing an identifier.
func (e *Engine) Resume(ctx context.Context, recordID uuid.UUID) error {
	result, err := e.gw.FetchSnapshot(ctx, e.profile.Stage, recordID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "snapshot fetch failed", err)
	}
	if !result.Exists {
		return apperr.NotFound("pending record not found")
	}

	e.mu.Lock()
	e.identifier = Normalize(result.Snapshot.Identifier, e.profile.IdentifierKind)
	e.state = StateOK
	e.buffer.Offer(result.Snapshot)
	e.drainLocked()
	if e.profile.AutoFinalize && e.canFinishLocked() {
		e.wantAuto = true
	}
	e.mu.Unlock()

	e.runQueuedAutoFinalize(ctx)
	return nil
}

// SetIdentifier validates new operator input and queries its remote status.
// Terminal outcomes (invalid, finalized, duplicate, not_found) are states,
// not errors. A response that no longer matches the current input is
// discarded; the newest input always wins.
func (e *Engine) SetIdentifier(ctx context.Context, raw string) (IdentifierState, error) {
	e.mu.Lock()
	e.state = StateTyping
	normalized := Normalize(raw, e.profile.IdentifierKind)
	e.identifier = normalized
	e.activeID = uuid.Nil
	e.catalog.ClearAll()
	// Aux fields belong to the record being worked, never to the screen:
	// a leftover color must not satisfy readiness for a new identifier.
	e.color = ""
	e.ral = ""
	e.lastFinalize = nil

	if !e.profile.IdentifierKind.Valid(normalized) {
		e.state = StateInvalid
		e.mu.Unlock()
		return StateInvalid, nil
	}

	e.state = StateChecking
	e.checkSeq++
	seq := e.checkSeq
	e.mu.Unlock()

	status, err := e.gw.FetchIdentifierStatus(ctx, e.profile.Stage, normalized, e.session.UserID)

	e.mu.Lock()
	if seq != e.checkSeq || e.identifier != normalized {
		// Superseded by newer input while the query was in flight.
		state := e.state
		e.mu.Unlock()
		return state, nil
	}

	if err != nil {
		// Fail closed: a transport failure never silently becomes ok.
		e.state = StateInvalid
		e.mu.Unlock()
		e.log.Warn("identifier status check failed",
			"stage", string(e.profile.Stage),
			"identifier", normalized,
			"error", err.Error(),
		)
		return StateInvalid, nil
	}

	switch status.Status {
	case StatusFinalized:
		e.state = StateFinalized
	case StatusDuplicate:
		e.state = StateDuplicate
	case StatusNotFound:
		e.state = StateNotFound
	case StatusPending:
		e.buffer.Offer(Snapshot{
			RecordID:   status.RecordID,
			Identifier: normalized,
			Checks:     status.Checks,
			Color:      status.Color,
			RAL:        status.RAL,
		})
		e.drainLocked()
		e.state = StateOK
		if e.profile.AutoFinalize && e.canFinishLocked() {
			e.wantAuto = true
		}
	default:
		e.state = StateOK
	}
	state := e.state
	e.mu.Unlock()

	e.log.StationEvent(string(e.profile.Stage), normalized, string(state))
	e.runQueuedAutoFinalize(ctx)

	e.mu.Lock()
	state = e.state
	e.mu.Unlock()
	return state, nil
}

// Toggle flips one checklist item. Blocked while the identifier is in the
// finalized state.
func (e *Engine) Toggle(sectionIndex, itemIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateFinalized {
		return apperr.Conflict("stage already finalized for this identifier")
	}
	return e.catalog.Toggle(sectionIndex, itemIndex)
}

// ClearSection unchecks one section.
func (e *Engine) ClearSection(sectionIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateFinalized {
		return apperr.Conflict("stage already finalized for this identifier")
	}
	return e.catalog.ClearSection(sectionIndex)
}

// ClearAll unchecks everything.
func (e *Engine) ClearAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateFinalized {
		return apperr.Conflict("stage already finalized for this identifier")
	}
	e.catalog.ClearAll()
	return nil
}

// SetAux sets the stage's auxiliary fields. Unseen colors are added to the
// screen's option list.
func (e *Engine) SetAux(color, ral string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if color != "" {
		e.color = Normalize(color, KindColor)
		e.addColorOptionLocked(e.color)
	}
	if ral != "" {
		e.ral = ral
	}
}

// CanFinish reports finalize readiness. It is always computed, never stored:
// catalog complete, identifier ok, and required aux fields filled.
func (e *Engine) CanFinish() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canFinishLocked()
}

// Finalize runs the explicit, user-confirmed finalize flow: patch the active
// pending record (or create one) and mark it finalized. On any failure the
// screen state is preserved so the operator can retry.
func (e *Engine) Finalize(ctx context.Context) (FinalizeResult, error) {
	return e.finalize(ctx, false)
}

func (e *Engine) finalize(ctx context.Context, auto bool) (FinalizeResult, error) {
	e.mu.Lock()
	if !e.canFinishLocked() {
		e.mu.Unlock()
		return FinalizeResult{}, apperr.Validation("task is not ready to finalize")
	}
	draft := e.draftLocked()
	recordID := e.activeID
	identifier := e.identifier
	e.mu.Unlock()

	if recordID != uuid.Nil {
		if err := e.gw.UpdateRecord(ctx, e.profile.Stage, recordID, draft); err != nil {
			return FinalizeResult{}, apperr.Wrap(apperr.KindInternal, "saving progress before finalize failed", err)
		}
	} else {
		id, err := e.gw.StartRecord(ctx, e.profile.Stage, draft, e.session.UserID)
		if err != nil {
			return FinalizeResult{}, apperr.Wrap(apperr.KindInternal, "creating record failed", err)
		}
		if id == uuid.Nil {
			return FinalizeResult{}, apperr.Internal("backend returned no record id")
		}
		recordID = id
	}

	if err := e.gw.FinalizeRecord(ctx, e.profile.Stage, recordID); err != nil {
		return FinalizeResult{}, apperr.Wrap(apperr.KindInternal, "finalize failed", err)
	}

	result := FinalizeResult{RecordID: recordID, Identifier: identifier, Auto: auto}

	e.mu.Lock()
	e.resetLocked()
	e.lastFinalize = &result
	hook := e.onFinalize
	e.mu.Unlock()

	e.log.StationEvent(string(e.profile.Stage), identifier, "finalized")
	if hook != nil {
		hook(ctx, e.profile.Stage, e.session, result)
	}
	return result, nil
}

// LeaveAndSave persists current progress before the operator navigates away.
// Saving is best-effort: a failure is logged and reported, never an error
// that would block navigation.
func (e *Engine) LeaveAndSave(ctx context.Context) (saved bool) {
	e.mu.Lock()
	draft := e.draftLocked()
	recordID := e.activeID
	hasProgress := e.hasProgressLocked()
	state := e.state
	e.mu.Unlock()

	if recordID != uuid.Nil {
		if err := e.gw.UpdateRecord(ctx, e.profile.Stage, recordID, draft); err != nil {
			e.log.Warn("leave-and-save update failed", "stage", string(e.profile.Stage), "error", err.Error())
			return false
		}
		return true
	}

	if !hasProgress || state != StateOK {
		return false
	}

	id, err := e.gw.StartRecord(ctx, e.profile.Stage, draft, e.session.UserID)
	if err != nil {
		e.log.Warn("leave-and-save create failed", "stage", string(e.profile.Stage), "error", err.Error())
		return false
	}

	e.mu.Lock()
	e.activeID = id
	e.mu.Unlock()
	return true
}

// View returns the derived station state.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	view := View{
		Stage:        e.profile.Stage,
		Identifier:   e.identifier,
		State:        e.state,
		Sections:     e.catalog.Sections(),
		Percents:     e.catalog.Percents(),
		Complete:     e.catalog.Complete(),
		CanFinish:    e.canFinishLocked(),
		Color:        e.color,
		RAL:          e.ral,
		ColorOptions: append([]string(nil), e.colorOptions...),
		LastFinalize: e.lastFinalize,
	}
	if e.activeID != uuid.Nil {
		id := e.activeID
		view.ActiveRecord = &id
	}
	return view
}

// drainLocked merges a buffered snapshot into the catalog and picks up its
// record id and aux fields. Call with e.mu held; a no-op unless both the
// catalog and a snapshot are present.
func (e *Engine) drainLocked() {
	snapshot, applied := e.buffer.DrainInto(&e.catalog)
	if !applied {
		return
	}
	e.activeID = snapshot.RecordID
	if snapshot.Color != "" {
		e.color = snapshot.Color
		e.addColorOptionLocked(snapshot.Color)
	}
	if snapshot.RAL != "" {
		e.ral = snapshot.RAL
	}
}

// queueAutoFinalizeLocked is the open-join combinator: with catalog and
// resume both settled, a resumed record that is already complete may close
// itself. Runs with e.mu held.
func (e *Engine) queueAutoFinalizeLocked() {
	if e.profile.AutoFinalize && e.canFinishLocked() {
		e.wantAuto = true
	}
}

// runQueuedAutoFinalize performs a queued auto-finalize outside the lock.
// A failure keeps the screen state for a manual retry.
func (e *Engine) runQueuedAutoFinalize(ctx context.Context) {
	e.mu.Lock()
	want := e.wantAuto
	e.wantAuto = false
	e.mu.Unlock()
	if !want {
		return
	}

	if _, err := e.finalize(ctx, true); err != nil {
		e.log.Warn("auto-finalize failed", "stage", string(e.profile.Stage), "error", err.Error())
	}
}

func (e *Engine) canFinishLocked() bool {
	if e.state != StateOK {
		return false
	}
	if !e.catalog.Complete() {
		return false
	}
	if e.profile.RequiresColor && e.color == "" {
		return false
	}
	if e.profile.RequiresRAL && e.ral == "" {
		return false
	}
	return true
}

func (e *Engine) draftLocked() RecordDraft {
	return RecordDraft{
		Identifier: e.identifier,
		Color:      e.color,
		RAL:        e.ral,
		Checks:     e.catalog.Checks(),
	}
}

func (e *Engine) hasProgressLocked() bool {
	for _, done := range e.catalog.Checks() {
		if done {
			return true
		}
	}
	return e.color != "" || e.ral != ""
}

func (e *Engine) resetLocked() {
	e.catalog.ClearAll()
	e.identifier = ""
	e.state = StateIdle
	e.activeID = uuid.Nil
	e.color = ""
	e.ral = ""
	e.wantAuto = false
}

func (e *Engine) addColorOptionLocked(color string) {
	for _, existing := range e.colorOptions {
		if existing == color {
			return
		}
	}
	e.colorOptions = append(e.colorOptions, color)
}
