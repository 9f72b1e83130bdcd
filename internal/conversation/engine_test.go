package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaRodriguez97/back-adviser/internal/clients"
	"github.com/JaRodriguez97/back-adviser/internal/messages"
	"github.com/JaRodriguez97/back-adviser/internal/schedule"
	"github.com/JaRodriguez97/back-adviser/internal/tenancy"
	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

type fakeOracle struct {
	classifyFn func(ClassifyRequest) (Classification, error)
	extractFn  func(ExtractRequest) (messages.Snapshot, error)
	replyFn    func(ReplyRequest) (string, error)

	classifyCalls int
	extractCalls  int
}

func (f *fakeOracle) Classify(_ context.Context, req ClassifyRequest) (Classification, error) {
	f.classifyCalls++
	if f.classifyFn == nil {
		return Classification{Intent: messages.IntentOther}, nil
	}
	return f.classifyFn(req)
}

func (f *fakeOracle) Extract(_ context.Context, req ExtractRequest) (messages.Snapshot, error) {
	f.extractCalls++
	if f.extractFn == nil {
		return messages.Snapshot{Ambiguous: true}, nil
	}
	return f.extractFn(req)
}

func (f *fakeOracle) Reply(_ context.Context, req ReplyRequest) (string, error) {
	if f.replyFn == nil {
		return "", errors.New("no reply oracle")
	}
	return f.replyFn(req)
}

type fakeDirectory struct {
	tenant   *tenancy.Tenant
	services []tenancy.Service
}

func (f *fakeDirectory) GetByID(_ context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	if f.tenant == nil || f.tenant.ID != id {
		return nil, tenancy.ErrTenantNotFound
	}
	return f.tenant, nil
}

func (f *fakeDirectory) ListServices(_ context.Context, _ uuid.UUID) ([]tenancy.Service, error) {
	return f.services, nil
}

type fakeTurnLog struct {
	history   []messages.Turn
	inserted  []*messages.Turn
	insertErr error
}

func (f *fakeTurnLog) Insert(_ context.Context, turn *messages.Turn) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, turn)
	return nil
}

func (f *fakeTurnLog) Recent(_ context.Context, _ uuid.UUID, _ string, limit int) ([]messages.Turn, error) {
	if len(f.history) > limit {
		return f.history[:limit], nil
	}
	return f.history, nil
}

type fakeRegistry struct {
	client *clients.Client
}

func (f *fakeRegistry) Upsert(_ context.Context, tenantID uuid.UUID, phone, name string) (*clients.Client, error) {
	if f.client == nil {
		f.client = &clients.Client{ID: uuid.New(), TenantID: tenantID, Phone: phone, Name: name}
	}
	return f.client, nil
}

type fakeDeduper struct {
	seen   map[string]bool
	marked []string
}

func (f *fakeDeduper) Seen(_ context.Context, _ uuid.UUID, fingerprint string) (bool, error) {
	return f.seen[fingerprint], nil
}

func (f *fakeDeduper) Mark(_ context.Context, _ uuid.UUID, fingerprint string) {
	f.marked = append(f.marked, fingerprint)
}

type fakeBook struct {
	created []schedule.CreateRequest
	byDate  map[string][]schedule.Appointment
}

func (f *fakeBook) Create(_ context.Context, req schedule.CreateRequest) (*schedule.Appointment, error) {
	f.created = append(f.created, req)
	end, _ := schedule.ParseClock(req.StartTime)
	return &schedule.Appointment{
		ID:        uuid.New(),
		TenantID:  req.TenantID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   schedule.FormatClock(end + req.DurationMinutes),
		Status:    schedule.StatusPending,
	}, nil
}

func (f *fakeBook) ListByDate(_ context.Context, _ uuid.UUID, date string) ([]schedule.Appointment, error) {
	return f.byDate[date], nil
}

type fakeAvailability struct {
	conflict bool
	slot     *schedule.Slot
}

func (f *fakeAvailability) HasConflict(_ context.Context, _ uuid.UUID, _, _ string, _ int) (bool, error) {
	return f.conflict, nil
}

func (f *fakeAvailability) NextFreeSlot(_ context.Context, _ uuid.UUID, _ string, _ func(time.Time) []string) (*schedule.Slot, error) {
	return f.slot, nil
}

type engineHarness struct {
	engine   *Engine
	oracle   *fakeOracle
	turns    *fakeTurnLog
	deduper  *fakeDeduper
	book     *fakeBook
	avail    *fakeAvailability
	tenantID uuid.UUID
	haircut  tenancy.Service
}

func newEngineHarness(t *testing.T) *engineHarness {
	t.Helper()

	tenantID := uuid.New()
	haircut := tenancy.Service{
		ID:              uuid.New(),
		TenantID:        tenantID,
		Name:            "Haircut",
		DurationMinutes: 30,
		Active:          true,
	}
	tenant := &tenancy.Tenant{
		ID:   tenantID,
		Name: "Corte y Estilo",
		Hours: map[string][]string{
			"monday":    {"09:00-17:00"},
			"tuesday":   {"09:00-17:00"},
			"wednesday": {"09:00-17:00"},
			"thursday":  {"09:00-17:00"},
			"friday":    {"09:00-17:00"},
		},
		Policies: tenancy.Policies{MinCancelNoticeHours: 24, MaxAdvanceDays: 30},
		Active:   true,
	}

	oracle := &fakeOracle{}
	turns := &fakeTurnLog{}
	deduper := &fakeDeduper{seen: map[string]bool{}}
	book := &fakeBook{byDate: map[string][]schedule.Appointment{}}
	avail := &fakeAvailability{}
	logger := logging.New("error")

	engine := NewEngine(EngineParams{
		Builder:  NewContextBuilder(&fakeDirectory{tenant: tenant, services: []tenancy.Service{haircut}}, turns, 10),
		Clients:  &fakeRegistry{},
		Turns:    turns,
		Deduper:  deduper,
		Gate:     NewGate(oracle, logger),
		Oracle:   oracle,
		Composer: NewComposer(nil, logger),
		Book:     book,
		Resolver: avail,
		Logger:   logger,
	})
	engine.now = func() time.Time {
		return time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC) // a Monday
	}

	return &engineHarness{
		engine:   engine,
		oracle:   oracle,
		turns:    turns,
		deduper:  deduper,
		book:     book,
		avail:    avail,
		tenantID: tenantID,
		haircut:  haircut,
	}
}

func (h *engineHarness) inbound(text string) Inbound {
	return Inbound{
		TenantID:  h.tenantID,
		Phone:     "+573001112233",
		Timestamp: time.Date(2026, 1, 5, 7, 59, 0, 0, time.UTC),
		Text:      text,
		SourceKey: "wamid.test",
	}
}

func (h *engineHarness) priorTurn(text string, intent messages.Intent, entities *messages.Snapshot) {
	h.turns.history = append([]messages.Turn{{
		ID:       uuid.New(),
		TenantID: h.tenantID,
		Phone:    "+573001112233",
		Text:     text,
		Intent:   intent,
		Entities: entities,
		Reply:    "noted",
	}}, h.turns.history...)
}

func TestEngineGreetsFirstContact(t *testing.T) {
	h := newEngineHarness(t)

	result, err := h.engine.Process(context.Background(), h.inbound("Hola"))
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.Contains(t, result.Reply, "Corte y Estilo")
	require.NotNil(t, result.Turn)
	assert.Empty(t, string(result.Turn.Intent))
	assert.Nil(t, result.Turn.Entities)

	// No history means no oracle involvement at all.
	assert.Zero(t, h.oracle.classifyCalls)
	assert.Zero(t, h.oracle.extractCalls)

	require.Len(t, h.turns.inserted, 1)
	require.Len(t, h.deduper.marked, 1)
	assert.Equal(t, result.Turn.Fingerprint, h.deduper.marked[0])
}

func TestEngineSkipsDuplicates(t *testing.T) {
	h := newEngineHarness(t)
	in := h.inbound("Hola")
	h.deduper.seen[messages.Fingerprint(in.Phone, in.Timestamp, in.Text)] = true

	result, err := h.engine.Process(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, result.Duplicate)
	assert.Empty(t, result.Reply)
	assert.Nil(t, result.Turn)
	assert.Empty(t, h.turns.inserted)
}

func TestEngineDuplicateCaughtAtInsert(t *testing.T) {
	h := newEngineHarness(t)
	h.turns.insertErr = messages.ErrDuplicateTurn

	result, err := h.engine.Process(context.Background(), h.inbound("Hola"))
	require.NoError(t, err)

	assert.True(t, result.Duplicate)
	assert.Empty(t, h.deduper.marked)
}

func TestEngineAccumulatesSlotsAcrossTurns(t *testing.T) {
	h := newEngineHarness(t)
	h.priorTurn("quiero una cita el miércoles para corte", messages.IntentSchedule, &messages.Snapshot{
		ServiceID: h.haircut.ID.String(),
		Date:      "2026-01-07",
		Ambiguous: true,
	})

	h.oracle.classifyFn = func(ClassifyRequest) (Classification, error) {
		return Classification{Intent: messages.IntentSchedule, Confidence: 0.95}, nil
	}
	h.oracle.extractFn = func(req ExtractRequest) (messages.Snapshot, error) {
		// The oracle sees the previously gathered fields.
		assert.Equal(t, "2026-01-07", req.Previous.Date)
		return messages.Snapshot{
			DocumentType:   "CC",
			DocumentNumber: "1032456789",
			FullName:       "Ana Torres",
			Time:           "10:00",
		}, nil
	}

	result, err := h.engine.Process(context.Background(), h.inbound("CC 1032456789, Ana Torres, a las 10"))
	require.NoError(t, err)

	snap := result.Turn.Entities
	require.NotNil(t, snap)
	assert.Equal(t, "2026-01-07", snap.Date, "earlier fields survive the merge")
	assert.Equal(t, h.haircut.ID.String(), snap.ServiceID)
	assert.Equal(t, "Ana Torres", snap.FullName)
	assert.Equal(t, "10:00", snap.Time)
	assert.True(t, snap.Complete())
	assert.False(t, snap.Confirmed)

	// Complete but unconfirmed: ask for confirmation, book nothing.
	assert.Contains(t, result.Reply, "confirm")
	assert.Empty(t, h.book.created)
}

func TestEngineBooksOnConfirmation(t *testing.T) {
	h := newEngineHarness(t)
	prev := &messages.Snapshot{
		DocumentType:   "CC",
		DocumentNumber: "1032456789",
		FullName:       "Ana Torres",
		ServiceID:      h.haircut.ID.String(),
		Date:           "2026-01-07",
		Time:           "10:00",
	}
	h.priorTurn("a las 10 entonces", messages.IntentSchedule, prev)

	h.oracle.classifyFn = func(ClassifyRequest) (Classification, error) {
		return Classification{Intent: messages.IntentSchedule, Confidence: 0.9}, nil
	}
	h.oracle.extractFn = func(ExtractRequest) (messages.Snapshot, error) {
		return messages.Snapshot{Confirmed: true}, nil
	}

	result, err := h.engine.Process(context.Background(), h.inbound("sí, confirmo"))
	require.NoError(t, err)

	require.Len(t, h.book.created, 1)
	created := h.book.created[0]
	assert.Equal(t, "2026-01-07", created.Date)
	assert.Equal(t, "10:00", created.StartTime)
	assert.Equal(t, 30, created.DurationMinutes)
	assert.Equal(t, "Ana Torres", created.FullName)
	assert.Contains(t, result.Reply, "booked")
	assert.True(t, result.Turn.Entities.Confirmed)
}

func TestEngineWithholdsBookingWhenAmbiguous(t *testing.T) {
	h := newEngineHarness(t)
	prev := &messages.Snapshot{
		DocumentType:   "CC",
		DocumentNumber: "1032456789",
		FullName:       "Ana Torres",
		ServiceID:      h.haircut.ID.String(),
		Date:           "2026-01-07",
		Time:           "10:00",
	}
	h.priorTurn("a las 10 entonces", messages.IntentSchedule, prev)

	h.oracle.classifyFn = func(ClassifyRequest) (Classification, error) {
		return Classification{Intent: messages.IntentSchedule, Confidence: 0.9}, nil
	}
	h.oracle.extractFn = func(ExtractRequest) (messages.Snapshot, error) {
		// The oracle hedges: it read a confirmation but is not sure.
		return messages.Snapshot{Confirmed: true, Ambiguous: true}, nil
	}

	result, err := h.engine.Process(context.Background(), h.inbound("sí... creo que sí"))
	require.NoError(t, err)

	assert.Empty(t, h.book.created, "an ambiguous confirmation must not book")
	assert.Contains(t, result.Reply, "confirm")
	assert.True(t, result.Turn.Entities.Ambiguous)
	assert.False(t, result.Turn.Entities.Confirmed, "a hedged confirmation must not become terminal")
}

func TestEngineOffersAlternativeOnOverlap(t *testing.T) {
	h := newEngineHarness(t)
	h.priorTurn("hola, quiero agendar", messages.IntentSchedule, nil)
	h.avail.conflict = true
	h.avail.slot = &schedule.Slot{Date: "2026-01-08", Time: "09:30"}

	h.oracle.classifyFn = func(ClassifyRequest) (Classification, error) {
		return Classification{Intent: messages.IntentSchedule, Confidence: 0.9}, nil
	}
	h.oracle.extractFn = func(ExtractRequest) (messages.Snapshot, error) {
		return messages.Snapshot{
			ServiceID: h.haircut.ID.String(),
			Date:      "2026-01-07",
			Time:      "10:00",
		}, nil
	}

	result, err := h.engine.Process(context.Background(), h.inbound("el miércoles a las 10"))
	require.NoError(t, err)

	require.NotNil(t, result.Turn.Entities)
	assert.True(t, result.Turn.Entities.Overlapping)
	assert.Contains(t, result.Reply, "2026-01-08")
	assert.Contains(t, result.Reply, "09:30")
	assert.Empty(t, h.book.created, "no booking while the slot conflicts")
}

func TestEngineDropsStaleOverlapOnUnknownService(t *testing.T) {
	h := newEngineHarness(t)
	h.priorTurn("el miércoles a las 10", messages.IntentSchedule, &messages.Snapshot{
		ServiceID:   h.haircut.ID.String(),
		Date:        "2026-01-07",
		Time:        "10:00",
		Overlapping: true,
	})

	h.oracle.classifyFn = func(ClassifyRequest) (Classification, error) {
		return Classification{Intent: messages.IntentSchedule, Confidence: 0.9}, nil
	}
	h.oracle.extractFn = func(ExtractRequest) (messages.Snapshot, error) {
		// An id that matches no service in the tenant's catalog.
		return messages.Snapshot{ServiceID: uuid.NewString()}, nil
	}

	result, err := h.engine.Process(context.Background(), h.inbound("mejor el otro servicio"))
	require.NoError(t, err)

	snap := result.Turn.Entities
	require.NotNil(t, snap)
	assert.Empty(t, snap.ServiceID)
	assert.False(t, snap.Overlapping, "no conflict was checked this turn")
	assert.Contains(t, result.Reply, "service", "the missing service is asked for, not a stale conflict")
}

func TestEngineDegradesOnExtractionFailure(t *testing.T) {
	h := newEngineHarness(t)
	prev := &messages.Snapshot{ServiceID: h.haircut.ID.String(), Date: "2026-01-07"}
	h.priorTurn("corte el miércoles", messages.IntentSchedule, prev)

	h.oracle.classifyFn = func(ClassifyRequest) (Classification, error) {
		return Classification{Intent: messages.IntentSchedule, Confidence: 0.8}, nil
	}
	h.oracle.extractFn = func(ExtractRequest) (messages.Snapshot, error) {
		return messages.Snapshot{}, errors.New("oracle down")
	}

	result, err := h.engine.Process(context.Background(), h.inbound("mmm el que sea"))
	require.NoError(t, err, "oracle failures never fail the turn")

	snap := result.Turn.Entities
	require.NotNil(t, snap)
	assert.True(t, snap.Ambiguous)
	assert.Equal(t, "2026-01-07", snap.Date, "previously gathered fields survive")
	assert.NotEmpty(t, result.Reply)
}

func TestEngineLeavesSnapshotAloneForInform(t *testing.T) {
	h := newEngineHarness(t)
	h.priorTurn("hola", "", nil)

	h.oracle.classifyFn = func(ClassifyRequest) (Classification, error) {
		return Classification{Intent: messages.IntentInform, Confidence: 0.7}, nil
	}

	result, err := h.engine.Process(context.Background(), h.inbound("¿qué servicios tienen?"))
	require.NoError(t, err)

	assert.Equal(t, messages.IntentInform, result.Turn.Intent)
	assert.Nil(t, result.Turn.Entities)
	assert.Contains(t, result.Reply, "Haircut")
	assert.Zero(t, h.oracle.extractCalls)
}

func TestEngineConfirmedSnapshotIsTerminal(t *testing.T) {
	h := newEngineHarness(t)
	confirmed := &messages.Snapshot{
		DocumentType:   "CC",
		DocumentNumber: "1032456789",
		FullName:       "Ana Torres",
		ServiceID:      h.haircut.ID.String(),
		Date:           "2026-01-07",
		Time:           "10:00",
		Confirmed:      true,
	}
	h.priorTurn("sí, confirmo", messages.IntentSchedule, confirmed)

	h.oracle.classifyFn = func(ClassifyRequest) (Classification, error) {
		return Classification{Intent: messages.IntentSchedule, Confidence: 0.9}, nil
	}

	result, err := h.engine.Process(context.Background(), h.inbound("cambia la hora a las 11"))
	require.NoError(t, err)

	assert.Zero(t, h.oracle.extractCalls, "confirmed snapshots skip extraction")
	assert.Equal(t, "10:00", result.Turn.Entities.Time)
	assert.Empty(t, h.book.created)
}

func TestEngineCancelAcknowledgesWithPolicy(t *testing.T) {
	h := newEngineHarness(t)
	h.priorTurn("hola", "", nil)

	h.oracle.classifyFn = func(ClassifyRequest) (Classification, error) {
		return Classification{Intent: messages.IntentCancel, Confidence: 0.9}, nil
	}
	h.oracle.extractFn = func(ExtractRequest) (messages.Snapshot, error) {
		return messages.Snapshot{Date: "2026-01-07", Time: "10:00"}, nil
	}

	result, err := h.engine.Process(context.Background(), h.inbound("cancela mi cita del miércoles"))
	require.NoError(t, err)

	assert.Equal(t, messages.IntentCancel, result.Turn.Intent)
	assert.Contains(t, result.Reply, "24 hours")
	assert.Empty(t, h.book.created)
}

func TestEngineUnknownTenantFails(t *testing.T) {
	h := newEngineHarness(t)
	in := h.inbound("Hola")
	in.TenantID = uuid.New()

	_, err := h.engine.Process(context.Background(), in)
	require.ErrorIs(t, err, tenancy.ErrTenantNotFound)
	assert.Empty(t, h.turns.inserted)
}
