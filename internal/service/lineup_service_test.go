package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coach-lineup-api/internal/models"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
)

type mockLineupRepo struct {
	templates  map[int64]models.LineupTemplate
	slots      map[int64]models.LineupSlot
	nextID     int64
	applyCalls int
}

func newMockLineupRepo() *mockLineupRepo {
	return &mockLineupRepo{templates: map[int64]models.LineupTemplate{}, slots: map[int64]models.LineupSlot{}, nextID: 0}
}

func (m *mockLineupRepo) ListByTeam(ctx context.Context, teamID int64) ([]models.LineupTemplate, error) {
	out := make([]models.LineupTemplate, 0)
	for id := m.nextID; id > 0; id-- {
		if tpl, ok := m.templates[id]; ok && tpl.TeamID == teamID {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (m *mockLineupRepo) FindByID(ctx context.Context, id int64) (*models.LineupTemplate, error) {
	if tpl, ok := m.templates[id]; ok {
		return &tpl, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLineupRepo) CreateWithSlots(ctx context.Context, tpl *models.LineupTemplate, slots []models.LineupSlot) error {
	m.nextID++
	tpl.ID = m.nextID
	m.templates[tpl.ID] = *tpl
	for i := range slots {
		m.nextID++
		slots[i].ID = m.nextID
		slots[i].TemplateID = tpl.ID
		m.slots[slots[i].ID] = slots[i]
	}
	return nil
}

func (m *mockLineupRepo) ListSlots(ctx context.Context, templateID int64) ([]models.LineupSlot, error) {
	out := make([]models.LineupSlot, 0)
	for id := int64(1); id <= m.nextID; id++ {
		if slot, ok := m.slots[id]; ok && slot.TemplateID == templateID {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (m *mockLineupRepo) FindSlot(ctx context.Context, slotID int64) (*models.LineupSlot, error) {
	if slot, ok := m.slots[slotID]; ok {
		return &slot, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLineupRepo) ApplyAssignments(ctx context.Context, templateID int64, assignments []models.SlotAssignment) error {
	m.applyCalls++
	for _, a := range assignments {
		slot, ok := m.slots[a.SlotID]
		if !ok || slot.TemplateID != templateID {
			return errors.New("slot not in template")
		}
		slot.PlayerID = a.PlayerID
		m.slots[a.SlotID] = slot
	}
	return nil
}

func (m *mockLineupRepo) MarkSaved(ctx context.Context, id int64, savedAt time.Time) error {
	tpl := m.templates[id]
	tpl.DateSaved = &savedAt
	m.templates[id] = tpl
	return nil
}

func (m *mockLineupRepo) slotByLabel(templateID int64, label string) models.LineupSlot {
	for _, slot := range m.slots {
		if slot.TemplateID == templateID && slot.Label == label {
			return slot
		}
	}
	return models.LineupSlot{}
}

func int64Ptr(n int64) *int64 { return &n }

type lineupFixture struct {
	svc     *LineupService
	repo    *mockLineupRepo
	players *mockPlayerRepo
	clock   *clockwork.FakeClock
	detail  *models.LineupDetail
}

func newLineupFixture(t *testing.T) *lineupFixture {
	t.Helper()
	teams := newMockTeamRepo(
		models.Team{ID: 1, Name: "Bruins", Season: "2025"},
		models.Team{ID: 2, Name: "Leafs", Season: "2025"},
	)
	players := newMockPlayerRepo(
		models.Player{ID: 11, TeamID: 1, Name: "Ava", Position: models.PositionForward, Status: models.StatusActive},
		models.Player{ID: 12, TeamID: 1, Name: "Ben", Position: models.PositionDefense, Status: models.StatusInjured},
		models.Player{ID: 13, TeamID: 1, Name: "Cal", Position: models.PositionGoalie, Status: models.StatusActive},
		models.Player{ID: 21, TeamID: 2, Name: "Dee", Position: models.PositionForward, Status: models.StatusActive},
	)
	repo := newMockLineupRepo()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 10, 1, 18, 30, 0, 0, time.UTC))
	svc := NewLineupService(repo, players, teams, NewMetricsService(), nil, clock, nil)

	detail, err := svc.Create(context.Background(), 1, CreateLineupRequest{Name: " Game 1 ", Notes: strPtr("")})
	require.NoError(t, err)
	return &lineupFixture{svc: svc, repo: repo, players: players, clock: clock, detail: detail}
}

func (f *lineupFixture) slot(label string) int64 {
	return f.repo.slotByLabel(f.detail.ID, label).ID
}

func TestLineupServiceCreateSeedsSlots(t *testing.T) {
	f := newLineupFixture(t)

	assert.Equal(t, "Game 1", f.detail.Name)
	assert.Nil(t, f.detail.Notes)
	assert.Nil(t, f.detail.DateSaved)
	assert.Len(t, f.detail.Slots, 20)
	assert.Empty(t, f.detail.Warnings)
	assert.NotNil(t, f.detail.Warnings)
	for _, slot := range f.detail.Slots {
		assert.NotZero(t, slot.ID)
		assert.Nil(t, slot.PlayerID)
	}
}

func TestLineupServiceCreateUnknownTeam(t *testing.T) {
	f := newLineupFixture(t)
	_, err := f.svc.Create(context.Background(), 99, CreateLineupRequest{Name: "Game"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestLineupServiceCreateValidation(t *testing.T) {
	f := newLineupFixture(t)
	_, err := f.svc.Create(context.Background(), 1, CreateLineupRequest{Name: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLineupServiceAssignSlotComputesWarnings(t *testing.T) {
	f := newLineupFixture(t)
	ctx := context.Background()

	_, err := f.svc.AssignSlot(ctx, f.slot("FWD1-LW"), AssignSlotRequest{PlayerID: int64Ptr(11)})
	require.NoError(t, err)
	result, err := f.svc.AssignSlot(ctx, f.slot("FWD2-C"), AssignSlotRequest{PlayerID: int64Ptr(11)})
	require.NoError(t, err)

	assert.Equal(t, f.detail.ID, result.TemplateID)
	assert.Equal(t, []int64{f.slot("FWD2-C")}, result.UpdatedSlots)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, models.WarningDuplicate, result.Warnings[0].Type)
	assert.Equal(t, []string{"FWD1-LW", "FWD2-C"}, result.Warnings[0].SlotLabels)

	result, err = f.svc.AssignSlot(ctx, f.slot("G-Starter"), AssignSlotRequest{PlayerID: int64Ptr(12)})
	require.NoError(t, err)
	types := make([]models.WarningType, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		types = append(types, w.Type)
	}
	assert.Equal(t, []models.WarningType{models.WarningDuplicate, models.WarningStatus, models.WarningPosition}, types)
}

func TestLineupServiceAssignSlotClears(t *testing.T) {
	f := newLineupFixture(t)
	ctx := context.Background()
	slotID := f.slot("DEF1-L")

	_, err := f.svc.AssignSlot(ctx, slotID, AssignSlotRequest{PlayerID: int64Ptr(12)})
	require.NoError(t, err)
	result, err := f.svc.AssignSlot(ctx, slotID, AssignSlotRequest{})
	require.NoError(t, err)

	assert.Nil(t, f.repo.slots[slotID].PlayerID)
	assert.Empty(t, result.Warnings)
}

func TestLineupServiceAssignSlotRejectsOtherTeam(t *testing.T) {
	f := newLineupFixture(t)
	slotID := f.slot("FWD1-C")

	_, err := f.svc.AssignSlot(context.Background(), slotID, AssignSlotRequest{PlayerID: int64Ptr(21)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTeamMismatch))
	assert.Nil(t, f.repo.slots[slotID].PlayerID)
	assert.Zero(t, f.repo.applyCalls)
}

func TestLineupServiceAssignSlotNotFound(t *testing.T) {
	f := newLineupFixture(t)
	ctx := context.Background()

	_, err := f.svc.AssignSlot(ctx, 9999, AssignSlotRequest{PlayerID: int64Ptr(11)})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.AssignSlot(ctx, f.slot("FWD1-C"), AssignSlotRequest{PlayerID: int64Ptr(777)})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestLineupServiceBulkAssign(t *testing.T) {
	f := newLineupFixture(t)

	result, err := f.svc.BulkAssign(context.Background(), f.detail.ID, BulkAssignRequest{Assignments: []models.SlotAssignment{
		{SlotID: f.slot("FWD1-C"), PlayerID: int64Ptr(11)},
		{SlotID: f.slot("DEF1-R"), PlayerID: int64Ptr(12)},
		{SlotID: f.slot("G-Starter"), PlayerID: int64Ptr(13)},
	}})
	require.NoError(t, err)
	assert.Len(t, result.UpdatedSlots, 3)
	assert.Equal(t, 1, f.repo.applyCalls)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, models.WarningStatus, result.Warnings[0].Type)
	assert.Equal(t, "Ben", result.Warnings[0].PlayerName)
}

func TestLineupServiceBulkAssignIsAllOrNothing(t *testing.T) {
	f := newLineupFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  BulkAssignRequest
		want *appErrors.Error
	}{
		{"other team player", BulkAssignRequest{Assignments: []models.SlotAssignment{
			{SlotID: f.slot("FWD1-C"), PlayerID: int64Ptr(11)},
			{SlotID: f.slot("FWD1-LW"), PlayerID: int64Ptr(21)},
		}}, appErrors.ErrTeamMismatch},
		{"slot from elsewhere", BulkAssignRequest{Assignments: []models.SlotAssignment{
			{SlotID: f.slot("FWD1-C"), PlayerID: int64Ptr(11)},
			{SlotID: 4242, PlayerID: int64Ptr(11)},
		}}, appErrors.ErrValidation},
		{"repeated slot", BulkAssignRequest{Assignments: []models.SlotAssignment{
			{SlotID: f.slot("FWD1-C"), PlayerID: int64Ptr(11)},
			{SlotID: f.slot("FWD1-C")},
		}}, appErrors.ErrValidation},
		{"empty list", BulkAssignRequest{}, appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.BulkAssign(ctx, f.detail.ID, tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
		})
	}
	assert.Zero(t, f.repo.applyCalls)
	assert.Nil(t, f.repo.slots[f.slot("FWD1-C")].PlayerID)
}

func TestLineupServiceBulkAssignReportsField(t *testing.T) {
	f := newLineupFixture(t)
	_, err := f.svc.BulkAssign(context.Background(), f.detail.ID, BulkAssignRequest{Assignments: []models.SlotAssignment{
		{SlotID: f.slot("FWD1-C")},
		{SlotID: 4242},
	}})
	appErr := appErrors.FromError(err)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "assignments[1].slot_id", appErr.Details[0].Field)
}

func TestLineupServiceMarkSaved(t *testing.T) {
	f := newLineupFixture(t)
	ctx := context.Background()

	tpl, err := f.svc.MarkSaved(ctx, f.detail.ID)
	require.NoError(t, err)
	require.NotNil(t, tpl.DateSaved)
	assert.Equal(t, f.clock.Now().UTC(), *tpl.DateSaved)

	f.clock.Advance(time.Hour)
	tpl, err = f.svc.MarkSaved(ctx, f.detail.ID)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().UTC(), *tpl.DateSaved)

	_, err = f.svc.MarkSaved(ctx, 9999)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestLineupServiceGetAndList(t *testing.T) {
	f := newLineupFixture(t)
	ctx := context.Background()

	_, err := f.svc.AssignSlot(ctx, f.slot("G-Backup"), AssignSlotRequest{PlayerID: int64Ptr(11)})
	require.NoError(t, err)

	detail, err := f.svc.Get(ctx, f.detail.ID)
	require.NoError(t, err)
	require.Len(t, detail.Warnings, 1)
	assert.Equal(t, models.WarningPosition, detail.Warnings[0].Type)

	templates, err := f.svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, templates, 1)

	templates, err = f.svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, templates)

	_, err = f.svc.Get(ctx, 9999)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestLineupServiceAvailablePlayers(t *testing.T) {
	f := newLineupFixture(t)
	ctx := context.Background()
	f.players.assigned = map[int64]struct{}{11: {}}

	players, err := f.svc.AvailablePlayers(ctx, 1, f.detail.ID)
	require.NoError(t, err)
	ids := make([]int64, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{12, 13}, ids)

	_, err = f.svc.AvailablePlayers(ctx, 2, f.detail.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
