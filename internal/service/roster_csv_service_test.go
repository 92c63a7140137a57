package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coach-lineup-api/internal/models"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
	"github.com/noah-isme/coach-lineup-api/pkg/storage"
)

type rosterCSVFixture struct {
	svc     *RosterCSVService
	players *mockPlayerRepo
	clock   *clockwork.FakeClock
}

func newRosterCSVFixture(t *testing.T, cfg RosterCSVConfig, existing ...models.Player) *rosterCSVFixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC))
	reports, err := storage.NewLocalStorage(t.TempDir(), clock)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour, clock)
	players := newMockPlayerRepo(existing...)
	teams := newMockTeamRepo(models.Team{ID: 1, Name: "Bruins", Season: "2025"})
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	svc := NewRosterCSVService(players, teams, reports, signer, nil, NewMetricsService(), cfg, clock, nil)
	return &rosterCSVFixture{svc: svc, players: players, clock: clock}
}

const mixedRoster = `name,position,jersey,hand,birthdate,email,phone,status
Ava,F,9,L,2010-04-05,ava@example.com,555-123-4567,Active
Ben,Defense,150,Right,04/05/2011,,,INJ
,G,30,,,,,
Cal,X,,,,,,

Ava,G,31,L,,bad-email,123,Retired
`

func TestRosterCSVImportMixedRows(t *testing.T) {
	f := newRosterCSVFixture(t, RosterCSVConfig{})

	result, err := f.svc.Import(context.Background(), 1, strings.NewReader(mixedRoster))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 1, f.players.batches)

	fields := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		fields = append(fields, issue.Field)
	}
	assert.Equal(t, []string{"jersey", "name", "position", "email", "phone", "status", "name"}, fields)
	assert.Equal(t, 3, result.Issues[0].Row)
	assert.Equal(t, "150", result.Issues[0].Value)
	assert.Equal(t, "duplicate player name", result.Issues[6].Reason)
	assert.Equal(t, 7, result.Issues[6].Row)

	roster, _ := f.players.ListByTeam(context.Background(), 1)
	require.Len(t, roster, 3)
	ben := roster[1]
	assert.Equal(t, "Ben", ben.Name)
	assert.Equal(t, models.PositionDefense, ben.Position)
	assert.Nil(t, ben.Jersey)
	require.NotNil(t, ben.Hand)
	assert.Equal(t, models.HandRight, *ben.Hand)
	require.NotNil(t, ben.Birthdate)
	assert.Equal(t, "2011-04-05", *ben.Birthdate)
	assert.Equal(t, models.StatusInjured, ben.Status)

	dup := roster[2]
	assert.Equal(t, models.StatusActive, dup.Status)
	assert.Nil(t, dup.Email)
	assert.Nil(t, dup.Phone)
	assert.Equal(t, f.clock.Now().UTC(), dup.CreatedAt)

	require.NotNil(t, result.IssuesURL)
	assert.True(t, strings.HasPrefix(*result.IssuesURL, "/api/imports/issues/"))
	require.NotNil(t, result.IssuesExpiresAt)

	token := strings.TrimPrefix(*result.IssuesURL, "/api/imports/issues/")
	payload, filename, err := f.svc.IssuesReport(token)
	require.NoError(t, err)
	assert.Equal(t, "roster_issues_team1_20250901_120000.csv", filename)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	assert.Equal(t, "row,field,reason,value", lines[0])
	assert.Len(t, lines, 8)
}

func TestRosterCSVImportFlagsExistingName(t *testing.T) {
	f := newRosterCSVFixture(t, RosterCSVConfig{},
		models.Player{ID: 1, TeamID: 1, Name: "Ava", Position: models.PositionForward, Status: models.StatusActive})

	csvBody := "status,name,position,jersey,hand,birthdate,email,phone\nActive,ava,F,,,,,\n"
	result, err := f.svc.Import(context.Background(), 1, strings.NewReader(csvBody))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "name", result.Issues[0].Field)
}

func TestRosterCSVImportCleanFileHasNoReport(t *testing.T) {
	f := newRosterCSVFixture(t, RosterCSVConfig{})

	csvBody := "\ufeffname,position,jersey,hand,birthdate,email,phone,status\nAva,F,9,L,,,,\n"
	result, err := f.svc.Import(context.Background(), 1, strings.NewReader(csvBody))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Empty(t, result.Issues)
	assert.Nil(t, result.IssuesURL)
}

func TestRosterCSVImportRejectsBadFiles(t *testing.T) {
	f := newRosterCSVFixture(t, RosterCSVConfig{MaxFileSizeBytes: 256})
	ctx := context.Background()

	_, err := f.svc.Import(ctx, 1, strings.NewReader("name,position\nAva,F\n"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Len(t, appErr.Details, 6)

	_, err = f.svc.Import(ctx, 1, strings.NewReader(""))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Import(ctx, 1, strings.NewReader(strings.Repeat("x", 300)))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Import(ctx, 42, strings.NewReader(mixedRoster))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Zero(t, f.players.batches)
}

func TestRosterCSVImportBatchFailure(t *testing.T) {
	f := newRosterCSVFixture(t, RosterCSVConfig{})
	f.players.batchErr = errors.New("disk full")

	_, err := f.svc.Import(context.Background(), 1, strings.NewReader(mixedRoster))
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestRosterCSVExport(t *testing.T) {
	hand := models.HandLeft
	f := newRosterCSVFixture(t, RosterCSVConfig{},
		models.Player{ID: 1, TeamID: 1, Name: "Ava", Position: models.PositionForward, Jersey: intPtr(9), Hand: &hand, Status: models.StatusActive},
		models.Player{ID: 2, TeamID: 1, Name: "Ben", Position: models.PositionDefense, Email: strPtr("ben@example.com"), Status: models.StatusInjured},
	)

	payload, filename, err := f.svc.Export(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "roster_bruins_2025.csv", filename)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(RosterCSVHeaders, ","), lines[0])
	assert.Equal(t, "Ava,F,9,L,,,,Active", lines[1])
	assert.Equal(t, "Ben,D,,,,ben@example.com,,Injured", lines[2])

	_, _, err = f.svc.Export(context.Background(), 99)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestRosterCSVIssuesReportExpired(t *testing.T) {
	f := newRosterCSVFixture(t, RosterCSVConfig{})
	result, err := f.svc.Import(context.Background(), 1, strings.NewReader(mixedRoster))
	require.NoError(t, err)
	token := strings.TrimPrefix(*result.IssuesURL, "/api/imports/issues/")

	f.clock.Advance(2 * time.Hour)
	_, _, err = f.svc.IssuesReport(token)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, _, err = f.svc.IssuesReport("garbage")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
