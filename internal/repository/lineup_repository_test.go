package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coach-lineup-api/internal/models"
)

func TestLineupRepositoryCreateWithSlots(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLineupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lineup_templates").
		WithArgs(int64(1), "Game 1", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO lineup_slots").
		WithArgs(int64(7), models.SlotForward, "FWD1-LW", 10, nil).
		WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectExec("INSERT INTO lineup_slots").
		WithArgs(int64(7), models.SlotGoalie, "G-Starter", 200, nil).
		WillReturnResult(sqlmock.NewResult(101, 1))
	mock.ExpectCommit()

	tpl := &models.LineupTemplate{TeamID: 1, Name: "Game 1"}
	slots := []models.LineupSlot{
		{SlotType: models.SlotForward, Label: "FWD1-LW", OrderIndex: 10},
		{SlotType: models.SlotGoalie, Label: "G-Starter", OrderIndex: 200},
	}
	require.NoError(t, repo.CreateWithSlots(context.Background(), tpl, slots))
	assert.Equal(t, int64(7), tpl.ID)
	assert.Equal(t, int64(7), slots[1].TemplateID)
	assert.Equal(t, int64(101), slots[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLineupRepositoryCreateWithSlotsRollsBackOnSeedFailure(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLineupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lineup_templates").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO lineup_slots").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := repo.CreateWithSlots(context.Background(), &models.LineupTemplate{TeamID: 1, Name: "Game 1"},
		[]models.LineupSlot{{SlotType: models.SlotForward, Label: "FWD1-LW", OrderIndex: 10}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed lineup slot FWD1-LW")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLineupRepositoryListSlots(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLineupRepository(db)

	rows := sqlmock.NewRows([]string{"id", "template_id", "slot_type", "label", "order_index", "player_id"}).
		AddRow(1, 7, "FWD", "FWD1-LW", 10, 3).
		AddRow(2, 7, "FWD", "FWD1-C", 11, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + slotColumns + " FROM lineup_slots WHERE template_id = ? ORDER BY order_index ASC, id ASC")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	slots, err := repo.ListSlots(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.NotNil(t, slots[0].PlayerID)
	assert.Equal(t, int64(3), *slots[0].PlayerID)
	assert.Nil(t, slots[1].PlayerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLineupRepositoryApplyAssignments(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLineupRepository(db)

	playerID := int64(3)
	query := regexp.QuoteMeta("UPDATE lineup_slots SET player_id = ? WHERE id = ? AND template_id = ?")
	mock.ExpectBegin()
	mock.ExpectExec(query).WithArgs(playerID, int64(1), int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(nil, int64(2), int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyAssignments(context.Background(), 7, []models.SlotAssignment{
		{SlotID: 1, PlayerID: &playerID},
		{SlotID: 2},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLineupRepositoryApplyAssignmentsRejectsForeignSlot(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLineupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE lineup_slots").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE lineup_slots").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplyAssignments(context.Background(), 7, []models.SlotAssignment{{SlotID: 1}, {SlotID: 99}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slot not in template")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLineupRepositoryMarkSaved(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLineupRepository(db)

	savedAt := time.Date(2025, 2, 1, 18, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lineup_templates SET date_saved = ? WHERE id = ?")).
		WithArgs(savedAt, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkSaved(context.Background(), 7, savedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLineupRepositoryFindSlotNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLineupRepository(db)

	mock.ExpectQuery("SELECT .* FROM lineup_slots WHERE id = \\?").WithArgs(int64(5)).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindSlot(context.Background(), 5)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
