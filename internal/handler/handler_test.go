package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coach-lineup-api/internal/middleware"
	"github.com/noah-isme/coach-lineup-api/internal/models"
	"github.com/noah-isme/coach-lineup-api/internal/service"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
	"github.com/noah-isme/coach-lineup-api/pkg/middleware/activeteam"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type teamServiceMock struct {
	teams     []models.Team
	hit       bool
	createErr error
	lastReq   service.CreateTeamRequest
}

func (m *teamServiceMock) List(ctx context.Context) ([]models.Team, bool, error) {
	return m.teams, m.hit, nil
}

func (m *teamServiceMock) Get(ctx context.Context, id int64) (*models.Team, error) {
	for _, team := range m.teams {
		if team.ID == id {
			return &team, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
}

func (m *teamServiceMock) Create(ctx context.Context, req service.CreateTeamRequest) (*models.Team, error) {
	m.lastReq = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Team{ID: 9, Name: req.Name, Season: req.Season}, nil
}

func TestTeamHandlerListReportsCacheHit(t *testing.T) {
	svc := &teamServiceMock{teams: []models.Team{{ID: 1, Name: "Bruins", Season: "2025"}}, hit: true}
	r := gin.New()
	r.Use(middleware.ResponseMeta(nil))
	r.GET("/teams", NewTeamHandler(svc).List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teams", nil))
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, string(env.Data), `"Bruins"`)
}

func TestTeamHandlerCreate(t *testing.T) {
	svc := &teamServiceMock{}
	handler := NewTeamHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/teams", bytes.NewBufferString(`{"name":"Bruins","season":"2025"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Bruins", svc.lastReq.Name)
}

func TestTeamHandlerCreateErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed json", `{"name":`, nil, http.StatusBadRequest},
		{"duplicate", `{"name":"Bruins","season":"2025"}`, appErrors.Clone(appErrors.ErrConflict, "team already exists"), http.StatusConflict},
		{"validation", `{"name":"","season":"2025"}`, appErrors.Clone(appErrors.ErrValidation, "invalid team payload"), http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewTeamHandler(&teamServiceMock{createErr: tc.err})
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/teams", bytes.NewBufferString(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")

			handler.Create(c)
			assert.Equal(t, tc.status, w.Code)
			assert.NotNil(t, decode(t, w).Error)
		})
	}
}

func TestTeamHandlerGetRejectsBadID(t *testing.T) {
	r := gin.New()
	r.GET("/teams/:team_id", NewTeamHandler(&teamServiceMock{}).Get)

	for path, status := range map[string]int{"/teams/abc": http.StatusBadRequest, "/teams/0": http.StatusBadRequest, "/teams/5": http.StatusNotFound} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code, path)
	}
}

type playerServiceMock struct {
	lastTeam  int64
	lastQuery service.PlayerListQuery
}

func (m *playerServiceMock) List(ctx context.Context, teamID int64, query service.PlayerListQuery) ([]models.Player, bool, error) {
	m.lastTeam = teamID
	m.lastQuery = query
	return []models.Player{}, false, nil
}

func (m *playerServiceMock) Get(ctx context.Context, id int64) (*models.Player, error) {
	return &models.Player{ID: id}, nil
}

func (m *playerServiceMock) Create(ctx context.Context, teamID int64, req service.CreatePlayerRequest) (*models.Player, error) {
	return &models.Player{ID: 1, TeamID: teamID, Name: req.Name}, nil
}

func (m *playerServiceMock) Update(ctx context.Context, id int64, req service.UpdatePlayerRequest) (*models.Player, error) {
	return &models.Player{ID: id}, nil
}

func (m *playerServiceMock) Delete(ctx context.Context, id int64) error {
	return nil
}

func TestPlayerHandlerActiveTeam(t *testing.T) {
	svc := &playerServiceMock{}
	r := gin.New()
	r.Use(activeteam.Middleware())
	h := NewPlayerHandler(svc)
	r.GET("/players", h.ListActive)
	r.GET("/teams/:team_id/players", h.List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/players", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/players?position=D&sort_by=jersey&sort_order=desc", nil)
	req.Header.Set(activeteam.HeaderKey, "4")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(4), svc.lastTeam)
	assert.Equal(t, service.PlayerListQuery{Position: "D", SortBy: "jersey", SortOrder: "desc"}, svc.lastQuery)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teams/7/players?birth_year=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlayerHandlerDelete(t *testing.T) {
	r := gin.New()
	r.DELETE("/players/:player_id", NewPlayerHandler(&playerServiceMock{}).Delete)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/players/3", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

type lineupServiceMock struct {
	assignErr error
	lastBulk  service.BulkAssignRequest
}

func (m *lineupServiceMock) List(ctx context.Context, teamID int64) ([]models.LineupTemplate, error) {
	return []models.LineupTemplate{}, nil
}

func (m *lineupServiceMock) Create(ctx context.Context, teamID int64, req service.CreateLineupRequest) (*models.LineupDetail, error) {
	return &models.LineupDetail{LineupTemplate: models.LineupTemplate{ID: 1, TeamID: teamID, Name: req.Name}}, nil
}

func (m *lineupServiceMock) Get(ctx context.Context, id int64) (*models.LineupDetail, error) {
	return &models.LineupDetail{LineupTemplate: models.LineupTemplate{ID: id}}, nil
}

func (m *lineupServiceMock) AssignSlot(ctx context.Context, slotID int64, req service.AssignSlotRequest) (*models.AssignmentResult, error) {
	if m.assignErr != nil {
		return nil, m.assignErr
	}
	return &models.AssignmentResult{UpdatedSlots: []int64{slotID}, Warnings: []models.LineupWarning{}}, nil
}

func (m *lineupServiceMock) BulkAssign(ctx context.Context, templateID int64, req service.BulkAssignRequest) (*models.AssignmentResult, error) {
	m.lastBulk = req
	return &models.AssignmentResult{TemplateID: templateID}, nil
}

func (m *lineupServiceMock) MarkSaved(ctx context.Context, id int64) (*models.LineupTemplate, error) {
	return &models.LineupTemplate{ID: id}, nil
}

func (m *lineupServiceMock) AvailablePlayers(ctx context.Context, teamID, templateID int64) ([]models.Player, error) {
	return []models.Player{}, nil
}

type pdfServiceMock struct{}

func (pdfServiceMock) Export(ctx context.Context, templateID int64) ([]byte, string, error) {
	return []byte("%PDF-1.3"), "lineup_bruins.pdf", nil
}

func (pdfServiceMock) Check(ctx context.Context, templateID int64) (*models.PDFReadiness, error) {
	return &models.PDFReadiness{TemplateID: templateID, Messages: []string{"No goalie assigned"}}, nil
}

func newLineupRouter(svc *lineupServiceMock) *gin.Engine {
	r := gin.New()
	h := NewLineupHandler(svc, pdfServiceMock{})
	r.PUT("/lineups/slots/:slot_id", h.AssignSlot)
	r.PUT("/lineups/:lineup_id/slots", h.BulkAssign)
	r.GET("/lineups/:lineup_id/export_pdf", h.ExportPDF)
	r.GET("/lineups/:lineup_id/pdf_check", h.CheckPDF)
	return r
}

func TestLineupHandlerAssignTeamMismatch(t *testing.T) {
	r := newLineupRouter(&lineupServiceMock{assignErr: appErrors.Clone(appErrors.ErrTeamMismatch, "player is not on this lineup's team")})

	req := httptest.NewRequest(http.MethodPut, "/lineups/slots/3", bytes.NewBufferString(`{"player_id":21}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "TEAM_MISMATCH", decode(t, w).Error.Code)
}

func TestLineupHandlerBulkAssignBindsPayload(t *testing.T) {
	svc := &lineupServiceMock{}
	r := newLineupRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/lineups/4/slots", bytes.NewBufferString(`{"assignments":[{"slot_id":1,"player_id":2},{"slot_id":3,"player_id":null}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.lastBulk.Assignments, 2)
	assert.Nil(t, svc.lastBulk.Assignments[1].PlayerID)

	req = httptest.NewRequest(http.MethodPut, "/lineups/4/slots", bytes.NewBufferString(`[1,2]`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLineupHandlerExportPDF(t *testing.T) {
	r := newLineupRouter(&lineupServiceMock{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lineups/4/export_pdf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="lineup_bruins.pdf"`, w.Header().Get("Content-Disposition"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lineups/4/pdf_check", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), "No goalie assigned")
}

type failingReadiness struct{ err error }

func (f failingReadiness) Ready(ctx context.Context) error { return f.err }

func TestMetricsHandlerReady(t *testing.T) {
	r := gin.New()
	r.GET("/ready", NewMetricsHandler(nil, failingReadiness{err: context.DeadlineExceeded}).Ready)
	r.GET("/metrics", NewMetricsHandler(nil, nil).Prometheus)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
