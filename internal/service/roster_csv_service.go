package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/noah-isme/coach-lineup-api/internal/dto"
	"github.com/noah-isme/coach-lineup-api/internal/models"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
	"github.com/noah-isme/coach-lineup-api/pkg/export"
	"github.com/noah-isme/coach-lineup-api/pkg/storage"
)

// RosterCSVHeaders is the column set used for roster import and export.
var RosterCSVHeaders = []string{"name", "position", "jersey", "hand", "birthdate", "email", "phone", "status"}

var (
	issueHeaders       = []string{"row", "field", "reason", "value"}
	birthdateLayouts   = []string{"2006-01-02", "01/02/2006", "02/01/2006"}
	utf8BOM            = []byte{0xEF, 0xBB, 0xBF}
	defaultImportLimit = int64(2 * 1024 * 1024)
)

const (
	importOutcomeCreated = "created"
	importOutcomeSkipped = "skipped"
	importOutcomeFlagged = "flagged"
)

type rosterStore interface {
	ListByTeam(ctx context.Context, teamID int64) ([]models.Player, error)
	CreateBatch(ctx context.Context, players []*models.Player) error
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// RosterCSVConfig tunes roster import behaviour.
type RosterCSVConfig struct {
	APIPrefix        string
	MaxFileSizeBytes int64
}

// RosterCSVService imports and exports team rosters as CSV.
type RosterCSVService struct {
	players   rosterStore
	teams     teamLookup
	storage   reportStorage
	signer    *storage.SignedURLSigner
	csv       datasetRenderer
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	clock     clockwork.Clock
	logger    *zap.Logger
	cfg       RosterCSVConfig
}

// NewRosterCSVService constructs the roster CSV service.
func NewRosterCSVService(players rosterStore, teams teamLookup, reports reportStorage, signer *storage.SignedURLSigner, cache *CacheService, metrics *MetricsService, cfg RosterCSVConfig, clock clockwork.Clock, logger *zap.Logger) *RosterCSVService {
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = defaultImportLimit
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterCSVService{
		players:   players,
		teams:     teams,
		storage:   reports,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		cache:     cache,
		metrics:   metrics,
		validator: NewValidator(),
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
	}
}

// Import reads a roster CSV and creates every row that has a name and a
// position. Other bad cells are cleared and reported as issues.
func (s *RosterCSVService) Import(ctx context.Context, teamID int64, r io.Reader) (*dto.RosterImportResult, error) {
	if err := ensureTeam(ctx, s.teams, teamID); err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxFileSizeBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "failed to read csv upload")
	}
	if int64(len(raw)) > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "csv file too large",
			appErrors.FieldError{Field: "file", Reason: fmt.Sprintf("must be at most %d bytes", s.cfg.MaxFileSizeBytes)})
	}

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, utf8BOM)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "csv file is empty",
			appErrors.FieldError{Field: "file", Reason: "must contain a header row"})
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "malformed csv")
	}
	columns, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	existing, err := s.players.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	seenNames := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		seenNames[strings.ToLower(p.Name)] = struct{}{}
	}

	now := s.clock.Now().UTC()
	result := &dto.RosterImportResult{Issues: make([]dto.RosterImportIssue, 0)}
	created := make([]*models.Player, 0)
	flaggedRows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "malformed csv")
		}
		line, _ := reader.FieldPos(0)
		if blankRecord(record) {
			continue
		}

		cell := func(name string) string {
			idx := columns[name]
			if idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}
		player, issues := s.parseRow(line, cell)
		if player == nil {
			result.Skipped++
			result.Issues = append(result.Issues, issues...)
			continue
		}

		key := strings.ToLower(player.Name)
		if _, dup := seenNames[key]; dup {
			issues = append(issues, dto.RosterImportIssue{Row: line, Field: "name", Reason: "duplicate player name", Value: player.Name})
		}
		seenNames[key] = struct{}{}
		if len(issues) > 0 {
			flaggedRows++
		}
		result.Issues = append(result.Issues, issues...)

		player.TeamID = teamID
		player.CreatedAt = now
		created = append(created, player)
	}

	if len(created) > 0 {
		if err := s.players.CreateBatch(ctx, created); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import players")
		}
		s.cache.Invalidate(ctx, cacheKeyRoster(teamID))
	}
	result.Imported = len(created)

	if len(result.Issues) > 0 {
		s.attachIssuesReport(teamID, now, result)
	}

	s.metrics.RecordImportRows(importOutcomeCreated, result.Imported)
	s.metrics.RecordImportRows(importOutcomeSkipped, result.Skipped)
	s.metrics.RecordImportRows(importOutcomeFlagged, flaggedRows)
	s.logger.Info("roster imported",
		zap.Int64("team_id", teamID),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("issues", len(result.Issues)),
	)
	return result, nil
}

// Export renders the team's roster with the import header layout.
func (s *RosterCSVService) Export(ctx context.Context, teamID int64) ([]byte, string, error) {
	team, err := findTeam(ctx, s.teams, teamID)
	if err != nil {
		return nil, "", err
	}
	players, err := s.players.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	rows := make([]map[string]string, 0, len(players))
	for _, p := range players {
		row := map[string]string{
			"name":     p.Name,
			"position": string(p.Position),
			"status":   string(p.Status),
		}
		if p.Jersey != nil {
			row["jersey"] = strconv.Itoa(*p.Jersey)
		}
		if p.Hand != nil {
			row["hand"] = string(*p.Hand)
		}
		row["birthdate"] = deref(p.Birthdate)
		row["email"] = deref(p.Email)
		row["phone"] = deref(p.Phone)
		rows = append(rows, row)
	}
	payload, err := s.csv.Render(export.Dataset{Headers: RosterCSVHeaders, Rows: rows})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
	}
	return payload, rosterFilename(team), nil
}

// IssuesReport returns the stored issues CSV addressed by a signed token.
func (s *RosterCSVService) IssuesReport(token string) ([]byte, string, error) {
	if s.signer == nil || s.storage == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "issues report not found")
	}
	_, relPath, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "issues report link has expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "issues report not found")
	}
	f, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "issues report not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open issues report")
	}
	defer f.Close()
	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read issues report")
	}
	return payload, filepath.Base(relPath), nil
}

// parseRow returns nil when the row cannot become a player.
func (s *RosterCSVService) parseRow(line int, cell func(string) string) (*models.Player, []dto.RosterImportIssue) {
	var issues []dto.RosterImportIssue
	flag := func(field, reason, value string) {
		issues = append(issues, dto.RosterImportIssue{Row: line, Field: field, Reason: reason, Value: value})
	}

	name := cell("name")
	switch {
	case name == "":
		flag("name", "name is required", name)
	case len([]rune(name)) > 100:
		flag("name", "name must be at most 100 characters", name)
	}
	position, ok := models.ParsePosition(cell("position"))
	if !ok {
		flag("position", "position must be F, D or G", cell("position"))
	}
	if len(issues) > 0 {
		return nil, issues
	}

	player := &models.Player{Name: name, Position: position, Status: models.StatusActive}

	if raw := cell("jersey"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 99 {
			flag("jersey", "jersey must be a number between 1 and 99", raw)
		} else {
			player.Jersey = &n
		}
	}
	if raw := cell("hand"); raw != "" {
		if hand, ok := models.ParseHand(raw); ok {
			player.Hand = &hand
		} else {
			flag("hand", "hand must be L or R", raw)
		}
	}
	if raw := cell("birthdate"); raw != "" {
		if date, ok := parseBirthdate(raw); ok {
			player.Birthdate = &date
		} else {
			flag("birthdate", "birthdate must be YYYY-MM-DD, MM/DD/YYYY or DD/MM/YYYY", raw)
		}
	}
	if raw := cell("email"); raw != "" {
		if err := s.validator.Var(raw, "max=255,email"); err != nil {
			flag("email", "email is not a valid address", raw)
		} else {
			email := raw
			player.Email = &email
		}
	}
	if raw := cell("phone"); raw != "" {
		if validPhone(raw) {
			phone := raw
			player.Phone = &phone
		} else {
			flag("phone", "phone must contain 10 to 15 digits", raw)
		}
	}
	if raw := cell("status"); raw != "" {
		if status, ok := models.ParseStatus(raw); ok {
			player.Status = status
		} else {
			flag("status", "unknown status, defaulted to Active", raw)
		}
	}
	return player, issues
}

func (s *RosterCSVService) attachIssuesReport(teamID int64, now time.Time, result *dto.RosterImportResult) {
	if s.storage == nil || s.signer == nil {
		return
	}
	rows := make([]map[string]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		rows = append(rows, map[string]string{
			"row":    strconv.Itoa(issue.Row),
			"field":  issue.Field,
			"reason": issue.Reason,
			"value":  issue.Value,
		})
	}
	payload, err := s.csv.Render(export.Dataset{Headers: issueHeaders, Rows: rows})
	if err != nil {
		s.logger.Warn("render import issues failed", zap.Error(err))
		return
	}
	filename := fmt.Sprintf("roster_issues_team%d_%s.csv", teamID, now.Format("20060102_150405"))
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.logger.Warn("store import issues failed", zap.Error(err))
		return
	}
	token, expiresAt, err := s.signer.Generate(strconv.FormatInt(teamID, 10), relPath)
	if err != nil {
		s.logger.Warn("sign import issues failed", zap.Error(err))
		return
	}
	url := fmt.Sprintf("%s/imports/issues/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
	result.IssuesURL = &url
	result.IssuesExpiresAt = &expiresAt
}

func headerIndex(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	missing := make([]appErrors.FieldError, 0)
	for _, want := range RosterCSVHeaders {
		if _, ok := columns[want]; !ok {
			missing = append(missing, appErrors.FieldError{Field: want, Reason: "missing csv header"})
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "csv header is incomplete", missing...)
	}
	return columns, nil
}

func parseBirthdate(raw string) (string, bool) {
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func rosterFilename(team *models.Team) string {
	parts := []string{"roster", team.Name, team.Season}
	for i, part := range parts {
		parts[i] = strings.Trim(filenameUnsafe.ReplaceAllString(part, "_"), "_")
	}
	return strings.ToLower(strings.Join(parts, "_")) + ".csv"
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
