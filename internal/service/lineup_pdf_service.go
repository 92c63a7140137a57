package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/coach-lineup-api/internal/models"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
	"github.com/noah-isme/coach-lineup-api/pkg/export"
)

const (
	minAssignedForPrint = 12
	maxEmptyRatio       = 0.2
	savedStampLayout    = "2006-01-02 15:04 UTC"
)

var filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9]+`)

type lineupDetailer interface {
	Get(ctx context.Context, id int64) (*models.LineupDetail, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// LineupPDFService renders lineup templates as printable documents.
type LineupPDFService struct {
	lineups  lineupDetailer
	teams    teamLookup
	renderer documentRenderer
	logger   *zap.Logger
}

// NewLineupPDFService constructs the PDF service.
func NewLineupPDFService(lineups lineupDetailer, teams teamLookup, renderer documentRenderer, logger *zap.Logger) *LineupPDFService {
	if renderer == nil {
		renderer = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineupPDFService{lineups: lineups, teams: teams, renderer: renderer, logger: logger}
}

// Export renders the lineup and returns the PDF bytes with a download name.
func (s *LineupPDFService) Export(ctx context.Context, templateID int64) ([]byte, string, error) {
	detail, err := s.lineups.Get(ctx, templateID)
	if err != nil {
		return nil, "", err
	}
	team, err := findTeam(ctx, s.teams, detail.TeamID)
	if err != nil {
		return nil, "", err
	}

	payload, err := s.renderer.Render(buildLineupDocument(team, detail))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render lineup pdf")
	}
	s.logger.Info("lineup pdf rendered", zap.Int64("lineup_id", detail.ID), zap.Int("bytes", len(payload)))
	return payload, lineupFilename(team, detail), nil
}

// Check reports how complete the lineup is before printing.
func (s *LineupPDFService) Check(ctx context.Context, templateID int64) (*models.PDFReadiness, error) {
	detail, err := s.lineups.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return evaluateReadiness(detail), nil
}

func evaluateReadiness(detail *models.LineupDetail) *models.PDFReadiness {
	r := &models.PDFReadiness{TemplateID: detail.ID, TotalSlots: len(detail.Slots), Messages: make([]string, 0)}
	for _, slot := range detail.Slots {
		if slot.Player == nil {
			continue
		}
		r.AssignedCount++
		if slot.SlotType == models.SlotGoalie {
			r.GoalieCount++
		}
	}

	if r.AssignedCount < minAssignedForPrint {
		r.Messages = append(r.Messages, fmt.Sprintf("Only %d players assigned; a game lineup usually has at least %d", r.AssignedCount, minAssignedForPrint))
	}
	switch r.GoalieCount {
	case 0:
		r.Messages = append(r.Messages, "No goalie assigned")
	case 1:
		r.Messages = append(r.Messages, "Only one goalie assigned; consider a backup")
	}
	empty := r.TotalSlots - r.AssignedCount
	if r.TotalSlots > 0 && float64(empty)/float64(r.TotalSlots) > maxEmptyRatio {
		r.Messages = append(r.Messages, fmt.Sprintf("%d of %d slots are empty", empty, r.TotalSlots))
	}
	r.Ready = len(r.Messages) == 0
	return r
}

func buildLineupDocument(team *models.Team, detail *models.LineupDetail) export.Document {
	doc := export.Document{
		Title: fmt.Sprintf("%s %s: %s", team.Name, team.Season, detail.Name),
	}
	if detail.DateSaved != nil {
		doc.Subtitle = append(doc.Subtitle, "Saved "+detail.DateSaved.UTC().Format(savedStampLayout))
	} else {
		doc.Subtitle = append(doc.Subtitle, "Draft")
	}
	if detail.Notes != nil {
		doc.Notes = *detail.Notes
	}

	sections := []struct {
		heading  string
		slotType models.SlotType
	}{
		{"Forwards", models.SlotForward},
		{"Defense", models.SlotDefense},
		{"Goalies", models.SlotGoalie},
	}
	for _, sec := range sections {
		section := export.Section{Heading: sec.heading}
		for _, slot := range detail.Slots {
			if slot.SlotType != sec.slotType || slot.Player == nil {
				continue
			}
			section.Rows = append(section.Rows, export.Row{
				Label: slotCaption(slot.LineupSlot),
				Value: playerLine(slot.Player),
				Note:  statusNote(slot.Player),
			})
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc
}

func playerLine(p *models.Player) string {
	if p.Jersey != nil {
		return fmt.Sprintf("#%d %s", *p.Jersey, p.Name)
	}
	return p.Name
}

func statusNote(p *models.Player) string {
	if p.Status == models.StatusActive {
		return ""
	}
	return string(p.Status)
}

func lineupFilename(team *models.Team, detail *models.LineupDetail) string {
	parts := []string{"lineup", team.Name, team.Season, detail.Name}
	for i, part := range parts {
		parts[i] = strings.Trim(filenameUnsafe.ReplaceAllString(part, "_"), "_")
	}
	return strings.ToLower(strings.Join(parts, "_")) + ".pdf"
}
