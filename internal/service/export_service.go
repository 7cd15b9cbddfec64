package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-planner-api/internal/models"
	"github.com/noah-isme/course-planner-api/internal/scheduler"
	"github.com/noah-isme/course-planner-api/pkg/export"
	"github.com/noah-isme/course-planner-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

type icsRenderer interface {
	Render(cal export.Calendar) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix     string
	ResultTTL     time.Duration
	CalendarWeeks int
}

// ExportResult captures a rendered and stored export.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders schedule snapshots into files and signs download links.
type ExportService struct {
	catalog catalogLookup
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	ics     icsRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

var timetableHeaders = []string{"Course", "Title", "Section", "Type", "Days", "Start", "End", "Location", "Instructors", "Credits"}

// NewExportService constructs an ExportService. catalog may be nil, in which
// case course ids stand in for codes and titles.
func NewExportService(catalog catalogLookup, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CalendarWeeks <= 0 {
		cfg.CalendarWeeks = 15
	}
	return &ExportService{
		catalog: catalog,
		storage: store,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		ics:     export.NewICSExporter(time.UTC),
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate renders the job's snapshot, stores it and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		payload []byte
		err     error
	)
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(s.buildDataset(job.Snapshot))
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(s.buildDocument(job.Snapshot))
	case models.ExportFormatICS:
		var cal export.Calendar
		cal, err = s.buildCalendar(job.Snapshot, job.CreatedAt)
		if err == nil {
			payload, err = s.ics.Render(cal)
		}
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", job.Format, err)
	}

	relPath, err := s.storage.Save(buildExportFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Debug("export rendered",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Format)),
		zap.Int("bytes", len(payload)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(schedule models.Schedule) export.Dataset {
	rows := make([]map[string]string, 0, len(schedule.Sections)+len(schedule.BusyTimes))
	for _, section := range schedule.Sections {
		code, title := s.courseLabels(section.CourseID)
		for _, meeting := range section.Meetings {
			rows = append(rows, map[string]string{
				"Course":      code,
				"Title":       title,
				"Section":     section.ID,
				"Type":        meetingType(section, meeting),
				"Days":        joinDays(meeting.Days),
				"Start":       meeting.StartTime,
				"End":         meeting.EndTime,
				"Location":    meeting.Location,
				"Instructors": strings.Join(section.Instructors, "; "),
				"Credits":     strconv.Itoa(section.Credits),
			})
		}
	}
	for _, busy := range schedule.BusyTimes {
		rows = append(rows, map[string]string{
			"Title": busy.Title,
			"Type":  "Busy (" + string(busy.Type) + ")",
			"Days":  joinDays(busy.Days),
			"Start": busy.StartTime,
			"End":   busy.EndTime,
		})
	}
	return export.Dataset{Headers: timetableHeaders, Rows: rows}
}

func (s *ExportService) buildDocument(schedule models.Schedule) export.Document {
	notes := []string{fmt.Sprintf("Total credits: %d", schedule.TotalCredits)}
	if schedule.TermID != "" {
		notes = append([]string{"Term: " + schedule.TermID}, notes...)
	}
	if len(schedule.Conflicts) > 0 {
		notes = append(notes, fmt.Sprintf("Conflicts: %d", len(schedule.Conflicts)))
	}
	title := schedule.Name
	if title == "" {
		title = schedule.ID
	}
	return export.Document{Title: title, Notes: notes, Data: s.buildDataset(schedule)}
}

func (s *ExportService) buildCalendar(schedule models.Schedule, anchor time.Time) (export.Calendar, error) {
	if anchor.IsZero() {
		anchor = time.Now().UTC()
	}
	events := make([]export.RecurringEvent, 0, len(schedule.Sections)+len(schedule.BusyTimes))
	for _, section := range schedule.Sections {
		code, title := s.courseLabels(section.CourseID)
		for i, meeting := range section.Meetings {
			ev, err := recurringEvent(fmt.Sprintf("%s-%d@%s", section.ID, i, schedule.ID), meeting)
			if err != nil {
				return export.Calendar{}, fmt.Errorf("section %s: %w", section.ID, err)
			}
			ev.Summary = fmt.Sprintf("%s %s", code, meetingType(section, meeting))
			ev.Location = meeting.Location
			ev.Description = title
			events = append(events, ev)
		}
	}
	for _, busy := range schedule.BusyTimes {
		ev, err := recurringEvent(fmt.Sprintf("busy-%s@%s", busy.ID, schedule.ID), scheduler.BusyTimeMeeting(busy))
		if err != nil {
			return export.Calendar{}, fmt.Errorf("busy time %s: %w", busy.ID, err)
		}
		ev.Summary = busy.Title
		events = append(events, ev)
	}
	return export.Calendar{
		Name:   schedule.Name,
		Events: events,
		Anchor: anchor,
		Weeks:  s.cfg.CalendarWeeks,
	}, nil
}

func recurringEvent(uid string, meeting models.MeetingPattern) (export.RecurringEvent, error) {
	start := scheduler.ParseTimeOfDay(meeting.StartTime)
	end := scheduler.ParseTimeOfDay(meeting.EndTime)
	if !start.Valid() || !end.Valid() {
		return export.RecurringEvent{}, fmt.Errorf("invalid time range %s-%s", meeting.StartTime, meeting.EndTime)
	}
	weekdays := make([]time.Weekday, 0, len(meeting.Days))
	for _, day := range meeting.Days {
		w, ok := day.Weekday()
		if !ok {
			return export.RecurringEvent{}, fmt.Errorf("unknown day %q", day)
		}
		weekdays = append(weekdays, w)
	}
	return export.RecurringEvent{
		UID:         uid,
		Weekdays:    weekdays,
		StartMinute: int(start),
		EndMinute:   int(end),
	}, nil
}

func (s *ExportService) courseLabels(courseID string) (code, title string) {
	if s.catalog != nil {
		if course, ok := s.catalog.Course(courseID); ok {
			return course.Code, course.Name
		}
	}
	return courseID, ""
}

func meetingType(section models.Section, meeting models.MeetingPattern) string {
	if meeting.Kind != "" {
		return meeting.Kind
	}
	if section.Type != "" {
		return string(section.Type)
	}
	return string(models.SectionTypeLecture)
}

func joinDays(days []models.Day) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = string(d)
	}
	return strings.Join(parts, " ")
}

func buildExportFilename(job *models.ExportJob) string {
	stamp := job.CreatedAt.UTC().Format("20060102_150405")
	name := sanitizeFilename(job.Snapshot.Name)
	return fmt.Sprintf("%s/%s_%s_%s.%s", stamp[:8], name, stamp, shortID(job.ID), job.Format)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "schedule"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '_':
			b.WriteRune('_')
		}
	}
	result := b.String()
	if result == "" {
		return "schedule"
	}
	if len(result) > 60 {
		return result[:60]
	}
	return result
}
