package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tahsinku/tahsinku-api/internal/dto"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
	"github.com/tahsinku/tahsinku-api/pkg/export"
	"github.com/tahsinku/tahsinku-api/pkg/jobs"
)

// Export domains. Each maps to one spreadsheet tab.
const (
	ExportDomainParticipants = "participants"
	ExportDomainInstructors  = "instructors"
	ExportDomainAttendance   = "attendance"
	ExportDomainPayments     = "payments"
)

// Tab names in the target spreadsheet.
const (
	tabParticipants = "Participants"
	tabInstructors  = "Instructors"
	tabAttendance   = "Absensi"
	tabPayments     = "Berlangganan"
)

var (
	participantHeaders = []string{"ID", "Nama", "Email", "Telepon", "Alamat", "Tanggal Lahir", "Tanggal Daftar", "Status"}
	instructorHeaders  = []string{"ID", "Nama", "Email", "Telepon", "Spesialisasi", "Status"}
	attendanceHeaders  = []string{"ID", "Nama Peserta", "Kelas", "Pengajar", "Tanggal", "Status", "Catatan"}
	paymentHeaders     = []string{"ID", "Nama Peserta", "Pengajar", "Kelas", "Tipe Kelas", "Tanggal Mulai", "Jatuh Tempo", "Status"}
)

type exportRepository interface {
	Participants(ctx context.Context) ([]dto.ParticipantExportRow, error)
	Instructors(ctx context.Context) ([]dto.InstructorExportRow, error)
	Attendance(ctx context.Context) ([]dto.AttendanceExportRow, error)
	Payments(ctx context.Context) ([]dto.PaymentExportRow, error)
}

type sheetWriter interface {
	Replace(ctx context.Context, tab string, headers []string, rows [][]interface{}) (int, error)
}

type exportMetrics interface {
	RecordSheetExport(domain string, success bool)
}

// ExportService shapes query projections into rows and pushes them to
// spreadsheet tabs. It also renders the same projections into CSV and
// PDF recaps for direct download.
type ExportService struct {
	repo          exportRepository
	writer        sheetWriter
	queue         *jobs.ExportQueue
	metrics       exportMetrics
	csv           *export.CSVRenderer
	pdf           *export.PDFRenderer
	logger        *zap.Logger
	spreadsheetID string
	autoExport    bool
}

// NewExportService constructs the export service. A nil writer disables
// spreadsheet pushes; recap downloads keep working.
func NewExportService(repo exportRepository, writer sheetWriter, metrics exportMetrics, logger *zap.Logger, spreadsheetID string, autoExport bool) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:          repo,
		writer:        writer,
		metrics:       metrics,
		csv:           export.NewCSVRenderer(),
		pdf:           export.NewPDFRenderer(),
		logger:        logger,
		spreadsheetID: spreadsheetID,
		autoExport:    autoExport,
	}
}

// Queue returns the background queue draining auto-export jobs. It must
// be started by the caller.
func (s *ExportService) Queue() *jobs.ExportQueue {
	if s.queue == nil {
		s.queue = jobs.NewExportQueue(func(ctx context.Context, job jobs.ExportJob) error {
			_, err := s.Run(ctx, job.Domain)
			return err
		}, jobs.QueueConfig{Workers: 1, Logger: s.logger})
	}
	return s.queue
}

// TriggerAsync enqueues a background refresh of a domain after a
// mutation. It never blocks and never surfaces an error to the caller;
// the mutation is already committed.
func (s *ExportService) TriggerAsync(domain, trigger string) {
	if !s.autoExport || s.writer == nil {
		return
	}
	if err := s.Queue().Enqueue(jobs.ExportJob{Domain: domain, Trigger: trigger}); err != nil {
		s.logger.Warn("failed to enqueue export", zap.String("domain", domain), zap.Error(err))
	}
}

// Run exports one domain to its spreadsheet tab and returns the result.
func (s *ExportService) Run(ctx context.Context, domain string) (*dto.ExportResult, error) {
	if s.writer == nil {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "spreadsheet export is not configured")
	}

	tab, headers, rows, err := s.collect(ctx, domain)
	if err != nil {
		s.record(domain, false)
		return nil, err
	}

	count, err := s.writer.Replace(ctx, tab, headers, rows)
	if err != nil {
		s.record(domain, false)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to export %s", domain))
	}

	s.record(domain, true)
	s.logger.Info("exported domain to spreadsheet", zap.String("domain", domain), zap.Int("rows", count))
	return &dto.ExportResult{
		Domain:         domain,
		RowCount:       count,
		SpreadsheetURL: s.SpreadsheetURL(),
	}, nil
}

// Recap loads one domain and renders it for download in the requested
// format ("csv" or "pdf").
func (s *ExportService) Recap(ctx context.Context, domain, format string) ([]byte, string, error) {
	_, headers, rows, err := s.collect(ctx, domain)
	if err != nil {
		return nil, "", err
	}

	recap := export.Recap{
		Title:   "Rekap " + domain,
		Headers: headers,
		Rows:    stringifyRows(headers, rows),
	}

	switch format {
	case "csv":
		out, err := s.csv.Render(recap)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv recap")
		}
		return out, "text/csv", nil
	case "pdf":
		out, err := s.pdf.Render(recap, time.Now().UTC())
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf recap")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// SpreadsheetURL returns the edit URL of the target spreadsheet, or an
// empty string when none is configured.
func (s *ExportService) SpreadsheetURL() string {
	if s.spreadsheetID == "" {
		return ""
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", s.spreadsheetID)
}

func (s *ExportService) collect(ctx context.Context, domain string) (string, []string, [][]interface{}, error) {
	switch domain {
	case ExportDomainParticipants:
		records, err := s.repo.Participants(ctx)
		if err != nil {
			return "", nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participants")
		}
		rows := make([][]interface{}, 0, len(records))
		for _, r := range records {
			rows = append(rows, []interface{}{r.ID, r.Name, r.Email, r.Phone, r.Address, r.BirthDate, r.RegistrationDate, r.Status})
		}
		return tabParticipants, participantHeaders, rows, nil

	case ExportDomainInstructors:
		records, err := s.repo.Instructors(ctx)
		if err != nil {
			return "", nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructors")
		}
		rows := make([][]interface{}, 0, len(records))
		for _, r := range records {
			rows = append(rows, []interface{}{r.ID, r.Name, r.Email, r.Phone, r.Specialization, r.Status})
		}
		return tabInstructors, instructorHeaders, rows, nil

	case ExportDomainAttendance:
		records, err := s.repo.Attendance(ctx)
		if err != nil {
			return "", nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
		}
		deduped := dedupeAttendance(records)
		rows := make([][]interface{}, 0, len(deduped))
		for _, r := range deduped {
			rows = append(rows, []interface{}{r.ID, r.ParticipantName, r.ClassName, r.InstructorName, r.Date, r.Status, r.Notes})
		}
		return tabAttendance, attendanceHeaders, rows, nil

	case ExportDomainPayments:
		records, err := s.repo.Payments(ctx)
		if err != nil {
			return "", nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
		}
		rows := make([][]interface{}, 0, len(records))
		for _, r := range records {
			rows = append(rows, []interface{}{r.ID, r.ParticipantName, r.InstructorName, r.ClassName, r.ClassType, r.StartDate, r.DueDate, r.Status})
		}
		return tabPayments, paymentHeaders, rows, nil

	default:
		return "", nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown export domain")
	}
}

// dedupeAttendance collapses rows sharing (participant name, date) down
// to the one with the greatest id, preserving the input order of the
// survivors.
func dedupeAttendance(records []dto.AttendanceExportRow) []dto.AttendanceExportRow {
	type slot struct {
		index int
		row   dto.AttendanceExportRow
	}
	latest := make(map[string]slot, len(records))
	for i, r := range records {
		key := r.ParticipantName + "_" + r.Date
		existing, ok := latest[key]
		if !ok {
			latest[key] = slot{index: i, row: r}
			continue
		}
		if r.ID > existing.row.ID {
			latest[key] = slot{index: existing.index, row: r}
		}
	}

	out := make([]dto.AttendanceExportRow, 0, len(latest))
	order := make([]int, 0, len(latest))
	byIndex := make(map[int]dto.AttendanceExportRow, len(latest))
	for _, s := range latest {
		order = append(order, s.index)
		byIndex[s.index] = s.row
	}
	sort.Ints(order)
	for _, idx := range order {
		out = append(out, byIndex[idx])
	}
	return out
}

func stringifyRows(headers []string, rows [][]interface{}) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := make([]string, len(headers))
		for i := range headers {
			if i < len(row) {
				record[i] = fmt.Sprintf("%v", row[i])
			}
		}
		out = append(out, record)
	}
	return out
}

func (s *ExportService) record(domain string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordSheetExport(domain, success)
	}
}
