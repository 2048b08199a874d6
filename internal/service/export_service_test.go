package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahsinku/tahsinku-api/internal/dto"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
)

type mockExportRepo struct {
	participants []dto.ParticipantExportRow
	instructors  []dto.InstructorExportRow
	attendance   []dto.AttendanceExportRow
	payments     []dto.PaymentExportRow
}

func (m *mockExportRepo) Participants(ctx context.Context) ([]dto.ParticipantExportRow, error) {
	return m.participants, nil
}

func (m *mockExportRepo) Instructors(ctx context.Context) ([]dto.InstructorExportRow, error) {
	return m.instructors, nil
}

func (m *mockExportRepo) Attendance(ctx context.Context) ([]dto.AttendanceExportRow, error) {
	return m.attendance, nil
}

func (m *mockExportRepo) Payments(ctx context.Context) ([]dto.PaymentExportRow, error) {
	return m.payments, nil
}

type mockSheetWriter struct {
	tabs    []string
	headers [][]string
	rows    [][][]interface{}
	err     error
}

func (m *mockSheetWriter) Replace(ctx context.Context, tab string, headers []string, rows [][]interface{}) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.tabs = append(m.tabs, tab)
	m.headers = append(m.headers, headers)
	m.rows = append(m.rows, rows)
	return len(rows), nil
}

type mockExportMetrics struct {
	recorded []string
}

func (m *mockExportMetrics) RecordSheetExport(domain string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.recorded = append(m.recorded, domain+":"+status)
}

func TestExportRunPushesPaymentsTab(t *testing.T) {
	repo := &mockExportRepo{payments: []dto.PaymentExportRow{
		{ID: "enr-1", ParticipantName: "Ahmad", InstructorName: "Ustadz Budi", ClassName: "Tahsin Pagi", ClassType: "reguler", StartDate: "2025-10-26", DueDate: "2025-11-23", Status: "lunas"},
	}}
	writer := &mockSheetWriter{}
	metrics := &mockExportMetrics{}
	svc := NewExportService(repo, writer, metrics, nil, "sheet-123", true)

	result, err := svc.Run(context.Background(), ExportDomainPayments)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/sheet-123/edit", result.SpreadsheetURL)

	require.Len(t, writer.tabs, 1)
	assert.Equal(t, "Berlangganan", writer.tabs[0])
	assert.Equal(t, []string{"ID", "Nama Peserta", "Pengajar", "Kelas", "Tipe Kelas", "Tanggal Mulai", "Jatuh Tempo", "Status"}, writer.headers[0])
	assert.Equal(t, []interface{}{"enr-1", "Ahmad", "Ustadz Budi", "Tahsin Pagi", "reguler", "2025-10-26", "2025-11-23", "lunas"}, writer.rows[0][0])
	assert.Equal(t, []string{"payments:success"}, metrics.recorded)
}

func TestExportRunAttendanceDedupKeepsGreatestID(t *testing.T) {
	repo := &mockExportRepo{attendance: []dto.AttendanceExportRow{
		{ID: "9", ParticipantName: "Ahmad", Date: "2025-10-26", Status: "hadir"},
		{ID: "5", ParticipantName: "Ahmad", Date: "2025-10-26", Status: "izin", Notes: "sakit"},
		{ID: "7", ParticipantName: "Siti", Date: "2025-10-26", Status: "hadir"},
	}}
	writer := &mockSheetWriter{}
	svc := NewExportService(repo, writer, nil, nil, "", true)

	result, err := svc.Run(context.Background(), ExportDomainAttendance)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)

	rows := writer.rows[0]
	require.Len(t, rows, 2)
	assert.Equal(t, "9", rows[0][0], "duplicate natural key keeps the row with the greatest id")
	assert.Equal(t, "hadir", rows[0][5])
	assert.Equal(t, "7", rows[1][0])
}

func TestExportRunUnknownDomain(t *testing.T) {
	svc := NewExportService(&mockExportRepo{}, &mockSheetWriter{}, nil, nil, "", true)

	_, err := svc.Run(context.Background(), "grades")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportRunWithoutWriterIsConfigurationError(t *testing.T) {
	svc := NewExportService(&mockExportRepo{}, nil, nil, nil, "", true)

	_, err := svc.Run(context.Background(), ExportDomainParticipants)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErr.Code)
}

func TestExportRunRecordsFailure(t *testing.T) {
	writer := &mockSheetWriter{err: assert.AnError}
	metrics := &mockExportMetrics{}
	svc := NewExportService(&mockExportRepo{}, writer, metrics, nil, "", true)

	_, err := svc.Run(context.Background(), ExportDomainInstructors)
	require.Error(t, err)
	assert.Equal(t, []string{"instructors:error"}, metrics.recorded)
}

func TestExportRecapCSV(t *testing.T) {
	repo := &mockExportRepo{participants: []dto.ParticipantExportRow{
		{ID: "p1", Name: "Ahmad", Phone: "0812", RegistrationDate: "2025-01-01", Status: "active"},
	}}
	svc := NewExportService(repo, nil, nil, nil, "", false)

	out, contentType, err := svc.Recap(context.Background(), ExportDomainParticipants, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Nama,Email,Telepon,Alamat,Tanggal Lahir,Tanggal Daftar,Status", lines[0])
	assert.Contains(t, lines[1], "Ahmad")
}

func TestExportRecapRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&mockExportRepo{}, nil, nil, nil, "", false)

	_, _, err := svc.Recap(context.Background(), ExportDomainParticipants, "xlsx")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTriggerAsyncDisabledDoesNothing(t *testing.T) {
	svc := NewExportService(&mockExportRepo{}, &mockSheetWriter{}, nil, nil, "", false)
	// Queue is never started; a trigger on a disabled exporter must not
	// enqueue anything or panic.
	svc.TriggerAsync(ExportDomainParticipants, "created")
}
