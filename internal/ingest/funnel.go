package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"vellum/backend/internal/domain"
)

const (
	colFunnelClient   = "cliente"
	colFunnelEmail    = "email"
	colFunnelStatus   = "status"
	colFunnelCreated  = "datacadastro"
	colFunnelModified = "datamodificacao"
	colFunnelValue    = "valortotal"
)

var xlsxMagic = []byte("PK\x03\x04")

// funnelKey folds "Data Modificação", "data_modificacao" and "dataModificacao"
// onto the same key.
func funnelKey(header string) string {
	folded := fold(header)
	folded = strings.ReplaceAll(folded, " ", "")
	return strings.ReplaceAll(folded, "_", "")
}

// ParseFunnel reads a funnel export from CSV or from the first worksheet of an
// XLSX workbook. Rows with an unrecognised status are rejected.
func ParseFunnel(file File) ([]domain.FunnelRecord, Report, error) {
	header, rows, malformed, err := readFunnelRows(file)
	if err != nil {
		return nil, Report{}, fmt.Errorf("read %s: %w", file.Name, err)
	}
	data := newTable(header, rows, malformed, funnelKey)
	if missing := data.missing(colFunnelClient, colFunnelEmail, colFunnelStatus, colFunnelCreated); len(missing) > 0 {
		return nil, Report{}, fmt.Errorf("%s: %w: %s", file.Name, ErrMissingColumns, strings.Join(missing, ", "))
	}
	if len(data.rows) == 0 {
		return nil, Report{}, fmt.Errorf("%s: %w", file.Name, ErrEmptyFile)
	}

	report := Report{Rejected: data.malformed}
	records := make([]domain.FunnelRecord, 0, len(data.rows))
	for _, row := range data.rows {
		record, ok := funnelRecord(data, row)
		if !ok {
			report.Rejected++
			continue
		}
		records = append(records, record)
		report.Accepted++
	}
	return records, report, nil
}

func readFunnelRows(file File) ([]string, [][]string, int, error) {
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(file.Data)
	case ".csv", ".txt":
		return readDelimited(file.Data)
	case "":
		if bytes.HasPrefix(file.Data, xlsxMagic) {
			return readWorkbook(file.Data)
		}
		return readDelimited(file.Data)
	default:
		return nil, nil, 0, ErrUnsupportedFormat
	}
}

func readWorkbook(data []byte) ([]string, [][]string, int, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, 0, ErrEmptyFile
	}
	rows, err := book.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, 0, err
	}
	if len(rows) == 0 {
		return nil, nil, 0, ErrEmptyFile
	}

	body := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		body = append(body, row)
	}
	return rows[0], body, 0, nil
}

func funnelRecord(data table, row []string) (domain.FunnelRecord, bool) {
	client := data.value(row, colFunnelClient)
	email := strings.ToLower(data.value(row, colFunnelEmail))
	created, ok := parseFunnelDate(data.value(row, colFunnelCreated))
	if client == "" || email == "" || !ok {
		return domain.FunnelRecord{}, false
	}
	rawStatus := data.value(row, colFunnelStatus)
	status, ok := NormalizeFunnelStatus(rawStatus)
	if !ok {
		return domain.FunnelRecord{}, false
	}

	modified, _ := parseFunnelDate(data.value(row, colFunnelModified))
	return domain.FunnelRecord{
		Client:     client,
		Email:      email,
		RawStatus:  rawStatus,
		Status:     status,
		CreatedAt:  created,
		ModifiedAt: modified,
		Value:      parseNumber(data.value(row, colFunnelValue)),
	}, true
}

// parseFunnelDate also accepts spreadsheet date serials.
func parseFunnelDate(raw string) (time.Time, bool) {
	if parsed, ok := parseDate(raw); ok {
		return parsed, true
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	converted, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return truncateDay(converted), true
}

// FunnelHeader is the column layout of a funnel workbook, in sheet order.
var FunnelHeader = []string{"Cliente", "Email", "Status", "Data Cadastro", "Data Modificação", "Valor Total"}

var sampleFunnelRows = [][]any{
	{"João Silva", "joao.silva@email.com", "Finalizado", "2024-01-15", "2024-01-20", 1250.50},
	{"Maria Santos", "maria.santos@email.com", "Aguardando Aprovação", "2024-01-18", "2024-01-18", 890.00},
	{"Pedro Costa", "pedro.costa@email.com", "Configurando Arquivo", "2024-01-20", "2024-01-22", 2100.75},
	{"Ana Oliveira", "ana.oliveira@email.com", "Cancelado", "2024-01-10", "2024-01-25", 750.00},
}

// SampleFunnelXLSX returns a small funnel workbook in the layout ParseFunnel reads.
func SampleFunnelXLSX() ([]byte, error) {
	book := excelize.NewFile()
	defer book.Close()

	const sheet = "Plano de Corte"
	if err := book.SetSheetName(book.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	header := make([]any, len(FunnelHeader))
	for i, name := range FunnelHeader {
		header[i] = name
	}
	if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, row := range sampleFunnelRows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := row
		if err := book.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := book.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
