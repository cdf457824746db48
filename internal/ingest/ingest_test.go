package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"vellum/backend/internal/domain"
)

func TestNormalizeOrderStatus(t *testing.T) {
	cases := map[string]domain.OrderStatus{
		"Faturado":                domain.StatusBilled,
		"  FATURADO ":             domain.StatusBilled,
		"Invoiced":                domain.StatusBilled,
		"Cancelado":               domain.StatusCancelled,
		"Cancelamento Solicitado": domain.StatusCancelled,
		"Pronto para o manuseio":  domain.StatusOther,
		"":                        domain.StatusOther,
	}
	for raw, want := range cases {
		if got := NormalizeOrderStatus(raw); got != want {
			t.Fatalf("status %q: expected %s, got %s", raw, want, got)
		}
	}
}

func TestNormalizeFunnelStatusFoldsAccents(t *testing.T) {
	cases := map[string]domain.FunnelStatus{
		"Aguardando Aprovação":           domain.FunnelPendingApproval,
		"Configurando Arquivo":           domain.FunnelPendingApproval,
		"Aguardando Retorno do Vendedor": domain.FunnelPendingSalesperson,
		"Aprovado - Em Produção":         domain.FunnelApproved,
		"Finalizado":                     domain.FunnelFinalized,
		"Entregue":                       domain.FunnelDelivered,
		"Cancelado":                      domain.FunnelCancelled,
		"pending-salesperson":            domain.FunnelPendingSalesperson,
	}
	for raw, want := range cases {
		got, ok := NormalizeFunnelStatus(raw)
		if !ok || got != want {
			t.Fatalf("status %q: expected %s, got %s (ok=%v)", raw, want, got, ok)
		}
	}
	if _, ok := NormalizeFunnelStatus("Em análise"); ok {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestParseSalesSemicolonExport(t *testing.T) {
	data := "\ufeffOrder;Creation Date;Client Name;Client Last Name;Client Document;City;Status;SKU Value;SKU Total Price;Quantity_SKU;SKU Name;Coupon\n" +
		"MLR-1;2024-03-05T14:22:10Z;Ana;Souza;111;Curitiba;Faturado;1.234,50;2.469,00;2;Mesa;PROMO\n" +
		"MLR-1;2024-03-05;Ana;Souza;111;Curitiba;Faturado;10,5;10,5;1;Cadeira;\n" +
		"MDM-2;05/03/2024;Bia;;222;Londrina;Cancelado;99.90;99.90;1;Estante;\n" +
		";2024-03-05;Sem;Pedido;333;Curitiba;Faturado;1;1;1;Mesa;\n" +
		"MLR-3;not a date;Caio;;444;Curitiba;Faturado;1;1;1;Mesa;\n" +
		"MLR-4;2024-03-05;Caio;;444;Curitiba;Faturado;1;1;1;;\n"

	records, report, err := ParseSales(File{Name: "vendas.csv", Data: []byte(data)})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if report.Accepted != 3 || report.Rejected != 3 {
		t.Fatalf("expected 3 accepted and 3 rejected, got %+v", report)
	}

	first := records[0]
	if first.Client.Name != "Ana Souza" || first.Client.Document != "111" {
		t.Fatalf("unexpected client %+v", first.Client)
	}
	if first.LineTotal != 2469 || first.UnitPrice != 1234.5 || first.Quantity != 2 {
		t.Fatalf("unexpected amounts %+v", first)
	}
	if !first.Date.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected day precision date, got %s", first.Date)
	}
	if first.Status != domain.StatusBilled || first.Coupon != "PROMO" {
		t.Fatalf("unexpected status or coupon %+v", first)
	}
	if records[1].LineTotal != 10.5 {
		t.Fatalf("expected decimal comma to parse, got %v", records[1].LineTotal)
	}
	if records[2].Status != domain.StatusCancelled || !records[2].Date.Equal(first.Date) {
		t.Fatalf("unexpected third record %+v", records[2])
	}
}

func TestParseSalesCommaSeparatedAndCaseInsensitive(t *testing.T) {
	data := "order,CREATION DATE,sku name,sku total price,status\n" +
		"\"LRM-9\",2024-01-02,\"Mesa, grande\",\"1,234.00\",faturado\n"

	records, report, err := ParseSales(File{Name: "vendas.csv", Data: []byte(data)})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if report.Accepted != 1 || records[0].ProductName != "Mesa, grande" || records[0].LineTotal != 1234 {
		t.Fatalf("unexpected parse result %+v %+v", report, records)
	}
}

func TestParseSalesErrors(t *testing.T) {
	_, _, err := ParseSales(File{Name: "empty.csv"})
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}

	_, _, err = ParseSales(File{Name: "header-only.csv", Data: []byte("Order;Creation Date;SKU Name\n")})
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile for header-only file, got %v", err)
	}

	_, _, err = ParseSales(File{Name: "wrong.csv", Data: []byte("Pedido;Data\n1;2024-01-01\n")})
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	if !strings.Contains(err.Error(), "sku name") {
		t.Fatalf("expected missing column names in error, got %v", err)
	}
}

func TestSampleSalesCSVParses(t *testing.T) {
	sample, err := SampleSalesCSV()
	if err != nil {
		t.Fatalf("sample failed: %v", err)
	}
	records, report, err := ParseSales(File{Name: "sample.csv", Data: sample})
	if err != nil {
		t.Fatalf("parse sample failed: %v", err)
	}
	if report.Accepted != 3 || report.Rejected != 0 {
		t.Fatalf("unexpected sample report %+v", report)
	}
	if records[2].Status != domain.StatusCancelled || records[0].Client.City != "São Paulo" {
		t.Fatalf("unexpected sample records %+v", records)
	}
}

func TestParseFunnelCSV(t *testing.T) {
	data := "cliente,email,status,data_cadastro,data_modificacao,valor_total\n" +
		"Ana,ANA@Example.com,Finalizado,2024-02-01,2024-02-10,\"1.250,50\"\n" +
		"Bia,bia@example.com,Em análise,2024-02-01,,100\n" +
		",sem@example.com,Finalizado,2024-02-01,,100\n" +
		"Caio,caio@example.com,Aguardando Aprovação,2024-02-03,,300\n"

	records, report, err := ParseFunnel(File{Name: "funil.csv", Data: []byte(data)})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if report.Accepted != 2 || report.Rejected != 2 {
		t.Fatalf("expected 2 accepted and 2 rejected, got %+v", report)
	}
	if records[0].Email != "ana@example.com" || records[0].Value != 1250.5 || records[0].Status != domain.FunnelFinalized {
		t.Fatalf("unexpected first funnel record %+v", records[0])
	}
	if !records[1].ModifiedAt.IsZero() || records[1].Status != domain.FunnelPendingApproval {
		t.Fatalf("unexpected second funnel record %+v", records[1])
	}
}

func TestSampleFunnelWorkbookParses(t *testing.T) {
	workbook, err := SampleFunnelXLSX()
	if err != nil {
		t.Fatalf("sample workbook failed: %v", err)
	}
	records, report, err := ParseFunnel(File{Name: "plano.xlsx", Data: workbook})
	if err != nil {
		t.Fatalf("parse workbook failed: %v", err)
	}
	if report.Accepted != 4 {
		t.Fatalf("expected 4 accepted rows, got %+v", report)
	}
	if records[3].Status != domain.FunnelCancelled || records[2].Value != 2100.75 {
		t.Fatalf("unexpected workbook records %+v", records)
	}

	records, _, err = ParseFunnel(File{Name: "upload", Data: workbook})
	if err != nil || len(records) != 4 {
		t.Fatalf("expected workbook detection without extension, got %d records err=%v", len(records), err)
	}
}

func TestParseFunnelRejectsUnknownFormat(t *testing.T) {
	_, _, err := ParseFunnel(File{Name: "funil.pdf", Data: []byte("%PDF")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFunnelDateAcceptsSerial(t *testing.T) {
	got, ok := parseFunnelDate("45306")
	if !ok || !got.Equal(time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected serial 45306 to be 2024-01-15, got %s ok=%v", got, ok)
	}
}
