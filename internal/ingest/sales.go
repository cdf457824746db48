package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"vellum/backend/internal/domain"
)

const (
	colOrder         = "order"
	colCreationDate  = "creation date"
	colClientName    = "client name"
	colClientLast    = "client last name"
	colClientDoc     = "client document"
	colEmail         = "email"
	colPhone         = "phone"
	colCity          = "city"
	colCourier       = "courrier"
	colStatus        = "status"
	colCoupon        = "coupon"
	colPaymentSystem = "payment system name"
	colSKUValue      = "sku value"
	colSKUTotal      = "sku total price"
	colSKUQuantity   = "quantity_sku"
	colSKUName       = "sku name"
	colDiscounts     = "discounts names"
)

// SalesHeader is the column layout of a sales export, in file order.
var SalesHeader = []string{
	"Order", "Creation Date", "Client Name", "Client Last Name", "Client Document",
	"Email", "Phone", "City", "Courrier", "Status", "Coupon", "Payment System Name",
	"SKU Value", "SKU Total Price", "Quantity_SKU", "SKU Name", "Discounts Names",
}

func salesKey(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// ParseSales reads a sales CSV export. Headers match case-insensitively; rows
// without an order id, a readable date, or a product name are rejected.
func ParseSales(file File) ([]domain.SalesLineItem, Report, error) {
	header, rows, malformed, err := readDelimited(file.Data)
	if err != nil {
		return nil, Report{}, fmt.Errorf("read %s: %w", file.Name, err)
	}
	data := newTable(header, rows, malformed, salesKey)
	if missing := data.missing(colOrder, colCreationDate, colSKUName); len(missing) > 0 {
		return nil, Report{}, fmt.Errorf("%s: %w: %s", file.Name, ErrMissingColumns, strings.Join(missing, ", "))
	}
	if len(data.rows) == 0 {
		return nil, Report{}, fmt.Errorf("%s: %w", file.Name, ErrEmptyFile)
	}

	report := Report{Rejected: data.malformed}
	records := make([]domain.SalesLineItem, 0, len(data.rows))
	for _, row := range data.rows {
		record, ok := salesRecord(data, row)
		if !ok {
			report.Rejected++
			continue
		}
		records = append(records, record)
		report.Accepted++
	}
	return records, report, nil
}

func salesRecord(data table, row []string) (domain.SalesLineItem, bool) {
	orderID := data.value(row, colOrder)
	product := data.value(row, colSKUName)
	date, ok := parseDate(data.value(row, colCreationDate))
	if orderID == "" || product == "" || !ok {
		return domain.SalesLineItem{}, false
	}

	rawStatus := data.value(row, colStatus)
	name := strings.TrimSpace(data.value(row, colClientName) + " " + data.value(row, colClientLast))
	return domain.SalesLineItem{
		OrderID: orderID,
		Date:    date,
		Client: domain.Client{
			Document: data.value(row, colClientDoc),
			Name:     name,
			Email:    data.value(row, colEmail),
			Phone:    data.value(row, colPhone),
			City:     data.value(row, colCity),
		},
		ProductName:   product,
		UnitPrice:     parseNumber(data.value(row, colSKUValue)),
		LineTotal:     parseNumber(data.value(row, colSKUTotal)),
		Quantity:      parseQuantity(data.value(row, colSKUQuantity)),
		RawStatus:     rawStatus,
		Status:        NormalizeOrderStatus(rawStatus),
		Coupon:        data.value(row, colCoupon),
		Courier:       data.value(row, colCourier),
		PaymentMethod: data.value(row, colPaymentSystem),
		Discounts:     data.value(row, colDiscounts),
	}, true
}

var sampleSalesRows = [][]string{
	{"MLR-123456", "2024-01-15", "João", "Silva", "123.456.789-00", "joao.silva@email.com", "(11) 99999-9999", "São Paulo", "Correios - SEDEX", "Faturado", "DESCONTO10", "Cartão de Crédito", "29.90", "59.80", "2", "Produto Exemplo A", "Desconto Promocional"},
	{"MLR-123456", "2024-01-15", "João", "Silva", "123.456.789-00", "joao.silva@email.com", "(11) 99999-9999", "São Paulo", "Correios - SEDEX", "Faturado", "DESCONTO10", "Cartão de Crédito", "15.50", "15.50", "1", "Produto Exemplo B", ""},
	{"MDM-789012", "2024-01-16", "Maria", "Santos", "987.654.321-00", "maria.santos@email.com", "(21) 88888-8888", "Rio de Janeiro", "Transportadora XYZ", "Cancelado", "", "PIX", "45.00", "45.00", "1", "Produto Exemplo C", ""},
}

// SampleSalesCSV returns a small sales export in the layout ParseSales reads.
func SampleSalesCSV() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	writer := csv.NewWriter(&buf)
	writer.Comma = ';'
	if err := writer.Write(SalesHeader); err != nil {
		return nil, err
	}
	if err := writer.WriteAll(sampleSalesRows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
