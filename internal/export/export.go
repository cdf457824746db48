// Package export serializes snapshot views as spreadsheet-friendly CSV:
// UTF-8 BOM, quoted header row, comma separator, pt-BR number formatting.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotSlice = errors.New("export rows must be a slice of structs")

const bom = "\ufeff"

var timeType = reflect.TypeOf(time.Time{})

type column struct {
	name  string
	index []int
}

// WriteCSV writes rows, a slice of structs, one line per element. Column
// names come from json tags; embedded structs are flattened.
func WriteCSV(w io.Writer, rows any) error {
	value := reflect.ValueOf(rows)
	if value.Kind() != reflect.Slice {
		return ErrNotSlice
	}
	elem := value.Type().Elem()
	if elem.Kind() != reflect.Struct {
		return ErrNotSlice
	}
	columns := columnsOf(elem, nil)

	var b strings.Builder
	b.WriteString(bom)
	for i, col := range columns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"` + strings.ReplaceAll(col.name, `"`, `""`) + `"`)
	}
	for i := 0; i < value.Len(); i++ {
		row := value.Index(i)
		b.WriteByte('\n')
		for j, col := range columns {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(format(row.FieldByIndex(col.index))))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func columnsOf(t reflect.Type, prefix []int) []column {
	var out []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int{}, prefix...), i)
		tag := field.Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if field.Anonymous && name == "" && field.Type.Kind() == reflect.Struct {
			out = append(out, columnsOf(field.Type, index)...)
			continue
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		out = append(out, column{name: name, index: index})
	}
	return out
}

func format(v reflect.Value) string {
	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Float32, reflect.Float64:
		return FormatDecimal(v.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return formatInt(v.Int())
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.String {
			parts := make([]string, v.Len())
			for i := range parts {
				parts[i] = v.Index(i).String()
			}
			return strings.Join(parts, "; ")
		}
	}
	return fmt.Sprint(v.Interface())
}

// FormatDecimal renders value with two decimals, ',' as decimal separator
// and '.' grouping thousands.
func FormatDecimal(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ""
	}
	fixed := decimal.NewFromFloat(value).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + group(whole) + "," + frac
}

func formatInt(value int64) string {
	digits := strconv.FormatInt(value, 10)
	if value < 0 {
		return "-" + group(digits[1:])
	}
	return group(digits)
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func quote(field string) string {
	if !strings.ContainsAny(field, ",\"\n\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
