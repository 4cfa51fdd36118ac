package exporter

import (
	"strconv"

	"casepulse/pkg/contracts/domain"
)

// amountCell writes a dollar amount with two decimals and no grouping so
// spreadsheets parse it as a number.
func amountCell(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// monthCell labels a trend bucket; unparsed months share the "Unknown" bucket.
func monthCell(m *int) string {
	if m == nil {
		return "Unknown"
	}
	return strconv.Itoa(*m)
}

// optionalCell leaves a cell blank when the statistic is undefined.
func optionalCell(o domain.Optional) interface{} {
	if !o.Valid {
		return nil
	}
	return o.Value
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
