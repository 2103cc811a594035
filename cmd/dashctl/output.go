package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/noah-isme/academic-dashboard-api/internal/dto"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
	"github.com/noah-isme/academic-dashboard-api/pkg/export"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewTable(w)
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	table.Header(cells...)
	for _, row := range rows {
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := table.Append(values...); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderDataset(w io.Writer, data export.Dataset) error {
	rows := make([][]string, 0, len(data.Rows))
	for _, record := range data.Rows {
		row := make([]string, len(data.Headers))
		for i, h := range data.Headers {
			row[i] = record[h]
		}
		rows = append(rows, row)
	}
	return renderTable(w, data.Headers, rows)
}

func renderCards(w io.Writer, cards []dto.StatCard) error {
	rows := make([][]string, 0, len(cards))
	for _, card := range cards {
		value := strings.TrimSuffix(strconv.FormatFloat(card.Value, 'f', 1, 64), ".0")
		if card.Unit != "" {
			value += " " + card.Unit
		}
		rows = append(rows, []string{card.Label, value, string(card.Trend)})
	}
	return renderTable(w, []string{"Indicador", "Valor", "Tendencia"}, rows)
}

func renderStates(w io.Writer, states []snapshot.CollectionState) error {
	rows := make([][]string, 0, len(states))
	for _, st := range states {
		detail := st.Error
		if detail == "" {
			detail = st.Message
		}
		rows = append(rows, []string{
			st.Collection.Label(), string(st.Status), strconv.Itoa(st.Records),
			strconv.Itoa(st.Dropped), strconv.FormatBool(st.Cached), detail,
		})
	}
	return renderTable(w, []string{"Colección", "Estado", "Registros", "Descartados", "Caché", "Detalle"}, rows)
}

func renderBanners(w io.Writer, banners []string) {
	for _, b := range banners {
		fmt.Fprintln(w, "! "+b)
	}
}
