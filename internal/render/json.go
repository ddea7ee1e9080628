package render

import (
	"encoding/json"
	"io"
	"time"

	"ccmeter/internal/aggregate"
)

// JSON envelope shapes are part of the CLI surface: scripts parse them, so
// field names stay stable.

type jsonModel struct {
	Model               string  `json:"model"`
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	TotalTokens         int64   `json:"total_tokens"`
	CostUSD             float64 `json:"cost_usd"`
	Unpriced            bool    `json:"unpriced,omitempty"`
}

type jsonTotals struct {
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	TotalTokens         int64   `json:"total_tokens"`
	CostUSD             float64 `json:"cost_usd"`
	Events              int64   `json:"events"`
}

type jsonBurn struct {
	CostPerHour      float64 `json:"cost_per_hour"`
	TokensPerHour    float64 `json:"tokens_per_hour"`
	ProjectedCost    float64 `json:"projected_cost"`
	RemainingSeconds int64   `json:"remaining_seconds"`
}

type jsonRow struct {
	Key                 string      `json:"key"`
	Project             string      `json:"project,omitempty"`
	InputTokens         int64       `json:"input_tokens"`
	OutputTokens        int64       `json:"output_tokens"`
	CacheCreationTokens int64       `json:"cache_creation_tokens"`
	CacheReadTokens     int64       `json:"cache_read_tokens"`
	TotalTokens         int64       `json:"total_tokens"`
	CostUSD             float64     `json:"cost_usd"`
	Events              int64       `json:"events"`
	First               string      `json:"first,omitempty"`
	Last                string      `json:"last,omitempty"`
	Active              bool        `json:"active,omitempty"`
	Burn                *jsonBurn   `json:"burn,omitempty"`
	Models              []jsonModel `json:"models,omitempty"`
}

type jsonReport struct {
	Kind           string      `json:"kind"`
	Timezone       string      `json:"timezone"`
	WeekStart      string      `json:"week_start,omitempty"`
	Since          string      `json:"since,omitempty"`
	Until          string      `json:"until,omitempty"`
	Rows           []jsonRow   `json:"rows"`
	Totals         jsonTotals  `json:"totals"`
	Models         []jsonModel `json:"model_breakdowns"`
	MaxBlockTokens int64       `json:"max_block_tokens,omitempty"`
}

func toJSONModels(models []aggregate.ModelBreakdown) []jsonModel {
	out := make([]jsonModel, 0, len(models))
	for _, m := range models {
		out = append(out, jsonModel{
			Model:               m.Model,
			InputTokens:         m.Tokens.Input,
			OutputTokens:        m.Tokens.Output,
			CacheCreationTokens: m.Tokens.CacheCreation,
			CacheReadTokens:     m.Tokens.CacheRead,
			TotalTokens:         m.Tokens.Total(),
			CostUSD:             m.Cost,
			Unpriced:            m.Unpriced,
		})
	}
	return out
}

func toJSONRow(row aggregate.Row) jsonRow {
	out := jsonRow{
		Key:                 row.Key,
		Project:             row.Project,
		InputTokens:         row.Tokens.Input,
		OutputTokens:        row.Tokens.Output,
		CacheCreationTokens: row.Tokens.CacheCreation,
		CacheReadTokens:     row.Tokens.CacheRead,
		TotalTokens:         row.Tokens.Total(),
		CostUSD:             row.Cost,
		Events:              row.Events,
		Active:              row.Active,
		Models:              toJSONModels(row.Models),
	}
	if len(row.Models) == 0 {
		out.Models = nil
	}
	if !row.First.IsZero() {
		out.First = row.First.UTC().Format(time.RFC3339)
	}
	if !row.Last.IsZero() {
		out.Last = row.Last.UTC().Format(time.RFC3339)
	}
	if row.Burn != nil {
		out.Burn = &jsonBurn{
			CostPerHour:      row.Burn.CostPerHour,
			TokensPerHour:    row.Burn.TokensPerHour,
			ProjectedCost:    row.Burn.ProjectedCost,
			RemainingSeconds: int64(row.Burn.Remaining.Seconds()),
		}
	}
	return out
}

// WriteJSON emits the report as an indented JSON envelope.
func WriteJSON(w io.Writer, rep aggregate.Report) error {
	out := jsonReport{
		Kind:      string(rep.Kind),
		Timezone:  rep.Timezone,
		WeekStart: rep.WeekStart,
		Since:     rep.Since,
		Until:     rep.Until,
		Rows:      make([]jsonRow, 0, len(rep.Rows)),
		Totals: jsonTotals{
			InputTokens:         rep.Totals.Tokens.Input,
			OutputTokens:        rep.Totals.Tokens.Output,
			CacheCreationTokens: rep.Totals.Tokens.CacheCreation,
			CacheReadTokens:     rep.Totals.Tokens.CacheRead,
			TotalTokens:         rep.Totals.Tokens.Total(),
			CostUSD:             rep.Totals.Cost,
			Events:              rep.Totals.Events,
		},
		Models:         toJSONModels(rep.Models),
		MaxBlockTokens: rep.MaxBlockTokens,
	}
	for _, row := range rep.Rows {
		out.Rows = append(out.Rows, toJSONRow(row))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
