package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/modules/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniverseCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"universe", "--period", "short", "--count", "4", "--seed", "9", "--json"})
	require.NoError(t, rootCmd.Execute())

	var response struct {
		Period  string   `json:"period"`
		Seed    int64    `json:"seed"`
		Symbols []string `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &response))
	assert.Equal(t, "short", response.Period)
	assert.Equal(t, int64(9), response.Seed)
	assert.NotEmpty(t, response.Symbols)
	assert.LessOrEqual(t, len(response.Symbols), 4)
}

func TestUniverseCommand_BadPeriod(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"universe", "--period", "weekly"})
	assert.Error(t, rootCmd.Execute())
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, "run-1", &simulation.Result{
		Start:      time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Horizon:    domain.HorizonShort,
		Symbols:    []string{"AAPL", "KO"},
		Holdings:   []domain.Holding{{Symbol: "KO", Amount: 3}},
		Capital:    1000,
		FinalValue: 1200,
		Funds:      1020,
		Frames:     300,
		Processed:  270,
		Skipped:    4,
	})

	text := out.String()
	assert.Contains(t, text, "run-1")
	assert.Contains(t, text, "2022-01-01 .. 2024-01-01")
	assert.Contains(t, text, "AAPL, KO")
	assert.Contains(t, text, "+20.00%")
	assert.Contains(t, text, "KO      3")
	assert.NotContains(t, text, "Contributed")
}
