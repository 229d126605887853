package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/blendplan/pkg/application/dto"
	"github.com/vsinha/blendplan/pkg/optimization/model"
)

// writeScenario writes the two-material reference inputs and a config
// file with the given extra YAML appended to the parameters section
func writeScenario(t *testing.T, parameters string) Config {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"materials.csv": "name,category,hardness\nA,PRIMARY,8.8\nB,SECONDARY,6.1\n",
		"prices.csv":    "period,A,B\n2024/01,100,120\n2024/02,110,130\n",
		"blendplan.yaml": "horizon: {first: 2024/01, last: 2024/02}\n" +
			"data: {materials: materials.csv, prices: prices.csv}\n" +
			"parameters:\n  sellPrice: 150\n" + parameters,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return Config{ConfigFile: filepath.Join(dir, "blendplan.yaml")}
}

func TestPlanCommand(t *testing.T) {
	cfg := writeScenario(t, "")
	dir := filepath.Dir(cfg.ConfigFile)
	cfg.ExportMPS = filepath.Join(dir, "model.mps")
	cfg.MetricsFile = filepath.Join(dir, "blendplan.prom")

	var stdout bytes.Buffer
	require.NoError(t, NewPlanCommand(cfg, logr.Discard(), &stdout).Execute(context.Background()))

	assert.Contains(t, stdout.String(), "Status:     optimal")
	assert.Contains(t, stdout.String(), "Objective:  -10000.00")

	mpsData, err := os.ReadFile(cfg.ExportMPS)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(mpsData), "ENDATA\n"))

	metricsData, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsData), `blendplan_solves_total{status="optimal"} 1`)
}

func TestPlanCommand_OutputDir(t *testing.T) {
	cfg := writeScenario(t, "")
	cfg.Format = "csv"
	cfg.OutputDir = filepath.Join(t.TempDir(), "results")

	var stdout bytes.Buffer
	require.NoError(t, NewPlanCommand(cfg, logr.Discard(), &stdout).Execute(context.Background()))
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "plan.csv"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 5)
}

func TestPlanCommand_NoPlan(t *testing.T) {
	cfg := writeScenario(t, "  maxStorage: 400\n")

	var stdout bytes.Buffer
	err := NewPlanCommand(cfg, logr.Discard(), &stdout).Execute(context.Background())
	var statusErr *model.EngineStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, model.StatusInfeasible, statusErr.Status)
	assert.Contains(t, stdout.String(), "Status:     infeasible")
}

func TestPlanCommand_FlagOverrides(t *testing.T) {
	cfg := writeScenario(t, "")
	cfg.MaterialsFile = filepath.Join(t.TempDir(), "missing.csv")

	err := NewPlanCommand(cfg, logr.Discard(), &bytes.Buffer{}).Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading materials")
}

func TestPlanCommand_MissingData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blendplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("horizon: {first: 2024/01, last: 2024/02}\n"), 0o644))

	err := NewPlanCommand(Config{ConfigFile: path}, logr.Discard(), &bytes.Buffer{}).Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "materials and prices files are required")
}

func TestExportCommand(t *testing.T) {
	cfg := writeScenario(t, "")

	var stdout bytes.Buffer
	require.NoError(t, NewExportCommand(cfg, logr.Discard(), &stdout).Execute(context.Background()))
	assert.Contains(t, stdout.String(), "OBJSENSE")
	assert.Contains(t, stdout.String(), "is_refined_2024/02_B")

	cfg.ExportMPS = filepath.Join(t.TempDir(), "model.mps")
	require.NoError(t, NewExportCommand(cfg, logr.Discard(), &bytes.Buffer{}).Execute(context.Background()))
	data, err := os.ReadFile(cfg.ExportMPS)
	require.NoError(t, err)
	assert.Equal(t, stdout.String(), string(data))
}

func TestExportCommand_ExampleConfig(t *testing.T) {
	cfg := Config{ConfigFile: filepath.Join("..", "..", "..", "..", "configs", "example.yaml")}

	var stdout bytes.Buffer
	require.NoError(t, NewExportCommand(cfg, logr.Discard(), &stdout).Execute(context.Background()))
	assert.Contains(t, stdout.String(), "refine_2024/06_OIL_3")
}

func TestPlanCommand_ExampleConfig(t *testing.T) {
	// the bundled dataset and rules, over its first two months
	t.Setenv("BLENDPLAN_HORIZON_LAST", "2024/02")
	cfg := Config{
		ConfigFile: filepath.Join("..", "..", "..", "..", "configs", "example.yaml"),
		Format:     "json",
	}

	var stdout bytes.Buffer
	require.NoError(t, NewPlanCommand(cfg, logr.Discard(), &stdout).Execute(context.Background()))

	var result dto.PlanResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	assert.Equal(t, "optimal", result.Status)
	require.NotNil(t, result.Objective)
	assert.Empty(t, result.Violations)
	assert.Len(t, result.Rows, 10)

	refined := 0
	for _, row := range result.Rows {
		if row.Refined {
			refined++
		}
	}
	assert.Positive(t, refined)
}

func TestConfigCommand(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, NewConfigCommand(Config{}, &stdout).Execute())
	assert.Contains(t, stdout.String(), "sellPrice: 150")
	assert.Contains(t, stdout.String(), "timeout: 1m0s")

	cfg := writeScenario(t, "  storageCost: 7\n")
	stdout.Reset()
	require.NoError(t, NewConfigCommand(cfg, &stdout).Execute())
	assert.Contains(t, stdout.String(), "storageCost: 7")
	assert.Contains(t, stdout.String(), "first: 2024/01")
}

func TestConfigCommand_EnvOverrides(t *testing.T) {
	t.Setenv("BLENDPLAN_PARAMETERS_SELLPRICE", "175")
	t.Setenv("BLENDPLAN_SOLVER_TIMEOUT", "30s")

	var stdout bytes.Buffer
	require.NoError(t, NewConfigCommand(Config{}, &stdout).Execute())
	assert.Contains(t, stdout.String(), "sellPrice: 175")
	assert.Contains(t, stdout.String(), "timeout: 30s")

	cfg := writeScenario(t, "")
	stdout.Reset()
	require.NoError(t, NewConfigCommand(cfg, &stdout).Execute())
	assert.Contains(t, stdout.String(), "sellPrice: 175")
}
