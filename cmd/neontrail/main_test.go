package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommand(t *testing.T) {
	cmd := configCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--seed", "42", "--mobile"})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "seed: 42")
	assert.Contains(t, text, "aiCollisionEvery: 2")
	assert.Contains(t, text, "indexRebuildEvery: 3")
}

func TestConfigCommandRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  tickRate: 0\n"), 0o644))

	cmd := configCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path})
	assert.Error(t, cmd.Execute())
}

func TestRunCommandJSON(t *testing.T) {
	// No obstacles, so the player survives both rounds
	path := filepath.Join(t.TempDir(), "open.yaml")
	body := "world:\n  initialObstacles: 0\n  restartObstacles: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cmd := runCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "--ticks", "120", "--rounds", "2", "--json", "--autopilot=false"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	rounds := map[string]bool{}
	for _, line := range lines {
		var stats struct {
			Round string `json:"round"`
			Tick  uint64 `json:"tick"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &stats))
		assert.Equal(t, uint64(120), stats.Tick)
		rounds[stats.Round] = true
	}
	assert.Len(t, rounds, 2)
}

func TestRunCommandAutopilot(t *testing.T) {
	cmd := runCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--ticks", "30", "--seed", "3"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Round 1")
	assert.Contains(t, out.String(), "generation: 1")
}
