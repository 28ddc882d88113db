package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoSource = `project = "demo"

# Divider feeding the regulator enable pin.
sheet "main" {
  component "R1" {
    symbol    = "Device:R"
    value     = "10k"
    footprint = "Resistor_SMD:R_0603_1608Metric"
  }
  component "C1" {
    symbol    = "Device:C"
    value     = "100n"
    footprint = "Capacitor_SMD:C_0603_1608Metric"
  }
  net "EN" {
    connect = ["R1.2", "C1.1"]
  }

  sheet "power" {
    component "U1" {
      symbol = "Regulator_Linear:AMS1117-3.3"
    }
    component "C2" {
      symbol = "Device:C"
      value  = "10u"
    }
  }
}
`

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestOpenCreatesSheetsInMemory(t *testing.T) {
	dir := writeProject(t, map[string]string{"demo.ecl": demoSource})

	p, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Design.Project)
	assert.Equal(t, "main.kicad_sch", p.Root.File)
	require.Len(t, p.Root.Children, 1)
	assert.Equal(t, "power.kicad_sch", p.Root.Children[0].File)
	assert.True(t, strings.HasPrefix(p.Root.Children[0].Path, p.Root.Path+"/"))

	// Nothing on disk until Commit
	_, err = os.Stat(filepath.Join(dir, "main.kicad_sch"))
	assert.True(t, os.IsNotExist(err))
}

func TestSyncAndCommit(t *testing.T) {
	dir := writeProject(t, map[string]string{"demo.ecl": demoSource})

	p, err := Open(dir)
	require.NoError(t, err)
	res, err := p.Sync()
	require.NoError(t, err)
	require.NoError(t, p.Commit(res))

	for _, name := range []string{"main.kicad_sch", "power.kicad_sch"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "sheet %s not written", name)
	}

	// Identity tokens flowed back into the source, comments intact
	src, err := os.ReadFile(filepath.Join(dir, "demo.ecl"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "identity =")
	assert.Contains(t, string(src), "# Divider feeding the regulator enable pin.")

	// A second run over the committed state is a no-op
	p2, err := Open(dir)
	require.NoError(t, err)
	res2, err := p2.Sync()
	require.NoError(t, err)
	assert.Empty(t, res2.Dirty)
	assert.Empty(t, res2.SourceEdits)
}

func TestOpenFindsBoardFiles(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"demo.ecl":       demoSource,
		"demo.kicad_pcb": "(kicad_pcb (version 20240108))\n",
	})
	p, err := Open(dir)
	require.NoError(t, err)
	require.Len(t, p.BoardFiles, 1)
	assert.Equal(t, "demo.kicad_pcb", filepath.Base(p.BoardFiles[0]))
}

func TestOpenWithoutSource(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}

func TestOpenRejectsAmbiguousSource(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"a.ecl": `sheet "a" {}`,
		"b.ecl": `sheet "b" {}`,
	})
	_, err := Open(dir)
	assert.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "kicad-cli", cfg.KicadCLI)
	assert.Equal(t, Duration(30*time.Second), cfg.ToolTimeout)
	assert.Contains(t, cfg.PowerNets, "GND")
}

func TestLoadConfig(t *testing.T) {
	dir := writeProject(t, map[string]string{ConfigName: `
source: demo.ecl
project: override
power_nets: [GND, VBUS]
tool_timeout: 90s
placement:
  origin_x: 50
  origin_y: 50
  spacing: 10
  columns: 4
`})
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "demo.ecl", cfg.Source)
	assert.Equal(t, "override", cfg.Project)
	assert.Equal(t, []string{"GND", "VBUS"}, cfg.PowerNets)
	assert.Equal(t, Duration(90*time.Second), cfg.ToolTimeout)
	assert.Equal(t, 4, cfg.Placement.Columns)
}

func TestLoadConfigZeroOrigin(t *testing.T) {
	dir := writeProject(t, map[string]string{ConfigName: `
placement:
  origin_x: 0
  origin_y: 0
`})
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg.Placement.OriginX, "an explicit 0 must not read as absent")
	assert.Equal(t, 0.0, *cfg.Placement.OriginX)
	require.NotNil(t, cfg.Placement.OriginY)
	assert.Equal(t, 0.0, *cfg.Placement.OriginY)
}

func TestLoadConfigBadDuration(t *testing.T) {
	dir := writeProject(t, map[string]string{ConfigName: "tool_timeout: soon\n"})
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("old"), 0o644))

	err := WriteAll([]FileWrite{
		{Path: a, Data: []byte("new")},
		{Path: b, Data: []byte("fresh")},
	})
	require.NoError(t, err)

	got, _ := os.ReadFile(a)
	assert.Equal(t, "new", string(got))
	got, _ = os.ReadFile(b)
	assert.Equal(t, "fresh", string(got))

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWriteAllSkipsIdentical(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("same"), 0o644))
	before, err := os.Stat(path)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, WriteAll([]FileWrite{{Path: path, Data: []byte("same")}}))

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime(), "identical content must not be rewritten")
}

func TestWriteAllCommitFailureRestoresOriginals(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("old a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("old b"), 0o644))

	// A directory squatting on b's backup path fails the commit after a
	// was already swapped in
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".b.txt.bak"), 0o755))

	err := WriteAll([]FileWrite{
		{Path: a, Data: []byte("new a")},
		{Path: b, Data: []byte("new b")},
	})
	require.Error(t, err)

	got, _ := os.ReadFile(a)
	assert.Equal(t, "old a", string(got), "a failed commit must restore every target")
	got, _ = os.ReadFile(b)
	assert.Equal(t, "old b", string(got))
}

func TestWriteAllStageFailureLeavesTargetsUntouched(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("old"), 0o644))

	// Second target's directory does not exist, so staging fails after
	// the first file was already staged
	err := WriteAll([]FileWrite{
		{Path: a, Data: []byte("new")},
		{Path: filepath.Join(dir, "missing", "b.txt"), Data: []byte("x")},
	})
	require.Error(t, err)

	got, _ := os.ReadFile(a)
	assert.Equal(t, "old", string(got), "failed set must not touch any target")

	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1, "staging temps must be cleaned up")
}
