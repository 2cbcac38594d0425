package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillermoamaral/VSCside/internal/imagesim"
	"github.com/guillermoamaral/VSCside/internal/journal"
)

// TestRootCommand tests that the root command is properly configured
func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "webside" {
		t.Errorf("expected Use 'webside', got %q", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Short description should not be empty")
	}
	for _, name := range []string{"configure", "reset", "negotiate", "tree", "reveal", "search", "open", "save", "changes", "eval"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("missing command %q", name)
		}
	}
	if !revealCmd.HasSubCommands() || !openCmd.HasSubCommands() || !saveCmd.HasSubCommands() {
		t.Error("reveal, open and save should have subcommands")
	}
}

type cli struct {
	t     *testing.T
	dir   string
	sim   *imagesim.Server
	url   string
	creds string
}

func newCLI(t *testing.T, opts ...imagesim.Option) *cli {
	t.Helper()
	sim := imagesim.NewServer(imagesim.Sample(), opts...)
	ts := httptest.NewServer(sim.Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("WEBSIDE_JOURNAL", filepath.Join(dir, "journal.db"))
	t.Setenv("WEBSIDE_URL", "")
	t.Setenv("WEBSIDE_DEVELOPER", "")
	return &cli{t: t, dir: dir, sim: sim, url: ts.URL, creds: filepath.Join(dir, "credentials.yaml")}
}

func (c *cli) run(args ...string) (string, string, error) {
	c.t.Helper()
	searchIgnoreCase, searchCondition, searchGoto, searchGotoType, searchPick = false, "beginning", "", "selector", ""
	openLinks, saveDiff = false, false
	changesLocal, changesLimit, changesExport, changesClear = false, 20, "", false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	full := append([]string{"--credentials", c.creds, "--config", filepath.Join(c.dir, "config.yaml")}, args...)
	rootCmd.SetArgs(full)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (c *cli) configure() {
	c.t.Helper()
	out, _, err := c.run("configure", c.url, "dev")
	require.NoError(c.t, err)
	require.Contains(c.t, out, "Connected to")
}

func TestConfigureAndReset(t *testing.T) {
	c := newCLI(t)
	c.configure()

	out, _, err := c.run("configure", c.url, "dev")
	require.NoError(t, err)
	assert.Equal(t, "Settings unchanged\n", out)

	out, _, err = c.run("reset")
	require.NoError(t, err)
	assert.Equal(t, "Settings cleared\n", out)

	_, _, err = c.run("tree")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing credentials")
}

func TestTreeCommand(t *testing.T) {
	c := newCLI(t)
	c.configure()

	out, _, err := c.run("tree")
	require.NoError(t, err)
	assert.Contains(t, out, "Search")
	assert.Contains(t, out, "+ PackageGroup Packages")

	out, _, err = c.run("tree", "Packages", "Collections", "Bag")
	require.NoError(t, err)
	assert.Contains(t, out, "Method   add:")

	_, _, err = c.run("tree", "Packages", "Nope")
	assert.Error(t, err)
}

func TestRevealCommand(t *testing.T) {
	c := newCLI(t)
	c.configure()

	out, _, err := c.run("reveal", "method", "Point", "x")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "reveal PackageGroup Packages [expand]", lines[0])
	assert.Equal(t, "reveal Method x [expand,select,focus]", lines[3])

	_, stderr, err := c.run("reveal", "class", "Orphan")
	require.Error(t, err)
	assert.Contains(t, stderr, "Cannot find package of class 'Orphan'")
}

func TestSearchCommand(t *testing.T) {
	c := newCLI(t)
	c.configure()

	out, _, err := c.run("search", "Bag")
	require.NoError(t, err)
	assert.Contains(t, out, "class")
	assert.Contains(t, out, "Bag")

	out, _, err = c.run("search", "add", "--goto", "add:", "--pick", "Set")
	require.NoError(t, err)
	assert.Contains(t, out, "Implementors of add:")
	assert.Contains(t, out, "  Bag>>add:")
	assert.Contains(t, out, "reveal Method add: [expand,select,focus]")
	assert.Contains(t, out, "Revealed Method add:")

	_, _, err = c.run("search", "add", "--pick", "Set")
	assert.Error(t, err)
}

func TestOpenAndSave(t *testing.T) {
	c := newCLI(t)
	c.configure()

	out, _, err := c.run("open", "method", "Point", "+", "--links")
	require.NoError(t, err)
	assert.Contains(t, out, "# webside:/Point/%2B.st")
	assert.Contains(t, out, "link")
	assert.Contains(t, out, "-> webside:/Point.st")

	src := filepath.Join(c.dir, "x.st")
	require.NoError(t, os.WriteFile(src, []byte("x\n\t^x ifNil: [0]"), 0644))

	out, _, err = c.run("save", "method", "Point", "x", src, "--diff")
	require.NoError(t, err)
	assert.Contains(t, out, "+\t^x ifNil: [0]")
	m, _ := c.sim.Image().Method("Point", "x")
	assert.Equal(t, "x\n\t^x", m.Source, "diff does not save")

	out, _, err = c.run("save", "method", "Point", "x", src)
	require.NoError(t, err)
	assert.Equal(t, "Saved webside:/Point/x.st\n", out)
	m, _ = c.sim.Image().Method("Point", "x")
	assert.Equal(t, "x\n\t^x ifNil: [0]", m.Source)

	out, _, err = c.run("changes")
	require.NoError(t, err)
	assert.Contains(t, out, "AddMethod")
	assert.Contains(t, out, "Point>>x")

	out, _, err = c.run("changes", "--local")
	require.NoError(t, err)
	assert.Contains(t, out, "Point>>x")

	export := filepath.Join(c.dir, "journal.jsonl.zst")
	out, _, err = c.run("changes", "--export", export)
	require.NoError(t, err)
	assert.Equal(t, "Exported 1 changes to "+export+"\n", out)

	f, err := os.Open(export)
	require.NoError(t, err)
	defer f.Close()
	entries, err := journal.ReadExport(f)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x", entries[0].Change.Selector)
}

func TestChangesUnsupported(t *testing.T) {
	c := newCLI(t, imagesim.WithChanges(false))
	c.configure()

	out, _, err := c.run("negotiate")
	require.NoError(t, err)
	assert.Contains(t, out, "changes not supported")

	_, _, err = c.run("changes")
	require.Error(t, err)
	assert.Equal(t, "Changes not supported", err.Error())
}

func TestEvalCommand(t *testing.T) {
	c := newCLI(t)
	c.configure()

	out, _, err := c.run("eval", "3 + 4")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	_, _, err = c.run("eval", "self halt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation failed")
}
