package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/aliasdoc/internal/config"
	"git.home.luguber.info/inful/aliasdoc/internal/document"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/ledger"
	"git.home.luguber.info/inful/aliasdoc/internal/server/responses"
)

const (
	goodDoc = "# Trip\n\n![harbour](/img/a.png|p1)\n\nSee ![again](/img/a.png|p1).\n"
	badDoc  = "![one](/img/a.png|p1) ![two](/img/b.png|p1) ![three](/img/c.png)\n"
)

type env struct {
	root   string
	config string
}

func newEnv(t *testing.T, extra string) *env {
	t.Helper()
	t.Setenv("ALIASDOC_CONFIG", "")
	root := t.TempDir()
	imgDir := filepath.Join(root, "img")
	require.NoError(t, os.MkdirAll(imgDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(imgDir, "a.png"), []byte("PNG"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "good.md"), []byte(goodDoc), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.md"), []byte(badDoc), 0o600))

	cfg := fmt.Sprintf("paths:\n  image_dir: %s\n  output_dir: %s\nlogging:\n  level: error\n%s",
		imgDir, filepath.Join(root, "output"), extra)
	path := filepath.Join(root, "aliasdoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return &env{root: root, config: path}
}

func (e *env) path(name string) string { return filepath.Join(e.root, name) }

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var cli CLI
	var out, errOut bytes.Buffer
	parser, err := kong.New(&cli,
		kong.Name("aliasdoc"),
		kong.Vars{"version": "test"},
		kong.Exit(func(code int) { t.Fatalf("unexpected exit %d", code) }),
	)
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = ctx.Run(&Global{Out: &out, Err: &errOut}, &cli)
	return out.String(), errOut.String(), err
}

func TestCheckText(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := run(t, "-c", e.config, "check", e.path("good.md"))
	require.NoError(t, err)
	assert.Contains(t, out, "PASS ")
	assert.Contains(t, out, "p1 -> /img/a.png")

	out, _, err = run(t, "-c", e.config, "check", e.path("bad.md"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Equal(t, 2, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	assert.Contains(t, out, "FAIL ")
	assert.Contains(t, out, ": 2 of 3 image(s) aliased")
	assert.Contains(t, out, "no alias: /img/c.png")
	assert.Contains(t, out, "alias p1: refers to links /img/a.png, /img/b.png")
}

func TestCheckJSON(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := run(t, "-c", e.config, "check", "--format", "json", e.path("bad.md"))
	require.Error(t, err)

	var res document.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Pass)
	assert.Equal(t, []string{"/img/a.png", "/img/b.png"}, res.Errors.ImageAlias["p1"])
	assert.True(t, res.Errors.ImageLink["/img/c.png"].Orphaned)
}

func TestCheckMissingFile(t *testing.T) {
	e := newEnv(t, "")

	_, _, err := run(t, "-c", e.config, "check", e.path("absent.md"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestCheckWatch(t *testing.T) {
	e := newEnv(t, "")
	doc := e.path("live.md")
	require.NoError(t, os.WriteFile(doc, []byte(badDoc), 0o600))

	var out syncBuffer
	cmd := &CheckCmd{Path: doc, Format: "text", Watch: true}
	parser := document.NewParser()
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.watch(ctx, &Global{Out: &out, Err: io.Discard}, parser) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "FAIL") }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(doc, []byte(goodDoc), 0o600))
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "PASS") }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRender(t *testing.T) {
	e := newEnv(t, "")

	out, _, err := run(t, "-c", e.config, "render", e.path("good.md"))
	require.NoError(t, err)
	assert.Contains(t, out, `alias="p1"`)
	assert.Contains(t, out, "<h1>Trip</h1>")

	target := e.path("good.html")
	_, _, err = run(t, "-c", e.config, "render", "-o", target, e.path("good.md"))
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `src="/img/a.png"`)

	_, errOut, err := run(t, "-c", e.config, "render", e.path("bad.md"))
	require.Error(t, err)
	assert.Contains(t, errOut, "FAIL ")
}

func TestBundle(t *testing.T) {
	e := newEnv(t, "ledger:\n  path: "+filepath.Join(t.TempDir(), "ledger.db")+"\n")

	out, _, err := run(t, "-c", e.config, "bundle", "--title", "Trip", "--tag", "travel", e.path("good.md"))
	require.NoError(t, err)

	var resp responses.BundleResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.FileExists(t, resp.OutputDir)
	assert.True(t, strings.HasPrefix(filepath.Base(resp.OutputDir), "Trip_"))

	cfg, err := config.Load(e.config)
	require.NoError(t, err)
	store, err := ledger.NewSQLiteStore(cfg.Ledger.Path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	rec, err := store.Get(t.Context(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip", rec.Title)
	assert.Equal(t, []string{"travel"}, rec.Tags)
}

func TestBundleRejectsInvalidDocument(t *testing.T) {
	e := newEnv(t, "")

	_, errOut, err := run(t, "-c", e.config, "bundle", "--title", "Bad", e.path("bad.md"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Contains(t, errOut, "FAIL ")
	assert.NoDirExists(t, e.path("output"))
}

func TestInit(t *testing.T) {
	t.Setenv("ALIASDOC_CONFIG", "")
	path := filepath.Join(t.TempDir(), "new.yaml")

	out, _, err := run(t, "-c", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")
	assert.FileExists(t, path)

	_, _, err = run(t, "-c", path, "init")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	_, _, err = run(t, "-c", path, "init", "--force")
	require.NoError(t, err)
}

func TestMissingConfig(t *testing.T) {
	t.Setenv("ALIASDOC_CONFIG", "")
	_, _, err := run(t, "-c", filepath.Join(t.TempDir(), "absent.yaml"), "check", "x.md")
	require.Error(t, err)
	assert.Equal(t, 7, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestServeApplyOverrides(t *testing.T) {
	cfg := config.Default()
	cmd := &ServeCmd{Port: 4001, ImageDir: "/imgs", OutDir: "/result"}
	require.NoError(t, cmd.apply(cfg))
	assert.Equal(t, 4001, cfg.Server.Port)
	assert.Equal(t, "/imgs", cfg.Paths.ImageDir)
	assert.Equal(t, "/result", cfg.Paths.OutputDir)

	require.Error(t, (&ServeCmd{Port: 70000}).apply(config.Default()))
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	root := t.TempDir()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.StaticDir = ""
	cfg.Paths.ImageDir = filepath.Join(root, "img")
	cfg.Paths.OutputDir = filepath.Join(root, "output")
	cfg.Ledger.Path = filepath.Join(root, "output", "ledger.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- (&ServeCmd{Port: port}).serve(ctx, cfg, logger) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // readiness poll
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && strings.Contains(string(body), `"ledger":"enabled"`)
	}, 5*time.Second, 20*time.Millisecond)
	assert.DirExists(t, cfg.Paths.ImageDir)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestWriteReport(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "pass",
			src:  "![x](/a.png|p1)\n",
			want: []string{"PASS doc.md: 1 aliased image(s)", "  p1 -> /a.png"},
		},
		{
			name: "orphans are listed together",
			src:  "![x](/a.png|p1)\n![a long\nwrapped label](/c.png) ![y](/b.png)\n",
			want: []string{"FAIL doc.md: 1 of 3 image(s) aliased", "  no alias: /b.png, /c.png"},
		},
		{
			name: "conflicts",
			src:  "![x](/a.png|p1) ![y](/a.png\n| p2)\n",
			want: []string{"FAIL doc.md: 2 of 2 image(s) aliased", "  link /a.png: used with aliases p1, p2"},
		},
	}

	parser := document.NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			res := parser.Parse([]byte(tt.src))
			writeReport(&out, "doc.md", res, parser, []byte(tt.src))
			assert.Equal(t, strings.Join(tt.want, "\n")+"\n", out.String())
		})
	}
}
