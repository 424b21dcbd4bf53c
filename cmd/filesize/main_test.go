package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/timfallmk/filesize/internal/config"
	"github.com/timfallmk/filesize/internal/logging"
	"github.com/timfallmk/filesize/internal/testutils"
)

// isolateConfig keeps the host's config files out of the test.
func isolateConfig(t *testing.T) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))
	t.Setenv("HOME", home)
	t.Cleanup(func() { logging.SetGlobalLogger(nil) })
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)

	return code, stdout.String(), stderr.String()
}

func TestShowUsage(t *testing.T) {
	var buf bytes.Buffer
	showUsage(&buf)

	out := buf.String()
	for _, want := range []string{"USAGE:", "watch", "config", "-keep-going"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage missing %q", want)
		}
	}

	if strings.Contains(out, "%!") {
		t.Errorf("usage has a formatting error: %s", out)
	}
}

func TestShowConfiguration(t *testing.T) {
	var buf bytes.Buffer
	showConfiguration(&buf, config.DefaultConfig())

	if !strings.Contains(buf.String(), "Format: text") {
		t.Errorf("configuration output missing format: %s", buf.String())
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		positional  []string
		wantCommand string
		wantPaths   []string
	}{
		{name: "no args", args: nil, positional: nil, wantCommand: "", wantPaths: nil},
		{name: "plain paths", args: []string{"a", "b"}, positional: []string{"a", "b"}, wantPaths: []string{"a", "b"}},
		{name: "watch", args: []string{"watch", "a"}, positional: []string{"watch", "a"}, wantCommand: "watch", wantPaths: []string{"a"}},
		{name: "config after flags", args: []string{"-units", "iec", "config"}, positional: []string{"config"}, wantCommand: "config", wantPaths: []string{}},
		{name: "dash dash disables commands", args: []string{"--", "watch"}, positional: []string{"watch"}, wantPaths: []string{"watch"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, paths := splitCommand(tt.args, tt.positional)
			if command != tt.wantCommand {
				t.Errorf("command = %q, want %q", command, tt.wantCommand)
			}
			if len(paths) != len(tt.wantPaths) || (len(paths) > 0 && !reflect.DeepEqual(paths, tt.wantPaths)) {
				t.Errorf("paths = %v, want %v", paths, tt.wantPaths)
			}
		})
	}
}

func TestStripTerminator(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		positional []string
		want       []string
	}{
		{name: "none", args: []string{"a", "b"}, positional: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "between paths", args: []string{"a", "--", "b"}, positional: []string{"a", "--", "b"}, want: []string{"a", "b"}},
		{name: "after flags and a path", args: []string{"-units", "iec", "a", "--"}, positional: []string{"a", "--"}, want: []string{"a"}},
		{name: "already consumed", args: []string{"--", "a", "--"}, positional: []string{"a", "--"}, want: []string{"a", "--"}},
		{name: "only the first", args: []string{"a", "--", "--"}, positional: []string{"a", "--", "--"}, want: []string{"a", "--"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripTerminator(tt.args, tt.positional)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("stripTerminator() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyCommandLineOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Volume = true

	opts := &options{
		format:   "json",
		units:    "si",
		logLevel: "debug",
		debounce: time.Second,
		volume:   false,
	}
	set := map[string]bool{"volume": true, "debounce": true}

	if err := applyCommandLineOverrides(cfg, opts, set); err != nil {
		t.Fatalf("applyCommandLineOverrides() error = %v", err)
	}

	if cfg.Output.Format != "json" || cfg.Output.Units != "si" {
		t.Errorf("output overrides not applied: %+v", cfg.Output)
	}
	if cfg.Output.Volume {
		t.Error("explicit -volume=false should override the config file")
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("debounce = %v, want 1s", cfg.Watch.Debounce)
	}
	if cfg.Logging.Level != logging.LevelDebug {
		t.Errorf("log level = %s, want debug", cfg.Logging.Level)
	}

	if err := applyCommandLineOverrides(cfg, &options{logLevel: "chatty"}, nil); err == nil {
		t.Error("expected an error for an unknown log level")
	}
}

func TestLoadConfiguration(t *testing.T) {
	isolateConfig(t)

	cfg, err := loadConfiguration("")
	if err != nil {
		t.Fatalf("loadConfiguration() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("loadConfiguration() returned nil")
	}

	path := testutils.CreateTempConfig(t, "output:\n  units: iec\n")
	cfg, err = loadConfiguration(path)
	if err != nil {
		t.Fatalf("loadConfiguration(%s) error = %v", path, err)
	}
	if cfg.Output.Units != "iec" {
		t.Errorf("units = %s, want iec", cfg.Output.Units)
	}
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "filesize version dev") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestRun_Help(t *testing.T) {
	code, out, _ := runCLI(t, "-help")
	if code != exitOK || !strings.Contains(out, "USAGE:") {
		t.Errorf("-help: code %d, output %q", code, out)
	}
}

func TestRun_NoPaths(t *testing.T) {
	isolateConfig(t)

	code, _, errOut := runCLI(t)
	if code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(errOut, "USAGE:") {
		t.Error("usage not printed to stderr")
	}
}

func TestRun_Measure(t *testing.T) {
	isolateConfig(t)

	path := testutils.CreateFile(t, "data.bin", 3000)

	code, out, errOut := runCLI(t, path)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr %s", code, errOut)
	}

	want := path + ", 3000 bytes logical, "
	if !strings.HasPrefix(out, want) || !strings.HasSuffix(out, " bytes on-disk\n") {
		t.Errorf("output = %q, want prefix %q", out, want)
	}
}

func TestRun_MeasureJSON(t *testing.T) {
	isolateConfig(t)

	a := testutils.CreateFile(t, "a", 10)
	b := testutils.CreateFile(t, "b", 20)

	code, out, errOut := runCLI(t, "-format", "json", a, b)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr %s", code, errOut)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %s", len(lines), out)
	}

	var entry struct {
		Path    string `json:"path"`
		Logical uint64 `json:"logical"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", lines[1], err)
	}
	if entry.Path != b || entry.Logical != 20 {
		t.Errorf("second entry = %+v", entry)
	}
}

func TestRun_MissingFile(t *testing.T) {
	isolateConfig(t)

	missing := filepath.Join(t.TempDir(), "missing")
	present := testutils.CreateFile(t, "present", 1)

	code, out, errOut := runCLI(t, missing, present)
	if code != exitFailure {
		t.Errorf("exit code = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(errOut, "missing") {
		t.Errorf("error output does not name the path: %s", errOut)
	}
	if out != "" {
		t.Errorf("stopped at first failure, but got output %q", out)
	}

	code, out, _ = runCLI(t, "-keep-going", missing, present)
	if code != exitFailure {
		t.Errorf("keep-going exit code = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(out, present) {
		t.Errorf("keep-going did not report the remaining path: %q", out)
	}
}

func TestRun_ConfigCommand(t *testing.T) {
	isolateConfig(t)

	code, out, _ := runCLI(t, "-units", "iec", "config")
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "Units: iec") {
		t.Errorf("config output does not reflect override: %s", out)
	}
}

func TestRun_DashDashMeasuresCommandName(t *testing.T) {
	isolateConfig(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	code, out, errOut := runCLI(t, "--", "config")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr %s", code, errOut)
	}
	if !strings.HasPrefix(out, "config, 1 bytes logical") {
		t.Errorf("output = %q", out)
	}
}

func TestRun_DashDashBetweenPaths(t *testing.T) {
	isolateConfig(t)

	a := testutils.CreateFile(t, "a", 10)
	b := testutils.CreateFile(t, "b", 20)

	code, out, errOut := runCLI(t, a, "--", b)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr %s", code, errOut)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], a+", ") || !strings.HasPrefix(lines[1], b+", ") {
		t.Errorf("output = %q", out)
	}
}

// stopWatchAfter makes watch mode stop by itself after d.
func stopWatchAfter(t *testing.T, d time.Duration) {
	t.Helper()

	orig := notifyContext
	notifyContext = func(parent context.Context, _ ...os.Signal) (context.Context, context.CancelFunc) {
		return context.WithTimeout(parent, d)
	}
	t.Cleanup(func() { notifyContext = orig })
}

func TestRun_Watch(t *testing.T) {
	isolateConfig(t)
	stopWatchAfter(t, 500*time.Millisecond)

	path := testutils.CreateFile(t, "watched", 2048)

	code, out, errOut := runCLI(t, "watch", "-format", "json", "-debounce", "10ms", path)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr %s", code, errOut)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatalf("no initial report: %q", out)
	}

	var entry struct {
		Path    string `json:"path"`
		Logical uint64 `json:"logical"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", lines[0], err)
	}
	if entry.Path != path || entry.Logical != 2048 {
		t.Errorf("initial report = %+v", entry)
	}
}

func TestRun_WatchErrors(t *testing.T) {
	isolateConfig(t)
	stopWatchAfter(t, 5*time.Second)

	if code, _, errOut := runCLI(t, "watch"); code != exitUsage || !strings.Contains(errOut, "USAGE:") {
		t.Errorf("watch without paths: code %d, stderr %q", code, errOut)
	}

	missing := filepath.Join(t.TempDir(), "no", "such", "file")
	if code, _, errOut := runCLI(t, "watch", missing); code != exitFailure {
		t.Errorf("watch in a missing directory: code %d, stderr %q", code, errOut)
	}
}

func TestRun_InvalidOptions(t *testing.T) {
	isolateConfig(t)

	tests := [][]string{
		{"-format", "xml", "x"},
		{"-units", "sectors", "x"},
		{"-log-level", "chatty", "x"},
		{"-no-such-flag"},
		{"-config", testutils.CreateTempConfig(t, "output: [broken"), "x"},
	}

	for _, args := range tests {
		if code, _, _ := runCLI(t, args...); code != exitUsage {
			t.Errorf("run(%v) = %d, want %d", args, code, exitUsage)
		}
	}
}
