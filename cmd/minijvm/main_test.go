package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/daimatz/minijvm/pkg/classfile"
	"github.com/daimatz/minijvm/pkg/classfile/classfiletest"
	"github.com/daimatz/minijvm/pkg/dump"
	"github.com/daimatz/minijvm/pkg/vm"
)

// setup writes HelloWorld.class and a config file into a fresh directory.
func setup(t *testing.T) (dir, configPath string) {
	t.Helper()
	t.Cleanup(func() {
		classfile.SetLogger(nil)
		vm.SetLogger(nil)
	})
	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "HelloWorld.class"), classfiletest.HelloWorld().Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath = filepath.Join(dir, "minijvm.toml")
	if err := os.WriteFile(configPath, []byte("[log]\nlevel = \"error\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, configPath
}

// writePackagedHello writes pkg/Hello.class, a HelloWorld declared in a package.
func writePackagedHello(t *testing.T, dir string) string {
	t.Helper()
	b := classfiletest.New()
	b.SetThis("pkg/Hello", classfile.ObjectClassName)
	ctor := b.Methodref(classfile.ObjectClassName, "<init>", "()V")
	b.AddMethod(0x0001, "<init>", "()V", b.Code(1, 1, []byte{
		classfiletest.OpAload0,
		classfiletest.OpInvokespecial, byte(ctor >> 8), byte(ctor),
		classfiletest.OpReturn,
	}, nil))
	b.AddMethod(0x0009, "main", "([Ljava/lang/String;)V", b.Code(0, 1, []byte{classfiletest.OpReturn}, nil))

	path := filepath.Join(dir, "pkg", "Hello.class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunHelloWorld(t *testing.T) {
	dir, cfg := setup(t)
	packaged := writePackagedHello(t, dir)

	tests := []struct {
		name string
		args []string
	}{
		{"class name", []string{"-config", cfg, "-cp", dir, "HelloWorld"}},
		{"class file path", []string{"-config", cfg, filepath.Join(dir, "HelloWorld.class")}},
		{"class path from config dir", []string{"-config", cfg, "HelloWorld"}},
		{"packaged class name", []string{"-config", cfg, "-cp", dir, "pkg/Hello"}},
		{"packaged class file path", []string{"-config", cfg, packaged}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 0 {
				t.Fatalf("exit %d, stderr: %s", code, stderr.String())
			}
			if stdout.Len() != 0 {
				t.Errorf("unexpected output: %q", stdout.String())
			}
		})
	}
}

func TestRunDumpText(t *testing.T) {
	dir, cfg := setup(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", cfg, "-cp", dir, "-dump", "HelloWorld"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "BEGIN Constant Pool") {
		t.Errorf("missing listing:\n%s", stdout.String())
	}
}

func TestRunDumpToFile(t *testing.T) {
	dir, _ := setup(t)
	out := filepath.Join(dir, "out", "HelloWorld.txt")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "dump.toml")
	body := "[log]\nlevel = \"error\"\n[dump]\nenabled = true\noutput = \"" + filepath.ToSlash(out) + "\"\n"
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", cfg, "HelloWorld"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("dump written to stdout: %q", stdout.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "BEGIN Constant Pool") {
		t.Errorf("dump file: %q", data)
	}
}

func TestRunDumpOutputFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	dir, _ := setup(t)
	cfg := filepath.Join(dir, "dump.toml")
	if err := os.WriteFile(cfg, []byte("[log]\nlevel = \"error\"\n[dump]\nenabled = true\noutput = \"/dev/full\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", cfg, "HelloWorld"}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.HasPrefix(stderr.String(), "Error: ") {
		t.Errorf("stderr: %q", stderr.String())
	}
}

func TestRunDumpCBOR(t *testing.T) {
	dir, cfg := setup(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", cfg, "-cp", dir, "-dump", "-format", "cbor", "-no-run", "HelloWorld"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	s, err := dump.UnmarshalCBOR(stdout.Bytes())
	if err != nil {
		t.Fatalf("decoding dump: %v", err)
	}
	if s.ClassName != "HelloWorld" {
		t.Errorf("class name: got %q", s.ClassName)
	}
}

func TestRunFailures(t *testing.T) {
	dir, cfg := setup(t)

	b := classfiletest.New()
	b.SetThis("Bad", classfile.ObjectClassName)
	b.AddMethod(0x0001, "<init>", "()V", b.Code(0, 1, []byte{0xFF}, nil))
	b.AddMethod(0x0009, "main", "([Ljava/lang/String;)V", b.Code(0, 1, []byte{0xB1}, nil))
	if err := os.WriteFile(filepath.Join(dir, "Bad.class"), b.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing class", []string{"-config", cfg, "-cp", dir, "Missing"}, "not_found"},
		{"unsupported opcode", []string{"-config", cfg, "-cp", dir, "Bad"}, "unsupported_opcode"},
		{"bad format", []string{"-config", cfg, "-format", "xml", "HelloWorld"}, "dump.format"},
		{"missing config", []string{"-config", filepath.Join(dir, "nope.toml"), "HelloWorld"}, "cannot read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 1 {
				t.Fatalf("exit %d, want 1", code)
			}
			msg := stderr.String()
			if !strings.HasPrefix(msg, "Error: ") || !strings.Contains(msg, tt.want) {
				t.Errorf("stderr: got %q, want Error: ...%s", msg, tt.want)
			}
		})
	}
}

func TestRunUsage(t *testing.T) {
	_, cfg := setup(t)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", cfg}, &stdout, &stderr); code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Usage: minijvm") {
		t.Errorf("stderr: %q", stderr.String())
	}
}
