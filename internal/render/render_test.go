package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/m3rciful/formbot/internal/form"
)

func currencyLike() form.Definition {
	return form.Definition{
		Product:  "currency",
		Script:   "./src/craft/Currency.py",
		Template: "./assets/CURRENCY_TEMPLATE.png",
		Fields: []form.Field{
			{Name: "Dollar", Kind: form.KindText, Prompt: "p", Label: "l", Default: form.DefaultNumber},
			{Name: "Euro", Kind: form.KindText, Prompt: "p", Label: "l", Default: form.DefaultNumber},
			{Name: "Image", Flag: "user_image_path", Kind: form.KindPhoto, Prompt: "p", Label: "l", Default: form.DefaultPhoto},
			{Name: "Title", Flag: "main_headline_text", Kind: form.KindText, Prompt: "p", Label: "l", Default: " "},
		},
	}
}

func carLike() form.Definition {
	return form.Definition{
		Product:  "car",
		Template: "t.png",
		Fields: []form.Field{
			{Name: "List1", Flag: "prices", Script: "car1.py", Kind: form.KindText, Prompt: "p", Label: "l", Default: "0"},
			{Name: "List2", Flag: "prices", Script: "car2.py", Kind: form.KindText, Prompt: "p", Label: "l", Default: "0", Hidden: true},
		},
	}
}

func TestBuildRequestSubstitutesDefaults(t *testing.T) {
	req, err := BuildRequest(currencyLike(), form.Values{"Euro": " 41 "}, "", "OutPut/currency_post_1.png")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"./src/craft/Currency.py",
		"--Dollar", "0",
		"--Euro", "41",
		"--user_image_path", "./assets/void.png",
		"--main_headline_text", " ",
		"--output_path", "OutPut/currency_post_1.png",
	}
	if got := req.Argv(); !reflect.DeepEqual(got, want) {
		t.Fatalf("argv = %q", got)
	}
}

func TestBuildRequestVariants(t *testing.T) {
	values := form.Values{"List1": "a", "List2": "b"}
	req, err := BuildRequest(carLike(), values, "List2", "out.png")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"car2.py", "--prices", "b", "--output_path", "out.png"}; !reflect.DeepEqual(req.Argv(), want) {
		t.Fatalf("argv = %q", req.Argv())
	}

	req, err = BuildRequest(carLike(), values, "", "out.png")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"car1.py", "--prices", "a", "--output_path", "out.png"}; !reflect.DeepEqual(req.Argv(), want) {
		t.Fatalf("default variant argv = %q", req.Argv())
	}
}

func TestBuildRequestErrors(t *testing.T) {
	if _, err := BuildRequest(currencyLike(), nil, "", " "); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("err = %v", err)
	}
	def := currencyLike()
	def.Script = ""
	if _, err := BuildRequest(def, nil, "", "out.png"); err == nil {
		t.Fatal("expected missing script error")
	}
}

func TestArgvOrderProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	def := currencyLike()

	properties.Property("fields keep definition order and output path is last", prop.ForAll(
		func(dollar, euro, title string) bool {
			values := form.Values{"Dollar": dollar, "Euro": euro, "Title": title}
			req, err := BuildRequest(def, values, "", "out.png")
			if err != nil {
				return false
			}
			argv := req.Argv()
			if len(argv) != 1+2*len(def.Fields)+2 || argv[0] != def.Script {
				return false
			}
			for i, f := range def.Fields {
				if argv[1+2*i] != "--"+f.RendererFlag() {
					return false
				}
				want := f.Default
				if values.Filled(f.Name) {
					want = strings.TrimSpace(values[f.Name])
				}
				if argv[2+2*i] != want {
					return false
				}
			}
			return argv[len(argv)-2] == "--output_path" && argv[len(argv)-1] == "out.png"
		},
		gen.AlphaString(), gen.NumString(), gen.AnyString(),
	))
	properties.TestingRun(t)
}

func TestFuncAdapter(t *testing.T) {
	var got Request
	r := Func(func(_ context.Context, req Request) (string, error) {
		got = req
		return req.OutputPath, nil
	})
	path, err := r.Render(context.Background(), Request{Script: "s.py", OutputPath: "o.png"})
	if err != nil || path != "o.png" || got.Script != "s.py" {
		t.Fatalf("path=%q err=%v req=%+v", path, err, got)
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	tb := &tailBuffer{max: 8}
	fmt.Fprint(tb, "hello ")
	fmt.Fprint(tb, "world")
	if got := tb.String(); got != "lo world" {
		t.Fatalf("tail = %q", got)
	}
	fmt.Fprint(tb, strings.Repeat("x", 20)+"END")
	if got := tb.String(); got != "xxxxxEND" {
		t.Fatalf("tail = %q", got)
	}
}

func shellRenderer(t *testing.T, body string, timeout time.Duration) (*Subprocess, string) {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "render.sh")
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	p := NewSubprocess(sh, timeout, dir)
	p.Stdout = io.Discard
	return p, script
}

func TestSubprocessWritesOutput(t *testing.T) {
	p, script := shellRenderer(t, "for a; do out=\"$a\"; done\necho \"$1=$2\" > \"$out\"\n", 5*time.Second)
	req := Request{Script: script, Args: []Arg{{Flag: "Dollar", Value: "42000"}}, OutputPath: filepath.Join("OutPut", "x.png")}

	path, err := p.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := filepath.Join(p.Dir, "OutPut", "x.png"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(raw)) != "--Dollar=42000" {
		t.Fatalf("output = %q", raw)
	}
}

func TestSubprocessRelativeWorkDir(t *testing.T) {
	p, script := shellRenderer(t, "for a; do out=\"$a\"; done\necho ok > \"$out\"\n", 5*time.Second)
	base := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(base); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Rename(p.Dir, filepath.Join(base, "work")); err != nil {
		t.Fatal(err)
	}
	p.Dir = "work"
	script = filepath.Join(base, "work", filepath.Base(script))

	path, err := p.Render(context.Background(), Request{Script: script, OutputPath: "OutPut/a.png"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Fatalf("path %q is not absolute", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat returned path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "work", "OutPut", "a.png")); err != nil {
		t.Fatalf("stat under work dir: %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	cases := []struct{ dir, path, want string }{
		{"", "OutPut/a.png", "OutPut/a.png"},
		{"/srv/render", "OutPut/a.png", "/srv/render/OutPut/a.png"},
		{"/srv/render", "/tmp/a.png", "/tmp/a.png"},
		{"/srv/render", "", ""},
	}
	for _, c := range cases {
		if got := ResolvePath(c.dir, c.path); got != c.want {
			t.Errorf("ResolvePath(%q, %q) = %q, want %q", c.dir, c.path, got, c.want)
		}
	}
}

func TestSubprocessExitError(t *testing.T) {
	p, script := shellRenderer(t, "echo boom >&2\nexit 3\n", 5*time.Second)
	_, err := p.Render(context.Background(), Request{Script: script, OutputPath: "o.png"})
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v", err)
	}
	if rerr.ExitCode != 3 || strings.TrimSpace(rerr.Stderr) != "boom" {
		t.Fatalf("error = %+v", rerr)
	}
}

func TestSubprocessMissingInterpreter(t *testing.T) {
	p := NewSubprocess(filepath.Join(t.TempDir(), "no-such-python"), time.Second, t.TempDir())
	_, err := p.Render(context.Background(), Request{Script: "s.py", OutputPath: "o.png"})
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.ExitCode != -1 {
		t.Fatalf("err = %v", err)
	}
}

func TestSubprocessTimeout(t *testing.T) {
	p, script := shellRenderer(t, "exec sleep 5\n", 100*time.Millisecond)
	_, err := p.Render(context.Background(), Request{Script: script, OutputPath: "o.png"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v", err)
	}
}
