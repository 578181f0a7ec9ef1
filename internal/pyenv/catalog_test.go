// SPDX-License-Identifier: MPL-2.0

package pyenv

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"

	"pybundle-cli/internal/testutil"
)

// newTestCatalog builds a catalog over root with a quiet logger.
func newTestCatalog(t *testing.T, root, scratch string, fake *testutil.FakeInvoker) *Catalog {
	t.Helper()
	cat, err := NewCatalog(context.Background(), root, scratch, fake, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewCatalog() error: %v", err)
	}
	return cat
}

// creatingInvoker fakes a PATH with every interpreter present and a venv
// module that materializes the target directory.
func creatingInvoker(t *testing.T) *testutil.FakeInvoker {
	t.Helper()
	fake := &testutil.FakeInvoker{
		OnLookPath: func(name string) (string, bool) { return "/usr/bin/" + name, true },
	}
	fake.OnRun = func(call testutil.Call) error {
		testutil.MakeVenv(t, call.Args[len(call.Args)-1])
		return nil
	}
	return fake
}

func TestNewCatalog_PicksHighestVersionedEnv(t *testing.T) {
	root := t.TempDir()
	for _, spec := range []string{"3.9", "3.11", "3.12"} {
		testutil.MakeVenv(t, filepath.Join(root, ".venv-"+spec))
	}

	cat := newTestCatalog(t, root, t.TempDir(), &testutil.FakeInvoker{})
	def := cat.Default()
	if def.Kind != KindDefaultShared {
		t.Errorf("Default().Kind = %s, want default-shared", def.Kind)
	}
	if def.Spec != "3.12" {
		t.Errorf("Default().Spec = %q, want %q", def.Spec, "3.12")
	}
	if want := []string{"3.12", "3.11", "3.9"}; !reflect.DeepEqual(cat.Specs(), want) {
		t.Errorf("Specs() = %v, want %v", cat.Specs(), want)
	}
}

func TestNewCatalog_SkipsEnvWithoutInterpreter(t *testing.T) {
	root := t.TempDir()
	testutil.MakeVenv(t, filepath.Join(root, ".venv-3.11"))
	// A bare directory with no interpreter must not win the ranking.
	if err := os.MkdirAll(filepath.Join(root, ".venv-3.13"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cat := newTestCatalog(t, root, t.TempDir(), &testutil.FakeInvoker{})
	if got := cat.Default().Spec; got != "3.11" {
		t.Errorf("Default().Spec = %q, want %q (3.13 has no interpreter)", got, "3.11")
	}
}

func TestNewCatalog_GenericVenvFallback(t *testing.T) {
	root := t.TempDir()
	testutil.MakeVenv(t, filepath.Join(root, ".venv"))
	fake := &testutil.FakeInvoker{
		OnOutput: func(testutil.Call) (string, error) { return "3.10", nil },
	}

	cat := newTestCatalog(t, root, t.TempDir(), fake)
	def := cat.Default()
	if def.Spec != "3.10" {
		t.Errorf("Default().Spec = %q, want probed %q", def.Spec, "3.10")
	}
	if def.Dir != filepath.Join(root, ".venv") {
		t.Errorf("Default().Dir = %q, want generic venv", def.Dir)
	}
}

func TestNewCatalog_BareInterpreterFallback(t *testing.T) {
	fake := &testutil.FakeInvoker{
		OnLookPath: func(name string) (string, bool) {
			if name == "python3" {
				return "/usr/bin/python3", true
			}
			return "", false
		},
		OnOutput: func(testutil.Call) (string, error) { return "3.12.1", nil },
	}

	cat := newTestCatalog(t, t.TempDir(), t.TempDir(), fake)
	def := cat.Default()
	if def.Python != "/usr/bin/python3" || def.Dir != "" {
		t.Errorf("Default() = %+v, want bare /usr/bin/python3", def)
	}
	if def.Spec != "3.12" {
		t.Errorf("Default().Spec = %q, want normalized %q", def.Spec, "3.12")
	}
}

func TestNewCatalog_NoInterpreterFails(t *testing.T) {
	_, err := NewCatalog(context.Background(), t.TempDir(), t.TempDir(), &testutil.FakeInvoker{}, log.New(io.Discard))
	if err == nil {
		t.Fatal("NewCatalog() succeeded with no environments and no PATH interpreter")
	}
}

func TestSelect_PinHandling(t *testing.T) {
	root := t.TempDir()
	testutil.MakeVenv(t, filepath.Join(root, ".venv-3.12"))
	testutil.MakeVenv(t, filepath.Join(root, ".venv-3.9"))
	cat := newTestCatalog(t, root, t.TempDir(), &testutil.FakeInvoker{})
	ctx := context.Background()

	noPin, err := cat.Select(ctx, "")
	if err != nil {
		t.Fatalf("Select(no pin) error: %v", err)
	}
	if noPin != cat.Default() {
		t.Error("Select(no pin) did not return the default environment")
	}

	samePin, err := cat.Select(ctx, "3.12")
	if err != nil {
		t.Fatalf("Select(default pin) error: %v", err)
	}
	if samePin != cat.Default() {
		t.Error("Select(pin == default spec) must reuse the default environment")
	}

	pinned, err := cat.Select(ctx, "3.9")
	if err != nil {
		t.Fatalf("Select(3.9) error: %v", err)
	}
	if pinned.Kind != KindPinnedShared || pinned.Spec != "3.9" {
		t.Errorf("Select(3.9) = %s %s, want pinned-shared 3.9", pinned.Kind, pinned.Spec)
	}
	if pinned.Dir != filepath.Join(root, ".venv-3.9") {
		t.Errorf("Select(3.9).Dir = %q, want existing .venv-3.9", pinned.Dir)
	}

	again, err := cat.Select(ctx, "3.9")
	if err != nil {
		t.Fatalf("Select(3.9) again error: %v", err)
	}
	if again != pinned {
		t.Error("pinned-shared environment not memoized across selections")
	}
}

func TestEnsurePinned_CreatesMissingEnv(t *testing.T) {
	root := t.TempDir()
	testutil.MakeVenv(t, filepath.Join(root, ".venv-3.12"))
	fake := creatingInvoker(t)
	cat := newTestCatalog(t, root, t.TempDir(), fake)

	env, err := cat.EnsurePinned(context.Background(), "3.8")
	if err != nil {
		t.Fatalf("EnsurePinned(3.8) error: %v", err)
	}
	if env.Dir != filepath.Join(root, ".venv-3.8") {
		t.Errorf("EnsurePinned(3.8).Dir = %q, want root .venv-3.8", env.Dir)
	}
	if got := fake.RunsMatching("-m venv"); got != 1 {
		t.Errorf("venv creation ran %d times, want 1", got)
	}

	if _, err := cat.EnsurePinned(context.Background(), "3.8"); err != nil {
		t.Fatalf("EnsurePinned(3.8) second call error: %v", err)
	}
	if got := fake.RunsMatching("-m venv"); got != 1 {
		t.Errorf("venv creation ran %d times after repeat, want 1", got)
	}
}

func TestEnsurePinned_CreationFailureIsFatal(t *testing.T) {
	root := t.TempDir()
	testutil.MakeVenv(t, filepath.Join(root, ".venv-3.12"))

	// Nothing on PATH: no launcher can create the 3.7 environment.
	cat := newTestCatalog(t, root, t.TempDir(), &testutil.FakeInvoker{})
	_, err := cat.EnsurePinned(context.Background(), "3.7")
	if !errors.Is(err, ErrCreate) {
		t.Fatalf("EnsurePinned() error = %v, want ErrCreate", err)
	}
}

func TestEnsureIsolated_PerToolIsolation(t *testing.T) {
	root := t.TempDir()
	testutil.MakeVenv(t, filepath.Join(root, ".venv-3.12"))
	fake := creatingInvoker(t)
	cat := newTestCatalog(t, root, t.TempDir(), fake)
	ctx := context.Background()

	wget, err := cat.EnsureIsolated(ctx, "wget", "3.11")
	if err != nil {
		t.Fatalf("EnsureIsolated(wget) error: %v", err)
	}
	ttree, err := cat.EnsureIsolated(ctx, "ttree", "3.11")
	if err != nil {
		t.Fatalf("EnsureIsolated(ttree) error: %v", err)
	}
	if wget == ttree || wget.Dir == ttree.Dir {
		t.Error("tools with the same spec share an isolated environment")
	}
	if wget.Kind != KindIsolated || ttree.Kind != KindIsolated {
		t.Errorf("isolated kinds = %s, %s, want isolated", wget.Kind, ttree.Kind)
	}

	again, err := cat.EnsureIsolated(ctx, "wget", "3.11")
	if err != nil {
		t.Fatalf("EnsureIsolated(wget) repeat error: %v", err)
	}
	if again != wget {
		t.Error("isolated environment not memoized per (tool, spec)")
	}
	if got := fake.RunsMatching("-m venv"); got != 2 {
		t.Errorf("venv creation ran %d times, want 2", got)
	}
}

func TestEnsureIsolated_EmptySpecInheritsDefault(t *testing.T) {
	root := t.TempDir()
	testutil.MakeVenv(t, filepath.Join(root, ".venv-3.12"))
	fake := creatingInvoker(t)
	cat := newTestCatalog(t, root, t.TempDir(), fake)

	env, err := cat.EnsureIsolated(context.Background(), "ttree", "")
	if err != nil {
		t.Fatalf("EnsureIsolated() error: %v", err)
	}
	if env.Spec != "3.12" {
		t.Errorf("isolated Spec = %q, want inherited default %q", env.Spec, "3.12")
	}
}
