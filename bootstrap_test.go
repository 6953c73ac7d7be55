package native

import (
	"errors"
	"github.com/ZenLiuCN/fn"
	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

var linuxResolver = NewResolver("Linux", "amd64")

func linuxEntries() []LibraryEntry {
	return DefaultManifest().Platforms[string(Linux)].Libraries
}

func TestInitializeConcurrent(t *testing.T) {
	src := &countingFS{FS: packaged(linux64, linuxEntries())}
	o := new(fakeOpener)
	b := New(src, WithResolver(linuxResolver), WithOpener(o), WithTempDir(t.TempDir()), WithLogger(zap.NewExample()))
	defer b.Shutdown()
	var w sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		w.Add(1)
		go func() {
			defer w.Done()
			errs <- b.Initialize()
		}()
	}
	w.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	fn.Panic(b.Initialize())
	if b.State() != Initialized {
		t.Errorf("state %v", b.State())
	}
	if b.Attempts() != 1 {
		t.Errorf("attempts %d", b.Attempts())
	}
	if n := int(src.opens.Load()); n != len(linuxEntries()) {
		t.Errorf("resources opened %d times", n)
	}
	for _, f := range b.Files() {
		if c := o.count(f.Dest); c != 1 {
			t.Errorf("%s loaded %d times", f.Dest, c)
		}
	}
	if b.Platform() != linux64 {
		t.Errorf("platform %v", b.Platform())
	}
	if b.Core() == 0 {
		t.Errorf("no core handle")
	}
	if got := o.names(); got[len(got)-1] != "libDenOfIzGraphicsJava.so" {
		t.Errorf("core not loaded last: %v", got)
	}
	spew.Dump(b.Files())
}

func TestInitializeMissingResourceThenRetry(t *testing.T) {
	entries := linuxEntries()
	src := packaged(linux64, entries)
	missing := ResourcePath(linux64, "libDenOfIzGraphicsJava.so")
	kept := src[missing]
	delete(src, missing)
	o := new(fakeOpener)
	b := New(src, WithResolver(linuxResolver), WithOpener(o), WithTempDir(t.TempDir()))
	defer b.Shutdown()

	err := b.Initialize()
	if !errors.Is(err, ErrBootstrap) || !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("Initialize() error = %v", err)
	}
	var e *Error
	if !errors.As(errors.Unwrap(err), &e) || e.Path != "/"+missing {
		t.Errorf("cause %+v", e)
	}
	if b.State() != Uninitialized {
		t.Errorf("state %v after failure", b.State())
	}
	if b.Core() != 0 {
		t.Errorf("core handle after failure")
	}

	src[missing] = kept
	fn.Panic(b.Initialize())
	if b.State() != Initialized || b.Attempts() != 2 {
		t.Errorf("state %v, attempts %d", b.State(), b.Attempts())
	}
}

func TestInitializeLoadFailureThenRetry(t *testing.T) {
	o := &fakeOpener{fail: map[string]error{"libDenOfIzGraphicsJava.so": errBadFormat}}
	b := New(packaged(linux64, linuxEntries()), WithResolver(linuxResolver), WithOpener(o), WithTempDir(t.TempDir()))
	defer b.Shutdown()
	err := b.Initialize()
	if !errors.Is(err, ErrLibraryLoad) || !errors.Is(err, errBadFormat) {
		t.Fatalf("Initialize() error = %v", err)
	}
	if len(b.Loaded()) != 1 {
		t.Fatalf("loaded %v", b.Loaded())
	}
	dep := b.Loaded()[0]
	before := fn.Panic1(os.Stat(dep))
	o.Lock()
	o.fail = nil
	o.Unlock()
	fn.Panic(b.Initialize())
	// the dependency from the first attempt is not opened twice
	for _, p := range b.Loaded() {
		if c := o.count(p); c != 1 {
			t.Errorf("%s loaded %d times", p, c)
		}
	}
	if len(b.Loaded()) != 2 {
		t.Errorf("loaded %v", b.Loaded())
	}
	// a loaded library may be locked, the retry must not replace its file
	if after := fn.Panic1(os.Stat(dep)); !os.SameFile(before, after) {
		t.Errorf("%s rewritten by retry", dep)
	}
}

func TestInitializeSystemFallback(t *testing.T) {
	src := packaged(linux64, linuxEntries())
	delete(src, ResourcePath(linux64, "libDenOfIzGraphicsJava.so"))
	o := new(fakeOpener)
	b := New(src, WithResolver(linuxResolver), WithOpener(o), WithTempDir(t.TempDir()), WithSystemFallback())
	defer b.Shutdown()
	fn.Panic(b.Initialize())
	o.Lock()
	opened := append([]string(nil), o.opened...)
	o.Unlock()
	if len(opened) != 2 || !filepath.IsAbs(opened[0]) || opened[1] != "libDenOfIzGraphicsJava.so" {
		t.Fatalf("opened %v", opened)
	}
	if b.Core() == 0 {
		t.Errorf("no core handle")
	}
	files := b.Files()
	if !files[1].System || files[0].System {
		t.Errorf("files %+v", files)
	}
	for _, p := range b.janitor.Pending() {
		if p == "libDenOfIzGraphicsJava.so" {
			t.Errorf("system library registered for removal")
		}
	}
}

func TestInitializeNoManifestEntry(t *testing.T) {
	m := &Manifest{Platforms: map[string]Platform{
		string(Windows): {Libraries: []LibraryEntry{{File: "core.dll", Core: true}}},
	}}
	b := New(packaged(linux64, nil), WithResolver(linuxResolver), WithManifest(m), WithOpener(new(fakeOpener)))
	defer b.Shutdown()
	if err := b.Initialize(); !errors.Is(err, ErrManifest) {
		t.Errorf("Initialize() error = %v", err)
	}
}

func TestShutdown(t *testing.T) {
	var reported []Handle
	o := new(fakeOpener)
	b := New(packaged(linux64, linuxEntries()), WithResolver(linuxResolver), WithOpener(o), WithTempDir(t.TempDir()),
		WithReporter(ReporterFunc(func(core Handle) error {
			reported = append(reported, core)
			return nil
		})))
	fn.Panic(b.Initialize())
	dir := b.extractor.Dir()
	core := b.Core()
	b.Shutdown()
	b.Shutdown()
	if len(reported) != 1 || reported[0] != core {
		t.Errorf("reported %v, core %v", reported, core)
	}
	if _, err := os.Stat(dir); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("extraction dir survived: %v", err)
	}
	// the fast path still answers after shutdown
	if err := b.Initialize(); err != nil || b.State() != Initialized {
		t.Errorf("Initialize() after Shutdown = %v, state %v", err, b.State())
	}
}

func TestShutdownWithoutInitialize(t *testing.T) {
	called := false
	src := packaged(linux64, linuxEntries())
	delete(src, ResourcePath(linux64, "libdxcompiler.so"))
	b := New(src, WithResolver(linuxResolver), WithOpener(new(fakeOpener)), WithTempDir(t.TempDir()),
		WithReporter(ReporterFunc(func(Handle) error {
			called = true
			return nil
		})))
	if err := b.Initialize(); err == nil {
		t.Fatal("Initialize() succeeded without resources")
	}
	b.Shutdown()
	if called {
		t.Errorf("reporter called without bootstrap")
	}
	if err := b.Initialize(); !errors.Is(err, ErrBootstrap) {
		t.Errorf("Initialize() after Shutdown error = %v", err)
	}
}

func TestReportSymbolFromManifest(t *testing.T) {
	m := DefaultManifest()
	m.ReportSymbol = "DZReportLiveObjects"
	b := New(nil, WithManifest(m))
	if b.reporter == nil {
		t.Errorf("no reporter from manifest")
	}
	if err := b.reporter.ReportLiveObjects(0); !errors.Is(err, ErrMissingSymbol) {
		t.Errorf("report on zero handle error = %v", err)
	}
}
