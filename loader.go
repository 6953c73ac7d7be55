package native

import (
	"github.com/ZenLiuCN/fn"
	"go.uber.org/zap"
	"path/filepath"
	"slices"
)

type (
	// Handle is an opaque handle of a loaded library.
	Handle uintptr
	// Opener maps a shared library into the process.
	Opener interface {
		Open(path string) (Handle, error)
	}
	// OpenerFunc adapts a function to Opener.
	OpenerFunc func(path string) (Handle, error)
	// Registry records every library path loaded through a Loader. Entries are never removed.
	//
	// Registry is not synchronized, its owner guards it.
	Registry map[string]Handle
	// Loader opens extracted libraries in dependency order, at most once per absolute path.
	Loader struct {
		Opener   Opener
		Registry Registry
		Logger   *zap.Logger
		core     Handle
	}
)

func (f OpenerFunc) Open(path string) (Handle, error) {
	return f(path)
}

// Loaded reports whether an absolute path was loaded.
func (r Registry) Loaded(path string) bool {
	_, ok := r[path]
	return ok
}

// Handle returns the handle of a loaded path.
func (r Registry) Handle(path string) (h Handle, ok bool) {
	h, ok = r[path]
	return
}

// Paths returns the loaded paths, sorted.
func (r Registry) Paths() []string {
	p := fn.MapKeys(r)
	slices.Sort(p)
	return p
}

// NewLoader creates a loader with an empty registry, opener nil means the system loader.
func NewLoader(o Opener) *Loader {
	if o == nil {
		o = SystemOpener()
	}
	return &Loader{Opener: o, Registry: make(Registry)}
}

// Core returns the handle of the last loaded core library.
func (l *Loader) Core() Handle {
	return l.core
}

func (l *Loader) log() *zap.Logger {
	if l.Logger == nil {
		return Logger()
	}
	return l.Logger
}

// Partition splits files into the single core file and its dependencies, dependencies keep their order.
func Partition(files []ExtractedFile, isCore func(ExtractedFile) bool) (core ExtractedFile, deps []ExtractedFile, err error) {
	n := 0
	for _, f := range files {
		if isCore(f) {
			core = f
			n++
		} else {
			deps = append(deps, f)
		}
	}
	if n != 1 {
		return core, nil, newError(KindManifest, "", "want exactly one core library among extracted files", nil)
	}
	return
}

// LoadAll loads files in order. Paths already in the registry are skipped.
// The first failure aborts with ErrLibraryLoad.
func (l *Loader) LoadAll(files []ExtractedFile, isCore func(ExtractedFile) bool, order Order) (err error) {
	core, deps, err := Partition(files, isCore)
	if err != nil {
		return
	}
	var seq []ExtractedFile
	switch order {
	case CoreFirst:
		seq = append([]ExtractedFile{core}, deps...)
	default:
		seq = append(deps, core)
	}
	for _, f := range seq {
		var h Handle
		if h, err = l.loadFile(f); err != nil {
			return
		}
		if f.Dest == core.Dest {
			l.core = h
		}
	}
	return
}

func (l *Loader) loadFile(f ExtractedFile) (Handle, error) {
	if f.System {
		return l.LoadName(f.Dest)
	}
	return l.Load(f.Dest)
}

// Load opens one library unless its absolute path is already loaded.
func (l *Loader) Load(path string) (h Handle, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, newError(KindLibraryLoad, path, "resolve path", err)
	}
	return l.open(abs)
}

// LoadName opens a library by bare file name through the system search path,
// once per name.
func (l *Loader) LoadName(name string) (Handle, error) {
	return l.open(name)
}

func (l *Loader) open(path string) (h Handle, err error) {
	if l.Registry == nil {
		l.Registry = make(Registry)
	}
	if h, ok := l.Registry[path]; ok {
		l.log().Debug("native library already loaded", zap.String("path", path))
		return h, nil
	}
	if h, err = l.Opener.Open(path); err != nil {
		return 0, newError(KindLibraryLoad, path, "", err)
	}
	l.Registry[path] = h
	l.log().Info("loaded native library", zap.String("path", path))
	return
}
