package native

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"io/fs"
	"sync"
	"sync/atomic"
)

type (
	// State of a Bootstrap.
	State int32
	// Reporter asks the engine for its live object report, given the core library handle.
	Reporter interface {
		ReportLiveObjects(core Handle) error
	}
	// ReporterFunc adapts a function to Reporter.
	ReporterFunc func(core Handle) error
	// Option configures a Bootstrap.
	Option func(*Bootstrap)
	/*Bootstrap owns the native libraries of a process.

	Use Steps:

	 1. New with the packaged resources, usually an embed.FS holding native/<os>/<arch>/*.
	 2. Initialize before any native call, from any number of goroutines.
	 3. Shutdown after the main loop exits.

	The process entry point creates exactly one Bootstrap and hands it to whatever needs native code.
	*/
	Bootstrap struct {
		id        string
		state     atomic.Int32
		mu        sync.Mutex // guards everything below, including the loader registry
		resolver  Resolver
		manifest  *Manifest
		extractor *Extractor
		loader    *Loader
		janitor   *Janitor
		reporter  Reporter
		log       *zap.Logger
		platform  PlatformKey
		files     []ExtractedFile
		attempts  int
		closed    bool
	}
)

const (
	Uninitialized State = iota
	Initializing
	Initialized
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Initialized:
		return "initialized"
	default:
		return "invalid"
	}
}

func (f ReporterFunc) ReportLiveObjects(core Handle) error {
	return f(core)
}

// SymbolReporter calls a no-argument exported function of the core library.
func SymbolReporter(symbol string) Reporter {
	return ReporterFunc(func(core Handle) (err error) {
		var report func()
		if err = Bind(&report, core, symbol); err != nil {
			return
		}
		report()
		return
	})
}

// WithResolver replaces the host resolver.
func WithResolver(r Resolver) Option {
	return func(b *Bootstrap) {
		b.resolver = r
	}
}

// WithManifest replaces the built-in manifest.
func WithManifest(m *Manifest) Option {
	return func(b *Bootstrap) {
		b.manifest = m
	}
}

// WithOpener replaces the system loader.
func WithOpener(o Opener) Option {
	return func(b *Bootstrap) {
		b.loader.Opener = o
	}
}

// WithLogger sets the logger, the package Logger by default.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bootstrap) {
		if l != nil {
			b.log = l
		}
	}
}

// WithReporter sets the shutdown live object reporter, overriding the manifest report symbol.
func WithReporter(r Reporter) Option {
	return func(b *Bootstrap) {
		b.reporter = r
	}
}

// WithTempDir sets the parent directory of the extraction directory.
func WithTempDir(dir string) Option {
	return func(b *Bootstrap) {
		b.extractor.TempDir = dir
	}
}

// WithInPlace loads libraries directly from an on-disk resource directory, laid out as
// <dir>/native/<os>/<arch>/<file>, without extracting them.
func WithInPlace(dir string) Option {
	return func(b *Bootstrap) {
		b.extractor.Disk = dir
	}
}

// WithSystemFallback loads a library missing from the packaged resources by file name through
// the system search path, instead of failing with ErrResourceNotFound.
func WithSystemFallback() Option {
	return func(b *Bootstrap) {
		b.extractor.Fallback = true
	}
}

// New creates a Bootstrap over packaged resources.
func New(source fs.FS, opts ...Option) *Bootstrap {
	b := &Bootstrap{
		id:       uuid.New().String(),
		resolver: Host(),
		janitor:  new(Janitor),
		log:      Logger(),
	}
	b.extractor = &Extractor{Source: source, Janitor: b.janitor}
	b.loader = NewLoader(nil)
	for _, opt := range opts {
		opt(b)
	}
	if b.manifest == nil {
		b.manifest = DefaultManifest()
	}
	if b.reporter == nil && b.manifest.ReportSymbol != "" {
		b.reporter = SymbolReporter(b.manifest.ReportSymbol)
	}
	b.log = b.log.With(zap.String("bootstrap", b.id))
	b.extractor.Prefix = "native-" + b.id[:8]
	b.extractor.Logger = b.log
	b.loader.Logger = b.log
	// called from run, under mu
	b.extractor.Loaded = func(path string) bool {
		return b.loader.Registry.Loaded(path)
	}
	return b
}

// ID is the session id of the bootstrap, also part of the extraction directory name.
func (b *Bootstrap) ID() string {
	return b.id
}

// State returns the current state without locking.
func (b *Bootstrap) State() State {
	return State(b.state.Load())
}

// Initialize resolves, extracts and loads the native libraries once.
//
// Concurrent callers block until the first one finishes. On failure the state goes back to
// Uninitialized and the error, matching ErrBootstrap and the failing phase sentinel, is returned;
// the next call runs the whole sequence again, skipping libraries already loaded.
func (b *Bootstrap) Initialize() (err error) {
	if b.State() == Initialized {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.State() == Initialized {
		return
	}
	if b.closed {
		return newError(KindBootstrap, "", "bootstrap shut down", nil)
	}
	b.state.Store(int32(Initializing))
	b.attempts++
	if err = b.run(); err != nil {
		b.state.Store(int32(Uninitialized))
		b.log.Error("native bootstrap failed", zap.Int("attempt", b.attempts), zap.Error(err))
		return newError(KindBootstrap, b.platform.Dir(), "", err)
	}
	b.state.Store(int32(Initialized))
	b.log.Info("native bootstrap completed",
		zap.Stringer("platform", b.platform),
		zap.Int("libraries", len(b.files)),
		zap.Int("attempt", b.attempts))
	return
}

func (b *Bootstrap) run() (err error) {
	b.platform = b.resolver.Resolve()
	b.log.Debug("resolved platform", zap.Stringer("platform", b.platform))
	var entries []LibraryEntry
	if entries, err = b.manifest.FilesFor(b.platform); err != nil {
		return
	}
	var files []ExtractedFile
	if files, err = b.extractor.Extract(b.platform, entries); err != nil {
		return
	}
	if err = b.loader.LoadAll(files, CoreOf(entries), b.manifest.OrderFor(b.platform)); err != nil {
		return
	}
	b.files = files
	return
}

// Platform returns the key resolved by the last attempt.
func (b *Bootstrap) Platform() PlatformKey {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.platform
}

// Files returns the libraries of the completed bootstrap.
func (b *Bootstrap) Files() []ExtractedFile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ExtractedFile(nil), b.files...)
}

// Loaded returns every library path loaded so far, including those of failed attempts.
func (b *Bootstrap) Loaded() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loader.Registry.Paths()
}

// Core returns the handle of the core library, zero before Initialize succeeds.
func (b *Bootstrap) Core() Handle {
	if b.State() != Initialized {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loader.Core()
}

// Attempts counts the extraction and loading passes run so far.
func (b *Bootstrap) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Shutdown reports live engine objects if the bootstrap completed, then removes extracted files.
// Both are diagnostics: failures are logged, never returned. Later calls do nothing.
func (b *Bootstrap) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.State() == Initialized && b.reporter != nil {
		if err := b.reporter.ReportLiveObjects(b.loader.Core()); err != nil {
			b.log.Warn("live object report failed", zap.Error(err))
		}
	}
	if err := b.janitor.Clean(); err != nil {
		b.log.Debug("native cleanup incomplete", zap.Error(err))
	}
}
