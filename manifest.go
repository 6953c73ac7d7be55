package native

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"strings"
)

type (
	// LibraryEntry is one packaged library of a platform.
	LibraryEntry struct {
		File string `yaml:"file"`
		Core bool   `yaml:"core,omitempty"`
	}
	// Order is the load order policy of a platform.
	Order string
	// Platform is the library set of one manifest key, either "<os>" or "<os>/<arch>".
	Platform struct {
		Order     Order          `yaml:"order,omitempty"`
		Libraries []LibraryEntry `yaml:"libraries"`
	}
	// Manifest is the static table of packaged libraries.
	//
	// Lookup tries "<os>/<arch>" first and falls back to "<os>", so a single entry can serve every
	// architecture of an OS.
	Manifest struct {
		Platforms map[string]Platform `yaml:"platforms"`
		// ReportSymbol names a no-argument exported function of the core library which reports
		// live engine objects. Empty disables the report.
		ReportSymbol string `yaml:"report_symbol,omitempty"`
	}
)

const (
	// DependenciesFirst loads every dependency in manifest order, then the core library.
	// The core libraries link their dependencies at load time, so this is the default.
	DependenciesFirst Order = "dependencies-first"
	// CoreFirst loads the core library, then its dependencies. Only valid for lazily bound cores.
	CoreFirst Order = "core-first"
)

// DefaultManifest returns the built-in table of the engine's packaged libraries.
func DefaultManifest() *Manifest {
	return &Manifest{
		Platforms: map[string]Platform{
			string(Windows): {
				Order: DependenciesFirst,
				Libraries: []LibraryEntry{
					{File: "dxcompiler.dll"},
					{File: "dxil.dll"},
					{File: "metalirconverter.dll"},
					{File: "DenOfIzGraphics.dll"},
					{File: "DenOfIzGraphicsJava.dll", Core: true},
				},
			},
			string(MacOS): {
				Order: DependenciesFirst,
				Libraries: []LibraryEntry{
					{File: "libdxcompiler.dylib"},
					{File: "libmetalirconverter.dylib"},
					{File: "libDenOfIzGraphicsJava.jnilib", Core: true},
				},
			},
			string(Linux): {
				Order: DependenciesFirst,
				Libraries: []LibraryEntry{
					{File: "libdxcompiler.so"},
					{File: "libDenOfIzGraphicsJava.so", Core: true},
				},
			},
		},
	}
}

// ParseManifest decodes a YAML manifest and validates it.
func ParseManifest(data []byte) (m *Manifest, err error) {
	m = new(Manifest)
	if err = yaml.Unmarshal(data, m); err != nil {
		return nil, newError(KindManifest, "", "parse manifest", err)
	}
	if err = m.Validate(); err != nil {
		return nil, err
	}
	return
}

// LoadManifest reads a YAML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindManifest, path, "read manifest", err)
	}
	return ParseManifest(data)
}

// Marshal encodes the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

func (m *Manifest) lookup(key PlatformKey) (p Platform, ok bool) {
	if p, ok = m.Platforms[key.Dir()]; ok {
		return
	}
	p, ok = m.Platforms[string(key.OS)]
	return
}

// FilesFor returns the ordered library entries of a platform.
func (m *Manifest) FilesFor(key PlatformKey) ([]LibraryEntry, error) {
	p, ok := m.lookup(key)
	if !ok || len(p.Libraries) == 0 {
		return nil, newError(KindManifest, key.Dir(), "no libraries for platform", nil)
	}
	return p.Libraries, nil
}

// OrderFor returns the load order of a platform, DependenciesFirst unless the manifest says otherwise.
func (m *Manifest) OrderFor(key PlatformKey) Order {
	if p, ok := m.lookup(key); ok && p.Order != "" {
		return p.Order
	}
	return DependenciesFirst
}

// Validate checks every platform has libraries, exactly one core library and a known order.
func (m *Manifest) Validate() error {
	if len(m.Platforms) == 0 {
		return newError(KindManifest, "", "empty manifest", nil)
	}
	for name, p := range m.Platforms {
		if len(p.Libraries) == 0 {
			return newError(KindManifest, name, "no libraries for platform", nil)
		}
		switch p.Order {
		case "", DependenciesFirst, CoreFirst:
		default:
			return newError(KindManifest, name, fmt.Sprintf("unknown order %q", p.Order), nil)
		}
		n := 0
		for _, e := range p.Libraries {
			if e.File == "" || strings.ContainsAny(e.File, `/\`) {
				return newError(KindManifest, name, fmt.Sprintf("invalid library file name %q", e.File), nil)
			}
			if e.Core {
				n++
			}
		}
		if n != 1 {
			return newError(KindManifest, name, fmt.Sprintf("want exactly one core library, found %d", n), nil)
		}
	}
	return nil
}

// Core returns the core entry of a list, the zero entry when there is none.
func Core(entries []LibraryEntry) (c LibraryEntry) {
	for _, e := range entries {
		if e.Core {
			return e
		}
	}
	return
}

// CoreOf returns a predicate recognising the extracted core library of entries by file name.
func CoreOf(entries []LibraryEntry) func(ExtractedFile) bool {
	c := Core(entries).File
	return func(f ExtractedFile) bool {
		return c != "" && f.Name() == c
	}
}
