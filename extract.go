package native

import (
	"errors"
	"github.com/ZenLiuCN/fn"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
)

type (
	// ExtractedFile is a library ready for the loader.
	ExtractedFile struct {
		Source     string // logical resource path, /native/<os>/<arch>/<file>
		Dest       string // absolute file path, or the bare file name when System is set
		Executable bool
		System     bool // not packaged, loaded by name through the system search path
	}
	// Extractor copies packaged libraries into one temporary directory.
	//
	// The directory is created on the first Extract and reused afterwards, so a retried
	// extraction writes the same absolute paths again.
	Extractor struct {
		Source  fs.FS    // packaged resources, rooted above "native/"
		Disk    string   // on-disk root of Source; when set libraries are used in place
		TempDir string   // parent of the extraction directory, os.TempDir when empty
		Prefix  string   // extraction directory name prefix
		Janitor *Janitor // receives every created file and directory
		Logger  *zap.Logger
		// Loaded reports libraries already mapped into the process. Their files are left untouched,
		// a mapped library may be locked or in use.
		Loaded func(path string) bool
		// Fallback turns a missing resource into a System file instead of ErrResourceNotFound.
		Fallback bool
		dir      string
	}
	// Janitor removes registered files and directories on Clean, best effort.
	Janitor struct {
		sync.Mutex
		files []string
		dirs  []string
		seen  map[string]struct{}
	}
)

// ResourceRoot is the top level directory of packaged libraries.
const ResourceRoot = "native"

// ResourcePath is the fs.FS path of a packaged library.
func ResourcePath(key PlatformKey, file string) string {
	return path.Join(ResourceRoot, string(key.OS), string(key.Arch), file)
}

// Name is the file name of the extracted library.
func (f ExtractedFile) Name() string {
	return filepath.Base(f.Dest)
}

// Dir returns the extraction directory, empty before the first extraction.
func (x *Extractor) Dir() string {
	return x.dir
}

func (x *Extractor) log() *zap.Logger {
	if x.Logger == nil {
		return Logger()
	}
	return x.Logger
}

// Extract makes every entry of a platform available on disk.
//
// A missing resource fails with ErrResourceNotFound unless Fallback is set, filesystem failures
// with ErrExtraction. Entries reported by Loaded are returned without being written again.
// Files extracted before a failure are kept for the janitor, not rolled back.
func (x *Extractor) Extract(key PlatformKey, entries []LibraryEntry) (files []ExtractedFile, err error) {
	if x.Disk != "" {
		return x.inPlace(key, entries)
	}
	if x.Source == nil {
		return nil, newError(KindExtraction, "", "no resource source", nil)
	}
	if err = x.ensureDir(); err != nil {
		return
	}
	exec := key.OS != Windows
	for _, e := range entries {
		var f ExtractedFile
		if f, err = x.extract(key, e, exec); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return
}

func (x *Extractor) ensureDir() (err error) {
	if x.dir != "" {
		return
	}
	prefix := x.Prefix
	if prefix == "" {
		prefix = "native"
	}
	var dir string
	if dir, err = os.MkdirTemp(x.TempDir, prefix+"-*"); err != nil {
		return newError(KindExtraction, x.TempDir, "create temp directory", err)
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return newError(KindExtraction, dir, "resolve temp directory", err)
	}
	x.dir = dir
	if x.Janitor != nil {
		x.Janitor.Dir(dir)
	}
	x.log().Debug("created extraction directory", zap.String("dir", dir))
	return
}

func (x *Extractor) extract(key PlatformKey, e LibraryEntry, exec bool) (f ExtractedFile, err error) {
	src := ResourcePath(key, e.File)
	f = ExtractedFile{Source: "/" + src, Dest: filepath.Join(x.dir, e.File), Executable: exec}
	if x.Loaded != nil && x.Loaded(f.Dest) {
		x.log().Debug("native library already loaded, not extracted again", zap.String("path", f.Dest))
		return
	}
	var in fs.File
	if in, err = x.Source.Open(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if x.Fallback {
				return x.system(e, f.Source), nil
			}
			return f, newError(KindResourceNotFound, f.Source, "native library not packaged", err)
		}
		return f, newError(KindExtraction, f.Source, "open resource", err)
	}
	defer fn.IgnoreClose(in)
	mode := os.FileMode(0o644)
	if exec {
		mode = 0o755
	}
	if err = writeAtomic(in, f.Dest, mode); err != nil {
		return f, newError(KindExtraction, f.Source, "copy to "+f.Dest, err)
	}
	if x.Janitor != nil {
		x.Janitor.File(f.Dest)
	}
	x.log().Debug("extracted native library", zap.String("resource", f.Source), zap.String("path", f.Dest))
	return
}

// writeAtomic copies r to a sibling temporary file and renames it over dest,
// so dest is either absent, the previous content, or complete.
func writeAtomic(r io.Reader, dest string, mode os.FileMode) (err error) {
	var tmp *os.File
	if tmp, err = os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part"); err != nil {
		return
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			fn.IgnoreClose(tmp)
			_ = os.Remove(name)
		}
	}()
	if _, err = io.Copy(tmp, r); err != nil {
		return
	}
	if err = tmp.Sync(); err != nil {
		return
	}
	if err = tmp.Chmod(mode); err != nil {
		return
	}
	if err = tmp.Close(); err != nil {
		return
	}
	return os.Rename(name, dest)
}

func (x *Extractor) inPlace(key PlatformKey, entries []LibraryEntry) (files []ExtractedFile, err error) {
	root, err := filepath.Abs(x.Disk)
	if err != nil {
		return nil, newError(KindExtraction, x.Disk, "resolve resource directory", err)
	}
	for _, e := range entries {
		src := ResourcePath(key, e.File)
		f := ExtractedFile{Source: "/" + src, Dest: filepath.Join(root, filepath.FromSlash(src)), Executable: key.OS != Windows}
		var fi os.FileInfo
		if fi, err = os.Stat(f.Dest); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if x.Fallback {
					files = append(files, x.system(e, f.Source))
					err = nil
					continue
				}
				return nil, newError(KindResourceNotFound, f.Source, "native library not packaged", err)
			}
			return nil, newError(KindExtraction, f.Source, "stat "+f.Dest, err)
		}
		if fi.IsDir() {
			return nil, newError(KindResourceNotFound, f.Source, "resource is a directory", nil)
		}
		x.log().Debug("using native library in place", zap.String("path", f.Dest))
		files = append(files, f)
	}
	return
}

func (x *Extractor) system(e LibraryEntry, source string) ExtractedFile {
	x.log().Warn("native library not packaged, falling back to the system search path",
		zap.String("resource", source), zap.String("name", e.File))
	return ExtractedFile{Source: source, Dest: e.File, System: true}
}

// File registers a file for removal.
func (j *Janitor) File(p string) {
	j.add(&j.files, p)
}

// Dir registers a directory for removal, after every file.
func (j *Janitor) Dir(p string) {
	j.add(&j.dirs, p)
}

func (j *Janitor) add(to *[]string, p string) {
	j.Lock()
	defer j.Unlock()
	if j.seen == nil {
		j.seen = make(map[string]struct{})
	}
	if _, ok := j.seen[p]; ok {
		return
	}
	j.seen[p] = struct{}{}
	*to = append(*to, p)
}

// Clean removes files, then directories in reverse registration order.
// Paths already gone are not errors; everything else is collected, nothing stops the sweep.
func (j *Janitor) Clean() (err error) {
	j.Lock()
	files, dirs := j.files, j.dirs
	j.files, j.dirs, j.seen = nil, nil, nil
	j.Unlock()
	for _, f := range files {
		if e := os.Remove(f); e != nil && !errors.Is(e, fs.ErrNotExist) {
			err = multierr.Append(err, e)
		}
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if e := os.RemoveAll(dirs[i]); e != nil {
			err = multierr.Append(err, e)
		}
	}
	return
}

// Pending lists registered paths not yet cleaned.
func (j *Janitor) Pending() []string {
	j.Lock()
	defer j.Unlock()
	return append(append([]string(nil), j.files...), j.dirs...)
}
