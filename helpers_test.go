package native

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing/fstest"
)

var linux64 = PlatformKey{Linux, X64}

// packaged builds resources for every entry of key, content is the file name.
func packaged(key PlatformKey, entries []LibraryEntry) fstest.MapFS {
	m := fstest.MapFS{}
	for _, e := range entries {
		m[ResourcePath(key, e.File)] = &fstest.MapFile{Data: []byte(e.File), Mode: 0o644}
	}
	return m
}

// countingFS counts opened resources.
type countingFS struct {
	fs.FS
	opens atomic.Int32
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opens.Add(1)
	return c.FS.Open(name)
}

// fakeOpener records every opened path and fails for paths in fail.
type fakeOpener struct {
	sync.Mutex
	opened []string
	fail   map[string]error
}

func (o *fakeOpener) Open(path string) (Handle, error) {
	o.Lock()
	defer o.Unlock()
	if err, ok := o.fail[filepath.Base(path)]; ok {
		return 0, err
	}
	o.opened = append(o.opened, path)
	return Handle(len(o.opened)), nil
}

func (o *fakeOpener) names() (n []string) {
	o.Lock()
	defer o.Unlock()
	for _, p := range o.opened {
		n = append(n, filepath.Base(p))
	}
	return
}

func (o *fakeOpener) count(path string) (n int) {
	o.Lock()
	defer o.Unlock()
	for _, p := range o.opened {
		if p == path {
			n++
		}
	}
	return
}

var errBadFormat = errors.New("invalid ELF header")
