//go:build !(darwin || freebsd || linux || windows)

package native

import (
	"runtime"
)

// SystemOpener is unavailable on this platform, every Open fails with ErrLibraryLoad.
func SystemOpener() Opener {
	return OpenerFunc(func(path string) (Handle, error) {
		return 0, newError(KindLibraryLoad, path, "dynamic loading unsupported on "+runtime.GOOS, nil)
	})
}

// Bind always fails with ErrMissingSymbol, no library can be loaded on this platform.
func Bind(fptr any, h Handle, name string) error {
	return newError(KindMissingSymbol, name, "dynamic loading unsupported on "+runtime.GOOS, nil)
}
