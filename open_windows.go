//go:build windows

package native

import (
	"golang.org/x/sys/windows"
)

// SystemOpener opens libraries with LoadLibraryEx. The altered search path makes the
// directory of the library the first place its own imports are looked up.
func SystemOpener() Opener {
	return OpenerFunc(func(path string) (Handle, error) {
		h, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
		if err != nil {
			return 0, err
		}
		return Handle(h), nil
	})
}
