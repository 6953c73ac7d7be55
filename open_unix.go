//go:build darwin || freebsd || linux

package native

import (
	"github.com/ebitengine/purego"
)

// SystemOpener opens libraries with dlopen. RTLD_GLOBAL lets a later library resolve
// symbols of the dependencies loaded before it.
func SystemOpener() Opener {
	return OpenerFunc(func(path string) (Handle, error) {
		h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			return 0, err
		}
		return Handle(h), nil
	})
}
