//go:build darwin || freebsd || linux || windows

package native

import (
	"fmt"
	"github.com/ebitengine/purego"
)

// Bind points fptr, a pointer to a func variable, at an exported C function of a loaded library.
// A missing symbol or an unsupported signature fails with ErrMissingSymbol.
func Bind(fptr any, h Handle, name string) (err error) {
	if h == 0 {
		return newError(KindMissingSymbol, name, "library not loaded", nil)
	}
	defer func() {
		switch r := recover().(type) {
		case nil:
		case error:
			err = newError(KindMissingSymbol, name, "", r)
		default:
			err = newError(KindMissingSymbol, name, fmt.Sprint(r), nil)
		}
	}()
	purego.RegisterLibFunc(fptr, uintptr(h), name)
	return
}
