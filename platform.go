package native

import (
	"runtime"
	"strings"
)

type (
	// OS is the operating system bucket of a library set.
	OS string
	// Arch is the CPU architecture bucket of a library set.
	Arch string
	// PlatformKey selects a library set. It never changes during a process.
	PlatformKey struct {
		OS   OS
		Arch Arch
	}
	// Resolver classifies the two environment strings captured at construction.
	Resolver struct {
		osName string
		arch   string
	}
)

const (
	Windows OS = "windows"
	MacOS   OS = "macos"
	Linux   OS = "linux"
)

const (
	X64     Arch = "x64"
	ARM64   Arch = "arm64"
	ARM     Arch = "arm"
	X86     Arch = "x86"
	Unknown Arch = "unknown"
)

// NewResolver captures an OS name and an architecture string, such as "Mac OS X" and "aarch64".
func NewResolver(osName, arch string) Resolver {
	return Resolver{osName: osName, arch: arch}
}

// Host returns a resolver for the running process.
func Host() Resolver {
	return NewResolver(runtime.GOOS, runtime.GOARCH)
}

// Resolve classifies the captured strings. Anything not recognised as windows or macos is linux,
// anything not recognised as an architecture is Unknown.
func (r Resolver) Resolve() PlatformKey {
	return PlatformKey{OS: ResolveOS(r.osName), Arch: ResolveArch(r.arch)}
}

// ResolveOS classifies an OS name by case-insensitive substring.
func ResolveOS(name string) OS {
	name = strings.ToLower(name)
	switch {
	// darwin contains "win", so it goes first
	case strings.Contains(name, "mac"), strings.Contains(name, "darwin"):
		return MacOS
	case strings.Contains(name, "win"):
		return Windows
	default:
		return Linux
	}
}

// ResolveArch classifies a CPU architecture by case-insensitive substring.
func ResolveArch(arch string) Arch {
	arch = strings.ToLower(arch)
	switch {
	case strings.Contains(arch, "amd64"), strings.Contains(arch, "x86_64"), strings.Contains(arch, "x64"):
		return X64
	case strings.Contains(arch, "aarch64"), strings.Contains(arch, "arm64"):
		return ARM64
	case strings.Contains(arch, "arm"):
		return ARM
	case strings.Contains(arch, "86"):
		return X86
	default:
		return Unknown
	}
}

// Dir is the resource directory of the key, as "<os>/<arch>".
func (k PlatformKey) Dir() string {
	return string(k.OS) + "/" + string(k.Arch)
}

func (k PlatformKey) String() string {
	return k.Dir()
}
