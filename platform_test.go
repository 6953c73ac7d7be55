package native

import (
	"runtime"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		os, arch string
		want     PlatformKey
	}{
		{"Windows 10", "amd64", PlatformKey{Windows, X64}},
		{"Mac OS X", "aarch64", PlatformKey{MacOS, ARM64}},
		{"Linux", "i686", PlatformKey{Linux, X86}},
		{"SunOS", "sparc", PlatformKey{Linux, Unknown}},
		{"darwin", "arm64", PlatformKey{MacOS, ARM64}},
		{"windows", "386", PlatformKey{Windows, X86}},
		{"linux", "x86_64", PlatformKey{Linux, X64}},
		{"Linux", "armv7l", PlatformKey{Linux, ARM}},
		{"FreeBSD", "riscv64", PlatformKey{Linux, Unknown}},
	}
	for _, tt := range tests {
		t.Run(tt.os+"/"+tt.arch, func(t *testing.T) {
			r := NewResolver(tt.os, tt.arch)
			if got := r.Resolve(); got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
			if got := r.Resolve(); got != tt.want {
				t.Errorf("second Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHost(t *testing.T) {
	k := Host().Resolve()
	t.Log(k)
	switch runtime.GOOS {
	case "windows":
		if k.OS != Windows {
			t.Errorf("host os %v", k.OS)
		}
	case "darwin":
		if k.OS != MacOS {
			t.Errorf("host os %v", k.OS)
		}
	case "linux":
		if k.OS != Linux {
			t.Errorf("host os %v", k.OS)
		}
	}
	if runtime.GOARCH == "amd64" && k.Arch != X64 {
		t.Errorf("host arch %v", k.Arch)
	}
}

func TestPlatformKeyDir(t *testing.T) {
	if d := (PlatformKey{MacOS, ARM64}).Dir(); d != "macos/arm64" {
		t.Errorf("Dir() = %s", d)
	}
	if p := ResourcePath(PlatformKey{Linux, X64}, "libdxcompiler.so"); p != "native/linux/x64/libdxcompiler.so" {
		t.Errorf("ResourcePath() = %s", p)
	}
}
