/*
Package native bootstraps the packaged native libraries of the graphics engine.

# Underwater

 1. The running platform is classified into an (os, arch) key, see [Resolver].
 2. The [Manifest] names the libraries of the key, exactly one of them is the core library,
    the rest are its dependencies.
 3. The [Extractor] copies each library from native/<os>/<arch>/<file> of the packaged resources
    (usually an embed.FS) into one temporary directory.
 4. The [Loader] maps them into the process, dependencies first by default, each absolute path once.

[Bootstrap] runs these steps once, no matter how many goroutines call [Bootstrap.Initialize].

# Notes

 1. The process entry point owns the [Bootstrap]: create it, Initialize before any native call,
    call [Bootstrap.Shutdown] after the main loop exits.
 2. A failed Initialize leaves the bootstrap uninitialized. Calling it again retries everything;
    libraries loaded by the failed attempt are neither extracted nor loaded twice.
 3. Native code can't be unloaded safely once mapped, there is no cancel and no unload.
 4. Exported functions of the core library are bound with [Bind] or [Use].
 5. With [WithSystemFallback] a library missing from the resources is loaded by file name
    through the system search path.

# Manifest

The built-in table is [DefaultManifest]. A YAML manifest replaces it:

	report_symbol: DZReportLiveObjects
	platforms:
	  linux:
	    order: dependencies-first
	    libraries:
	      - file: libdxcompiler.so
	      - file: libDenOfIzGraphicsJava.so
	        core: true

# Command line tool

The nativectl tool inspects manifests, extracts and loads libraries:

	go install github.com/ZenLiuCN/native/nativectl@latest

For more details see the cli help:

	nativectl -h

# Frame pool

Package pool holds per-frame objects of a render loop, see github.com/ZenLiuCN/native/pool.
*/
package native
