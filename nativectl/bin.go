package main

import (
	"fmt"
	. "github.com/ZenLiuCN/native"
	"github.com/ZenLiuCN/native/pool"
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"log"
	"os"
	"path/filepath"
	"runtime"
)

func main() {
	app := cli.NewApp()
	app.Name = "nativectl"
	app.Usage = "native library bootstrap tool"
	app.Description = "inspect the native library manifest, extract and load packaged libraries"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "debug logging"},
		&cli.BoolFlag{Name: "dump", Usage: "dump results instead of printing them"},
		&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, EnvVars: []string{"NATIVE_MANIFEST"}, Usage: "YAML manifest, the built-in table when empty"},
		&cli.StringFlag{Name: "resources", Aliases: []string{"r"}, EnvVars: []string{"NATIVE_RESOURCES"}, Value: ".", Usage: "directory containing native/<os>/<arch>/"},
		&cli.StringFlag{Name: "os", Usage: "OS name override, as reported by the environment"},
		&cli.StringFlag{Name: "arch", Usage: "CPU architecture override"},
	}
	app.Before = func(ctx *cli.Context) (err error) {
		if ctx.Bool("debug") {
			var l *zap.Logger
			if l, err = zap.NewDevelopment(); err != nil {
				return
			}
			SetLogger(l)
		}
		return
	}
	app.Commands = []*cli.Command{
		{
			Name:   "platform",
			Action: platform,
			Usage:  "display the resolved platform key",
		},
		{
			Name:   "manifest",
			Action: manifest,
			Usage:  "validate and display the manifest, or the libraries of the resolved platform with --platform",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "platform", Aliases: []string{"p"}, Usage: "only the resolved platform"},
			},
		},
		{
			Name:   "extract",
			Action: extract,
			Usage:  "extract the libraries of the resolved platform",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "parent directory of the extraction directory"},
			},
		},
		{
			Name:   "load",
			Action: load,
			Usage:  "bootstrap the native libraries, report and clean up",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "in-place", Usage: "load from the resources directory without extracting"},
				&cli.BoolFlag{Name: "system-fallback", Usage: "load libraries missing from the resources by name from the system search path"},
			},
		},
		{
			Name:   "frames",
			Action: frames,
			Usage:  "drive a frame indexed pool the way a render loop does",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "in-flight", Aliases: []string{"f"}, Value: 3, Usage: "frames in flight"},
				&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1000, Usage: "frames to run"},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("failure %s", err)
	}
}

func resolver(ctx *cli.Context) Resolver {
	r := Host()
	if o, a := ctx.String("os"), ctx.String("arch"); o != "" || a != "" {
		if o == "" {
			o = runtime.GOOS
		}
		if a == "" {
			a = runtime.GOARCH
		}
		r = NewResolver(o, a)
	}
	return r
}

func loadManifest(ctx *cli.Context) (*Manifest, error) {
	if p := ctx.String("manifest"); p != "" {
		return LoadManifest(p)
	}
	m := DefaultManifest()
	return m, m.Validate()
}

func show(ctx *cli.Context, v ...any) {
	if ctx.Bool("dump") {
		spew.Dump(v...)
		return
	}
	for _, x := range v {
		fmt.Println(x)
	}
}

func platform(ctx *cli.Context) error {
	show(ctx, resolver(ctx).Resolve())
	return nil
}

func manifest(ctx *cli.Context) (err error) {
	var m *Manifest
	if m, err = loadManifest(ctx); err != nil {
		return
	}
	if ctx.Bool("platform") {
		key := resolver(ctx).Resolve()
		var e []LibraryEntry
		if e, err = m.FilesFor(key); err != nil {
			return
		}
		if ctx.Bool("dump") {
			spew.Dump(key, m.OrderFor(key), e)
			return
		}
		fmt.Printf("%s (%s)\n", key, m.OrderFor(key))
		for _, x := range e {
			if x.Core {
				fmt.Printf("\t%s\tcore\n", x.File)
			} else {
				fmt.Printf("\t%s\n", x.File)
			}
		}
		return
	}
	var b []byte
	if b, err = m.Marshal(); err != nil {
		return
	}
	fmt.Print(string(b))
	return
}

func extract(ctx *cli.Context) (err error) {
	var m *Manifest
	if m, err = loadManifest(ctx); err != nil {
		return
	}
	key := resolver(ctx).Resolve()
	var e []LibraryEntry
	if e, err = m.FilesFor(key); err != nil {
		return
	}
	x := &Extractor{Source: os.DirFS(ctx.String("resources")), TempDir: ctx.String("out"), Prefix: "nativectl", Logger: Logger()}
	var files []ExtractedFile
	if files, err = x.Extract(key, e); err != nil {
		return
	}
	if ctx.Bool("dump") {
		spew.Dump(files)
		return
	}
	for _, f := range files {
		fmt.Printf("%s => %s\n", f.Source, f.Dest)
	}
	return
}

func load(ctx *cli.Context) (err error) {
	var m *Manifest
	if m, err = loadManifest(ctx); err != nil {
		return
	}
	res := ctx.String("resources")
	opts := []Option{WithManifest(m), WithResolver(resolver(ctx))}
	if ctx.Bool("in-place") {
		var abs string
		if abs, err = filepath.Abs(res); err != nil {
			return
		}
		opts = append(opts, WithInPlace(abs))
	}
	if ctx.Bool("system-fallback") {
		opts = append(opts, WithSystemFallback())
	}
	b := New(os.DirFS(res), opts...)
	defer b.Shutdown()
	if err = b.Initialize(); err != nil {
		return
	}
	if ctx.Bool("dump") {
		spew.Dump(b.State(), b.Platform(), b.Files(), b.Loaded())
		return
	}
	fmt.Printf("%s %s\n", b.Platform(), b.State())
	for _, p := range b.Loaded() {
		fmt.Printf("\t%s\n", p)
	}
	return
}

type frameDesc struct {
	frame   int
	targets []int
}

func frames(ctx *cli.Context) (err error) {
	n, count := ctx.Int("in-flight"), ctx.Int("count")
	if n <= 0 {
		return fmt.Errorf("frames in flight must be positive, got %d", n)
	}
	r := pool.NewRegistry()
	seen := make(map[*frameDesc]struct{})
	for i := 0; i < count; i++ {
		var d *frameDesc
		if d, err = pool.Of(r, "frame", n, i%n, func() *frameDesc { return new(frameDesc) }); err != nil {
			return
		}
		d.frame = i
		d.targets = append(d.targets[:0], i%n)
		seen[d] = struct{}{}
	}
	show(ctx, fmt.Sprintf("%d frames, %d in flight, %d descriptors", count, n, len(seen)))
	return
}
