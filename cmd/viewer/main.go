package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
)

func main() {
	// SDL event handling must stay on the main OS thread.
	runtime.LockOSThread()

	texturePath := flag.String("texture", "", "PNG texture for the model; plain white when omitted")
	vertexShaderPath := flag.String("vert", "shaders/vert.spv", "compiled vertex shader")
	fragmentShaderPath := flag.String("frag", "shaders/frag.spv", "compiled fragment shader")
	cachePath := flag.String("pipeline-cache", "pipeline_cache_data.bin", "pipeline cache file; empty disables caching")
	validation := flag.Bool("validation", false, "enable the Khronos validation layer")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <model.obj>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	app, err := newApp(appConfig{
		modelPath:   flag.Arg(0),
		texturePath: *texturePath,

		vertexShaderPath:   *vertexShaderPath,
		fragmentShaderPath: *fragmentShaderPath,
		cachePath:          *cachePath,

		validation: *validation,
	})
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	err = app.run()

	// Destroyed before the error check: log.Fatalf does not run defers,
	// and teardown is what persists the pipeline cache.
	app.Destroy()

	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
