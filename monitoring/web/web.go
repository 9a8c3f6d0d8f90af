// Package web includes the static page of the monitoring server.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"runtime"
	"strings"
)

//go:embed dist/*
var staticAssets embed.FS

// DevEnv is the environment variable that switches to serving the page from
// the source tree, so that it can be edited without rebuilding.
const DevEnv = "GUTSIM_MONITOR_DEV"

// GetAssets returns the dashboard files, embedded unless DevEnv is set.
func GetAssets() http.FileSystem {
	if devMode() {
		_, self, _, ok := runtime.Caller(0)
		if !ok {
			panic("cannot locate monitor page sources")
		}

		dir := path.Join(path.Dir(self), "dist")
		fmt.Fprintf(os.Stderr, "monitor page served from %s\n", dir)

		return http.Dir(dir)
	}

	subFS, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(subFS)
}

func devMode() bool {
	v, ok := os.LookupEnv(DevEnv)
	if !ok {
		return false
	}

	return strings.EqualFold(v, "true") || v == "1"
}
