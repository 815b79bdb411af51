// Package fixtures bundles the demo documents the console serves when no
// API origin is configured. Paths mirror the API: /subscriptions?team_id=x
// is subscriptions.json.
package fixtures

import (
	"embed"
	"io/fs"
)

//go:embed data
var data embed.FS

// FS is rooted at the fixture directory.
var FS fs.FS

func init() {
	sub, err := fs.Sub(data, "data")
	if err != nil {
		panic(err)
	}
	FS = sub
}
