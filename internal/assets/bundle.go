package assets

import (
	"embed"
	"io/fs"
)

//go:generate go run ../../tools/fetch-assets --manifest payload/manifest.yaml --out payload

//go:embed all:payload
var payloadFS embed.FS

// Bundle returns the embedded payload directory, rooted so that
// "manifest.yaml" is at the top.
func Bundle() fs.FS {
	sub, err := fs.Sub(payloadFS, "payload")
	if err != nil {
		panic(err)
	}
	return sub
}
