// Package webapp provides the embedded static assets for the dump page.
package webapp

import "embed"

//go:embed static
var Assets embed.FS
