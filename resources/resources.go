package resources

import "embed"

//go:embed migrations roles.yml
var FS embed.FS
