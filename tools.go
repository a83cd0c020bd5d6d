//go:build tools

package tools

// Tool dependencies, tracked as blank imports so go.mod pins their
// versions. Run `go run github.com/vektra/mockery/v2` from the repo
// root to regenerate mocks, and `go run golang.org/x/tools/cmd/stringer`
// for enum String methods.
import (
	_ "github.com/vektra/mockery/v2"
	_ "golang.org/x/tools/cmd/stringer"
)
