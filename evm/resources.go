package evm

import (
	"embed"
	"fmt"
	"strings"

	chainutils "github.com/meridianlabs/chainutils"
)

//go:embed resources
var resourceFS embed.FS

// embeddedAbiSource resolves ABI bytes from the embedded resource tree
// rooted at resources/v<major>_<minor>_<patch>/<chain-lowercase>_<kind>.abi,
// per the fixed package-relative resource layout.
type embeddedAbiSource struct{}

func (embeddedAbiSource) Read(version string, chain chainutils.ChainId, kind chainutils.AbiKind) ([]byte, error) {
	dir := "v" + strings.ReplaceAll(strings.TrimPrefix(version, "v"), ".", "_")
	file := fmt.Sprintf("resources/%s/%s_%s.abi", dir, chain.Name(), strings.ToLower(string(kind)))
	return resourceFS.ReadFile(file)
}

// DefaultAbiSource is the production AbiSource backed by the bundled
// resource tree.
var DefaultAbiSource chainutils.AbiSource = embeddedAbiSource{}
