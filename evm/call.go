package evm

import (
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	chainutils "github.com/meridianlabs/chainutils"
)

func ethereumCallMsg(to common.Address, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{To: &to, Data: data}
}

// hostOf is the package-local name for chainutils.HostOf, kept so every
// ChainAdapter method in this file reads the same way it did before the
// helper moved to the shared package.
func hostOf(rawURL string) string {
	return chainutils.HostOf(rawURL)
}
