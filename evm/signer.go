package evm

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	chainutils "github.com/meridianlabs/chainutils"
)

// NewPrivateKeySigner returns the pure signing primitive §1 treats as an
// external collaborator: given the RLP-encoded unsigned transaction this
// package's BuildCall produced, sign it with privateKeyHex and return the
// fully serialized signed transaction, ready for SendRaw. No network I/O
// happens here.
func NewPrivateKeySigner(chainID chainutils.ChainId, networkID uint64, privateKeyHex string) (func([]byte) ([]byte, error), error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, chainutils.NewChainErrorFor(chainID, "invalid private key", err)
	}
	return privateKeySignFunc(key, networkID), nil
}

func privateKeySignFunc(key *ecdsa.PrivateKey, networkID uint64) func([]byte) ([]byte, error) {
	signer := types.NewLondonSigner(new(big.Int).SetUint64(networkID))
	return func(payload []byte) ([]byte, error) {
		var unsigned types.Transaction
		if err := rlp.DecodeBytes(payload, &unsigned); err != nil {
			return nil, err
		}
		signed, err := types.SignTx(&unsigned, signer, key)
		if err != nil {
			return nil, err
		}
		return rlp.EncodeToBytes(signed)
	}
}
