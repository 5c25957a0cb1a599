package evm

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	chainutils "github.com/meridianlabs/chainutils"
)

// writeMethodNames is the per-chain constant set from §4.2: the
// operations that mutate chain state and so must execute on exactly one
// pool member.
var writeMethodNames = map[string]struct{}{
	"sendRawTransaction": {},
	"sendTransaction":    {},
	"replaceTransaction": {},
}

// Adapter is the EVM-family reference Chain Adapter, parameterised by a
// ChainId and a network id rather than expressed as a subclass per chain.
type Adapter struct {
	chainID         chainutils.ChainId
	networkID       *big.Int
	supportsEIP1559 bool
	abi             *chainutils.AbiLoader
	logger          *zap.Logger
}

// NewAdapter constructs the reference adapter for chainID / networkID.
// supportsEIP1559 reflects whether the chain accepts type-2 transactions;
// every chain in this module's registry does except where the caller
// explicitly disables it for a legacy-only fork.
func NewAdapter(chainID chainutils.ChainId, networkID uint64, supportsEIP1559 bool, source chainutils.AbiSource, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := chainutils.NewAbiLoader(chainID, source, parseAbi, []string{"v1.0.0"})
	return &Adapter{
		chainID:         chainID,
		networkID:       new(big.Int).SetUint64(networkID),
		supportsEIP1559: supportsEIP1559,
		abi:             loader,
		logger:          logger,
	}
}

func parseAbi(raw []byte) (any, error) {
	parsed, err := ethabi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ChainId implements chainutils.ChainAdapter.
func (a *Adapter) ChainId() chainutils.ChainId {
	return a.chainID
}

// WriteMethodNames implements chainutils.ChainAdapter.
func (a *Adapter) WriteMethodNames() map[string]struct{} {
	return writeMethodNames
}

// BuildSingleConnection implements chainutils.ChainAdapter.
func (a *Adapter) BuildSingleConnection(ctx context.Context, url string, timeouts chainutils.ConnectTimeouts) (chainutils.NodeConnection, error) {
	dialCtx := ctx
	var cancel context.CancelFunc
	if timeouts.Connect > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, timeouts.Connect)
		defer cancel()
	}
	conn, err := dial(dialCtx, url, isPoaChain(a.chainID))
	if err != nil {
		return nil, chainutils.NewSingleNodeConnectionError("unable to connect to "+url, err)
	}
	return conn, nil
}

func isPoaChain(chain chainutils.ChainId) bool {
	switch chain {
	case chainutils.ChainIdBnbChain, chainutils.ChainIdPolygon:
		return true
	default:
		return false
	}
}

// AddressOf implements chainutils.ChainAdapter.
func (a *Adapter) AddressOf(privateKeyHex string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", chainutils.NewChainErrorFor(a.chainID, "invalid private key", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

// DecryptKey implements chainutils.ChainAdapter.
func (a *Adapter) DecryptKey(encryptedBlob []byte, password string) (string, error) {
	key, err := keystore.DecryptKey(encryptedBlob, password)
	if err != nil {
		return "", chainutils.NewChainErrorFor(a.chainID, "unable to decrypt key", err)
	}
	return hex.EncodeToString(crypto.FromECDSA(key.PrivateKey)), nil
}

// IsValidAddress implements chainutils.ChainAdapter. An all-lowercase or
// all-uppercase hex address is accepted on syntax alone; a mixed-case one
// must satisfy the EIP-55 checksum (computed directly with
// golang.org/x/crypto/sha3 rather than delegating to go-ethereum's own
// wrapper, so the real checksum algorithm is legible at this call site).
func (a *Adapter) IsValidAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	hexPart := strings.TrimPrefix(s, "0x")
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return true
	}
	return hexPart == eip55Checksum(hexPart)
}

// eip55Checksum upper-cases each hex digit of hexPart whose corresponding
// nibble in the Keccak-256 hash of the lowercase address is >= 8, per
// EIP-55.
func eip55Checksum(hexPart string) string {
	lower := strings.ToLower(hexPart)
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	hash := hasher.Sum(nil)

	out := make([]byte, len(lower))
	for i, c := range []byte(lower) {
		if c >= '0' && c <= '9' {
			out[i] = c
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 'a' + 'A'
		} else {
			out[i] = c
		}
	}
	return string(out)
}

// IsEqualAddress implements chainutils.ChainAdapter.
func (a *Adapter) IsEqualAddress(x, y string) bool {
	return common.HexToAddress(x) == common.HexToAddress(y)
}

// Balance implements chainutils.ChainAdapter. Unlike the fee-assembly
// reads in fee.go, a balance is expected to agree exactly across every
// pool member; disagreement is reconciled by value equality and raises
// ErrResultsNotMatching rather than silently picking the lowest report.
func (a *Adapter) Balance(ctx context.Context, pool *chainutils.NodePool, account string, tokenContract *string) (chainutils.BigResult, error) {
	addr := common.HexToAddress(account)

	if tokenContract == nil {
		value, err := chainutils.ReconcileBigInt(pool, func(c chainutils.NodeConnection) (*big.Int, error) {
			return c.(*Connection).Client().BalanceAt(ctx, addr, nil)
		})
		if err != nil {
			return chainutils.BigResult{}, err
		}
		return chainutils.BigResult{Value: value}, nil
	}

	parsed, err := a.abi.Load(chainutils.ContractAbiRef{Kind: "erc20"})
	if err != nil {
		return chainutils.BigResult{}, err
	}
	abiObj := parsed.Impl.(*ethabi.ABI)
	packed, err := abiObj.Pack("balanceOf", addr)
	if err != nil {
		return chainutils.BigResult{}, chainutils.NewChainErrorFor(a.chainID, "unable to pack balanceOf call", err)
	}
	contractAddr := common.HexToAddress(*tokenContract)

	value, err := chainutils.ReconcileBigInt(pool, func(c chainutils.NodeConnection) (*big.Int, error) {
		out, callErr := c.(*Connection).Client().CallContract(ctx, ethereumCallMsg(contractAddr, packed), nil)
		if callErr != nil {
			return nil, chainutils.NewChainErrorFor(a.chainID, "balanceOf call failed", callErr)
		}
		return new(big.Int).SetBytes(out), nil
	})
	if err != nil {
		return chainutils.BigResult{}, err
	}
	return chainutils.BigResult{Value: value}, nil
}

// ReadReceipt implements chainutils.ChainAdapter. It does not reconcile
// across the pool: a transaction hash is either known to a member or it
// is not, and differing propagation delay across nodes is expected, not a
// fault.
func (a *Adapter) ReadReceipt(ctx context.Context, pool *chainutils.NodePool, txId string) (chainutils.TransactionReceipt, error) {
	hash := common.HexToHash(txId)
	var lastErr error
	for _, member := range pool.Members() {
		conn := member.(*Connection)
		currentBlock, err := conn.Client().BlockNumber(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		receipt, err := conn.Client().TransactionReceipt(ctx, hash)
		if err != nil {
			return chainutils.TransactionReceipt{
				Hash:         txId,
				StatusCode:   chainutils.StatusUnincluded,
				CurrentBlock: currentBlock,
			}, nil
		}
		status := chainutils.StatusReverted
		if receipt.Status == types.ReceiptStatusSuccessful {
			if currentBlock-receipt.BlockNumber.Uint64() >= requiredConfirmationsFloor {
				status = chainutils.StatusConfirmed
			} else {
				status = chainutils.StatusUnconfirmed
			}
		}
		blockNumber := receipt.BlockNumber.Uint64()
		return chainutils.TransactionReceipt{
			Hash:         txId,
			BlockNumber:  &blockNumber,
			StatusCode:   status,
			CurrentBlock: currentBlock,
		}, nil
	}
	return chainutils.TransactionReceipt{}, chainutils.NewChainErrorFor(a.chainID, "unable to read transaction receipt from any node", lastErr)
}

// requiredConfirmationsFloor is the confirmation depth ReadReceipt uses
// for its own Unconfirmed/Confirmed split. The scheduler package treats a
// StatusConfirmed reported here as terminal; its RequiredConfirmations
// setting only sets how long it waits before re-reading an Unconfirmed
// transaction.
const requiredConfirmationsFloor = 1

// SendRaw implements chainutils.ChainAdapter.
func (a *Adapter) SendRaw(ctx context.Context, nc chainutils.NodeConnection, raw []byte) (string, chainutils.SendErrorKind, error) {
	var tx types.Transaction
	if err := rlp.DecodeBytes(raw, &tx); err != nil {
		return "", chainutils.SendErrorOther, chainutils.NewChainErrorFor(a.chainID, "malformed raw transaction", err)
	}

	conn := nc.(*Connection)
	err := conn.Client().SendTransaction(ctx, &tx)
	if err == nil {
		return tx.Hash().Hex(), chainutils.SendErrorOther, nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "nonce too low"), strings.Contains(msg, "invalid nonce"), strings.Contains(msg, "err_incorrect_nonce"):
		return "", chainutils.SendErrorNonceTooLow, err
	case strings.Contains(msg, "transaction underpriced"):
		return "", chainutils.SendErrorUnderpriced, err
	default:
		return "", chainutils.SendErrorOther, err
	}
}

// BuildCall implements chainutils.ChainAdapter.
func (a *Adapter) BuildCall(ctx context.Context, pool *chainutils.NodePool, req chainutils.TransactionSubmissionRequest, fromAddress string) (chainutils.CallBuild, error) {
	fee, err := a.assembleFee(ctx, pool, req)
	if err != nil {
		return chainutils.CallBuild{}, err
	}

	parsed, err := a.abi.Load(req.ContractAbi)
	if err != nil {
		return chainutils.CallBuild{}, err
	}
	abiObj := parsed.Impl.(*ethabi.ABI)
	method, ok := abiObj.Methods[req.FunctionSelector]
	if !ok {
		return chainutils.CallBuild{}, chainutils.NewChainErrorFor(a.chainID, fmt.Sprintf("unknown function selector %q", req.FunctionSelector), nil)
	}
	data, err := abiObj.Pack(method.Name, req.FunctionArgs...)
	if err != nil {
		return chainutils.CallBuild{}, chainutils.NewChainErrorFor(a.chainID, "unable to pack function arguments", err)
	}

	gasLimit := uint64(100000)
	if req.GasLimit != nil {
		gasLimit = *req.GasLimit
	}
	amount := big.NewInt(0)
	if req.Amount != nil {
		amount = req.Amount
	}
	to := common.HexToAddress(req.ContractAddress)

	var tx *types.Transaction
	if fee.eip1559 {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   a.networkID,
			Nonce:     req.Nonce,
			GasTipCap: fee.maxPriorityFeePerGas,
			GasFeeCap: fee.maxFeePerGas,
			Gas:       gasLimit,
			To:        &to,
			Value:     amount,
			Data:      data,
		})
	} else {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    req.Nonce,
			GasPrice: fee.gasPrice,
			Gas:      gasLimit,
			To:       &to,
			Value:    amount,
			Data:     data,
		})
	}

	payload, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return chainutils.CallBuild{}, chainutils.NewChainErrorFor(a.chainID, "unable to encode unsigned transaction", err)
	}

	return chainutils.CallBuild{
		SigningPayload:     payload,
		AdaptableFeePerGas: fee.adaptableFeePerGas,
	}, nil
}

// LoadAbi implements chainutils.ChainAdapter.
func (a *Adapter) LoadAbi(ref chainutils.ContractAbiRef) (chainutils.ParsedAbi, error) {
	return a.abi.Load(ref)
}

// IsProtocolVersionSupportedByContract implements chainutils.ChainAdapter.
func (a *Adapter) IsProtocolVersionSupportedByContract(ctx context.Context, pool *chainutils.NodePool, addr string, ref chainutils.ContractAbiRef) (bool, error) {
	parsed, err := a.abi.Load(ref)
	if err != nil {
		return false, err
	}
	abiObj := parsed.Impl.(*ethabi.ABI)
	method, ok := abiObj.Methods["getProtocolVersion"]
	if !ok {
		return false, chainutils.NewChainErrorFor(a.chainID, "contract ABI has no protocol version getter", nil)
	}
	data, err := abiObj.Pack(method.Name)
	if err != nil {
		return false, chainutils.NewChainErrorFor(a.chainID, "unable to pack protocol version call", err)
	}
	contractAddr := common.HexToAddress(addr)

	reported, err := chainutils.Reconcile(pool, func(c chainutils.NodeConnection) (string, error) {
		out, callErr := c.(*Connection).Client().CallContract(ctx, ethereumCallMsg(contractAddr, data), nil)
		if callErr != nil {
			return "", chainutils.NewChainErrorFor(a.chainID, "protocol version call failed", callErr)
		}
		results, unpackErr := abiObj.Unpack(method.Name, out)
		if unpackErr != nil || len(results) == 0 {
			return "", chainutils.NewChainErrorFor(a.chainID, "unable to unpack protocol version result", unpackErr)
		}
		version, _ := results[0].(string)
		return version, nil
	})
	if err != nil {
		return false, err
	}
	return a.abi.SupportsVersion(reported), nil
}

// UnhealthyEndpoints implements chainutils.ChainAdapter.
func (a *Adapter) UnhealthyEndpoints(ctx context.Context, urls []string, timeouts chainutils.ConnectTimeouts) []chainutils.UnhealthyNode {
	var unhealthy []chainutils.UnhealthyNode
	for _, u := range urls {
		if _, err := a.BuildSingleConnection(ctx, u, timeouts); err != nil {
			unhealthy = append(unhealthy, chainutils.UnhealthyNode{Host: hostOf(u), Status: "unreachable"})
		}
	}
	return unhealthy
}
