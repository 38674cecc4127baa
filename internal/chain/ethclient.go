package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/Ash20pk/breakchain-sub000/internal/chain/bindings"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
)

// EthClient is the production Client, wrapping go-ethereum's ethclient and
// the hand-written Dispatcher binding. One EthClient is shared by every
// Account in a pool; it holds no per-account mutable state.
type EthClient struct {
	rpc        *ethclient.Client
	dispatcher *bindings.Dispatcher
	chainID    *big.Int
}

// DialEthClient connects to rpcURL and binds contractAddr as the
// Dispatcher contract. chainID is required up front (rather than queried
// lazily) so every signed transaction is replay-protected from the first
// submission, matching go-ethereum's own NewKeyedTransactorWithChainID
// idiom.
func DialEthClient(ctx context.Context, rpcURL, contractAddr string, chainID *big.Int) (*EthClient, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "dial rpc: %v", err)
	}
	d := bindings.NewDispatcher(common.HexToAddress(contractAddr), rpc)
	return &EthClient{rpc: rpc, dispatcher: d, chainID: chainID}, nil
}

func (c *EthClient) AddressFromKey(signerKey string) (string, error) {
	key, err := parseKey(signerKey)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

func parseKey(signerKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(signerKey, "0x"))
	if err != nil {
		return nil, dispatchererr.Wrapf(dispatchererr.ConfigInvalid, "invalid signing key: %v", err)
	}
	return key, nil
}

func (c *EthClient) PendingNonceAt(ctx context.Context, address string) (*uint256.Int, error) {
	n, err := c.rpc.PendingNonceAt(ctx, common.HexToAddress(address))
	if err != nil {
		return nil, dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "pending nonce: %v", err)
	}
	return new(uint256.Int).SetUint64(n), nil
}

func (c *EthClient) transactOpts(signerKey string, nonce *uint256.Int) (*bind.TransactOpts, error) {
	key, err := parseKey(signerKey)
	if err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, c.chainID)
	if err != nil {
		return nil, dispatchererr.Wrap(err, "build transactor")
	}
	opts.Nonce = nonce.ToBig()
	return opts, nil
}

// packedCall maps call to the contract method name and its ABI arguments,
// for Simulate to pack into a CallMsg.
func (c *EthClient) packedCall(call Call) (method string, args []interface{}, err error) {
	player := common.HexToAddress(call.Player)
	switch call.Kind {
	case "jump":
		return "recordJump", []interface{}{player, call.Height.ToBig(), call.Score.ToBig(), call.GameID}, nil
	case "gameover":
		return "recordGameOver", []interface{}{player, call.Score.ToBig(), call.GameID}, nil
	case "setplayer":
		return "setPlayer", []interface{}{player, call.Username}, nil
	default:
		return "", nil, dispatchererr.Wrapf(dispatchererr.SubmissionRejected, "unknown intent kind %q", call.Kind)
	}
}

func (c *EthClient) Simulate(ctx context.Context, signerKey string, call Call, nonce *uint256.Int) error {
	method, args, err := c.packedCall(call)
	if err != nil {
		return err
	}
	data, err := bindings.ParsedABI.Pack(method, args...)
	if err != nil {
		return dispatchererr.Wrapf(dispatchererr.SubmissionRejected, "pack %s: %v", method, err)
	}
	from := common.HexToAddress("")
	if addr, err := c.AddressFromKey(signerKey); err == nil {
		from = common.HexToAddress(addr)
	}
	n := nonce.Uint64()
	msg := ethereum.CallMsg{
		From: from,
		To:   addrPtr(c.dispatcher.Address()),
		Data: data,
	}
	_, err = c.rpc.CallContract(ctx, msg, nil)
	if err != nil {
		if isNonceError(err) {
			return dispatchererr.Wrapf(dispatchererr.NonceMismatch, "simulate at nonce %d: %v", n, err)
		}
		return dispatchererr.Wrapf(dispatchererr.SubmissionRejected, "simulate %s: %v", method, err)
	}
	return nil
}

func (c *EthClient) Submit(ctx context.Context, signerKey string, call Call, nonce *uint256.Int) (string, error) {
	opts, err := c.transactOpts(signerKey, nonce)
	if err != nil {
		return "", err
	}
	opts.Context = ctx

	var tx *types.Transaction
	switch call.Kind {
	case "jump":
		tx, err = c.dispatcher.RecordJump(opts, common.HexToAddress(call.Player), call.Height.ToBig(), call.Score.ToBig(), call.GameID)
	case "gameover":
		tx, err = c.dispatcher.RecordGameOver(opts, common.HexToAddress(call.Player), call.Score.ToBig(), call.GameID)
	case "setplayer":
		tx, err = c.dispatcher.SetPlayer(opts, common.HexToAddress(call.Player), call.Username)
	default:
		return "", dispatchererr.Wrapf(dispatchererr.SubmissionRejected, "unknown intent kind %q", call.Kind)
	}
	if err != nil {
		if isNonceError(err) {
			return "", dispatchererr.Wrapf(dispatchererr.NonceMismatch, "submit: %v", err)
		}
		return "", dispatchererr.Wrapf(dispatchererr.SubmissionRejected, "submit: %v", err)
	}
	log.Debug("chain: submitted transaction", "hash", tx.Hash().Hex(), "kind", call.Kind, "nonce", nonce.Uint64())
	return tx.Hash().Hex(), nil
}

func (c *EthClient) Receipt(ctx context.Context, hash string) (*Receipt, error) {
	r, err := c.rpc.TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		if err == ethereum.NotFound {
			return nil, nil
		}
		return nil, dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "receipt: %v", err)
	}
	return &Receipt{
		BlockNumber: r.BlockNumber.Uint64(),
		Success:     r.Status == types.ReceiptStatusSuccessful,
	}, nil
}

func (c *EthClient) SubscribeNewHead(ctx context.Context) (<-chan uint64, Subscription, error) {
	heads := make(chan *types.Header)
	sub, err := c.rpc.SubscribeNewHead(ctx, heads)
	if err != nil {
		return nil, nil, dispatchererr.Wrapf(dispatchererr.StoreUnavailable, "subscribe new head: %v", err)
	}
	out := make(chan uint64)
	go func() {
		defer close(out)
		for h := range heads {
			out <- h.Number.Uint64()
		}
	}()
	return out, sub, nil
}

var _ Client = (*EthClient)(nil)

func addrPtr(a common.Address) *common.Address { return &a }

// isNonceError recognizes the provider-reported "nonce too low" / "already
// known" family of errors that the sender loop must treat as NonceMismatch
// rather than SubmissionRejected, per spec.md §4.3.
func isNonceError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "nonce too low") ||
		strings.Contains(msg, "nonce too high") ||
		strings.Contains(msg, "already known") ||
		strings.Contains(msg, "replacement transaction underpriced")
}
