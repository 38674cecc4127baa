// Package bindings holds a hand-written abigen-style binding for the
// contract interface assumed by spec.md §6. It has the same shape abigen
// produces from a Solidity ABI (a *Transactor wrapping bind.BoundContract),
// written by hand here since no abigen invocation is permitted in this
// exercise.
package bindings

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DispatcherABI is the contract interface's ABI: three authorized-recorder
// functions, no return values, no payable value.
const DispatcherABI = `[
	{"type":"function","name":"recordJump","stateMutability":"nonpayable",
	 "inputs":[{"name":"player","type":"address"},{"name":"height","type":"uint256"},
	           {"name":"score","type":"uint256"},{"name":"game_id","type":"string"}],
	 "outputs":[]},
	{"type":"function","name":"recordGameOver","stateMutability":"nonpayable",
	 "inputs":[{"name":"player","type":"address"},{"name":"score","type":"uint256"},
	           {"name":"game_id","type":"string"}],
	 "outputs":[]},
	{"type":"function","name":"setPlayer","stateMutability":"nonpayable",
	 "inputs":[{"name":"player","type":"address"},{"name":"name","type":"string"}],
	 "outputs":[]}
]`

// ParsedABI is DispatcherABI parsed once at package init.
var ParsedABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(DispatcherABI))
	if err != nil {
		panic("bindings: invalid DispatcherABI: " + err.Error())
	}
	ParsedABI = parsed
}

// Dispatcher is the abigen-shaped wrapper over the target contract,
// providing one Go method per contract function plus the underlying
// BoundContract for simulation (CallContract-based dry-runs).
type Dispatcher struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewDispatcher binds address using backend for both calls and
// transactions, mirroring abigen's NewDispatcher(address, backend)
// constructor shape.
func NewDispatcher(address common.Address, backend bind.ContractBackend) *Dispatcher {
	contract := bind.NewBoundContract(address, ParsedABI, backend, backend, backend)
	return &Dispatcher{address: address, contract: contract}
}

// Address returns the bound contract address.
func (d *Dispatcher) Address() common.Address { return d.address }

// RecordJump calls recordJump(player, height, score, game_id).
func (d *Dispatcher) RecordJump(opts *bind.TransactOpts, player common.Address, height, score *big.Int, gameID string) (*types.Transaction, error) {
	return d.contract.Transact(opts, "recordJump", player, height, score, gameID)
}

// RecordGameOver calls recordGameOver(player, score, game_id).
func (d *Dispatcher) RecordGameOver(opts *bind.TransactOpts, player common.Address, score *big.Int, gameID string) (*types.Transaction, error) {
	return d.contract.Transact(opts, "recordGameOver", player, score, gameID)
}

// SetPlayer calls setPlayer(player, name).
func (d *Dispatcher) SetPlayer(opts *bind.TransactOpts, player common.Address, name string) (*types.Transaction, error) {
	return d.contract.Transact(opts, "setPlayer", player, name)
}
