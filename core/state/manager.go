package state

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"reliefchain/storage"
)

// Manager provides typed read and write access to ledger state. Keys are
// hashed with keccak256 before hitting the underlying store and values are
// RLP encoded, so any storage.Database implementation can back it.
//
// Manager performs no locking; the sequencer guarantees exclusive access for
// the duration of one command.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided store.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	balancePrefix   = []byte("balance:")
	rolePrefix      = []byte("role:")
	pausedKey       = []byte("params/paused")
	controllerKey   = []byte("params/controller")
	defaultDailyKey = []byte("params/default-daily-limit")
	totalMintedKey  = []byte("supply/minted")
	totalBurnedKey  = []byte("supply/burned")
	campaignSeqKey  = []byte("seq/campaign")
	spendTxSeqKey   = []byte("seq/spend-tx")
)

func balanceKey(addr []byte) []byte {
	buf := make([]byte, len(balancePrefix)+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], addr)
	return ethcrypto.Keccak256(buf)
}

func roleKey(role string) []byte {
	buf := make([]byte, len(rolePrefix)+len(role))
	copy(buf, rolePrefix)
	copy(buf[len(rolePrefix):], role)
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) get(hashed []byte) ([]byte, error) {
	data, err := m.db.Get(hashed)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (m *Manager) loadBigInt(hashed []byte) (*big.Int, error) {
	data, err := m.get(hashed)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (m *Manager) storeBigInt(hashed []byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.db.Put(hashed, encoded)
}

// SetBalance stores an account balance.
func (m *Manager) SetBalance(addr []byte, amount *big.Int) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if amount != nil && amount.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	return m.storeBigInt(balanceKey(addr), amount)
}

// Balance retrieves an account balance. Unknown accounts hold zero.
func (m *Manager) Balance(addr []byte) (*big.Int, error) {
	return m.loadBigInt(balanceKey(addr))
}

// AddTotalMinted bumps the running total of minted value.
func (m *Manager) AddTotalMinted(amount *big.Int) error {
	total, err := m.loadBigInt(kvKey(totalMintedKey))
	if err != nil {
		return err
	}
	return m.storeBigInt(kvKey(totalMintedKey), new(big.Int).Add(total, amount))
}

// TotalMinted returns the cumulative minted value.
func (m *Manager) TotalMinted() (*big.Int, error) {
	return m.loadBigInt(kvKey(totalMintedKey))
}

// AddTotalBurned bumps the running total of burned value.
func (m *Manager) AddTotalBurned(amount *big.Int) error {
	total, err := m.loadBigInt(kvKey(totalBurnedKey))
	if err != nil {
		return err
	}
	return m.storeBigInt(kvKey(totalBurnedKey), new(big.Int).Add(total, amount))
}

// TotalBurned returns the cumulative burned value.
func (m *Manager) TotalBurned() (*big.Int, error) {
	return m.loadBigInt(kvKey(totalBurnedKey))
}

// AddCampaignFunds increments the cumulative amount minted under the provided
// campaign identifier. The counter is monotonically non-decreasing.
func (m *Manager) AddCampaignFunds(campaignID uint64, amount *big.Int) error {
	key := kvKey(CampaignFundKey(campaignID))
	total, err := m.loadBigInt(key)
	if err != nil {
		return err
	}
	return m.storeBigInt(key, new(big.Int).Add(total, amount))
}

// CampaignFunds returns the cumulative amount minted under the campaign.
func (m *Manager) CampaignFunds(campaignID uint64) (*big.Int, error) {
	return m.loadBigInt(kvKey(CampaignFundKey(campaignID)))
}

// SetPaused toggles the global mint/transfer halt.
func (m *Manager) SetPaused(paused bool) error {
	encoded, err := rlp.EncodeToBytes(paused)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(pausedKey), encoded)
}

// Paused reports whether the ledger is halted. Missing state means running.
func (m *Manager) Paused() (bool, error) {
	data, err := m.get(kvKey(pausedKey))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	var paused bool
	if err := rlp.DecodeBytes(data, &paused); err != nil {
		return false, err
	}
	return paused, nil
}

// SetController designates the spending controller account. Transfers to and
// from this account bypass the recipient transfer restriction.
func (m *Manager) SetController(addr []byte) error {
	if len(addr) == 0 {
		return fmt.Errorf("controller address must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(addr)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(controllerKey), encoded)
}

// Controller returns the designated spending controller account, or nil when
// none has been set.
func (m *Manager) Controller() ([]byte, error) {
	data, err := m.get(kvKey(controllerKey))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var addr []byte
	if err := rlp.DecodeBytes(data, &addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// SetDefaultDailyLimit stores the system-wide daily spend limit applied to
// recipients without an explicit override.
func (m *Manager) SetDefaultDailyLimit(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("default daily limit must be positive")
	}
	return m.storeBigInt(kvKey(defaultDailyKey), amount)
}

// DefaultDailyLimit returns the system-wide daily spend limit.
func (m *Manager) DefaultDailyLimit() (*big.Int, error) {
	return m.loadBigInt(kvKey(defaultDailyKey))
}

// NextCampaignID assigns the next sequential campaign identifier, starting
// at 1.
func (m *Manager) NextCampaignID() (uint64, error) {
	return m.nextSequence(campaignSeqKey)
}

// NextSpendTxID assigns the next monotonically increasing spend transaction
// identifier, starting at 1.
func (m *Manager) NextSpendTxID() (uint64, error) {
	return m.nextSequence(spendTxSeqKey)
}

func (m *Manager) nextSequence(key []byte) (uint64, error) {
	hashed := kvKey(key)
	data, err := m.get(hashed)
	if err != nil {
		return 0, err
	}
	var current uint64
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &current); err != nil {
			return 0, err
		}
	}
	next := current + 1
	encoded, err := rlp.EncodeToBytes(next)
	if err != nil {
		return 0, err
	}
	if err := m.db.Put(hashed, encoded); err != nil {
		return 0, err
	}
	return next, nil
}

// SetRole associates an address with the specified role. Duplicate
// assignments are ignored while the stored list remains sorted for
// determinism.
func (m *Manager) SetRole(role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("role must not be empty")
	}
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	key := roleKey(trimmed)
	data, err := m.get(key)
	if err != nil {
		return err
	}
	var members [][]byte
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &members); err != nil {
			return err
		}
	}
	for _, existing := range members {
		if bytes.Equal(existing, addr) {
			return nil
		}
	}
	members = append(members, append([]byte(nil), addr...))
	sort.Slice(members, func(i, j int) bool {
		return hex.EncodeToString(members[i]) < hex.EncodeToString(members[j])
	})
	encoded, err := rlp.EncodeToBytes(members)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// RevokeRole removes the address from the role's member list. Unknown members
// are ignored.
func (m *Manager) RevokeRole(role string, addr []byte) error {
	key := roleKey(strings.TrimSpace(role))
	data, err := m.get(key)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var members [][]byte
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return err
	}
	filtered := make([][]byte, 0, len(members))
	for _, member := range members {
		if !bytes.Equal(member, addr) {
			filtered = append(filtered, member)
		}
	}
	if len(filtered) == len(members) {
		return nil
	}
	encoded, err := rlp.EncodeToBytes(filtered)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// RoleMembers returns all addresses assigned to the provided role.
func (m *Manager) RoleMembers(role string) ([][]byte, error) {
	key := roleKey(strings.TrimSpace(role))
	data, err := m.get(key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return [][]byte{}, nil
	}
	var members [][]byte
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// HasRole reports whether the provided address is associated with the
// specified role. Errors while reading the underlying state result in a false
// return, matching the best-effort semantics required by the callers.
func (m *Manager) HasRole(role string, addr []byte) bool {
	if len(addr) == 0 {
		return false
	}
	data, err := m.get(roleKey(strings.TrimSpace(role)))
	if err != nil || len(data) == 0 {
		return false
	}
	var members [][]byte
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return false
	}
	for _, member := range members {
		if bytes.Equal(member, addr) {
			return true
		}
	}
	return false
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is automatically hashed with keccak256.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the
// key existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVHas reports whether any value is stored under the supplied key.
func (m *Manager) KVHas(key []byte) (bool, error) {
	return m.KVGet(key, nil)
}

// KVGetBigInt retrieves a big integer stored under the supplied key, treating
// absence as zero.
func (m *Manager) KVGetBigInt(key []byte) (*big.Int, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("kv: key must not be empty")
	}
	return m.loadBigInt(kvKey(key))
}

// KVPutBigInt stores a big integer under the supplied key.
func (m *Manager) KVPutBigInt(key []byte, amount *big.Int) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.storeBigInt(kvKey(key), amount)
}

// KVAppend appends the provided value to the byte slice list stored under the
// supplied key. Duplicate values are ignored to keep the index deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	data, err := m.get(hashed)
	if err != nil {
		return err
	}
	var list [][]byte
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &list); err != nil {
			return err
		}
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	return m.db.Put(hashed, encoded)
}

// KVGetList retrieves a byte slice list stored under the provided key. When
// no value is present the destination is initialised with an empty slice to
// avoid nil surprises for callers.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}
