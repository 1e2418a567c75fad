package core

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"lukechampine.com/blake3"

	coreerrors "donex/core/errors"
	"donex/core/events"
	"donex/core/types"
	"donex/crypto"
	"donex/native/bank"
	"donex/native/donex"
	"donex/observability"
	"donex/observability/logging"
	telemetry "donex/observability/otel"
	"donex/storage"
)

var (
	metaKey         = []byte("host/meta")
	bankNamespace   = []byte("bank/")
	contractSeedTag = []byte("donex:contract")
)

// DefaultContractNamespace prefixes every key the contract writes.
const DefaultContractNamespace = "donex/"

// Contract is the entry point set the host dispatches to. Implementations
// read and write only the store they are handed.
type Contract interface {
	Instantiate(store storage.KVStore, env types.Env, info types.MessageInfo, raw []byte) (*types.Response, error)
	Execute(store storage.KVStore, env types.Env, info types.MessageInfo, raw []byte) (*types.Response, error)
	Query(store storage.KVStore, env types.Env, raw []byte) ([]byte, error)
}

// Options configures a Host. Zero values select defaults.
type Options struct {
	// AddressPrefix enables bech32 validation of every address. Empty accepts
	// any non-blank string.
	AddressPrefix   string
	ContractAddress string
	Namespace       string
	ChainID         string
	Contract        Contract
	Emitter         events.Emitter
	Logger          *slog.Logger
	Now             func() time.Time
}

// Receipt is the result of a committed call.
type Receipt struct {
	Hash       string            `json:"hash"`
	Height     uint64            `json:"height"`
	Sender     string            `json:"sender"`
	Attributes []types.Attribute `json:"attributes"`
	Events     []*types.Event    `json:"events"`
	Transfers  []events.Transfer `json:"transfers"`
}

type hostMeta struct {
	Height       uint64
	Instantiated bool
	Contract     string
}

// Host runs the contract against a database. Calls are serialized; each one
// executes inside a storage.Cache that is committed in a single batch on
// success and discarded on any error.
type Host struct {
	mu        sync.RWMutex
	db        storage.Database
	contract  Contract
	validator crypto.Validator
	namespace []byte
	chainID   string
	emitter   events.Emitter
	logger    *slog.Logger
	now       func() time.Time
	meta      hostMeta
}

// DefaultContractAddress derives the contract account for prefix. Without a
// prefix the literal "contract" is used.
func DefaultContractAddress(prefix string) (string, error) {
	if prefix == "" {
		return "contract", nil
	}
	digest := blake3.Sum256(contractSeedTag)
	addr, err := crypto.NewAddress(prefix, digest[:20])
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// NewHost opens a host over db, restoring height and instantiation state.
func NewHost(db storage.Database, opts Options) (*Host, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	validator := crypto.Validator{Prefix: opts.AddressPrefix}
	h := &Host{
		db:        db,
		contract:  opts.Contract,
		validator: validator,
		namespace: []byte(opts.Namespace),
		chainID:   opts.ChainID,
		emitter:   opts.Emitter,
		logger:    logging.OrDefault(opts.Logger).With(slog.String("component", "host")),
		now:       opts.Now,
	}
	if h.contract == nil {
		h.contract = donex.New(validator)
	}
	if len(h.namespace) == 0 {
		h.namespace = []byte(DefaultContractNamespace)
	}
	if h.emitter == nil {
		h.emitter = events.NoopEmitter{}
	}
	if h.now == nil {
		h.now = time.Now
	}

	cache := storage.NewCache(db)
	if _, err := storage.KVGet(cache, metaKey, &h.meta); err != nil {
		return nil, fmt.Errorf("core: load host meta: %w", err)
	}
	contractAddr := strings.TrimSpace(opts.ContractAddress)
	switch {
	case h.meta.Contract != "" && contractAddr != "" && contractAddr != h.meta.Contract:
		return nil, fmt.Errorf("core: contract address %s does not match stored %s", contractAddr, h.meta.Contract)
	case h.meta.Contract != "":
	case contractAddr != "":
		canonical, err := validator.Validate(contractAddr)
		if err != nil {
			return nil, fmt.Errorf("core: contract address: %w", err)
		}
		h.meta.Contract = canonical
	default:
		derived, err := DefaultContractAddress(opts.AddressPrefix)
		if err != nil {
			return nil, err
		}
		h.meta.Contract = derived
	}
	return h, nil
}

// ContractAddress returns the account that escrows attached funds.
func (h *Host) ContractAddress() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.meta.Contract
}

// Height returns the height of the last committed call.
func (h *Host) Height() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.meta.Height
}

// Instantiated reports whether Instantiate has committed.
func (h *Host) Instantiated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.meta.Instantiated
}

// Validator returns the address validator used by the host.
func (h *Host) Validator() crypto.Validator {
	return h.validator
}

// Instantiate runs the contract's instantiate entry point. It succeeds once.
func (h *Host) Instantiate(ctx context.Context, sender string, raw []byte, funds types.Coins) (*Receipt, error) {
	return h.run(ctx, "instantiate", sender, raw, funds, func(store storage.KVStore, env types.Env, info types.MessageInfo) (*types.Response, error) {
		if h.meta.Instantiated {
			return nil, coreerrors.ErrAlreadyInstantiated
		}
		return h.contract.Instantiate(store, env, info, raw)
	})
}

// Execute runs the contract's execute entry point with funds attached.
func (h *Host) Execute(ctx context.Context, sender string, raw []byte, funds types.Coins) (*Receipt, error) {
	return h.run(ctx, "execute", sender, raw, funds, func(store storage.KVStore, env types.Env, info types.MessageInfo) (*types.Response, error) {
		if !h.meta.Instantiated {
			return nil, coreerrors.ErrNotInstantiated
		}
		return h.contract.Execute(store, env, info, raw)
	})
}

type entryFunc func(store storage.KVStore, env types.Env, info types.MessageInfo) (*types.Response, error)

func (h *Host) run(ctx context.Context, entry, sender string, raw []byte, funds types.Coins, call entryFunc) (*Receipt, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "host."+entry)
	defer span.End()
	started := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	receipt, emitted, err := h.apply(ctx, entry, sender, raw, funds, call)
	kind := coreerrors.Classify(err)
	observability.Host().ObserveCall(entry, string(kind), time.Since(started))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		h.logger.Debug("contract call rejected",
			slog.String("entry", entry),
			slog.String("sender", sender),
			slog.String("error", err.Error()))
		return nil, err
	}
	span.SetAttributes(attribute.Int64("donex.height", int64(receipt.Height)))
	observability.Host().SetHeight(receipt.Height)
	h.logger.Info("contract call committed",
		slog.String("entry", entry),
		slog.Uint64("height", receipt.Height),
		slog.String("sender", sender),
		slog.Int("transfers", len(receipt.Transfers)))
	for _, evt := range emitted {
		h.emitter.Emit(evt)
	}
	return receipt, nil
}

func (h *Host) apply(ctx context.Context, entry, sender string, raw []byte, funds types.Coins, call entryFunc) (*Receipt, []events.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	canonical, err := h.validator.Validate(sender)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", coreerrors.ErrInvalidSender, err)
	}
	sender = canonical
	if err := funds.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", bank.ErrInvalidAmount, err)
	}

	cache := storage.NewCache(h.db)
	defer cache.Discard()
	keeper := bank.NewKeeper(storage.NewPrefixStore(cache, bankNamespace))

	transfers, err := keeper.Send(sender, h.meta.Contract, funds)
	if err != nil {
		return nil, nil, err
	}

	height := h.meta.Height + 1
	env := types.Env{
		Block:    types.BlockInfo{Height: height, Time: h.now().UTC(), ChainID: h.chainID},
		Contract: h.meta.Contract,
	}
	info := types.MessageInfo{Sender: sender, Funds: funds}
	resp, err := call(storage.NewPrefixStore(cache, h.namespace), env, info)
	if err != nil {
		return nil, nil, err
	}
	if resp == nil {
		resp = types.NewResponse()
	}
	for _, msg := range resp.Messages {
		to, err := h.validator.Validate(msg.ToAddress)
		if err != nil {
			return nil, nil, err
		}
		moved, err := keeper.Send(h.meta.Contract, to, msg.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("core: apply transfer to %s: %w", to, err)
		}
		transfers = append(transfers, moved...)
	}

	meta := h.meta
	meta.Height = height
	if entry == "instantiate" {
		meta.Instantiated = true
	}
	if err := storage.KVPut(cache, metaKey, &meta); err != nil {
		return nil, nil, err
	}
	if err := cache.Commit(); err != nil {
		return nil, nil, err
	}
	h.meta = meta

	receipt := &Receipt{
		Hash:       receiptHash(height, sender, raw, funds),
		Height:     height,
		Sender:     sender,
		Attributes: resp.Attributes,
		Events:     resp.Events,
		Transfers:  transfers,
	}
	emitted := make([]events.Event, 0, len(resp.Events)+len(transfers))
	for _, evt := range resp.Events {
		emitted = append(emitted, evt)
	}
	for _, tr := range transfers {
		emitted = append(emitted, tr)
	}
	return receipt, emitted, nil
}

func receiptHash(height uint64, sender string, raw []byte, funds types.Coins) string {
	hasher := blake3.New(32, nil)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	hasher.Write(buf[:])
	hasher.Write([]byte(sender))
	hasher.Write(raw)
	hasher.Write([]byte(funds.String()))
	return "0x" + hex.EncodeToString(hasher.Sum(nil))
}

// Query runs a read-only contract query. Nothing it writes is kept.
func (h *Host) Query(ctx context.Context, raw []byte) ([]byte, error) {
	_, span := telemetry.Tracer().Start(ctx, "host.query")
	defer span.End()
	started := time.Now()

	h.mu.RLock()
	defer h.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cache := storage.NewCache(h.db)
	defer cache.Discard()
	env := types.Env{
		Block:    types.BlockInfo{Height: h.meta.Height, Time: h.now().UTC(), ChainID: h.chainID},
		Contract: h.meta.Contract,
	}
	out, err := h.contract.Query(storage.NewPrefixStore(cache, h.namespace), env, raw)
	observability.Host().ObserveCall("query", string(coreerrors.Classify(err)), time.Since(started))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// Balance returns the committed balance of address in denom.
func (h *Host) Balance(address, denom string) (*uint256.Int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	canonical, err := h.validator.Validate(address)
	if err != nil {
		return nil, err
	}
	return bank.NewKeeper(storage.NewPrefixStore(storage.NewCache(h.db), bankNamespace)).Balance(canonical, denom)
}

// Balances returns every committed balance held by address.
func (h *Host) Balances(address string) (types.Coins, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	canonical, err := h.validator.Validate(address)
	if err != nil {
		return nil, err
	}
	return bank.NewKeeper(storage.NewPrefixStore(storage.NewCache(h.db), bankNamespace)).Balances(canonical)
}

// Mint credits coins to address and commits immediately. It exists for
// genesis allocation and does not advance the height.
func (h *Host) Mint(address string, coins types.Coins) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	canonical, err := h.validator.Validate(address)
	if err != nil {
		return err
	}
	cache := storage.NewCache(h.db)
	if err := bank.NewKeeper(storage.NewPrefixStore(cache, bankNamespace)).Mint(canonical, coins); err != nil {
		cache.Discard()
		return err
	}
	meta := h.meta
	if err := storage.KVPut(cache, metaKey, &meta); err != nil {
		cache.Discard()
		return err
	}
	return cache.Commit()
}
