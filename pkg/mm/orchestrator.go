package mm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nadoxyz/makerbot/pkg/crypto"
	"github.com/nadoxyz/makerbot/pkg/exchange"
	"github.com/nadoxyz/makerbot/pkg/util"
)

// ErrTimeout marks a signing or submission step that exceeded the
// configured per-step deadline. It fails that rung only.
var ErrTimeout = errors.New("mm: step timed out")

// Phase of the per-ladder submission state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseBuilding   Phase = "building"
	PhaseSigning    Phase = "signing"
	PhaseSubmitting Phase = "submitting"
	PhaseSettled    Phase = "settled"
)

// Gateway is the transport boundary consumed by the orchestrator.
// *exchange.Client satisfies it.
type Gateway interface {
	PlaceOrder(ctx context.Context, intent *exchange.OrderIntent, signature []byte) (*exchange.ExecuteResponse, error)
	CancelProductOrders(ctx context.Context, intent *exchange.CancelIntent, signature []byte) (*exchange.ExecuteResponse, error)
}

// PendingOrder tracks a resting order by its exchange digest. When the
// gateway omits the digest a local placeholder is generated instead and
// flagged: cancellation by digest will not work for a placeholder, so the
// two must never be conflated.
type PendingOrder struct {
	Digest      string          `json:"digest"`
	Placeholder bool            `json:"placeholder"`
	ProductID   uint32          `json:"productId"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Amount      decimal.Decimal `json:"amount"`
	PlacedAt    time.Time       `json:"placedAt"`
}

// Result aggregates one ladder submission. A single rung failing does not
// abort the rest; every rung is attempted and every failure is recorded.
type Result struct {
	OrdersPlaced int      `json:"ordersPlaced"`
	Errors       []string `json:"errors"`
}

// Success reports whether at least one order was placed.
func (r Result) Success() bool { return r.OrdersPlaced > 0 }

// Config holds the orchestrator's submission parameters.
type Config struct {
	ChainID        int64
	SubaccountName string
	StepTimeout    time.Duration // per signing / submission step; 0 disables
}

// Orchestrator sequences ladder rungs into individual signed-order
// submissions. Orders go out strictly one at a time: the gateway does not
// guarantee ordering of concurrently submitted nonces from the same
// account, and sequential submission sidesteps that race at the cost of
// latency. The pending-order set and loading/error state are owned
// exclusively by the orchestrator.
type Orchestrator struct {
	signer  crypto.Signer // nil until a wallet connects
	gateway Gateway
	builder *exchange.Builder
	clock   util.Clock
	log     *zap.SugaredLogger
	cfg     Config

	// OnOrderPlaced fires after each accepted submission; wired to the
	// notifier and the dashboard broadcast by the caller.
	OnOrderPlaced func(PendingOrder)

	// OnCancelled fires after a confirmed product-wide cancellation with
	// the number of cleared pending orders.
	OnCancelled func(productID uint32, cleared int)

	mu      sync.Mutex
	phase   Phase
	loading bool
	lastErr string
	pending map[uint32][]PendingOrder
}

func NewOrchestrator(signer crypto.Signer, gateway Gateway, builder *exchange.Builder, clock util.Clock, log *zap.SugaredLogger, cfg Config) *Orchestrator {
	return &Orchestrator{
		signer:  signer,
		gateway: gateway,
		builder: builder,
		clock:   clock,
		log:     log,
		cfg:     cfg,
		phase:   PhaseIdle,
		pending: make(map[uint32][]PendingOrder),
	}
}

type labelledIntent struct {
	label  string
	rung   Rung
	intent *exchange.OrderIntent
}

// SubmitLadder generates the ladder, builds every intent, then signs and
// submits rungs sequentially, interleaved bid[1], ask[1], bid[2], ask[2]...
// Config validation and intent construction fail fast before any signer or
// network interaction; per-rung signing/submission failures are recorded
// and the run continues.
func (o *Orchestrator) SubmitLadder(ctx context.Context, productID uint32, lcfg LadderConfig, typ exchange.OrderType) Result {
	if o.signer == nil {
		return o.settle(Result{Errors: []string{crypto.ErrSignerUnavailable.Error()}})
	}

	o.setPhase(PhaseBuilding, true)

	ladder, err := GenerateLadder(lcfg)
	if err != nil {
		return o.settle(Result{Errors: []string{err.Error()}})
	}

	sender := exchange.NewSender(o.signer.Address(), o.cfg.SubaccountName)

	// Build all intents up front: a precision failure aborts the whole
	// ladder with nothing partially submitted.
	intents := make([]labelledIntent, 0, 2*len(ladder.Bids))
	for i := range ladder.Bids {
		for _, li := range []labelledIntent{
			{label: fmt.Sprintf("bid %d", i+1), rung: ladder.Bids[i]},
			{label: fmt.Sprintf("ask %d", i+1), rung: ladder.Asks[i]},
		} {
			intent, err := o.builder.PlaceOrder(productID, sender, li.rung.Price, li.rung.Amount, typ, false)
			if err != nil {
				return o.settle(Result{Errors: []string{fmt.Sprintf("%s: %v", li.label, err)}})
			}
			li.intent = intent
			intents = append(intents, li)
		}
	}

	var res Result
	for _, li := range intents {
		if err := o.submitIntent(ctx, li.intent, li.rung); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", li.label, err))
			continue
		}
		res.OrdersPlaced++
	}

	o.log.Infow("ladder_settled",
		"product_id", productID,
		"orders_placed", res.OrdersPlaced,
		"errors", len(res.Errors))
	return o.settle(res)
}

// SubmitOrder places a single order outside a ladder run. Positive amounts
// go long, negative short.
func (o *Orchestrator) SubmitOrder(ctx context.Context, productID uint32, price, amount decimal.Decimal, typ exchange.OrderType) (PendingOrder, error) {
	if o.signer == nil {
		return PendingOrder{}, crypto.ErrSignerUnavailable
	}

	o.setPhase(PhaseBuilding, true)
	defer func() { o.setPhase(PhaseIdle, false) }()

	sender := exchange.NewSender(o.signer.Address(), o.cfg.SubaccountName)
	rung := Rung{Price: price.RoundFloor(18), Amount: amount}

	intent, err := o.builder.PlaceOrder(productID, sender, rung.Price, rung.Amount, typ, false)
	if err != nil {
		o.recordErr(err)
		return PendingOrder{}, err
	}

	return o.lastPlaced(intent.ProductID, o.submitIntent(ctx, intent, rung))
}

func (o *Orchestrator) lastPlaced(productID uint32, err error) (PendingOrder, error) {
	if err != nil {
		return PendingOrder{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	list := o.pending[productID]
	return list[len(list)-1], nil
}

// submitIntent runs the Signing and Submitting phases for one intent.
func (o *Orchestrator) submitIntent(ctx context.Context, intent *exchange.OrderIntent, rung Rung) error {
	o.setPhase(PhaseSigning, true)
	signature, err := o.signStep(ctx, intent.TypedData(o.cfg.ChainID))
	if err != nil {
		o.recordErr(err)
		return err
	}

	o.setPhase(PhaseSubmitting, true)
	stepCtx, cancel := o.stepContext(ctx)
	resp, err := o.gateway.PlaceOrder(stepCtx, intent, signature)
	cancel()
	if err != nil {
		err = o.classify(err)
		o.recordErr(err)
		return err
	}

	digest := resp.Digest()
	placeholder := digest == ""
	if placeholder {
		// Degraded tracking: keep the order visible even though the
		// gateway gave us nothing to cancel it by.
		digest = "local-" + uuid.NewString()
	}

	po := PendingOrder{
		Digest:      digest,
		Placeholder: placeholder,
		ProductID:   intent.ProductID,
		Side:        rung.Side(),
		Price:       rung.Price,
		Amount:      rung.Amount.Abs(),
		PlacedAt:    o.clock.Now(),
	}

	o.mu.Lock()
	o.pending[intent.ProductID] = append(o.pending[intent.ProductID], po)
	o.mu.Unlock()

	o.log.Infow("order_placed",
		"product_id", intent.ProductID,
		"side", po.Side,
		"price", po.Price.String(),
		"amount", po.Amount.String(),
		"digest", po.Digest,
		"placeholder", po.Placeholder)

	if o.OnOrderPlaced != nil {
		o.OnOrderPlaced(po)
	}
	return nil
}

// CancelAll builds one cancellation covering every resting order on the
// product, signs it against the endpoint contract and submits it. Tracked
// pending orders are cleared only on a confirmed success response; on any
// failure the pending set is left untouched so the user can retry.
func (o *Orchestrator) CancelAll(ctx context.Context, productID uint32) error {
	if o.signer == nil {
		return crypto.ErrSignerUnavailable
	}

	o.setPhase(PhaseBuilding, true)
	defer func() { o.setPhase(PhaseIdle, false) }()

	sender := exchange.NewSender(o.signer.Address(), o.cfg.SubaccountName)
	intent := o.builder.CancelProducts(sender, []uint32{productID})

	o.setPhase(PhaseSigning, true)
	signature, err := o.signStep(ctx, intent.TypedData(o.cfg.ChainID))
	if err != nil {
		o.recordErr(err)
		return err
	}

	o.setPhase(PhaseSubmitting, true)
	stepCtx, cancel := o.stepContext(ctx)
	resp, err := o.gateway.CancelProductOrders(stepCtx, intent, signature)
	cancel()
	if err != nil {
		err = o.classify(err)
		o.recordErr(err)
		return err
	}
	if err := resp.Err(); err != nil {
		o.recordErr(err)
		return err
	}

	o.mu.Lock()
	cleared := len(o.pending[productID])
	delete(o.pending, productID)
	o.mu.Unlock()

	o.log.Infow("orders_cancelled", "product_id", productID, "cleared", cleared)
	if o.OnCancelled != nil {
		o.OnCancelled(productID, cleared)
	}
	return nil
}

// signStep signs typed data under the per-step timeout. A context deadline
// maps to ErrTimeout; any other signer refusal maps to ErrSignerRejected.
func (o *Orchestrator) signStep(ctx context.Context, td apitypes.TypedData) ([]byte, error) {
	stepCtx, cancel := o.stepContext(ctx)
	defer cancel()

	signature, err := o.signer.SignTypedData(stepCtx, td)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: signing", ErrTimeout)
		}
		if errors.Is(err, crypto.ErrSignerRejected) || errors.Is(err, crypto.ErrSignerUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", crypto.ErrSignerRejected, err)
	}
	return signature, nil
}

func (o *Orchestrator) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.StepTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.cfg.StepTimeout)
}

// classify maps transport-level deadline errors onto ErrTimeout; everything
// else keeps its exchange error kind.
func (o *Orchestrator) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: submission", ErrTimeout)
	}
	return err
}

func (o *Orchestrator) setPhase(p Phase, loading bool) {
	o.mu.Lock()
	o.phase = p
	o.loading = loading
	if loading && p == PhaseBuilding {
		o.lastErr = ""
	}
	o.mu.Unlock()
}

func (o *Orchestrator) settle(res Result) Result {
	o.setPhase(PhaseSettled, false)
	o.setPhaseIdle()
	return res
}

func (o *Orchestrator) setPhaseIdle() {
	o.mu.Lock()
	o.phase = PhaseIdle
	o.loading = false
	o.mu.Unlock()
}

func (o *Orchestrator) recordErr(err error) {
	o.mu.Lock()
	o.lastErr = err.Error()
	o.mu.Unlock()
}

// Pending returns a copy of every tracked pending order.
func (o *Orchestrator) Pending() []PendingOrder {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []PendingOrder
	for _, list := range o.pending {
		out = append(out, list...)
	}
	return out
}

// PendingFor returns a copy of the pending orders for one product.
func (o *Orchestrator) PendingFor(productID uint32) []PendingOrder {
	o.mu.Lock()
	defer o.mu.Unlock()

	list := o.pending[productID]
	out := make([]PendingOrder, len(list))
	copy(out, list)
	return out
}

// ClearPending drops tracked state for a product without contacting the
// exchange. Exposed for the dashboard's explicit "clear" action.
func (o *Orchestrator) ClearPending(productID uint32) {
	o.mu.Lock()
	delete(o.pending, productID)
	o.mu.Unlock()
}

// IsLoading reports whether a submission is in flight. Callers that care
// about nonce ordering must not start a second ladder while this is true.
func (o *Orchestrator) IsLoading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// CurrentPhase returns the state-machine phase for display.
func (o *Orchestrator) CurrentPhase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// LastError returns the most recent per-rung error message, empty when the
// last run was clean.
func (o *Orchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}
