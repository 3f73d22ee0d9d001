package mm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nadoxyz/makerbot/pkg/crypto"
	"github.com/nadoxyz/makerbot/pkg/exchange"
	"github.com/nadoxyz/makerbot/pkg/util"
)

// fakeGateway records submissions and fails the call numbers listed in
// failOn. Digests are assigned sequentially unless omitDigest is set.
type fakeGateway struct {
	orders  []*exchange.OrderIntent
	cancels []*exchange.CancelIntent

	failOn       map[int]error
	rejectCancel bool
	omitDigest   bool
}

func okResponse(digest string) *exchange.ExecuteResponse {
	resp := &exchange.ExecuteResponse{Status: "success"}
	resp.Data.Digest = digest
	return resp
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, intent *exchange.OrderIntent, signature []byte) (*exchange.ExecuteResponse, error) {
	call := len(g.orders) + 1
	g.orders = append(g.orders, intent)
	if err := g.failOn[call]; err != nil {
		return nil, err
	}
	if g.omitDigest {
		return okResponse(""), nil
	}
	return okResponse("0xdigest" + string(rune('0'+call))), nil
}

func (g *fakeGateway) CancelProductOrders(ctx context.Context, intent *exchange.CancelIntent, signature []byte) (*exchange.ExecuteResponse, error) {
	g.cancels = append(g.cancels, intent)
	if g.rejectCancel {
		return &exchange.ExecuteResponse{Status: "failure", Error: "nothing to cancel"}, nil
	}
	return okResponse(""), nil
}

func newTestOrchestrator(t *testing.T, gateway Gateway) *Orchestrator {
	t.Helper()

	signer, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	clock := util.FakeClock{Instant: time.Unix(1700000000, 0)}
	builder := exchange.NewBuilder(clock, exchange.NewNonceSource(clock), 50*time.Millisecond, time.Hour)

	return NewOrchestrator(signer, gateway, builder, clock, zap.NewNop().Sugar(), Config{
		ChainID:        57073,
		SubaccountName: "default",
		StepTimeout:    time.Second,
	})
}

func testLadderConfig() LadderConfig {
	return LadderConfig{
		MidPrice:      dec("2450.50"),
		SpreadPercent: dec("0.1"),
		RungCount:     2,
		AmountPerRung: dec("0.5"),
	}
}

func TestSubmitLadderPlacesAllRungs(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw)

	res := o.SubmitLadder(context.Background(), 4, testLadderConfig(), exchange.OrderTypeLimit)
	if !res.Success() || res.OrdersPlaced != 4 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v, want 4 placed and no errors", res)
	}
	if len(gw.orders) != 4 {
		t.Fatalf("gateway saw %d orders, want 4", len(gw.orders))
	}

	// submissions interleave bid 1, ask 1, bid 2, ask 2
	wantLong := []bool{true, false, true, false}
	for i, intent := range gw.orders {
		if intent.IsLong() != wantLong[i] {
			t.Errorf("order %d long = %v, want %v", i+1, intent.IsLong(), wantLong[i])
		}
	}
	if gw.orders[0].PriceX18.Cmp(gw.orders[2].PriceX18) <= 0 {
		t.Error("bid 1 should be above bid 2")
	}
	if gw.orders[1].PriceX18.Cmp(gw.orders[3].PriceX18) >= 0 {
		t.Error("ask 1 should be below ask 2")
	}

	pending := o.PendingFor(4)
	if len(pending) != 4 {
		t.Fatalf("got %d pending orders, want 4", len(pending))
	}
	for _, po := range pending {
		if po.Placeholder {
			t.Errorf("order %s flagged placeholder despite gateway digest", po.Digest)
		}
	}

	if phase := o.CurrentPhase(); phase != PhaseIdle {
		t.Errorf("phase after run = %s, want idle", phase)
	}
	if o.IsLoading() {
		t.Error("loading still set after run")
	}
}

func TestSubmitLadderPartialFailure(t *testing.T) {
	gw := &fakeGateway{failOn: map[int]error{2: exchange.ErrExchangeRejected}}
	o := newTestOrchestrator(t, gw)

	res := o.SubmitLadder(context.Background(), 4, testLadderConfig(), exchange.OrderTypeLimit)
	if res.OrdersPlaced != 3 {
		t.Fatalf("placed = %d, want 3", res.OrdersPlaced)
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "ask 1:") {
		t.Fatalf("errors = %v, want single entry for ask 1", res.Errors)
	}
	if !res.Success() {
		t.Error("a partially placed ladder still counts as success")
	}
	if len(gw.orders) != 4 {
		t.Fatalf("gateway saw %d orders, want all 4 attempted", len(gw.orders))
	}
	if got := len(o.PendingFor(4)); got != 3 {
		t.Errorf("pending = %d, want 3", got)
	}
	if o.LastError() == "" {
		t.Error("last error not recorded")
	}
}

func TestSubmitLadderNoSigner(t *testing.T) {
	gw := &fakeGateway{}
	o := NewOrchestrator(nil, gw, nil, util.RealClock{}, zap.NewNop().Sugar(), Config{})

	res := o.SubmitLadder(context.Background(), 4, testLadderConfig(), exchange.OrderTypeLimit)
	if res.Success() || len(res.Errors) != 1 {
		t.Fatalf("result = %+v, want single error and no success", res)
	}
	if len(gw.orders) != 0 {
		t.Fatal("no signer but gateway was called")
	}
}

func TestSubmitLadderZeroRungs(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw)

	cfg := testLadderConfig()
	cfg.RungCount = 0

	res := o.SubmitLadder(context.Background(), 4, cfg, exchange.OrderTypeLimit)
	if res.OrdersPlaced != 0 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v, want empty run with no errors", res)
	}
	if len(gw.orders) != 0 {
		t.Fatal("empty ladder reached the gateway")
	}
}

func TestSubmitLadderInvalidConfigAbortsBeforeGateway(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw)

	cfg := testLadderConfig()
	cfg.SpreadPercent = dec("-1")

	res := o.SubmitLadder(context.Background(), 4, cfg, exchange.OrderTypeLimit)
	if res.Success() || len(res.Errors) != 1 {
		t.Fatalf("result = %+v, want single config error", res)
	}
	if len(gw.orders) != 0 {
		t.Fatal("invalid config reached the gateway")
	}
}

func TestSubmitLadderPlaceholderDigest(t *testing.T) {
	gw := &fakeGateway{omitDigest: true}
	o := newTestOrchestrator(t, gw)

	cfg := testLadderConfig()
	cfg.RungCount = 1

	res := o.SubmitLadder(context.Background(), 4, cfg, exchange.OrderTypeLimit)
	if res.OrdersPlaced != 2 {
		t.Fatalf("placed = %d, want 2", res.OrdersPlaced)
	}

	for _, po := range o.PendingFor(4) {
		if !po.Placeholder {
			t.Errorf("order %s should be flagged as placeholder", po.Digest)
		}
		if !strings.HasPrefix(po.Digest, "local-") {
			t.Errorf("placeholder digest %q missing local- prefix", po.Digest)
		}
	}
}

func TestSubmitOrderSingle(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw)

	po, err := o.SubmitOrder(context.Background(), 2, dec("65000"), dec("-0.01"), exchange.OrderTypeIOC)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if po.Side != SideShort {
		t.Errorf("side = %s, want SHORT", po.Side)
	}
	if !po.Amount.Equal(dec("0.01")) {
		t.Errorf("tracked amount = %s, want absolute 0.01", po.Amount)
	}
	if len(gw.orders) != 1 {
		t.Fatalf("gateway saw %d orders, want 1", len(gw.orders))
	}
	typ, _, _, err := exchange.DecodeAppendix(gw.orders[0].Appendix)
	if err != nil || typ != exchange.OrderTypeIOC {
		t.Errorf("appendix type = %v (err %v), want IOC", typ, err)
	}
}

func TestCancelAllClearsPending(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw)

	o.SubmitLadder(context.Background(), 4, testLadderConfig(), exchange.OrderTypeLimit)

	var gotProduct uint32
	var gotCleared int
	o.OnCancelled = func(productID uint32, cleared int) {
		gotProduct, gotCleared = productID, cleared
	}

	if err := o.CancelAll(context.Background(), 4); err != nil {
		t.Fatalf("CancelAll: %v", err)
	}
	if len(gw.cancels) != 1 {
		t.Fatalf("gateway saw %d cancels, want 1", len(gw.cancels))
	}
	if ids := gw.cancels[0].ProductIDs; len(ids) != 1 || ids[0] != 4 {
		t.Fatalf("cancel product ids = %v, want [4]", ids)
	}
	if got := len(o.PendingFor(4)); got != 0 {
		t.Errorf("pending after cancel = %d, want 0", got)
	}
	if gotProduct != 4 || gotCleared != 4 {
		t.Errorf("OnCancelled(%d, %d), want (4, 4)", gotProduct, gotCleared)
	}
}

func TestCancelAllRejectedKeepsPending(t *testing.T) {
	gw := &fakeGateway{rejectCancel: true}
	o := newTestOrchestrator(t, gw)

	o.SubmitLadder(context.Background(), 4, testLadderConfig(), exchange.OrderTypeLimit)

	err := o.CancelAll(context.Background(), 4)
	if !errors.Is(err, exchange.ErrExchangeRejected) {
		t.Fatalf("err = %v, want ErrExchangeRejected", err)
	}
	if got := len(o.PendingFor(4)); got != 4 {
		t.Errorf("pending after failed cancel = %d, want 4 (untouched)", got)
	}
}

func TestOnOrderPlacedCallback(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw)

	var seen []PendingOrder
	o.OnOrderPlaced = func(po PendingOrder) { seen = append(seen, po) }

	o.SubmitLadder(context.Background(), 4, testLadderConfig(), exchange.OrderTypeLimit)
	if len(seen) != 4 {
		t.Fatalf("callback fired %d times, want 4", len(seen))
	}
}

func TestPendingReturnsCopies(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw)

	cfg := testLadderConfig()
	cfg.RungCount = 1
	o.SubmitLadder(context.Background(), 4, cfg, exchange.OrderTypeLimit)

	list := o.PendingFor(4)
	list[0].Digest = "mutated"
	if o.PendingFor(4)[0].Digest == "mutated" {
		t.Fatal("PendingFor leaked internal state")
	}

	o.ClearPending(4)
	if got := len(o.Pending()); got != 0 {
		t.Errorf("pending after ClearPending = %d, want 0", got)
	}
}
