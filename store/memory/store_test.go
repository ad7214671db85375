package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/tollgate"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/registry"
	"github.com/xraph/tollgate/types"
)

func newInstrument(owner string) *instrument.Instrument {
	return &instrument.Instrument{
		Entity:           types.NewEntity(),
		ID:               id.NewInstrumentID(),
		Owner:            owner,
		MaxSupply:        100000,
		AccessThreshold:  5,
		PremiumThreshold: 50,
	}
}

func newResource(owner string, instID id.InstrumentID) *registry.Resource {
	return &registry.Resource{
		Entity:       types.NewEntity(),
		ID:           id.NewResourceID(),
		ContentRef:   "bafybeigdyrzt5example",
		InstrumentID: instID,
		Owner:        owner,
		PricePerUse:  types.New(2000, payment.BaseCurrency),
		Active:       true,
		UsageSpend:   types.Zero(payment.BaseCurrency),
	}
}

func TestInstrumentCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	inst := newInstrument("alice")
	if err := s.CreateInstrument(ctx, inst); err != nil {
		t.Fatalf("CreateInstrument: %v", err)
	}
	if err := s.CreateInstrument(ctx, inst); !errors.Is(err, tollgate.ErrAlreadyExists) {
		t.Errorf("duplicate create: got %v, want ErrAlreadyExists", err)
	}

	got, err := s.GetInstrument(ctx, inst.ID)
	if err != nil {
		t.Fatalf("GetInstrument: %v", err)
	}
	if got.Owner != "alice" || got.MaxSupply != 100000 {
		t.Errorf("got owner=%s max=%d", got.Owner, got.MaxSupply)
	}

	// The store hands out copies, not its internal pointer.
	got.Owner = "mallory"
	again, _ := s.GetInstrument(ctx, inst.ID)
	if again.Owner != "alice" {
		t.Errorf("store state mutated through returned pointer")
	}

	if _, err := s.GetInstrument(ctx, id.NewInstrumentID()); !errors.Is(err, tollgate.ErrInstrumentNotFound) {
		t.Errorf("missing instrument: got %v", err)
	}
}

func TestApplyMintRespectsSupplyCap(t *testing.T) {
	s := New()
	ctx := context.Background()

	inst := newInstrument("alice")
	inst.MaxSupply = 100
	if err := s.CreateInstrument(ctx, inst); err != nil {
		t.Fatal(err)
	}

	if err := s.ApplyMint(ctx, inst.ID, "bob", 60); err != nil {
		t.Fatalf("first mint: %v", err)
	}
	if err := s.ApplyMint(ctx, inst.ID, "bob", 41); !errors.Is(err, tollgate.ErrSupplyExceeded) {
		t.Fatalf("over-cap mint: got %v, want ErrSupplyExceeded", err)
	}

	// Failed mint changed nothing.
	got, _ := s.GetInstrument(ctx, inst.ID)
	if got.TotalSupply != 60 {
		t.Errorf("TotalSupply = %d, want 60", got.TotalSupply)
	}
	bal, _ := s.HolderBalance(ctx, inst.ID, "bob")
	if bal != 60 {
		t.Errorf("balance = %d, want 60", bal)
	}

	if err := s.ApplyMint(ctx, inst.ID, "bob", 40); err != nil {
		t.Fatalf("mint to exact cap: %v", err)
	}
	got, _ = s.GetInstrument(ctx, inst.ID)
	if got.TotalSupply != got.MaxSupply {
		t.Errorf("TotalSupply = %d, want %d", got.TotalSupply, got.MaxSupply)
	}
}

func TestApplyBurnAndTransfer(t *testing.T) {
	s := New()
	ctx := context.Background()

	inst := newInstrument("alice")
	if err := s.CreateInstrument(ctx, inst); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyMint(ctx, inst.ID, "bob", 100); err != nil {
		t.Fatal(err)
	}

	if err := s.ApplyBurn(ctx, inst.ID, "bob", 101); !errors.Is(err, tollgate.ErrInsufficientUnits) {
		t.Fatalf("over-burn: got %v", err)
	}
	if err := s.ApplyBurn(ctx, inst.ID, "bob", 30); err != nil {
		t.Fatalf("burn: %v", err)
	}
	got, _ := s.GetInstrument(ctx, inst.ID)
	if got.TotalSupply != 70 {
		t.Errorf("supply after burn = %d, want 70", got.TotalSupply)
	}

	if err := s.ApplyEntitlementTransfer(ctx, inst.ID, "bob", "carol", 20); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	bobBal, _ := s.HolderBalance(ctx, inst.ID, "bob")
	carolBal, _ := s.HolderBalance(ctx, inst.ID, "carol")
	if bobBal != 50 || carolBal != 20 {
		t.Errorf("balances = %d/%d, want 50/20", bobBal, carolBal)
	}

	// Transfer conserves supply.
	got, _ = s.GetInstrument(ctx, inst.ID)
	if got.TotalSupply != 70 {
		t.Errorf("supply after transfer = %d, want 70", got.TotalSupply)
	}

	if err := s.ApplyEntitlementTransfer(ctx, inst.ID, "carol", "bob", 21); !errors.Is(err, tollgate.ErrInsufficientUnits) {
		t.Fatalf("over-transfer: got %v", err)
	}
}

func TestResourceListingOrderAndIndexes(t *testing.T) {
	s := New()
	ctx := context.Background()

	inst := newInstrument("alice")
	if err := s.CreateInstrument(ctx, inst); err != nil {
		t.Fatal(err)
	}

	var ids []string
	for i := 0; i < 5; i++ {
		r := newResource("alice", inst.ID)
		if i%2 == 0 {
			r.Category = "models"
		} else {
			r.Category = "datasets"
		}
		if err := s.CreateResource(ctx, r); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, r.ID.String())
	}

	all, err := s.ListResources(ctx, registry.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("len = %d, want 5", len(all))
	}
	for i, r := range all {
		if r.ID.String() != ids[i] {
			t.Errorf("position %d: got %s, want registration order %s", i, r.ID, ids[i])
		}
	}

	models, err := s.ListResources(ctx, registry.ListOpts{Category: "models"})
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 3 {
		t.Errorf("models = %d, want 3", len(models))
	}

	// Windowing.
	page, err := s.ListResources(ctx, registry.ListOpts{Offset: 3, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID.String() != ids[3] {
		t.Errorf("page from offset 3: len=%d first=%v", len(page), page[0].ID)
	}

	// Category reassignment moves the index entry.
	moved := all[0]
	moved.Category = "datasets"
	if err := s.UpdateResource(ctx, moved); err != nil {
		t.Fatal(err)
	}
	n, _ := s.CountResources(ctx, registry.ListOpts{Category: "models"})
	if n != 2 {
		t.Errorf("models after move = %d, want 2", n)
	}
	n, _ = s.CountResources(ctx, registry.ListOpts{Category: "datasets"})
	if n != 3 {
		t.Errorf("datasets after move = %d, want 3", n)
	}
}

func TestApplySettlement(t *testing.T) {
	s := New()
	ctx := context.Background()

	inst := newInstrument("alice")
	if err := s.CreateInstrument(ctx, inst); err != nil {
		t.Fatal(err)
	}
	res := newResource("alice", inst.ID)
	if err := s.CreateResource(ctx, res); err != nil {
		t.Fatal(err)
	}
	if err := s.AdjustBalance(ctx, "bob", payment.BaseCurrency, 100000); err != nil {
		t.Fatal(err)
	}

	amount := types.New(100000, payment.BaseCurrency)
	fee, net := amount.SplitFee(500)
	pay := &payment.Payment{
		Entity:     types.NewEntity(),
		ID:         id.NewPaymentID(),
		ResourceID: res.ID,
		Payer:      "bob",
		Payee:      "alice",
		Amount:     amount,
		Fee:        fee,
		Net:        net,
		Processed:  true,
	}
	if err := s.ApplySettlement(ctx, &payment.Settlement{Payment: pay, FeeRecipient: "platform"}); err != nil {
		t.Fatalf("ApplySettlement: %v", err)
	}

	bob, _ := s.GetBalance(ctx, "bob", payment.BaseCurrency)
	alice, _ := s.GetBalance(ctx, "alice", payment.BaseCurrency)
	platform, _ := s.GetBalance(ctx, "platform", payment.BaseCurrency)
	if bob != 0 {
		t.Errorf("payer balance = %d, want 0", bob)
	}
	if alice != 95000 {
		t.Errorf("payee balance = %d, want 95000", alice)
	}
	if platform != 5000 {
		t.Errorf("fee recipient balance = %d, want 5000", platform)
	}
	if alice+platform+bob != 100000 {
		t.Errorf("settlement does not conserve value")
	}

	got, err := s.GetPayment(ctx, pay.ID)
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if !got.Amount.Equal(amount) || !got.Fee.Equal(fee) || !got.Net.Equal(net) {
		t.Errorf("payment record mismatch: %+v", got)
	}

	updated, _ := s.GetResource(ctx, res.ID)
	if updated.UsageCount != 1 || updated.UsageSpend.Amount != 100000 {
		t.Errorf("usage = %d/%d", updated.UsageCount, updated.UsageSpend.Amount)
	}

	earnings, _ := s.OwnerEarnings(ctx, "alice")
	if len(earnings) != 1 || earnings[0].Total != 95000 {
		t.Errorf("earnings = %+v", earnings)
	}

	stats, _ := s.LedgerStats(ctx)
	if stats.TotalPayments != 1 || stats.VolumeByCurrency[payment.BaseCurrency] != 100000 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestApplySettlementInsufficientBalanceChangesNothing(t *testing.T) {
	s := New()
	ctx := context.Background()

	inst := newInstrument("alice")
	if err := s.CreateInstrument(ctx, inst); err != nil {
		t.Fatal(err)
	}
	res := newResource("alice", inst.ID)
	if err := s.CreateResource(ctx, res); err != nil {
		t.Fatal(err)
	}
	if err := s.AdjustBalance(ctx, "bob", payment.BaseCurrency, 1000); err != nil {
		t.Fatal(err)
	}

	amount := types.New(2000, payment.BaseCurrency)
	fee, net := amount.SplitFee(500)
	pay := &payment.Payment{
		Entity:     types.NewEntity(),
		ID:         id.NewPaymentID(),
		ResourceID: res.ID,
		Payer:      "bob",
		Payee:      "alice",
		Amount:     amount,
		Fee:        fee,
		Net:        net,
	}
	err := s.ApplySettlement(ctx, &payment.Settlement{Payment: pay, FeeRecipient: "platform"})
	if !errors.Is(err, tollgate.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}

	bob, _ := s.GetBalance(ctx, "bob", payment.BaseCurrency)
	if bob != 1000 {
		t.Errorf("payer balance = %d, want untouched 1000", bob)
	}
	if _, err := s.GetPayment(ctx, pay.ID); !errors.Is(err, tollgate.ErrPaymentNotFound) {
		t.Errorf("payment recorded for failed settlement: %v", err)
	}
	updated, _ := s.GetResource(ctx, res.ID)
	if updated.UsageCount != 0 {
		t.Errorf("usage counter bumped on failed settlement")
	}
	stats, _ := s.LedgerStats(ctx)
	if stats.TotalPayments != 0 {
		t.Errorf("stats bumped on failed settlement")
	}
}

func TestPaymentHistoryNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	inst := newInstrument("alice")
	if err := s.CreateInstrument(ctx, inst); err != nil {
		t.Fatal(err)
	}
	res := newResource("alice", inst.ID)
	if err := s.CreateResource(ctx, res); err != nil {
		t.Fatal(err)
	}
	if err := s.AdjustBalance(ctx, "bob", payment.BaseCurrency, 10000); err != nil {
		t.Fatal(err)
	}

	var payIDs []string
	for i := 0; i < 3; i++ {
		amount := types.New(1000, payment.BaseCurrency)
		pay := &payment.Payment{
			Entity:     types.NewEntity(),
			ID:         id.NewPaymentID(),
			ResourceID: res.ID,
			Payer:      "bob",
			Payee:      "alice",
			Amount:     amount,
			Net:        amount,
			Fee:        types.Zero(payment.BaseCurrency),
		}
		if err := s.ApplySettlement(ctx, &payment.Settlement{Payment: pay}); err != nil {
			t.Fatal(err)
		}
		payIDs = append(payIDs, pay.ID.String())
	}

	outgoing, err := s.PaymentsByPayer(ctx, "bob", payment.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outgoing) != 3 {
		t.Fatalf("len = %d, want 3", len(outgoing))
	}
	for i, p := range outgoing {
		want := payIDs[len(payIDs)-1-i]
		if p.ID.String() != want {
			t.Errorf("position %d: got %s, want %s", i, p.ID, want)
		}
	}

	incoming, err := s.PaymentsByPayee(ctx, "alice", payment.ListOpts{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(incoming) != 2 || incoming[0].ID.String() != payIDs[2] {
		t.Errorf("payee page = %+v", incoming)
	}
}

func TestApplyEntitlementPurchase(t *testing.T) {
	s := New()
	ctx := context.Background()

	inst := newInstrument("alice")
	inst.MaxSupply = 100
	if err := s.CreateInstrument(ctx, inst); err != nil {
		t.Fatal(err)
	}
	if err := s.AdjustBalance(ctx, "bob", payment.BaseCurrency, 5000); err != nil {
		t.Fatal(err)
	}

	purchase := &payment.EntitlementPurchase{
		InstrumentID: inst.ID,
		Buyer:        "bob",
		Owner:        "alice",
		Quantity:     10,
		Cost:         types.New(5000, payment.BaseCurrency),
	}
	if err := s.ApplyEntitlementPurchase(ctx, purchase); err != nil {
		t.Fatalf("ApplyEntitlementPurchase: %v", err)
	}

	bal, _ := s.HolderBalance(ctx, inst.ID, "bob")
	if bal != 10 {
		t.Errorf("units = %d, want 10", bal)
	}
	bob, _ := s.GetBalance(ctx, "bob", payment.BaseCurrency)
	alice, _ := s.GetBalance(ctx, "alice", payment.BaseCurrency)
	if bob != 0 || alice != 5000 {
		t.Errorf("balances = %d/%d, want 0/5000", bob, alice)
	}

	// Broke buyer changes nothing.
	err := s.ApplyEntitlementPurchase(ctx, purchase)
	if !errors.Is(err, tollgate.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	got, _ := s.GetInstrument(ctx, inst.ID)
	if got.TotalSupply != 10 {
		t.Errorf("supply = %d, want 10", got.TotalSupply)
	}
}

func TestBalancesAndSweep(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.AdjustBalance(ctx, "bob", "usdc", 500); err != nil {
		t.Fatal(err)
	}
	if err := s.AdjustBalance(ctx, "bob", "usdc", -501); !errors.Is(err, tollgate.ErrInsufficientBalance) {
		t.Fatalf("overdraft: got %v", err)
	}

	amount, err := s.SweepBalance(ctx, "bob", "vault", "usdc")
	if err != nil || amount != 500 {
		t.Fatalf("sweep = %d, %v", amount, err)
	}
	vault, _ := s.GetBalance(ctx, "vault", "usdc")
	if vault != 500 {
		t.Errorf("vault = %d, want 500", vault)
	}
	if _, err := s.SweepBalance(ctx, "bob", "vault", "usdc"); !errors.Is(err, tollgate.ErrNothingToWithdraw) {
		t.Errorf("empty sweep: got %v", err)
	}
}

func TestCurrenciesAndPlatform(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetCurrency(ctx, "usdc"); !errors.Is(err, tollgate.ErrCurrencyNotFound) {
		t.Errorf("missing currency: got %v", err)
	}
	c := &payment.Currency{Entity: types.NewEntity(), Code: "usdc", Precision: 6, MinAmount: 1, Active: true}
	if err := s.UpsertCurrency(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetCurrency(ctx, "usdc")
	if err != nil || got.Precision != 6 {
		t.Fatalf("GetCurrency: %+v, %v", got, err)
	}

	if _, err := s.GetPlatform(ctx); !errors.Is(err, tollgate.ErrNotFound) {
		t.Errorf("missing platform: got %v", err)
	}
	p := &payment.Platform{Entity: types.NewEntity(), FeeBps: 500, FeeRecipient: "platform"}
	if err := s.SavePlatform(ctx, p); err != nil {
		t.Fatal(err)
	}
	loaded, err := s.GetPlatform(ctx)
	if err != nil || loaded.FeeBps != 500 {
		t.Fatalf("GetPlatform: %+v, %v", loaded, err)
	}
}

func TestRegistryStats(t *testing.T) {
	s := New()
	ctx := context.Background()

	inst := newInstrument("alice")
	if err := s.CreateInstrument(ctx, inst); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		r := newResource("alice", inst.ID)
		if i == 2 {
			r.Active = false
		}
		if err := s.CreateResource(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.RegistryStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalResources != 3 || stats.ActiveResources != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
