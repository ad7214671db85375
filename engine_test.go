package tollgate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/tollgate"
	"github.com/xraph/tollgate/capability"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/registry"
	"github.com/xraph/tollgate/store/memory"
	"github.com/xraph/tollgate/types"
)

func newTestEngine(t *testing.T) (*tollgate.Engine, context.Context) {
	t.Helper()

	eng := tollgate.New(memory.New(), tollgate.WithAdmin("admin"))
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	return eng, ctx
}

func asActor(ctx context.Context, account string) context.Context {
	return tollgate.WithActor(ctx, account)
}

func TestStartSeedsPlatform(t *testing.T) {
	eng, ctx := newTestEngine(t)

	p, err := eng.Platform(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p.FeeBps != tollgate.DefaultFeeBps {
		t.Errorf("FeeBps = %d, want %d", p.FeeBps, tollgate.DefaultFeeBps)
	}
	if !p.Grants.Has("admin", capability.Admin) {
		t.Error("bootstrap admin missing the admin capability")
	}

	base, err := eng.GetCurrency(ctx, payment.BaseCurrency)
	if err != nil {
		t.Fatal(err)
	}
	if !base.Active {
		t.Error("base currency not active")
	}
}

func TestCreateInstrumentValidation(t *testing.T) {
	eng, ctx := newTestEngine(t)
	alice := asActor(ctx, "alice")

	cases := []struct {
		name string
		inst *instrument.Instrument
		want error
	}{
		{
			name: "zero max supply",
			inst: &instrument.Instrument{Name: "Pass", Symbol: "PASS"},
			want: tollgate.ErrInvalidInput,
		},
		{
			name: "threshold order inverted",
			inst: &instrument.Instrument{
				Name: "Pass", Symbol: "PASS",
				MaxSupply: 1000, AccessThreshold: 50, PremiumThreshold: 5,
			},
			want: tollgate.ErrThresholdOrder,
		},
		{
			name: "preminted supply",
			inst: &instrument.Instrument{
				Name: "Pass", Symbol: "PASS",
				MaxSupply: 1000, TotalSupply: 10,
			},
			want: tollgate.ErrInvalidInput,
		},
		{
			name: "unit price in foreign currency",
			inst: &instrument.Instrument{
				Name: "Pass", Symbol: "PASS", MaxSupply: 1000,
				UnitPrice: types.USD(100),
			},
			want: tollgate.ErrInvalidInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := eng.CreateInstrument(alice, tc.inst)
			if !errors.Is(err, tc.want) {
				t.Errorf("CreateInstrument() = %v, want %v", err, tc.want)
			}
		})
	}

	// Creating on someone else's behalf is rejected.
	err := eng.CreateInstrument(alice, &instrument.Instrument{
		Name: "Pass", Symbol: "PASS", MaxSupply: 1000, Owner: "mallory",
	})
	if !errors.Is(err, tollgate.ErrUnauthorized) {
		t.Errorf("foreign owner: got %v, want ErrUnauthorized", err)
	}
}

func TestIssueAndAccessThresholds(t *testing.T) {
	eng, ctx := newTestEngine(t)
	alice := asActor(ctx, "alice")

	inst := &instrument.Instrument{
		Name: "Access Pass", Symbol: "PASS",
		MaxSupply: 100000, AccessThreshold: 5, PremiumThreshold: 50,
	}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}

	// Only minters may issue.
	if err := eng.Issue(asActor(ctx, "bob"), inst.ID, "bob", 10); !errors.Is(err, tollgate.ErrUnauthorized) {
		t.Fatalf("non-minter issue: got %v, want ErrUnauthorized", err)
	}

	if err := eng.Issue(alice, inst.ID, "bob", 4); err != nil {
		t.Fatal(err)
	}

	ok, err := eng.HasAccess(ctx, inst.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("balance 4 clears access threshold 5")
	}

	if err := eng.Issue(alice, inst.ID, "bob", 1); err != nil {
		t.Fatal(err)
	}
	if ok, _ = eng.HasAccess(ctx, inst.ID, "bob"); !ok {
		t.Error("balance 5 does not clear access threshold 5")
	}
	if ok, _ = eng.HasPremiumAccess(ctx, inst.ID, "bob"); ok {
		t.Error("balance 5 clears premium threshold 50")
	}

	if err := eng.Issue(alice, inst.ID, "bob", 45); err != nil {
		t.Fatal(err)
	}
	if ok, _ = eng.HasPremiumAccess(ctx, inst.ID, "bob"); !ok {
		t.Error("balance 50 does not clear premium threshold 50")
	}

	// Supply cap.
	if err := eng.Issue(alice, inst.ID, "carol", 100000); !errors.Is(err, tollgate.ErrSupplyExceeded) {
		t.Errorf("over-cap issue: got %v, want ErrSupplyExceeded", err)
	}

	got, err := eng.GetInstrument(ctx, inst.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalSupply != 50 {
		t.Errorf("TotalSupply = %d, want 50", got.TotalSupply)
	}
}

func TestRedeemAndTransferConserveSupply(t *testing.T) {
	eng, ctx := newTestEngine(t)
	alice := asActor(ctx, "alice")
	bob := asActor(ctx, "bob")

	inst := &instrument.Instrument{Name: "Pass", Symbol: "PASS", MaxSupply: 1000}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}
	if err := eng.Issue(alice, inst.ID, "bob", 100); err != nil {
		t.Fatal(err)
	}

	if err := eng.TransferEntitlement(bob, inst.ID, "carol", 30); err != nil {
		t.Fatal(err)
	}
	if err := eng.TransferEntitlement(bob, inst.ID, "carol", 1000); !errors.Is(err, tollgate.ErrInsufficientUnits) {
		t.Fatalf("overdraw transfer: got %v, want ErrInsufficientUnits", err)
	}

	// Only instrument admins may redeem; the owner implicitly is one.
	if err := eng.Redeem(bob, inst.ID, "bob", 20); !errors.Is(err, tollgate.ErrUnauthorized) {
		t.Fatalf("non-admin redeem: got %v, want ErrUnauthorized", err)
	}
	if err := eng.Redeem(alice, inst.ID, "bob", 20); err != nil {
		t.Fatal(err)
	}
	if err := eng.Redeem(alice, inst.ID, "bob", 1000); !errors.Is(err, tollgate.ErrInsufficientUnits) {
		t.Fatalf("overdraw redeem: got %v, want ErrInsufficientUnits", err)
	}

	bobBal, _ := eng.EntitlementBalance(ctx, inst.ID, "bob")
	carolBal, _ := eng.EntitlementBalance(ctx, inst.ID, "carol")
	got, _ := eng.GetInstrument(ctx, inst.ID)

	if bobBal != 50 || carolBal != 30 {
		t.Errorf("balances = %d/%d, want 50/30", bobBal, carolBal)
	}
	if got.TotalSupply != 80 {
		t.Errorf("TotalSupply = %d, want 80 after redeeming 20", got.TotalSupply)
	}
	if bobBal+carolBal != got.TotalSupply {
		t.Errorf("holder balances %d do not sum to supply %d", bobBal+carolBal, got.TotalSupply)
	}
}

func TestPublicIssue(t *testing.T) {
	eng, ctx := newTestEngine(t)
	alice := asActor(ctx, "alice")
	bob := asActor(ctx, "bob")

	inst := &instrument.Instrument{Name: "Pass", Symbol: "PASS", MaxSupply: 1000}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}

	// Closed until the owner opens it with a price.
	if err := eng.PublicIssue(bob, inst.ID, 5); !errors.Is(err, tollgate.ErrPublicIssueClosed) {
		t.Fatalf("closed issuance: got %v, want ErrPublicIssueClosed", err)
	}

	if err := eng.SetUnitPrice(alice, inst.ID, types.New(100, payment.BaseCurrency)); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetPublicIssuance(alice, inst.ID, true); err != nil {
		t.Fatal(err)
	}

	// Buyer has no custodial funds yet.
	if err := eng.PublicIssue(bob, inst.ID, 5); !errors.Is(err, tollgate.ErrInsufficientBalance) {
		t.Fatalf("broke buyer: got %v, want ErrInsufficientBalance", err)
	}

	if err := eng.Deposit(bob, payment.BaseCurrency, 10000); err != nil {
		t.Fatal(err)
	}
	if err := eng.PublicIssue(bob, inst.ID, 5); err != nil {
		t.Fatal(err)
	}

	units, _ := eng.EntitlementBalance(ctx, inst.ID, "bob")
	if units != 5 {
		t.Errorf("bob units = %d, want 5", units)
	}
	bobBal, _ := eng.BalanceOf(ctx, "bob", payment.BaseCurrency)
	if bobBal != 10000-500 {
		t.Errorf("bob balance = %d, want 9500", bobBal)
	}
	aliceBal, _ := eng.BalanceOf(ctx, "alice", payment.BaseCurrency)
	if aliceBal != 500 {
		t.Errorf("alice proceeds = %d, want 500", aliceBal)
	}
}

func TestRegisterResourceValidation(t *testing.T) {
	eng, ctx := newTestEngine(t)
	alice := asActor(ctx, "alice")
	admin := asActor(ctx, "admin")

	inst := &instrument.Instrument{Name: "Pass", Symbol: "PASS", MaxSupply: 1000}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}

	// Missing content reference.
	err := eng.RegisterResource(alice, &registry.Resource{
		InstrumentID: inst.ID,
		PricePerUse:  types.New(2000, payment.BaseCurrency),
	})
	if !errors.Is(err, tollgate.ErrEmptyContentRef) {
		t.Fatalf("empty content ref: got %v, want ErrEmptyContentRef", err)
	}

	// Instrument owned by someone else.
	other := &instrument.Instrument{Name: "Other", Symbol: "OTH", MaxSupply: 100}
	if err := eng.CreateInstrument(asActor(ctx, "mallory"), other); err != nil {
		t.Fatal(err)
	}
	err = eng.RegisterResource(alice, &registry.Resource{
		ContentRef:   "ipfs://doc",
		InstrumentID: other.ID,
		PricePerUse:  types.New(2000, payment.BaseCurrency),
	})
	if !errors.Is(err, tollgate.ErrInvalidInstrument) {
		t.Fatalf("foreign instrument: got %v, want ErrInvalidInstrument", err)
	}

	// Price floor applies at registration.
	if err := eng.SetPriceFloor(admin, 1000); err != nil {
		t.Fatal(err)
	}
	err = eng.RegisterResource(alice, &registry.Resource{
		ContentRef:   "ipfs://doc",
		InstrumentID: inst.ID,
		PricePerUse:  types.New(500, payment.BaseCurrency),
	})
	if !errors.Is(err, tollgate.ErrPriceBelowFloor) {
		t.Fatalf("below floor: got %v, want ErrPriceBelowFloor", err)
	}

	res := &registry.Resource{
		ContentRef:   "ipfs://doc",
		InstrumentID: inst.ID,
		PricePerUse:  types.New(2000, payment.BaseCurrency),
	}
	if err := eng.RegisterResource(alice, res); err != nil {
		t.Fatal(err)
	}
	if res.ID.IsNil() {
		t.Error("registered resource has no ID")
	}
	if !res.Active {
		t.Error("registered resource not active")
	}

	// Registering the same ID twice fails with no state change.
	if err := eng.RegisterResource(alice, res); !errors.Is(err, tollgate.ErrResourceExists) {
		t.Fatalf("duplicate registration: got %v, want ErrResourceExists", err)
	}
	total, err := eng.CountResources(ctx, registry.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("resource count = %d, want 1", total)
	}
}

func TestListResourcesPagination(t *testing.T) {
	eng, ctx := newTestEngine(t)
	alice := asActor(ctx, "alice")

	inst := &instrument.Instrument{Name: "Pass", Symbol: "PASS", MaxSupply: 1000}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}

	var refs []string
	for i := 0; i < 5; i++ {
		ref := fmt.Sprintf("ipfs://doc-%d", i)
		refs = append(refs, ref)
		err := eng.RegisterResource(alice, &registry.Resource{
			ContentRef:   ref,
			InstrumentID: inst.ID,
			PricePerUse:  types.New(2000, payment.BaseCurrency),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	// Registration order is stable across pages.
	page, err := eng.ListResources(ctx, registry.ListOpts{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].ContentRef != refs[1] || page[1].ContentRef != refs[2] {
		t.Errorf("page = [%s %s], want [%s %s]", page[0].ContentRef, page[1].ContentRef, refs[1], refs[2])
	}

	// Offset at or past the end fails loudly.
	if _, err := eng.ListResources(ctx, registry.ListOpts{Offset: 5}); !errors.Is(err, tollgate.ErrOffsetOutOfRange) {
		t.Errorf("offset at end: got %v, want ErrOffsetOutOfRange", err)
	}
	if _, err := eng.ListResources(ctx, registry.ListOpts{Offset: -1}); !errors.Is(err, tollgate.ErrOffsetOutOfRange) {
		t.Errorf("negative offset: got %v, want ErrOffsetOutOfRange", err)
	}

	// Offset zero against an empty filtered set is fine.
	empty, err := eng.ListResources(ctx, registry.ListOpts{Owner: "nobody"})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("empty filter returned %d resources", len(empty))
	}
}

func TestResourceAccessMinimumOverride(t *testing.T) {
	eng, ctx := newTestEngine(t)
	alice := asActor(ctx, "alice")

	inst := &instrument.Instrument{
		Name: "Pass", Symbol: "PASS",
		MaxSupply: 1000, AccessThreshold: 5, PremiumThreshold: 50,
	}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}
	res := &registry.Resource{
		ContentRef:   "ipfs://doc",
		InstrumentID: inst.ID,
		PricePerUse:  types.New(2000, payment.BaseCurrency),
	}
	if err := eng.RegisterResource(alice, res); err != nil {
		t.Fatal(err)
	}
	if err := eng.Issue(alice, inst.ID, "bob", 10); err != nil {
		t.Fatal(err)
	}

	// Instrument default threshold of 5: balance 10 clears it.
	if ok, _ := eng.ResourceHasAccess(ctx, res.ID, "bob"); !ok {
		t.Error("balance 10 does not clear default threshold 5")
	}

	// Resource-level minimum overrides upward.
	if err := eng.SetResourceAccessMinimum(alice, res.ID, 20); err != nil {
		t.Fatal(err)
	}
	if ok, _ := eng.ResourceHasAccess(ctx, res.ID, "bob"); ok {
		t.Error("balance 10 clears overridden minimum 20")
	}

	// Zero restores the instrument default.
	if err := eng.SetResourceAccessMinimum(alice, res.ID, 0); err != nil {
		t.Fatal(err)
	}
	if ok, _ := eng.ResourceHasAccess(ctx, res.ID, "bob"); !ok {
		t.Error("instrument default not restored")
	}

	// Deactivated resources deny access without erroring.
	if err := eng.DeactivateResource(alice, res.ID); err != nil {
		t.Fatal(err)
	}
	if ok, err := eng.ResourceHasAccess(ctx, res.ID, "bob"); err != nil || ok {
		t.Errorf("deactivated resource: ok=%v err=%v, want false nil", ok, err)
	}
}

func TestResourceUpdatesOwnerOrAdmin(t *testing.T) {
	eng, ctx := newTestEngine(t)
	admin := asActor(ctx, "admin")
	alice := asActor(ctx, "alice")

	inst := &instrument.Instrument{Name: "Pass", Symbol: "PASS", MaxSupply: 1000}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}
	res := &registry.Resource{
		ContentRef:   "ipfs://doc",
		InstrumentID: inst.ID,
		PricePerUse:  types.New(2000, payment.BaseCurrency),
	}
	if err := eng.RegisterResource(alice, res); err != nil {
		t.Fatal(err)
	}

	// Accounts that are neither the owner nor a platform admin are
	// rejected.
	if err := eng.DeactivateResource(asActor(ctx, "mallory"), res.ID); !errors.Is(err, tollgate.ErrOwnerMismatch) {
		t.Fatalf("non-owner deactivate: got %v, want ErrOwnerMismatch", err)
	}
	if err := eng.UpdateResourcePrice(asActor(ctx, "mallory"), res.ID, types.New(3000, payment.BaseCurrency)); !errors.Is(err, tollgate.ErrOwnerMismatch) {
		t.Fatalf("non-owner reprice: got %v, want ErrOwnerMismatch", err)
	}

	// A platform admin may moderate resources it does not own.
	if err := eng.UpdateResourcePrice(admin, res.ID, types.New(3000, payment.BaseCurrency)); err != nil {
		t.Fatalf("admin reprice: %v", err)
	}
	if err := eng.UpdateResourceMetadata(admin, res.ID, "docs", []string{"reviewed"}, "v2"); err != nil {
		t.Fatalf("admin metadata update: %v", err)
	}
	if err := eng.DeactivateResource(admin, res.ID); err != nil {
		t.Fatalf("admin deactivate: %v", err)
	}
	got, err := eng.GetResource(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Active {
		t.Error("resource still active after admin deactivation")
	}
	if got.PricePerUse.Amount != 3000 {
		t.Errorf("PricePerUse = %d, want 3000", got.PricePerUse.Amount)
	}

	// And the owner can bring it back.
	if err := eng.ReactivateResource(alice, res.ID); err != nil {
		t.Fatal(err)
	}
	if err := eng.ReactivateResource(admin, res.ID); !errors.Is(err, tollgate.ErrResourceActive) {
		t.Errorf("double reactivate: got %v, want ErrResourceActive", err)
	}
}

func TestSettlement(t *testing.T) {
	eng, ctx := newTestEngine(t)
	admin := asActor(ctx, "admin")
	alice := asActor(ctx, "alice")
	operator := asActor(ctx, "operator")

	if err := eng.GrantCapability(admin, "operator", capability.Operator); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetFeeRecipient(admin, "treasury"); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetPlatformFee(admin, 500); err != nil {
		t.Fatal(err)
	}

	inst := &instrument.Instrument{
		Name: "Pass", Symbol: "PASS",
		MaxSupply: 1000, AccessThreshold: 5, PremiumThreshold: 50,
	}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}
	res := &registry.Resource{
		ContentRef:   "ipfs://doc",
		InstrumentID: inst.ID,
		PricePerUse:  types.New(2000, payment.BaseCurrency),
	}
	if err := eng.RegisterResource(alice, res); err != nil {
		t.Fatal(err)
	}
	if err := eng.Issue(alice, inst.ID, "bob", 10); err != nil {
		t.Fatal(err)
	}
	if err := eng.Deposit(asActor(ctx, "bob"), payment.BaseCurrency, 200000); err != nil {
		t.Fatal(err)
	}

	amount := types.New(100000, payment.BaseCurrency)

	// Settlement requires the operator capability.
	if _, err := eng.Settle(alice, res.ID, "bob", "alice", amount, "use-1"); !errors.Is(err, tollgate.ErrUnauthorized) {
		t.Fatalf("non-operator settle: got %v, want ErrUnauthorized", err)
	}
	// Payee must be the resource owner.
	if _, err := eng.Settle(operator, res.ID, "bob", "mallory", amount, "use-1"); !errors.Is(err, tollgate.ErrOwnerMismatch) {
		t.Fatalf("wrong payee: got %v, want ErrOwnerMismatch", err)
	}
	// Self-settlement is rejected.
	if _, err := eng.Settle(operator, res.ID, "alice", "alice", amount, "use-1"); !errors.Is(err, tollgate.ErrSelfSettlement) {
		t.Fatalf("self settlement: got %v, want ErrSelfSettlement", err)
	}

	payID, err := eng.Settle(operator, res.ID, "bob", "alice", amount, "use-1")
	if err != nil {
		t.Fatal(err)
	}

	// 500 bps of 100000 = 5000 fee, 95000 net.
	bobBal, _ := eng.BalanceOf(ctx, "bob", payment.BaseCurrency)
	aliceBal, _ := eng.BalanceOf(ctx, "alice", payment.BaseCurrency)
	feeBal, _ := eng.BalanceOf(ctx, "treasury", payment.BaseCurrency)
	if bobBal != 100000 {
		t.Errorf("payer balance = %d, want 100000", bobBal)
	}
	if aliceBal != 95000 {
		t.Errorf("payee balance = %d, want 95000", aliceBal)
	}
	if feeBal != 5000 {
		t.Errorf("fee recipient balance = %d, want 5000", feeBal)
	}

	pay, err := eng.GetPayment(ctx, payID)
	if err != nil {
		t.Fatal(err)
	}
	if pay.Fee.Amount != 5000 || pay.Net.Amount != 95000 {
		t.Errorf("payment split = %d/%d, want 5000/95000", pay.Fee.Amount, pay.Net.Amount)
	}
	if pay.Amount.Amount != pay.Fee.Amount+pay.Net.Amount {
		t.Error("fee + net does not reconstruct the gross amount")
	}
	if !pay.Processed {
		t.Error("payment not marked processed")
	}
	if pay.UsageRef != "use-1" {
		t.Errorf("UsageRef = %q, want use-1", pay.UsageRef)
	}

	// Usage counters advanced.
	gotRes, _ := eng.GetResource(ctx, res.ID)
	if gotRes.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", gotRes.UsageCount)
	}
	if gotRes.UsageSpend.Amount != 100000 {
		t.Errorf("UsageSpend = %d, want 100000", gotRes.UsageSpend.Amount)
	}

	// Earnings accumulate net, not gross.
	earnings, err := eng.OwnerEarnings(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(earnings) != 1 || earnings[0].Total != 95000 {
		t.Errorf("earnings = %+v, want one entry totaling 95000", earnings)
	}

	stats, err := eng.LedgerStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalPayments != 1 || stats.VolumeByCurrency[payment.BaseCurrency] != 100000 {
		t.Errorf("stats = %+v, want 1 payment / 100000 volume", stats)
	}

	// History reads newest first.
	if err := eng.Issue(alice, inst.ID, "bob", 1); err != nil {
		t.Fatal(err)
	}
	second, err := eng.Settle(operator, res.ID, "bob", "alice", types.New(2000, payment.BaseCurrency), "use-2")
	if err != nil {
		t.Fatal(err)
	}
	history, err := eng.PaymentsByPayer(ctx, "bob", payment.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].ID != second {
		t.Errorf("history not newest-first: %+v", history)
	}
}

func TestSettleDoesNotGateOnEntitlement(t *testing.T) {
	eng, ctx := newTestEngine(t)
	admin := asActor(ctx, "admin")
	alice := asActor(ctx, "alice")

	if err := eng.GrantCapability(admin, "operator", capability.Operator); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetFeeRecipient(admin, "treasury"); err != nil {
		t.Fatal(err)
	}

	inst := &instrument.Instrument{
		Name: "Pass", Symbol: "PASS",
		MaxSupply: 1000, AccessThreshold: 5, PremiumThreshold: 50,
	}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}
	res := &registry.Resource{
		ContentRef:   "ipfs://doc",
		InstrumentID: inst.ID,
		PricePerUse:  types.New(2000, payment.BaseCurrency),
	}
	if err := eng.RegisterResource(alice, res); err != nil {
		t.Fatal(err)
	}

	// Carol holds zero entitlement units but has custodial funds. Access
	// gating happens before metering, via ResourceHasAccess; settlement
	// only moves funds.
	if err := eng.Deposit(asActor(ctx, "carol"), payment.BaseCurrency, 10000); err != nil {
		t.Fatal(err)
	}
	if ok, _ := eng.ResourceHasAccess(ctx, res.ID, "carol"); ok {
		t.Fatal("carol unexpectedly clears the access threshold")
	}

	payID, err := eng.Settle(asActor(ctx, "operator"), res.ID, "carol", "alice", types.New(2000, payment.BaseCurrency), "use-1")
	if err != nil {
		t.Fatalf("settle without entitlement: %v", err)
	}
	pay, err := eng.GetPayment(ctx, payID)
	if err != nil {
		t.Fatal(err)
	}
	if pay.Payer != "carol" {
		t.Errorf("Payer = %q, want carol", pay.Payer)
	}
}

func TestSettleAtomicityUnderFailure(t *testing.T) {
	eng, ctx := newTestEngine(t)
	admin := asActor(ctx, "admin")
	alice := asActor(ctx, "alice")
	operator := asActor(ctx, "operator")

	if err := eng.GrantCapability(admin, "operator", capability.Operator); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetFeeRecipient(admin, "treasury"); err != nil {
		t.Fatal(err)
	}

	inst := &instrument.Instrument{Name: "Pass", Symbol: "PASS", MaxSupply: 1000}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}
	res := &registry.Resource{
		ContentRef:   "ipfs://doc",
		InstrumentID: inst.ID,
		PricePerUse:  types.New(2000, payment.BaseCurrency),
	}
	if err := eng.RegisterResource(alice, res); err != nil {
		t.Fatal(err)
	}
	if err := eng.Deposit(asActor(ctx, "bob"), payment.BaseCurrency, 1000); err != nil {
		t.Fatal(err)
	}

	// Bob cannot cover the amount; the settlement must fail without
	// leaving any partial effect behind.
	_, err := eng.Settle(operator, res.ID, "bob", "alice", types.New(2000, payment.BaseCurrency), "use-1")
	if !errors.Is(err, tollgate.ErrInsufficientBalance) {
		t.Fatalf("underfunded settle: got %v, want ErrInsufficientBalance", err)
	}

	bobBal, _ := eng.BalanceOf(ctx, "bob", payment.BaseCurrency)
	if bobBal != 1000 {
		t.Errorf("payer balance = %d, want the original 1000", bobBal)
	}
	aliceBal, _ := eng.BalanceOf(ctx, "alice", payment.BaseCurrency)
	if aliceBal != 0 {
		t.Errorf("payee balance = %d, want 0", aliceBal)
	}
	feeBal, _ := eng.BalanceOf(ctx, "treasury", payment.BaseCurrency)
	if feeBal != 0 {
		t.Errorf("fee recipient balance = %d, want 0", feeBal)
	}

	gotRes, err := eng.GetResource(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotRes.UsageCount != 0 || gotRes.UsageSpend.Amount != 0 {
		t.Errorf("usage = %d/%d, want 0/0", gotRes.UsageCount, gotRes.UsageSpend.Amount)
	}

	earnings, err := eng.OwnerEarnings(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(earnings) != 0 {
		t.Errorf("earnings = %+v, want none", earnings)
	}

	stats, err := eng.LedgerStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalPayments != 0 {
		t.Errorf("TotalPayments = %d, want 0", stats.TotalPayments)
	}

	history, err := eng.PaymentsByPayer(ctx, "bob", payment.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("payment history = %+v, want empty", history)
	}
}

func TestSettlementRequiresFeeRecipient(t *testing.T) {
	eng, ctx := newTestEngine(t)
	admin := asActor(ctx, "admin")
	alice := asActor(ctx, "alice")

	if err := eng.GrantCapability(admin, "operator", capability.Operator); err != nil {
		t.Fatal(err)
	}

	inst := &instrument.Instrument{Name: "Pass", Symbol: "PASS", MaxSupply: 1000}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}
	res := &registry.Resource{
		ContentRef:   "ipfs://doc",
		InstrumentID: inst.ID,
		PricePerUse:  types.New(2000, payment.BaseCurrency),
	}
	if err := eng.RegisterResource(alice, res); err != nil {
		t.Fatal(err)
	}
	if err := eng.Issue(alice, inst.ID, "bob", 10); err != nil {
		t.Fatal(err)
	}
	if err := eng.Deposit(asActor(ctx, "bob"), payment.BaseCurrency, 10000); err != nil {
		t.Fatal(err)
	}

	// Default fee is positive but no recipient is configured yet.
	_, err := eng.Settle(asActor(ctx, "operator"), res.ID, "bob", "alice", types.New(2000, payment.BaseCurrency), "")
	if !errors.Is(err, tollgate.ErrNoFeeRecipient) {
		t.Fatalf("got %v, want ErrNoFeeRecipient", err)
	}

	// A zero fee clears the requirement.
	if err := eng.SetPlatformFee(admin, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Settle(asActor(ctx, "operator"), res.ID, "bob", "alice", types.New(2000, payment.BaseCurrency), ""); err != nil {
		t.Fatal(err)
	}

	aliceBal, _ := eng.BalanceOf(ctx, "alice", payment.BaseCurrency)
	if aliceBal != 2000 {
		t.Errorf("payee receives %d with zero fee, want the full 2000", aliceBal)
	}
}

func TestPauseBehavior(t *testing.T) {
	eng, ctx := newTestEngine(t)
	admin := asActor(ctx, "admin")
	alice := asActor(ctx, "alice")
	bob := asActor(ctx, "bob")

	inst := &instrument.Instrument{
		Name: "Pass", Symbol: "PASS",
		MaxSupply: 1000, AccessThreshold: 5, PremiumThreshold: 50,
	}
	if err := eng.CreateInstrument(alice, inst); err != nil {
		t.Fatal(err)
	}
	if err := eng.Issue(alice, inst.ID, "bob", 10); err != nil {
		t.Fatal(err)
	}
	if err := eng.Deposit(bob, payment.BaseCurrency, 5000); err != nil {
		t.Fatal(err)
	}

	// Resuming an instrument that is not paused is a state conflict.
	if err := eng.ResumeInstrument(alice, inst.ID); !errors.Is(err, tollgate.ErrInstrumentActive) {
		t.Errorf("resume unpaused: got %v, want ErrInstrumentActive", err)
	}

	// Instrument pause halts mutations but not reads.
	if err := eng.PauseInstrument(alice, inst.ID); err != nil {
		t.Fatal(err)
	}
	if err := eng.PauseInstrument(alice, inst.ID); !errors.Is(err, tollgate.ErrInstrumentPaused) {
		t.Errorf("double pause: got %v, want ErrInstrumentPaused", err)
	}
	if err := eng.Issue(alice, inst.ID, "bob", 1); !errors.Is(err, tollgate.ErrInstrumentPaused) {
		t.Errorf("issue while paused: got %v, want ErrInstrumentPaused", err)
	}
	if err := eng.TransferEntitlement(bob, inst.ID, "carol", 1); !errors.Is(err, tollgate.ErrInstrumentPaused) {
		t.Errorf("transfer while paused: got %v, want ErrInstrumentPaused", err)
	}
	if ok, err := eng.HasAccess(ctx, inst.ID, "bob"); err != nil || !ok {
		t.Errorf("access check while paused: ok=%v err=%v, want true nil", ok, err)
	}
	if err := eng.ResumeInstrument(alice, inst.ID); err != nil {
		t.Fatal(err)
	}
	if err := eng.Issue(alice, inst.ID, "bob", 1); err != nil {
		t.Fatal(err)
	}

	// Only pausers may pause.
	if err := eng.PauseInstrument(bob, inst.ID); !errors.Is(err, tollgate.ErrUnauthorized) {
		t.Errorf("non-pauser pause: got %v, want ErrUnauthorized", err)
	}

	// Ledger pause halts money movement; emergency sweeps keep working.
	if err := eng.PauseLedger(admin); err != nil {
		t.Fatal(err)
	}
	if err := eng.Deposit(bob, payment.BaseCurrency, 100); !errors.Is(err, tollgate.ErrLedgerPaused) {
		t.Errorf("deposit while paused: got %v, want ErrLedgerPaused", err)
	}
	if err := eng.Withdraw(bob, payment.BaseCurrency, 100); !errors.Is(err, tollgate.ErrLedgerPaused) {
		t.Errorf("withdraw while paused: got %v, want ErrLedgerPaused", err)
	}

	if err := eng.GrantCapability(admin, "recovery", capability.Treasury); err != nil {
		t.Fatal(err)
	}
	swept, err := eng.EmergencyWithdraw(asActor(ctx, "recovery"), "bob", "vault", payment.BaseCurrency)
	if err != nil {
		t.Fatal(err)
	}
	if swept != 5000 {
		t.Errorf("swept %d, want 5000", swept)
	}
	vaultBal, _ := eng.BalanceOf(ctx, "vault", payment.BaseCurrency)
	if vaultBal != 5000 {
		t.Errorf("vault balance = %d, want 5000", vaultBal)
	}

	if err := eng.ResumeLedger(admin); err != nil {
		t.Fatal(err)
	}
	if err := eng.Deposit(bob, payment.BaseCurrency, 100); err != nil {
		t.Fatal(err)
	}
}

func TestCurrencyAdministration(t *testing.T) {
	eng, ctx := newTestEngine(t)
	admin := asActor(ctx, "admin")
	bob := asActor(ctx, "bob")

	// Admin only.
	err := eng.AddCurrency(bob, &payment.Currency{Code: "usd"})
	if !errors.Is(err, tollgate.ErrUnauthorized) {
		t.Fatalf("non-admin add: got %v, want ErrUnauthorized", err)
	}

	usd := &payment.Currency{
		Code: "USD", Symbol: "$", Precision: 2,
		MinAmount: 100, MaxAmount: 1_000_000,
	}
	if err := eng.AddCurrency(admin, usd); err != nil {
		t.Fatal(err)
	}
	if err := eng.AddCurrency(admin, &payment.Currency{Code: "usd"}); !errors.Is(err, tollgate.ErrAlreadyExists) {
		t.Fatalf("duplicate add: got %v, want ErrAlreadyExists", err)
	}

	// Codes are normalized to lower case.
	got, err := eng.GetCurrency(ctx, "USD")
	if err != nil {
		t.Fatal(err)
	}
	if got.Code != "usd" {
		t.Errorf("Code = %q, want usd", got.Code)
	}

	// Bounds apply to movements.
	if err := eng.Deposit(bob, "usd", 50); !errors.Is(err, tollgate.ErrAmountOutOfBounds) {
		t.Errorf("below min deposit: got %v, want ErrAmountOutOfBounds", err)
	}
	if err := eng.Deposit(bob, "usd", 2_000_000); !errors.Is(err, tollgate.ErrAmountOutOfBounds) {
		t.Errorf("above max deposit: got %v, want ErrAmountOutOfBounds", err)
	}
	if err := eng.Deposit(bob, "usd", 500); err != nil {
		t.Fatal(err)
	}

	// The base currency is reserved.
	if err := eng.RemoveCurrency(admin, payment.BaseCurrency); !errors.Is(err, tollgate.ErrCurrencyReserved) {
		t.Errorf("remove base: got %v, want ErrCurrencyReserved", err)
	}

	// Removal deactivates; balances survive but movements stop.
	if err := eng.RemoveCurrency(admin, "usd"); err != nil {
		t.Fatal(err)
	}
	if err := eng.Deposit(bob, "usd", 500); !errors.Is(err, tollgate.ErrCurrencyInactive) {
		t.Errorf("deposit in removed currency: got %v, want ErrCurrencyInactive", err)
	}
	bal, _ := eng.BalanceOf(ctx, "bob", "usd")
	if bal != 500 {
		t.Errorf("balance after removal = %d, want 500", bal)
	}
}

func TestCapabilities(t *testing.T) {
	eng, ctx := newTestEngine(t)
	admin := asActor(ctx, "admin")

	if err := eng.GrantCapability(admin, "ops", capability.Operator); err != nil {
		t.Fatal(err)
	}
	if err := eng.GrantCapability(admin, "ops", "launch_codes"); !errors.Is(err, tollgate.ErrInvalidCapability) {
		t.Fatalf("unknown capability: got %v, want ErrInvalidCapability", err)
	}

	caps, err := eng.Capabilities(ctx, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != 1 || caps[0] != capability.Operator {
		t.Errorf("caps = %v, want [operator]", caps)
	}

	// Non-admins cannot grant.
	err = eng.GrantCapability(asActor(ctx, "ops"), "friend", capability.Operator)
	if !errors.Is(err, tollgate.ErrUnauthorized) {
		t.Fatalf("non-admin grant: got %v, want ErrUnauthorized", err)
	}

	if err := eng.RevokeCapability(admin, "ops", capability.Operator); err != nil {
		t.Fatal(err)
	}
	caps, _ = eng.Capabilities(ctx, "ops")
	if len(caps) != 0 {
		t.Errorf("caps after revoke = %v, want none", caps)
	}

	// Admin implies every capability.
	adminCaps, _ := eng.Capabilities(ctx, "admin")
	if len(adminCaps) != 1 || adminCaps[0] != capability.Admin {
		t.Errorf("admin caps = %v, want [admin]", adminCaps)
	}
}

func TestFeeCeiling(t *testing.T) {
	eng, ctx := newTestEngine(t)
	admin := asActor(ctx, "admin")

	if err := eng.SetPlatformFee(admin, payment.MaxFeeBps); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetPlatformFee(admin, payment.MaxFeeBps+1); !errors.Is(err, tollgate.ErrFeeAboveCeiling) {
		t.Errorf("over-ceiling fee: got %v, want ErrFeeAboveCeiling", err)
	}
	if err := eng.SetPlatformFee(admin, -1); !errors.Is(err, tollgate.ErrFeeAboveCeiling) {
		t.Errorf("negative fee: got %v, want ErrFeeAboveCeiling", err)
	}
}

func TestActorRequired(t *testing.T) {
	eng, ctx := newTestEngine(t)

	err := eng.CreateInstrument(ctx, &instrument.Instrument{Name: "Pass", MaxSupply: 10})
	if !errors.Is(err, tollgate.ErrEmptyAccount) {
		t.Errorf("no actor: got %v, want ErrEmptyAccount", err)
	}
	if err := eng.Deposit(ctx, payment.BaseCurrency, 100); !errors.Is(err, tollgate.ErrEmptyAccount) {
		t.Errorf("no actor deposit: got %v, want ErrEmptyAccount", err)
	}
}
