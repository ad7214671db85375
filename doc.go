// Package tollgate provides a token-gated usage-metering and
// payment-settlement ledger for Go applications.
//
// Tollgate is designed as a library, not a service. Import it directly into
// your Go application as the transactional core of a paid-access
// marketplace. It provides:
//
//   - Supply-capped entitlement instruments with threshold-based access checks
//   - A resource registry binding priced assets to entitlement instruments
//   - Multi-currency custodial balances with bounded deposits/withdrawals
//   - Atomic metered settlements with basis-point fee splitting
//   - An append-only, indexed payment history
//   - Synchronous lifecycle notifications via a plugin registry
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/tollgate"
//	    "github.com/xraph/tollgate/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.New(db)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create engine
//	eng := tollgate.New(store)
//
//	// Start (runs migrations, initializes plugins)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Entitlement instruments gate access. Each resource owner deploys one; a
// consumer's balance of it determines basic and premium access:
//
//	inst := &instrument.Instrument{
//	    Owner:            "owner-account",
//	    MaxSupply:        100000,
//	    AccessThreshold:  5,
//	    PremiumThreshold: 50,
//	}
//	eng.CreateInstrument(ctx, inst)
//	eng.Issue(tollgate.WithActor(ctx, "owner-account"), inst.ID, "consumer", 5)
//	ok, _ := eng.HasAccess(ctx, inst.ID, "consumer") // true
//
// Resources bind content to an instrument and a per-use price:
//
//	res := &registry.Resource{
//	    ID:           id.NewResourceID(),
//	    ContentRef:   "bafybeigdyrzt...",
//	    InstrumentID: inst.ID,
//	    Owner:        "owner-account",
//	    PricePerUse:  types.New(2000, payment.BaseCurrency),
//	}
//	eng.RegisterResource(tollgate.WithActor(ctx, "owner-account"), res)
//
// Consumers pre-fund a custodial balance and are debited per use; proceeds
// stream to the owner minus the platform fee:
//
//	eng.Deposit(tollgate.WithActor(ctx, "consumer"), payment.BaseCurrency, 100000)
//	payID, _ := eng.Settle(opCtx, res.ID, "consumer", "owner-account",
//	    types.New(2000, payment.BaseCurrency), "")
//
// # Atomicity
//
// Every mutating operation validates its preconditions, then applies all
// state through a single atomic store call. A returned error always means
// nothing changed. Plugin notifications fire only after state has
// committed, so observers never see partially-applied mutations.
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	inst_01h2xcejqtf2nbrexx3vqjhp41  // Instrument ID
//	res_01h2xcejqtf2nbrexx3vqjhp41   // Resource ID
//	pay_01h455vb4pex5vsknk084sn02q   // Payment ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package tollgate
