// Package harness runs declarative conformance scenarios against the
// funding engine.
//
// A scenario is a YAML document describing a starting budget, a rule
// set, a sequence of steps (runs, simulations, undos, clock advances),
// and assertions over the resulting balances and history. Scenarios run
// against a fresh in-memory ledger with a frozen clock and fixed
// execution IDs, so results are fully deterministic and suitable for
// golden-file comparison.
//
// The harness exercises the real engine end to end: eligibility,
// ordering, calculation, transfer planning, ledger application, history,
// and undo. Nothing is stubbed.
package harness
