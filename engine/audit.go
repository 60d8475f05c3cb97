/*
audit.go - Invariant sweep over the whole depot state

PURPOSE:
  Audit re-checks every invariant the composite operations maintain:

    - tank level within [0, capacity]
    - no negative customer or supplier balance
    - bottle attribution: CustomerID set iff status is with_customer,
      and the customer exists
    - supplier ledger reconciles with the refill movement log
    - supplier cumulative totals never negative

  Operations guarantee these by construction, so findings indicate store
  corruption or out-of-band writes. The API scheduler runs this nightly
  and logs every finding.

SEE ALSO:
  - api/scheduler.go: Cron wiring
*/
package engine

import (
	"context"
	"fmt"

	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

// Finding is one detected invariant violation.
type Finding struct {
	Code    string `json:"code"`
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
}

// Audit sweeps the store and returns every invariant violation found.
// Read-only; an empty slice means the state is consistent.
func (e *Engine) Audit(ctx context.Context) ([]Finding, error) {
	var findings []Finding
	s := e.store
	credit := ledger.New(s)

	tank, err := s.GetTank(ctx)
	if err != nil {
		return nil, err
	}
	if tank.CurrentLevel.IsNegative() {
		findings = append(findings, Finding{
			Code:    "tank_negative",
			Subject: "tank",
			Detail:  fmt.Sprintf("level %sL below zero", tank.CurrentLevel),
		})
	}
	if tank.CurrentLevel.GreaterThan(tank.Capacity) {
		findings = append(findings, Finding{
			Code:    "tank_overfull",
			Subject: "tank",
			Detail:  fmt.Sprintf("level %sL exceeds capacity %sL", tank.CurrentLevel, tank.Capacity),
		})
	}

	customers, err := s.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(customers))
	for _, c := range customers {
		known[c.ID] = true
		balance, err := credit.Balance(ctx, ledger.HolderCustomer, ledger.HolderID(c.ID))
		if err != nil {
			return nil, err
		}
		if balance.IsNegative() {
			findings = append(findings, Finding{
				Code:    "negative_balance",
				Subject: "customer/" + c.ID,
				Detail:  fmt.Sprintf("balance %s below zero", balance),
			})
		}
		if c.LoyaltyPoints < 0 {
			findings = append(findings, Finding{
				Code:    "negative_points",
				Subject: "customer/" + c.ID,
				Detail:  fmt.Sprintf("loyalty points %d below zero", c.LoyaltyPoints),
			})
		}
	}

	suppliers, err := s.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	for _, sup := range suppliers {
		pos, err := credit.Position(ctx, ledger.HolderSupplier, ledger.HolderID(sup.ID))
		if err != nil {
			return nil, err
		}
		if pos.Balance.IsNegative() {
			findings = append(findings, Finding{
				Code:    "negative_balance",
				Subject: "supplier/" + sup.ID,
				Detail:  fmt.Sprintf("balance %s below zero", pos.Balance),
			})
		}
		if sup.TotalSupplied.IsNegative() || sup.TotalPaid.IsNegative() {
			findings = append(findings, Finding{
				Code:    "negative_totals",
				Subject: "supplier/" + sup.ID,
				Detail:  "cumulative supplied/paid totals below zero",
			})
		}

		// Every charge on a supplier originates from a refill's unpaid
		// part, so total charges must equal the sum over refill records.
		refills, err := s.ListRefills(ctx, sup.ID)
		if err != nil {
			return nil, err
		}
		owed := ledger.ZeroMoney()
		for _, r := range refills {
			owed = owed.Add(r.TotalAmount.Sub(r.AmountPaid))
		}
		if !pos.TotalCharged.Equal(owed) {
			findings = append(findings, Finding{
				Code:    "ledger_drift",
				Subject: "supplier/" + sup.ID,
				Detail: fmt.Sprintf("ledger charges %s do not match refill balances %s",
					pos.TotalCharged, owed),
			})
		}
	}

	bottles, err := s.ListBottles(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, b := range bottles {
		switch {
		case b.Status == inventory.StatusWithCustomer && b.CustomerID == "":
			findings = append(findings, Finding{
				Code:    "missing_attribution",
				Subject: "bottle/" + string(b.ID),
				Detail:  "with_customer bottle carries no customer id",
			})
		case b.Status != inventory.StatusWithCustomer && b.CustomerID != "":
			findings = append(findings, Finding{
				Code:    "stale_attribution",
				Subject: "bottle/" + string(b.ID),
				Detail:  fmt.Sprintf("%s bottle still attributed to customer %s", b.Status, b.CustomerID),
			})
		case b.Status == inventory.StatusWithCustomer && !known[b.CustomerID]:
			findings = append(findings, Finding{
				Code:    "unknown_customer",
				Subject: "bottle/" + string(b.ID),
				Detail:  fmt.Sprintf("attributed to unknown customer %s", b.CustomerID),
			})
		}
	}

	return findings, nil
}
