package models

// Pools is a snapshot of the three coin pools of one user.
type Pools struct {
	Sub   int
	Free  int
	InApp int
}

// Total is the summed spendable balance.
func (p Pools) Total() int {
	return p.Sub + p.Free + p.InApp
}

// Drain deducts amount across the pools in the fixed order
// sub_coins -> coins -> inapp_coins, each drained to zero before the next is
// touched. Partial draws are allowed. If the pools cannot cover the amount
// the input is returned unchanged and ok is false: a failed deduction must
// not move any coins.
func (p Pools) Drain(amount int) (Pools, bool) {
	if amount < 0 {
		return p, false
	}

	out := p
	remaining := amount

	if remaining > 0 && out.Sub > 0 {
		take := min(remaining, out.Sub)
		out.Sub -= take
		remaining -= take
	}
	if remaining > 0 && out.Free > 0 {
		take := min(remaining, out.Free)
		out.Free -= take
		remaining -= take
	}
	if remaining > 0 && out.InApp > 0 {
		take := min(remaining, out.InApp)
		out.InApp -= take
		remaining -= take
	}

	if remaining > 0 {
		return p, false
	}
	return out, true
}
