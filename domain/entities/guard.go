package entities

// GuardResult is the outcome of a conditionally guarded single-statement write
type GuardResult int

const (
	// GuardFailed means the guard clause matched no rows and nothing was written
	GuardFailed GuardResult = iota
	// GuardApplied means the write happened
	GuardApplied
)

// Applied reports whether the guarded write took effect
func (g GuardResult) Applied() bool {
	return g == GuardApplied
}

func (g GuardResult) String() string {
	if g == GuardApplied {
		return "applied"
	}
	return "guard_failed"
}

// GuardResultFromRows converts an affected-row count to a GuardResult
func GuardResultFromRows(rows int64) GuardResult {
	if rows > 0 {
		return GuardApplied
	}
	return GuardFailed
}

// BalanceWrite is the result of a guarded balance mutation.
// Before and After are only meaningful when Result is GuardApplied.
type BalanceWrite struct {
	Result GuardResult
	Before int64
	After  int64
}

// Applied reports whether the balance changed
func (w BalanceWrite) Applied() bool {
	return w.Result.Applied()
}
