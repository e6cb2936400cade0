package classify

import "github.com/goliatone/go-cardform/pkg/model"

// Outcome tags a Result.
type Outcome int

const (
	OutcomeSupported Outcome = iota + 1
	OutcomeUnsupported
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSupported:
		return "supported"
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Result is the outcome of one classification. Product and CoBrands are set
// only for OutcomeSupported; Kind and Err only for OutcomeFailed.
type Result struct {
	Outcome  Outcome
	Product  *model.NetworkProduct
	CoBrands []model.NetworkProduct
	Kind     FailureKind
	Err      error
}

// Supported builds a successful result.
func Supported(product model.NetworkProduct, coBrands []model.NetworkProduct) Result {
	return Result{Outcome: OutcomeSupported, Product: &product, CoBrands: coBrands}
}

// Unsupported builds a result for a recognised but rejected card.
func Unsupported() Result {
	return Result{Outcome: OutcomeUnsupported}
}

// Failed builds a failure result.
func Failed(kind FailureKind, err error) Result {
	return Result{Outcome: OutcomeFailed, Kind: kind, Err: err}
}
