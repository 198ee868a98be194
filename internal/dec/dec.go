// Package dec provides the decimal and ID primitives the rest of the core
// builds on (spec component C1): arbitrary-precision decimals via
// shopspring/decimal and opaque v4 UUIDs via google/uuid. Every amount and
// price field in the system is a dec.D; every entity id is a dec.ID.
package dec

import (
	"math"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cradle-exchange/cradle/internal/cradleerr"
)

// Precision is the number of fractional digits division is truncated to,
// matching the "at least 18 fractional digits" floor from §4.1.
const Precision = 18

// D is a thin alias so call sites read as domain code, not as a
// third-party type.
type D = decimal.Decimal

// Zero is the additive identity, exported so comparisons don't need to
// construct a fresh decimal.Zero() on every call site.
var Zero = decimal.Zero

func New(s string) (D, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return D{}, cradleerr.Validation(cradleerr.CodeBadAmount, "invalid decimal literal: "+s)
	}
	return v, nil
}

// MustNew panics on malformed input; reserved for constants and tests.
func MustNew(s string) D { return decimal.RequireFromString(s) }

// DivTrunc divides a by b, truncating toward zero at Precision fractional
// digits, the rounding mode §4.1 mandates for the matching engine's rate
// computation.
func DivTrunc(a, b D) (D, error) {
	if b.IsZero() {
		return D{}, cradleerr.Validation(cradleerr.CodeBadAmount, "division by zero")
	}
	q, _ := a.QuoRem(b, Precision)
	return q, nil
}

// IsDust reports whether a value is too small to survive Precision's
// truncation — the matcher discards trades at or below this floor per
// the "division-induced dust" design note.
func IsDust(v D) bool {
	return v.Truncate(Precision).LessThanOrEqual(Zero)
}

// ToUint64 converts a non-negative decimal to uint64 for on-chain calls,
// failing with OverflowError when there is a fractional remainder or the
// value exceeds 2^64-1, exactly as §4.1 requires.
func ToUint64(v D) (uint64, error) {
	if v.IsNegative() {
		return 0, cradleerr.Overflow(cradleerr.CodeDecimalOverflow, "negative value has no uint64 representation")
	}
	if !v.Truncate(0).Equal(v) {
		return 0, cradleerr.Overflow(cradleerr.CodeDecimalOverflow, "fractional remainder cannot be represented on-chain")
	}
	if v.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		maxU64 := decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
		if v.GreaterThan(maxU64) {
			return 0, cradleerr.Overflow(cradleerr.CodeDecimalOverflow, "value exceeds uint64 range")
		}
		return v.BigInt().Uint64(), nil
	}
	return uint64(v.IntPart()), nil
}

// ID is an opaque v4 UUID used for every entity identifier in the system.
type ID = uuid.UUID

func NewID() ID { return uuid.New() }

func ParseID(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ID{}, cradleerr.Validation(cradleerr.CodeBadAmount, "invalid id: "+s)
	}
	return id, nil
}

var NilID = uuid.Nil
