package fraud

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"
)

// Feature names produced by ExtractFeatures. The set is fixed: every vector
// carries exactly these keys.
const (
	FeatureAmount       = "amount"
	FeatureTimeOfDay    = "time_of_day"
	FeatureLocationRisk = "location_risk"
	FeatureDeviceTrust  = "device_trust"
	FeatureUserBehavior = "user_behavior"
)

// FeatureNames lists the fixed feature set in its canonical order, used for
// deterministic tie-breaking when ranking attributions.
var FeatureNames = []string{
	FeatureAmount,
	FeatureTimeOfDay,
	FeatureLocationRisk,
	FeatureDeviceTrust,
	FeatureUserBehavior,
}

// amountCap scales raw amounts into [0, 1]: amount = min(raw/amountCap, 1.0).
const amountCap = 10000.0

// ExtractFeatures derives the fixed feature set from a transaction. Pure
// function of its input: the non-amount features are computed from the
// timestamp hour and FNV hashes of the identifier fields, so repeated calls
// with the same transaction produce the same vector. Identifiers that are
// absent fall back to a neutral 0.5.
func ExtractFeatures(tx *Transaction) (FeatureVector, error) {
	if err := ValidateTransaction(tx); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339, tx.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q is not RFC 3339", ErrInvalidTransaction, tx.Timestamp)
	}

	return FeatureVector{
		FeatureAmount:       math.Min(tx.Amount/amountCap, 1.0),
		FeatureTimeOfDay:    timeOfDayRisk(ts.Hour()),
		FeatureLocationRisk: hashUnit(tx.Location),
		FeatureDeviceTrust:  hashUnit(tx.DeviceID),
		FeatureUserBehavior: hashUnit(tx.UserID + "|" + tx.MerchantID),
	}, nil
}

// ValidateTransaction checks the fields the engine depends on. Malformed
// input is the caller's fault and is never retried.
func ValidateTransaction(tx *Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: transaction is nil", ErrInvalidTransaction)
	}
	if strings.TrimSpace(tx.TransactionID) == "" {
		return fmt.Errorf("%w: transaction_id is required", ErrInvalidTransaction)
	}
	if strings.TrimSpace(tx.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidTransaction)
	}
	if tx.Amount < 0 {
		return fmt.Errorf("%w: amount must be non-negative", ErrInvalidTransaction)
	}
	if strings.TrimSpace(tx.Timestamp) == "" {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidTransaction)
	}
	return nil
}

// timeOfDayRisk peaks at 03:00 and falls off with circular hour distance.
// 3am = 1.0, 3pm = 0.0.
func timeOfDayRisk(hour int) float64 {
	dist := math.Abs(float64(hour) - 3.0)
	if dist > 12 {
		dist = 24 - dist
	}
	return math.Round((1.0-dist/12.0)*1000) / 1000
}

// hashUnit maps a string to a stable fraction in [0, 1). Empty input returns
// the neutral 0.5.
func hashUnit(s string) float64 {
	if s == "" {
		return 0.5
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return math.Round(float64(h.Sum64()%10000)/10000*1000) / 1000
}
