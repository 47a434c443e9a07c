// Package lifecycle interprets a raw ledger aggregate into the
// three-stage supply-chain lifecycle. It performs no I/O: every
// function is a pure transformation over an already-fetched record.
package lifecycle

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// Next-action advisories per derived stage. Advisory only: the ledger,
// not this layer, decides whether the next write is legal.
const (
	ActionRecordDistributor = "record distributor handover"
	ActionRecordRetailer    = "record retail entry"
	ActionNone              = ""
)

// FarmerView decorates the immutable origin record with display forms.
// Raw values stay available for programmatic use.
type FarmerView struct {
	models.FarmerInfo
	CreatedDisplay string `json:"createdDisplay"`
	FarmerDisplay  string `json:"farmerDisplay"`
}

// DistributorView decorates one distributor entry with display forms.
type DistributorView struct {
	models.DistributorRecord
	HandoverDisplay    string `json:"handoverDisplay"`
	TimestampDisplay   string `json:"timestampDisplay"`
	DistributorDisplay string `json:"distributorDisplay"`
}

// RetailView decorates one retail entry with display forms.
type RetailView struct {
	models.RetailRecord
	ExpiryDisplay    string `json:"expiryDisplay"`
	TimestampDisplay string `json:"timestampDisplay"`
	RetailerDisplay  string `json:"retailerDisplay"`
}

// BatchView is the shaped, display-ready form of a batch. Stage is the
// derived value and is authoritative; the stored stage is kept only so
// a mismatch can be surfaced as a warning.
type BatchView struct {
	BatchID      string                    `json:"batchId"`
	Stage        models.Stage              `json:"stage"`
	StageLabel   string                    `json:"stageLabel"`
	StoredStage  models.Stage              `json:"storedStage"`
	NextAction   string                    `json:"nextAction,omitempty"`
	FarmerInfo   FarmerView                `json:"farmerInfo"`
	Distributors []DistributorView         `json:"distributors"`
	Retailers    []RetailView              `json:"retailers"`
	Warnings     []models.IntegrityWarning `json:"warnings,omitempty"`
}

// DeriveStage computes the lifecycle stage from which record types
// exist. The value embedded in the ledger record is ignored: derived
// stage always wins over a conflicting stored value.
func DeriveStage(rec *models.BatchRecord) models.Stage {
	switch {
	case len(rec.Retailers) > 0:
		return models.StageRetail
	case len(rec.Distributors) > 0:
		return models.StageDistributed
	default:
		return models.StageCreated
	}
}

// NextAction returns the advisory follow-up for a derived stage.
func NextAction(stage models.Stage) string {
	switch stage {
	case models.StageCreated:
		return ActionRecordDistributor
	case models.StageDistributed:
		return ActionRecordRetailer
	default:
		return ActionNone
	}
}

// Inspect shapes a fetched record for display: derived stage, integrity
// warnings, formatted timestamps and identities, and the next-action
// advisory. Warnings never suppress the rest of the view; the client is
// a read-only observer of state it cannot correct.
func Inspect(rec *models.BatchRecord) BatchView {
	stage := DeriveStage(rec)

	view := BatchView{
		BatchID:     rec.BatchID,
		Stage:       stage,
		StageLabel:  stage.String(),
		StoredStage: rec.StoredStage,
		NextAction:  NextAction(stage),
		FarmerInfo: FarmerView{
			FarmerInfo:     rec.FarmerInfo,
			CreatedDisplay: FormatTimestamp(rec.FarmerInfo.CreatedDate),
			FarmerDisplay:  ShortIdentity(rec.FarmerInfo.Farmer),
		},
		Distributors: make([]DistributorView, 0, len(rec.Distributors)),
		Retailers:    make([]RetailView, 0, len(rec.Retailers)),
		Warnings:     validate(rec, stage),
	}

	for _, d := range rec.Distributors {
		view.Distributors = append(view.Distributors, DistributorView{
			DistributorRecord:  d,
			HandoverDisplay:    FormatTimestamp(d.HandoverDate),
			TimestampDisplay:   FormatTimestamp(d.Timestamp),
			DistributorDisplay: ShortIdentity(d.Distributor),
		})
	}

	for _, r := range rec.Retailers {
		view.Retailers = append(view.Retailers, RetailView{
			RetailRecord:     r,
			ExpiryDisplay:    FormatTimestamp(r.ExpiryDate),
			TimestampDisplay: FormatTimestamp(r.Timestamp),
			RetailerDisplay:  ShortIdentity(r.Retailer),
		})
	}

	return view
}

// validate checks the monotonicity and conservation invariants of the
// aggregate and reports violations as non-fatal warnings.
func validate(rec *models.BatchRecord, derived models.Stage) []models.IntegrityWarning {
	var warnings []models.IntegrityWarning

	warn := func(code, format string, args ...any) {
		warnings = append(warnings, models.IntegrityWarning{
			Code:   code,
			Detail: fmt.Sprintf(format, args...),
		})
	}

	quantity, ok1 := parseAmount(rec.FarmerInfo.Quantity)
	remaining, ok2 := parseAmount(rec.FarmerInfo.RemainingQuantity)
	if !ok1 || !ok2 {
		warn("malformed-quantity", "farmer quantities are not decimal numbers")
	} else {
		if remaining.Cmp(quantity) > 0 {
			warn("farmer-remaining-exceeds-quantity",
				"remaining %s exceeds created quantity %s", remaining, quantity)
		}

		handedOut := new(big.Int)
		for _, d := range rec.Distributors {
			received, ok := parseAmount(d.QuantityReceived)
			if !ok {
				warn("malformed-quantity", "distributor %q quantityReceived is not a decimal number", d.DistributorName)
				continue
			}
			handedOut.Add(handedOut, received)
		}

		expected := new(big.Int).Sub(quantity, handedOut)
		switch {
		case expected.Sign() < 0:
			warn("distributed-exceeds-quantity",
				"distributors received %s in total, more than the created quantity %s", handedOut, quantity)
		case remaining.Cmp(expected) != 0:
			warn("farmer-quantity-conservation",
				"remaining %s does not equal quantity %s minus distributed %s", remaining, quantity, handedOut)
		}
	}

	for i, d := range rec.Distributors {
		received, ok1 := parseAmount(d.QuantityReceived)
		left, ok2 := parseAmount(d.RemainingQuantity)
		if !ok1 || !ok2 {
			continue
		}
		if left.Cmp(received) > 0 {
			warn("distributor-remaining-exceeds-received",
				"distributor %d remaining %s exceeds received %s", i, left, received)
		}
	}

	known := make(map[string]bool, len(rec.Distributors))
	for _, d := range rec.Distributors {
		known[d.DistributorName] = true
	}
	for i, r := range rec.Retailers {
		if !known[r.DistributorName] {
			warn("retailer-unknown-distributor",
				"retail record %d references distributor %q not present on the batch", i, r.DistributorName)
		}
	}

	if rec.StoredStage != derived {
		warn("stage-mismatch",
			"ledger stores stage %s but records derive %s", rec.StoredStage, derived)
	}

	return warnings
}

// FormatTimestamp renders whole seconds since epoch for humans. A value
// that does not parse, or zero, comes back empty.
func FormatTimestamp(raw string) string {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return ""
	}
	return time.Unix(secs, 0).UTC().Format("02 Jan 2006 15:04:05 MST")
}

// ShortIdentity abbreviates a fixed-length hex identity for display,
// keeping the first and last runs so two identities remain
// distinguishable.
func ShortIdentity(identity string) string {
	if len(identity) <= 12 {
		return identity
	}
	return identity[:8] + "…" + identity[len(identity)-4:]
}

func parseAmount(raw string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}
