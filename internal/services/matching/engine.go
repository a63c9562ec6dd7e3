// Package matching pairs unmatched payments against unmatched bank
// transactions with a three-tier rule cascade: exact, fuzzy reference,
// fuzzy payee. The engine is pure — it never touches storage.
package matching

import (
	"bytes"
	"sort"
	"time"

	"ledger-reconciliation-backend/internal/models"
	"ledger-reconciliation-backend/internal/normalize"
	"ledger-reconciliation-backend/internal/similarity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fixed tier scores, recorded on the match at creation and never recomputed.
const (
	ScoreExact          = 100
	ScoreFuzzyReference = 90
	ScoreFuzzyPayee     = 80
)

// amountEpsilon floors the denominator of the relative amount difference so
// near-zero amounts cannot blow it up.
var amountEpsilon = decimal.NewFromFloat(0.01)

// Proposal is one engine-proposed pairing. Similarity carries the ratio that
// gated the winning tier (100 for the exact tier).
type Proposal struct {
	Payment    *models.Payment
	BankTxn    *models.BankTransaction
	Score      int
	MatchType  string
	Similarity float64
}

// Result is the outcome of one engine pass. Proposals are in assignment
// order: tiers in cascade order, pairs within a tier by ascending payment id
// then bank id. The unmatched slices list everything the run did not claim,
// in id order.
type Result struct {
	Proposals         []Proposal
	UnmatchedPayments []*models.Payment
	UnmatchedBankTxns []*models.BankTransaction
}

type Engine struct {
	cfg       Config
	amountTol decimal.Decimal // AmountTolerancePct / 100
}

func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:       cfg,
		amountTol: decimal.NewFromFloat(cfg.AmountTolerancePct).Div(decimal.NewFromInt(100)),
	}
}

// paymentCand and bankCand cache the normalized comparison fields so each
// record is normalized once per run.
type paymentCand struct {
	rec   *models.Payment
	ref   string
	payee string
}

type bankCand struct {
	rec   *models.BankTransaction
	ref   string
	payee string
}

// Match runs the cascade over immutable snapshots of both unmatched sets.
// Once either side of a pair is claimed, both records drop out of every
// remaining tier, so no record appears in more than one proposal and a
// higher tier always beats a lower one.
func (e *Engine) Match(payments []models.Payment, bankTxns []models.BankTransaction) Result {
	ps := make([]*paymentCand, 0, len(payments))
	for i := range payments {
		p := &payments[i]
		ps = append(ps, &paymentCand{
			rec:   p,
			ref:   normalize.Reference(p.Reference),
			payee: normalize.Payee(p.Payee),
		})
	}
	bs := make([]*bankCand, 0, len(bankTxns))
	for i := range bankTxns {
		b := &bankTxns[i]
		bs = append(bs, &bankCand{
			rec:   b,
			ref:   normalize.Reference(b.Reference),
			payee: normalize.Payee(b.Payee),
		})
	}

	// Deterministic tie-break: ascending payment id, then bank id.
	sort.Slice(ps, func(i, j int) bool {
		return bytes.Compare(ps[i].rec.ID[:], ps[j].rec.ID[:]) < 0
	})
	sort.Slice(bs, func(i, j int) bool {
		return bytes.Compare(bs[i].rec.ID[:], bs[j].rec.ID[:]) < 0
	})

	// Tiers 1 and 2 require exact amount equality, so candidates come from
	// an amount-keyed index instead of the full cross product. Bucket order
	// preserves the sorted bank order.
	byAmount := make(map[string][]*bankCand)
	for _, b := range bs {
		key := amountKey(b.rec.Amount)
		byAmount[key] = append(byAmount[key], b)
	}

	var (
		proposals []Proposal
		claimedP  = make(map[uuid.UUID]bool)
		claimedB  = make(map[uuid.UUID]bool)
	)

	claim := func(p *paymentCand, b *bankCand, score int, matchType string, sim float64) {
		claimedP[p.rec.ID] = true
		claimedB[b.rec.ID] = true
		proposals = append(proposals, Proposal{
			Payment:    p.rec,
			BankTxn:    b.rec,
			Score:      score,
			MatchType:  matchType,
			Similarity: sim,
		})
	}

	// Tier 1: exact amount, dates within tolerance, identical non-empty
	// normalized references.
	for _, p := range ps {
		if claimedP[p.rec.ID] || p.ref == "" {
			continue
		}
		for _, b := range byAmount[amountKey(p.rec.Amount)] {
			if claimedB[b.rec.ID] {
				continue
			}
			if daysApart(p.rec.Date, b.rec.Date) <= e.cfg.DateToleranceDays && p.ref == b.ref {
				claim(p, b, ScoreExact, models.MatchTypeExact, 100)
				break
			}
		}
	}

	// Tier 2: exact amount, reference similarity over threshold.
	for _, p := range ps {
		if claimedP[p.rec.ID] || p.ref == "" {
			continue
		}
		for _, b := range byAmount[amountKey(p.rec.Amount)] {
			if claimedB[b.rec.ID] || b.ref == "" {
				continue
			}
			if sim := similarity.Ratio(p.ref, b.ref); sim >= e.cfg.ReferenceThreshold {
				claim(p, b, ScoreFuzzyReference, models.MatchTypeFuzzyReference, sim)
				break
			}
		}
	}

	// Tier 3: amount within relative tolerance, payee similarity over
	// threshold. Amounts need not be equal here, so this tier scans the
	// remaining cross product.
	for _, p := range ps {
		if claimedP[p.rec.ID] || p.payee == "" {
			continue
		}
		for _, b := range bs {
			if claimedB[b.rec.ID] || b.payee == "" {
				continue
			}
			if !e.amountWithinTolerance(p.rec.Amount, b.rec.Amount) {
				continue
			}
			if sim := similarity.Ratio(p.payee, b.payee); sim >= e.cfg.PayeeThreshold {
				claim(p, b, ScoreFuzzyPayee, models.MatchTypeFuzzyPayee, sim)
				break
			}
		}
	}

	res := Result{Proposals: proposals}
	for _, p := range ps {
		if !claimedP[p.rec.ID] {
			res.UnmatchedPayments = append(res.UnmatchedPayments, p.rec)
		}
	}
	for _, b := range bs {
		if !claimedB[b.rec.ID] {
			res.UnmatchedBankTxns = append(res.UnmatchedBankTxns, b.rec)
		}
	}
	return res
}

// amountWithinTolerance reports whether |a-b| / max(|a|, |b|, epsilon) is at
// most AmountTolerancePct/100, all in decimal arithmetic.
func (e *Engine) amountWithinTolerance(a, b decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	denom := decimal.Max(a.Abs(), b.Abs(), amountEpsilon)
	return diff.Div(denom).LessThanOrEqual(e.amountTol)
}

// amountKey is the bucket key for exact-amount candidate lookup. Amounts
// carry two fractional digits by contract; the fixed rendering makes 10 and
// 10.00 land in the same bucket.
func amountKey(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// daysApart counts whole calendar days between two dates, ignoring any time
// component.
func daysApart(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(ad.Sub(bd).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
