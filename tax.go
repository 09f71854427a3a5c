package cryptofolio

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CostMethod selects how disposals are matched against acquisition lots.
type CostMethod string

const (
	// LIFO disposes of the most recently acquired lots first. This is the
	// method Italian practice applies to crypto disposals.
	LIFO CostMethod = "LIFO"
	// AverageCost prices every disposal at the running average unit cost of
	// the holding.
	AverageCost CostMethod = "AVERAGE_COST"
)

// TaxConfig carries the Italian tax parameters.
type TaxConfig struct {
	// CapitalGainsRate applies to net gains (26% since 2023).
	CapitalGainsRate decimal.Decimal
	// IVAFERate is the annual wealth tax on foreign-held financial assets.
	IVAFERate decimal.Decimal
	// NoTaxThreshold waives the gains tax for years whose December 31st
	// portfolio value stays below this amount. The exemption looks at
	// wealth, not at the gain itself.
	NoTaxThreshold decimal.Decimal
	Method         CostMethod
}

// DefaultTaxConfig returns the current Italian parameters.
func DefaultTaxConfig() TaxConfig {
	return TaxConfig{
		CapitalGainsRate: decimal.RequireFromString("0.26"),
		IVAFERate:        decimal.RequireFromString("0.002"),
		NoTaxThreshold:   decimal.NewFromInt(2000),
		Method:           LIFO,
	}
}

// Disposal is one taxable sale event reconstructed during replay.
type Disposal struct {
	Coin      string
	Date      Date
	Amount    decimal.Decimal
	Proceeds  decimal.Decimal
	CostBasis decimal.Decimal
	Gain      decimal.Decimal // negative for a loss
}

// RWRow is one coin's line of the foreign-assets declaration (Quadro RW):
// value at both ends of the year, days held, and the wealth tax due.
type RWRow struct {
	Coin           string
	ValoreIniziale decimal.Decimal
	ValoreFinale   decimal.Decimal
	Giorni         int
	IVAFE          decimal.Decimal
}

// TaxReport is the complete yearly computation: the capital-gains section
// (Quadro RT), the foreign-assets section (Quadro RW), every disposal that
// produced the figures, and the anomalies met along the way.
type TaxReport struct {
	Year   int
	Method CostMethod

	// Quadro RT
	TotaleVendite decimal.Decimal // gross proceeds of all disposals
	CostoAcquisto decimal.Decimal // matched cost basis
	Plusvalenza   decimal.Decimal // sum of positive gains
	Minusvalenza  decimal.Decimal // sum of losses, as a positive figure
	Imposta       decimal.Decimal // capital gains tax due

	// Quadro RW
	RWRows             []RWRow
	RWValoreIniziale   decimal.Decimal
	RWValoreFinale     decimal.Decimal
	RWGiorniDetenzione int // longest holding period among coins
	IVAFE              decimal.Decimal

	Disposals []Disposal
	Warnings  []string
}

// MarshalJSON emits the report with the declaration-form field names.
func (r *TaxReport) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("year", r.Year)
	w.Append("method", r.Method)
	w.Number("rt_totale_vendite", r.TotaleVendite)
	w.Number("rt_costo_acquisto", r.CostoAcquisto)
	w.Number("rt_plusvalenza", r.Plusvalenza)
	w.Number("rt_minusvalenza", r.Minusvalenza)
	w.Number("rt_imposta", r.Imposta)
	w.Number("rw_valore_iniziale", r.RWValoreIniziale)
	w.Number("rw_valore_finale", r.RWValoreFinale)
	w.Append("rw_giorni_detenzione", r.RWGiorniDetenzione)
	w.Number("rw_ivafe", r.IVAFE)
	w.Append("warnings", r.Warnings)
	return w.MarshalJSON()
}

// costBook tracks acquisition cost per coin under one method.
type costBook interface {
	// acquire records a purchase of amount at unitCost per coin.
	acquire(coin string, amount, unitCost decimal.Decimal)
	// dispose matches amount against the book and returns the cost basis of
	// what was matched plus the unmatched remainder (oversell).
	dispose(coin string, amount decimal.Decimal) (basis, short decimal.Decimal)
	// holdings returns the current amount held per coin.
	holdings() map[string]decimal.Decimal
}

// lot is one acquisition at a unit cost.
type lot struct {
	amount   decimal.Decimal
	unitCost decimal.Decimal
}

// lifoBook keeps per-coin lot stacks; disposals consume from the top.
type lifoBook struct {
	lots map[string][]lot
}

func newLIFOBook() *lifoBook { return &lifoBook{lots: make(map[string][]lot)} }

func (b *lifoBook) acquire(coin string, amount, unitCost decimal.Decimal) {
	b.lots[coin] = append(b.lots[coin], lot{amount: amount, unitCost: unitCost})
}

func (b *lifoBook) dispose(coin string, amount decimal.Decimal) (basis, short decimal.Decimal) {
	stack := b.lots[coin]
	remaining := amount
	for remaining.IsPositive() && len(stack) > 0 {
		top := &stack[len(stack)-1]
		take := decimal.Min(remaining, top.amount)
		basis = basis.Add(take.Mul(top.unitCost))
		top.amount = top.amount.Sub(take)
		remaining = remaining.Sub(take)
		if top.amount.IsZero() {
			stack = stack[:len(stack)-1]
		}
	}
	b.lots[coin] = stack
	return basis, remaining
}

func (b *lifoBook) holdings() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(b.lots))
	for coin, stack := range b.lots {
		total := decimal.Zero
		for _, l := range stack {
			total = total.Add(l.amount)
		}
		if total.IsPositive() {
			out[coin] = total
		}
	}
	return out
}

// avgBook keeps one running (amount, total cost) pair per coin.
type avgBook struct {
	held map[string]lot // amount held, total cost (not unit)
}

func newAvgBook() *avgBook { return &avgBook{held: make(map[string]lot)} }

func (b *avgBook) acquire(coin string, amount, unitCost decimal.Decimal) {
	h := b.held[coin]
	h.amount = h.amount.Add(amount)
	h.unitCost = h.unitCost.Add(amount.Mul(unitCost))
	b.held[coin] = h
}

func (b *avgBook) dispose(coin string, amount decimal.Decimal) (basis, short decimal.Decimal) {
	h := b.held[coin]
	if !h.amount.IsPositive() {
		return decimal.Zero, amount
	}
	if amount.GreaterThan(h.amount) {
		short = amount.Sub(h.amount)
		amount = h.amount
	}
	basis = h.unitCost.Mul(amount).Div(h.amount)
	h.unitCost = h.unitCost.Sub(basis)
	h.amount = h.amount.Sub(amount)
	b.held[coin] = h
	return basis, short
}

func (b *avgBook) holdings() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(b.held))
	for coin, h := range b.held {
		if h.amount.IsPositive() {
			out[coin] = h.amount
		}
	}
	return out
}

func newBook(method CostMethod) costBook {
	if method == AverageCost {
		return newAvgBook()
	}
	return newLIFOBook()
}

// TaxEngine replays the canonical history and produces yearly reports.
type TaxEngine struct {
	cfg    TaxConfig
	prices *PriceService
	log    zerolog.Logger
}

func NewTaxEngine(cfg TaxConfig, prices *PriceService, log zerolog.Logger) *TaxEngine {
	return &TaxEngine{
		cfg:    cfg,
		prices: prices,
		log:    log.With().Str("component", "tax").Logger(),
	}
}

// Report computes the tax report for one calendar year from the full
// transaction history. The history is replayed in chronological order, ties
// keeping their stored order, so the same ledger always yields the same
// report.
func (e *TaxEngine) Report(history []Transaction, year int) *TaxReport {
	txs := append([]Transaction(nil), history...)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp < txs[j].Timestamp })

	r := &TaxReport{Year: year, Method: e.cfg.Method}
	book := newBook(e.cfg.Method)

	yearStartMs := January1(year).Time().UnixMilli()
	yearEndMs := January1(year + 1).Time().UnixMilli()

	var openingHoldings map[string]decimal.Decimal
	firstAcquisition := make(map[string]Date) // within the report year

	for _, t := range txs {
		if t.Timestamp >= yearEndMs {
			break
		}
		if openingHoldings == nil && t.Timestamp >= yearStartMs {
			openingHoldings = book.holdings()
		}
		e.replayOne(book, t, r, yearStartMs, firstAcquisition)
	}
	if openingHoldings == nil {
		// no transaction inside the year: holdings carried over unchanged
		openingHoldings = book.holdings()
	}

	// RW first: the gains tax exemption depends on the year-end value
	e.fillRW(r, openingHoldings, book.holdings(), firstAcquisition)
	e.fillRT(r)
	return r
}

// replayOne applies one transaction to the book, recording disposals that
// fall inside the report year.
func (e *TaxEngine) replayOne(book costBook, t Transaction, r *TaxReport, yearStartMs int64, firstAcq map[string]Date) {
	inYear := t.Timestamp >= yearStartMs

	// (un)delegation moves coins in and out of staking without changing
	// ownership: no disposal, no new lot
	if t.Type == TxStaking {
		return
	}

	// disposal leg first: a trade funds its acquisition with the outgoing
	// coin it just disposed of
	if t.CoinOut != "" && t.AmountOut.IsPositive() {
		proceeds := e.valueOf(t, t.CoinOut, t.AmountOut)
		basis, short := book.dispose(t.CoinOut, t.AmountOut)
		if short.IsPositive() {
			// unmatched part carries zero basis: the gain is overstated, not
			// silently dropped. A prior-year oversell still distorts this
			// year's lots, so it warns too.
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"%s: sold %s %s without matching acquisition, zero cost basis assumed",
				t.When(), short.String(), t.CoinOut))
		}
		if inYear {
			r.Disposals = append(r.Disposals, Disposal{
				Coin:      t.CoinOut,
				Date:      t.When(),
				Amount:    t.AmountOut,
				Proceeds:  proceeds,
				CostBasis: basis,
				Gain:      proceeds.Sub(basis),
			})
		}
	}

	if t.CoinIn != "" && t.AmountIn.IsPositive() {
		unitCost := safeDiv(e.valueOf(t, t.CoinIn, t.AmountIn), t.AmountIn)
		if unitCost.IsZero() && inYear {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"%s: no EUR value for %s %s acquisition, zero cost basis recorded",
				t.When(), t.AmountIn.String(), t.CoinIn))
		}
		book.acquire(t.CoinIn, t.AmountIn, unitCost)
		if inYear {
			if _, ok := firstAcq[t.CoinIn]; !ok {
				firstAcq[t.CoinIn] = t.When()
			}
		}
	}
}

// valueOf resolves the EUR value of one leg of t moving amount of coin: the
// recorded value, else the recorded unit price, else the coin's historical
// close of the day.
func (e *TaxEngine) valueOf(t Transaction, coin string, amount decimal.Decimal) decimal.Decimal {
	if t.ValueEUR.IsPositive() {
		return t.ValueEUR
	}
	if t.PriceEUR.IsPositive() {
		return amount.Mul(t.PriceEUR)
	}
	if e.prices == nil || coin == "" {
		return decimal.Zero
	}
	return amount.Mul(e.prices.HistoricalPrice(coin, t.When()))
}

func (e *TaxEngine) fillRT(r *TaxReport) {
	for _, d := range r.Disposals {
		r.TotaleVendite = r.TotaleVendite.Add(d.Proceeds)
		r.CostoAcquisto = r.CostoAcquisto.Add(d.CostBasis)
		if d.Gain.IsPositive() {
			r.Plusvalenza = r.Plusvalenza.Add(d.Gain)
		} else {
			r.Minusvalenza = r.Minusvalenza.Add(d.Gain.Neg())
		}
	}
	net := r.Plusvalenza.Sub(r.Minusvalenza)
	// a year-end portfolio below the threshold is exempt however large the
	// realized gain was
	if net.IsPositive() && !r.RWValoreFinale.LessThan(e.cfg.NoTaxThreshold) {
		r.Imposta = net.Mul(e.cfg.CapitalGainsRate).Round(2)
	}
}

// fillRW values the holdings at both ends of the year and computes IVAFE
// per coin, prorated by days held.
func (e *TaxEngine) fillRW(r *TaxReport, opening, closing map[string]decimal.Decimal, firstAcq map[string]Date) {
	coins := make(map[string]bool, len(opening)+len(closing))
	for c := range opening {
		coins[c] = true
	}
	for c := range closing {
		coins[c] = true
	}
	sorted := make([]string, 0, len(coins))
	for c := range coins {
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	yearEnd := December31(r.Year)
	yearDays := int(yearEnd.Time().Sub(January1(r.Year).Time()).Hours()/24) + 1

	for _, coin := range sorted {
		row := RWRow{Coin: coin}
		if amt, ok := opening[coin]; ok && e.prices != nil {
			row.ValoreIniziale = amt.Mul(e.prices.PriceAtJanuary1(coin, r.Year))
		}
		if amt, ok := closing[coin]; ok && e.prices != nil {
			row.ValoreFinale = amt.Mul(e.prices.PriceAtDecember31(coin, r.Year))
		}

		if _, heldAtStart := opening[coin]; heldAtStart {
			row.Giorni = yearDays
		} else if acq, ok := firstAcq[coin]; ok {
			row.Giorni = int(yearEnd.Time().Sub(acq.Time()).Hours()/24) + 1
		}

		row.IVAFE = row.ValoreFinale.
			Mul(e.cfg.IVAFERate).
			Mul(decimal.NewFromInt(int64(row.Giorni))).
			Div(decimal.NewFromInt(int64(yearDays))).
			Round(2)

		r.RWRows = append(r.RWRows, row)
		r.RWValoreIniziale = r.RWValoreIniziale.Add(row.ValoreIniziale)
		r.RWValoreFinale = r.RWValoreFinale.Add(row.ValoreFinale)
		r.IVAFE = r.IVAFE.Add(row.IVAFE)
		if row.Giorni > r.RWGiorniDetenzione {
			r.RWGiorniDetenzione = row.Giorni
		}
	}
}

func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}
