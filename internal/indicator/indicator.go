// Package indicator implements the incremental, stateful technical
// indicators a Strategy consumes: SMA, EMA, RSI and MACD. Every indicator
// is deterministic given the same input sequence and never touches binary
// floating point for price math.
package indicator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInsufficientData is returned by validate_data-style guards.
type ErrInsufficientData struct {
	Required int
	Got      int
}

func (e *ErrInsufficientData) Error() string {
	return fmt.Sprintf("insufficient data: need %d, got %d", e.Required, e.Got)
}

// ValidateData checks prices holds at least required points.
func ValidateData(prices []decimal.Decimal, required int) error {
	if len(prices) < required {
		return &ErrInsufficientData{Required: required, Got: len(prices)}
	}
	return nil
}

// SMA is an incremental simple moving average over a fixed period.
type SMA struct {
	period int
	window []decimal.Decimal
}

// NewSMA creates an SMA indicator over period samples.
func NewSMA(period int) *SMA {
	return &SMA{period: period, window: make([]decimal.Decimal, 0, period)}
}

// RequiredDataPoints is the minimum sample count before Value is non-nil.
func (s *SMA) RequiredDataPoints() int { return s.period }

// Update folds in the next sample and returns the current value, or nil if
// fewer than period samples have been seen.
func (s *SMA) Update(price decimal.Decimal) *decimal.Decimal {
	s.window = append(s.window, price)
	if len(s.window) > s.period {
		s.window = s.window[len(s.window)-s.period:]
	}
	if len(s.window) < s.period {
		return nil
	}
	sum := decimal.Zero
	for _, p := range s.window {
		sum = sum.Add(p)
	}
	avg := sum.Div(decimal.NewFromInt(int64(s.period)))
	return &avg
}

// Reset clears accumulated state.
func (s *SMA) Reset() { s.window = s.window[:0] }

// CalculateAllSMA returns the aligned SMA series for prices, None-padded
// (nil) for the first period-1 points.
func CalculateAllSMA(prices []decimal.Decimal, period int) []*decimal.Decimal {
	sma := NewSMA(period)
	out := make([]*decimal.Decimal, len(prices))
	for i, p := range prices {
		out[i] = sma.Update(p)
	}
	return out
}

// EMA is an incremental exponential moving average. The first value is
// seeded from the SMA of the first `period` samples; thereafter each
// update applies EMA_t = price_t*k + EMA_{t-1}*(1-k), k = 2/(period+1).
type EMA struct {
	period int
	k      decimal.Decimal
	sma    *SMA
	value  *decimal.Decimal
}

// NewEMA creates an EMA indicator over period samples.
func NewEMA(period int) *EMA {
	k := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period + 1)))
	return &EMA{period: period, k: k, sma: NewSMA(period)}
}

// RequiredDataPoints is the minimum sample count before Value is non-nil.
func (e *EMA) RequiredDataPoints() int { return e.period }

// Update folds in the next sample and returns the current EMA value, or nil
// until the seed SMA is available.
func (e *EMA) Update(price decimal.Decimal) *decimal.Decimal {
	if e.value == nil {
		seed := e.sma.Update(price)
		if seed == nil {
			return nil
		}
		e.value = seed
		return e.value
	}

	next := price.Mul(e.k).Add(e.value.Mul(decimal.NewFromInt(1).Sub(e.k)))
	e.value = &next
	return e.value
}

// Value returns the current EMA value without folding in a new sample.
func (e *EMA) Value() *decimal.Decimal { return e.value }

// Reset clears accumulated state.
func (e *EMA) Reset() {
	e.sma.Reset()
	e.value = nil
}

// CalculateAllEMA returns the aligned EMA series, None-padded (nil) for the
// first period-1 points.
func CalculateAllEMA(prices []decimal.Decimal, period int) []*decimal.Decimal {
	ema := NewEMA(period)
	out := make([]*decimal.Decimal, len(prices))
	for i, p := range prices {
		out[i] = ema.Update(p)
	}
	return out
}

// RSI is Wilder's smoothed relative strength index.
type RSI struct {
	period      int
	prevPrice   *decimal.Decimal
	avgGain     decimal.Decimal
	avgLoss     decimal.Decimal
	count       int
	gainSum     decimal.Decimal
	lossSum     decimal.Decimal
	initialized bool
}

// NewRSI creates an RSI indicator over period samples (Wilder default 14).
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// RequiredDataPoints is period+1 (one seed delta plus period deltas).
func (r *RSI) RequiredDataPoints() int { return r.period + 1 }

// Update folds in the next price and returns the current RSI value, or nil
// until period deltas have accumulated.
func (r *RSI) Update(price decimal.Decimal) *decimal.Decimal {
	if r.prevPrice == nil {
		r.prevPrice = &price
		return nil
	}

	delta := price.Sub(*r.prevPrice)
	r.prevPrice = &price

	gain := decimal.Zero
	loss := decimal.Zero
	if delta.GreaterThan(decimal.Zero) {
		gain = delta
	} else {
		loss = delta.Neg()
	}

	if !r.initialized {
		r.count++
		r.gainSum = r.gainSum.Add(gain)
		r.lossSum = r.lossSum.Add(loss)
		if r.count < r.period {
			return nil
		}
		r.avgGain = r.gainSum.Div(decimal.NewFromInt(int64(r.period)))
		r.avgLoss = r.lossSum.Div(decimal.NewFromInt(int64(r.period)))
		r.initialized = true
	} else {
		n := decimal.NewFromInt(int64(r.period))
		r.avgGain = r.avgGain.Mul(n.Sub(decimal.NewFromInt(1))).Add(gain).Div(n)
		r.avgLoss = r.avgLoss.Mul(n.Sub(decimal.NewFromInt(1))).Add(loss).Div(n)
	}

	if r.avgLoss.IsZero() {
		hundred := decimal.NewFromInt(100)
		return &hundred
	}
	rs := r.avgGain.Div(r.avgLoss)
	rsi := decimal.NewFromInt(100).Sub(decimal.NewFromInt(100).Div(decimal.NewFromInt(1).Add(rs)))
	return &rsi
}

// Reset clears accumulated state.
func (r *RSI) Reset() {
	*r = RSI{period: r.period}
}

// MACDValue is one point of the MACD series.
type MACDValue struct {
	MACD      decimal.Decimal
	Signal    decimal.Decimal
	Histogram decimal.Decimal
}

// MACD computes moving-average convergence/divergence from two EMAs and a
// signal EMA of the MACD line.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD indicator with the given fast/slow/signal periods.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{fast: NewEMA(fast), slow: NewEMA(slow), signal: NewEMA(signal)}
}

// RequiredDataPoints is the slow EMA period plus the signal period, the
// longest warm-up chain in the indicator.
func (m *MACD) RequiredDataPoints() int {
	return m.slow.RequiredDataPoints() + m.signal.RequiredDataPoints()
}

// Update folds in the next price and returns the current MACDValue, or nil
// until both EMAs and the signal line are warmed up.
func (m *MACD) Update(price decimal.Decimal) *MACDValue {
	fast := m.fast.Update(price)
	slow := m.slow.Update(price)
	if fast == nil || slow == nil {
		return nil
	}

	macdLine := fast.Sub(*slow)
	signal := m.signal.Update(macdLine)
	if signal == nil {
		return nil
	}

	return &MACDValue{
		MACD:      macdLine,
		Signal:    *signal,
		Histogram: macdLine.Sub(*signal),
	}
}

// Reset clears accumulated state.
func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
}
