package signalgen

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/pattern"
)

func mustDecimal(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type SignalGenTestSuite struct {
	suite.Suite
	cfg Config
}

func (s *SignalGenTestSuite) SetupTest() {
	s.cfg = DefaultConfig()
}

// TestDuplicateSideBlocked reproduces the spec's concrete scenario: LONG
// position open, raw BUY at confidence 0.9 -> HOLD at confidence 0.45.
func (s *SignalGenTestSuite) TestDuplicateSideBlocked() {
	raw := common.TradingSignal{Action: common.SignalBuy, Confidence: 0.9, Reason: "golden cross"}
	position := &common.Position{Action: common.OrderActionLong}

	final := Generate(s.cfg, raw, nil, position)

	assert.Equal(s.T(), common.SignalHold, final.Action)
	assert.InDelta(s.T(), 0.45, final.Confidence, 0.0001)
	assert.True(s.T(), strings.Contains(final.Reason, "Already have long position"))
}

func (s *SignalGenTestSuite) TestCloseAcceptedWithPosition() {
	raw := common.TradingSignal{Action: common.SignalClose, Confidence: 0.8}
	position := &common.Position{Action: common.OrderActionLong, UnrealizedPnL: mustDecimal(10)}

	final := Generate(s.cfg, raw, nil, position)

	assert.Equal(s.T(), common.SignalClose, final.Action)
	assert.InDelta(s.T(), 0.9, final.Confidence, 0.0001)
}

func (s *SignalGenTestSuite) TestCloseWithoutPositionBecomesHold() {
	raw := common.TradingSignal{Action: common.SignalClose, Confidence: 0.8}
	final := Generate(s.cfg, raw, nil, nil)
	assert.Equal(s.T(), common.SignalHold, final.Action)
}

func (s *SignalGenTestSuite) TestLowConfidenceBecomesHold() {
	raw := common.TradingSignal{Action: common.SignalBuy, Confidence: 0.2}
	final := Generate(s.cfg, raw, nil, nil)
	assert.Equal(s.T(), common.SignalHold, final.Action)
	assert.InDelta(s.T(), 0.1, final.Confidence, 0.0001)
}

func (s *SignalGenTestSuite) TestFusionWithPatternMatch() {
	raw := common.TradingSignal{Action: common.SignalBuy, Confidence: 0.8}
	match := &pattern.PatternMatch{PatternID: "p1", Confidence: 0.4}
	final := Generate(s.cfg, raw, match, nil)
	expected := 0.7*0.8 + 0.3*0.4
	assert.InDelta(s.T(), expected, final.Confidence, 0.0001)
	assert.Equal(s.T(), "p1", final.MatchedPatternID)
}

func (s *SignalGenTestSuite) TestClosingLosingPositionLowersConfidence() {
	raw := common.TradingSignal{Action: common.SignalClose, Confidence: 0.8}
	position := &common.Position{Action: common.OrderActionLong, UnrealizedPnL: mustDecimal(-5)}
	final := Generate(s.cfg, raw, nil, position)
	assert.InDelta(s.T(), 0.7, final.Confidence, 0.0001)
}

func TestSignalGenSuite(t *testing.T) {
	suite.Run(t, new(SignalGenTestSuite))
}
