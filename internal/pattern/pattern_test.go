package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PatternTestSuite struct {
	suite.Suite
}

func (s *PatternTestSuite) TestNoopMatcherReturnsNothing() {
	m := NoopMatcher{}
	matches, err := m.Match(MarketConditions{}, 5, DefaultMinRelevance)
	assert.NoError(s.T(), err)
	assert.Empty(s.T(), matches)
}

func (s *PatternTestSuite) TestBestPicksHighestRelevance() {
	matches := []PatternMatch{
		{PatternID: "a", RelevanceScore: 0.7, Confidence: 0.5},
		{PatternID: "b", RelevanceScore: 0.9, Confidence: 0.6},
		{PatternID: "c", RelevanceScore: 0.65, Confidence: 0.4},
	}
	best := Best(matches)
	assert.NotNil(s.T(), best)
	assert.Equal(s.T(), "b", best.PatternID)
}

func (s *PatternTestSuite) TestBestOnEmptyIsNil() {
	assert.Nil(s.T(), Best(nil))
}

func TestPatternSuite(t *testing.T) {
	suite.Run(t, new(PatternTestSuite))
}
