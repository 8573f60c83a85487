package clickhouse

import (
	"time"

	"github.com/golang/mock/gomock"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

func newResolution(id model.Identifier, tier model.Tier, version string, at time.Time) model.TierResolution {
	block := uint64(35_000_000) + uint64(id)
	method := model.MethodFlexPair
	if !tier.Known() {
		method = model.MethodNone
	}
	return model.TierResolution{
		Identifier:    id,
		Tier:          tier,
		MatchedBlock:  &block,
		Method:        method,
		DecodeVersion: version,
		ResolvedAt:    at,
	}
}

func (s *RepositorySuite) TestInsertTierResolutions() {
	now := time.Now().UTC().Truncate(time.Millisecond)
	msg := "rpc timeout"
	failed := model.TierResolution{Identifier: 3, Tier: model.TierUnknown, Method: model.MethodNone, Reason: model.ReasonScanError, DecodeVersion: "v1", Error: &msg, ResolvedAt: now}

	resolutions := []model.TierResolution{
		newResolution(1, model.Tier10, "v1", now),
		newResolution(2, model.Tier20, "v1", now),
		failed,
	}

	s.metrics.EXPECT().Observe("insert_tier_resolutions", 3, gomock.Nil(), gomock.Any()).Times(1)

	s.Require().NoError(s.repo.InsertTierResolutions(s.testCtx, resolutions))
	s.Equal(uint64(3), s.countRows("tier_resolutions"))

	rows, err := s.repo.conn.Query(s.testCtx, `
SELECT tier, matched_block, reason, error
FROM tier_resolutions FINAL
WHERE identifier = ?`, uint64(3))
	s.Require().NoError(err)
	defer func() {
		s.Require().NoError(rows.Close())
	}()

	var (
		tier    uint8
		block   *uint64
		reason  string
		errText *string
	)
	s.Require().True(rows.Next())
	s.Require().NoError(rows.Scan(&tier, &block, &reason, &errText))
	s.Equal(uint8(0), tier)
	s.Nil(block)
	s.Equal(string(model.ReasonScanError), reason)
	s.Require().NotNil(errText)
	s.Equal(msg, *errText)
}

func (s *RepositorySuite) TestTierCountsUsesLatestRow() {
	now := time.Now().UTC().Truncate(time.Millisecond)

	s.metrics.EXPECT().Observe("insert_tier_resolutions", gomock.Any(), gomock.Nil(), gomock.Any()).Times(2)
	s.metrics.EXPECT().Observe("tier_counts", 2, gomock.Nil(), gomock.Any()).Times(1)

	s.Require().NoError(s.repo.InsertTierResolutions(s.testCtx, []model.TierResolution{
		newResolution(1, model.TierUnknown, "v1", now),
		newResolution(2, model.Tier20, "v1", now),
		newResolution(3, model.Tier10, "v0", now),
	}))

	time.Sleep(10 * time.Millisecond)

	s.Require().NoError(s.repo.InsertTierResolutions(s.testCtx, []model.TierResolution{
		newResolution(1, model.Tier10, "v1", now.Add(time.Second)),
	}))

	counts, err := s.repo.TierCounts(s.testCtx, "v1")
	s.Require().NoError(err)
	s.Equal(map[model.Tier]uint64{model.Tier10: 1, model.Tier20: 1}, counts)
}
