package clickhouse

import (
	"github.com/golang/mock/gomock"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

func (s *RepositorySuite) TestInsertMatchRecords() {
	winner := "0x00000000000000000000000000000000000000aa"
	code := uint64(1)
	records := []model.MatchRecord{
		{
			MatchID:    7,
			PlayerA:    winner,
			PlayerB:    "0x00000000000000000000000000000000000000bb",
			ResultCode: &code,
			Winner:     &winner,
			Block:      100,
			TxHash:     "0x01",
			LogIndex:   2,
			Join:       model.JoinedByKey,
		},
		{
			MatchID: 8,
			PlayerA: "0x00000000000000000000000000000000000000cc",
			PlayerB: "0x00000000000000000000000000000000000000dd",
			Block:   101,
			TxHash:  "0x02",
			Join:    model.JoinUnresolved,
		},
	}

	s.metrics.EXPECT().Observe("insert_match_records", 2, gomock.Nil(), gomock.Any()).Times(2)

	s.Require().NoError(s.repo.InsertMatchRecords(s.testCtx, records))
	s.Require().NoError(s.repo.InsertMatchRecords(s.testCtx, records))
	s.Equal(uint64(2), s.countRows("match_records"))

	rows, err := s.repo.conn.Query(s.testCtx, `
SELECT winner, join_state
FROM match_records FINAL
WHERE match_id = ?`, uint64(8))
	s.Require().NoError(err)
	defer func() {
		s.Require().NoError(rows.Close())
	}()

	var (
		got   *string
		state string
	)
	s.Require().True(rows.Next())
	s.Require().NoError(rows.Scan(&got, &state))
	s.Nil(got)
	s.Equal(string(model.JoinUnresolved), state)
}
