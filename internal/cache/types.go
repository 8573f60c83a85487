package cache

import "time"

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Metrics interface {
		ObserveWrite(err error, started time.Time)
		ObserveMigrated(n int)
	}
)
