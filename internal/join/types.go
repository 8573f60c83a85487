package join

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Metrics interface {
		ObserveMatches(state string, n int)
		ObserveDecodeFailures(stream string, n int)
		ObserveHintsIgnored(n int)
	}
)
