package domain

type POStatus string

const (
	POStatusPending  POStatus = "PENDING"
	POStatusReceived POStatus = "RECEIVED"
)

// RECEIVED tidak punya transisi keluar.
var validNext = map[POStatus]map[POStatus]bool{
	POStatusPending:  {POStatusReceived: true},
	POStatusReceived: {},
}

func CanTransition(from, to POStatus) bool {
	return validNext[from][to]
}
