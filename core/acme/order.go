package acme

import (
	xacme "golang.org/x/crypto/acme"

	"github.com/dmitrymomot/certkit/core/store"
)

// PlacedOrder is an order awaiting validation. Challenges holds the
// persistable token/response pairs; pending holds the protocol-level
// challenge objects to accept and poll.
type PlacedOrder struct {
	Domains    []string
	Challenges []store.ChallengeInfo

	order   *xacme.Order
	pending []*xacme.Challenge
}
