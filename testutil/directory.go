// Package testutil contains shared helpers for tests: a canned channel
// directory and a Postgres setup helper gated on TEST_PG_DSN.
package testutil

import "strings"

// FakeDirectory is a canned moderator/subscriber lookup.
type FakeDirectory struct {
	Moderators  []string
	Subscribers []string
}

func (d *FakeDirectory) IsModerator(user string) bool  { return contains(d.Moderators, user) }
func (d *FakeDirectory) IsSubscriber(user string) bool { return contains(d.Subscribers, user) }

func contains(list []string, user string) bool {
	for _, u := range list {
		if strings.EqualFold(u, user) {
			return true
		}
	}
	return false
}
