// Package identity tracks who owns the collection right now.
//
// Authentication itself happens elsewhere (the web client signs in against
// its provider); this package only persists the resulting stable user id
// and turns changes to it into a stream of session events the collection
// store can react to.
package identity

import "github.com/tomp11/sb-stamp-manager/pkg/stamp"

// Session is the identity context a collection belongs to: either
// anonymous (guest mode, local cache only) or a specific authenticated
// user (remote collection).
type Session struct {
	UserID string
}

// Anonymous returns the guest session.
func Anonymous() Session {
	return Session{}
}

// IsAnonymous reports whether no user is signed in.
func (s Session) IsAnonymous() bool {
	return s.UserID == ""
}

// OwnerID returns the owner id records are stored under for this session.
func (s Session) OwnerID() string {
	if s.IsAnonymous() {
		return stamp.AnonymousOwner
	}
	return s.UserID
}
