package entity

import "github.com/google/uuid"

// Principal is the authenticated caller as established by the transport
// layer. The zero value stands for an anonymous caller.
type Principal struct {
	UserID  uuid.UUID
	Email   string
	Role    Role
	TokenID string
}

func (p Principal) IsAnonymous() bool {
	return p.UserID == uuid.Nil
}

// ActorID is the audit-trail form of the caller: nil when anonymous.
func (p Principal) ActorID() *uuid.UUID {
	if p.IsAnonymous() {
		return nil
	}
	id := p.UserID
	return &id
}
