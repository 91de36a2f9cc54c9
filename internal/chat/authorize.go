package chat

// Membership authorization. These decide on entities the workflow has already
// loaded and never touch storage.

func IsOwner(c *Chat, callerEmail string) bool {
	return c != nil && c.OwnerEmail == callerEmail
}

// CanInvite reports whether the requester may bring target into c: only the
// owner may invite, and only a verified contact.
func CanInvite(c *Chat, requesterEmail string, requesterID, targetID int, areVerifiedContacts func(a, b int) bool) bool {
	return IsOwner(c, requesterEmail) && areVerifiedContacts(requesterID, targetID)
}

// CanRemove allows the owner to remove anyone and any member to leave.
func CanRemove(c *Chat, callerEmail, targetEmail string) bool {
	return IsOwner(c, callerEmail) || callerEmail == targetEmail
}

func CanDelete(c *Chat, callerEmail string) bool {
	return IsOwner(c, callerEmail)
}
