package classify

// Visibility states what a failure kind does to the form.
type Visibility struct {
	ShowFieldError bool
	Log            bool
	ExpireSession  bool
}

// Policy maps failure kinds to their visibility. Kinds missing from the
// table use the FailureUnknown entry.
type Policy map[FailureKind]Visibility

// DefaultPolicy stays quiet while the user is still typing. A rejected
// session expires it instead of flagging the card number field.
func DefaultPolicy() Policy {
	return Policy{
		FailureNotEnoughDigits: {},
		FailureNotFound:        {ShowFieldError: true},
		FailureUnauthorized:    {ExpireSession: true, Log: true},
		FailureTransport:       {ShowFieldError: true, Log: true},
		FailureUnknown:         {ShowFieldError: true, Log: true},
	}
}

// Lookup returns the visibility for kind.
func (p Policy) Lookup(kind FailureKind) Visibility {
	if v, ok := p[kind]; ok {
		return v
	}
	if v, ok := p[FailureUnknown]; ok {
		return v
	}
	return Visibility{ShowFieldError: true, Log: true}
}
