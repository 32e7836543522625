package purchasing

// callerEdges lists the status transitions an operator may request
// directly. partially_received and received are reached only through the
// receiving engine, never via Transition.
var callerEdges = map[Status][]Status{
	StatusDraft:             {StatusSent, StatusCancelled},
	StatusSent:              {StatusConfirmed, StatusCancelled},
	StatusConfirmed:         {StatusCancelled},
	StatusPartiallyReceived: {StatusCancelled},
}

// CanTransition reports whether an operator-requested edge is allowed.
func CanTransition(from, to Status) bool {
	for _, target := range callerEdges[from] {
		if target == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is one of the known lifecycle statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusSent, StatusConfirmed, StatusPartiallyReceived, StatusReceived, StatusCancelled:
		return true
	}
	return false
}
