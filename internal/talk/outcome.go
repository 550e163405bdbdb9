package talk

// RetrievalStatus classifies one retrieval short-circuit attempt.
type RetrievalStatus int

const (
	// RetrievalNotHandled means no knowledge matched; control falls through
	// to the conversational tier. Not an error.
	RetrievalNotHandled RetrievalStatus = iota
	// RetrievalHandled means the user was answered from the knowledge base.
	RetrievalHandled
	// RetrievalFailed means something broke inside the tier. The failure is
	// contained: the orchestrator logs it and falls through, the user never
	// sees it.
	RetrievalFailed
)

// RetrievalOutcome is the explicit result of the short-circuit tier.
type RetrievalOutcome struct {
	Status RetrievalStatus
	Text   string // Reply text when Status == RetrievalHandled
	Err    error  // Cause when Status == RetrievalFailed
}

func handled(text string) RetrievalOutcome {
	return RetrievalOutcome{Status: RetrievalHandled, Text: text}
}

func notHandled() RetrievalOutcome {
	return RetrievalOutcome{Status: RetrievalNotHandled}
}

func failed(err error) RetrievalOutcome {
	return RetrievalOutcome{Status: RetrievalFailed, Err: err}
}
