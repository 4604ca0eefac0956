package domain

// CredentialKind is the closed set of lookup keys a principal can be
// resolved by. Dispatch is by switch, not runtime type inspection.
type CredentialKind int

const (
	// ByName resolves via username or email address.
	ByName CredentialKind = iota
	// BySessionID resolves via a bound server-side session identifier.
	BySessionID
	// ByToken resolves via a refresh-token fingerprint.
	ByToken
)

func (k CredentialKind) String() string {
	switch k {
	case ByName:
		return "name"
	case BySessionID:
		return "session_id"
	case ByToken:
		return "token"
	default:
		return "unknown"
	}
}

// Credential is a transient (kind, value) lookup pair. It is only ever
// held on the stack during resolution and never persisted.
type Credential struct {
	Kind  CredentialKind
	Value string
}

func NameCredential(name string) Credential {
	return Credential{Kind: ByName, Value: name}
}

func SessionCredential(sessionID string) Credential {
	return Credential{Kind: BySessionID, Value: sessionID}
}

func TokenCredential(fingerprint string) Credential {
	return Credential{Kind: ByToken, Value: fingerprint}
}
