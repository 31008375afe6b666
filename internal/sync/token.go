package sync

// TokenHolder keeps a decrypted token for the lifetime of a session. It is
// never written anywhere; once the process exits the passphrase is needed
// again. Callers own the holder and decide when to Clear it.
type TokenHolder struct {
	token string
}

// Set stores a decrypted token for the session.
func (h *TokenHolder) Set(token string) {
	h.token = token
}

// Get returns the session token, reporting whether one is held.
func (h *TokenHolder) Get() (string, bool) {
	return h.token, h.token != ""
}

// Clear drops the session token.
func (h *TokenHolder) Clear() {
	h.token = ""
}
