package catalog

// ConfigurationError aborts a session before any network call is made
// (non-chronological dates, unknown satellite or collection code).
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}
