package interfaces

// Notifier is the transient notification surface. Calls are fire-and-forget;
// no return value is consumed.
type Notifier interface {
	Success(message, description string)
	Error(message, description string)
}
