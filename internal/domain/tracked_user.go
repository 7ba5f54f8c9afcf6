package domain

// TrackedUser es un canal resuelto a partir de su login.
type TrackedUser struct {
	ID          string
	Login       string
	DisplayName string
}
