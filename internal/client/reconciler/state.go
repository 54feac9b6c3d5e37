package reconciler

// State is the write-permission state of a session.
type State int

const (
	// StateInit means the remote row has not been read yet.
	StateInit State = iota
	// StateSyncing means this device was the last writer and pushes freely.
	StateSyncing
	// StateForeign means another device wrote last. Automatic pushes are
	// suspended until the caller resolves with SaveNow or AdoptRemote.
	StateForeign
	// StateReadOnly means the user does not own the scene.
	StateReadOnly
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSyncing:
		return "syncing"
	case StateForeign:
		return "foreign"
	case StateReadOnly:
		return "read-only"
	}
	return "unknown"
}
