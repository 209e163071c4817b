package contracts

// Mode is the coarse state reported by the gesture classifier.
type Mode string

const (
	ModeIdle Mode = "idle"
	ModePlay Mode = "play"
)

// GestureSnapshot is the classifier state at one instant. It carries no
// identity: consumers only compare it with their own previous copy.
type GestureSnapshot struct {
	Instrument string
	Mode       Mode
	Recording  bool
	NoteActive bool
}

// Playable reports whether the lead voice may sound.
func (g GestureSnapshot) Playable() bool {
	return g.Mode == ModePlay
}

// GestureProvider is the external classifier. Snapshot must return promptly;
// an error means "no update" and the caller keeps its previous snapshot.
type GestureProvider interface {
	Snapshot() (GestureSnapshot, error)
}

// GestureProviderFunc adapts a function to GestureProvider.
type GestureProviderFunc func() (GestureSnapshot, error)

// Snapshot calls f.
func (f GestureProviderFunc) Snapshot() (GestureSnapshot, error) { return f() }
