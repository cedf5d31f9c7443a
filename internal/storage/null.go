package storage

// Null is a Provider with no backing medium. Every call reports
// ErrUnavailable so callers can tell "nothing stored" apart from "nowhere to
// store".
type Null struct{}

// NewNull returns the null store.
func NewNull() Null { return Null{} }

func (Null) Get(string) ([]byte, error) { return nil, ErrUnavailable }

func (Null) Set(string, []byte) error { return ErrUnavailable }

func (Null) Clear(string) error { return ErrUnavailable }
