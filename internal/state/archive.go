package state

// Archive is the grow-only set of handles that have been followed. It keeps
// insertion order so the persisted list is stable across runs.
type Archive struct {
	order []string
	seen  map[string]struct{}
}

// NewArchive builds an archive from handles, dropping duplicates and empty
// entries.
func NewArchive(handles []string) *Archive {
	a := &Archive{seen: make(map[string]struct{}, len(handles))}
	for _, h := range handles {
		a.Add(h)
	}
	return a
}

// Contains reports whether handle has been followed.
func (a *Archive) Contains(handle string) bool {
	_, ok := a.seen[handle]
	return ok
}

// Add records handle. It returns false if handle was already present.
func (a *Archive) Add(handle string) bool {
	if handle == "" || a.Contains(handle) {
		return false
	}
	a.seen[handle] = struct{}{}
	a.order = append(a.order, handle)
	return true
}

// Len returns the number of archived handles.
func (a *Archive) Len() int { return len(a.order) }

// Handles returns a copy of the archived handles in insertion order.
func (a *Archive) Handles() []string {
	return append([]string{}, a.order...)
}
