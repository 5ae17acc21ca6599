package internal

// Session holds the state a sync keeps between calls: the row cache and the
// day of the last completed sync. It is owned by the caller and is not safe
// for concurrent use.
type Session struct {
	rows   []Row
	cached bool

	marker int
	marked bool
}

func NewSession() *Session {
	return &Session{}
}

// SyncMarker returns the day of month of the last completed sync, if any.
func (s *Session) SyncMarker() (int, bool) {
	return s.marker, s.marked
}

func (s *Session) setSyncMarker(day int) {
	s.marker = day
	s.marked = true
}

func (s *Session) cachedRows() ([]Row, bool) {
	return s.rows, s.cached
}

func (s *Session) cacheRows(rows []Row) {
	s.rows = rows
	s.cached = true
}

func (s *Session) clearRows() {
	s.rows = nil
	s.cached = false
}
