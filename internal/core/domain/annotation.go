package domain

// Annotation is a text label pinned to a position on the shared video.
type Annotation struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	AuthorID UserID  `json:"from"`
	ObjectID string  `json:"objectId,omitempty"`
}

// AnnotationStore keeps annotations in first-insert order, keyed by id.
type AnnotationStore struct {
	items []Annotation
	index map[string]int
}

func NewAnnotationStore() *AnnotationStore {
	return &AnnotationStore{
		index: make(map[string]int),
	}
}

// Upsert inserts a or overwrites the existing entry with the same id. The
// author of an existing entry is kept.
func (s *AnnotationStore) Upsert(a Annotation) (created bool) {
	if i, ok := s.index[a.ID]; ok {
		existing := &s.items[i]
		existing.Text = a.Text
		existing.X = a.X
		existing.Y = a.Y
		existing.ObjectID = a.ObjectID
		return false
	}
	s.index[a.ID] = len(s.items)
	s.items = append(s.items, a)
	return true
}

func (s *AnnotationStore) Get(id string) (Annotation, bool) {
	i, ok := s.index[id]
	if !ok {
		return Annotation{}, false
	}
	return s.items[i], true
}

func (s *AnnotationStore) Len() int {
	return len(s.items)
}

func (s *AnnotationStore) Snapshot() []Annotation {
	out := make([]Annotation, len(s.items))
	copy(out, s.items)
	return out
}
