package render

// Stack is the in-memory Sink. It is not safe for concurrent use.
type Stack struct {
	layers []Layer
	index  map[string]int
}

func NewStack() *Stack {
	return &Stack{index: map[string]int{}}
}

// NewStackWith returns a stack pre-seeded with blank hidden layers for keys.
func NewStackWith(keys ...string) *Stack {
	s := NewStack()
	for _, k := range keys {
		s.Reserve(k)
	}
	return s
}

func (s *Stack) Reserve(key string) int {
	if i, ok := s.index[key]; ok {
		return i
	}
	s.layers = append(s.layers, Layer{Key: key})
	s.index[key] = len(s.layers) - 1
	return len(s.layers) - 1
}

func (s *Stack) Get(key string) (Layer, bool) {
	i, ok := s.index[key]
	if !ok {
		return Layer{}, false
	}
	return s.layers[i], true
}

func (s *Stack) Set(l Layer) {
	if i, ok := s.index[l.Key]; ok {
		s.layers[i] = l
	}
}

func (s *Stack) Insert(index int, l Layer) {
	s.Remove(l.Key)
	if index < 0 {
		index = 0
	}
	if index > len(s.layers) {
		index = len(s.layers)
	}
	s.layers = append(s.layers, Layer{})
	copy(s.layers[index+1:], s.layers[index:])
	s.layers[index] = l
	s.reindex(index)
}

func (s *Stack) Remove(key string) {
	i, ok := s.index[key]
	if !ok {
		return
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	delete(s.index, key)
	s.reindex(i)
}

func (s *Stack) reindex(from int) {
	for i := from; i < len(s.layers); i++ {
		s.index[s.layers[i].Key] = i
	}
}

func (s *Stack) Index(key string) (int, bool) {
	i, ok := s.index[key]
	return i, ok
}

func (s *Stack) Len() int { return len(s.layers) }

// Layers returns a copy of the stack.
func (s *Stack) Layers() LayerList {
	return append(LayerList(nil), s.layers...)
}

// Clone returns an independent stack.
func (s *Stack) Clone() *Stack {
	out := &Stack{
		layers: append([]Layer(nil), s.layers...),
		index:  make(map[string]int, len(s.index)),
	}
	for k, v := range s.index {
		out.index[k] = v
	}
	return out
}

var _ Sink = (*Stack)(nil)
