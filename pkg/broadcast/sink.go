package broadcast

// DeliverFunc observes a completed delivery cycle.
type DeliverFunc func(size, delivered, pruned int)

// Sink is the terminal stage of a pipeline. Every chunk written to it is
// delivered to all listeners in the registry.
type Sink struct {
	registry  *Registry
	onDeliver DeliverFunc
}

func NewSink(r *Registry, onDeliver DeliverFunc) *Sink {
	return &Sink{
		registry:  r,
		onDeliver: onDeliver,
	}
}

// Write copies p once and hands the copy to every listener. A failing
// listener never surfaces as an error here.
func (s *Sink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	chunk := make([]byte, len(p))
	copy(chunk, p)

	delivered, pruned := s.registry.DeliverAll(chunk)
	if s.onDeliver != nil {
		s.onDeliver(len(chunk), delivered, pruned)
	}

	return len(p), nil
}
