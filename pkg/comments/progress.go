package comments

// Progress is reported once per parent page
type Progress struct {
	Shortcode string
	Page      int
	Comments  int
	// Max is the configured cap, 0 when unlimited
	Max     int
	HasNext bool
}

// ProgressSink observes a run. Implementations must not influence the result;
// a run with NopSink returns the same ResultSet as one with any other sink.
type ProgressSink interface {
	OnPage(p Progress)
	OnWarning(w Warning)
	OnDone(p Progress, err error)
}

// NopSink discards all progress
type NopSink struct{}

func (NopSink) OnPage(Progress)        {}
func (NopSink) OnWarning(Warning)      {}
func (NopSink) OnDone(Progress, error) {}

// MultiSink fans progress out to several sinks in order
type MultiSink []ProgressSink

func (m MultiSink) OnPage(p Progress) {
	for _, s := range m {
		s.OnPage(p)
	}
}

func (m MultiSink) OnWarning(w Warning) {
	for _, s := range m {
		s.OnWarning(w)
	}
}

func (m MultiSink) OnDone(p Progress, err error) {
	for _, s := range m {
		s.OnDone(p, err)
	}
}
