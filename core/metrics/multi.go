package metrics

import "errors"

// MultiSink fans every record out to several sinks. Optional recorder
// interfaces are forwarded only to sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordOperation(rec OperationRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordOperation(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRejection(ev RejectionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RejectionRecorder); ok {
			if err := r.RecordRejection(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordGuideLoad(loads []GuideLoad) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(LoadRecorder); ok {
			if err := r.RecordGuideLoad(loads); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
