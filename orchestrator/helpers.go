package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/signlearn/gesture-session/metrics"
)

// dispatch offers the summary to every sink once; one failing sink does not
// stop the others.
func (p *Pipeline) dispatch(ctx context.Context, res Result) error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Send(ctx, res.Summary); err != nil {
			metrics.SinkFailed(s.Name())
			p.log.WithFields(logrus.Fields{
				"sink":       s.Name(),
				"summary_id": res.Summary.ID,
				"error":      err,
			}).Error("failed to deliver summary")
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
			continue
		}
		p.log.WithFields(logrus.Fields{
			"sink":       s.Name(),
			"summary_id": res.Summary.ID,
		}).Debug("summary delivered")
	}
	return errors.Join(errs...)
}
