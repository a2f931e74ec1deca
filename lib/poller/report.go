package poller

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"go.uber.org/zap"
)

type Stage string

const (
	StageFetch    Stage = "fetch"
	StageFilter   Stage = "filter"
	StageMark     Stage = "mark"
	StageDispatch Stage = "dispatch"
)

const metricPrefix = "bountywatch.cycle."

// CycleReport summarises one cycle.
type CycleReport struct {
	CycleID   string
	StartedAt time.Time

	Fetched     int
	Dropped     int // no id
	AlreadySeen int
	New         int
	Sent        int
	Failed      int
	Skipped     int // tenant has no destination

	// Aborted names the stage that cut the cycle short, if any.
	Aborted Stage
	Elapsed time.Duration
}

func (r *CycleReport) Add(results []Result) {
	for _, res := range results {
		switch res.Outcome {
		case OutcomeSent:
			r.Sent++
		case OutcomeFailed:
			r.Failed++
		case OutcomeSkipped:
			r.Skipped++
		}
	}
}

func (r *CycleReport) log(log *zap.SugaredLogger) {
	args := []any{"fetched", r.Fetched, "elapsed_msecs", int(r.Elapsed.Milliseconds())}
	if r.Dropped != 0 {
		args = append(args, "dropped", r.Dropped)
	}
	if r.AlreadySeen != 0 {
		args = append(args, "already_seen", r.AlreadySeen)
	}
	if r.Sent != 0 {
		args = append(args, "sent", r.Sent)
	}
	if r.Failed != 0 {
		args = append(args, "failed", r.Failed)
	}
	if r.Skipped != 0 {
		args = append(args, "skipped", r.Skipped)
	}

	if r.Aborted != "" {
		log.Warnw(fmt.Sprintf("Cycle aborted at %s", r.Aborted), args...)
		return
	}
	log.Infow(fmt.Sprintf("Cycle processed %d new bounties", r.New), args...)
}

func (r *CycleReport) emit(stats statsd.ClientInterface) {
	var tags []string
	if r.Aborted != "" {
		tags = []string{"aborted:" + string(r.Aborted)}
	}

	counts := map[string]int{
		"fetched":      r.Fetched,
		"dropped":      r.Dropped,
		"already_seen": r.AlreadySeen,
		"new":          r.New,
		"sent":         r.Sent,
		"failed":       r.Failed,
		"skipped":      r.Skipped,
	}
	for name, n := range counts {
		stats.Count(metricPrefix+name, int64(n), tags, 1)
	}
	stats.Timing(metricPrefix+"elapsed", r.Elapsed, tags, 1)
}
