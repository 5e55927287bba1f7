package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/plan"
)

// Outcome is the per-key result of one reconciliation pass.
type Outcome string

const (
	OutcomeScheduled Outcome = "scheduled"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// Result reports what happened to one dedupe key. Err is set only for
// OutcomeFailed.
type Result struct {
	Key     string
	Outcome Outcome
	Err     error
}

// Coordinator diffs a reminder plan against the delivery collaborator's
// pending set: plan-only keys are submitted, pending-only keys are cancelled,
// the intersection is left untouched so no user-visible notification is ever
// re-registered.
type Coordinator struct {
	Delivery Delivery
}

// NewCoordinator wires a coordinator to its delivery collaborator.
func NewCoordinator(d Delivery) *Coordinator {
	return &Coordinator{Delivery: d}
}

// Reconcile applies the plan. Submits and cancels fan out concurrently per
// key, so a slow collaborator bounds latency to its slowest call rather than
// the sum; the dedupe-key scheme makes overlapping invocations idempotent
// without cross-entity locking.
//
// Every key in the plan or in the pending set appears exactly once in the
// returned list. Individual failures are recorded as OutcomeFailed for their
// key only; no error ever aborts the batch.
func (c *Coordinator) Reconcile(ctx context.Context, candidates []plan.Candidate) []Result {
	log := slog.With(config.LogKeyComponent, config.CompNotify)

	pending, err := c.Delivery.ListScheduled(ctx)
	if err != nil {
		// Without the pending set there is nothing safe to cancel or submit;
		// report the whole plan as failed rather than guessing.
		log.Error(config.ErrListScheduled, config.LogKeyError, err)
		results := make([]Result, len(candidates))
		for i, cand := range candidates {
			results[i] = Result{
				Key:     cand.DedupeKey,
				Outcome: OutcomeFailed,
				Err:     fmt.Errorf("%s: %w", config.ErrListScheduled, err),
			}
		}
		return results
	}

	pendingSet := make(map[string]bool, len(pending))
	for _, key := range pending {
		pendingSet[key] = true
	}
	planned := make(map[string]plan.Candidate, len(candidates))
	for _, cand := range candidates {
		planned[cand.DedupeKey] = cand
	}

	// Pre-size the result slice so each goroutine writes its own slot and no
	// further synchronization is needed.
	type job struct {
		key       string
		candidate plan.Candidate
		submit    bool
	}
	var jobs []job
	var results []Result

	for _, cand := range candidates {
		if pendingSet[cand.DedupeKey] {
			results = append(results, Result{Key: cand.DedupeKey, Outcome: OutcomeUnchanged})
			continue
		}
		jobs = append(jobs, job{key: cand.DedupeKey, candidate: cand, submit: true})
	}
	for _, key := range pending {
		if _, ok := planned[key]; !ok {
			jobs = append(jobs, job{key: key})
		}
	}

	offset := len(results)
	results = append(results, make([]Result, len(jobs))...)

	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(slot int, j job) {
			defer wg.Done()
			if j.submit {
				results[slot] = c.submit(ctx, j.candidate)
			} else {
				results[slot] = c.cancel(ctx, j.key)
			}
		}(offset+i, j)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })

	stats := struct{ scheduled, cancelled, unchanged, failed int }{}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeScheduled:
			stats.scheduled++
		case OutcomeCancelled:
			stats.cancelled++
		case OutcomeUnchanged:
			stats.unchanged++
		case OutcomeFailed:
			stats.failed++
		}
	}
	log.Info(config.MsgReconcileDone,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyScheduled, stats.scheduled),
			slog.Int(config.LogKeyCancelled, stats.cancelled),
			slog.Int(config.LogKeyUnchanged, stats.unchanged),
			slog.Int(config.LogKeyFailed, stats.failed),
		),
	)
	return results
}

func (c *Coordinator) submit(ctx context.Context, cand plan.Candidate) Result {
	payload, err := json.Marshal(Payload{
		Type:     cand.Type,
		EntityID: cand.EntityID,
		Title:    cand.Title,
		Body:     cand.Body,
		FireAt:   cand.FireAt,
	})
	if err != nil {
		return Result{
			Key:     cand.DedupeKey,
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("%s: %w", config.ErrPayloadEncode, err),
		}
	}

	if _, err := c.Delivery.Schedule(ctx, cand.DedupeKey, cand.FireAt, payload); err != nil {
		return Result{
			Key:     cand.DedupeKey,
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("%s: %w", config.ErrScheduleReject, err),
		}
	}
	return Result{Key: cand.DedupeKey, Outcome: OutcomeScheduled}
}

func (c *Coordinator) cancel(ctx context.Context, key string) Result {
	if err := c.Delivery.Cancel(ctx, key); err != nil {
		return Result{
			Key:     key,
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("%s: %w", config.ErrCancelReject, err),
		}
	}
	return Result{Key: key, Outcome: OutcomeCancelled}
}
