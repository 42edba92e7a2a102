package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bobarin/ugcstudio/internal/models"
)

const (
	demoStartProgress  = 12
	demoStep           = 15
	demoMaxProgress    = 90
	demoRenderProgress = 72
)

// runDemo advances one item per tick until nothing is left to render.
func (o *Orchestrator) runDemo(ctx context.Context) {
	ticker := time.NewTicker(o.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.failRendering(errCancelled)
			return
		case <-ticker.C:
		}
		if !o.demoTick(ctx) {
			log.Printf("[Orchestrator] Demo queue drained")
			return
		}
	}
}

// demoTick moves the oldest pending item forward and renders it once its
// progress reaches the render threshold. It reports false when nothing is pending.
func (o *Orchestrator) demoTick(ctx context.Context) bool {
	o.mu.Lock()
	e := o.firstPending()
	if e == nil {
		o.mu.Unlock()
		return false
	}
	if e.item.Status == models.QueueStatusQueued {
		if err := e.item.Transition(models.QueueStatusRendering); err != nil {
			o.mu.Unlock()
			log.Printf("[Orchestrator] %v", err)
			return false
		}
		e.item.Progress = demoStartProgress
	} else {
		e.item.Progress = min(demoMaxProgress, e.item.Progress+demoStep)
	}
	item, state := e.item, e.state
	o.mu.Unlock()

	if item.Progress < demoRenderProgress {
		return true
	}

	out, err := o.renderLocal(ctx, item, state)
	if err != nil {
		if ctx.Err() != nil {
			o.fail(item.ID, errCancelled)
			return false
		}
		// One broken item does not stop the demo queue.
		o.fail(item.ID, err)
		return true
	}
	o.complete(item.ID, out)
	return true
}

// failRendering fails the item that is currently rendering, if there is one.
func (o *Orchestrator) failRendering(cause error) {
	o.mu.Lock()
	var id string
	for _, e := range o.entries {
		if e.item.Status == models.QueueStatusRendering {
			id = e.item.ID
			break
		}
	}
	o.mu.Unlock()
	if id != "" {
		o.fail(id, cause)
	}
}

// failActive fails the rendering item, else the first queued one.
func (o *Orchestrator) failActive(cause error) {
	o.mu.Lock()
	var id string
	for _, e := range o.entries {
		if e.item.Status == models.QueueStatusRendering {
			id = e.item.ID
			break
		}
	}
	if id == "" {
		for _, e := range o.entries {
			if e.item.Status == models.QueueStatusQueued {
				id = e.item.ID
				break
			}
		}
	}
	o.mu.Unlock()

	if id == "" {
		return
	}
	if errors.Is(cause, context.Canceled) {
		cause = errCancelled
	}
	o.fail(id, cause)
}
