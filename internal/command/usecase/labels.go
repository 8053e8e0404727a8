package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"voicecmd-backend/internal/command/domain"
	"voicecmd-backend/pkg/metrics"
	"voicecmd-backend/pkg/todoist"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// LabelService is the label half of the task service
type LabelService interface {
	ListLabels(ctx context.Context) ([]todoist.Label, error)
	CreateLabel(ctx context.Context, name string) (*todoist.Label, error)
}

// LabelRegistry caches label name to ID for a single run. Names compare case-insensitively.
type LabelRegistry struct {
	loaded bool
	ids    map[string]domain.LabelRef
}

func NewLabelRegistry() *LabelRegistry {
	return &LabelRegistry{ids: make(map[string]domain.LabelRef)}
}

func (r *LabelRegistry) Lookup(name string) (domain.LabelRef, bool) {
	ref, ok := r.ids[labelKey(name)]
	return ref, ok
}

func (r *LabelRegistry) Put(ref domain.LabelRef) {
	key := labelKey(ref.Name)
	if _, exists := r.ids[key]; !exists {
		r.ids[key] = ref
	}
}

func (r *LabelRegistry) Len() int { return len(r.ids) }

// sharedCreateTimeout bounds a create call shared by several runs. It runs
// detached from every caller's context.
const sharedCreateTimeout = 30 * time.Second

// recentCreatesSize is how many created labels are remembered across runs
const recentCreatesSize = 512

// LabelReconciler resolves label names to task-service IDs, creating missing ones
type LabelReconciler struct {
	svc     LabelService
	creates *singleflight.Group // nil disables cross-run deduplication
	recent  *lru.Cache[string, domain.LabelRef]
	metrics *metrics.Metrics
}

func NewLabelReconciler(svc LabelService, dedup bool, m *metrics.Metrics) *LabelReconciler {
	r := &LabelReconciler{svc: svc, metrics: m}
	if dedup {
		r.creates = &singleflight.Group{}
		r.recent, _ = lru.New[string, domain.LabelRef](recentCreatesSize)
	}
	return r
}

// Resolve returns one reference per distinct name, in request order. The full
// label list is fetched once per registry and each missing name is created once.
func (r *LabelReconciler) Resolve(ctx context.Context, registry *LabelRegistry, names []string) ([]domain.LabelRef, error) {
	if r.svc == nil {
		return nil, domain.NewReconciliationError(errors.New("task service not configured"))
	}
	if !registry.loaded {
		existing, err := r.svc.ListLabels(ctx)
		if err != nil {
			return nil, domain.NewReconciliationError(fmt.Errorf("list labels: %w", err))
		}
		for _, l := range existing {
			registry.Put(domain.LabelRef{Name: l.Name, ID: l.ID})
		}
		registry.loaded = true
	}

	refs := make([]domain.LabelRef, 0, len(names))
	emitted := make(map[string]bool)
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" || emitted[labelKey(name)] {
			continue
		}
		ref, ok := registry.Lookup(name)
		if !ok {
			created, err := r.create(ctx, name)
			if err != nil {
				return nil, domain.NewReconciliationError(fmt.Errorf("create label %q: %w", name, err))
			}
			ref = created
			registry.Put(ref)
		}
		emitted[labelKey(name)] = true
		refs = append(refs, ref)
	}
	return refs, nil
}

func (r *LabelReconciler) create(ctx context.Context, name string) (domain.LabelRef, error) {
	if r.creates == nil {
		return r.createRemote(ctx, name)
	}

	// Concurrent runs asking for the same new name share one call. A run that
	// listed before another run created the name finds it in recent instead of
	// creating it twice, so each run still lists labels once.
	key := labelKey(name)
	ch := r.creates.DoChan(key, func() (interface{}, error) {
		if ref, ok := r.recent.Get(key); ok {
			return ref, nil
		}
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCreateTimeout)
		defer cancel()
		ref, err := r.createRemote(sharedCtx, name)
		if err != nil {
			return domain.LabelRef{}, err
		}
		r.recent.Add(key, ref)
		return ref, nil
	})

	select {
	case <-ctx.Done():
		return domain.LabelRef{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.LabelRef{}, res.Err
		}
		if res.Shared {
			log.Printf("[Labels] Shared in-flight create for %q", name)
		}
		return res.Val.(domain.LabelRef), nil
	}
}

func (r *LabelReconciler) createRemote(ctx context.Context, name string) (domain.LabelRef, error) {
	label, err := r.svc.CreateLabel(ctx, name)
	if err != nil {
		return domain.LabelRef{}, err
	}
	r.metrics.IncLabelCreate()
	log.Printf("[Labels] Created label %q (id=%s)", name, label.ID)
	if label.Name == "" {
		label.Name = name
	}
	return domain.LabelRef{Name: label.Name, ID: label.ID}, nil
}

func labelKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
