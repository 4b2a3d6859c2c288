package transfer

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// ServiceUnknown is returned by DiscoverService when no recognizer matches
const ServiceUnknown = "unknown"

// Service describes one registered hosting service: its identifier, the
// recognizer patterns for its URLs and the adapter constructors for the
// directions it supports (either may be nil).
type Service struct {
	ID          string
	Recognizers []*regexp.Regexp
	NewImporter ImporterFactory
	NewExporter ExporterFactory
}

// Registry maps service identifiers to their adapters and URL recognizers.
// Adding a service is a registration, not a code-path change elsewhere.
type Registry struct {
	services map[string]Service
	order    []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]Service)}
}

// Register adds a service to the registry, replacing any previous
// registration for the same identifier.
func (r *Registry) Register(svc Service) {
	if _, exists := r.services[svc.ID]; !exists {
		r.order = append(r.order, svc.ID)
	}
	r.services[svc.ID] = svc
}

// Services returns the registered service identifiers in registration order
func (r *Registry) Services() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// CanImport reports whether the service is registered with an importer
func (r *Registry) CanImport(id string) bool {
	svc, ok := r.services[id]
	return ok && svc.NewImporter != nil
}

// CanExport reports whether the service is registered with an exporter
func (r *Registry) CanExport(id string) bool {
	svc, ok := r.services[id]
	return ok && svc.NewExporter != nil
}

// Importer resolves and constructs the importer for the given service. A
// lookup for an unregistered identifier is a configuration error, not a
// retriable failure.
func (r *Registry) Importer(id string, jobs JobAccessor, jobID uuid.UUID) (Importer, error) {
	svc, ok := r.services[id]
	if !ok || svc.NewImporter == nil {
		return nil, fmt.Errorf("no importer registered for service %q", id)
	}
	return svc.NewImporter(jobs, jobID), nil
}

// Exporter resolves and constructs the exporter for the given service
func (r *Registry) Exporter(id string, jobs JobAccessor, jobID uuid.UUID) (Exporter, error) {
	svc, ok := r.services[id]
	if !ok || svc.NewExporter == nil {
		return nil, fmt.Errorf("no exporter registered for service %q", id)
	}
	return svc.NewExporter(jobs, jobID), nil
}

// DiscoverService runs every registered recognizer against the URL and
// returns the first matching service identifier, or ServiceUnknown.
func (r *Registry) DiscoverService(url string) string {
	for _, id := range r.order {
		for _, re := range r.services[id].Recognizers {
			if re.MatchString(url) {
				return id
			}
		}
	}
	return ServiceUnknown
}
