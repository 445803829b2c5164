// Package registry composes several readers and resolves which of them supply
// which variables.
package registry

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go.ngs.io/envreader/internal/domain"
)

// Reader is the contract a reader must satisfy to be attached.
type Reader interface {
	Name() string
	Projection() string
	Variables() []string
	HasVariable(name string) bool
	Sample(variables []string, t time.Time, x, y, depth []float64) ([]float64, error)
	LonLat2XY(lon, lat []float64) (x, y []float64, err error)
}

// Attached is a reader together with the label it was attached under.
type Attached struct {
	Name   string
	Reader Reader
}

// Resolution maps each requested variable to the first attached reader serving it.
type Resolution struct {
	Variables []string
	Sources   map[string]string // Variable -> reader label.
}

// Registry is an ordered set of readers. Earlier readers take precedence.
type Registry struct {
	mu      sync.RWMutex
	readers []Attached
	log     logrus.FieldLogger
}

// New creates an empty registry.
func New(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{log: log}
}

type attachOptions struct {
	required []string
	name     string
}

// AttachOption configures Attach.
type AttachOption func(*attachOptions)

// WithRequiredVariables makes Attach fail unless the reader serves all names.
func WithRequiredVariables(names ...string) AttachOption {
	return func(o *attachOptions) { o.required = append(o.required, names...) }
}

// WithName attaches the reader under a different label.
func WithName(name string) AttachOption {
	return func(o *attachOptions) { o.name = name }
}

// Attach appends a reader.
func (g *Registry) Attach(r Reader, opts ...AttachOption) error {
	if isNil(r) {
		return fmt.Errorf("%w: nil reader", domain.ErrInvalidReader)
	}

	var o attachOptions
	for _, opt := range opts {
		opt(&o)
	}

	if missing := difference(o.required, r.Variables()); len(missing) > 0 {
		return &domain.MissingVariablesError{Names: missing}
	}

	label := o.name
	if label == "" {
		label = r.Name()
	}

	g.mu.Lock()
	g.readers = append(g.readers, Attached{Name: label, Reader: r})
	g.mu.Unlock()

	g.log.WithFields(logrus.Fields{
		"reader":    label,
		"variables": len(r.Variables()),
	}).Info("Attached reader")
	return nil
}

func isNil(r Reader) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return v.IsNil()
	}
	return false
}

// difference returns the sorted, deduplicated names in want absent from have.
func difference(want, have []string) []string {
	var missing []string
	for _, w := range want {
		if !slices.Contains(have, w) && !slices.Contains(missing, w) {
			missing = append(missing, w)
		}
	}
	slices.Sort(missing)
	return missing
}

// Variables yields every attached reader's variables in attach order,
// duplicates included. The sequence may be ranged over repeatedly.
func (g *Registry) Variables() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, a := range g.Readers() {
			for _, v := range a.Reader.Variables() {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// Readers returns the attached readers in attach order.
func (g *Registry) Readers() []Attached {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.readers)
}

// ReaderFor returns the first attached reader serving variable.
func (g *Registry) ReaderFor(variable string) (Attached, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, a := range g.readers {
		if a.Reader.HasVariable(variable) {
			return a, true
		}
	}
	return Attached{}, false
}

// ResolveEnvironment checks that every requested variable is served by some
// attached reader and reports the first one for each. The position, depth and
// time arguments do not affect resolution.
func (g *Registry) ResolveEnvironment(variables []string, projection string, x, y, depth []float64, t time.Time) (Resolution, error) {
	if len(x) != len(y) {
		return Resolution{}, fmt.Errorf("%w: %d x coordinates but %d y coordinates", domain.ErrInvalidArgument, len(x), len(y))
	}

	res := Resolution{
		Variables: slices.Clone(variables),
		Sources:   make(map[string]string, len(variables)),
	}
	var missing []string
	for _, v := range variables {
		if _, done := res.Sources[v]; done {
			continue
		}
		a, ok := g.ReaderFor(v)
		if !ok {
			if !slices.Contains(missing, v) {
				missing = append(missing, v)
			}
			continue
		}
		res.Sources[v] = a.Name
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return Resolution{}, &domain.MissingVariablesError{Names: missing}
	}

	g.log.WithFields(logrus.Fields{
		"variables":  variables,
		"projection": projection,
		"points":     len(x),
		"time":       t,
	}).Debug("Resolved environment")
	return res, nil
}

// Close closes every attached reader that holds resources.
func (g *Registry) Close() error {
	var errs []error
	for _, a := range g.Readers() {
		if c, ok := a.Reader.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
