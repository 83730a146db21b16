// Package filterchain implements the ordered, serial filter topology of
// spec.md §4.5: an append/remove/reorder list of spectral filter
// instances whose masks are combined into a single composite mask applied
// once per STFT iteration, so the chain never pays for more than one
// analysis/synthesis pass regardless of instance count.
package filterchain

import (
	"fmt"

	"github.com/shapedsignal/noiseforge/internal/errs"
	"github.com/shapedsignal/noiseforge/internal/mask"
)

// Instance is one filter slot in a chain: its configuration and the mask
// that configuration currently generates, cached so reordering or
// disabling a sibling never requires recomputing an unrelated instance's
// mask.
type Instance struct {
	Config  mask.Config
	Enabled bool
	mask    mask.Mask
}

// Chain is an ordered list of filter instances sharing one FFT size and
// sample rate, exposing only its composite mask to callers (spec.md §4.5:
// "callers never see individual instances in the signal path").
type Chain struct {
	n          int
	sampleRate float64

	instances []*Instance
	composite mask.Mask
}

// New builds an empty chain sized for n-point analysis frames at the
// given sample rate.
func New(n int, sampleRate float64) *Chain {
	c := &Chain{
		n:          n,
		sampleRate: sampleRate,
		instances:  nil,
	}
	c.rebuildComposite()
	return c
}

// Len reports the current instance count.
func (c *Chain) Len() int { return len(c.instances) }

// Add appends a new, enabled instance of the given type with its default
// configuration (or cfg, if non-nil) and returns its index.
func (c *Chain) Add(t mask.Type, cfg *mask.Config) int {
	var conf mask.Config
	if cfg != nil {
		conf = cfg.Clamp()
	} else {
		conf = mask.DefaultConfig(t)
	}
	inst := &Instance{
		Config:  conf,
		Enabled: true,
		mask:    mask.Generate(conf, c.n, c.sampleRate),
	}
	c.instances = append(c.instances, inst)
	c.rebuildComposite()
	return len(c.instances) - 1
}

// Remove destroys the instance at index and shifts later indices down.
func (c *Chain) Remove(index int) error {
	if index < 0 || index >= len(c.instances) {
		return fmt.Errorf("%w: filter index %d", errs.ErrBadIndex, index)
	}
	c.instances = append(c.instances[:index], c.instances[index+1:]...)
	c.rebuildComposite()
	return nil
}

// Move relocates the instance at from to position to, shifting
// intervening instances, and rebuilds the composite mask. Order affects
// only bookkeeping (composite mask is order-independent pointwise
// multiplication) but callers rely on stable positional indices for
// addressing, so the reorder itself must still be explicit.
func (c *Chain) Move(from, to int) error {
	n := len(c.instances)
	if from < 0 || from >= n {
		return fmt.Errorf("%w: filter index %d", errs.ErrBadIndex, from)
	}
	if to < 0 || to >= n {
		return fmt.Errorf("%w: filter index %d", errs.ErrBadIndex, to)
	}
	if from == to {
		return nil
	}
	inst := c.instances[from]
	c.instances = append(c.instances[:from], c.instances[from+1:]...)
	c.instances = append(c.instances[:to], append([]*Instance{inst}, c.instances[to:]...)...)
	c.rebuildComposite()
	return nil
}

// SetEnabled toggles whether index's mask participates in the composite.
// A disabled instance is a pass-through.
func (c *Chain) SetEnabled(index int, enabled bool) error {
	if index < 0 || index >= len(c.instances) {
		return fmt.Errorf("%w: filter index %d", errs.ErrBadIndex, index)
	}
	c.instances[index].Enabled = enabled
	c.rebuildComposite()
	return nil
}

// SetParameter updates a named parameter on the instance at index,
// clamping the value to the parameter's range, recomputes that
// instance's mask, and rebuilds the composite. Returns the clamped
// configuration so callers can read back the effective value (spec.md
// §4.5: "clamping is observable via a recomputed-config read-back").
func (c *Chain) SetParameter(index int, name string, value float64) (mask.Config, error) {
	if index < 0 || index >= len(c.instances) {
		return mask.Config{}, fmt.Errorf("%w: filter index %d", errs.ErrBadIndex, index)
	}
	inst := c.instances[index]
	next, ok := inst.Config.SetParameter(name, value)
	if !ok {
		return mask.Config{}, fmt.Errorf("%w: parameter %q on %s filter", errs.ErrBadParameter, name, inst.Config.Type)
	}
	inst.Config = next
	inst.mask = mask.Generate(next, c.n, c.sampleRate)
	c.rebuildComposite()
	return next, nil
}

// ConfigAt returns the current (clamped) configuration of the instance at
// index, for read-back after SetParameter.
func (c *Chain) ConfigAt(index int) (mask.Config, error) {
	if index < 0 || index >= len(c.instances) {
		return mask.Config{}, fmt.Errorf("%w: filter index %d", errs.ErrBadIndex, index)
	}
	return c.instances[index].Config, nil
}

// EnabledAt reports whether the instance at index currently participates
// in the composite mask.
func (c *Chain) EnabledAt(index int) (bool, error) {
	if index < 0 || index >= len(c.instances) {
		return false, fmt.Errorf("%w: filter index %d", errs.ErrBadIndex, index)
	}
	return c.instances[index].Enabled, nil
}

// Composite returns the chain's current composite mask: the pointwise
// product of every enabled instance's mask, or unity gain if none are
// enabled (spec.md §4.4: "a chain with multiple spectral filters composes
// their masks by pointwise multiplication into a single composite mask").
func (c *Chain) Composite() mask.Mask {
	return c.composite
}

// FilterSnapshot captures one instance's configuration independent of any
// particular FFT size, for use when regenerating a chain's composite mask
// at a different n (e.g. the offline renderer's bulk-FFT size).
type FilterSnapshot struct {
	Config  mask.Config
	Enabled bool
}

// Snapshot returns the chain's instances in order, decoupled from this
// chain's n/sampleRate so the configuration can be replayed against a
// differently-sized mask (spec.md §4.9's bulk FFT per render chunk).
func (c *Chain) Snapshot() []FilterSnapshot {
	out := make([]FilterSnapshot, len(c.instances))
	for i, inst := range c.instances {
		out[i] = FilterSnapshot{Config: inst.Config, Enabled: inst.Enabled}
	}
	return out
}

// CompositeAt computes the composite mask a snapshot would produce at a
// given FFT size and sample rate, without mutating any live chain.
func CompositeAt(snapshot []FilterSnapshot, n int, sampleRate float64) mask.Mask {
	var enabled []mask.Mask
	for _, s := range snapshot {
		if s.Enabled {
			enabled = append(enabled, mask.Generate(s.Config, n, sampleRate))
		}
	}
	return mask.Composite(n, enabled...)
}

func (c *Chain) rebuildComposite() {
	var enabled []mask.Mask
	for _, inst := range c.instances {
		if inst.Enabled {
			enabled = append(enabled, inst.mask)
		}
	}
	c.composite = mask.Composite(c.n, enabled...)
}
