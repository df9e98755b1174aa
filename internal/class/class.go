// SPDX-License-Identifier: GPL-3.0-or-later
//
// Grounded on: _examples/original_source/src/base/oonf_class.c
//

package class

import "fmt"

// Event identifies a lifecycle transition fired to a [Class]'s extensions.
type Event int

const (
	// EventAdded fires once, right after an instance has been allocated
	// and its extension side data initialized.
	EventAdded Event = iota

	// EventChanged fires whenever the caller reports that an instance's
	// payload was mutated in place.
	EventChanged

	// EventRemoved fires once, right before an instance is returned to
	// the free list (or discarded, in debug mode).
	EventRemoved
)

// guardWord brackets every debug-mode instance so [Class.Free] can detect
// a write past the payload's boundaries.
const guardWord = 0xC1A55C0D

// Instance is a single object handed out by [Class.Alloc].
//
// T is the payload type. Extension side data, if any, lives in ext,
// keyed by extension name — the Go-native analog of an offset-appended
// extension struct.
type Instance[T any] struct {
	Value T

	guardPrefix uint32
	guardSuffix uint32
	debug       bool
	ext         map[string]any
}

// Ext returns the side data an extension named name attached to inst, or
// nil if no such extension exists or it registered without side data.
func (inst *Instance[T]) Ext(name string) any {
	if inst.ext == nil {
		return nil
	}
	return inst.ext[name]
}

// Extension observes a [Class]'s lifecycle and, optionally, attaches
// per-instance side data.
//
// NewData, when non-nil, is called once per allocated instance (a
// size>0 extension); the returned value is stored under
// Name and retrievable via [Instance.Ext]. An extension with a nil
// NewData is a pure observer (a size==0 extension).
type Extension[T any] struct {
	Name      string
	NewData   func() any
	OnAdded   func(*Instance[T])
	OnChanged func(*Instance[T])
	OnRemoved func(*Instance[T])
}

// Class is a named, pooled allocator for instances of T.
//
// A Class is not safe for concurrent use: like the rest of the core, it
// is only ever touched from the single goroutine driving the event loop.
type Class[T any] struct {
	name     string
	registry *Registry
	debug    bool
	minFree  int

	allocated   int
	currentUsed int
	freeList    []*Instance[T]
	extensions  []*Extension[T]
}

// New registers a class named name with registry and returns it.
//
// minFree is the minimum number of freed instances the free list always
// retains (analogous to cfg.free_keep); debug enables guard-checked
// allocation, per meshcore's Config.ClassDebug ("class.debug").
func New[T any](registry *Registry, name string, minFree int, debug bool) (*Class[T], error) {
	if err := registry.register(name); err != nil {
		return nil, err
	}
	return &Class[T]{
		name:     name,
		registry: registry,
		debug:    debug,
		minFree:  minFree,
	}, nil
}

// Name returns the class's registered name.
func (c *Class[T]) Name() string { return c.name }

// Close unregisters the class's name, allowing it to be reused.
func (c *Class[T]) Close() {
	c.registry.unregister(c.name)
}

// SetDebug toggles guard-checked debug allocation. It fails once the
// class has allocated at least one instance: flipping the mode midstream
// would leave existing instances and new instances disagreeing about
// whether they carry guards.
func (c *Class[T]) SetDebug(debug bool) error {
	if c.allocated != 0 {
		return fmt.Errorf("class %q: cannot change debug mode after allocation began", c.name)
	}
	c.debug = debug
	return nil
}

// Stats reports the class's allocation counters: total ever allocated,
// instances currently handed out, and instances sitting on the free list.
func (c *Class[T]) Stats() (allocated, current, free int) {
	return c.allocated, c.currentUsed, len(c.freeList)
}

// AddExtension registers ext on c.
//
// It fails if c has already allocated at least one instance and ext
// attaches side data (NewData != nil): existing free-list instances
// would be allocated before the extension existed and could not carry
// its side data. A pure-observer extension (NewData == nil) may be
// added at any time.
func (c *Class[T]) AddExtension(ext *Extension[T]) error {
	if c.allocated != 0 && ext.NewData != nil {
		return fmt.Errorf("class %q: cannot add extension %q with side data after allocation began", c.name, ext.Name)
	}
	if ext.NewData != nil {
		c.freeList = nil
	}
	c.extensions = append(c.extensions, ext)
	return nil
}

// Alloc returns a new or recycled instance.
//
// Recycled instances come from the free list (debug mode never recycles:
// every debug-mode Free discards its instance so a use-after-free always
// touches fresh, guard-checked memory). Extensions with side data get a
// freshly allocated data value; EventAdded fires to every extension in
// registration order.
func (c *Class[T]) Alloc() *Instance[T] {
	var inst *Instance[T]
	if n := len(c.freeList); n > 0 && !c.debug {
		inst = c.freeList[n-1]
		c.freeList = c.freeList[:n-1]
		var zero T
		inst.Value = zero
	} else {
		inst = &Instance[T]{debug: c.debug}
	}
	if c.debug {
		inst.guardPrefix = guardWord
		inst.guardSuffix = guardWord
	}
	if len(c.extensions) > 0 {
		inst.ext = make(map[string]any, len(c.extensions))
		for _, ext := range c.extensions {
			if ext.NewData != nil {
				inst.ext[ext.Name] = ext.NewData()
			}
		}
	}
	c.allocated++
	c.currentUsed++
	c.fire(EventAdded, inst)
	return inst
}

// Changed fires EventChanged to every extension, for callers that mutate
// an instance in place and want observers to react.
func (c *Class[T]) Changed(inst *Instance[T]) {
	c.fire(EventChanged, inst)
}

// Free fires EventRemoved, validates debug-mode guards (panicking on
// mismatch — corruption is never reported as an error, it aborts), and
// either discards the instance (debug mode) or retains it on the free
// list when the list is smaller than minFree or smaller than a tenth of
// the instances currently in use.
func (c *Class[T]) Free(inst *Instance[T]) {
	c.fire(EventRemoved, inst)
	c.currentUsed--

	if inst.debug {
		c.checkGuards(inst)
		return
	}
	if len(c.freeList) < c.minFree || len(c.freeList) < c.currentUsed/10 {
		c.freeList = append(c.freeList, inst)
	}
}

func (c *Class[T]) fire(ev Event, inst *Instance[T]) {
	for _, ext := range c.extensions {
		switch ev {
		case EventAdded:
			if ext.OnAdded != nil {
				ext.OnAdded(inst)
			}
		case EventChanged:
			if ext.OnChanged != nil {
				ext.OnChanged(inst)
			}
		case EventRemoved:
			if ext.OnRemoved != nil {
				ext.OnRemoved(inst)
			}
		}
	}
}

func (c *Class[T]) checkGuards(inst *Instance[T]) {
	if inst.guardPrefix != guardWord || inst.guardSuffix != guardWord {
		panic(fmt.Sprintf("class %q: guard corruption detected on free", c.name))
	}
}
