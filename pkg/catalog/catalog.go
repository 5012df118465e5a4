// Package catalog holds the precedence-ordered, name-keyed collections that
// agents and hooks are resolved into. Sources come in two tiers: the bundled
// base library and the user override library. An override entry with the same
// name as a base entry replaces it wholesale.
package catalog

// Tier identifies which source layer a resource was loaded from
type Tier string

// Tier constants, lowest precedence first
const (
	TierBase     Tier = "base"
	TierOverride Tier = "override"
)

// Tiers returns all tiers in merge order (lowest precedence first)
func Tiers() []Tier {
	return []Tier{TierBase, TierOverride}
}

// SourceItem is a candidate resource entry discovered on disk
type SourceItem struct {
	Name string
	Path string
	Tier Tier
}

// Ordered is an insertion-ordered map with last-write-wins semantics.
// Re-inserting an existing name replaces the value and moves the name to the
// end, so iteration reflects the position of the latest insertion.
type Ordered[T any] struct {
	names []string
	items map[string]T
}

// NewOrdered creates an empty ordered catalog
func NewOrdered[T any]() *Ordered[T] {
	return &Ordered[T]{items: make(map[string]T)}
}

// Put inserts or replaces the value stored under name
func (o *Ordered[T]) Put(name string, item T) {
	if _, exists := o.items[name]; exists {
		o.remove(name)
	}
	o.names = append(o.names, name)
	o.items[name] = item
}

// Get returns the value stored under name
func (o *Ordered[T]) Get(name string) (T, bool) {
	item, ok := o.items[name]
	return item, ok
}

// Delete removes name from the catalog, reporting whether it was present
func (o *Ordered[T]) Delete(name string) bool {
	if _, exists := o.items[name]; !exists {
		return false
	}
	o.remove(name)
	delete(o.items, name)
	return true
}

// Len returns the number of entries
func (o *Ordered[T]) Len() int {
	return len(o.names)
}

// Names returns the entry names in iteration order
func (o *Ordered[T]) Names() []string {
	names := make([]string, len(o.names))
	copy(names, o.names)
	return names
}

// Values returns the entries in iteration order
func (o *Ordered[T]) Values() []T {
	values := make([]T, 0, len(o.names))
	for _, name := range o.names {
		values = append(values, o.items[name])
	}
	return values
}

func (o *Ordered[T]) remove(name string) {
	for i, n := range o.names {
		if n == name {
			o.names = append(o.names[:i], o.names[i+1:]...)
			return
		}
	}
}
