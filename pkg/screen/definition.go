package screen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-drift/screens/pkg/cache"
)

// Function is a screen's construction callback. It adds widgets through b,
// reading its variables from scope.
type Function func(b *Builder, scope *Scope) error

// Compiled is a definition's precompiled representation. Definitions with
// one keep persistent caches.
type Compiled interface {
	// Prepare builds the representation. It may read sibling definitions.
	Prepare() error
	// Unprepare releases the representation.
	Unprepare()
	// CopyOnChange is told that the cached state under root may be about to
	// change, before a hide transition clones the instance.
	CopyOnChange(root cache.Persistent)
}

// ConstReporter is implemented by compiled representations that can list
// which names they treat as constant.
type ConstReporter interface {
	ConstNames() (consts, nonConsts []string)
}

// Predictability says whether a definition may be predicted.
type Predictability int

const (
	// PredictDefault defers to the directory configuration.
	PredictDefault Predictability = iota
	// PredictAlways allows prediction.
	PredictAlways
	// PredictNever disallows prediction.
	PredictNever
)

// Definition is the static description of a screen. It is copied on
// registration and never mutated afterwards.
type Definition struct {
	// Name is the tokenized screen name; Name[0] is the registry key.
	Name []string
	// Variant selects among definitions sharing Name[0]. Empty is the
	// no-variant slot.
	Variant string
	// Function builds the widget tree.
	Function Function
	// Compiled is the optional precompiled representation.
	Compiled Compiled
	// Modal is an expression; a true result blocks input to lower layers.
	Modal string
	// ZOrder is an expression giving the stacking order on the layer.
	ZOrder string
	// Tag is the replacement tag. Defaults to Name[0].
	Tag string
	// Predict controls whether the screen may be predicted.
	Predict Predictability
	// Parameters is true when the screen takes positional and keyword
	// arguments through _args and _kwargs instead of a flat scope.
	Parameters bool

	predictable bool
}

// SupportsCache reports whether the definition keeps persistent caches.
func (d *Definition) SupportsCache() bool {
	return d.Compiled != nil
}

// CacheLabel names the definition in metrics.
func (d *Definition) CacheLabel() string {
	return strings.Join(d.Name, " ")
}

// Predictable reports whether the definition may be predicted.
func (d *Definition) Predictable() bool {
	return d.predictable
}

func (d *Definition) String() string {
	if d.Variant != "" {
		return fmt.Sprintf("%s (%s)", strings.Join(d.Name, " "), d.Variant)
	}
	return strings.Join(d.Name, " ")
}

type definitionKey struct {
	root    string
	variant string
}

// Registry maps (name root, variant) to definitions. It is written during
// load and read afterwards.
type Registry struct {
	variants       []string
	predictDefault bool
	defs           map[definitionKey]*Definition
	order          []definitionKey
}

// NewRegistry creates a registry resolving variants in the given priority
// order. predictDefault applies to definitions registered with PredictDefault.
func NewRegistry(variants []string, predictDefault bool) *Registry {
	if len(variants) == 0 {
		variants = []string{""}
	}
	return &Registry{
		variants:       slices.Clone(variants),
		predictDefault: predictDefault,
		defs:           make(map[definitionKey]*Definition),
	}
}

// Variants returns the variant priority list.
func (r *Registry) Variants() []string {
	return slices.Clone(r.variants)
}

// SetVariants replaces the variant priority list.
func (r *Registry) SetVariants(variants []string) {
	if len(variants) == 0 {
		variants = []string{""}
	}
	r.variants = slices.Clone(variants)
}

// Register stores a copy of def, replacing any definition with the same
// name root and variant, and returns the stored copy.
func (r *Registry) Register(def Definition) (*Definition, error) {
	if len(def.Name) == 1 {
		def.Name = strings.Fields(def.Name[0])
	}
	if len(def.Name) == 0 {
		return nil, fmt.Errorf("screen definition has no name")
	}
	if def.Function == nil {
		return nil, fmt.Errorf("screen %s has no function", strings.Join(def.Name, " "))
	}
	def.Name = slices.Clone(def.Name)
	if strings.TrimSpace(def.Modal) == "" {
		def.Modal = "False"
	}
	if strings.TrimSpace(def.ZOrder) == "" {
		def.ZOrder = "0"
	}
	if def.Tag == "" {
		def.Tag = def.Name[0]
	}
	switch def.Predict {
	case PredictAlways:
		def.predictable = true
	case PredictNever:
		def.predictable = false
	default:
		def.predictable = r.predictDefault
	}

	stored := &def
	key := definitionKey{root: def.Name[0], variant: def.Variant}
	if _, ok := r.defs[key]; !ok {
		r.order = append(r.order, key)
	}
	r.defs[key] = stored
	return stored, nil
}

// Resolve returns the definition for name under the first variant, in
// priority order, that has one. It returns nil if none match.
func (r *Registry) Resolve(name []string) *Definition {
	if len(name) == 0 {
		return nil
	}
	for _, v := range r.variants {
		if d, ok := r.defs[definitionKey{root: name[0], variant: v}]; ok {
			return d
		}
	}
	return nil
}

// Exists reports whether a non-empty name resolves.
func (r *Registry) Exists(name []string) bool {
	return len(name) > 0 && r.Resolve(name) != nil
}

// All returns every registered definition in first-registration order.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.defs[k])
	}
	return out
}
