package dedup

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// KeyFunc computes a record's identity key.
//
// Implementations must be pure and deterministic, must not mutate the record,
// and must map a missing field to a null component rather than fail.
type KeyFunc interface {
	Name() string
	Key(o order.Order) Key
}

// Declarative is implemented by key functions that can be expressed as
// pipeline key fields, which lets stores group server-side.
type Declarative interface {
	KeyFields() []pipeline.KeyField
}

// Key is a computed identity key. Two records are duplicates under a key
// function exactly when their keys render to the same String.
type Key struct {
	Parts []pipeline.KeyPart `json:"parts"`
}

// String renders the key as space-separated name=value pairs. Values are
// quoted and null is rendered as ∅, so distinct keys never collide.
func (k Key) String() string {
	var b strings.Builder
	for i, p := range k.Parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		if p.Value == nil {
			b.WriteString("∅")
		} else {
			b.WriteString(strconv.Quote(*p.Value))
		}
	}
	return b.String()
}

// keyFromBucket adopts a backend-computed key.
func keyFromBucket(parts []pipeline.KeyPart) Key {
	return Key{Parts: parts}
}

// FieldKey is a key function made of pipeline key fields.
type FieldKey struct {
	name   string
	fields []pipeline.KeyField
}

// NewFieldKey builds a declarative key function from fields.
func NewFieldKey(name string, fields ...pipeline.KeyField) FieldKey {
	return FieldKey{name: name, fields: fields}
}

// Name implements KeyFunc.
func (k FieldKey) Name() string { return k.name }

// Key implements KeyFunc.
func (k FieldKey) Key(o order.Order) Key {
	parts := make([]pipeline.KeyPart, len(k.fields))
	for i, f := range k.fields {
		parts[i] = pipeline.KeyPart{Name: f.Name, Value: f.Apply(o)}
	}
	return Key{Parts: parts}
}

// KeyFields implements Declarative.
func (k FieldKey) KeyFields() []pipeline.KeyField {
	out := make([]pipeline.KeyField, len(k.fields))
	copy(out, k.fields)
	return out
}

var (
	// Strict identifies a business transaction: same order number, partner,
	// issue date and total. Catches exact re-imports.
	Strict = NewFieldKey("strict",
		pipeline.KeyField{Name: "order_number", Field: pipeline.FieldOrderNumber},
		pipeline.KeyField{Name: "partner", Field: pipeline.FieldPartner},
		pipeline.KeyField{Name: "issue_date", Field: pipeline.FieldIssuedAt},
		pipeline.KeyField{Name: "total_value", Field: pipeline.FieldTotal},
	)

	// Normalized matches order number plus case-folded branch code. Catches
	// case-inconsistent branch codes such as "Ss" vs "ss".
	Normalized = NewFieldKey("normalized",
		pipeline.KeyField{Name: "order_number", Field: pipeline.FieldOrderNumber},
		pipeline.KeyField{Name: "branch_normalized", Field: pipeline.FieldBranchCode, Transform: pipeline.TransformFold},
	)
)

var (
	registryMu sync.RWMutex
	registry   = map[string]KeyFunc{}
)

func init() {
	RegisterKey(Strict)
	RegisterKey(Normalized)
}

// RegisterKey makes a key function available by name. Registering a name
// twice replaces the earlier function.
func RegisterKey(k KeyFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[k.Name()] = k
}

// LookupKey returns the key function registered under name.
func LookupKey(name string) (KeyFunc, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	k, ok := registry[name]
	if !ok {
		return nil, invalidConfig("unknown key function %q (known: %s)", name, strings.Join(keyNamesLocked(), ", "))
	}
	return k, nil
}

// KeyNames lists registered key function names in lexical order.
func KeyNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return keyNamesLocked()
}

func keyNamesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ fmt.Stringer = Key{}
