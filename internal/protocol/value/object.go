package value

import "sort"

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is an ordered string-keyed mapping. Set preserves first-insertion
// order; objects are small, lookups scan linearly.
type Object struct {
	members []Member
}

func NewObject() *Object {
	return &Object{}
}

// ObjectOf builds an object from members in the given order.
func ObjectOf(members ...Member) *Object {
	o := NewObject()
	for _, m := range members {
		o.Set(m.Key, m.Value)
	}
	return o
}

// Set inserts or replaces the member for key. Setting an absent value
// removes the member; absent members are never encoded.
func (o *Object) Set(key string, v Value) {
	if v.IsAbsent() {
		o.Delete(key)
		return
	}
	for i := range o.members {
		if o.members[i].Key == key {
			o.members[i].Value = v
			return
		}
	}
	o.members = append(o.members, Member{Key: key, Value: v})
}

func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Absent(), false
	}
	for i := range o.members {
		if o.members[i].Key == key {
			return o.members[i].Value, true
		}
	}
	return Absent(), false
}

func (o *Object) Delete(key string) {
	for i := range o.members {
		if o.members[i].Key == key {
			o.members = append(o.members[:i], o.members[i+1:]...)
			return
		}
	}
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.members)
}

// Members returns the pairs in insertion order. The slice is shared; callers
// must not mutate it.
func (o *Object) Members() []Member {
	if o == nil {
		return nil
	}
	return o.members
}

func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	for _, m := range o.Members() {
		keys = append(keys, m.Key)
	}
	return keys
}

// Equal compares objects by key set and per-key value, ignoring order.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for _, m := range o.Members() {
		got, ok := other.Get(m.Key)
		if !ok || !m.Value.Equal(got) {
			return false
		}
	}
	return true
}

func (o *Object) asMap() map[string]any {
	out := make(map[string]any, o.Len())
	for _, m := range o.Members() {
		out[m.Key] = m.Value.Interface()
	}
	return out
}

func (o *Object) sortMembers() {
	sort.Slice(o.members, func(i, j int) bool {
		return o.members[i].Key < o.members[j].Key
	})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
