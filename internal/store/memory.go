package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps documents in process. Documents go through the same
// BSON encoding as MongoStore, so struct tags and decoding behave the same.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]bson.M
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]bson.M),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

type memoryCollection struct {
	store *MemoryStore
	name  string
}

// docs must be called with the store lock held.
func (c *memoryCollection) docs() map[string]bson.M {
	docs, ok := c.store.collections[c.name]
	if !ok {
		docs = make(map[string]bson.M)
		c.store.collections[c.name] = docs
	}
	return docs
}

func (c *memoryCollection) Get(_ context.Context, id string, out any) error {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	doc, ok := c.docs()[id]
	if !ok {
		return ErrNotFound
	}
	return decode(doc, out)
}

func (c *memoryCollection) GetMany(_ context.Context, ids []string, out any) error {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	docs := c.docs()
	seen := make(map[string]bool, len(ids))
	found := make([]bson.M, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if doc, ok := docs[id]; ok {
			found = append(found, doc)
		}
	}
	return decodeAll(found, out)
}

func (c *memoryCollection) Query(_ context.Context, q Query, out any) (int64, error) {
	if err := checkFilters(q.Filters); err != nil {
		return 0, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	matched := make([]bson.M, 0)
	for _, doc := range c.docs() {
		if matchesAll(doc, q.Filters) {
			matched = append(matched, doc)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if q.OrderBy != "" {
			cmp, _ := compareValues(matched[i][q.OrderBy], matched[j][q.OrderBy])
			if cmp != 0 {
				if q.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return fmt.Sprint(matched[i][IDField]) < fmt.Sprint(matched[j][IDField])
	})

	total := int64(len(matched))
	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return total, decodeAll(matched[start:end], out)
}

func (c *memoryCollection) Add(_ context.Context, doc any) error {
	m, id, err := encodeWithID(doc)
	if err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs := c.docs()
	if _, exists := docs[id]; exists {
		return fmt.Errorf("%s/%s: %w", c.name, id, ErrDuplicate)
	}
	docs[id] = m
	return nil
}

func (c *memoryCollection) AddMany(_ context.Context, batch []any) error {
	encoded := make(map[string]bson.M, len(batch))
	for _, doc := range batch {
		m, id, err := encodeWithID(doc)
		if err != nil {
			return err
		}
		if _, dup := encoded[id]; dup {
			return fmt.Errorf("%s/%s: %w", c.name, id, ErrDuplicate)
		}
		encoded[id] = m
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs := c.docs()
	for id := range encoded {
		if _, exists := docs[id]; exists {
			return fmt.Errorf("%s/%s: %w", c.name, id, ErrDuplicate)
		}
	}
	for id, m := range encoded {
		docs[id] = m
	}
	return nil
}

func (c *memoryCollection) Update(_ context.Context, id string, fields map[string]any) error {
	set, err := c.stampedFields(fields)
	if err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	doc, ok := c.docs()[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range set {
		doc[k] = v
	}
	return nil
}

func (c *memoryCollection) UpdateMany(_ context.Context, filters []Filter, fields map[string]any) (int64, error) {
	if err := checkFilters(filters); err != nil {
		return 0, err
	}
	set, err := c.stampedFields(fields)
	if err != nil {
		return 0, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	var n int64
	for _, doc := range c.docs() {
		if !matchesAll(doc, filters) {
			continue
		}
		for k, v := range set {
			doc[k] = v
		}
		n++
	}
	return n, nil
}

func (c *memoryCollection) Delete(_ context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs := c.docs()
	if _, ok := docs[id]; !ok {
		return ErrNotFound
	}
	delete(docs, id)
	return nil
}

func (c *memoryCollection) stampedFields(fields map[string]any) (bson.M, error) {
	set := make(bson.M, len(fields)+1)
	for k, v := range fields {
		set[k] = v
	}
	set["updatedAt"] = c.store.now()
	return encode(set)
}

func encode(doc any) (bson.M, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return m, nil
}

func encodeWithID(doc any) (bson.M, string, error) {
	m, err := encode(doc)
	if err != nil {
		return nil, "", err
	}
	id, _ := m[IDField].(string)
	if id == "" {
		return nil, "", fmt.Errorf("document has no %s", IDField)
	}
	return m, id, nil
}

func decode(doc bson.M, out any) error {
	data, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return bson.Unmarshal(data, out)
}

func decodeAll(docs []bson.M, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("store: out must be a pointer to a slice, got %T", out)
	}
	slice := rv.Elem()
	elemType := slice.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	base := elemType
	if isPtr {
		base = elemType.Elem()
	}

	result := reflect.MakeSlice(slice.Type(), 0, len(docs))
	for _, doc := range docs {
		item := reflect.New(base)
		if err := decode(doc, item.Interface()); err != nil {
			return err
		}
		if isPtr {
			result = reflect.Append(result, item)
		} else {
			result = reflect.Append(result, item.Elem())
		}
	}
	slice.Set(result)
	return nil
}

func checkFilters(filters []Filter) error {
	for _, f := range filters {
		switch f.Op {
		case Eq, Ne, Lt, Lte, Gt, Gte, In, ArrayContains, Contains:
		default:
			return fmt.Errorf("store: unsupported operator %q on %s", f.Op, f.Field)
		}
	}
	return nil
}

func matchesAll(doc bson.M, filters []Filter) bool {
	for _, f := range filters {
		if !matches(doc[f.Field], f) {
			return false
		}
	}
	return true
}

func matches(v any, f Filter) bool {
	switch f.Op {
	case Eq:
		return equalValues(v, f.Value)
	case Ne:
		return !equalValues(v, f.Value)
	case Lt, Lte, Gt, Gte:
		cmp, ok := compareValues(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case Lt:
			return cmp < 0
		case Lte:
			return cmp <= 0
		case Gt:
			return cmp > 0
		default:
			return cmp >= 0
		}
	case In:
		rv := reflect.ValueOf(f.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if equalValues(v, rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	case ArrayContains:
		switch arr := v.(type) {
		case primitive.A:
			for _, el := range arr {
				if equalValues(el, f.Value) {
					return true
				}
			}
			return false
		case []any:
			for _, el := range arr {
				if equalValues(el, f.Value) {
					return true
				}
			}
			return false
		default:
			return equalValues(v, f.Value)
		}
	case Contains:
		s, ok := v.(string)
		needle, ok2 := f.Value.(string)
		if !ok || !ok2 {
			return false
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	}
	return false
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC().Truncate(time.Millisecond)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Truncate(time.Millisecond)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	}
	return v
}

// compareValues orders numbers, strings, times and bools. ok is false when
// the two values are not comparable.
func compareValues(a, b any) (int, bool) {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case x.Before(y):
			return -1, true
		case x.After(y):
			return 1, true
		}
		return 0, true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}
