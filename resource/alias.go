package resource

import "github.com/gogpu/framegraph/backend"

// aliasPool parks freed transient backend objects for reuse by later
// allocations with a compatible descriptor. Reuse is FIFO within a
// compatibility class, so the same declaration order always produces the
// same object reuse.
type aliasPool struct {
	objects map[backend.PoolKey][]backend.Object

	// keys preserves insertion order so Flush releases deterministically.
	keys []backend.PoolKey
}

func newAliasPool() *aliasPool {
	return &aliasPool{
		objects: make(map[backend.PoolKey][]backend.Object),
	}
}

// Get pops the oldest pooled object compatible with desc, if any.
func (p *aliasPool) Get(desc backend.Descriptor) (backend.Object, bool) {
	key := desc.PoolKey()
	list := p.objects[key]
	if len(list) == 0 {
		return nil, false
	}
	obj := list[0]
	p.objects[key] = list[1:]
	return obj, true
}

// Put parks an object for reuse.
func (p *aliasPool) Put(desc backend.Descriptor, obj backend.Object) {
	key := desc.PoolKey()
	if _, ok := p.objects[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.objects[key] = append(p.objects[key], obj)
}

// Flush releases every pooled object through release and empties the pool.
func (p *aliasPool) Flush(release func(backend.Object)) {
	for _, key := range p.keys {
		for _, obj := range p.objects[key] {
			release(obj)
		}
		delete(p.objects, key)
	}
	p.keys = p.keys[:0]
}

// Len returns the number of pooled objects.
func (p *aliasPool) Len() int {
	n := 0
	for _, list := range p.objects {
		n += len(list)
	}
	return n
}
