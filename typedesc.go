package mheap

import "github.com/bnclabs/mheap/api"

// Vtable behavior table for a managed type, nil entries are inherited
// from the prototype chain.
type Vtable struct {
	// Markobjects mark references held by the object that are not
	// listed in Typedesc.Refs, for example references packed in
	// variable length tails.
	Markobjects func(mm *MemoryManager, ref api.Ref, ms *Markstack)

	// Destroy is called exactly once when the object is reclaimed.
	Destroy func(mm *MemoryManager, ref api.Ref)
}

// Typedesc describe a managed type.
type Typedesc struct {
	Name string
	// Size of an instance in bytes, header included.
	Size int64
	// Refs offset of every reference field, from start of the object.
	Refs      []int64
	Vtable    *Vtable
	Prototype *Typedesc
}

// Isa return true if desc is other or other is in its prototype chain.
func (desc *Typedesc) Isa(other *Typedesc) bool {
	for d := desc; d != nil; d = d.Prototype {
		if d == other {
			return true
		}
	}
	return false
}

func (desc *Typedesc) String() string {
	if desc == nil {
		return "<raw>"
	}
	return desc.Name
}

// Managed is implemented by host types bound to a managed object.
type Managed interface {
	// Typedesc return the descriptor for objects of this type.
	Typedesc() *Typedesc
	// Bind is called once the object is allocated.
	Bind(mm *MemoryManager, ref api.Ref)
}

// typeinfo flattened view of a registered descriptor.
type typeinfo struct {
	desc        *Typedesc
	refs        []int64
	markobjects func(mm *MemoryManager, ref api.Ref, ms *Markstack)
	destroy     func(mm *MemoryManager, ref api.Ref)
}

// register descriptor, along with its prototypes, and return its type
// id. Type id 0 is reserved for raw objects without references.
func (mm *MemoryManager) register(desc *Typedesc) uint32 {
	if desc == nil {
		return 0
	} else if id, ok := mm.typeids[desc]; ok {
		return id
	}

	info := &typeinfo{desc: desc}
	seen := map[int64]bool{}
	depth := 0
	for d := desc; d != nil; d = d.Prototype {
		if depth++; depth > 1024 {
			panicerr("type %v: prototype chain too deep or cyclic", desc)
		}
		for _, off := range d.Refs {
			if off < Headersize || off%8 != 0 {
				panicerr("type %v: invalid reference offset %v", d, off)
			} else if desc.Size > 0 && off+8 > desc.Size {
				panicerr("type %v: reference offset %v beyond size %v", d, off, desc.Size)
			}
			if !seen[off] {
				seen[off] = true
				info.refs = append(info.refs, off)
			}
		}
		if d.Vtable != nil {
			if info.markobjects == nil {
				info.markobjects = d.Vtable.Markobjects
			}
			if info.destroy == nil {
				info.destroy = d.Vtable.Destroy
			}
		}
	}
	if desc.Prototype != nil {
		mm.register(desc.Prototype)
	}

	id := uint32(len(mm.types))
	mm.types = append(mm.types, info)
	mm.typeids[desc] = id
	debugf("%v registered type %q as %v\n", mm.logprefix, desc.Name, id)
	return id
}

func (mm *MemoryManager) typeinfo(ref api.Ref) *typeinfo {
	id := mm.typeid(ref)
	if int64(id) >= int64(len(mm.types)) {
		panicerr("object %v: unknown type id %v", ref, id)
	}
	return mm.types[id]
}
