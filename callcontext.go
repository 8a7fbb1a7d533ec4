package mheap

import "github.com/bnclabs/mheap/api"

// Offsets of reference fields in a call context record.
const (
	ccOuter     = Headersize + 0*8
	ccFunction  = Headersize + 1*8
	ccThis      = Headersize + 2*8
	ccArguments = Headersize + 3*8
	ccLocals    = Headersize + 4*8
)

// Callcontextsize size of a call context record, header included.
const Callcontextsize = Headersize + 5*8

// Callcontextdesc descriptor for call contexts allocated by
// AllocSimpleCallContext.
var Callcontextdesc = &Typedesc{
	Name: "CallContext",
	Size: Callcontextsize,
	Refs: []int64{ccOuter, ccFunction, ccThis, ccArguments, ccLocals},
}

// AllocSimpleCallContext allocate a call context on top of the context
// stack. Contexts shall be freed in reverse order of allocation.
func (mm *MemoryManager) AllocSimpleCallContext() api.Ref {
	mm.checkreleased()
	ref := mm.stack.Allocate()
	mm.writeheader(ref, mm.register(Callcontextdesc), Callcontextsize)
	return ref
}

// FreeSimpleCallContext free the call context on top of the context
// stack, freeing any other context panics.
func (mm *MemoryManager) FreeSimpleCallContext(ctx api.Ref) {
	mm.checkreleased()
	if top := mm.stack.Top(); top != ctx {
		panicerr("%v call context %v freed out of order, top is %v", mm.logprefix, ctx, top)
	}
	mm.stack.Free()
}

// Callcontext view over a call context record.
type Callcontext struct {
	mm  *MemoryManager
	ref api.Ref
}

// Callcontext return a view over call context `ref`.
func (mm *MemoryManager) Callcontext(ref api.Ref) Callcontext {
	if desc := mm.Typeof(ref); desc != Callcontextdesc {
		panicerr("%v object %v is %v, not a call context", mm.logprefix, ref, desc)
	}
	return Callcontext{mm: mm, ref: ref}
}

// Ref return reference to the context record.
func (cc Callcontext) Ref() api.Ref { return cc.ref }

// Outer return enclosing context.
func (cc Callcontext) Outer() api.Ref { return cc.mm.Loadref(cc.ref, ccOuter) }

// SetOuter set enclosing context.
func (cc Callcontext) SetOuter(ref api.Ref) { cc.mm.Storeref(cc.ref, ccOuter, ref) }

// Function return the function object executing in this context.
func (cc Callcontext) Function() api.Ref { return cc.mm.Loadref(cc.ref, ccFunction) }

// SetFunction set the function object executing in this context.
func (cc Callcontext) SetFunction(ref api.Ref) { cc.mm.Storeref(cc.ref, ccFunction, ref) }

// This return the receiver.
func (cc Callcontext) This() api.Ref { return cc.mm.Loadref(cc.ref, ccThis) }

// SetThis set the receiver.
func (cc Callcontext) SetThis(ref api.Ref) { cc.mm.Storeref(cc.ref, ccThis, ref) }

// Arguments return the arguments object.
func (cc Callcontext) Arguments() api.Ref { return cc.mm.Loadref(cc.ref, ccArguments) }

// SetArguments set the arguments object.
func (cc Callcontext) SetArguments(ref api.Ref) { cc.mm.Storeref(cc.ref, ccArguments, ref) }

// Locals return the locals object.
func (cc Callcontext) Locals() api.Ref { return cc.mm.Loadref(cc.ref, ccLocals) }

// SetLocals set the locals object.
func (cc Callcontext) SetLocals(ref api.Ref) { cc.mm.Storeref(cc.ref, ccLocals, ref) }
