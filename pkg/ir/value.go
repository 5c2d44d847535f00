package ir

// ValueKind discriminates the closed set of Value subkinds.
type ValueKind int

const (
	ValueType ValueKind = iota
	ValueConstant
	ValueArgument
	ValueInstruction
	ValueBasicBlock
	ValueFunction
	ValueGlobalVariable
)

// ValueFlags are a small bitset of per-value annotations.
type ValueFlags uint32

const (
	FlagNone ValueFlags = 0
	// FlagPointsToGlobal marks a pointer constant whose payload names a
	// GlobalValue, so printers emit the symbol rather than a raw address.
	FlagPointsToGlobal ValueFlags = 1 << iota
)

// Value is the root abstraction every IR entity embeds. Every value owns a
// doubly-linked use-list naming each User that references it; destroying a
// value requires that list be empty (enforced by RAUW before deletion).
type Value struct {
	ID    int
	Ty    *Type
	Kind  ValueKind
	Name  string
	Flags ValueFlags

	// Owner is the concrete type (Constant / GlobalVariable / Function /
	// Argument / BasicBlock / Instruction) this Value is embedded in, set
	// once at construction so that a *Value recovered from a Use can be
	// downcast back to its concrete owner.
	Owner interface{}

	usesHead *Use
	usesTail *Use
}

// Type returns the value's type.
func (v *Value) Type() *Type { return v.Ty }

// HasName reports whether the value was given an explicit name (as opposed
// to being printed via an auto-numbered positional identifier).
func (v *Value) HasName() bool { return v.Name != "" }

// Uses iterates v's use-list in insertion order.
func (v *Value) Uses() []*Use {
	var out []*Use
	for u := v.usesHead; u != nil; u = u.next {
		out = append(out, u)
	}
	return out
}

// UseEmpty reports whether no user currently references v.
func (v *Value) UseEmpty() bool { return v.usesHead == nil }

// NumUses returns the number of users referencing v.
func (v *Value) NumUses() int {
	n := 0
	for u := v.usesHead; u != nil; u = u.next {
		n++
	}
	return n
}

func (v *Value) linkUse(u *Use) {
	u.value = v
	u.prev = v.usesTail
	u.next = nil
	if v.usesTail != nil {
		v.usesTail.next = u
	} else {
		v.usesHead = u
	}
	v.usesTail = u
}

func (v *Value) unlinkUse(u *Use) {
	if u.prev != nil {
		u.prev.next = u.next
	} else {
		v.usesHead = u.next
	}
	if u.next != nil {
		u.next.prev = u.prev
	} else {
		v.usesTail = u.prev
	}
	u.prev, u.next, u.value = nil, nil, nil
}

// Use is a directed edge from a User to a Value, linked into the value's
// use-list. Creating a use registers it; destroying a use unlinks it;
// retargeting a use atomically unlinks from the old value and links into
// the new one (see SetValue).
type Use struct {
	user User
	value *Value
	prev, next *Use
}

// NewUse creates and links a use from user onto value.
func NewUse(user User, value *Value) *Use {
	u := &Use{user: user}
	if value != nil {
		value.linkUse(u)
	}
	return u
}

// Value returns the value this use currently targets.
func (u *Use) Value() *Value { return u.value }

// User returns the user that owns this use.
func (u *Use) User() User { return u.user }

// SetValue retargets the use to a new value, unlinking from the old one
// first. A nil newValue simply detaches the use.
func (u *Use) SetValue(newValue *Value) {
	if u.value == newValue {
		return
	}
	if u.value != nil {
		u.value.unlinkUse(u)
	}
	if newValue != nil {
		newValue.linkUse(u)
	}
}

// Kill detaches the use from its value without relinking it anywhere.
func (u *Use) Kill() { u.SetValue(nil) }

// User is a value that references others through an ordered operand list
// of Use records. Subkinds: Constant, GlobalValue (Function /
// GlobalVariable), Instruction.
type User interface {
	AsValue() *Value
	Operands() []*Use
}

// ReplaceAllUsesWith redirects every user of oldV to newV. Replacing a
// basic-block value with a non-block value panics; BrInst.SetSuccessor
// repoints a branch target instead.
func ReplaceAllUsesWith(oldV, newV *Value) {
	if oldV == newV {
		return
	}
	for u := oldV.usesHead; u != nil; {
		next := u.next
		if oldV.Kind == ValueBasicBlock && newV.Kind != ValueBasicBlock {
			panic("ir: RAUW of a basic-block value to a non-block value is unsupported")
		}
		u.SetValue(newV)
		u = next
	}
}
