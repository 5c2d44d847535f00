package mir

// FrameInfo describes a function's activation record under the Windows x64
// calling convention: a frame-pointer-based layout with a
// fixed 32-byte shadow space the caller reserves for the callee to spill
// its first four register arguments, 16-byte stack alignment at every call
// site, and callee-saved integer registers spilled immediately after the
// prologue's push rbp; mov rbp, rsp.
//
// This follows the usual FP-relative frame layout shape, adapted to the
// x86-64 Windows ABI's shadow-space convention in place of a
// paired-register save area.
type FrameInfo struct {
	Objects        []*StackSlot
	CalleeSaved    []PReg
	ShadowSpace    int64 // always >= 32 when the function makes any call
	OutgoingMax    int64 // largest argument area a call site in this function needs beyond shadow space
	localsSize     int64
	frameSize      int64
	finalized      bool
}

// WindowsShadowSpace is the fixed caller-reserved scratch area beneath the
// return address that a callee may use to spill RCX/RDX/R8/R9.
const WindowsShadowSpace = 32

// StackAlignment is the required alignment of RSP at a call instruction.
const StackAlignment = 16

// NewFrameInfo returns an empty frame with the mandatory shadow space
// already reserved.
func NewFrameInfo() *FrameInfo {
	return &FrameInfo{ShadowSpace: WindowsShadowSpace}
}

// AllocSlot reserves a new local stack slot of the given size/alignment
// and returns it; its Offset is not meaningful until Finalize runs.
func (fr *FrameInfo) AllocSlot(size, align int64) *StackSlot {
	s := &StackSlot{ID: len(fr.Objects), Size: size, Align: align}
	fr.Objects = append(fr.Objects, s)
	return s
}

// NoteOutgoingArgs records that a call site in this function passes n
// bytes of stack-passed arguments beyond the first four register slots,
// so Finalize can reserve enough space below the locals for it.
func (fr *FrameInfo) NoteOutgoingArgs(n int64) {
	if n > fr.OutgoingMax {
		fr.OutgoingMax = n
	}
}

// Finalize assigns every stack slot a concrete, aligned offset from RBP
// and computes the total frame size to subtract from RSP in the prologue.
// Layout (low to high addresses, RBP-relative):
//
//	[RBP-frameSize ... )       shadow space, then outgoing-argument area (if any)
//	[... ]                     locals, each at a negative RBP offset
//	[RBP-calleeSaveBytes..RBP) spilled callee-saved registers
//	[RBP]                      saved old RBP
//	[RBP+8]                    return address
//	[RBP+16 ...]               incoming stack-passed arguments (5th+)
func (fr *FrameInfo) Finalize() {
	if fr.finalized {
		return
	}
	calleeSaveBytes := int64(len(fr.CalleeSaved)) * 8

	offset := calleeSaveBytes
	for _, s := range fr.Objects {
		offset = alignUp(offset, s.Align)
		offset += s.Size
		s.Offset = -offset
		s.Placed = true
	}
	fr.localsSize = offset - calleeSaveBytes

	total := calleeSaveBytes + fr.localsSize + fr.ShadowSpace + fr.OutgoingMax
	fr.finalized = true
	fr.frameSize = alignUp(total, StackAlignment)
}

// FrameSize returns the RSP decrement the prologue performs, valid only
// after Finalize.
func (fr *FrameInfo) FrameSize() int64 { return fr.frameSize }

func alignUp(v, align int64) int64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
