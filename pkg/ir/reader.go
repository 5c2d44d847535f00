package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads the textual IR format pkg/ir/printer.go emits and builds a
// *Module. It is deliberately not a general-purpose assembler front end:
// it exists so tests and cmd/jitcc can read back fixtures without
// hand-building a Module through the Builder API.
//
// Print's output loses the destination type of a handful of instructions
// that it renders bare for readability. For alloca, load, getelementptr and
// the cast family Parse requires one type token more than Print emits, e.g.
// "%5 = zext i64 %3" rather than bare "%5 = zext %3". Call is read as
// "call T @callee(args)" and phi as "phi T [v, %pred], ...", which are not
// the forms Print writes for them. Every other instruction form accepts
// exactly what Print writes.
func Parse(name, src string) (*Module, error) {
	p := &parser{m: NewModule(name), structByName: map[string]*Type{}}
	lines := splitLines(src)

	if err := p.scanTopLevel(lines); err != nil {
		return nil, err
	}
	if err := p.parseBodies(lines); err != nil {
		return nil, err
	}
	return p.m, nil
}

type parseError struct {
	line int
	msg  string
}

func (e *parseError) Error() string { return fmt.Sprintf("line %d: %s", e.line, e.msg) }

func errAt(line int, format string, args ...interface{}) error {
	return &parseError{line: line, msg: fmt.Sprintf(format, args...)}
}

func splitLines(src string) []string {
	return strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
}

// --- tokens ---

type tokKind int

const (
	tokIdent tokKind = iota
	tokPercent
	tokAt
	tokNumber
	tokPunct
)

type token struct {
	kind tokKind
	text string
}

func scanLine(line string) ([]token, error) {
	var toks []token
	r := []rune(line)
	i := 0
	for i < len(r) {
		c := r[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == ';':
			return toks, nil // trailing comment: rest of line ignored
		case strings.ContainsRune(":,(){}[]*=", c):
			toks = append(toks, token{tokPunct, string(c)})
			i++
		case c == '%' || c == '@':
			j := i + 1
			for j < len(r) && isIdentRune(r[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("bare sigil %q", string(c))
			}
			kind := tokPercent
			if c == '@' {
				kind = tokAt
			}
			toks = append(toks, token{kind, string(r[i+1 : j])})
			i = j
		case isDigit(c) || (c == '-' && i+1 < len(r) && isDigit(r[i+1])):
			j := i + 1
			for j < len(r) && isNumRune(r[j]) {
				j++
			}
			toks = append(toks, token{tokNumber, string(r[i:j])})
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(r) && isIdentRune(r[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, string(r[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", string(c))
		}
	}
	return toks, nil
}

func isDigit(c rune) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c rune) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentRune(c rune) bool  { return isIdentStart(c) || isDigit(c) || c == '.' || c == '_' }
func isNumRune(c rune) bool {
	return isDigit(c) || c == '.' || c == 'x' || c == 'X' ||
		(c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == 'e' || c == 'E' || c == '+' || c == '-'
}

// --- parser state ---

type parser struct {
	m            *Module
	structByName map[string]*Type

	// per-function state, reset by startFunction
	fn        *Function
	vals      map[string]*Value // names/positions, shared namespace for args/instrs/blocks
	pendPhis  []pendingPhi
}

type pendingPhi struct {
	phi  *PhiInst
	ty   *Type
	toks []token // raw "[ val , label ] , [ val , label ] ..." tokens
	line int
}

type cursor struct {
	toks []token
	pos  int
	line int
}

func (c *cursor) done() bool { return c.pos >= len(c.toks) }
func (c *cursor) peek() (token, bool) {
	if c.done() {
		return token{}, false
	}
	return c.toks[c.pos], true
}
func (c *cursor) next() (token, error) {
	if c.done() {
		return token{}, errAt(c.line, "unexpected end of line")
	}
	t := c.toks[c.pos]
	c.pos++
	return t, nil
}
func (c *cursor) expectPunct(s string) error {
	t, err := c.next()
	if err != nil {
		return err
	}
	if t.kind != tokPunct || t.text != s {
		return errAt(c.line, "expected %q, got %q", s, t.text)
	}
	return nil
}
func (c *cursor) expectIdent(s string) error {
	t, err := c.next()
	if err != nil {
		return err
	}
	if t.kind != tokIdent || t.text != s {
		return errAt(c.line, "expected %q, got %q", s, t.text)
	}
	return nil
}

// --- pass 1: top-level signatures, so forward calls/globals resolve ---

func (p *parser) scanTopLevel(lines []string) error {
	for ln, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		if line == "" || line == "}" || strings.HasPrefix(line, " ") {
			continue
		}
		if !strings.HasPrefix(line, "declare") && !strings.HasPrefix(line, "define") {
			continue
		}
		toks, err := scanLine(line)
		if err != nil {
			return errAt(ln+1, "%v", err)
		}
		c := &cursor{toks: toks, line: ln + 1}
		kw, _ := c.next()
		kindTok, ok := c.peek()
		if !ok {
			return errAt(c.line, "truncated top-level declaration")
		}
		if kindTok.text == "global" || kindTok.text == "constant" {
			if err := p.declareGlobal(c, kw.text == "define"); err != nil {
				return err
			}
			continue
		}
		if err := p.declareFunction(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) declareGlobal(c *cursor, isDefine bool) error {
	kindTok, _ := c.next() // "global" | "constant"
	nameTok, err := c.next()
	if err != nil || nameTok.kind != tokAt {
		return errAt(c.line, "expected @name after %q", kindTok.text)
	}
	if err := c.expectPunct(":"); err != nil {
		return err
	}
	ty, err := p.parseType(c)
	if err != nil {
		return err
	}
	if p.m.findGlobal(nameTok.text) != nil {
		return nil // already declared (re-declaration tolerated)
	}
	g := p.m.AddGlobal(nameTok.text, ty, kindTok.text == "constant")
	if isDefine {
		if err := c.expectPunct("="); err != nil {
			return err
		}
		init, err := p.parseConstOfType(c, ty)
		if err != nil {
			return err
		}
		g.SetInitializer(init)
	}
	return nil
}

func (p *parser) declareFunction(c *cursor) error {
	ret, err := p.parseType(c)
	if err != nil {
		return err
	}
	nameTok, err := c.next()
	if err != nil || nameTok.kind != tokAt {
		return errAt(c.line, "expected @name in function header")
	}
	if err := c.expectPunct("("); err != nil {
		return err
	}
	var params []*Type
	for {
		t, ok := c.peek()
		if !ok {
			return errAt(c.line, "unterminated parameter list")
		}
		if t.kind == tokPunct && t.text == ")" {
			c.next()
			break
		}
		pt, err := p.parseType(c)
		if err != nil {
			return err
		}
		params = append(params, pt)
		if pn, ok := c.peek(); ok && pn.kind == tokPercent {
			c.next() // parameter name, not needed at declaration time
		}
		if n, ok := c.peek(); ok && n.kind == tokPunct && n.text == "," {
			c.next()
			continue
		}
	}
	if p.m.findFunction(nameTok.text) != nil {
		return nil
	}
	ft := p.m.Ctx.FunctionType(ret, params, false)
	p.m.AddFunction(nameTok.text, ft)
	return nil
}

func (m *Module) findGlobal(name string) *GlobalVariable {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (m *Module) findFunction(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// --- pass 2: function bodies ---

func (p *parser) parseBodies(lines []string) error {
	i := 0
	for i < len(lines) {
		raw := lines[i]
		line := strings.TrimRight(raw, " \t")
		if line == "" || strings.HasPrefix(line, " ") {
			i++
			continue
		}
		if strings.HasPrefix(line, "define") && !strings.Contains(line, "global") && !strings.Contains(line, "constant") {
			end, err := p.parseFunctionBody(lines, i)
			if err != nil {
				return err
			}
			i = end + 1
			continue
		}
		i++
	}
	return nil
}

// parseFunctionBody parses one "define ... {" ... "}" block starting at
// line index start, returning the index of its closing brace.
func (p *parser) parseFunctionBody(lines []string, start int) (int, error) {
	toks, err := scanLine(lines[start])
	if err != nil {
		return 0, errAt(start+1, "%v", err)
	}
	c := &cursor{toks: toks, line: start + 1}
	c.next() // "define"
	if _, err := p.parseType(c); err != nil {
		return 0, err
	}
	nameTok, err := c.next()
	if err != nil || nameTok.kind != tokAt {
		return 0, errAt(c.line, "expected @name in function definition")
	}
	fn := p.m.findFunction(nameTok.text)
	if fn == nil {
		return 0, errAt(c.line, "define of undeclared function @%s", nameTok.text)
	}
	if err := c.expectPunct("("); err != nil {
		return 0, err
	}
	p.startFunction(fn)
	argIdx := 0
	for {
		t, ok := c.peek()
		if !ok {
			return 0, errAt(c.line, "unterminated parameter list")
		}
		if t.kind == tokPunct && t.text == ")" {
			c.next()
			break
		}
		if _, err := p.parseType(c); err != nil {
			return 0, err
		}
		pn, err := c.next()
		if err != nil || pn.kind != tokPercent {
			return 0, errAt(c.line, "expected %%name for parameter")
		}
		if argIdx < len(fn.Args) {
			p.vals[pn.text] = &fn.Args[argIdx].Value
		}
		argIdx++
		if n, ok := c.peek(); ok && n.kind == tokPunct && n.text == "," {
			c.next()
		}
	}
	if err := c.expectPunct("{"); err != nil {
		return 0, err
	}

	// find the matching close brace and collect label lines in source order
	end := -1
	for j := start + 1; j < len(lines); j++ {
		l := strings.TrimSpace(lines[j])
		if l == "}" {
			end = j
			break
		}
	}
	if end == -1 {
		return 0, errAt(c.line, "unterminated function body")
	}

	for j := start + 1; j < end; j++ {
		l := strings.TrimRight(lines[j], " \t")
		if l == "" || strings.HasPrefix(l, " ") {
			continue
		}
		label := strings.TrimSuffix(strings.TrimSpace(l), ":")
		bb := fn.CreateBlock(label)
		p.vals[label] = &bb.Value
	}

	var cur *BasicBlock
	for j := start + 1; j < end; j++ {
		l := strings.TrimRight(lines[j], " \t")
		if l == "" {
			continue
		}
		if !strings.HasPrefix(l, " ") {
			label := strings.TrimSuffix(strings.TrimSpace(l), ":")
			cur = p.blockNamed(label)
			continue
		}
		if err := p.parseInstr(j+1, strings.TrimSpace(l), cur); err != nil {
			return 0, err
		}
	}

	if err := p.resolvePendingPhis(); err != nil {
		return 0, err
	}
	return end, nil
}

func (p *parser) startFunction(fn *Function) {
	p.fn = fn
	p.vals = map[string]*Value{}
	p.pendPhis = nil
}

func (p *parser) blockNamed(name string) *BasicBlock {
	v := p.vals[name]
	if v == nil {
		return nil
	}
	return blockOf(v)
}

func (p *parser) resolvePendingPhis() error {
	for _, pp := range p.pendPhis {
		c := &cursor{toks: pp.toks, line: pp.line}
		for {
			if c.done() {
				break
			}
			if err := c.expectPunct("["); err != nil {
				return err
			}
			valTok, err := c.next()
			if err != nil {
				return err
			}
			if err := c.expectPunct(","); err != nil {
				return err
			}
			labelTok, err := c.next()
			if err != nil || labelTok.kind != tokPercent {
				return errAt(pp.line, "expected %%label in phi incoming pair")
			}
			if err := c.expectPunct("]"); err != nil {
				return err
			}
			val, err := p.resolveTypedOperand(pp.line, valTok, pp.ty)
			if err != nil {
				return err
			}
			pred := p.blockNamed(labelTok.text)
			if pred == nil {
				return errAt(pp.line, "unknown predecessor label %%%s", labelTok.text)
			}
			pp.phi.AddIncoming(val, pred)
			if n, ok := c.peek(); ok && n.kind == tokPunct && n.text == "," {
				c.next()
				continue
			}
			break
		}
	}
	return nil
}

// --- instructions ---

func (p *parser) parseInstr(lineNo int, text string, cur *BasicBlock) error {
	toks, err := scanLine(text)
	if err != nil {
		return errAt(lineNo, "%v", err)
	}
	c := &cursor{toks: toks, line: lineNo}
	if cur == nil {
		return errAt(lineNo, "instruction outside any block")
	}
	bld := NewBuilder(cur)

	resultName := ""
	if len(toks) >= 2 && toks[0].kind == tokPercent && toks[1].kind == tokPunct && toks[1].text == "=" {
		resultName = toks[0].text
		c.pos = 2
	}

	opTok, err := c.next()
	if err != nil {
		return err
	}
	op, ok := opcodeByName(opTok.text)
	if !ok {
		return errAt(lineNo, "unknown opcode %q", opTok.text)
	}

	var result Instruction
	switch op {
	case OpRet:
		if c.done() {
			result = bld.RetVoid()
		} else {
			t, err := c.next()
			if err != nil {
				return err
			}
			var retTy *Type
			if p.fn.FuncType.Ret != nil {
				retTy = p.fn.FuncType.Ret
			}
			v, err := p.resolveTypedOperand(lineNo, t, retTy)
			if err != nil {
				return err
			}
			result = bld.Ret(v)
		}
	case OpBr:
		first, err := c.next()
		if err != nil {
			return err
		}
		if n, ok := c.peek(); ok && n.kind == tokPercent {
			trueTok, _ := c.next()
			falseTok, err := c.next()
			if err != nil {
				return err
			}
			cond, err := p.resolveTypedOperand(lineNo, first, p.m.Ctx.BoolType())
			if err != nil {
				return err
			}
			trueBB := p.blockNamed(trueTok.text)
			falseBB := p.blockNamed(falseTok.text)
			if trueBB == nil || falseBB == nil {
				return errAt(lineNo, "unknown branch target")
			}
			result = bld.CondBr(cond, trueBB, falseBB)
		} else {
			target := p.blockNamed(first.text)
			if target == nil {
				return errAt(lineNo, "unknown branch target %%%s", first.text)
			}
			result = bld.Br(target)
		}
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpAnd, OpOr, OpXor, OpShl, OpShr:
		lhs, rhs, err := p.parseBinaryOperands(lineNo, c, nil)
		if err != nil {
			return err
		}
		result = bld.Binary(op, lhs, rhs, resultName)
	case OpLe, OpGe, OpLt, OpGt, OpEq, OpNe:
		lhs, rhs, err := p.parseBinaryOperands(lineNo, c, nil)
		if err != nil {
			return err
		}
		result = bld.Cmp(op, lhs, rhs, p.m.Ctx.BoolType(), resultName)
	case OpTrunc, OpZext, OpSext, OpFPTrunc, OpFPExt, OpFPToInt, OpIntToFP, OpBitcast, OpPtrToInt, OpIntToPtr:
		destTy, err := p.parseType(c)
		if err != nil {
			return err
		}
		srcTok, err := c.next()
		if err != nil {
			return err
		}
		src, err := p.resolveValue(lineNo, srcTok)
		if err != nil {
			return err
		}
		result = bld.Cast(op, src, destTy, resultName)
	case OpAlloca:
		allocTy, err := p.parseType(c)
		if err != nil {
			return err
		}
		result = bld.Alloca(allocTy, resultName)
	case OpLoad:
		resTy, err := p.parseType(c)
		if err != nil {
			return err
		}
		addrTok, err := c.next()
		if err != nil {
			return err
		}
		addr, err := p.resolveValue(lineNo, addrTok)
		if err != nil {
			return err
		}
		result = bld.Load(resTy, addr, resultName)
	case OpStore:
		valTok, err := c.next()
		if err != nil {
			return err
		}
		addrTok, err := c.next()
		if err != nil {
			return err
		}
		addr, err := p.resolveValue(lineNo, addrTok)
		if err != nil {
			return err
		}
		var elemTy *Type
		if addr.Type() != nil && addr.Type().Kind == TypePointer {
			elemTy = addr.Type().Elem
		}
		val, err := p.resolveTypedOperand(lineNo, valTok, elemTy)
		if err != nil {
			return err
		}
		result = bld.Store(val, addr)
	case OpGetElementPtr:
		srcTy, err := p.parseType(c)
		if err != nil {
			return err
		}
		baseTok, err := c.next()
		if err != nil {
			return err
		}
		base, err := p.resolveValue(lineNo, baseTok)
		if err != nil {
			return err
		}
		var indices []*Value
		for !c.done() {
			idxTok, err := c.next()
			if err != nil {
				return err
			}
			idx, err := p.resolveTypedOperand(lineNo, idxTok, p.m.Ctx.I64Type())
			if err != nil {
				return err
			}
			indices = append(indices, idx)
		}
		resTy := p.m.Ctx.PointerType(gepResultElem(srcTy, len(indices)))
		result = bld.GEP(srcTy, base, indices, resTy, resultName)
	case OpCall:
		retTy, err := p.parseType(c)
		if err != nil {
			return err
		}
		calleeTok, err := c.next()
		if err != nil || calleeTok.kind != tokAt {
			return errAt(lineNo, "expected @callee in call")
		}
		callee := p.m.findFunction(calleeTok.text)
		if callee == nil {
			return errAt(lineNo, "call to undeclared function @%s", calleeTok.text)
		}
		if err := c.expectPunct("("); err != nil {
			return err
		}
		var args []*Value
		argIdx := 0
		for {
			t, ok := c.peek()
			if !ok {
				return errAt(lineNo, "unterminated call argument list")
			}
			if t.kind == tokPunct && t.text == ")" {
				c.next()
				break
			}
			at, err := c.next()
			if err != nil {
				return err
			}
			var pty *Type
			if argIdx < len(callee.FuncType.Params) {
				pty = callee.FuncType.Params[argIdx]
			}
			av, err := p.resolveTypedOperand(lineNo, at, pty)
			if err != nil {
				return err
			}
			args = append(args, av)
			argIdx++
			if n, ok := c.peek(); ok && n.kind == tokPunct && n.text == "," {
				c.next()
			}
		}
		var resTy *Type
		if retTy.Kind != TypeVoid {
			resTy = retTy
		}
		result = bld.Call(callee, args, resTy, resultName)
	case OpPhi:
		ty, err := p.parseType(c)
		if err != nil {
			return err
		}
		phi := bld.Phi(ty, resultName)
		p.pendPhis = append(p.pendPhis, pendingPhi{phi: phi, ty: ty, toks: append([]token(nil), c.toks[c.pos:]...), line: lineNo})
		result = phi
	default:
		return errAt(lineNo, "unsupported opcode %q", opTok.text)
	}

	if resultName != "" {
		p.vals[resultName] = result.AsValue()
	}
	return nil
}

func (p *parser) parseBinaryOperands(lineNo int, c *cursor, hint *Type) (*Value, *Value, error) {
	lt, err := c.next()
	if err != nil {
		return nil, nil, err
	}
	rt, err := c.next()
	if err != nil {
		return nil, nil, err
	}
	lv, lok := p.tryResolveValue(lt)
	rv, rok := p.tryResolveValue(rt)
	switch {
	case lok && rok:
		return lv, rv, nil
	case lok && !rok:
		rv, err := p.literalOfType(lineNo, rt, lv.Type())
		return lv, rv, err
	case !lok && rok:
		lv, err := p.literalOfType(lineNo, lt, rv.Type())
		return lv, rv, err
	default:
		ty := inferLiteralType(p.m.Ctx, lt, rt)
		lv, err := p.literalOfType(lineNo, lt, ty)
		if err != nil {
			return nil, nil, err
		}
		rv, err := p.literalOfType(lineNo, rt, ty)
		return lv, rv, err
	}
}

func inferLiteralType(ctx *Context, a, b token) *Type {
	if looksFloat(a.text) || looksFloat(b.text) {
		return ctx.F64Type()
	}
	if a.text == "true" || a.text == "false" || b.text == "true" || b.text == "false" {
		return ctx.BoolType()
	}
	return ctx.I64Type()
}

func looksFloat(s string) bool {
	return strings.ContainsAny(s, ".eE") && !strings.HasPrefix(s, "0x")
}

func gepResultElem(srcTy *Type, numIndices int) *Type {
	t := srcTy
	// first index walks the base pointer's own pointee (array-style stride);
	// subsequent indices walk nested array/struct members.
	for i := 1; i < numIndices; i++ {
		switch t.Kind {
		case TypeArray:
			t = t.Elem
		case TypeStruct:
			t = t.Elem // best effort when member type isn't resolvable positionally
		default:
			return t
		}
	}
	return t
}

// resolveValue resolves an operand token that must already name a
// known-typed value (a %value, %block or @global/@function reference).
func (p *parser) resolveValue(lineNo int, t token) (*Value, error) {
	v, ok := p.tryResolveValue(t)
	if !ok {
		return nil, errAt(lineNo, "undefined value %q", t.text)
	}
	return v, nil
}

func (p *parser) tryResolveValue(t token) (*Value, bool) {
	switch t.kind {
	case tokPercent:
		v, ok := p.vals[t.text]
		return v, ok
	case tokAt:
		if f := p.m.findFunction(t.text); f != nil {
			return f.AsValue(), true
		}
		if g := p.m.findGlobal(t.text); g != nil {
			return g.AsValue(), true
		}
		return nil, false
	default:
		return nil, false
	}
}

// resolveTypedOperand resolves a %value/@global reference directly, or
// builds a literal constant of ty for a bare literal token.
func (p *parser) resolveTypedOperand(lineNo int, t token, ty *Type) (*Value, error) {
	if v, ok := p.tryResolveValue(t); ok {
		return v, nil
	}
	return p.literalOfType(lineNo, t, ty)
}

func (p *parser) literalOfType(lineNo int, t token, ty *Type) (*Value, error) {
	if ty == nil {
		ty = inferLiteralType(p.m.Ctx, t, t)
	}
	c, err := p.parseScalarConst(lineNo, t, ty)
	if err != nil {
		return nil, err
	}
	return &c.Value, nil
}

// --- types ---

func (p *parser) parseType(c *cursor) (*Type, error) {
	t, err := c.next()
	if err != nil {
		return nil, err
	}
	var base *Type
	switch {
	case t.kind == tokIdent:
		base = primitiveTypeByName(p.m.Ctx, t.text)
		if base == nil {
			return nil, errAt(c.line, "unknown type %q", t.text)
		}
	case t.kind == tokPercent:
		base = p.structByName[t.text]
		if base == nil {
			base = p.m.Ctx.StructBegin(p.m.Ctx.NewStructID(), t.text)
			p.structByName[t.text] = base
		}
	case t.kind == tokPunct && t.text == "[":
		n, err := c.next()
		if err != nil || n.kind != tokNumber {
			return nil, errAt(c.line, "expected array length")
		}
		if err := c.expectIdent("x"); err != nil {
			return nil, err
		}
		elem, err := p.parseType(c)
		if err != nil {
			return nil, err
		}
		if err := c.expectPunct("]"); err != nil {
			return nil, err
		}
		length, _ := strconv.ParseUint(n.text, 10, 64)
		base = p.m.Ctx.ArrayType(elem, length)
	default:
		return nil, errAt(c.line, "expected a type, got %q", t.text)
	}
	for {
		n, ok := c.peek()
		if !ok || n.kind != tokPunct || n.text != "*" {
			break
		}
		c.next()
		base = p.m.Ctx.PointerType(base)
	}
	return base, nil
}

func primitiveTypeByName(ctx *Context, name string) *Type {
	switch name {
	case "void":
		return ctx.VoidType()
	case "bool":
		return ctx.BoolType()
	case "i8":
		return ctx.I8Type()
	case "i16":
		return ctx.I16Type()
	case "i32":
		return ctx.I32Type()
	case "i64":
		return ctx.I64Type()
	case "u8":
		return ctx.U8Type()
	case "u16":
		return ctx.U16Type()
	case "u32":
		return ctx.U32Type()
	case "u64":
		return ctx.U64Type()
	case "f32":
		return ctx.F32Type()
	case "f64":
		return ctx.F64Type()
	case "label":
		return ctx.LabelType()
	}
	return nil
}

func opcodeByName(name string) (Opcode, bool) {
	names := map[string]Opcode{
		"ret": OpRet, "br": OpBr, "add": OpAdd, "sub": OpSub, "mul": OpMul,
		"div": OpDiv, "rem": OpRem, "and": OpAnd, "or": OpOr, "xor": OpXor,
		"shl": OpShl, "shr": OpShr, "le": OpLe, "ge": OpGe, "lt": OpLt,
		"gt": OpGt, "eq": OpEq, "ne": OpNe, "trunc": OpTrunc, "zext": OpZext,
		"sext": OpSext, "fptrunc": OpFPTrunc, "fpext": OpFPExt,
		"fptoint": OpFPToInt, "inttofp": OpIntToFP, "bitcast": OpBitcast,
		"ptrtoint": OpPtrToInt, "inttoptr": OpIntToPtr, "alloca": OpAlloca,
		"load": OpLoad, "store": OpStore, "getelementptr": OpGetElementPtr,
		"call": OpCall, "phi": OpPhi,
	}
	op, ok := names[name]
	return op, ok
}

// --- constants ---

func (p *parser) parseConstOfType(c *cursor, ty *Type) (*Constant, error) {
	if ty.Kind == TypeArray || ty.Kind == TypeStruct {
		if err := c.expectPunct("{"); err != nil {
			return nil, err
		}
		var members []*Constant
		var memberTypes []*Type
		idx := 0
		for {
			n, ok := c.peek()
			if !ok {
				return nil, errAt(c.line, "unterminated aggregate constant")
			}
			if n.kind == tokPunct && n.text == "}" {
				c.next()
				break
			}
			var mty *Type
			if ty.Kind == TypeArray {
				mty = ty.Elem
			} else if idx < len(ty.Members) {
				mty = ty.Members[idx]
			}
			var mc *Constant
			var err error
			if mty != nil {
				mc, err = p.parseConstOfType(c, mty)
			} else {
				mtok, terr := c.next()
				if terr != nil {
					return nil, terr
				}
				mty = inferLiteralType(p.m.Ctx, mtok, mtok)
				mc, err = p.parseScalarConst(c.line, mtok, mty)
			}
			if err != nil {
				return nil, err
			}
			members = append(members, mc)
			memberTypes = append(memberTypes, mty)
			idx++
			if nn, ok := c.peek(); ok && nn.kind == tokPunct && nn.text == "," {
				c.next()
				continue
			}
		}
		if ty.Kind == TypeStruct && !ty.StructComplete() {
			ty.StructSetMembers(memberTypes, 0)
			ty.StructEnd()
		}
		return p.m.Ctx.ConstAggregate(ty, members), nil
	}
	if n, ok := c.peek(); ok && n.kind == tokAt {
		nameTok, _ := c.next()
		return p.m.Ctx.ConstGlobalPtr(ty, nameTok.text), nil
	}
	tok, err := c.next()
	if err != nil {
		return nil, err
	}
	return p.parseScalarConst(c.line, tok, ty)
}

func (p *parser) parseScalarConst(lineNo int, t token, ty *Type) (*Constant, error) {
	ctx := p.m.Ctx
	switch {
	case ty.Kind == TypeBool:
		switch t.text {
		case "true":
			return ctx.ConstBool(true), nil
		case "false":
			return ctx.ConstBool(false), nil
		}
		return nil, errAt(lineNo, "expected true/false, got %q", t.text)
	case ty.IsFloat():
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, errAt(lineNo, "invalid float literal %q", t.text)
		}
		if ty.Kind == TypeF32 {
			return ctx.ConstF32(ty, float32(f)), nil
		}
		return ctx.ConstF64(ty, f), nil
	case ty.Kind == TypePointer:
		u, err := strconv.ParseUint(t.text, 0, 64)
		if err != nil {
			return nil, errAt(lineNo, "invalid pointer literal %q", t.text)
		}
		return ctx.ConstPtr(ty, u), nil
	case ty.IsSigned():
		i, err := strconv.ParseInt(t.text, 0, 64)
		if err != nil {
			return nil, errAt(lineNo, "invalid integer literal %q", t.text)
		}
		return ctx.ConstInt(ty, i), nil
	case ty.IsInteger():
		u, err := strconv.ParseUint(t.text, 0, 64)
		if err != nil {
			return nil, errAt(lineNo, "invalid integer literal %q", t.text)
		}
		return ctx.ConstUint(ty, u), nil
	default:
		return nil, errAt(lineNo, "type %s has no scalar literal form", ty)
	}
}
