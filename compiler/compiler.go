// Package compiler implements Crow's single-pass compiler: a Pratt parser
// that walks the token stream once, resolving lexical scope and emitting
// bytecode directly into a chunk.Chunk as it goes -- there is no separate
// AST stage. The compiler threads its compilation context (the chunk being
// built, string interner, parser state) through an explicit struct rather
// than a process-wide pointer, so nothing here is global mutable state.
package compiler

import (
	"fmt"
	"strconv"

	"crowbc/chunk"
	"crowbc/object"
	"crowbc/scanner"
	"crowbc/token"
	"crowbc/value"
)

// maxLocals bounds how many local variables a single function body (here:
// the whole program, since this dialect has no functions) may declare at
// once. It mirrors the 256-slot fixed stack the VM runs on.
const maxLocals = 256

// Interner is the VM's string-interning entry point. The compiler consults
// it for every string constant so that a compile-time string literal and a
// runtime-concatenated string with the same bytes end up as the same
// *object.Object -- the interning invariant must hold across every string
// creation path, not just the VM's own.
type Interner interface {
	InternString(chars string) *object.Object
}

// Precedence orders Crow's binary operators from loosest- to
// tightest-binding; parsePrecedence climbs this ladder.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecBitOr
	PrecBitXor
	PrecBitAnd
	PrecEquality
	PrecComparison
	PrecShift
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules [int(token.EOF) + 1]parseRule

func init() {
	rules[token.LPAREN] = parseRule{prefix: (*Compiler).grouping}
	rules[token.MINUS] = parseRule{prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PrecTerm}
	rules[token.PLUS] = parseRule{infix: (*Compiler).binary, precedence: PrecTerm}
	rules[token.SLASH] = parseRule{infix: (*Compiler).binary, precedence: PrecFactor}
	rules[token.STAR] = parseRule{infix: (*Compiler).binary, precedence: PrecFactor}
	rules[token.BANG] = parseRule{prefix: (*Compiler).unary}
	rules[token.TILDE] = parseRule{prefix: (*Compiler).unary}
	rules[token.BANG_EQUAL] = parseRule{infix: (*Compiler).binary, precedence: PrecEquality}
	rules[token.EQUAL_EQUAL] = parseRule{infix: (*Compiler).binary, precedence: PrecEquality}
	rules[token.GREATER] = parseRule{infix: (*Compiler).binary, precedence: PrecComparison}
	rules[token.GREATER_EQUAL] = parseRule{infix: (*Compiler).binary, precedence: PrecComparison}
	rules[token.LESS] = parseRule{infix: (*Compiler).binary, precedence: PrecComparison}
	rules[token.LESS_EQUAL] = parseRule{infix: (*Compiler).binary, precedence: PrecComparison}
	rules[token.LESS_LESS] = parseRule{infix: (*Compiler).binary, precedence: PrecShift}
	rules[token.GREATER_GREATER] = parseRule{infix: (*Compiler).binary, precedence: PrecShift}
	rules[token.CARET] = parseRule{infix: (*Compiler).binary, precedence: PrecBitXor}
	rules[token.PIPE] = parseRule{infix: (*Compiler).binary, precedence: PrecBitOr}
	rules[token.AMP] = parseRule{infix: (*Compiler).binary, precedence: PrecBitAnd}
	rules[token.IDENTIFIER] = parseRule{prefix: (*Compiler).variable}
	rules[token.STRING] = parseRule{prefix: (*Compiler).string}
	rules[token.NUMBER] = parseRule{prefix: (*Compiler).number}
	rules[token.CHAR] = parseRule{prefix: (*Compiler).char}
	rules[token.AND] = parseRule{infix: (*Compiler).and, precedence: PrecAnd}
	rules[token.OR] = parseRule{infix: (*Compiler).or, precedence: PrecOr}
	rules[token.FALSE] = parseRule{prefix: (*Compiler).literal}
	rules[token.TRUE] = parseRule{prefix: (*Compiler).literal}
	rules[token.NIL] = parseRule{prefix: (*Compiler).literal}
}

func getRule(t token.Type) *parseRule {
	return &rules[t]
}

// local is a compile-time stack slot. depth == -1 marks it declared but not
// yet initialized -- reading it from its own initializer is a compile error.
type local struct {
	name  token.Token
	depth int
}

// Compiler holds all transient parser/compiler state for a single
// compilation. It is not reused across calls to Compile.
type Compiler struct {
	scanner  *scanner.Scanner
	chunk    *chunk.Chunk
	interner Interner

	previous token.Token
	current  token.Token

	hadError  bool
	panicMode bool
	errors    []CompileError

	locals     [maxLocals]local
	localCount int
	scopeDepth int

	// globalNames tracks every top-level name declared so far, so that
	// redefining a global is caught at compile time instead of silently
	// overwriting the earlier binding at runtime.
	globalNames map[string]bool
}

// Compile compiles source into a chunk.Chunk. On success the returned error
// slice is nil; on failure it contains every independent compile error
// found (panic-mode synchronization keeps later, unrelated statements from
// cascading a single mistake into dozens of messages) and the returned
// chunk must not be executed.
func Compile(source string, interner Interner) (*chunk.Chunk, []CompileError) {
	c := &Compiler{
		scanner:     scanner.New(source),
		chunk:       chunk.New(),
		interner:    interner,
		globalNames: make(map[string]bool),
	}

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	c.emitByte(byte(chunk.OpReturn))

	if c.hadError {
		return c.chunk, c.errors
	}
	return c.chunk, nil
}

// --- token stream -----------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.ScanToken()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t token.Type) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// --- error reporting ---------------------------------------------------

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *Compiler) errorAtPrevious(message string) { c.errorAt(c.previous, message) }

// errorAt records a diagnostic, suppressing every subsequent one until the
// parser resynchronizes at a statement boundary. This is deliberate: it
// lets parsing continue through an error for better diagnostics rather than
// unwinding like an exception would.
func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	c.errors = append(c.errors, CompileError{Line: tok.Line, Message: message})
}

func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- expressions ---------------------------------------------------------

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.errorAtPrevious("Expect expression.")
		return
	}

	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.errorAtPrevious("Invalid assignment target.")
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func (c *Compiler) number(canAssign bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.errorAtPrevious("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(n))
}

// string handles a `"..."` token. No escape translation happens here --
// the scanner already consumed (but did not interpret) backslash escapes,
// so the literal's bytes are the token's lexeme with the surrounding quotes
// stripped.
func (c *Compiler) string(canAssign bool) {
	raw := c.previous.Lexeme[1 : len(c.previous.Lexeme)-1]
	obj := c.interner.InternString(raw)
	c.emitConstant(value.Obj(obj))
}

// char handles a `'c'` token: a single byte between quotes.
func (c *Compiler) char(canAssign bool) {
	c.emitConstant(value.Char(c.previous.Lexeme[1]))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case token.FALSE:
		c.emitByte(byte(chunk.OpFalse))
	case token.TRUE:
		c.emitByte(byte(chunk.OpTrue))
	case token.NIL:
		c.emitByte(byte(chunk.OpNil))
	}
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.previous.Type
	c.parsePrecedence(PrecUnary)
	switch opType {
	case token.MINUS:
		c.emitByte(byte(chunk.OpNegate))
	case token.BANG:
		c.emitByte(byte(chunk.OpNot))
	case token.TILDE:
		c.emitByte(byte(chunk.OpBitNot))
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.previous.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.PLUS:
		c.emitByte(byte(chunk.OpAdd))
	case token.MINUS:
		c.emitByte(byte(chunk.OpSubtract))
	case token.STAR:
		c.emitByte(byte(chunk.OpMultiply))
	case token.SLASH:
		c.emitByte(byte(chunk.OpDivide))
	case token.BANG_EQUAL:
		c.emitByte(byte(chunk.OpEqual))
		c.emitByte(byte(chunk.OpNot))
	case token.EQUAL_EQUAL:
		c.emitByte(byte(chunk.OpEqual))
	case token.GREATER:
		c.emitByte(byte(chunk.OpGreater))
	case token.GREATER_EQUAL:
		c.emitByte(byte(chunk.OpLess))
		c.emitByte(byte(chunk.OpNot))
	case token.LESS:
		c.emitByte(byte(chunk.OpLess))
	case token.LESS_EQUAL:
		c.emitByte(byte(chunk.OpGreater))
		c.emitByte(byte(chunk.OpNot))
	case token.CARET:
		c.emitByte(byte(chunk.OpBitXor))
	case token.PIPE:
		c.emitByte(byte(chunk.OpBitOr))
	case token.AMP:
		c.emitByte(byte(chunk.OpBitAnd))
	case token.LESS_LESS:
		c.emitByte(byte(chunk.OpShiftLeft))
	case token.GREATER_GREATER:
		c.emitByte(byte(chunk.OpShiftRight))
	}
}

// and implements short-circuiting `&&`-style evaluation: if the left
// operand is falsy, skip evaluating the right operand entirely.
func (c *Compiler) and(canAssign bool) {
	endJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitByte(byte(chunk.OpPop))
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

// or short-circuits the opposite way: if the left operand is truthy, skip
// evaluating the right operand.
func (c *Compiler) or(canAssign bool) {
	elseJump := c.emitJump(chunk.OpJumpIfFalse)
	endJump := c.emitJump(chunk.OpJump)
	c.patchJump(elseJump)
	c.emitByte(byte(chunk.OpPop))
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	slot, isLocal := c.resolveLocal(name)

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		if isLocal {
			c.chunk.WriteLocalRef(chunk.OpSetLocal, slot, name.Line)
		} else {
			c.chunk.WriteGlobalRef(chunk.OpSetGlobal, c.identifierConstant(name), name.Line)
		}
		return
	}

	if isLocal {
		c.chunk.WriteLocalRef(chunk.OpGetLocal, slot, name.Line)
	} else {
		c.chunk.WriteGlobalRef(chunk.OpGetGlobal, c.identifierConstant(name), name.Line)
	}
}

// --- variable resolution -------------------------------------------------

// resolveLocal scans the locals stack from the top down, matching by name,
// and reports whether name refers to a local slot. It is a compile error to
// reference a local from within its own initializer (depth == -1).
func (c *Compiler) resolveLocal(name token.Token) (slot int, isLocal bool) {
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.name.Lexeme == name.Lexeme {
			if l.depth == -1 {
				c.errorAtPrevious("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}

func (c *Compiler) identifierConstant(name token.Token) int {
	obj := c.interner.InternString(name.Lexeme)
	return c.chunk.AddConstant(value.Obj(obj))
}

func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		if c.globalNames[c.previous.Lexeme] {
			c.errorAtPrevious(fmt.Sprintf("Global variable '%s' already defined.", c.previous.Lexeme))
			return
		}
		c.globalNames[c.previous.Lexeme] = true
		return
	}
	name := c.previous
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name.Lexeme == name.Lexeme {
			c.errorAtPrevious("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name token.Token) {
	if c.localCount == maxLocals {
		c.errorAtPrevious("Too many local variables in block.")
		return
	}
	c.locals[c.localCount] = local{name: name, depth: -1}
	c.localCount++
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[c.localCount-1].depth = c.scopeDepth
}

func (c *Compiler) parseVariable(errorMessage string) int {
	c.consume(token.IDENTIFIER, errorMessage)
	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *Compiler) defineVariable(global int) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.chunk.WriteGlobalRef(chunk.OpDefineGlobal, global, c.previous.Line)
}

// --- scopes ---------------------------------------------------------------

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope pops every local declared at the scope being closed, emitting
// one OpPop per local so the VM's value stack stays in sync with the
// compiler's locals array.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		c.emitByte(byte(chunk.OpPop))
		c.localCount--
	}
}

// --- statements ------------------------------------------------------------

func (c *Compiler) declaration() {
	if c.match(token.VAR) {
		c.varDeclaration()
	} else {
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitByte(byte(chunk.OpNil))
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitByte(byte(chunk.OpPrint))
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitByte(byte(chunk.OpPop))
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitByte(byte(chunk.OpPop))
	c.statement()

	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.emitByte(byte(chunk.OpPop))

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk.Code)
	c.consume(token.LPAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitByte(byte(chunk.OpPop))
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitByte(byte(chunk.OpPop))
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk.Code)
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(chunk.OpJumpIfFalse)
		c.emitByte(byte(chunk.OpPop))
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(chunk.OpJump)
		incrementStart := len(c.chunk.Code)
		c.expression()
		c.emitByte(byte(chunk.OpPop))
		c.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitByte(byte(chunk.OpPop))
	}

	c.endScope()
}

// --- bytecode emission -----------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.chunk.WriteByte(b, c.previous.Line)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.chunk.WriteConstant(v, c.previous.Line)
}

func (c *Compiler) emitJump(op chunk.OpCode) int {
	return c.chunk.WriteJump(op, c.previous.Line)
}

func (c *Compiler) patchJump(site int) {
	if err := c.chunk.PatchJump(site); err != nil {
		c.errorAtPrevious(err.Error())
	}
}

func (c *Compiler) emitLoop(loopStart int) {
	if err := c.chunk.WriteLoop(loopStart, c.previous.Line); err != nil {
		c.errorAtPrevious(err.Error())
	}
}
