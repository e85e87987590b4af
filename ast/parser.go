// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError is a syntactic diagnostic (§7). Parse stops at the first
// one, unlike the semantic passes which accumulate.
type ParseError struct {
	Message string
	Offset  int
}

func (e *ParseError) Error() string { return e.Message }

type Parser struct {
	toks []Token
	pos  int

	// lastParams stashes the most recently parsed named parameter list
	// so finishFuncDecl can recover names; parseDeclarator only keeps
	// types once they are folded into the FuncType.
	lastParams []Param
}

// Parse tokenizes and parses a full translation unit from preprocessed
// source text.
func Parse(src []byte) (*TranslationUnit, error) {
	lx := NewLexer(src)
	var toks []Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == TK_EOF {
			break
		}
	}
	p := &Parser{toks: toks}
	var tu *TranslationUnit
	err := p.recover(func() { tu = p.parseTranslationUnit() })
	return tu, err
}

func (p *Parser) recover(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	f()
	return nil
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) kind() TokenKind { return p.toks[p.pos].Kind }

func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) fail(format string, args ...interface{}) {
	panic(&ParseError{Message: fmt.Sprintf(format, args...), Offset: p.cur().Offset})
}

func (p *Parser) expect(k TokenKind) Token {
	if p.kind() != k {
		p.fail("expected %v but found %v", k, p.kind())
	}
	return p.advance()
}

func (p *Parser) at(k TokenKind) bool { return p.kind() == k }

// -----------------------------------------------------------------------------
// Top level

func (p *Parser) parseTranslationUnit() *TranslationUnit {
	tu := &TranslationUnit{}
	for !p.at(TK_EOF) {
		tu.Decls = append(tu.Decls, p.parseTopLevelDecl())
	}
	return tu
}

func (p *Parser) parseTopLevelDecl() Decl {
	offset := p.cur().Offset
	if p.at(KW_STRUCT) || p.at(KW_UNION) {
		if p.peekAt(2).Kind == TK_LBRACE {
			sd := p.parseStructuredDecl()
			p.expect(TK_SEMICOLON)
			return sd
		}
	}
	storage := p.parseStorageClass()
	base := p.parseTypeSpecifier()
	ty, name := p.parseDeclarator(base)
	if ty.IsFunction() {
		return p.finishFuncDecl(offset, name, ty, storage)
	}
	return p.finishVarDecl(offset, name, ty, storage)
}

func (p *Parser) parseStorageClass() StorageClass {
	switch p.kind() {
	case KW_STATIC:
		p.advance()
		return StorageStatic
	case KW_EXTERN:
		p.advance()
		return StorageExtern
	}
	return StorageNone
}

func (p *Parser) parseStructuredDecl() *StructuredDecl {
	offset := p.cur().Offset
	kind := StructKind
	if p.at(KW_UNION) {
		kind = UnionKind
	}
	p.advance()
	name := p.expect(TK_IDENT).Lexeme
	p.expect(TK_LBRACE)
	sd := &StructuredDecl{declBase: declBase{offset}, Name: name, Kind: kind}
	for !p.at(TK_RBRACE) {
		base := p.parseTypeSpecifier()
		ty, memberName := p.parseDeclarator(base)
		sd.Members = append(sd.Members, MemberDecl{Name: memberName, Type: ty})
		p.expect(TK_SEMICOLON)
	}
	p.expect(TK_RBRACE)
	return sd
}

// parseTypeSpecifier consumes a (possibly multi-keyword) type specifier
// and returns the resulting scalar/structured base Type, before any
// pointer/array/function declarator wrapping.
func (p *Parser) parseTypeSpecifier() *Type {
	switch p.kind() {
	case KW_VOID:
		p.advance()
		return VarType(Void)
	case KW_CHAR:
		p.advance()
		return VarType(Char)
	case KW_DOUBLE:
		p.advance()
		return VarType(Double)
	case KW_STRUCT, KW_UNION:
		kind := Struct
		if p.kind() == KW_UNION {
			kind = Union
		}
		p.advance()
		tag := p.expect(TK_IDENT).Lexeme
		return StructuredType(kind, tag)
	}

	unsigned := false
	long := 0
	sawInt := false
loop:
	for {
		switch p.kind() {
		case KW_UNSIGNED:
			unsigned = true
			p.advance()
		case KW_SIGNED:
			p.advance()
		case KW_LONG:
			long++
			p.advance()
		case KW_SHORT:
			// §3.1 has no 16-bit Kind; short promotes directly to I32.
			p.advance()
		case KW_INT:
			sawInt = true
			p.advance()
		default:
			break loop
		}
	}
	_ = sawInt
	switch {
	case long > 0 && unsigned:
		return VarType(U64)
	case long > 0:
		return VarType(I64)
	case unsigned:
		return VarType(U32)
	default:
		return VarType(I32)
	}
}

// parseDeclarator parses `*...name[dims]` or `*...name(params)` around a
// base type, the C "declarator" grammar (pointers bind to the name, not
// the base type keyword).
func (p *Parser) parseDeclarator(base *Type) (*Type, string) {
	ty := base
	for p.at(TK_TIMES) {
		p.advance()
		ty = PointerTo(ty)
	}
	name := p.expect(TK_IDENT).Lexeme

	if p.at(TK_LPAREN) {
		params, _ := p.parseParamList()
		paramTypes := make([]*Type, len(params))
		for i, pr := range params {
			paramTypes[i] = pr.Type
		}
		return FuncOf(ty, paramTypes...), name
	}

	var dims []int
	for p.at(TK_LBRACKET) {
		p.advance()
		n := p.expect(LIT_INT)
		sz, _ := strconv.ParseInt(strings.TrimRight(n.Lexeme, "uUlL"), 0, 64)
		dims = append(dims, int(sz))
		p.expect(TK_RBRACKET)
	}
	for i := len(dims) - 1; i >= 0; i-- {
		ty = ArrayOf(ty, dims[i])
	}
	return ty, name
}

func (p *Parser) parseParamList() ([]Param, bool) {
	p.expect(TK_LPAREN)
	var params []Param
	if p.at(KW_VOID) && p.peekAt(1).Kind == TK_RPAREN {
		p.advance()
		p.advance()
		p.lastParams = params
		return params, false
	}
	if p.at(TK_RPAREN) {
		p.advance()
		p.lastParams = params
		return params, false
	}
	for {
		base := p.parseTypeSpecifier()
		ty, name := p.parseDeclarator(base)
		params = append(params, Param{Name: name, Type: ty})
		if p.at(TK_COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(TK_RPAREN)
	p.lastParams = params
	return params, false
}

func (p *Parser) finishFuncDecl(offset int, name string, ty *Type, storage StorageClass) *FuncDecl {
	fd := &FuncDecl{declBase: declBase{offset}, Name: name, Type: ty, Storage: storage, Params: p.lastParams}
	if p.at(TK_LBRACE) {
		fd.Body = p.parseCompoundStmt()
	} else {
		p.expect(TK_SEMICOLON)
	}
	return fd
}

func (p *Parser) finishVarDecl(offset int, name string, ty *Type, storage StorageClass) *VarDecl {
	vd := &VarDecl{declBase: declBase{offset}, Name: name, Type: ty, Storage: storage}
	if p.at(TK_ASSIGN) {
		p.advance()
		vd.Init = p.parseInitializer()
	}
	p.expect(TK_SEMICOLON)
	return vd
}

// -----------------------------------------------------------------------------
// Initializers

func (p *Parser) parseInitializer() Init {
	offset := p.cur().Offset
	if p.at(TK_LBRACE) {
		p.advance()
		ci := &CompoundInit{initBase: initBase{offset}}
		for !p.at(TK_RBRACE) {
			ci.Elems = append(ci.Elems, p.parseInitializer())
			if p.at(TK_COMMA) {
				p.advance()
				continue
			}
			break
		}
		p.expect(TK_RBRACE)
		return ci
	}
	if p.at(LIT_STR) {
		tok := p.advance()
		return &StringInit{initBase: initBase{offset}, Bytes: []byte(tok.Lexeme), NullTerminated: true}
	}
	return &SingleInit{initBase: initBase{offset}, Expr: p.parseAssignExpr()}
}

// -----------------------------------------------------------------------------
// Statements

func (p *Parser) parseCompoundStmt() *CompoundStmt {
	offset := p.cur().Offset
	p.expect(TK_LBRACE)
	cs := &CompoundStmt{stmtBase: stmtBase{offset}}
	for !p.at(TK_RBRACE) {
		cs.Items = append(cs.Items, p.parseBlockItem())
	}
	p.expect(TK_RBRACE)
	return cs
}

func (p *Parser) parseBlockItem() BlockItem {
	if p.startsDecl() {
		return p.parseLocalDecl()
	}
	return p.parseStmt()
}

func (p *Parser) startsDecl() bool {
	switch p.kind() {
	case KW_STATIC, KW_EXTERN, KW_VOID, KW_CHAR, KW_INT, KW_LONG, KW_SHORT,
		KW_DOUBLE, KW_SIGNED, KW_UNSIGNED, KW_STRUCT, KW_UNION:
		return true
	}
	return false
}

func (p *Parser) parseLocalDecl() Decl {
	offset := p.cur().Offset
	if p.at(KW_STRUCT) || p.at(KW_UNION) {
		if p.peekAt(2).Kind == TK_LBRACE {
			sd := p.parseStructuredDecl()
			p.expect(TK_SEMICOLON)
			return sd
		}
	}
	storage := p.parseStorageClass()
	base := p.parseTypeSpecifier()
	ty, name := p.parseDeclarator(base)
	return p.finishVarDecl(offset, name, ty, storage)
}

func (p *Parser) parseStmt() Stmt {
	offset := p.cur().Offset
	switch p.kind() {
	case TK_LBRACE:
		return p.parseCompoundStmt()
	case KW_RETURN:
		p.advance()
		rs := &ReturnStmt{stmtBase: stmtBase{offset}}
		if !p.at(TK_SEMICOLON) {
			rs.Expr = p.parseExpr()
		}
		p.expect(TK_SEMICOLON)
		return rs
	case KW_IF:
		return p.parseIfStmt()
	case KW_WHILE:
		return p.parseWhileStmt()
	case KW_DO:
		return p.parseDoWhileStmt()
	case KW_FOR:
		return p.parseForStmt()
	case KW_SWITCH:
		return p.parseSwitchStmt()
	case KW_CASE:
		p.advance()
		cs := &CaseStmt{stmtBase: stmtBase{offset}, Expr: p.parseExpr()}
		p.expect(TK_COLON)
		cs.Inner = p.parseStmt()
		return cs
	case KW_DEFAULT:
		p.advance()
		p.expect(TK_COLON)
		return &CaseStmt{stmtBase: stmtBase{offset}, Inner: p.parseStmt()}
	case KW_BREAK:
		p.advance()
		p.expect(TK_SEMICOLON)
		return &BreakStmt{stmtBase: stmtBase{offset}}
	case KW_CONTINUE:
		p.advance()
		p.expect(TK_SEMICOLON)
		return &ContinueStmt{stmtBase: stmtBase{offset}}
	case KW_GOTO:
		p.advance()
		name := p.expect(TK_IDENT).Lexeme
		p.expect(TK_SEMICOLON)
		return &GotoStmt{stmtBase: stmtBase{offset}, Label: name}
	case TK_SEMICOLON:
		p.advance()
		return &NullStmt{stmtBase{offset}}
	case TK_IDENT:
		if p.peekAt(1).Kind == TK_COLON {
			name := p.advance().Lexeme
			p.advance() // ':'
			return &LabeledStmt{stmtBase: stmtBase{offset}, Label: name, Inner: p.parseStmt()}
		}
	}
	es := &ExprStmt{stmtBase: stmtBase{offset}, Expr: p.parseExpr()}
	p.expect(TK_SEMICOLON)
	return es
}

func (p *Parser) parseIfStmt() *IfStmt {
	offset := p.cur().Offset
	p.expect(KW_IF)
	p.expect(TK_LPAREN)
	cond := p.parseExpr()
	p.expect(TK_RPAREN)
	then := p.parseStmt()
	var elseStmt Stmt
	if p.at(KW_ELSE) {
		p.advance()
		elseStmt = p.parseStmt()
	}
	return &IfStmt{stmtBase: stmtBase{offset}, Cond: cond, Then: then, Else: elseStmt}
}

func (p *Parser) parseWhileStmt() *WhileStmt {
	offset := p.cur().Offset
	p.expect(KW_WHILE)
	p.expect(TK_LPAREN)
	cond := p.parseExpr()
	p.expect(TK_RPAREN)
	body := p.parseStmt()
	return &WhileStmt{stmtBase: stmtBase{offset}, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhileStmt() *DoWhileStmt {
	offset := p.cur().Offset
	p.expect(KW_DO)
	body := p.parseStmt()
	p.expect(KW_WHILE)
	p.expect(TK_LPAREN)
	cond := p.parseExpr()
	p.expect(TK_RPAREN)
	p.expect(TK_SEMICOLON)
	return &DoWhileStmt{stmtBase: stmtBase{offset}, Body: body, Cond: cond}
}

func (p *Parser) parseForStmt() *ForStmt {
	offset := p.cur().Offset
	p.expect(KW_FOR)
	p.expect(TK_LPAREN)
	fs := &ForStmt{stmtBase: stmtBase{offset}}
	if p.startsDecl() {
		fs.Init = p.parseLocalDecl()
	} else if !p.at(TK_SEMICOLON) {
		fs.Init = &ExprStmt{stmtBase: stmtBase{p.cur().Offset}, Expr: p.parseExpr()}
		p.expect(TK_SEMICOLON)
	} else {
		p.advance()
	}
	if !p.at(TK_SEMICOLON) {
		fs.Cond = p.parseExpr()
	}
	p.expect(TK_SEMICOLON)
	if !p.at(TK_RPAREN) {
		fs.Post = p.parseExpr()
	}
	p.expect(TK_RPAREN)
	fs.Body = p.parseStmt()
	return fs
}

func (p *Parser) parseSwitchStmt() *SwitchStmt {
	offset := p.cur().Offset
	p.expect(KW_SWITCH)
	p.expect(TK_LPAREN)
	cond := p.parseExpr()
	p.expect(TK_RPAREN)
	body := p.parseStmt()
	return &SwitchStmt{stmtBase: stmtBase{offset}, Cond: cond, Body: body}
}

// -----------------------------------------------------------------------------
// Expressions (precedence climbing, lowest to highest)

func (p *Parser) parseExpr() Expr {
	// top-level comma operator is not in the supported subset; a single
	// assignment-expression is the whole expression grammar.
	return p.parseAssignExpr()
}

func (p *Parser) parseAssignExpr() Expr {
	left := p.parseTernaryExpr()
	if p.kind().IsAssignOp() {
		offset := p.cur().Offset
		op := assignOpFor(p.advance().Kind)
		right := p.parseAssignExpr()
		return &AssignExpr{exprBase: exprBase{Offset: offset}, Op: op, Left: left, Right: right}
	}
	return left
}

func assignOpFor(k TokenKind) AssignOp {
	switch k {
	case TK_ASSIGN:
		return AssignSimple
	case TK_PLUS_AGN:
		return AssignAdd
	case TK_MINUS_AGN:
		return AssignSub
	case TK_TIMES_AGN:
		return AssignMul
	case TK_DIV_AGN:
		return AssignDiv
	case TK_MOD_AGN:
		return AssignMod
	case TK_BITAND_AGN:
		return AssignAnd
	case TK_BITOR_AGN:
		return AssignOr
	case TK_BITXOR_AGN:
		return AssignXor
	case TK_LSHIFT_AGN:
		return AssignShl
	case TK_RSHIFT_AGN:
		return AssignShr
	}
	return AssignSimple
}

func (p *Parser) parseTernaryExpr() Expr {
	cond := p.parseLogOrExpr()
	if p.at(TK_QUESTION) {
		offset := p.advance().Offset
		then := p.parseExpr()
		p.expect(TK_COLON)
		elseE := p.parseAssignExpr()
		return &TernaryExpr{exprBase: exprBase{Offset: offset}, Cond: cond, Then: then, Else: elseE}
	}
	return cond
}

func (p *Parser) parseLogOrExpr() Expr {
	left := p.parseLogAndExpr()
	for p.at(TK_LOGOR) {
		offset := p.advance().Offset
		right := p.parseLogAndExpr()
		left = &BinaryExpr{exprBase: exprBase{Offset: offset}, Op: BinLogOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLogAndExpr() Expr {
	left := p.parseBitOrExpr()
	for p.at(TK_LOGAND) {
		offset := p.advance().Offset
		right := p.parseBitOrExpr()
		left = &BinaryExpr{exprBase: exprBase{Offset: offset}, Op: BinLogAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitOrExpr() Expr {
	left := p.parseBitXorExpr()
	for p.at(TK_BITOR) {
		offset := p.advance().Offset
		right := p.parseBitXorExpr()
		left = &BinaryExpr{exprBase: exprBase{Offset: offset}, Op: BinOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitXorExpr() Expr {
	left := p.parseBitAndExpr()
	for p.at(TK_BITXOR) {
		offset := p.advance().Offset
		right := p.parseBitAndExpr()
		left = &BinaryExpr{exprBase: exprBase{Offset: offset}, Op: BinXor, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitAndExpr() Expr {
	left := p.parseEqualityExpr()
	for p.at(TK_BITAND) {
		offset := p.advance().Offset
		right := p.parseEqualityExpr()
		left = &BinaryExpr{exprBase: exprBase{Offset: offset}, Op: BinAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEqualityExpr() Expr {
	left := p.parseRelationalExpr()
	for p.at(TK_EQ) || p.at(TK_NE) {
		op := BinEq
		if p.kind() == TK_NE {
			op = BinNe
		}
		offset := p.advance().Offset
		right := p.parseRelationalExpr()
		left = &BinaryExpr{exprBase: exprBase{Offset: offset}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseRelationalExpr() Expr {
	left := p.parseShiftExpr()
	for p.at(TK_LT) || p.at(TK_LE) || p.at(TK_GT) || p.at(TK_GE) {
		var op BinaryOp
		switch p.kind() {
		case TK_LT:
			op = BinLt
		case TK_LE:
			op = BinLe
		case TK_GT:
			op = BinGt
		case TK_GE:
			op = BinGe
		}
		offset := p.advance().Offset
		right := p.parseShiftExpr()
		left = &BinaryExpr{exprBase: exprBase{Offset: offset}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseShiftExpr() Expr {
	left := p.parseAdditiveExpr()
	for p.at(TK_LSHIFT) || p.at(TK_RSHIFT) {
		op := BinShl
		if p.kind() == TK_RSHIFT {
			op = BinShr
		}
		offset := p.advance().Offset
		right := p.parseAdditiveExpr()
		left = &BinaryExpr{exprBase: exprBase{Offset: offset}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditiveExpr() Expr {
	left := p.parseMultiplicativeExpr()
	for p.at(TK_PLUS) || p.at(TK_MINUS) {
		op := BinAdd
		if p.kind() == TK_MINUS {
			op = BinSub
		}
		offset := p.advance().Offset
		right := p.parseMultiplicativeExpr()
		left = &BinaryExpr{exprBase: exprBase{Offset: offset}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicativeExpr() Expr {
	left := p.parseCastExpr()
	for p.at(TK_TIMES) || p.at(TK_DIV) || p.at(TK_MOD) {
		var op BinaryOp
		switch p.kind() {
		case TK_TIMES:
			op = BinMul
		case TK_DIV:
			op = BinDiv
		case TK_MOD:
			op = BinMod
		}
		offset := p.advance().Offset
		right := p.parseCastExpr()
		left = &BinaryExpr{exprBase: exprBase{Offset: offset}, Op: op, Left: left, Right: right}
	}
	return left
}

// isCastAhead reports whether the parser is looking at `( type-specifier
// ... )` rather than a parenthesized expression.
func (p *Parser) isCastAhead() bool {
	if !p.at(TK_LPAREN) {
		return false
	}
	return p.peekAt(1).Kind.IsTypeKeyword()
}

func (p *Parser) parseCastExpr() Expr {
	if p.isCastAhead() {
		offset := p.cur().Offset
		p.advance()
		base := p.parseTypeSpecifier()
		ty := base
		for p.at(TK_TIMES) {
			p.advance()
			ty = PointerTo(ty)
		}
		p.expect(TK_RPAREN)
		inner := p.parseCastExpr()
		return &CastExpr{exprBase: exprBase{Offset: offset}, Target: ty, Inner: inner}
	}
	return p.parseUnaryExpr()
}

func (p *Parser) parseUnaryExpr() Expr {
	offset := p.cur().Offset
	switch p.kind() {
	case TK_MINUS:
		p.advance()
		return &UnaryExpr{exprBase: exprBase{Offset: offset}, Op: UnaryNeg, Operand: p.parseCastExpr()}
	case TK_LOGNOT:
		p.advance()
		return &UnaryExpr{exprBase: exprBase{Offset: offset}, Op: UnaryNot, Operand: p.parseCastExpr()}
	case TK_BITNOT:
		p.advance()
		return &UnaryExpr{exprBase: exprBase{Offset: offset}, Op: UnaryComplement, Operand: p.parseCastExpr()}
	case TK_PLUS:
		p.advance()
		return &UnaryExpr{exprBase: exprBase{Offset: offset}, Op: UnaryPlus, Operand: p.parseCastExpr()}
	case TK_INC:
		p.advance()
		return &UnaryExpr{exprBase: exprBase{Offset: offset}, Op: UnaryPreInc, Operand: p.parseUnaryExpr()}
	case TK_DEC:
		p.advance()
		return &UnaryExpr{exprBase: exprBase{Offset: offset}, Op: UnaryPreDec, Operand: p.parseUnaryExpr()}
	case TK_TIMES:
		p.advance()
		return &DerefExpr{exprBase: exprBase{Offset: offset}, Inner: p.parseCastExpr()}
	case TK_BITAND:
		p.advance()
		return &AddrOfExpr{exprBase: exprBase{Offset: offset}, Inner: p.parseCastExpr()}
	case KW_SIZEOF:
		p.advance()
		if p.at(TK_LPAREN) && p.peekAt(1).Kind.IsTypeKeyword() {
			p.advance()
			base := p.parseTypeSpecifier()
			ty := base
			for p.at(TK_TIMES) {
				p.advance()
				ty = PointerTo(ty)
			}
			p.expect(TK_RPAREN)
			return &SizeofExpr{exprBase: exprBase{Offset: offset}, OperandType: ty}
		}
		return &SizeofExpr{exprBase: exprBase{Offset: offset}, Operand: p.parseUnaryExpr()}
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() Expr {
	e := p.parsePrimaryExpr()
	for {
		offset := p.cur().Offset
		switch p.kind() {
		case TK_LBRACKET:
			p.advance()
			idx := p.parseExpr()
			p.expect(TK_RBRACKET)
			e = &SubscriptExpr{exprBase: exprBase{Offset: offset}, Base: e, Index: idx}
		case TK_DOT:
			p.advance()
			name := p.expect(TK_IDENT).Lexeme
			e = &MemberExpr{exprBase: exprBase{Offset: offset}, Base: e, Member: name}
		case TK_ARROW:
			p.advance()
			name := p.expect(TK_IDENT).Lexeme
			e = &MemberExpr{exprBase: exprBase{Offset: offset}, Base: e, Member: name, Arrow: true}
		case TK_INC:
			p.advance()
			e = &UnaryExpr{exprBase: exprBase{Offset: offset}, Op: UnaryPostInc, Operand: e}
		case TK_DEC:
			p.advance()
			e = &UnaryExpr{exprBase: exprBase{Offset: offset}, Op: UnaryPostDec, Operand: e}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimaryExpr() Expr {
	tok := p.cur()
	switch tok.Kind {
	case LIT_INT:
		p.advance()
		return parseIntLiteral(tok)
	case LIT_DOUBLE:
		p.advance()
		v, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return &ConstExpr{exprBase: exprBase{Offset: tok.Offset}, Kind: ConstDouble, FVal: v}
	case LIT_CHAR:
		p.advance()
		return &ConstExpr{exprBase: exprBase{Offset: tok.Offset}, Kind: ConstChar, IVal: uint64(tok.Lexeme[0])}
	case LIT_STR:
		p.advance()
		return &StringExpr{exprBase: exprBase{Offset: tok.Offset}, Bytes: []byte(tok.Lexeme)}
	case TK_IDENT:
		p.advance()
		if p.at(TK_LPAREN) {
			p.advance()
			var args []Expr
			if !p.at(TK_RPAREN) {
				for {
					args = append(args, p.parseAssignExpr())
					if p.at(TK_COMMA) {
						p.advance()
						continue
					}
					break
				}
			}
			p.expect(TK_RPAREN)
			return &CallExpr{exprBase: exprBase{Offset: tok.Offset}, Callee: tok.Lexeme, Args: args}
		}
		return &VarExpr{exprBase: exprBase{Offset: tok.Offset}, Name: tok.Lexeme}
	case TK_LPAREN:
		p.advance()
		e := p.parseExpr()
		p.expect(TK_RPAREN)
		return e
	}
	p.fail("unexpected token %v in expression", tok.Kind)
	return nil
}

// parseIntLiteral derives the ConstKind from the literal's suffix, per
// §4.2 "Constant: type comes from the literal's suffix".
func parseIntLiteral(tok Token) *ConstExpr {
	lexeme := tok.Lexeme
	unsigned := strings.ContainsAny(lexeme, "uU")
	long := strings.ContainsAny(lexeme, "lL")
	digits := strings.TrimRight(lexeme, "uUlL")
	base := 10
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		base = 16
		digits = digits[2:]
	} else if strings.HasPrefix(digits, "0") && len(digits) > 1 {
		base = 8
		digits = digits[1:]
	}
	v, _ := strconv.ParseUint(digits, base, 64)
	kind := ConstI32
	switch {
	case long && unsigned:
		kind = ConstU64
	case long:
		kind = ConstI64
	case unsigned:
		kind = ConstU32
	case v > 0x7fffffff:
		// literal too large for I32 without a suffix promotes to I64,
		// mirroring the C integer-literal promotion ladder.
		kind = ConstI64
	}
	return &ConstExpr{exprBase: exprBase{Offset: tok.Offset}, Kind: kind, IVal: v}
}
