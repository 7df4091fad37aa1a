// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Converting S-expressions into units.
//
//	(unit name
//	  (arguments (a object) (b single))
//	  (instructions
//	    (2 const (c single) 1)
//	    (4 add-int (d single) b c)
//	    (6 invoke-range Foo.bar () a d)
//	    (8 return () d))
//	  (fixed (d 3))
//	  (intervals (a 0 7) (x wide 2 5))
//	  (copies (6 d (e single))))
//
// A value is defined by a (name type) list and referred to by its
// name.  Values are numbered in the order their definitions appear.

package front

import (
	"fmt"
	"go/constant"
	"go/token"
	"strings"

	"github.com/s48/backend/ir"
	"github.com/s48/backend/regalloc"
	"github.com/s48/backend/util"
)

type syntaxErrorT struct {
	line    int
	message string
}

func (err *syntaxErrorT) Error() string {
	return fmt.Sprintf("line %d: %s", err.line, err.message)
}

func syntaxError(sexp *util.SExpT, format string, args ...any) {
	panic(&syntaxErrorT{line: sexp.Line, message: fmt.Sprintf(format, args...)})
}

func catchSyntaxError(result *error) {
	if r := recover(); r != nil {
		if err, ok := r.(*syntaxErrorT); ok {
			*result = err
			return
		}
		panic(r)
	}
}

// Keeping track of the unit being built.

type envT struct {
	unit     *ir.UnitT
	bindings map[string]*ir.ValueT
}

func (env *envT) define(sexp *util.SExpT) *ir.ValueT {
	if !sexp.IsList() || len(sexp.List) != 2 || !sexp.List[0].IsSymbol() || !sexp.List[1].IsSymbol() {
		syntaxError(sexp, "bad value definition %s", sexp)
	}
	name := sexp.List[0].Symbol
	typ, ok := ir.ParseMoveType(sexp.List[1].Symbol)
	if !ok {
		syntaxError(sexp, "unknown value type '%s'", sexp.List[1].Symbol)
	}
	if value := env.bindings[name]; value != nil {
		if value.Type != typ {
			syntaxError(sexp, "'%s' is both %s and %s", name, value.Type, typ)
		}
		return value
	}
	value := ir.MakeValue(len(env.unit.Values), name, typ)
	env.bindings[name] = value
	env.unit.AddValue(value)
	return value
}

func (env *envT) lookup(sexp *util.SExpT) *ir.ValueT {
	if sexp.IsList() {
		return env.define(sexp)
	}
	if !sexp.IsSymbol() {
		syntaxError(sexp, "expected a value name, got %s", sexp)
	}
	value := env.bindings[sexp.Symbol]
	if value == nil {
		syntaxError(sexp, "undefined value '%s'", sexp.Symbol)
	}
	return value
}

func intArg(sexp *util.SExpT, what string) int {
	if !sexp.IsInt() {
		syntaxError(sexp, "%s is not an integer: %s", what, sexp)
	}
	return sexp.Integer
}

// Returns the clauses of a (unit name clause ...) form, keyed by their
// heads.

func unitClauses(sexp *util.SExpT) (string, map[string]*util.SExpT) {
	if sexp.Head() != "unit" || len(sexp.List) < 2 || !sexp.List[1].IsSymbol() {
		syntaxError(sexp, "expected (unit name ...)")
	}
	clauses := map[string]*util.SExpT{}
	for _, clause := range sexp.List[2:] {
		head := clause.Head()
		switch head {
		case "arguments", "instructions", "fixed", "intervals", "copies":
		default:
			syntaxError(clause, "unknown unit clause %s", clause)
		}
		if clauses[head] != nil {
			syntaxError(clause, "duplicate '%s' clause", head)
		}
		clauses[head] = clause
	}
	return sexp.List[1].Symbol, clauses
}

// Every clause's entries, or nil if the clause is missing.

func entries(clauses map[string]*util.SExpT, head string) []*util.SExpT {
	if clause := clauses[head]; clause != nil {
		return clause.List[1:]
	}
	return nil
}

func ConvertUnit(sexp *util.SExpT) (unit *ir.UnitT, err error) {
	defer catchSyntaxError(&err)
	name, clauses := unitClauses(sexp)
	env := &envT{unit: ir.MakeUnit(name), bindings: map[string]*ir.ValueT{}}
	defineValues(clauses, env)

	for _, entry := range entries(clauses, "arguments") {
		arg := env.lookup(entry)
		arg.IsArgument = true
		env.unit.Arguments = append(env.unit.Arguments, arg)
	}
	previous := 0
	for _, entry := range entries(clauses, "instructions") {
		instr := convertInstruction(entry, env)
		if instr.Number <= previous {
			syntaxError(entry, "instruction %d follows instruction %d", instr.Number, previous)
		}
		previous = instr.Number
		env.unit.AddInstruction(instr)
	}
	for _, entry := range entries(clauses, "copies") {
		if !entry.IsList() || len(entry.List) != 3 {
			syntaxError(entry, "expected (position from to), got %s", entry)
		}
		at := intArg(entry.List[0], "copy position")
		if at <= 0 {
			syntaxError(entry, "copy position %d is not positive", at)
		}
		env.unit.AddCopy(at, env.lookup(entry.List[1]), env.lookup(entry.List[2]))
	}
	for _, entry := range entries(clauses, "fixed") {
		if !entry.IsList() || len(entry.List) != 2 {
			syntaxError(entry, "expected (value register), got %s", entry)
		}
		register := intArg(entry.List[1], "register")
		if register < 0 {
			syntaxError(entry, "negative register %d", register)
		}
		env.lookup(entry.List[0]).FixedRegister = register
	}
	for _, entry := range entries(clauses, "intervals") {
		value, start, end := convertInterval(entry, env)
		if end <= start {
			syntaxError(entry, "empty interval [%d, %d)", start, end)
		}
		value.SetLiveInterval(start, end)
	}

	undefined := util.NewSet(env.unit.Values...)
	for _, arg := range env.unit.Arguments {
		undefined.Remove(arg)
	}
	for _, instr := range env.unit.Instructions {
		if instr.Out != nil {
			undefined.Remove(instr.Out)
		}
	}
	for _, copy := range env.unit.Copies {
		undefined.Remove(copy.To)
	}
	for _, value := range env.unit.Values {
		if undefined.Contains(value) && !value.HasLiveInterval() {
			syntaxError(sexp, "'%s' has no definition and no interval", value.Name)
		}
	}
	env.unit.ComputeLiveIntervals()
	log.Debugf("unit %s: %d values, %d instructions", name, len(env.unit.Values), len(env.unit.Instructions))
	return env.unit, nil
}

// Walks the clauses in textual order defining every (name type) that
// appears in a definition position.  This lets instructions refer to
// values defined later by copies.

func defineValues(clauses map[string]*util.SExpT, env *envT) {
	for _, arg := range entries(clauses, "arguments") {
		if env.bindings[arg.Head()] != nil {
			syntaxError(arg, "argument '%s' is defined twice", arg.Head())
		}
		env.define(arg)
	}
	for _, entry := range entries(clauses, "instructions") {
		if !entry.IsList() || len(entry.List) < 3 {
			syntaxError(entry, "bad instruction %s", entry)
		}
		out := entry.List[2]
		if entry.List[1].IsSymbol() && strings.HasPrefix(entry.List[1].Symbol, "invoke") && 3 < len(entry.List) {
			out = entry.List[3]
		}
		if out.IsList() && len(out.List) != 0 {
			if env.bindings[out.Head()] != nil {
				syntaxError(entry, "'%s' is defined twice", out.Head())
			}
			env.define(out)
		}
	}
	for _, entry := range entries(clauses, "copies") {
		if entry.IsList() && len(entry.List) == 3 && entry.List[2].IsList() {
			env.define(entry.List[2])
		}
	}
	for _, entry := range entries(clauses, "intervals") {
		if entry.IsList() && len(entry.List) == 4 && entry.List[0].IsSymbol() {
			env.define(&util.SExpT{Kind: util.SExpList, List: entry.List[:2], Line: entry.Line})
		}
	}
}

// (name start end) or (name type start end)

func convertInterval(entry *util.SExpT, env *envT) (*ir.ValueT, int, int) {
	if !entry.IsList() || (len(entry.List) != 3 && len(entry.List) != 4) {
		syntaxError(entry, "expected (value start end), got %s", entry)
	}
	n := len(entry.List)
	value := env.lookup(entry.List[0])
	return value, intArg(entry.List[n-2], "interval start"), intArg(entry.List[n-1], "interval end")
}

//----------------------------------------------------------------
// Instructions

// (number opcode out [literal] input ...)
// (number invoke method out input ...)

func convertInstruction(entry *util.SExpT, env *envT) *ir.InstructionT {
	number := intArg(entry.List[0], "instruction number")
	if number <= 0 {
		syntaxError(entry, "instruction number %d is not positive", number)
	}
	if !entry.List[1].IsSymbol() {
		syntaxError(entry, "bad opcode %s", entry.List[1])
	}
	name := entry.List[1].Symbol
	rest := entry.List[2:]
	opcode, numericType := lookupOpcode(entry.List[1])
	switch {
	case opcode == ir.Const:
		if len(rest) != 2 {
			syntaxError(entry, "expected (number const out literal), got %s", entry)
		}
		return ir.MakeConst(number, convertOut(rest[0], env), convertLiteral(rest[1]))
	case opcode.IsBinop():
		if len(rest) != 3 {
			syntaxError(entry, "expected (number %s out left right), got %s", name, entry)
		}
		inputs := convertInputs(rest[1:], env)
		return ir.MakeBinop(number, opcode, numericType, convertOut(rest[0], env), inputs[0], inputs[1])
	case opcode == ir.Invoke || opcode == ir.InvokeRange:
		if len(rest) < 2 || !rest[0].IsSymbol() {
			syntaxError(entry, "expected (number %s method out input ...), got %s", name, entry)
		}
		return ir.MakeInvoke(number, opcode, rest[0].Symbol, convertOut(rest[1], env), convertInputs(rest[2:], env)...)
	default:
		if len(rest) < 1 {
			syntaxError(entry, "missing output for %s", entry)
		}
		if opcode == ir.Move && len(rest) != 2 {
			syntaxError(entry, "expected (number move out input), got %s", entry)
		}
		return ir.MakeInstruction(number, opcode, convertOut(rest[0], env), convertInputs(rest[1:], env)...)
	}
}

// "const", "invoke-range", or a binop with its type, as in "add-int".

func lookupOpcode(sexp *util.SExpT) (ir.OpcodeT, ir.NumericTypeT) {
	name := sexp.Symbol
	if opcode, found := ir.LookupOpcode(name); found && !opcode.IsBinop() {
		return opcode, ir.NoNumericType
	}
	i := strings.LastIndexByte(name, '-')
	if 0 < i {
		opcode, found := ir.LookupOpcode(name[:i])
		numericType, typeFound := ir.LookupNumericType(name[i+1:])
		if found && typeFound && opcode.IsBinop() {
			return opcode, numericType
		}
	}
	syntaxError(sexp, "unknown opcode '%s'", name)
	return ir.Const, ir.NoNumericType
}

func convertOut(sexp *util.SExpT, env *envT) *ir.ValueT {
	if sexp.IsList() && len(sexp.List) == 0 {
		return nil
	}
	if !sexp.IsList() {
		syntaxError(sexp, "output must be () or (name type), got %s", sexp)
	}
	return env.lookup(sexp)
}

func convertInputs(sexps []*util.SExpT, env *envT) []*ir.ValueT {
	inputs := []*ir.ValueT{}
	for _, sexp := range sexps {
		if sexp.IsList() {
			syntaxError(sexp, "inputs must be value names, got %s", sexp)
		}
		inputs = append(inputs, env.lookup(sexp))
	}
	return inputs
}

// Integers, or floating point numbers written as symbols.

func convertLiteral(sexp *util.SExpT) constant.Value {
	if sexp.IsInt() {
		return constant.MakeInt64(int64(sexp.Integer))
	}
	if sexp.IsSymbol() {
		value := constant.MakeFromLiteral(sexp.Symbol, token.FLOAT, 0)
		if value.Kind() != constant.Unknown {
			return value
		}
	}
	syntaxError(sexp, "bad literal %s", sexp)
	return nil
}

//----------------------------------------------------------------
// Parallel move sets: (moves (dst src type) ...)

func ConvertMoves(sexp *util.SExpT) (moves []*regalloc.RegisterMoveT, err error) {
	defer catchSyntaxError(&err)
	if sexp.Head() != "moves" {
		syntaxError(sexp, "expected (moves ...)")
	}
	written := util.NewSet[int]()
	for _, entry := range sexp.List[1:] {
		if !entry.IsList() || len(entry.List) != 3 || !entry.List[2].IsSymbol() {
			syntaxError(entry, "expected (dst src type), got %s", entry)
		}
		typ, ok := ir.ParseMoveType(entry.List[2].Symbol)
		if !ok {
			syntaxError(entry, "unknown move type '%s'", entry.List[2].Symbol)
		}
		dst := intArg(entry.List[0], "destination")
		src := intArg(entry.List[1], "source")
		if dst < 0 || src < 0 {
			syntaxError(entry, "negative register in %s", entry)
		}
		move := regalloc.MakeRegisterMove(dst, src, typ)
		if clash := written.Intersection(move.DestinationFootprint()); len(clash) != 0 {
			syntaxError(entry, "two moves write register %d", util.SortedMembers(clash)[0])
		}
		written.Add(move.DestinationFootprint().Members()...)
		moves = append(moves, move)
	}
	return moves, nil
}
