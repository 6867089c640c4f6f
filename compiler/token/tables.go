package token

var Keywords = map[string]struct{}{
	"auto": {}, "break": {}, "case": {}, "char": {}, "const": {}, "continue": {},
	"default": {}, "do": {}, "double": {}, "else": {}, "enum": {}, "extern": {},
	"float": {}, "for": {}, "goto": {}, "if": {}, "inline": {}, "int": {},
	"long": {}, "register": {}, "restrict": {}, "return": {}, "short": {},
	"signed": {}, "sizeof": {}, "static": {}, "struct": {}, "switch": {},
	"typedef": {}, "union": {}, "unsigned": {}, "void": {}, "volatile": {},
	"while": {},
}

var Operators = map[string]struct{}{
	"<<=": {}, ">>=": {},

	"++": {}, "--": {}, "->": {}, "&&": {}, "||": {}, "<<": {}, ">>": {},
	"==": {}, "!=": {}, "<=": {}, ">=": {}, "+=": {}, "-=": {}, "*=": {},
	"/=": {}, "%=": {}, "&=": {}, "|=": {}, "^=": {},

	"+": {}, "-": {}, "*": {}, "/": {}, "%": {}, "&": {}, "|": {}, "^": {},
	"~": {}, "!": {}, "=": {}, "<": {}, ">": {}, ".": {},
}

var Puncts = map[string]struct{}{
	"...": {},

	"(": {}, ")": {}, "[": {}, "]": {}, "{": {}, "}": {}, ";": {}, ",": {},
	":": {}, "?": {},
}

// Lookup classifies a complete lexeme by the fixed tables.
// Identifiers and literals are not recognized here.
func Lookup(s string) (Category, bool) {
	if _, ok := Keywords[s]; ok {
		return Keyword, true
	}

	if _, ok := Operators[s]; ok {
		return Operator, true
	}

	if _, ok := Puncts[s]; ok {
		return Punct, true
	}

	return Unknown, false
}

// Symbol finds the longest operator or punctuation prefix of b, at most 3 bytes.
// Operators win over punctuation of the same length.
func Symbol(b []byte) (Category, int) {
	for n := 3; n > 0; n-- {
		if n > len(b) {
			continue
		}

		s := string(b[:n])

		if _, ok := Operators[s]; ok {
			return Operator, n
		}

		if _, ok := Puncts[s]; ok {
			return Punct, n
		}
	}

	return Unknown, 0
}

func IsTypeKeyword(s string) bool {
	switch s {
	case "void", "char", "short", "int", "long", "float", "double",
		"signed", "unsigned", "const", "volatile", "static", "extern",
		"register", "auto", "inline", "restrict":
		return true
	}

	return false
}
