package ruby

// keywords is shared read-only by all scanners.
var keywords = map[string]bool{
	"BEGIN": true, "END": true, "__ENCODING__": true, "__FILE__": true,
	"__LINE__": true, "alias": true, "and": true, "begin": true,
	"break": true, "case": true, "class": true, "def": true,
	"defined?": true, "do": true, "else": true, "elsif": true,
	"end": true, "ensure": true, "false": true, "for": true,
	"if": true, "in": true, "module": true, "next": true,
	"nil": true, "not": true, "or": true, "redo": true,
	"rescue": true, "retry": true, "return": true, "self": true,
	"super": true, "then": true, "true": true, "undef": true,
	"unless": true, "until": true, "when": true, "while": true,
	"yield": true,
}

// keywords that end an expression, so a following '/' divides
var valueKeywords = map[string]bool{
	"end": true, "self": true, "true": true, "false": true, "nil": true,
	"__FILE__": true, "__LINE__": true, "__ENCODING__": true,
	"redo": true, "retry": true,
}

// IsKeyword reports whether word is a reserved word.
func IsKeyword(word string) bool {
	return keywords[word]
}

func expectsValueAfter(keyword string) bool {
	return !valueKeywords[keyword]
}
