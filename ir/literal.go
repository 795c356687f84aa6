package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// CanonicalLiteral returns a key for comparing two Const literals of type
// typ for value-numbering purposes. Integers are compared by parsed value;
// floats, booleans and chars are compared by their exact source text, so
// that +0.0/-0.0 and distinct NaN payloads (which JSON numeric equality
// would conflate) are kept distinct, per spec.
func CanonicalLiteral(typ Type, value []byte) string {
	text := strings.TrimSpace(string(value))
	switch typ.Base {
	case "int":
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return fmt.Sprintf("int:%d", n)
		}
		return "int:" + text
	case "float":
		return "float:" + text
	case "bool":
		return "bool:" + text
	case "char":
		return "char:" + text
	default:
		return typ.Base + ":" + text
	}
}
