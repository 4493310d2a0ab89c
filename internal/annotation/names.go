package annotation

import "strings"

var descriptorPrimitives = map[byte]string{
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'S': "short",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
	'V': "void",
}

// TypeName converts a field descriptor ("Ljava/lang/String;", "[I") to a
// canonical source type name ("java.lang.String", "int[]"). Strings that are
// not descriptors are returned unchanged.
func TypeName(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	rest := desc[dims:]
	var base string
	switch {
	case len(rest) == 1 && descriptorPrimitives[rest[0]] != "":
		base = descriptorPrimitives[rest[0]]
	case len(rest) > 2 && rest[0] == 'L' && rest[len(rest)-1] == ';':
		base = strings.ReplaceAll(rest[1:len(rest)-1], "/", ".")
	default:
		return desc
	}
	return base + strings.Repeat("[]", dims)
}

// Descriptor is the inverse of TypeName.
func Descriptor(name string) string {
	dims := 0
	for strings.HasSuffix(name, "[]") {
		name = name[:len(name)-2]
		dims++
	}
	prefix := strings.Repeat("[", dims)
	for c, p := range descriptorPrimitives {
		if p == name {
			return prefix + string(c)
		}
	}
	return prefix + "L" + strings.ReplaceAll(name, ".", "/") + ";"
}

// ClassOf normalizes a class literal given either as a descriptor or as a
// source type name.
func ClassOf(s string) ClassValue {
	return ClassValue(TypeName(s))
}
