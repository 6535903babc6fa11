package demangle

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump returns a diagnostic listing of the tree, one node per line.
func (a *AST) Dump() string {
	return DumpAST(a)
}

// DumpAST lists every owned node of ast with its kind, depth and child
// count. Non-owning links are shown but not followed.
func DumpAST(ast *AST) string {
	if ast == nil || ast.root == nil {
		return ""
	}
	var sb strings.Builder
	dumpNode(&sb, ast.root, 0)
	return sb.String()
}

func dumpNode(sb *strings.Builder, n Node, depth int) {
	fmt.Fprintf(sb, "%s%s depth=%d children=%d", strings.Repeat("  ", depth), n.Kind(), depth, n.NodeCount())
	if detail := Describe(n); detail != "" {
		sb.WriteString(" ")
		sb.WriteString(detail)
	}
	sb.WriteByte('\n')
	for i := 0; i < n.NodeCount(); i++ {
		dumpNode(sb, n.Child(i), depth+1)
	}
}

// Describe returns the scalar payload of a node, such as an identifier or
// a qualifier string, or "" for purely structural nodes.
func Describe(n Node) string {
	switch v := n.(type) {
	case *SourceName:
		return strconv.Quote(v.name)
	case *BuiltinType:
		return strconv.Quote(v.name)
	case *OperatorName:
		return "code=" + v.code
	case *Constructor:
		if v.dtor {
			return fmt.Sprintf("~%s D%c", v.className, v.variant)
		}
		return fmt.Sprintf("%s C%c", v.className, v.variant)
	case *Type:
		if v.empty {
			return "empty"
		}
		if v.cv != "" {
			return "cv=" + v.cv
		}
	case *NestedName:
		var parts []string
		if v.cv != "" {
			parts = append(parts, "cv="+v.cv)
		}
		if v.ref != 0 {
			parts = append(parts, "ref="+string(v.ref))
		}
		return strings.Join(parts, " ")
	case *UnscopedName:
		if v.std {
			return "std"
		}
	case *UnqualifiedName:
		var parts []string
		if v.unnamed != "" {
			parts = append(parts, fmt.Sprintf("%s#%d", v.unnamed, v.index))
		}
		for _, tag := range v.abiTags {
			parts = append(parts, "abi:"+tag)
		}
		return strings.Join(parts, " ")
	case *BuiltinSubstitution:
		return "S" + string(v.code)
	case *UserSubstitution:
		return fmt.Sprintf("S%s_ -> %s", seqID(v.index), targetKind(v.target))
	case *TemplateParam:
		return fmt.Sprintf("%s -> %s", paramCode(v.ref.index), targetKind(v.ref.target))
	case *Holder:
		return "-> " + targetKind(v.target)
	case *TemplateArg:
		if v.pack {
			if v.empty {
				return "pack empty"
			}
			return "pack"
		}
	case *ArrayType:
		return "[" + v.dim + "]"
	case *Number:
		return v.Value()
	case *Encoding:
		if v.special != "" {
			return strconv.Quote(strings.TrimSpace(v.special))
		}
		if v.function {
			return "function"
		}
		return "data"
	case *LocalName:
		if v.stringLiteral {
			return "string literal"
		}
	case *MangledName:
		return strings.Join(v.suffixes, " ")
	case *Expression:
		if v.text != "" {
			return strconv.Quote(v.text)
		}
	}
	return ""
}

func targetKind(n Node) string {
	if n == nil {
		return "<unresolved>"
	}
	return n.Kind().String()
}
