package parse

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented dump of the tree, one node per line.
//
//	Root [0:0-1:0]
//	  Output [0:0-0:9]
//	    Symbol [0:3-0:6] "foo"
func Fprint(w io.Writer, n *Node) error {
	pw := &printer{w: w}
	pw.print(n, 0, "")
	return pw.err
}

// Sprint is Fprint into a string.
func Sprint(n *Node) string {
	var sb strings.Builder
	_ = Fprint(&sb, n)
	return sb.String()
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	s := fmt.Sprintf("%s [%s-%s]", n.Kind, n.Pos, n.End)
	if v, ok := n.scalar(); ok {
		s += " " + v
	}
	return s
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(indent int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s"+format+"\n", append([]any{strings.Repeat("  ", indent)}, args...)...)
}

func (p *printer) print(n *Node, indent int, field string) {
	prefix := ""
	if field != "" && field != "children" {
		prefix = "[" + field + "] "
	}
	p.printf(indent, "%s%s", prefix, n)

	n.IterFields(func(f string, child *Node) {
		p.print(child, indent+1, f)
	})
}

// scalar renders the non-node payload of n, if any.
func (n *Node) scalar() (string, bool) {
	switch n.Kind {
	case KindLiteral, KindSymbol, KindTemplateData:
	case KindCompareOperand:
		return fmt.Sprintf("op=%s", n.Value), true
	case KindImport, KindFromImport:
		if n.Value == nil {
			return "", false
		}
		return fmt.Sprintf("withContext=%v", n.Value), true
	case KindInclude:
		if missing, _ := n.Value.(bool); missing {
			return "ignoreMissing=true", true
		}
		return "", false
	default:
		return "", false
	}

	switch v := n.Value.(type) {
	case string:
		return strconv.Quote(v), true
	case nil:
		return "none", true
	case *Regex:
		return v.String(), true
	}
	return fmt.Sprintf("%v", n.Value), true
}
