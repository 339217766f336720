package graph

// NodeKind tags what a vertex label represents.
type NodeKind uint8

const (
	// NodeType is a type or code expression produced by template instantiation.
	NodeType NodeKind = iota
	// NodeCode is preprocessed code: a macro call signature, rescanned or expanded code.
	NodeCode
	// NodePath is the target of an include.
	NodePath
	// NodeToken is a single preprocessor token.
	NodeToken
	// NodeMarker is a fixed marker such as a condition result, #else or #endif.
	NodeMarker
)

// String returns the string representation of NodeKind.
func (k NodeKind) String() string {
	switch k {
	case NodeType:
		return "type"
	case NodeCode:
		return "code"
	case NodePath:
		return "path"
	case NodeToken:
		return "token"
	case NodeMarker:
		return "marker"
	default:
		return "unknown"
	}
}

// Node is a vertex label. Two labels are equal iff tag and text match,
// which makes Node usable as a map key.
type Node struct {
	Kind NodeKind
	Text string
}

// TypeNode builds a type label.
func TypeNode(text string) Node { return Node{Kind: NodeType, Text: text} }

// CodeNode builds a code label.
func CodeNode(text string) Node { return Node{Kind: NodeCode, Text: text} }

// PathNode builds an include target label.
func PathNode(text string) Node { return Node{Kind: NodePath, Text: text} }

// TokenNode builds a token label.
func TokenNode(text string) Node { return Node{Kind: NodeToken, Text: text} }

// MarkerNode builds a fixed marker label.
func MarkerNode(text string) Node { return Node{Kind: NodeMarker, Text: text} }

func (n Node) String() string { return n.Text }
