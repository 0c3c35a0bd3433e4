package typeref

import "github.com/phobologic/tsmodel/internal/model"

// Walk calls fn for ref and every ref nested in it, depth first, in order.
func Walk(ref *model.TypeRef, fn func(*model.TypeRef)) {
	if ref == nil {
		return
	}
	fn(ref)
	for _, a := range ref.TypeArgs {
		Walk(a, fn)
	}
	Walk(ref.ElementType, fn)
}

// Targets returns every classifier id bound anywhere in ref, first occurrence
// first.
func Targets(ref *model.TypeRef) []string {
	var out []string
	seen := make(map[string]struct{})
	Walk(ref, func(r *model.TypeRef) {
		if r.Target == "" {
			return
		}
		if _, dup := seen[r.Target]; dup {
			return
		}
		seen[r.Target] = struct{}{}
		out = append(out, r.Target)
	})
	return out
}

// Unresolved returns the written names in ref that the oracle could not bind.
func Unresolved(ref *model.TypeRef) []string {
	var out []string
	seen := make(map[string]struct{})
	Walk(ref, func(r *model.TypeRef) {
		if !r.Unresolved {
			return
		}
		if _, dup := seen[r.Name]; dup {
			return
		}
		seen[r.Name] = struct{}{}
		out = append(out, r.Name)
	})
	return out
}

// Primary returns the classifier a ref denotes directly: the ref's own binding,
// or the binding of its element type for arrays. many reports that the binding
// was reached through an array.
func Primary(ref *model.TypeRef) (target string, many bool) {
	for ref != nil && ref.Kind == model.Array {
		ref = ref.ElementType
		many = true
	}
	if ref == nil || ref.Target == "" {
		return "", false
	}
	return ref.Target, many
}

// String renders ref compactly, for logs and summaries.
func String(ref *model.TypeRef) string {
	if ref == nil {
		return ""
	}
	switch ref.Kind {
	case model.Array:
		inner := String(ref.ElementType)
		if ref.ElementType != nil && (ref.ElementType.Kind == model.Union || ref.ElementType.Kind == model.Intersection) {
			inner = "(" + inner + ")"
		}
		return inner + "[]"
	case model.Union, model.Intersection:
		sep := " | "
		if ref.Kind == model.Intersection {
			sep = " & "
		}
		s := ""
		for i, a := range ref.TypeArgs {
			if i > 0 {
				s += sep
			}
			s += String(a)
		}
		return s
	case model.Generic:
		s := ref.Name + "<"
		for i, a := range ref.TypeArgs {
			if i > 0 {
				s += ", "
			}
			s += String(a)
		}
		return s + ">"
	default:
		return ref.Name
	}
}
