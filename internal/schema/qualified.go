package schema

import "strings"

// Object is any named schema asset: tables, columns, indexes, sequences and foreign keys
type Object interface {
	// AssetName returns the full name, qualified with the namespace when one is known
	AssetName() string
	// NamespaceName returns the namespace explicitly assigned to the object, or ""
	NamespaceName() string
	// ShortestName returns the name relative to the given namespace
	ShortestName(namespace string) string
}

// Asset carries the name shared by all schema objects.
//
// Name may already contain a namespace ("sales.orders"). Namespace is only set
// when the namespace was assigned explicitly.
type Asset struct {
	Name      string
	Namespace string
}

// NewAsset builds an asset from a local name and an optional namespace
func NewAsset(name, namespace string) Asset {
	return Asset{Name: name, Namespace: namespace}
}

// AssetName implements Object
func (a Asset) AssetName() string {
	if a.Namespace == "" || strings.HasPrefix(strings.ToLower(a.Name), strings.ToLower(a.Namespace)+".") {
		return a.Name
	}
	return a.Namespace + "." + a.Name
}

// NamespaceName implements Object
func (a Asset) NamespaceName() string {
	return a.Namespace
}

// ShortestName implements Object
func (a Asset) ShortestName(namespace string) string {
	full := a.AssetName()
	if namespace != "" && strings.HasPrefix(strings.ToLower(full), strings.ToLower(namespace)+".") {
		return full[len(namespace)+1:]
	}
	return full
}

// QualifiedName is a (namespace, local name) pair
type QualifiedName struct {
	Name      string
	Namespace *string
}

// HasNamespace reports whether a namespace is present
func (q QualifiedName) HasNamespace() bool {
	return q.Namespace != nil
}

// NamespaceOr returns the namespace, or fallback when absent
func (q QualifiedName) NamespaceOr(fallback string) string {
	if q.Namespace == nil {
		return fallback
	}
	return *q.Namespace
}

// String renders the pair back in dotted form
func (q QualifiedName) String() string {
	if q.Namespace == nil {
		return q.Name
	}
	return *q.Namespace + "." + q.Name
}

// ParseQualifiedName splits s on its first dot
func ParseQualifiedName(s string) QualifiedName {
	ns, name, found := strings.Cut(s, ".")
	if !found {
		return QualifiedName{Name: s}
	}
	return QualifiedName{Name: name, Namespace: &ns}
}

// ResolveName extracts the qualified name of a schema object
func ResolveName(obj Object) QualifiedName {
	ns := obj.NamespaceName()
	if ns == "" {
		return QualifiedName{Name: obj.AssetName()}
	}
	return QualifiedName{Name: obj.ShortestName(ns), Namespace: &ns}
}
