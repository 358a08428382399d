package roster

import (
	"github.com/m3rciful/devroster/core/telegram/callbacks"
)

// Callback namespaces carried in button data.
const (
	NamespaceConfirmDelete = "confirm_delete"
	NamespaceCancelDelete  = "cancel_delete"
	NamespaceView          = "view"
	NamespaceCategory      = "category"
)

// PayloadKind is the parsed form of a button namespace.
type PayloadKind int

const (
	PayloadUnknown PayloadKind = iota
	PayloadConfirmDelete
	PayloadCancelDelete
	PayloadView
	PayloadCategory
)

// Payload is button data parsed once at the boundary.
type Payload struct {
	Kind PayloadKind
	Key  string
}

// ParsePayload parses raw callback data. Keyed namespaces without a key and
// bare namespaces with one are unknown.
func ParsePayload(raw string) Payload {
	ns, key := callbacks.Split(raw)
	switch ns {
	case NamespaceConfirmDelete:
		if key == "" {
			return Payload{Kind: PayloadConfirmDelete}
		}
	case NamespaceCancelDelete:
		if key == "" {
			return Payload{Kind: PayloadCancelDelete}
		}
	case NamespaceView:
		if key != "" {
			return Payload{Kind: PayloadView, Key: key}
		}
	case NamespaceCategory:
		if key != "" {
			return Payload{Kind: PayloadCategory, Key: key}
		}
	}
	return Payload{Kind: PayloadUnknown}
}

// Data encodes p back into callback data.
func (p Payload) Data() string {
	switch p.Kind {
	case PayloadConfirmDelete:
		return NamespaceConfirmDelete
	case PayloadCancelDelete:
		return NamespaceCancelDelete
	case PayloadView:
		return callbacks.Join(NamespaceView, p.Key)
	case PayloadCategory:
		return callbacks.Join(NamespaceCategory, p.Key)
	}
	return ""
}

// Namespaces lists every namespace the engine accepts.
func Namespaces() []string {
	return []string{NamespaceConfirmDelete, NamespaceCancelDelete, NamespaceView, NamespaceCategory}
}
