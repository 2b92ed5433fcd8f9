package ui

import "time"

type toastKind int

const (
	toastInfo toastKind = iota
	toastSuccess
	toastError
)

// toast is a short-lived message shown in the footer after an action.
type toast struct {
	kind    toastKind
	text    string
	expires time.Time
}

func newToast(kind toastKind, text string, now time.Time) toast {
	return toast{kind: kind, text: text, expires: now.Add(ToastTTL)}
}

func (t toast) active() bool {
	return t.text != ""
}

// expired reports whether an active toast has outlived its TTL.
func (t toast) expired(now time.Time) bool {
	return t.active() && !now.Before(t.expires)
}
