package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/rxflow/internal/store"
)

// FormatTrace renders a trace one notification per line:
//
//	1 next 1
//	2 next "a"
//	3 completed
//
// Values use store.EncodeValue, so a formatted trace matches what the
// store would hold.
func FormatTrace(trace []Event) string {
	var b strings.Builder
	for _, ev := range trace {
		switch ev.Kind {
		case store.KindNext:
			fmt.Fprintf(&b, "%d next %s\n", ev.Seq, store.EncodeValue(ev.Value))
		case store.KindError:
			fmt.Fprintf(&b, "%d error %s\n", ev.Seq, ev.Err)
		default:
			fmt.Fprintf(&b, "%d %s\n", ev.Seq, ev.Kind)
		}
	}
	return b.String()
}

// FormatNotifications renders stored notifications in the FormatTrace
// layout, so a stored run can be compared against a live one.
func FormatNotifications(ns []store.Notification) string {
	var b strings.Builder
	for _, n := range ns {
		switch n.Kind {
		case store.KindNext:
			fmt.Fprintf(&b, "%d next %s\n", n.Seq, n.Value)
		case store.KindError:
			fmt.Fprintf(&b, "%d error %s\n", n.Seq, n.Error)
		default:
			fmt.Fprintf(&b, "%d %s\n", n.Seq, n.Kind)
		}
	}
	return b.String()
}
