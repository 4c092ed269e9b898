// Package classlog is a slog handler that writes component-tagged messages
// in the editor log format, so anything logged through it shows up in the
// console like a scripted Debug.Log call.
package classlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Attribute keys that select the component and namespace of a record.
// Without them both are derived from the calling function.
const (
	ComponentKey = "component"
	NamespaceKey = "namespace"
)

// Options configures a Handler.
type Options struct {
	// Components allowed through. Nil together with a nil Namespaces
	// allows everything.
	Components []string
	// Namespaces allowed through.
	Namespaces []string
	// RichText wraps the prefix and message in bold colour tags.
	RichText bool
	// Level is the minimum level written. Defaults to slog.LevelInfo.
	Level slog.Leveler
}

// Handler implements slog.Handler.
type Handler struct {
	opts Options

	mu *sync.Mutex
	w  io.Writer

	component string
	namespace string
	attrs     []slog.Attr
	group     string
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a handler writing to w.
func NewHandler(w io.Writer, opts *Options) *Handler {
	h := &Handler{mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled reports whether level is at or above the configured minimum.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// WithAttrs returns a handler that adds attrs to every record. The
// component and namespace keys are captured rather than printed.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	for _, a := range attrs {
		if h2.group == "" && h2.capture(a) {
			continue
		}
		h2.attrs = append(h2.attrs, h2.qualify(a))
	}
	return h2
}

// WithGroup qualifies later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	if h2.group != "" {
		h2.group += "." + name
	} else {
		h2.group = name
	}
	return h2
}

func (h *Handler) clone() *Handler {
	h2 := *h
	h2.attrs = slices.Clip(h.attrs)
	return &h2
}

func (h *Handler) capture(a slog.Attr) bool {
	switch a.Key {
	case ComponentKey:
		h.component = a.Value.String()
	case NamespaceKey:
		h.namespace = a.Value.String()
	default:
		return false
	}
	return true
}

func (h *Handler) qualify(a slog.Attr) slog.Attr {
	if h.group != "" {
		a.Key = h.group + "." + a.Key
	}
	return a
}

// Handle writes r as one editor log entry, or nothing if the component is
// filtered out.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	rh := h.clone()
	r.Attrs(func(a slog.Attr) bool {
		if rh.group == "" && rh.capture(a) {
			return true
		}
		rh.attrs = append(rh.attrs, rh.qualify(a))
		return true
	})

	frame := callerFrame(r.PC)
	class, method := splitFunction(frame.Function)
	component, namespace := rh.component, rh.namespace
	if component == "" {
		component = class[strings.LastIndex(class, ".")+1:]
	}
	if namespace == "" {
		namespace = packagePath(frame.Function)
	}

	if !h.allowed(component, namespace) {
		return nil
	}

	var b strings.Builder
	b.WriteString(h.message(component, r, rh.attrs))
	b.WriteByte('\n')
	b.WriteString(traceLine(r.Level))
	b.WriteByte('\n')
	if class != "" {
		fmt.Fprintf(&b, "%s:%s () (at %s:%d)\n", class, method, frame.File, frame.Line)
	}
	fmt.Fprintf(&b, "\n(Filename: %s Line: %d)\n\n", frame.File, frame.Line)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// allowed applies the component and namespace allow-lists. Records with
// no component at all are never filtered.
func (h *Handler) allowed(component, namespace string) bool {
	if component == "" {
		return true
	}
	if h.opts.Components == nil && h.opts.Namespaces == nil {
		return true
	}
	return slices.Contains(h.opts.Components, component) ||
		slices.Contains(h.opts.Namespaces, namespace)
}

func (h *Handler) message(component string, r slog.Record, attrs []slog.Attr) string {
	msg := r.Message
	for _, a := range attrs {
		msg += " " + formatAttr(a)
	}
	// A blank line ends an entry.
	for strings.Contains(msg, "\n\n") {
		msg = strings.ReplaceAll(msg, "\n\n", "\n")
	}

	if !h.opts.RichText {
		if component == "" {
			return msg
		}
		return "[" + component + "] " + msg
	}

	out := Colorize(msg, LevelColor(r.Level))
	if component != "" {
		out = Colorize("["+component+"] ", ComponentColor(component)) + out
	}
	return out
}

func formatAttr(a slog.Attr) string {
	v := a.Value.Resolve().String()
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		v = strconv.Quote(v)
	}
	return a.Key + "=" + v
}

// traceLine is the Debug call the editor would have recorded for level.
func traceLine(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "UnityEngine.Debug:LogError (object)"
	case level >= slog.LevelWarn:
		return "UnityEngine.Debug:LogWarning (object)"
	default:
		return "UnityEngine.Debug:Log (object)"
	}
}

func callerFrame(pc uintptr) runtime.Frame {
	if pc == 0 {
		return runtime.Frame{}
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return frame
}

// splitFunction turns "example.com/game/player.(*Ship).Fire" into
// ("player.Ship", "Fire").
func splitFunction(fn string) (class, method string) {
	if fn == "" {
		return "", ""
	}
	name := fn[strings.LastIndex(fn, "/")+1:]
	name = strings.NewReplacer("(*", "", "(", "", ")", "").Replace(name)

	i := strings.LastIndex(name, ".")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// packagePath returns the import path of fn's package.
func packagePath(fn string) string {
	slash := strings.LastIndex(fn, "/")
	dot := strings.Index(fn[slash+1:], ".")
	if dot < 0 {
		return fn
	}
	return fn[:slash+1+dot]
}
