package core

import (
	"fmt"
	"strings"
)

// SignalKind identifies the kind of change notification the host emitted.
type SignalKind string

const (
	FilterChanged      SignalKind = "filter_changed"
	DataSourceChanged  SignalKind = "data_source_changed"
	SummaryDataChanged SignalKind = "summary_data_changed"
	ParameterChanged   SignalKind = "parameter_changed"
	ManualRefresh      SignalKind = "manual_refresh"
)

// ChangeSignal is one change notification. Param carries the parameter name
// for ParameterChanged and is empty otherwise.
type ChangeSignal struct {
	Kind  SignalKind `json:"kind"`
	Param string     `json:"param,omitempty"`
}

func (s ChangeSignal) String() string {
	if s.Param != "" {
		return string(s.Kind) + ":" + s.Param
	}
	return string(s.Kind)
}

// Debounced reports whether the signal announces a change that may still be
// propagating upstream. Such signals wait and poll; all others render directly.
func (s ChangeSignal) Debounced() bool {
	return s.Kind == ParameterChanged
}

// ParseSignal parses the "kind" or "kind:param" text form used by
// notification payloads.
func ParseSignal(text string) (ChangeSignal, error) {
	text = strings.TrimSpace(text)
	kind, param, _ := strings.Cut(text, ":")
	return NewSignal(kind, param)
}

// NewSignal validates kind and builds a signal.
func NewSignal(kind, param string) (ChangeSignal, error) {
	k := SignalKind(strings.ToLower(strings.TrimSpace(kind)))
	switch k {
	case FilterChanged, DataSourceChanged, SummaryDataChanged, ManualRefresh:
		return ChangeSignal{Kind: k}, nil
	case ParameterChanged:
		return ChangeSignal{Kind: k, Param: strings.TrimSpace(param)}, nil
	default:
		return ChangeSignal{}, fmt.Errorf("%w: %q", ErrUnknownSignal, kind)
	}
}
