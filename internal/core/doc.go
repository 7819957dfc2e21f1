// Package core provides the table model and refresh orchestration for the
// mirror. It has no UI dependencies and can be driven by any frontend.
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Snapshot: the columns and rows a [Source] returns for one fetch.
//   - Model: the latest snapshot plus user renames, keyed by column position.
//   - Session: the model, its layout and the row count of the last render.
//   - Orchestrator: the single goroutine that owns the Session and decides
//     when to fetch, lay out and paint.
//
// # Change Signals
//
// Producers (a Postgres LISTEN channel, a file watcher, the HTTP API) deliver
// [ChangeSignal] values through [Notifier]. ParameterChanged waits for a
// debounce delay and then polls until the row count moves:
//
//	orch.Notify(ctx, core.ChangeSignal{Kind: core.ParameterChanged, Param: "Region"})
//
// Every other kind renders on the next loop iteration. Bursts collapse into
// one render.
//
// # Session Access
//
// Exports and other readers run on the loop via [Orchestrator.Do], so they
// never observe a half-applied snapshot:
//
//	err := orch.Do(ctx, func(s *core.Session) error {
//	    doc, err = serializer.Serialize(s.Model, name, "")
//	    return err
//	})
//
// # Error Handling
//
// Fetch failures are wrapped in [TransportError]. Out-of-range column
// operations return [ErrColumnOutOfRange]; a stopped loop returns [ErrStopped].
package core
