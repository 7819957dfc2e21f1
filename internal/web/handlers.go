package web

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tablemirror/internal/core"
	"github.com/JonMunkholm/tablemirror/internal/logging"
	"github.com/JonMunkholm/tablemirror/internal/web/templates"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 64 << 10

const fallbackSheetName = "Sheet1"

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	core.Stats
	Generation  string `json:"generation"`
	Subscribers int    `json:"subscribers"`
	RateLimited bool   `json:"rateLimited"`
	Visitors    int    `json:"visitors,omitempty"`
}

type signalRequest struct {
	Kind  string `json:"kind"`
	Param string `json:"param"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type widthRequest struct {
	Width int `json:"width"`
}

type layoutRequest struct {
	ContainerWidth int `json:"containerWidth"`
}

type acceptedResponse struct {
	Status string `json:"status"`
	Signal string `json:"signal"`
}

// currentTable returns the painted table together with the dataset name.
// Going through the loop flushes queued renders first.
func (s *Server) currentTable(r *http.Request) (templates.Table, error) {
	var name string
	err := s.orch.Do(r.Context(), func(sess *core.Session) error {
		name = sess.Model.Name()
		return nil
	})
	if err != nil {
		return templates.Table{}, err
	}
	t := s.view.Current()
	t.Name = name
	return t, nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	t, err := s.currentTable(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(t).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

func (s *Server) handleTablePartial(w http.ResponseWriter, r *http.Request) {
	t, err := s.currentTable(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.TablePartial(t).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render table partial", "error", err)
	}
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	t, err := s.currentTable(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Stats:       s.orch.Stats(),
		Generation:  s.view.Current().Generation,
		Subscribers: s.view.Subscribers(),
		RateLimited: s.limiter != nil,
	}
	if s.limiter != nil {
		resp.Visitors = s.limiter.visitorCount()
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleEvents streams a render event after every paint. The current
// generation is sent first so a reconnecting client can catch up.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, fmt.Errorf("streaming not supported"))
		return
	}

	id, events := s.view.Subscribe()
	defer s.view.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger := logging.WithFields(r.Context(), "subscriber", id)
	logger.Debug("event stream opened")

	if cur := s.view.Current(); cur.Ready() {
		writeEvent(w, RenderEvent{Generation: cur.Generation, Rows: len(cur.Rows), Columns: len(cur.Columns)})
	}
	flusher.Flush()

	keepAlive := s.clock.NewTicker(s.opts.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case ev := <-events:
			writeEvent(w, ev)
			flusher.Flush()
		case <-keepAlive.Chan():
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			logger.Debug("event stream closed")
			return
		}
	}
}

func writeEvent(w io.Writer, ev RenderEvent) {
	data, _ := json.Marshal(ev)
	fmt.Fprintf(w, "id: %s\nevent: render\ndata: %s\n\n", ev.Generation, data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Refresh(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, acceptedResponse{Status: "queued", Signal: string(core.ManualRefresh)})
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	sig, err := core.NewSignal(req.Kind, req.Param)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.orch.Notify(r.Context(), sig); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, acceptedResponse{Status: "queued", Signal: sig.String()})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	index, err := columnIndex(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.orch.Rename(r.Context(), index, req.Name); err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("column renamed", "index", index, "name", req.Name)
	s.handleTable(w, r)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	index, err := columnIndex(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req widthRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.orch.Resize(r.Context(), index, req.Width); err != nil {
		respondError(w, r, err)
		return
	}
	s.handleTable(w, r)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.ContainerWidth <= 0 {
		respondError(w, r, badRequest("containerWidth must be positive, got %d", req.ContainerWidth))
		return
	}
	if err := s.orch.SetContainerWidth(r.Context(), req.ContainerWidth); err != nil {
		respondError(w, r, err)
		return
	}
	s.handleTable(w, r)
}

// handleExport copies the current model on the orchestrator loop and
// serializes the copy off it, so a slow export never delays a render and
// never sees a half-applied snapshot.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	ext := r.URL.Query().Get("ext")

	var model *core.Model
	err := s.orch.Do(r.Context(), func(sess *core.Session) error {
		model = sess.Model.Clone()
		return nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	sheet := name
	if sheet == "" {
		sheet = model.Name()
	}
	if sheet == "" {
		sheet = fallbackSheetName
	}
	doc, err := s.export.Serialize(model, sheet, ext)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	if _, err := doc.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export download interrupted", "file", doc.FileName, "error", err)
	}
}

func columnIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid column index %q", raw)
	}
	return index, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}
