package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/specialistvlad/pipelinestudio/internal/canvasrelay"
	"github.com/specialistvlad/pipelinestudio/internal/catalog"
	"github.com/specialistvlad/pipelinestudio/internal/codec"
	"github.com/specialistvlad/pipelinestudio/internal/ctxlog"
	"github.com/specialistvlad/pipelinestudio/internal/dag"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
	"github.com/specialistvlad/pipelinestudio/internal/session"
	"github.com/specialistvlad/pipelinestudio/internal/templatestore"
	"github.com/specialistvlad/pipelinestudio/internal/topologystore"
)

// maxLine bounds one protocol line, which may carry a whole document.
const maxLine = 4 << 20

// Request is one input line of the serve protocol.
type Request struct {
	ID   int             `json:"id"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response answers one Request.
type Response struct {
	ID     int    `json:"id"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// Event is an output line that is not a response: a confirmation prompt or
// a navigation notice.
type Event struct {
	Event     string `json:"event"`
	Operation string `json:"operation,omitempty"`
	Artifact  string `json:"artifact,omitempty"`
}

// Answer is the input line that answers a confirm event.
type Answer struct {
	Decision string `json:"decision"`
}

type server struct {
	in      *bufio.Scanner
	outMu   sync.Mutex
	enc     *json.Encoder
	autoYes bool
	codec   *codec.Codec
	editor  *session.Editor
}

type handler func(ctx context.Context, s *server, args json.RawMessage) (any, error)

var handlers = map[string]handler{
	"status":                 handleStatus,
	"state":                  handleState,
	"palette":                handlePalette,
	"add_plugin":             handleAddPlugin,
	"set_version":            handleSetVersion,
	"add_template":           handleAddTemplate,
	"remove_node":            handleRemoveNode,
	"select_node":            handleSelectNode,
	"reset_selection":        handleResetSelection,
	"connect":                handleConnect,
	"disconnect":             handleDisconnect,
	"set_property":           handleSetProperty,
	"switch_artifact":        handleSwitchArtifact,
	"import":                 handleImport,
	"load_template":          handleLoadTemplate,
	"export":                 handleExport,
	"save":                   handleSave,
	"reset":                  handleReset,
	"save_plugin_template":   handleSavePluginTemplate,
	"delete_plugin_template": handleDeletePluginTemplate,
}

// Serve runs the headless editor: one JSON Request per input line, one
// Response per request on out. Confirmation prompts are written as confirm
// events and answered by the next input line, unless autoYes proceeds
// without asking. Serve returns when in is exhausted, a quit op arrives or
// ctx is done.
func (app *App) Serve(ctx context.Context, in io.Reader, out io.Writer, autoYes bool) error {
	ctx = ctxlog.With(ctx, "namespace", app.cfg.Namespace)
	logger := ctxlog.FromContext(ctx)
	s := &server{
		in:      bufio.NewScanner(in),
		enc:     json.NewEncoder(out),
		autoYes: autoYes,
		codec:   app.Codec(),
	}
	s.in.Buffer(make([]byte, 0, 64*1024), maxLine)

	sess, err := app.NewSession(ctx, SessionOptions{
		Confirm:   s.confirm,
		Navigator: session.NavigatorFunc(s.navigate),
	})
	if err != nil {
		return err
	}
	defer sess.Close(ctx)
	s.editor = sess.Editor()
	logger.Info("Serving editor session.", "artifact", s.editor.Artifact().String())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.in.Scan() {
			if err := s.in.Err(); err != nil {
				return fmt.Errorf("reading requests: %w", err)
			}
			return nil
		}
		line := s.in.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(Response{OK: false, Error: "malformed request: " + err.Error(), Kind: "malformed_request"})
			continue
		}
		if req.Op == "quit" {
			s.write(Response{ID: req.ID, OK: true})
			return nil
		}
		s.write(s.handle(ctx, req))
	}
}

func (s *server) handle(ctx context.Context, req Request) Response {
	h, ok := handlers[req.Op]
	if !ok {
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown op %q", req.Op), Kind: "unknown_op"}
	}
	result, err := h(ctx, s, req.Args)
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Request failed.", "op", req.Op, "error", err)
		return Response{ID: req.ID, Error: err.Error(), Kind: errorKind(err)}
	}
	return Response{ID: req.ID, OK: true, Result: result}
}

func (s *server) write(v any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	_ = s.enc.Encode(v)
}

func (s *server) confirm(ctx context.Context, op session.Operation) (session.Decision, error) {
	if s.autoYes {
		return session.Proceed, nil
	}
	s.write(Event{Event: "confirm", Operation: string(op)})
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return session.Cancel, err
		}
		return session.Cancel, io.ErrUnexpectedEOF
	}
	var ans Answer
	if err := json.Unmarshal(s.in.Bytes(), &ans); err != nil {
		return session.Cancel, fmt.Errorf("malformed answer: %w", err)
	}
	switch ans.Decision {
	case "proceed", "yes":
		return session.Proceed, nil
	case "cancel", "no":
		return session.Cancel, nil
	}
	return session.Cancel, fmt.Errorf("unknown decision %q", ans.Decision)
}

func (s *server) navigate(_ context.Context, dest session.Destination) error {
	s.write(Event{Event: "navigate", Artifact: dest.ArtifactType})
	return nil
}

// errorKind names the error class of err for clients.
func errorKind(err error) string {
	if kind := codec.Kind(err); kind != "" {
		return kind
	}
	switch {
	case errors.Is(err, dag.ErrUnknownNode):
		return "unknown_node"
	case errors.Is(err, dag.ErrNodeLocked):
		return "node_locked"
	case errors.Is(err, dag.ErrInvalidConnection):
		return "invalid_connection"
	case errors.Is(err, dag.ErrInvalidCommand):
		return "invalid_command"
	case errors.Is(err, codec.ErrIncompletePipeline):
		return "incomplete_pipeline"
	case errors.Is(err, templatestore.ErrTemplateNotFound):
		return "template_not_found"
	case errors.Is(err, catalog.ErrNotFound):
		return "not_found"
	case errors.Is(err, catalog.ErrNetwork):
		return "network"
	case errors.Is(err, errBadArgs):
		return "bad_args"
	}
	return "internal"
}

var errBadArgs = errors.New("bad arguments")

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errBadArgs, err)
	}
	return nil
}

type pluginArgs struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

func (a pluginArgs) pluginType() (pipeline.PluginType, error) {
	t, err := pipeline.ParsePluginType(a.Type)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadArgs, err)
	}
	return t, nil
}

type nodeArgs struct {
	ID string `json:"id"`
}

type connectionArgs struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type nodeResult struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type statusResult struct {
	Artifact pipeline.Artifact `json:"artifact"`
	Dirty    bool              `json:"dirty"`
}

func handleStatus(ctx context.Context, s *server, _ json.RawMessage) (any, error) {
	return statusResult{Artifact: s.editor.Artifact(), Dirty: s.editor.IsDirty()}, nil
}

func handleState(ctx context.Context, s *server, _ json.RawMessage) (any, error) {
	return canvasrelay.NewEvent(topologystore.Change{State: s.editor.State(ctx)}), nil
}

func handlePalette(ctx context.Context, s *server, _ json.RawMessage) (any, error) {
	return s.editor.Palette(ctx)
}

func handleAddPlugin(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args pluginArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	t, err := args.pluginType()
	if err != nil {
		return nil, err
	}
	n, err := s.editor.AddPlugin(ctx, t, args.Name)
	if err != nil {
		return nil, err
	}
	return nodeResult{ID: n.ID, Label: n.Label()}, nil
}

func handleSetVersion(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args pluginArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	t, err := args.pluginType()
	if err != nil {
		return nil, err
	}
	return nil, s.editor.SetPluginVersion(t, args.Name, args.Version)
}

func handleAddTemplate(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args pluginArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	t, err := args.pluginType()
	if err != nil {
		return nil, err
	}
	n, err := s.editor.AddPluginTemplate(ctx, t, args.Name)
	if err != nil {
		return nil, err
	}
	return nodeResult{ID: n.ID, Label: n.Label()}, nil
}

func handleRemoveNode(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args nodeArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, s.editor.RemoveNode(ctx, args.ID)
}

func handleSelectNode(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args nodeArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, s.editor.SelectNode(ctx, args.ID)
}

func handleResetSelection(ctx context.Context, s *server, _ json.RawMessage) (any, error) {
	return nil, s.editor.ResetSelection(ctx)
}

func handleConnect(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args connectionArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, s.editor.Connect(ctx, args.From, args.To)
}

func handleDisconnect(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args connectionArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, s.editor.Disconnect(ctx, args.From, args.To)
}

func handleSetProperty(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Value any    `json:"value"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, s.editor.SetProperty(ctx, args.ID, args.Name, args.Value)
}

func handleSwitchArtifact(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args struct {
		Artifact string `json:"artifact"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	a, err := pipeline.ParseArtifact(args.Artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadArgs, err)
	}
	switched, err := s.editor.SwitchArtifact(ctx, a)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"switched": switched}, nil
}

func handleImport(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args struct {
		Document json.RawMessage `json:"document,omitempty"`
		Path     string          `json:"path,omitempty"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if len(args.Document) == 0 && args.Path == "" {
		return nil, fmt.Errorf("%w: document or path is required", errBadArgs)
	}
	ok, err := s.editor.OpenImport(ctx)
	if err != nil || !ok {
		return map[string]bool{"imported": false}, err
	}
	doc := []byte(args.Document)
	if args.Path != "" {
		if doc, err = codec.ReadFile(args.Path); err != nil {
			return nil, err
		}
	}
	if _, err := s.editor.Import(ctx, doc); err != nil {
		return nil, err
	}
	return map[string]bool{"imported": true}, nil
}

func handleLoadTemplate(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args struct {
		Name string `json:"name"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	loaded, err := s.editor.LoadTemplate(ctx, args.Name)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"loaded": loaded}, nil
}

type exportResult struct {
	Path        string          `json:"path,omitempty"`
	Fingerprint string          `json:"fingerprint"`
	Document    *codec.Document `json:"document,omitempty"`
}

func (s *server) finishExport(doc *codec.Document, path string) (any, error) {
	fp, err := codec.Fingerprint(doc)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return exportResult{Fingerprint: fp, Document: doc}, nil
	}
	data, err := codec.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err := codec.WriteFile(path, data); err != nil {
		return nil, err
	}
	return exportResult{Path: path, Fingerprint: fp}, nil
}

type pathArgs struct {
	Path string `json:"path,omitempty"`
}

func handleExport(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	doc, err := s.editor.Export(ctx)
	if err != nil {
		return nil, err
	}
	return s.finishExport(doc, args.Path)
}

func handleSave(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args pathArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	doc, err := s.editor.Export(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.finishExport(doc, args.Path)
	if err != nil {
		return nil, err
	}
	if _, err := s.editor.Save(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func handleReset(ctx context.Context, s *server, _ json.RawMessage) (any, error) {
	return nil, s.editor.Reset(ctx)
}

func handleSavePluginTemplate(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Lock bool   `json:"lock"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return s.editor.SaveAsPluginTemplate(ctx, args.ID, args.Name, args.Lock)
}

func handleDeletePluginTemplate(ctx context.Context, s *server, raw json.RawMessage) (any, error) {
	var args pluginArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	t, err := args.pluginType()
	if err != nil {
		return nil, err
	}
	return nil, s.editor.DeletePluginTemplate(ctx, t, args.Name)
}
