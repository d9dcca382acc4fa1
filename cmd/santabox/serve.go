package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caffeineduck/santabox/diagnostic"
	"github.com/caffeineduck/santabox/dispatcher"
	"github.com/caffeineduck/santabox/executor"
	"github.com/caffeineduck/santabox/hostfunc"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor server",
	Long: `Start an HTTP server for the browser editor.

Endpoints:
  GET    /ws          WebSocket: send {"type":"run"|"test","source":"..."}
  POST   /execute     Execute a script, returns {"text","outcome","output"}
  GET    /examples    Example solutions by year
  GET    /health      Health check

Scripts may read aoc://YEAR/DAY inputs from --input-base. Any other http(s)
host must be allowed with --allow-host (or SANTA_ALLOW_HOSTS).`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (env "+envPort+")")
	addReadFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type server struct {
	interp   executor.Interpreter
	reader   *hostfunc.Reader
	logger   *slog.Logger
	examples []exampleYear
}

func newServer(interp executor.Interpreter, reader *hostfunc.Reader, logger *slog.Logger, examples []exampleYear) *server {
	return &server{
		interp:   interp,
		reader:   reader,
		logger:   logger,
		examples: examples,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("GET /examples", s.handleExamples)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// newDispatcher gives a client its own execution context. Script errors are
// rendered plain: the editor does its own styling.
func (s *server) newDispatcher(sink dispatcher.Sink, out io.Writer, logger *slog.Logger) *dispatcher.Dispatcher {
	return dispatcher.New(s.interp, hostfunc.NewBridge(out, s.reader), sink,
		dispatcher.WithLogger(logger),
		dispatcher.WithFormatter(diagnostic.New(diagnostic.DefaultName, diagnostic.PlainTheme())),
	)
}

type wsInbound struct {
	Type   string `json:"type"`
	Source string `json:"source"`
}

type wsOutbound struct {
	Type    string `json:"type"`
	Kind    string `json:"kind,omitempty"`
	Text    string `json:"text,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsClient is the Sink of one connection. Everything it receives is queued
// for the connection's writer goroutine.
type wsClient struct {
	out chan wsOutbound
}

func (c *wsClient) Status(text string) {
	pushWS(c.out, wsOutbound{Type: "status", Text: text})
}

func (c *wsClient) Publish(r dispatcher.Result) {
	pushWS(c.out, wsOutbound{
		Type:    "result",
		Kind:    string(r.Kind),
		Text:    r.Text,
		Outcome: r.Outcome.String(),
	})
}

// Write forwards puts output.
func (c *wsClient) Write(p []byte) (int, error) {
	pushWS(c.out, wsOutbound{Type: "output", Text: string(p)})
	return len(p), nil
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	logger := s.logger.With("conn", id)
	logger.Info("client connected", "remote", r.RemoteAddr)
	defer logger.Info("client disconnected")

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		logger.Error("set read deadline", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	client := &wsClient{out: make(chan wsOutbound, 64)}
	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case out := <-client.out:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	d := s.newDispatcher(client, client, logger)
	defer func() {
		d.Close()
		close(done)
		<-writerDone
	}()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}

		kind := executor.Kind(strings.ToLower(strings.TrimSpace(in.Type)))
		switch kind {
		case executor.KindRun, executor.KindTest:
			// Busy: dropped without a reply.
			d.Dispatch(kind, in.Source)
		default:
			pushWS(client.out, wsOutbound{Type: "error", Message: "unsupported type: " + in.Type})
		}
	}
}

// pushWS queues out, dropping the oldest queued message when the writer
// falls behind.
func pushWS(ch chan wsOutbound, out wsOutbound) {
	select {
	case ch <- out:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- out:
	default:
	}
}

type executeRequest struct {
	Type   string `json:"type"`
	Source string `json:"source"`
}

type executeResponse struct {
	Text    string `json:"text"`
	Outcome string `json:"outcome"`
	Output  string `json:"output,omitempty"`
}

// resultSink hands the single published result to a waiting handler.
type resultSink chan dispatcher.Result

func (resultSink) Status(string) {}

func (s resultSink) Publish(r dispatcher.Result) {
	s <- r
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	kind := executor.Kind(req.Type)
	if req.Type == "" {
		kind = executor.KindRun
	}
	if kind != executor.KindRun && kind != executor.KindTest {
		http.Error(w, fmt.Sprintf("unsupported type %q", req.Type), http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		http.Error(w, "source required", http.StatusBadRequest)
		return
	}

	var output bytes.Buffer
	results := make(resultSink, 1)
	d := s.newDispatcher(results, &output, s.logger.With("request", uuid.NewString()))
	defer d.Close()

	if !d.Dispatch(kind, req.Source) {
		http.Error(w, "dispatch rejected", http.StatusInternalServerError)
		return
	}

	select {
	case res := <-results:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(executeResponse{
			Text:    res.Text,
			Outcome: res.Outcome.String(),
			Output:  output.String(),
		})
	case <-r.Context().Done():
	}
}

func (s *server) handleExamples(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.examples)
}

func runServe(cmd *cobra.Command, args []string) {
	port, _ := cmd.Flags().GetInt("port")
	if !cmd.Flags().Changed("port") {
		if v := envOrDefault(envPort, ""); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid %s %q\n", envPort, v)
				os.Exit(exitSetup)
			}
			port = p
		}
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	lang, err := loadLanguage(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitSetup)
	}

	reader, err := newReader(cmd, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitSetup)
	}

	exec, err := newExecutor(cmd, lang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitSetup)
	}
	defer exec.Close()

	baseURL := stringSetting(cmd, "input-base", envInputBaseURL)
	srv := newServer(exec.Bind(lang, executor.WithTimeout(timeout)), reader, logger, exampleCatalog(baseURL))

	addr := fmt.Sprintf(":%d", port)
	logger.Info("santabox server listening", "addr", addr, "interpreter", lang.Name())
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitSetup)
	}
}
