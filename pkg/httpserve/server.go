// Package httpserve provides a small read-only status page for completed
// partition runs: a JSON API and a plain HTML table, backed by whatever
// RunSource the caller supplies. It replaces a browser console, not an
// analysis tool, so it carries no embedded flamegraph assets.
package httpserve

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/ptrackio/ptrack/pkg/model"
	"github.com/ptrackio/ptrack/pkg/utils"
)

// RunSource is the data dependency the status page needs. *internal/service.Service
// satisfies this.
type RunSource interface {
	RecentRuns(ctx context.Context, limit int) ([]*model.PartitionRun, error)
	ArtifactURL(key string) string
}

// Server is a read-only HTTP status page over a RunSource.
type Server struct {
	source RunSource
	port   int
	logger utils.Logger
	server *http.Server
}

// NewServer creates a new status server. port is the listen port; source
// supplies the run history it renders.
func NewServer(source RunSource, port int, logger utils.Logger) *Server {
	return &Server{source: source, port: port, logger: logger}
}

// Start builds the route table and blocks serving HTTP until the server is
// shut down or fails to bind.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/", s.handleIndex)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("Starting status server at http://localhost:%d", s.port)
	s.logger.Info("Press Ctrl+C to stop")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.source.RecentRuns(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.logger.Error("failed to load recent runs: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(runs); err != nil {
		s.logger.Error("failed to encode runs: %v", err)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>ptrackctl runs</title></head>
<body>
<h1>Recent partition runs</h1>
<table border="1" cellpadding="4">
<tr><th>Run ID</th><th>Arch0</th><th>Arch1</th><th>Cut Weight</th><th>Calls</th><th>Accesses</th><th>Created</th><th>Artifact</th></tr>
{{range .Runs}}
<tr>
  <td>{{.RunID}}</td>
  <td>{{.Arch0Anchor}}</td>
  <td>{{.Arch1Anchor}}</td>
  <td>{{.CutWeight}}</td>
  <td>{{.TotalCalls}}</td>
  <td>{{.TotalAccesses}}</td>
  <td>{{.CreatedAt}}</td>
  <td>{{if .DotArtifactKey}}<a href="{{.ArtifactURL}}">graph.dot</a>{{end}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))

type runRow struct {
	*model.PartitionRun
	ArtifactURL string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.source.RecentRuns(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.logger.Error("failed to load recent runs: %v", err)
		return
	}

	rows := make([]runRow, 0, len(runs))
	for _, run := range runs {
		url := ""
		if run.DotArtifactKey != "" {
			url = s.source.ArtifactURL(run.DotArtifactKey)
		}
		rows = append(rows, runRow{PartitionRun: run, ArtifactURL: url})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, struct{ Runs []runRow }{Runs: rows}); err != nil {
		s.logger.Error("failed to execute template: %v", err)
	}
}
